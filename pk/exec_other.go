//go:build !unix

package pk

import "os/exec"

// setGracefulShutdown is a no-op on non-Unix platforms, where SIGINT is not
// available. cmd.Cancel defaults to os.Process.Kill.
func setGracefulShutdown(_ *exec.Cmd) {}
