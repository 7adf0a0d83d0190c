package pk

import (
	"runtime"
)

// OS name constants matching runtime.GOOS values.
const (
	Darwin  = "darwin"
	Linux   = "linux"
	Windows = "windows"
)

// Architecture constants in various naming conventions.
const (
	// Go-style architecture name (matching runtime.GOARCH).
	AMD64 = "amd64"

	// Alternative naming conventions used by various tools.
	X64 = "x64"
)

// HostOS returns the current operating system (runtime.GOOS).
func HostOS() string {
	return runtime.GOOS
}

// HostArch returns the current architecture (runtime.GOARCH).
func HostArch() string {
	return runtime.GOARCH
}

// ArchToX64 converts Go-style architecture names to x64/arm64 naming.
//
//	amd64 -> x64
//	arm64 -> arm64 (unchanged)
//
// Other values are returned unchanged.
func ArchToX64(arch string) string {
	if arch == AMD64 {
		return X64
	}
	return arch
}

// DefaultArchiveFormat returns the typical archive format for the current OS.
// Returns "zip" on Windows, "tar.gz" on other platforms.
func DefaultArchiveFormat() string {
	if runtime.GOOS == Windows {
		return "zip"
	}
	return "tar.gz"
}
