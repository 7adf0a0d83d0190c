package pk

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractOpt configures extraction behavior.
type ExtractOpt func(*extractConfig)

type extractConfig struct {
	// stripComponents drops leading path elements from every entry.
	stripComponents int
}

func newExtractConfig(opts []ExtractOpt) *extractConfig {
	cfg := &extractConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithStripComponents drops the first n path elements of each archive entry,
// like tar --strip-components.
func WithStripComponents(n int) ExtractOpt {
	return func(cfg *extractConfig) {
		cfg.stripComponents = n
	}
}

// ExtractTarGz extracts a .tar.gz archive to destDir.
func ExtractTarGz(src, destDir string, opts ...ExtractOpt) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzr.Close()

	return extractTarReader(tar.NewReader(gzr), destDir, newExtractConfig(opts))
}

// ExtractZip extracts a .zip archive to destDir.
func ExtractZip(src, destDir string, opts ...ExtractOpt) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	cfg := newExtractConfig(opts)

	for _, f := range r.File {
		name, ok := cfg.outputName(f.Name)
		if !ok {
			continue
		}

		target, err := safeJoin(destDir, name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}

		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open file in archive: %w", err)
	}
	defer rc.Close()

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func extractTarReader(tr *tar.Reader, destDir string, cfg *extractConfig) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		name, ok := cfg.outputName(header.Name)
		if !ok {
			continue
		}

		target, err := safeJoin(destDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent directory: %w", err)
			}
			if err := extractTarFile(tr, target, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}
	return nil
}

func extractTarFile(tr *tar.Reader, target string, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, tr); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// outputName applies stripComponents to an archive entry name.
func (cfg *extractConfig) outputName(name string) (string, bool) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	parts := strings.Split(strings.Trim(name, "/"), "/")
	if len(parts) <= cfg.stripComponents {
		return "", false
	}
	return filepath.FromSlash(strings.Join(parts[cfg.stripComponents:], "/")), true
}

// safeJoin joins name onto destDir and rejects entries escaping destDir.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	cleanDest := filepath.Clean(destDir)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path: %s", name)
	}
	return target, nil
}
