package driver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrPathEscape   = errors.New("driver/fs: path escape violation")
	ErrFileTooLarge = errors.New("driver/fs: file size limit exceeded")
)

// Sandbox writes build artifacts below a fixed root directory.
type Sandbox struct {
	Root        string
	MaxFileSize int64
}

// NewSandbox jails writes to root. A maxFileSize <= 0 disables the size check.
func NewSandbox(root string, maxFileSize int64) (*Sandbox, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve sandbox root %q", root)
	}
	return &Sandbox{
		Root:        absRoot,
		MaxFileSize: maxFileSize,
	}, nil
}

// Resolve maps a sandbox-relative path to an absolute one, rejecting paths
// that leave the root.
func (s *Sandbox) Resolve(path string) (string, error) {
	cleanPath := filepath.Join(s.Root, path)
	if cleanPath != s.Root && !strings.HasPrefix(cleanPath, s.Root+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrPathEscape, "%q", path)
	}
	return cleanPath, nil
}

// WriteFile stores content at path and returns the absolute location.
func (s *Sandbox) WriteFile(path string, content []byte) (string, error) {
	cleanPath, err := s.Resolve(path)
	if err != nil {
		return "", err
	}

	if s.MaxFileSize > 0 && int64(len(content)) > s.MaxFileSize {
		return "", errors.Wrapf(ErrFileTooLarge, "%q is %d bytes", path, len(content))
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return "", errors.Wrap(err, "create artifact directory")
	}
	if err := os.WriteFile(cleanPath, content, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", cleanPath)
	}
	return cleanPath, nil
}
