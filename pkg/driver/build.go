package driver

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/compiler/codegen"
)

const (
	sourceName     = "output.c"
	executableName = "output"
)

// Artifact describes one native build.
type Artifact struct {
	ID         string
	Dir        string
	Source     string
	Executable string
	Size       int64 // executable size in bytes
}

// Builder compiles generated C with an external compiler and runs the result.
type Builder struct {
	Config *Config
	Logger *log.Logger // nil discards
}

func NewBuilder(cfg *Config) *Builder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Builder{Config: cfg}
}

func (b *Builder) logger() *log.Logger {
	if b.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return b.Logger
}

// Available reports whether the configured C compiler is on PATH.
func (b *Builder) Available() error {
	if _, err := exec.LookPath(b.Config.CC); err != nil {
		return errors.Wrapf(err, "c compiler %q", b.Config.CC)
	}
	return nil
}

func (b *Builder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Config.Timeout > 0 {
		return context.WithTimeout(ctx, b.Config.Timeout)
	}
	return context.WithCancel(ctx)
}

// Build lowers prog to C inside a fresh work directory below OutDir and
// compiles it. prog must already have passed analysis.
func (b *Builder) Build(ctx context.Context, prog *ast.Program) (*Artifact, error) {
	code, err := codegen.NewC().Generate(prog)
	if err != nil {
		return nil, errors.Wrap(err, "generate c")
	}

	sandbox, err := NewSandbox(b.Config.OutDir, b.Config.MaxArtifactSize)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	srcPath, err := sandbox.WriteFile(filepath.Join(id, sourceName), []byte(code))
	if err != nil {
		return nil, err
	}
	b.logger().Printf("wrote %s (%s)", srcPath, humanize.Bytes(uint64(len(code))))

	art := &Artifact{
		ID:         id,
		Dir:        filepath.Dir(srcPath),
		Source:     srcPath,
		Executable: filepath.Join(filepath.Dir(srcPath), executableName),
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	args := append(append([]string(nil), b.Config.CCFlags...), sourceName, "-o", executableName)
	cmd := exec.CommandContext(ctx, b.Config.CC, args...)
	cmd.Dir = art.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return art, errors.Wrapf(err, "compile %s: %s", srcPath, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(art.Executable)
	if err != nil {
		return art, errors.Wrap(err, "stat executable")
	}
	art.Size = info.Size()
	b.logger().Printf("compiled %s (%s) in %s", art.Executable, humanize.Bytes(uint64(art.Size)), time.Since(start).Round(time.Millisecond))
	return art, nil
}

// Exec runs a built executable and returns its standard output.
func (b *Builder) Exec(ctx context.Context, art *Artifact) (string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, art.Executable)
	cmd.Dir = art.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), errors.Wrapf(err, "run %s: %s", art.Executable, strings.TrimSpace(stderr.String()))
	}
	b.logger().Printf("%s printed %s", art.ID, humanize.Bytes(uint64(stdout.Len())))
	return stdout.String(), nil
}

// Clean removes the artifact's work directory.
func (b *Builder) Clean(art *Artifact) error {
	if art == nil || art.Dir == "" {
		return nil
	}
	return errors.Wrap(os.RemoveAll(art.Dir), "clean")
}
