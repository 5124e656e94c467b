// Package codegen lowers a parsed program into source for an external
// toolchain. It does not validate declarations; run the analyzer first.
package codegen

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agenthands/osho/pkg/compiler/ast"
)

var (
	ErrUnknownTarget   = errors.New("codegen: unknown target")
	ErrUnsupportedNode = errors.New("codegen: unsupported node")
	ErrUndeclared      = errors.New("codegen: undeclared variable")
)

// Backend turns a program into target source text.
type Backend interface {
	Name() string
	Generate(prog *ast.Program) (string, error)
}

var backends = map[string]func() Backend{
	"c":    func() Backend { return NewC() },
	"llvm": func() Backend { return NewLLVM() },
}

// ForTarget returns a fresh backend for name ("c" or "llvm").
func ForTarget(name string) (Backend, error) {
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTarget, name)
	}
	return ctor(), nil
}

// Targets lists the registered backend names.
func Targets() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unsupported(pos string, n ast.Node) error {
	return fmt.Errorf("%w: %T in %s position", ErrUnsupportedNode, n, pos)
}
