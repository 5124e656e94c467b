// Package analyzer checks declarations and executes a program in one pass.
//
// Every statement is validated and then run immediately, so a print that
// precedes an error still produces output and nothing after the error does.
package analyzer

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/core/value"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithOutput sets where print statements write. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(a *Analyzer) {
		if w == nil {
			w = io.Discard
		}
		a.out = w
	}
}

// WithLogger traces declarations and updates. Defaults to discarding.
func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

type Analyzer struct {
	symbols *SymbolTable
	out     io.Writer
	logger  *log.Logger
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		symbols: NewSymbolTable(),
		out:     os.Stdout,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze validates and executes node. A Program starts from an empty
// symbol table and runs its statements in order; any other statement node
// runs alone against the current table.
func (a *Analyzer) Analyze(node ast.Node) error {
	prog, ok := node.(*ast.Program)
	if !ok {
		return a.statement(node)
	}
	a.symbols = NewSymbolTable()
	for _, stmt := range prog.Statements {
		if err := a.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) statement(node ast.Node) error {
	switch n := node.(type) {
	case *ast.LetDeclaration:
		if _, ok := a.symbols.Lookup(n.Name); ok {
			return &Error{Kind: KindAlreadyDeclared, Name: n.Name}
		}
		v, err := a.evaluate(n.Value)
		if err != nil {
			return err
		}
		a.symbols.Declare(n.Name, v)
		a.logger.Printf("declare %s = %s", n.Name, value.FormatFloat(v))

	case *ast.Assignment:
		if _, ok := a.symbols.Lookup(n.Name); !ok {
			return &Error{Kind: KindNotDeclared, Name: n.Name}
		}
		v, err := a.evaluate(n.Value)
		if err != nil {
			return err
		}
		a.symbols.Set(n.Name, v)
		a.logger.Printf("assign %s = %s", n.Name, value.FormatFloat(v))

	case *ast.Increment:
		return a.step(n.Name, 1)

	case *ast.Decrement:
		return a.step(n.Name, -1)

	case *ast.Print:
		v, err := a.evaluate(n.Value)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(a.out, value.FormatFloat(v)); err != nil {
			return fmt.Errorf("print: %w", err)
		}

	default:
		return &Error{Kind: KindUnexpectedNode}
	}
	return nil
}

func (a *Analyzer) step(name string, delta float64) error {
	v, ok := a.symbols.Lookup(name)
	if !ok {
		return &Error{Kind: KindNotDeclared, Name: name}
	}
	a.symbols.Set(name, v+delta)
	return nil
}

func (a *Analyzer) evaluate(node ast.Node) (float64, error) {
	switch n := node.(type) {
	case *ast.Number:
		return n.Value, nil

	case *ast.Identifier:
		v, ok := a.symbols.Lookup(n.Name)
		if !ok {
			return 0, &Error{Kind: KindNotDeclared, Name: n.Name}
		}
		return v, nil

	case *ast.BinaryOp:
		left, err := a.evaluate(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := a.evaluate(n.Right)
		if err != nil {
			return 0, err
		}
		return Apply(n.Op, left, right)
	}
	return 0, &Error{Kind: KindUnexpectedExpression}
}

// Apply computes left op right with IEEE 754 semantics.
func Apply(op ast.BinaryOperator, left, right float64) (float64, error) {
	switch op {
	case ast.Plus:
		return left + right, nil
	case ast.Minus:
		return left - right, nil
	case ast.Multiply:
		return left * right, nil
	case ast.Divide:
		return left / right, nil
	}
	return 0, fmt.Errorf("analyzer: unknown operator %v", op)
}

// Symbols returns a snapshot of the variables declared so far.
func (a *Analyzer) Symbols() map[string]float64 {
	return a.symbols.Snapshot()
}
