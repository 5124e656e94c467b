package codegen

import (
	"fmt"
	"math"
	"strings"

	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/core/value"
)

const (
	cPrologue = "#include <stdio.h>\n\nint main() {\n"
	cEpilogue = "\nreturn 0;\n}"
)

// C lowers a program to a single C translation unit whose main prints with
// "%f\n" and keeps every variable as a double.
type C struct {
	code strings.Builder
}

func NewC() *C {
	return &C{}
}

func (g *C) Name() string { return "c" }

// Generate returns the complete C program for prog.
func (g *C) Generate(prog *ast.Program) (string, error) {
	g.code.Reset()
	if err := g.statement(prog); err != nil {
		return "", err
	}
	return cPrologue + g.code.String() + cEpilogue, nil
}

func (g *C) statement(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Program:
		for _, stmt := range n.Statements {
			if err := g.statement(stmt); err != nil {
				return err
			}
		}
		return nil

	case *ast.LetDeclaration:
		fmt.Fprintf(&g.code, "double %s = ", n.Name)
		if err := g.expression(n.Value); err != nil {
			return err
		}

	case *ast.Assignment:
		fmt.Fprintf(&g.code, "%s = ", n.Name)
		if err := g.expression(n.Value); err != nil {
			return err
		}

	case *ast.Increment:
		fmt.Fprintf(&g.code, "%s++", n.Name)

	case *ast.Decrement:
		fmt.Fprintf(&g.code, "%s--", n.Name)

	case *ast.Print:
		g.code.WriteString(`printf("%f\n", `)
		if err := g.expression(n.Value); err != nil {
			return err
		}
		g.code.WriteByte(')')

	case *ast.BinaryOp, *ast.Number, *ast.Identifier:
		if err := g.expression(n); err != nil {
			return err
		}

	default:
		return unsupported("statement", node)
	}

	g.code.WriteString(";\n")
	return nil
}

func (g *C) expression(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Number:
		g.code.WriteString(cLiteral(n.Value))

	case *ast.Identifier:
		g.code.WriteString(n.Name)

	case *ast.BinaryOp:
		g.code.WriteByte('(')
		if err := g.expression(n.Left); err != nil {
			return err
		}
		fmt.Fprintf(&g.code, " %s ", n.Op.Symbol())
		if err := g.expression(n.Right); err != nil {
			return err
		}
		g.code.WriteByte(')')

	case *ast.Assignment:
		fmt.Fprintf(&g.code, "(%s = ", n.Name)
		if err := g.expression(n.Value); err != nil {
			return err
		}
		g.code.WriteByte(')')

	case *ast.Increment:
		fmt.Fprintf(&g.code, "%s++", n.Name)

	case *ast.Decrement:
		fmt.Fprintf(&g.code, "%s--", n.Name)

	default:
		return unsupported("expression", node)
	}
	return nil
}

// cLiteral spells f as a C double constant. Non-finite values have no literal
// form and are written as constant divisions.
func cLiteral(f float64) string {
	switch {
	case math.IsNaN(f):
		return "(0.0 / 0.0)"
	case math.IsInf(f, 1):
		return "(1.0 / 0.0)"
	case math.IsInf(f, -1):
		return "(-1.0 / 0.0)"
	}
	return value.FormatLiteral(f)
}
