package ast

import (
	"fmt"
	"strings"

	"github.com/agenthands/osho/pkg/core/value"
)

// Node represents any node in the Abstract Syntax Tree.
// The set of implementations is closed; consumers switch on the concrete type.
type Node interface {
	node()
}

// BinaryOperator is the operator of a BinaryOp.
type BinaryOperator uint8

const (
	Plus BinaryOperator = iota
	Minus
	Multiply
	Divide
)

var operatorNames = [...]string{
	Plus:     "Plus",
	Minus:    "Minus",
	Multiply: "Multiply",
	Divide:   "Divide",
}

var operatorSymbols = [...]string{
	Plus:     "+",
	Minus:    "-",
	Multiply: "*",
	Divide:   "/",
}

func (op BinaryOperator) String() string {
	if int(op) < len(operatorNames) {
		return operatorNames[op]
	}
	return fmt.Sprintf("BinaryOperator(%d)", uint8(op))
}

// Symbol returns the operator as written in source.
func (op BinaryOperator) Symbol() string {
	if int(op) < len(operatorSymbols) {
		return operatorSymbols[op]
	}
	return "?"
}

// Program is the root node.
type Program struct {
	Statements []Node
}

// LetDeclaration: let NAME = VALUE
type LetDeclaration struct {
	Name  string
	Value Node
}

// Assignment: NAME = VALUE
type Assignment struct {
	Name  string
	Value Node
}

// Increment: NAME++
type Increment struct {
	Name string
}

// Decrement: NAME--
type Decrement struct {
	Name string
}

// Print: print VALUE
type Print struct {
	Value Node
}

// BinaryOp: LEFT OP RIGHT
type BinaryOp struct {
	Left  Node
	Op    BinaryOperator
	Right Node
}

type Number struct {
	Value float64
}

type Identifier struct {
	Name string
}

func (*Program) node()        {}
func (*LetDeclaration) node() {}
func (*Assignment) node()     {}
func (*Increment) node()      {}
func (*Decrement) node()      {}
func (*Print) node()          {}
func (*BinaryOp) node()       {}
func (*Number) node()         {}
func (*Identifier) node()     {}

// Format renders n as an S-expression, e.g. (program (let x 2) (print (+ x y))).
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

func format(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Program:
		b.WriteString("(program")
		for _, stmt := range n.Statements {
			b.WriteByte(' ')
			format(b, stmt)
		}
		b.WriteByte(')')
	case *LetDeclaration:
		fmt.Fprintf(b, "(let %s ", n.Name)
		format(b, n.Value)
		b.WriteByte(')')
	case *Assignment:
		fmt.Fprintf(b, "(= %s ", n.Name)
		format(b, n.Value)
		b.WriteByte(')')
	case *Increment:
		fmt.Fprintf(b, "(++ %s)", n.Name)
	case *Decrement:
		fmt.Fprintf(b, "(-- %s)", n.Name)
	case *Print:
		b.WriteString("(print ")
		format(b, n.Value)
		b.WriteByte(')')
	case *BinaryOp:
		fmt.Fprintf(b, "(%s ", n.Op.Symbol())
		format(b, n.Left)
		b.WriteByte(' ')
		format(b, n.Right)
		b.WriteByte(')')
	case *Number:
		b.WriteString(value.FormatFloat(n.Value))
	case *Identifier:
		b.WriteString(n.Name)
	case nil:
		b.WriteString("<nil>")
	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}
