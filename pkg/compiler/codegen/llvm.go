package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	"github.com/agenthands/osho/pkg/compiler/ast"
)

// LLVM lowers a program to textual LLVM IR: a module with a variadic printf
// declaration and a main function holding one double slot per variable.
type LLVM struct {
	module *ir.Module
	printf *ir.Func
	format constant.Constant
	block  *ir.Block
	slots  map[string]*ir.InstAlloca
}

func NewLLVM() *LLVM {
	return &LLVM{}
}

func (g *LLVM) Name() string { return "llvm" }

// Generate returns the IR module text for prog.
func (g *LLVM) Generate(prog *ast.Program) (string, error) {
	m, err := g.Module(prog)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// Module builds the IR module for prog.
func (g *LLVM) Module(prog *ast.Program) (*ir.Module, error) {
	g.module = ir.NewModule()
	g.slots = make(map[string]*ir.InstAlloca)

	g.printf = g.module.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	g.printf.Sig.Variadic = true

	fmtStr := g.module.NewGlobalDef(".fmt", constant.NewCharArrayFromString("%f\n\x00"))
	fmtStr.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	g.format = constant.NewGetElementPtr(fmtStr.ContentType, fmtStr, zero, zero)

	mainFn := g.module.NewFunc("main", types.I32)
	g.block = mainFn.NewBlock("entry")

	if err := g.statement(prog); err != nil {
		return nil, err
	}
	g.block.NewRet(constant.NewInt(types.I32, 0))
	return g.module, nil
}

func (g *LLVM) statement(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Program:
		for _, stmt := range n.Statements {
			if err := g.statement(stmt); err != nil {
				return err
			}
		}

	case *ast.LetDeclaration:
		v, err := g.expression(n.Value)
		if err != nil {
			return err
		}
		slot, ok := g.slots[n.Name]
		if !ok {
			slot = g.block.NewAlloca(types.Double)
			// Identifiers cannot contain '.', so slots never clash with
			// block labels or temporaries.
			slot.SetName(n.Name + ".addr")
			g.slots[n.Name] = slot
		}
		g.block.NewStore(v, slot)

	case *ast.Print:
		v, err := g.expression(n.Value)
		if err != nil {
			return err
		}
		g.block.NewCall(g.printf, g.format, v)

	case *ast.Assignment, *ast.Increment, *ast.Decrement,
		*ast.BinaryOp, *ast.Number, *ast.Identifier:
		if _, err := g.expression(n); err != nil {
			return err
		}

	default:
		return unsupported("statement", node)
	}
	return nil
}

func (g *LLVM) expression(node ast.Node) (llvalue.Value, error) {
	switch n := node.(type) {
	case *ast.Number:
		return constant.NewFloat(types.Double, n.Value), nil

	case *ast.Identifier:
		slot, err := g.slot(n.Name)
		if err != nil {
			return nil, err
		}
		return g.block.NewLoad(types.Double, slot), nil

	case *ast.BinaryOp:
		left, err := g.expression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := g.expression(n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case ast.Plus:
			return g.block.NewFAdd(left, right), nil
		case ast.Minus:
			return g.block.NewFSub(left, right), nil
		case ast.Multiply:
			return g.block.NewFMul(left, right), nil
		case ast.Divide:
			return g.block.NewFDiv(left, right), nil
		}
		return nil, fmt.Errorf("%w: operator %v", ErrUnsupportedNode, n.Op)

	case *ast.Assignment:
		slot, err := g.slot(n.Name)
		if err != nil {
			return nil, err
		}
		v, err := g.expression(n.Value)
		if err != nil {
			return nil, err
		}
		g.block.NewStore(v, slot)
		return v, nil

	case *ast.Increment:
		return g.step(n.Name, 1)

	case *ast.Decrement:
		return g.step(n.Name, -1)
	}
	return nil, unsupported("expression", node)
}

// step adds delta to a variable and yields the previous value, like C's
// postfix operators.
func (g *LLVM) step(name string, delta float64) (llvalue.Value, error) {
	slot, err := g.slot(name)
	if err != nil {
		return nil, err
	}
	old := g.block.NewLoad(types.Double, slot)
	g.block.NewStore(g.block.NewFAdd(old, constant.NewFloat(types.Double, delta)), slot)
	return old, nil
}

func (g *LLVM) slot(name string) (*ir.InstAlloca, error) {
	slot, ok := g.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUndeclared, name)
	}
	return slot, nil
}
