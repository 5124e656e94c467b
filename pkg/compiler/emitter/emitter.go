// Package emitter lowers a program to bytecode for the in-process VM. The
// bytecode mirrors the C lowering statement for statement, so running it is
// a faithful stand-in for compiling and running the C output.
package emitter

import (
	"errors"
	"fmt"
	"math"

	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/stdlib"
	"github.com/agenthands/osho/pkg/vm"
)

var (
	ErrUndeclared      = errors.New("emitter: undeclared variable")
	ErrUnsupportedNode = errors.New("emitter: unsupported node")
	ErrTooLarge        = errors.New("emitter: operand exceeds instruction range")
	ErrTooDeep         = errors.New("emitter: expression too deeply nested")
)

type Emitter struct {
	instructions []uint32
	constants    []float64
	locals       map[string]int
	names        []string
	syscalls     map[string]int
	syscallNames []string

	depth    int // operand stack height after the last emitted op
	maxDepth int
}

func NewEmitter() *Emitter {
	return &Emitter{
		locals:   make(map[string]int),
		syscalls: make(map[string]int),
	}
}

// Emit lowers prog. The emitter must not be reused afterwards.
func (e *Emitter) Emit(prog *ast.Program) (*vm.Bytecode, error) {
	if err := e.emitStatement(prog); err != nil {
		return nil, err
	}

	e.emitOp(vm.OP_HALT, 0)

	if len(e.constants) > vm.MaxArg || len(e.names) > vm.MaxArg {
		return nil, ErrTooLarge
	}
	if e.maxDepth > vm.StackDepth {
		return nil, fmt.Errorf("%w: needs %d stack slots, the machine has %d", ErrTooDeep, e.maxDepth, vm.StackDepth)
	}

	return &vm.Bytecode{
		Instructions: e.instructions,
		Constants:    e.constants,
		Locals:       e.names,
		Syscalls:     e.syscallNames,
	}, nil
}

func (e *Emitter) emitStatement(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Program:
		for _, stmt := range n.Statements {
			if err := e.emitStatement(stmt); err != nil {
				return err
			}
		}

	case *ast.LetDeclaration:
		if err := e.emitExpression(n.Value); err != nil {
			return err
		}
		idx, ok := e.locals[n.Name]
		if !ok {
			idx = len(e.names)
			e.locals[n.Name] = idx
			e.names = append(e.names, n.Name)
		}
		e.emitOp(vm.OP_POP_L, uint32(idx))

	case *ast.Assignment:
		idx, err := e.local(n.Name)
		if err != nil {
			return err
		}
		if err := e.emitExpression(n.Value); err != nil {
			return err
		}
		e.emitOp(vm.OP_POP_L, uint32(idx))

	case *ast.Increment:
		idx, err := e.local(n.Name)
		if err != nil {
			return err
		}
		e.emitOp(vm.OP_INC_L, uint32(idx))

	case *ast.Decrement:
		idx, err := e.local(n.Name)
		if err != nil {
			return err
		}
		e.emitOp(vm.OP_DEC_L, uint32(idx))

	case *ast.Print:
		if err := e.emitExpression(n.Value); err != nil {
			return err
		}
		e.emitOp(vm.OP_SYSCALL, uint32(e.syscall(stdlib.PrintName)))

	case *ast.BinaryOp, *ast.Number, *ast.Identifier:
		if err := e.emitExpression(n); err != nil {
			return err
		}
		e.emitOp(vm.OP_DROP, 0)

	default:
		return fmt.Errorf("%w: %T in statement position", ErrUnsupportedNode, node)
	}
	return nil
}

func (e *Emitter) emitExpression(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Number:
		e.emitOp(vm.OP_PUSH_C, uint32(e.addConstant(n.Value)))

	case *ast.Identifier:
		idx, err := e.local(n.Name)
		if err != nil {
			return err
		}
		e.emitOp(vm.OP_PUSH_L, uint32(idx))

	case *ast.BinaryOp:
		if err := e.emitExpression(n.Left); err != nil {
			return err
		}
		if err := e.emitExpression(n.Right); err != nil {
			return err
		}
		switch n.Op {
		case ast.Plus:
			e.emitOp(vm.OP_ADD, 0)
		case ast.Minus:
			e.emitOp(vm.OP_SUB, 0)
		case ast.Multiply:
			e.emitOp(vm.OP_MUL, 0)
		case ast.Divide:
			e.emitOp(vm.OP_DIV, 0)
		default:
			return fmt.Errorf("%w: operator %v", ErrUnsupportedNode, n.Op)
		}

	case *ast.Assignment:
		idx, err := e.local(n.Name)
		if err != nil {
			return err
		}
		if err := e.emitExpression(n.Value); err != nil {
			return err
		}
		e.emitOp(vm.OP_DUP, 0)
		e.emitOp(vm.OP_POP_L, uint32(idx))

	case *ast.Increment:
		return e.emitPostfix(n.Name, vm.OP_INC_L)

	case *ast.Decrement:
		return e.emitPostfix(n.Name, vm.OP_DEC_L)

	default:
		return fmt.Errorf("%w: %T in expression position", ErrUnsupportedNode, node)
	}
	return nil
}

// emitPostfix leaves the value before the update on the stack.
func (e *Emitter) emitPostfix(name string, op uint8) error {
	idx, err := e.local(name)
	if err != nil {
		return err
	}
	e.emitOp(vm.OP_PUSH_L, uint32(idx))
	e.emitOp(op, uint32(idx))
	return nil
}

func (e *Emitter) local(name string) (int, error) {
	idx, ok := e.locals[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUndeclared, name)
	}
	return idx, nil
}

func (e *Emitter) syscall(name string) int {
	if idx, ok := e.syscalls[name]; ok {
		return idx
	}
	idx := len(e.syscallNames)
	e.syscalls[name] = idx
	e.syscallNames = append(e.syscallNames, name)
	return idx
}

func (e *Emitter) emitOp(op uint8, arg uint32) {
	e.instructions = append(e.instructions, vm.Encode(op, arg))
	e.depth += stackEffect(op)
	e.maxDepth = max(e.maxDepth, e.depth)
}

// stackEffect is the net change in operand stack height caused by op. The
// only host function, print, consumes one value.
func stackEffect(op uint8) int {
	switch op {
	case vm.OP_PUSH_C, vm.OP_PUSH_L, vm.OP_DUP:
		return 1
	case vm.OP_POP_L, vm.OP_DROP, vm.OP_SYSCALL,
		vm.OP_ADD, vm.OP_SUB, vm.OP_MUL, vm.OP_DIV:
		return -1
	}
	return 0
}

// addConstant dedups by bit pattern so 0 and -0 stay distinct.
func (e *Emitter) addConstant(v float64) int {
	bits := math.Float64bits(v)
	for i, c := range e.constants {
		if math.Float64bits(c) == bits {
			return i
		}
	}
	e.constants = append(e.constants, v)
	return len(e.constants) - 1
}
