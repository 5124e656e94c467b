package emitter_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/compiler/emitter"
	"github.com/agenthands/osho/pkg/compiler/parser"
	"github.com/agenthands/osho/pkg/stdlib"
	"github.com/agenthands/osho/pkg/vm"
)

func emit(t *testing.T, src string) *vm.Bytecode {
	t.Helper()
	prog, err := parser.ParseSource([]byte(src), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	bc, err := emitter.NewEmitter().Emit(prog)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	return bc
}

func TestEmitterBasic(t *testing.T) {
	bc := emit(t, "let result = 1 + 2\nprint result")

	expectedOps := []uint8{
		vm.OP_PUSH_C,
		vm.OP_PUSH_C,
		vm.OP_ADD,
		vm.OP_POP_L,
		vm.OP_PUSH_L,
		vm.OP_SYSCALL,
		vm.OP_HALT,
	}

	if len(bc.Instructions) != len(expectedOps) {
		t.Fatalf("expected %d instructions, got %d", len(expectedOps), len(bc.Instructions))
	}

	for i, op := range expectedOps {
		gotOp, _ := vm.Decode(bc.Instructions[i])
		if gotOp != op {
			t.Errorf("instr %d: expected op %s, got %s", i, vm.OpName(op), vm.OpName(gotOp))
		}
	}

	if len(bc.Locals) != 1 || bc.Locals[0] != "result" {
		t.Errorf("unexpected locals %v", bc.Locals)
	}
	if len(bc.Syscalls) != 1 || bc.Syscalls[0] != stdlib.PrintName {
		t.Errorf("unexpected syscalls %v", bc.Syscalls)
	}
}

func TestEmitterDedupsConstants(t *testing.T) {
	bc := emit(t, "let a = 1\nlet b = 1\nlet c = 2\nlet d = 0 * (0 - 1)")
	// 1, 2, 0
	if len(bc.Constants) != 3 {
		t.Errorf("expected 3 constants, got %v", bc.Constants)
	}
}

func run(t *testing.T, src string) string {
	t.Helper()
	bc := emit(t, src)
	var out bytes.Buffer
	m := vm.GetMachine()
	defer vm.PutMachine(m)
	stdlib.Register(m, stdlib.Print(&out))
	if err := m.Load(bc); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(10000); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestEmittedPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Sum", "let x = 2\nlet y = 3\nprint (x + y)", "5.000000\n"},
		{"Increment", "let x = 5\nx++\nprint x", "6.000000\n"},
		{"Decrement", "let x = 5\nx--\nprint x", "4.000000\n"},
		{"Flat Precedence", "print 2 + 3 * 4", "20.000000\n"},
		{"Assignment", "let x = 1\nx = x / 4\nprint x", "0.250000\n"},
		{"Bare Expression Is Dropped", "let x = 1\nx + 1\nprint x", "1.000000\n"},
		{"Print Then Increment", "let x = 1\nprint x++\nprint x", "1.000000\n2.000000\n"},
		{"Division By Zero", "print 1 / 0", "inf\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(t, tt.src); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpressionForms(t *testing.T) {
	// print (a = 3); print a++ + b--; print a; print b
	prog := &ast.Program{Statements: []ast.Node{
		&ast.LetDeclaration{Name: "a", Value: &ast.Number{Value: 0}},
		&ast.LetDeclaration{Name: "b", Value: &ast.Number{Value: 10}},
		&ast.Print{Value: &ast.Assignment{Name: "a", Value: &ast.Number{Value: 3}}},
		&ast.Print{Value: &ast.BinaryOp{
			Left:  &ast.Increment{Name: "a"},
			Op:    ast.Plus,
			Right: &ast.Decrement{Name: "b"},
		}},
		&ast.Print{Value: &ast.Identifier{Name: "a"}},
		&ast.Print{Value: &ast.Identifier{Name: "b"}},
	}}

	bc, err := emitter.NewEmitter().Emit(prog)
	if err != nil {
		t.Fatal(err)
	}

	var rec stdlib.Recorder
	m := &vm.Machine{}
	stdlib.Register(m, rec.Print)
	if err := m.Load(bc); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(1000); err != nil {
		t.Fatal(err)
	}

	want := []float64{3, 13, 4, 9}
	if len(rec.Values) != len(want) {
		t.Fatalf("recorded %v, want %v", rec.Values, want)
	}
	for i := range want {
		if rec.Values[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, rec.Values[i], want[i])
		}
	}
	if m.SP != 0 {
		t.Errorf("stack not balanced, SP=%d", m.SP)
	}
}

func TestEmitterErrors(t *testing.T) {
	tests := []struct {
		name    string
		prog    *ast.Program
		wantErr error
	}{
		{
			name:    "Undeclared Read",
			prog:    &ast.Program{Statements: []ast.Node{&ast.Print{Value: &ast.Identifier{Name: "y"}}}},
			wantErr: emitter.ErrUndeclared,
		},
		{
			name:    "Undeclared Increment",
			prog:    &ast.Program{Statements: []ast.Node{&ast.Increment{Name: "y"}}},
			wantErr: emitter.ErrUndeclared,
		},
		{
			name: "Let As Value",
			prog: &ast.Program{Statements: []ast.Node{
				&ast.Print{Value: &ast.LetDeclaration{Name: "x", Value: &ast.Number{Value: 1}}},
			}},
			wantErr: emitter.ErrUnsupportedNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := emitter.NewEmitter().Emit(tt.prog)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Emit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func nested(n int) string {
	return "print " + strings.Repeat("(1 + ", n) + "1" + strings.Repeat(")", n)
}

func TestEmitterStackDepth(t *testing.T) {
	// n nested additions keep n+1 operands on the stack at once.
	deepest := vm.StackDepth - 1
	if got, want := run(t, nested(deepest)), fmt.Sprintf("%d.000000\n", deepest+1); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	prog, err := parser.ParseSource([]byte(nested(deepest+1)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := emitter.NewEmitter().Emit(prog); !errors.Is(err, emitter.ErrTooDeep) {
		t.Errorf("Emit() error = %v, want %v", err, emitter.ErrTooDeep)
	}
}
