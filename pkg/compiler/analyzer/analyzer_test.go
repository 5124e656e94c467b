package analyzer_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/agenthands/osho/pkg/compiler/analyzer"
	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/compiler/parser"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	prog, err := parser.ParseSource([]byte(src), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var out bytes.Buffer
	err = analyzer.New(analyzer.WithOutput(&out)).Analyze(prog)
	return out.String(), err
}

func TestAnalyzeOutput(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Sum Of Declarations", "let x = 2\nlet y = 3\nprint (x + y)", "5\n"},
		{"Increment", "let x = 5\nx++\nprint x", "6\n"},
		{"Decrement", "let x = 5\nx--\nx--\nprint x", "3\n"},
		{"Flat Precedence", "print 2 + 3 * 4", "20\n"},
		{"Parentheses", "print 2 + (3 * 4)", "14\n"},
		{"Assignment", "let x = 1\nx = x * 10\nprint x", "10\n"},
		{"Fraction", "print 1 / 4", "0.25\n"},
		{"Float Noise", "print 0.1 + 0.2", "0.30000000000000004\n"},
		{"Negative Zero", "print (0 - 0) * (0 - 1)", "-0\n"},
		{"Division By Zero", "print 1 / 0", "inf\n"},
		{"Negative Infinity", "print (0 - 1) / 0", "-inf\n"},
		{"Not A Number", "print 0 / 0", "NaN\n"},
		{"Overflowing Literal", "print " + strings.Repeat("9", 400), "inf\n"},
		{"Print Then Increment", "let x = 1\nprint x++\nprint x", "1\n2\n"},
		{"Const Declares", "const k = 7\nprint k", "7\n"},
		{"Empty Program", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.src)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		sentinel error
		wantMsg  string
		wantOut  string
	}{
		{
			name:     "Undeclared In Print",
			src:      "let x = 1\nprint y",
			sentinel: analyzer.ErrNotDeclared,
			wantMsg:  "Variable 'y' is not declared",
		},
		{
			name:     "Redeclaration",
			src:      "let x = 1\nlet x = 2",
			sentinel: analyzer.ErrAlreadyDeclared,
			wantMsg:  "Variable 'x' is already declared",
		},
		{
			name:     "Assign Undeclared",
			src:      "z = 1",
			sentinel: analyzer.ErrNotDeclared,
			wantMsg:  "Variable 'z' is not declared",
		},
		{
			name:     "Increment Undeclared",
			src:      "n++",
			sentinel: analyzer.ErrNotDeclared,
			wantMsg:  "Variable 'n' is not declared",
		},
		{
			name:     "Self Reference In Declaration",
			src:      "let x = x + 1",
			sentinel: analyzer.ErrNotDeclared,
			wantMsg:  "Variable 'x' is not declared",
		},
		{
			name:     "Error Stops Later Prints",
			src:      "let a = 1\nprint a\nprint b\nprint a",
			sentinel: analyzer.ErrNotDeclared,
			wantMsg:  "Variable 'b' is not declared",
			wantOut:  "1\n",
		},
		{
			name:     "Bare Expression Statement",
			src:      "1 + 2",
			sentinel: analyzer.ErrUnexpectedNode,
			wantMsg:  "Unexpected AST node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.src)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
			if out != tt.wantOut {
				t.Errorf("output = %q, want %q", out, tt.wantOut)
			}
		})
	}
}

func TestUnexpectedNodes(t *testing.T) {
	a := analyzer.New(analyzer.WithOutput(nil))

	err := a.Analyze(&ast.Identifier{Name: "x"})
	var aerr *analyzer.Error
	if !errors.As(err, &aerr) || aerr.Kind != analyzer.KindUnexpectedNode {
		t.Fatalf("expected unexpected node error, got %v", err)
	}

	err = a.Analyze(&ast.Print{Value: &ast.Increment{Name: "x"}})
	if !errors.Is(err, analyzer.ErrUnexpectedNode) || err.Error() != "Unexpected expression node" {
		t.Fatalf("expected unexpected expression error, got %v", err)
	}
}

func TestAnalyzerReuseStartsFresh(t *testing.T) {
	prog, err := parser.ParseSource([]byte("let x = 1\nx++\nprint x"), nil)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	a := analyzer.New(analyzer.WithOutput(&out))
	for range 2 {
		if err := a.Analyze(prog); err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
	}
	if out.String() != "2\n2\n" {
		t.Errorf("output = %q", out.String())
	}

	// Single statements continue from the last program's table.
	if err := a.Analyze(&ast.Increment{Name: "x"}); err != nil {
		t.Fatalf("Analyze(increment) error = %v", err)
	}
	if a.Symbols()["x"] != 3 {
		t.Errorf("x = %v, want 3", a.Symbols()["x"])
	}
}

func TestSymbols(t *testing.T) {
	prog, err := parser.ParseSource([]byte("let x = 2\nlet y = x / 4\nx++"), nil)
	if err != nil {
		t.Fatal(err)
	}
	a := analyzer.New(analyzer.WithOutput(nil))
	if err := a.Analyze(prog); err != nil {
		t.Fatal(err)
	}

	syms := a.Symbols()
	if len(syms) != 2 || syms["x"] != 3 || syms["y"] != 0.5 {
		t.Errorf("unexpected symbols %v", syms)
	}

	// Snapshot is detached from the table.
	syms["x"] = 100
	if a.Symbols()["x"] != 3 {
		t.Errorf("snapshot must not alias the symbol table")
	}
}

func TestApply(t *testing.T) {
	got, err := analyzer.Apply(ast.Divide, -1, 0)
	if err != nil || !math.IsInf(got, -1) {
		t.Errorf("Apply(/, -1, 0) = %v, %v", got, err)
	}
	if _, err := analyzer.Apply(ast.BinaryOperator(99), 1, 1); err == nil {
		t.Errorf("expected error for unknown operator")
	}
}

func TestSymbolTable(t *testing.T) {
	s := analyzer.NewSymbolTable()
	if !s.Declare("a", 1) {
		t.Fatal("first declare must succeed")
	}
	if s.Declare("a", 2) {
		t.Fatal("second declare must fail")
	}
	if s.Set("b", 1) {
		t.Fatal("set of undeclared name must fail")
	}
	if !s.Set("a", 5) {
		t.Fatal("set of declared name must succeed")
	}
	if v, ok := s.Lookup("a"); !ok || v != 5 || s.Len() != 1 {
		t.Fatalf("lookup = %v, %v", v, ok)
	}
}
