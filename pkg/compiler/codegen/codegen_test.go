package codegen_test

import (
	"bytes"
	"errors"
	"math"
	"os/exec"
	"regexp"
	"strings"
	"testing"

	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/compiler/codegen"
	"github.com/agenthands/osho/pkg/compiler/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.ParseSource([]byte(src), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return prog
}

func TestCExactOutput(t *testing.T) {
	prog := parse(t, "let x = 2\nlet y = 3\nprint (x + y)")
	got, err := codegen.NewC().Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := "#include <stdio.h>\n\nint main() {\n" +
		"double x = 2.0;\n" +
		"double y = 3.0;\n" +
		"printf(\"%f\\n\", (x + y));\n" +
		"\nreturn 0;\n}"
	if got != want {
		t.Errorf("Generate()\n got %q\nwant %q", got, want)
	}
}

func TestCStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		body string
	}{
		{"Empty", "", ""},
		{"Increment", "let x = 5\nx++", "double x = 5.0;\nx++;\n"},
		{"Decrement", "let x = 5\nx--", "double x = 5.0;\nx--;\n"},
		{"Assignment", "x = x / 2", "x = (x / 2.0);\n"},
		{"Fraction Literal", "let r = 0.25", "double r = 0.25;\n"},
		{"Flat Precedence", "print 2 + 3 * 4", "printf(\"%f\\n\", ((2.0 + 3.0) * 4.0));\n"},
		{"Bare Expression", "1 - y", "(1.0 - y);\n"},
		{"Print Then Assign", "print x = 5", "printf(\"%f\\n\", x);\nx = 5.0;\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codegen.NewC().Generate(parse(t, tt.src))
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			want := "#include <stdio.h>\n\nint main() {\n" + tt.body + "\nreturn 0;\n}"
			if got != want {
				t.Errorf("Generate()\n got %q\nwant %q", got, want)
			}
		})
	}
}

func TestCExpressionForms(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Node{
		&ast.Print{Value: &ast.Assignment{Name: "a", Value: &ast.Number{Value: 1}}},
		&ast.Print{Value: &ast.BinaryOp{
			Left:  &ast.Increment{Name: "a"},
			Op:    ast.Plus,
			Right: &ast.Decrement{Name: "b"},
		}},
		&ast.Print{Value: &ast.Number{Value: math.Inf(1)}},
	}}
	got, err := codegen.NewC().Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, want := range []string{
		`printf("%f\n", (a = 1.0));`,
		`printf("%f\n", (a++ + b--));`,
		`printf("%f\n", (1.0 / 0.0));`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}
}

func TestCRejectsMisplacedNodes(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
	}{
		{"Let As Value", &ast.Program{Statements: []ast.Node{
			&ast.Print{Value: &ast.LetDeclaration{Name: "x", Value: &ast.Number{Value: 1}}},
		}}},
		{"Print As Value", &ast.Program{Statements: []ast.Node{
			&ast.Assignment{Name: "x", Value: &ast.Print{Value: &ast.Number{Value: 1}}},
		}}},
		{"Nil Statement", &ast.Program{Statements: []ast.Node{nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codegen.NewC().Generate(tt.prog)
			if !errors.Is(err, codegen.ErrUnsupportedNode) {
				t.Errorf("expected ErrUnsupportedNode, got %v", err)
			}
		})
	}
}

func TestCGeneratorIsReusable(t *testing.T) {
	g := codegen.NewC()
	first, _ := g.Generate(parse(t, "let a = 1"))
	second, _ := g.Generate(parse(t, "let a = 1"))
	if first != second {
		t.Errorf("second run differs:\n%s\n%s", first, second)
	}
}

func TestLLVMModule(t *testing.T) {
	prog := parse(t, "let x = 2\nlet y = 3\nx++\ny = x * y\nprint (x + y) / 2")
	got, err := codegen.NewLLVM().Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, want := range []string{
		"@.fmt = constant [4 x i8] c\"%f\\0A\\00\"",
		"declare i32 @printf(i8* %format, ...)",
		"define i32 @main()",
		"%x.addr = alloca double",
		"%y.addr = alloca double",
		"fadd double",
		"fmul double",
		"fdiv double",
		"@printf(",
		"ret i32 0",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}
}

var localDef = regexp.MustCompile(`^(?:([-\w$.]+):|\s*%([-\w$.]+) =)`)

// localNames lists every block label and named value defined in ir.
func localNames(ir string) []string {
	var names []string
	for _, line := range strings.Split(ir, "\n") {
		if m := localDef.FindStringSubmatch(line); m != nil {
			names = append(names, m[1]+m[2])
		}
	}
	return names
}

func TestLLVMLocalNamesAreUnique(t *testing.T) {
	src := "let entry = 1\nlet x = entry\nentry++\nprint entry + x"
	got, err := codegen.NewLLVM().Generate(parse(t, src))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, name := range localNames(got) {
		if seen[name] {
			t.Errorf("%q defined twice in\n%s", name, got)
		}
		seen[name] = true
	}
	if !seen["entry"] || !seen["entry.addr"] {
		t.Errorf("expected block label and slot, got %v in\n%s", localNames(got), got)
	}
}

func TestLLVMRunsUnderLLI(t *testing.T) {
	lli, err := exec.LookPath("lli")
	if err != nil {
		t.Skip("lli not on PATH")
	}

	tests := []struct {
		src  string
		want string
	}{
		{"let x = 2\nlet y = 3\nprint (x + y)", "5.000000\n"},
		{"let entry = 1\nentry++\nprint entry\nprint entry * 2", "2.000000\n4.000000\n"},
		{"let a = 1\nprint a++\nprint a\na = a * 10\nprint a--\nprint a", "1.000000\n2.000000\n20.000000\n19.000000\n"},
	}
	for _, tt := range tests {
		ir, err := codegen.NewLLVM().Generate(parse(t, tt.src))
		if err != nil {
			t.Fatalf("%q: Generate() error = %v", tt.src, err)
		}

		cmd := exec.Command(lli, "-")
		cmd.Stdin = strings.NewReader(ir)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			t.Fatalf("%q: lli failed: %v\n%s\n%s", tt.src, err, stderr.String(), ir)
		}
		if stdout.String() != tt.want {
			t.Errorf("%q: output = %q, want %q", tt.src, stdout.String(), tt.want)
		}
	}
}

func TestLLVMUndeclared(t *testing.T) {
	_, err := codegen.NewLLVM().Generate(parse(t, "print z"))
	if !errors.Is(err, codegen.ErrUndeclared) {
		t.Fatalf("expected ErrUndeclared, got %v", err)
	}
}

func TestForTarget(t *testing.T) {
	for _, name := range codegen.Targets() {
		b, err := codegen.ForTarget(name)
		if err != nil {
			t.Fatalf("ForTarget(%q) error = %v", name, err)
		}
		if b.Name() != name {
			t.Errorf("ForTarget(%q).Name() = %q", name, b.Name())
		}
	}
	if _, err := codegen.ForTarget("wasm"); !errors.Is(err, codegen.ErrUnknownTarget) {
		t.Errorf("expected ErrUnknownTarget, got %v", err)
	}
}
