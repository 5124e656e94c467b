// Package driver wires the compiler stages together and talks to the
// outside world: project config, artifact files and the native toolchain.
package driver

import (
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/agenthands/osho/pkg/compiler/analyzer"
	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/compiler/codegen"
	"github.com/agenthands/osho/pkg/compiler/diag"
	"github.com/agenthands/osho/pkg/compiler/emitter"
	"github.com/agenthands/osho/pkg/compiler/parser"
	"github.com/agenthands/osho/pkg/stdlib"
	"github.com/agenthands/osho/pkg/vm"
)

// Pipeline runs source text through the front end.
type Pipeline struct {
	Config   *Config
	Reporter diag.Reporter // receives lexer warnings; nil discards
	Logger   *log.Logger   // nil discards
}

// NewPipeline returns a pipeline over cfg, or over defaults when cfg is nil.
func NewPipeline(cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{Config: cfg}
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return p.Logger
}

// Parse lexes and parses src.
func (p *Pipeline) Parse(src []byte) (*ast.Program, error) {
	prog, err := parser.ParseSource(src, p.Reporter)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	return prog, nil
}

// Check parses and analyzes src without printing anything.
func (p *Pipeline) Check(src []byte) (*ast.Program, error) {
	return p.analyze(src, io.Discard)
}

// Run parses src and executes it with the analyzer, printing to w.
func (p *Pipeline) Run(src []byte, w io.Writer) error {
	_, err := p.analyze(src, w)
	return err
}

func (p *Pipeline) analyze(src []byte, w io.Writer) (*ast.Program, error) {
	prog, err := p.Parse(src)
	if err != nil {
		return nil, err
	}
	if err := p.Interpret(prog, w); err != nil {
		return nil, err
	}
	return prog, nil
}

// Interpret analyzes an already parsed program, printing to w.
func (p *Pipeline) Interpret(prog *ast.Program, w io.Writer) error {
	a := analyzer.New(analyzer.WithOutput(w), analyzer.WithLogger(p.Logger))
	return errors.Wrap(a.Analyze(prog), "analyze")
}

// Emit checks src and lowers it for target (c, llvm or bytecode). The
// bytecode target yields a disassembly listing.
func (p *Pipeline) Emit(src []byte, target string) (string, error) {
	prog, err := p.Check(src)
	if err != nil {
		return "", err
	}
	return p.Lower(prog, target)
}

// Lower generates target text for an already checked program.
func (p *Pipeline) Lower(prog *ast.Program, target string) (string, error) {
	if target == TargetBytecode {
		bc, err := emitter.NewEmitter().Emit(prog)
		if err != nil {
			return "", errors.Wrap(err, "emit")
		}
		return bc.Disassemble(), nil
	}

	backend, err := codegen.ForTarget(target)
	if err != nil {
		return "", err
	}
	out, err := backend.Generate(prog)
	if err != nil {
		return "", errors.Wrapf(err, "generate %s", target)
	}
	p.logger().Printf("generated %d bytes of %s", len(out), backend.Name())
	return out, nil
}

// Compile checks src and lowers it to bytecode.
func (p *Pipeline) Compile(src []byte) (*vm.Bytecode, error) {
	prog, err := p.Check(src)
	if err != nil {
		return nil, err
	}
	bc, err := emitter.NewEmitter().Emit(prog)
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}
	return bc, nil
}

// RunVM compiles src to bytecode and executes it on a pooled machine.
// Output uses the native program's format.
func (p *Pipeline) RunVM(src []byte, w io.Writer) error {
	bc, err := p.Compile(src)
	if err != nil {
		return err
	}
	return p.Exec(bc, stdlib.Print(w))
}

// Exec runs bc with print bound to the given host function.
func (p *Pipeline) Exec(bc *vm.Bytecode, printFn vm.HostFunction) error {
	m := vm.GetMachine()
	defer vm.PutMachine(m)

	stdlib.Register(m, printFn)
	if err := m.Load(bc); err != nil {
		return errors.Wrap(err, "load")
	}
	if err := m.Run(p.Config.Gas); err != nil {
		return errors.WithStack(err)
	}
	p.logger().Printf("vm finished %d-instruction program", len(bc.Instructions))
	return nil
}
