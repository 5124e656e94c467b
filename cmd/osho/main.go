package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"

	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/compiler/diag"
	"github.com/agenthands/osho/pkg/compiler/lexer"
	"github.com/agenthands/osho/pkg/compiler/parser"
	"github.com/agenthands/osho/pkg/driver"
)

const version = "0.1.0"

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usage = `Usage: osho [-config osho.yml] [-v] <command> [flags] <file.osho>

Commands:
  tokens   print the token stream
  ast      print the syntax tree (-pretty for a Go dump)
  check    parse and analyze without printing
  run      execute with the interpreter (-vm to run bytecode instead)
  emit     print lowered code (-target c|llvm|bytecode, -o file)
  build    compile with the C compiler and run, showing both outputs
  version  print the version
  help     show this message
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cli carries state shared by every command.
type cli struct {
	ctx    context.Context
	cfg    *driver.Config
	stdout io.Writer
	stderr io.Writer
	color  bool
	logger *log.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("osho", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "path to osho.yml")
	verbose := global.Bool("v", false, "log pipeline steps to stderr")
	if err := global.Parse(args); err != nil {
		return exitUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cfg, err := driver.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "osho: %v\n", err)
		return exitFail
	}

	c := &cli{
		ctx:    ctx,
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		color:  colorEnabled(cfg.Color, stderr),
	}
	if *verbose {
		c.logger = log.New(stderr, "osho: ", log.Lmsgprefix)
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "tokens":
		return c.tokens(cmdArgs)
	case "ast":
		return c.ast(cmdArgs)
	case "check":
		return c.check(cmdArgs)
	case "run":
		return c.run(cmdArgs)
	case "emit":
		return c.emit(cmdArgs)
	case "build":
		return c.build(cmdArgs)
	case "version":
		fmt.Fprintf(stdout, "osho %s\n", version)
		return exitOK
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "osho: unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}
}

func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case driver.ColorAlways:
		return true
	case driver.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// source parses the command's flags and reads the single input file. The
// file may come from the config when no argument is given.
func (c *cli) source(fs *flag.FlagSet, args []string) (string, []byte, int) {
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return "", nil, exitUsage
	}

	path := c.cfg.Source
	switch fs.NArg() {
	case 0:
	case 1:
		path = fs.Arg(0)
	default:
		fmt.Fprintf(c.stderr, "osho %s: expected one source file\n", fs.Name())
		return "", nil, exitUsage
	}
	if path == "" {
		fmt.Fprintf(c.stderr, "osho %s: no source file given\n", fs.Name())
		return "", nil, exitUsage
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "osho: %v\n", err)
		return "", nil, exitFail
	}
	return path, src, exitOK
}

func (c *cli) pipeline(path string, src []byte) *driver.Pipeline {
	p := driver.NewPipeline(c.cfg)
	p.Reporter = diag.Func(func(d diag.Diagnostic) {
		c.report(path, src, d.Span, d.Level, fmt.Sprintf("%s [%s]", d.Message, d.Code))
	})
	p.Logger = c.logger
	return p
}

// report prints "file:line:col: level: message", colored on terminals.
func (c *cli) report(path string, src []byte, span diag.Span, level diag.Level, msg string) {
	line, col := lexer.Position(src, span.Start)
	label := level.String()
	if c.color {
		switch level {
		case diag.LevelError:
			label = "\x1b[1;31m" + label + "\x1b[0m"
		default:
			label = "\x1b[1;33m" + label + "\x1b[0m"
		}
	}
	fmt.Fprintf(c.stderr, "%s:%d:%d: %s: %s\n", path, line, col, label, msg)
}

// fail prints err and returns the failure exit code. Syntax errors carry a
// source position.
func (c *cli) fail(path string, src []byte, err error) int {
	var perr *parser.Error
	if errors.As(err, &perr) {
		c.report(path, src, perr.Span, diag.LevelError, perr.Message)
		return exitFail
	}
	label := "error"
	if c.color {
		label = "\x1b[1;31merror\x1b[0m"
	}
	fmt.Fprintf(c.stderr, "%s: %s: %v\n", path, label, err)
	return exitFail
}

func (c *cli) tokens(args []string) int {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	path, src, code := c.source(fs, args)
	if code != exitOK {
		return code
	}

	reporter := c.pipeline(path, src).Reporter
	for _, tok := range lexer.Tokenize(src, reporter) {
		line, col := lexer.Position(src, tok.Start)
		fmt.Fprintf(c.stdout, "%d:%d\t%-10s\t%q\n", line, col, tok.Kind, tok.Text(src))
	}
	return exitOK
}

func (c *cli) ast(args []string) int {
	fs := flag.NewFlagSet("ast", flag.ContinueOnError)
	dump := fs.Bool("pretty", false, "dump Go values instead of an S-expression")
	path, src, code := c.source(fs, args)
	if code != exitOK {
		return code
	}

	prog, err := c.pipeline(path, src).Parse(src)
	if err != nil {
		return c.fail(path, src, err)
	}
	if *dump {
		pretty.Fprintf(c.stdout, "%# v\n", prog)
	} else {
		fmt.Fprintln(c.stdout, ast.Format(prog))
	}
	return exitOK
}

func (c *cli) check(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	path, src, code := c.source(fs, args)
	if code != exitOK {
		return code
	}

	if _, err := c.pipeline(path, src).Check(src); err != nil {
		return c.fail(path, src, err)
	}
	return exitOK
}

func (c *cli) run(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	useVM := fs.Bool("vm", false, "execute compiled bytecode instead of interpreting")
	gas := fs.Int("gas", c.cfg.Gas, "maximum VM instruction count")
	path, src, code := c.source(fs, args)
	if code != exitOK {
		return code
	}

	c.cfg.Gas = *gas
	p := c.pipeline(path, src)
	var err error
	if *useVM {
		err = p.RunVM(src, c.stdout)
	} else {
		err = p.Run(src, c.stdout)
	}
	if err != nil {
		return c.fail(path, src, err)
	}
	return exitOK
}

func (c *cli) emit(args []string) int {
	fs := flag.NewFlagSet("emit", flag.ContinueOnError)
	target := fs.String("target", c.cfg.Target, "output target: c, llvm or bytecode")
	outPath := fs.String("o", "", "write to file instead of stdout")
	path, src, code := c.source(fs, args)
	if code != exitOK {
		return code
	}

	out, err := c.pipeline(path, src).Emit(src, *target)
	if err != nil {
		return c.fail(path, src, err)
	}

	if *outPath == "" {
		fmt.Fprintln(c.stdout, out)
		return exitOK
	}
	if err := os.WriteFile(*outPath, []byte(out+"\n"), 0o644); err != nil {
		fmt.Fprintf(c.stderr, "osho: %v\n", err)
		return exitFail
	}
	return exitOK
}

func (c *cli) build(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	keep := fs.Bool("keep", false, "keep the generated work directory")
	path, src, code := c.source(fs, args)
	if code != exitOK {
		return code
	}

	p := c.pipeline(path, src)
	prog, err := p.Parse(src)
	if err != nil {
		return c.fail(path, src, err)
	}
	fmt.Fprintln(c.stdout, "Interpreter output:")
	if err := p.Interpret(prog, c.stdout); err != nil {
		return c.fail(path, src, err)
	}

	b := driver.NewBuilder(c.cfg)
	b.Logger = c.logger
	if err := b.Available(); err != nil {
		return c.fail(path, src, err)
	}
	art, err := b.Build(c.ctx, prog)
	if art != nil && !*keep {
		defer b.Clean(art)
	}
	if err != nil {
		return c.fail(path, src, err)
	}

	out, err := b.Exec(c.ctx, art)
	if err != nil {
		return c.fail(path, src, err)
	}
	fmt.Fprintf(c.stdout, "\nExecutable output:\n%s", out)
	if *keep {
		fmt.Fprintf(c.stderr, "osho: kept %s\n", art.Dir)
	}
	return exitOK
}
