package parser

import (
	"github.com/agenthands/osho/pkg/compiler/ast"
	"github.com/agenthands/osho/pkg/compiler/diag"
	"github.com/agenthands/osho/pkg/compiler/lexer"
)

// Error is a syntax error. Parsing stops at the first one.
type Error struct {
	Message string
	Span    diag.Span
}

func (e *Error) Error() string {
	return e.Message
}

// Parser is a recursive-descent parser over a filtered token slice.
//
// Binary operators share one precedence level and associate left to right,
// so "2 + 3 * 4" parses as ((2 + 3) * 4).
type Parser struct {
	tokens  []lexer.Token
	current int
}

// NewParser creates a parser over tokens as produced by lexer.Tokenize.
func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse builds a Program from tokens.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	return NewParser(tokens).Parse()
}

// ParseSource lexes src, reporting lexer warnings to r, and parses the result.
func ParseSource(src []byte, r diag.Reporter) (*ast.Program, error) {
	return Parse(lexer.Tokenize(src, r))
}

func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}
	for !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}
	return program, nil
}

func (p *Parser) declaration() (ast.Node, error) {
	if p.matchToken(lexer.KindLet) {
		return p.letDeclaration()
	}
	// A leading identifier is consumed here; '=', '++' and '--' in primary
	// pick it up as their target.
	p.matchToken(lexer.KindIdentifier)
	return p.statement()
}

func (p *Parser) letDeclaration() (ast.Node, error) {
	nameTok, err := p.consume(lexer.KindIdentifier, "Expected identifier after 'let'")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KindEqualsTo, "Expected '=' after let declaration"); err != nil {
		return nil, err
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	name, _ := nameTok.Name()
	return &ast.LetDeclaration{Name: name, Value: val}, nil
}

func (p *Parser) statement() (ast.Node, error) {
	if p.matchToken(lexer.KindPrint) {
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.Print{Value: val}, nil
	}
	return p.expressionStatement()
}

func (p *Parser) expressionStatement() (ast.Node, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}

	switch {
	case p.matchToken(lexer.KindIncrement):
		if id, ok := expr.(*ast.Identifier); ok {
			return &ast.Increment{Name: id.Name}, nil
		}
		return nil, p.errorAt(p.previous(), "Expected identifier before '++'")
	case p.matchToken(lexer.KindDecrement):
		if id, ok := expr.(*ast.Identifier); ok {
			return &ast.Decrement{Name: id.Name}, nil
		}
		return nil, p.errorAt(p.previous(), "Expected identifier before '--'")
	}
	return expr, nil
}

func (p *Parser) expression() (ast.Node, error) {
	node, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.matchOperator()
		if !ok {
			return node, nil
		}
		right, err := p.primary()
		if err != nil {
			return nil, err
		}
		node = &ast.BinaryOp{Left: node, Op: op, Right: right}
	}
}

func (p *Parser) matchOperator() (ast.BinaryOperator, bool) {
	switch {
	case p.matchToken(lexer.KindPlus):
		return ast.Plus, true
	case p.matchToken(lexer.KindMinus):
		return ast.Minus, true
	case p.matchToken(lexer.KindMultiply):
		return ast.Multiply, true
	case p.matchToken(lexer.KindDivide):
		return ast.Divide, true
	}
	return 0, false
}

func (p *Parser) primary() (ast.Node, error) {
	prev := p.previous()

	switch {
	case p.matchToken(lexer.KindNumber):
		num, ok := p.previous().Value.Float()
		if !ok {
			return nil, p.errorAt(p.previous(), "Expected number")
		}
		return &ast.Number{Value: num}, nil

	case p.matchToken(lexer.KindIdentifier):
		name, _ := p.previous().Name()
		return &ast.Identifier{Name: name}, nil

	case p.matchToken(lexer.KindEqualsTo):
		name, err := p.target(prev, "Expected identifier before '='")
		if err != nil {
			return nil, err
		}
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Name: name, Value: val}, nil

	case p.matchToken(lexer.KindOpenParen):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.KindCloseParen, "Expected ')' after expression"); err != nil {
			return nil, err
		}
		return expr, nil

	case p.matchToken(lexer.KindIncrement):
		name, err := p.target(prev, "Expected identifier before '++'")
		if err != nil {
			return nil, err
		}
		return &ast.Increment{Name: name}, nil

	case p.matchToken(lexer.KindDecrement):
		name, err := p.target(prev, "Expected identifier before '--'")
		if err != nil {
			return nil, err
		}
		return &ast.Decrement{Name: name}, nil
	}

	return nil, p.errorAt(p.peek(), "Expected expression")
}

// target extracts the variable name an '=', '++' or '--' applies to.
func (p *Parser) target(tok lexer.Token, msg string) (string, error) {
	if tok.Kind == lexer.KindIdentifier {
		if name, ok := tok.Name(); ok {
			return name, nil
		}
	}
	return "", p.errorAt(p.previous(), msg)
}

func (p *Parser) consume(kind lexer.Kind, msg string) (lexer.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAt(p.peek(), msg)
}

func (p *Parser) matchToken(kind lexer.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(kind lexer.Kind) bool {
	return !p.isAtEnd() && p.peek().Kind == kind
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == lexer.KindEOF
}

func (p *Parser) peek() lexer.Token {
	if p.current < len(p.tokens) {
		return p.tokens[p.current]
	}
	end := 0
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].End
	}
	return lexer.Token{Kind: lexer.KindEOF, Start: end, End: end}
}

// previous returns the last consumed token, or a zero token before the first.
func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return lexer.Token{}
	}
	return p.tokens[p.current-1]
}

func (p *Parser) errorAt(tok lexer.Token, msg string) *Error {
	return &Error{Message: msg, Span: tok.Span()}
}
