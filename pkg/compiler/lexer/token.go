package lexer

import (
	"fmt"

	"github.com/agenthands/osho/pkg/compiler/diag"
	"github.com/agenthands/osho/pkg/core/value"
)

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindEOF Kind = iota
	KindWhitespace
	KindPlus      // +
	KindIncrement // ++
	KindMinus     // -
	KindDecrement // --
	KindMultiply  // *
	KindDivide    // /
	KindEqualsTo  // =
	KindIdentifier
	KindNumber
	KindString
	KindPrint
	KindOpenParen  // (
	KindCloseParen // )
	KindLet        // let, const
)

var kindNames = [...]string{
	KindEOF:        "EOF",
	KindWhitespace: "Whitespace",
	KindPlus:       "'+'",
	KindIncrement:  "'++'",
	KindMinus:      "'-'",
	KindDecrement:  "'--'",
	KindMultiply:   "'*'",
	KindDivide:     "'/'",
	KindEqualsTo:   "'='",
	KindIdentifier: "Identifier",
	KindNumber:     "Number",
	KindString:     "String",
	KindPrint:      "print",
	KindOpenParen:  "'('",
	KindCloseParen: "')'",
	KindLet:        "let",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// keywords maps reserved words to their token kinds.
var keywords = map[string]Kind{
	"print": KindPrint,
	"let":   KindLet,
	"const": KindLet,
}

// Token represents a lexical unit pointing back to the source.
// Start and End are byte offsets; End is exclusive.
type Token struct {
	Kind  Kind
	Start int
	End   int
	Value value.Value
}

// Span returns the token's source range.
func (t Token) Span() diag.Span {
	return diag.Span{Start: t.Start, End: t.End}
}

// Text slices the token out of the source it was scanned from.
func (t Token) Text(source []byte) string {
	if t.Start < 0 || t.End > len(source) || t.Start > t.End {
		return ""
	}
	return string(source[t.Start:t.End])
}

// Name returns the identifier or string payload.
func (t Token) Name() (string, bool) {
	return t.Value.Str()
}

func (t Token) String() string {
	if t.Value.IsNone() {
		return fmt.Sprintf("%s@%d:%d", t.Kind, t.Start, t.End)
	}
	return fmt.Sprintf("%s(%s)@%d:%d", t.Kind, t.Value.Format(), t.Start, t.End)
}

// Position converts a byte offset into a 1-based line and column.
func Position(source []byte, offset int) (line, col int) {
	if offset > len(source) {
		offset = len(source)
	}
	line, col = 1, 1
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
