package lexer

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/agenthands/osho/pkg/compiler/diag"
	"github.com/agenthands/osho/pkg/core/value"
)

// Diagnostic codes reported by the scanner. None of them stop scanning.
const (
	CodeUnknownChar        = "LEX_UNKNOWN_CHAR"
	CodeBadNumber          = "LEX_BAD_NUMBER"
	CodeUnterminatedString = "LEX_UNTERMINATED_STRING"
)

// Scanner performs lexical analysis on osho source.
type Scanner struct {
	source   []byte
	cursor   int
	reporter diag.Reporter
}

// NewScanner creates a new scanner for the given source.
func NewScanner(source []byte) *Scanner {
	return &Scanner{
		source:   source,
		reporter: diag.Discard,
	}
}

// SetReporter routes scanner warnings to r.
func (s *Scanner) SetReporter(r diag.Reporter) {
	if r == nil {
		r = diag.Discard
	}
	s.reporter = r
}

// Reset re-initializes the scanner with new source for reuse.
func (s *Scanner) Reset(source []byte) {
	s.source = source
	s.cursor = 0
}

// Next returns the next token from the source, whitespace included.
// Once the input is exhausted every call returns an EOF token.
func (s *Scanner) Next() Token {
	for {
		if s.cursor >= len(s.source) {
			return Token{Kind: KindEOF, Start: len(s.source), End: len(s.source)}
		}

		start := s.cursor
		ch, size := s.peekRune()

		switch {
		case unicode.IsSpace(ch):
			return s.scanWhitespace()
		case ch == '"':
			return s.scanString()
		case unicode.IsDigit(ch):
			return s.scanNumber()
		case unicode.IsLetter(ch):
			return s.scanIdentifier()
		}

		s.cursor += size
		switch ch {
		case '+':
			if s.match('+') {
				return s.token(KindIncrement, start)
			}
			return s.token(KindPlus, start)
		case '-':
			if s.match('-') {
				return s.token(KindDecrement, start)
			}
			return s.token(KindMinus, start)
		case '*':
			return s.token(KindMultiply, start)
		case '/':
			return s.token(KindDivide, start)
		case '=':
			return s.token(KindEqualsTo, start)
		case '(':
			return s.token(KindOpenParen, start)
		case ')':
			return s.token(KindCloseParen, start)
		}

		s.warn(start, CodeUnknownChar, fmt.Sprintf("unrecognized character %q", ch))
	}
}

// Tokenize scans the whole source and returns the tokens the parser consumes:
// whitespace is dropped and exactly one EOF token terminates the slice.
func Tokenize(source []byte, r diag.Reporter) []Token {
	s := NewScanner(source)
	s.SetReporter(r)

	var tokens []Token
	for {
		tok := s.Next()
		if tok.Kind == KindWhitespace {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Kind == KindEOF {
			return tokens
		}
	}
}

func (s *Scanner) token(kind Kind, start int) Token {
	return Token{Kind: kind, Start: start, End: s.cursor}
}

func (s *Scanner) warn(start int, code, msg string) {
	s.reporter.Report(diag.Diagnostic{
		Level:   diag.LevelWarning,
		Span:    diag.Span{Start: start, End: s.cursor},
		Message: msg,
		Code:    code,
	})
}

func (s *Scanner) scanWhitespace() Token {
	start := s.cursor
	for s.cursor < len(s.source) {
		ch, size := s.peekRune()
		if !unicode.IsSpace(ch) {
			break
		}
		s.cursor += size
	}
	return s.token(KindWhitespace, start)
}

func (s *Scanner) scanString() Token {
	start := s.cursor
	s.cursor++ // Skip opening '"'
	for s.cursor < len(s.source) && s.source[s.cursor] != '"' {
		s.cursor++
	}

	content := string(s.source[start+1 : s.cursor])
	if s.cursor >= len(s.source) {
		s.warn(start, CodeUnterminatedString, "unterminated string literal")
	} else {
		s.cursor++ // Skip closing '"'
	}

	tok := s.token(KindString, start)
	tok.Value = value.String(content)
	return tok
}

func (s *Scanner) scanNumber() Token {
	start := s.cursor
	for s.cursor < len(s.source) {
		ch, size := s.peekRune()
		if !unicode.IsDigit(ch) && ch != '.' {
			break
		}
		s.cursor += size
	}

	tok := s.token(KindNumber, start)
	literal := string(s.source[start:s.cursor])
	num, err := strconv.ParseFloat(literal, 64)
	// Out-of-range literals saturate to ±Inf or round to zero.
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		s.warn(start, CodeBadNumber, fmt.Sprintf("malformed number %q", literal))
		return tok
	}
	tok.Value = value.Float(num)
	return tok
}

func (s *Scanner) scanIdentifier() Token {
	start := s.cursor
	for s.cursor < len(s.source) {
		ch, size := s.peekRune()
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			break
		}
		s.cursor += size
	}

	literal := string(s.source[start:s.cursor])
	if kind, ok := keywords[literal]; ok {
		return s.token(kind, start)
	}

	tok := s.token(KindIdentifier, start)
	tok.Value = value.String(literal)
	return tok
}

func (s *Scanner) peekRune() (rune, int) {
	return utf8.DecodeRune(s.source[s.cursor:])
}

func (s *Scanner) match(ch byte) bool {
	if s.cursor < len(s.source) && s.source[s.cursor] == ch {
		s.cursor++
		return true
	}
	return false
}
