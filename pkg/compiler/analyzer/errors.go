package analyzer

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyDeclared = errors.New("analyzer: variable already declared")
	ErrNotDeclared     = errors.New("analyzer: variable not declared")
	ErrUnexpectedNode  = errors.New("analyzer: unexpected node")
)

// Kind classifies an analysis error.
type Kind uint8

const (
	KindAlreadyDeclared Kind = iota + 1
	KindNotDeclared
	KindUnexpectedNode       // non-statement in statement position
	KindUnexpectedExpression // non-expression in expression position
)

// Error is a semantic error. Analysis stops at the first one.
type Error struct {
	Kind Kind
	Name string // variable involved, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAlreadyDeclared:
		return fmt.Sprintf("Variable '%s' is already declared", e.Name)
	case KindNotDeclared:
		return fmt.Sprintf("Variable '%s' is not declared", e.Name)
	case KindUnexpectedNode:
		return "Unexpected AST node"
	case KindUnexpectedExpression:
		return "Unexpected expression node"
	default:
		return fmt.Sprintf("analyzer: error kind %d", e.Kind)
	}
}

// Is matches the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAlreadyDeclared:
		return e.Kind == KindAlreadyDeclared
	case ErrNotDeclared:
		return e.Kind == KindNotDeclared
	case ErrUnexpectedNode:
		return e.Kind == KindUnexpectedNode || e.Kind == KindUnexpectedExpression
	}
	return false
}
