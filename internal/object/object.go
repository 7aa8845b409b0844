package object

import (
	"fmt"
	"lox/internal/ast"
	"lox/internal/token"
	"math"
	"strconv"
)

const (
	NIL_OBJ     = "NIL"
	BOOLEAN_OBJ = "BOOLEAN"
	NUMBER_OBJ  = "NUMBER"
	STRING_OBJ  = "STRING"

	FUNCTION_OBJ = "FUNCTION"
	CLASS_OBJ    = "CLASS"
	INSTANCE_OBJ = "INSTANCE"
	FOREIGN_OBJ  = "FOREIGN"

	RETURN_VALUE_OBJ = "RETURN_VALUE"
	ERROR_OBJ        = "ERROR"
)

var (
	NIL   = &Nil{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// EvaluatorContext is the bridge between callables and the interpreter that
// runs their bodies.
type EvaluatorContext interface {
	// ExecuteBlock runs statements in env and restores the caller's
	// environment afterwards, whatever the outcome.
	ExecuteBlock(statements []ast.Statement, env *Environment) Object
}

type ForeignFunction func(ctx EvaluatorContext, args []Object) Object

type ObjectType string

type Object interface {
	Type() ObjectType
	Inspect() string
}

// Callable is anything a call expression may target.
type Callable interface {
	Object
	Arity() int
	Call(ctx EvaluatorContext, args []Object) Object
}

type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }

// FormatNumber prints integral values without a fractional part.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return fmt.Sprintf("%t", b.Value) }

func NativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

type Nil struct{}

func (n *Nil) Type() ObjectType { return NIL_OBJ }
func (n *Nil) Inspect() string  { return "nil" }

// ReturnValue carries a return statement's value up to the enclosing call.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

// RuntimeError aborts execution of the current program. Token locates the
// offending source for reporting.
type RuntimeError struct {
	Token   token.Token
	Message string
}

func NewRuntimeError(tok token.Token, format string, a ...interface{}) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, a...)}
}

func (e *RuntimeError) Type() ObjectType { return ERROR_OBJ }
func (e *RuntimeError) Inspect() string  { return e.Message }

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Line)
}

// Foreign is a callable implemented in Go.
type Foreign struct {
	Name   string
	Params int
	Fn     ForeignFunction
}

func (f *Foreign) Type() ObjectType { return FOREIGN_OBJ }
func (f *Foreign) Inspect() string  { return "<native fn>" }
func (f *Foreign) Arity() int       { return f.Params }

func (f *Foreign) Call(ctx EvaluatorContext, args []Object) Object {
	return f.Fn(ctx, args)
}

// Equal reports Lox equality: nil equals only nil, numbers and strings
// compare by value, everything else by identity.
func Equal(a, b Object) bool {
	switch l := a.(type) {
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	case *Boolean:
		r, ok := b.(*Boolean)
		return ok && l.Value == r.Value
	case *Number:
		r, ok := b.(*Number)
		return ok && l.Value == r.Value
	case *String:
		r, ok := b.(*String)
		return ok && l.Value == r.Value
	}
	return a == b
}
