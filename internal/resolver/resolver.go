package resolver

import (
	"fmt"
	"log/slog"
	"lox/internal/ast"
	"lox/internal/token"
)

type functionType int

const (
	FUNCTION_NONE functionType = iota
	FUNCTION_PLAIN
	FUNCTION_INITIALIZER
	FUNCTION_METHOD
)

type classType int

const (
	CLASS_NONE classType = iota
	CLASS_PLAIN
	CLASS_SUBCLASS
)

// Locals maps a variable, assignment, this or super expression to the
// number of scopes between it and its declaration. Keys compare by node
// identity. A missing entry means the name is global.
type Locals map[ast.Expression]int

// StaticError is a resolution failure located at a token.
type StaticError struct {
	Line    int
	Where   string
	Message string
}

func (e *StaticError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

type Resolver struct {
	// each scope maps a name to whether its initializer has finished
	scopes []map[string]bool
	locals Locals
	errors []*StaticError

	// initializingGlobal names the global whose initializer is being
	// resolved. Lox expressions open no scopes, so one name suffices.
	initializingGlobal string

	currentFunction functionType
	currentClass    classType
}

func New() *Resolver {
	return &Resolver{locals: make(Locals)}
}

// Resolve walks program once and returns the side table together with
// every static error found. Errors do not stop the walk.
func (r *Resolver) Resolve(program *ast.Program) (Locals, []*StaticError) {
	for _, stmt := range program.Statements {
		r.resolve(stmt)
	}
	slog.Debug("resolution complete",
		slog.Int("locals", len(r.locals)),
		slog.Int("errors", len(r.errors)))
	return r.locals, r.errors
}

func (r *Resolver) resolve(node ast.Node) {
	switch node := node.(type) {

	// Statements
	case *ast.BlockStatement:
		r.beginScope()
		r.resolveStatements(node.Statements)
		r.endScope()

	case *ast.ClassStatement:
		r.resolveClass(node)

	case *ast.ExpressionStatement:
		r.resolve(node.Expression)

	case *ast.FunctionStatement:
		r.declare(node.Name)
		r.define(node.Name)
		r.resolveFunction(node, FUNCTION_PLAIN)

	case *ast.IfStatement:
		r.resolve(node.Condition)
		r.resolve(node.ThenBranch)
		if node.ElseBranch != nil {
			r.resolve(node.ElseBranch)
		}

	case *ast.PrintStatement:
		r.resolve(node.Expression)

	case *ast.ReturnStatement:
		if r.currentFunction == FUNCTION_NONE {
			r.errorAt(node.Token, "Can't return from top-level code.")
		}
		if node.ReturnValue != nil {
			if r.currentFunction == FUNCTION_INITIALIZER {
				r.errorAt(node.Token, "Can't return a value from an initializer.")
			}
			r.resolve(node.ReturnValue)
		}

	case *ast.VarStatement:
		r.declare(node.Name)
		if node.Initializer != nil {
			if len(r.scopes) == 0 {
				r.initializingGlobal = node.Name.Lexeme
			}
			r.resolve(node.Initializer)
			r.initializingGlobal = ""
		}
		r.define(node.Name)

	case *ast.WhileStatement:
		r.resolve(node.Condition)
		r.resolve(node.Body)

	// Expressions
	case *ast.Identifier:
		if len(r.scopes) > 0 {
			if defined, ok := r.scopes[len(r.scopes)-1][node.Token.Lexeme]; ok && !defined {
				r.errorAt(node.Token, "Can't read local variable in its own initializer.")
			}
		} else if node.Token.Lexeme == r.initializingGlobal {
			r.errorAt(node.Token, "Can't read variable in its own initializer.")
		}
		r.resolveLocal(node, node.Token.Lexeme)

	case *ast.AssignExpression:
		r.resolve(node.Value)
		r.resolveLocal(node, node.Name.Lexeme)

	case *ast.InfixExpression:
		r.resolve(node.Left)
		r.resolve(node.Right)

	case *ast.LogicalExpression:
		r.resolve(node.Left)
		r.resolve(node.Right)

	case *ast.PrefixExpression:
		r.resolve(node.Right)

	case *ast.GroupedExpression:
		r.resolve(node.Expression)

	case *ast.CallExpression:
		r.resolve(node.Function)
		for _, arg := range node.Arguments {
			r.resolve(arg)
		}

	case *ast.GetExpression:
		r.resolve(node.Object)

	case *ast.SetExpression:
		r.resolve(node.Value)
		r.resolve(node.Object)

	case *ast.ThisExpression:
		if r.currentClass == CLASS_NONE {
			r.errorAt(node.Token, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(node, "this")

	case *ast.SuperExpression:
		switch r.currentClass {
		case CLASS_NONE:
			r.errorAt(node.Token, "Can't use 'super' outside of a class.")
		case CLASS_PLAIN:
			r.errorAt(node.Token, "Can't use 'super' in a class with no superclass.")
		}
		r.resolveLocal(node, "super")

	case *ast.NumberLiteral, *ast.StringLiteral, *ast.Boolean, *ast.Nil:
		// nothing to bind

	default:
		slog.Warn("resolver skipped unknown node", slog.String("type", fmt.Sprintf("%T", node)))
	}
}

func (r *Resolver) resolveStatements(statements []ast.Statement) {
	for _, stmt := range statements {
		r.resolve(stmt)
	}
}

func (r *Resolver) resolveClass(node *ast.ClassStatement) {
	enclosingClass := r.currentClass
	r.currentClass = CLASS_PLAIN
	defer func() { r.currentClass = enclosingClass }()

	r.declare(node.Name)
	r.define(node.Name)

	if node.Superclass != nil {
		if node.Superclass.Token.Lexeme == node.Name.Lexeme {
			r.errorAt(node.Superclass.Token, "A class can't inherit from itself.")
		}
		r.currentClass = CLASS_SUBCLASS
		r.resolve(node.Superclass)

		r.beginScope()
		r.peek()["super"] = true
		defer r.endScope()
	}

	r.beginScope()
	r.peek()["this"] = true

	for _, method := range node.Methods {
		kind := FUNCTION_METHOD
		if method.Name.Lexeme == "init" {
			kind = FUNCTION_INITIALIZER
		}
		r.resolveFunction(method, kind)
	}

	r.endScope()
}

func (r *Resolver) resolveFunction(fn *ast.FunctionStatement, kind functionType) {
	enclosingFunction := r.currentFunction
	r.currentFunction = kind

	r.beginScope()
	for _, param := range fn.Parameters {
		r.declare(param)
		r.define(param)
	}
	r.resolveStatements(fn.Body)
	r.endScope()

	r.currentFunction = enclosingFunction
}

// resolveLocal records the hop count to the innermost scope declaring name.
// Names found in no scope are left for the globals.
func (r *Resolver) resolveLocal(expr ast.Expression, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) peek() map[string]bool {
	return r.scopes[len(r.scopes)-1]
}

// declare and define are no-ops at global scope.
func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.peek()
	if _, ok := scope[name.Lexeme]; ok {
		r.errorAt(name, "Already a variable with this name in this scope.")
	}
	scope[name.Lexeme] = false
}

func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.peek()[name.Lexeme] = true
}

func (r *Resolver) errorAt(tok token.Token, message string) {
	where := fmt.Sprintf(" at '%s'", tok.Lexeme)
	if tok.Type == token.EOF {
		where = " at end"
	}
	r.errors = append(r.errors, &StaticError{Line: tok.Line, Where: where, Message: message})
}
