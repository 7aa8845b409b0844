package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"lox/internal/ast"
	"lox/internal/object"
	"lox/internal/resolver"
	"lox/internal/token"
)

const maxCallDepth = 2048

var (
	NIL   = object.NIL
	TRUE  = object.TRUE
	FALSE = object.FALSE
)

// Evaluator executes resolved programs. It owns no process-wide state; two
// evaluators built on different globals never observe each other.
type Evaluator struct {
	globals  *object.Environment
	envStack []*object.Environment
	locals   resolver.Locals
	out      io.Writer
	depth    int
}

func New(globals *object.Environment, out io.Writer) *Evaluator {
	return &Evaluator{
		globals:  globals,
		envStack: []*object.Environment{globals},
		locals:   make(resolver.Locals),
		out:      out,
	}
}

func (e *Evaluator) PushEnv(env *object.Environment) {
	e.envStack = append(e.envStack, env)
}

func (e *Evaluator) CurrentEnv() *object.Environment {
	if len(e.envStack) == 0 {
		panic("Environment stack is empty")
	}
	return e.envStack[len(e.envStack)-1]
}

func (e *Evaluator) PopEnv() {
	if len(e.envStack) <= 1 {
		panic("Attempted to pop the global environment")
	}
	e.envStack = e.envStack[:len(e.envStack)-1]
}

// Interpret runs program with the hop counts from locals. Entries are
// merged into the evaluator's table so functions declared by earlier
// programs keep resolving. The first runtime error stops execution.
func (e *Evaluator) Interpret(program *ast.Program, locals resolver.Locals) *object.RuntimeError {
	for expr, hops := range locals {
		e.locals[expr] = hops
	}
	slog.Debug("interpret",
		slog.Int("statements", len(program.Statements)),
		slog.Int("locals", len(e.locals)))

	for _, stmt := range program.Statements {
		switch result := e.Eval(stmt).(type) {
		case *object.RuntimeError:
			return result
		case *object.ReturnValue:
			panic("return escaped to top level")
		}
	}
	return nil
}

// Eval executes a statement or evaluates an expression. Statements yield
// nil on normal completion, a *object.ReturnValue while a return unwinds,
// or a *object.RuntimeError. Expressions always yield a value or an error.
func (e *Evaluator) Eval(node ast.Node) object.Object {
	switch node := node.(type) {

	// Statements
	case *ast.BlockStatement:
		return e.ExecuteBlock(node.Statements, object.NewEnclosedEnvironment(e.CurrentEnv()))

	case *ast.ClassStatement:
		return e.evalClassStatement(node)

	case *ast.ExpressionStatement:
		val := e.Eval(node.Expression)
		if isError(val) {
			return val
		}
		return nil

	case *ast.FunctionStatement:
		fn := &object.Function{Declaration: node, Closure: e.CurrentEnv()}
		e.CurrentEnv().Define(node.Name.Lexeme, fn)
		return nil

	case *ast.IfStatement:
		cond := e.Eval(node.Condition)
		if isError(cond) {
			return cond
		}
		if isTruthy(cond) {
			return e.Eval(node.ThenBranch)
		}
		if node.ElseBranch != nil {
			return e.Eval(node.ElseBranch)
		}
		return nil

	case *ast.PrintStatement:
		val := e.Eval(node.Expression)
		if isError(val) {
			return val
		}
		fmt.Fprintln(e.out, stringify(val))
		return nil

	case *ast.ReturnStatement:
		var val object.Object = NIL
		if node.ReturnValue != nil {
			val = e.Eval(node.ReturnValue)
			if isError(val) {
				return val
			}
		}
		return &object.ReturnValue{Value: val}

	case *ast.VarStatement:
		var val object.Object = NIL
		if node.Initializer != nil {
			val = e.Eval(node.Initializer)
			if isError(val) {
				return val
			}
		}
		e.CurrentEnv().Define(node.Name.Lexeme, val)
		return nil

	case *ast.WhileStatement:
		return e.evalWhileStatement(node)

	// Expressions
	case *ast.NumberLiteral:
		return &object.Number{Value: node.Value}

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}

	case *ast.Boolean:
		return object.NativeBoolToBooleanObject(node.Value)

	case *ast.Nil:
		return NIL

	case *ast.GroupedExpression:
		return e.Eval(node.Expression)

	case *ast.Identifier:
		return e.lookUpVariable(node.Token, node)

	case *ast.ThisExpression:
		return e.lookUpVariable(node.Token, node)

	case *ast.AssignExpression:
		return e.evalAssignExpression(node)

	case *ast.PrefixExpression:
		right := e.Eval(node.Right)
		if isError(right) {
			return right
		}
		return e.evalPrefixExpression(node.Token, right)

	case *ast.InfixExpression:
		left := e.Eval(node.Left)
		if isError(left) {
			return left
		}
		right := e.Eval(node.Right)
		if isError(right) {
			return right
		}
		return e.evalInfixExpression(node.Token, left, right)

	case *ast.LogicalExpression:
		left := e.Eval(node.Left)
		if isError(left) {
			return left
		}
		if node.Token.Type == token.OR {
			if isTruthy(left) {
				return left
			}
		} else if !isTruthy(left) {
			return left
		}
		return e.Eval(node.Right)

	case *ast.CallExpression:
		return e.evalCallExpression(node)

	case *ast.GetExpression:
		obj := e.Eval(node.Object)
		if isError(obj) {
			return obj
		}
		instance, ok := obj.(*object.Instance)
		if !ok {
			return newError(node.Name, "Only instances have properties.")
		}
		val, err := instance.Get(node.Name)
		if err != nil {
			return toRuntimeError(node.Name, err)
		}
		return val

	case *ast.SetExpression:
		obj := e.Eval(node.Object)
		if isError(obj) {
			return obj
		}
		instance, ok := obj.(*object.Instance)
		if !ok {
			return newError(node.Name, "Only instances have fields.")
		}
		val := e.Eval(node.Value)
		if isError(val) {
			return val
		}
		instance.Set(node.Name, val)
		return val

	case *ast.SuperExpression:
		return e.evalSuperExpression(node)
	}

	panic(fmt.Sprintf("evaluator: unsupported node %T", node))
}

// ExecuteBlock runs statements with env as the current scope and restores
// the previous scope on every exit path.
func (e *Evaluator) ExecuteBlock(statements []ast.Statement, env *object.Environment) object.Object {
	e.PushEnv(env)
	defer e.PopEnv()

	for _, statement := range statements {
		if result := e.Eval(statement); result != nil {
			// return or error, both unwind to the caller
			return result
		}
	}
	return nil
}

func (e *Evaluator) evalWhileStatement(node *ast.WhileStatement) object.Object {
	for {
		cond := e.Eval(node.Condition)
		if isError(cond) {
			return cond
		}
		if !isTruthy(cond) {
			return nil
		}
		if result := e.Eval(node.Body); result != nil {
			return result
		}
	}
}

func (e *Evaluator) evalClassStatement(node *ast.ClassStatement) object.Object {
	var superclass *object.Class
	if node.Superclass != nil {
		val := e.Eval(node.Superclass)
		if isError(val) {
			return val
		}
		class, ok := val.(*object.Class)
		if !ok {
			return newError(node.Superclass.Token, "Superclass must be a class.")
		}
		superclass = class
	}

	env := e.CurrentEnv()
	env.Define(node.Name.Lexeme, NIL)

	if superclass != nil {
		e.PushEnv(object.NewEnclosedEnvironment(env))
		e.CurrentEnv().Define("super", superclass)
	}

	methods := make(map[string]*object.Function, len(node.Methods))
	for _, method := range node.Methods {
		methods[method.Name.Lexeme] = &object.Function{
			Declaration:   method,
			Closure:       e.CurrentEnv(),
			IsInitializer: method.Name.Lexeme == "init",
		}
	}

	class := &object.Class{Name: node.Name.Lexeme, Superclass: superclass, Methods: methods}

	if superclass != nil {
		e.PopEnv()
	}

	slog.Debug("class defined",
		slog.String("name", class.Name),
		slog.Int("methods", len(methods)),
		slog.Bool("subclass", superclass != nil))

	if err := env.Assign(node.Name, class); err != nil {
		return toRuntimeError(node.Name, err)
	}
	return nil
}

func (e *Evaluator) evalCallExpression(node *ast.CallExpression) object.Object {
	callee := e.Eval(node.Function)
	if isError(callee) {
		return callee
	}

	args := make([]object.Object, 0, len(node.Arguments))
	for _, argument := range node.Arguments {
		arg := e.Eval(argument)
		if isError(arg) {
			return arg
		}
		args = append(args, arg)
	}

	callable, ok := callee.(object.Callable)
	if !ok {
		return newError(node.Token, "Can only call functions and classes.")
	}
	if len(args) != callable.Arity() {
		return newError(node.Token, "Expected %d arguments but got %d.", callable.Arity(), len(args))
	}

	if e.depth >= maxCallDepth {
		return newError(node.Token, "Stack overflow.")
	}
	e.depth++
	defer func() { e.depth-- }()

	slog.Debug("call",
		slog.String("callee", callee.Inspect()),
		slog.Int("args", len(args)),
		slog.Int("line", node.Token.Line))

	return callable.Call(e, args)
}

func (e *Evaluator) evalSuperExpression(node *ast.SuperExpression) object.Object {
	distance := e.locals[node]
	superclass := e.CurrentEnv().GetAt(distance, "super").(*object.Class)
	// "this" always lives one scope inside the "super" scope
	instance := e.CurrentEnv().GetAt(distance-1, "this").(*object.Instance)

	method, ok := superclass.FindMethod(node.Method.Lexeme)
	if !ok {
		return newError(node.Method, "Undefined property '%s'.", node.Method.Lexeme)
	}
	return method.Bind(instance)
}

func (e *Evaluator) evalAssignExpression(node *ast.AssignExpression) object.Object {
	val := e.Eval(node.Value)
	if isError(val) {
		return val
	}

	if distance, ok := e.locals[node]; ok {
		e.CurrentEnv().AssignAt(distance, node.Name.Lexeme, val)
		return val
	}
	if err := e.globals.Assign(node.Name, val); err != nil {
		return toRuntimeError(node.Name, err)
	}
	return val
}

// lookUpVariable uses the resolved hop count when there is one. Anything
// unresolved is global and may legitimately be undefined at this point.
func (e *Evaluator) lookUpVariable(name token.Token, expr ast.Expression) object.Object {
	if distance, ok := e.locals[expr]; ok {
		return e.CurrentEnv().GetAt(distance, name.Lexeme)
	}
	val, err := e.globals.Get(name)
	if err != nil {
		return toRuntimeError(name, err)
	}
	return val
}

func (e *Evaluator) evalPrefixExpression(operator token.Token, right object.Object) object.Object {
	switch operator.Type {
	case token.BANG:
		return object.NativeBoolToBooleanObject(!isTruthy(right))
	case token.MINUS:
		num, ok := right.(*object.Number)
		if !ok {
			return newError(operator, "Operand must be a number.")
		}
		return &object.Number{Value: -num.Value}
	default:
		return newError(operator, "Unknown operator: %s", operator.Lexeme)
	}
}

func (e *Evaluator) evalInfixExpression(operator token.Token, left, right object.Object) object.Object {
	switch operator.Type {
	case token.EQ:
		return object.NativeBoolToBooleanObject(object.Equal(left, right))
	case token.NOT_EQ:
		return object.NativeBoolToBooleanObject(!object.Equal(left, right))
	case token.PLUS:
		if l, ok := left.(*object.String); ok {
			if r, ok := right.(*object.String); ok {
				return &object.String{Value: l.Value + r.Value}
			}
		}
		l, lok := left.(*object.Number)
		r, rok := right.(*object.Number)
		if !lok || !rok {
			return newError(operator, "Operands must be two numbers or two strings.")
		}
		return &object.Number{Value: l.Value + r.Value}
	}

	l, lok := left.(*object.Number)
	r, rok := right.(*object.Number)
	if !lok || !rok {
		return newError(operator, "Operands must be numbers.")
	}
	return e.evalNumberInfixExpression(operator, l.Value, r.Value)
}

func (e *Evaluator) evalNumberInfixExpression(operator token.Token, left, right float64) object.Object {
	switch operator.Type {
	case token.MINUS:
		return &object.Number{Value: left - right}
	case token.ASTERISK:
		return &object.Number{Value: left * right}
	case token.SLASH:
		return &object.Number{Value: left / right}
	case token.GT:
		return object.NativeBoolToBooleanObject(left > right)
	case token.GT_EQ:
		return object.NativeBoolToBooleanObject(left >= right)
	case token.LT:
		return object.NativeBoolToBooleanObject(left < right)
	case token.LT_EQ:
		return object.NativeBoolToBooleanObject(left <= right)
	default:
		return newError(operator, "Unknown operator: %s", operator.Lexeme)
	}
}

// isTruthy treats only nil and false as falsy.
func isTruthy(obj object.Object) bool {
	switch obj := obj.(type) {
	case *object.Nil:
		return false
	case *object.Boolean:
		return obj.Value
	default:
		return true
	}
}

func stringify(obj object.Object) string {
	return obj.Inspect()
}

func newError(tok token.Token, format string, a ...interface{}) *object.RuntimeError {
	return object.NewRuntimeError(tok, format, a...)
}

func isError(obj object.Object) bool {
	if obj != nil {
		return obj.Type() == object.ERROR_OBJ
	}
	return false
}

func toRuntimeError(tok token.Token, err error) *object.RuntimeError {
	if rte, ok := err.(*object.RuntimeError); ok {
		return rte
	}
	return newError(tok, "%s", err.Error())
}
