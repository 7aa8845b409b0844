package object

import (
	"lox/internal/ast"
	"lox/internal/token"
)

// Function is a user-defined function or method together with the
// environment it closed over.
type Function struct {
	Declaration   *ast.FunctionStatement
	Closure       *Environment
	IsInitializer bool
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string  { return "<fn " + f.Declaration.Name.Lexeme + ">" }
func (f *Function) Arity() int       { return len(f.Declaration.Parameters) }

func (f *Function) Call(ctx EvaluatorContext, args []Object) Object {
	env := NewEnclosedEnvironment(f.Closure)
	for i, param := range f.Declaration.Parameters {
		env.Define(param.Lexeme, args[i])
	}

	result := ctx.ExecuteBlock(f.Declaration.Body, env)
	if err, ok := result.(*RuntimeError); ok {
		return err
	}

	if f.IsInitializer {
		return f.Closure.GetAt(0, "this")
	}
	if rv, ok := result.(*ReturnValue); ok {
		return rv.Value
	}
	return NIL
}

// Bind returns a copy of f whose closure has "this" bound to instance.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnclosedEnvironment(f.Closure)
	env.Define("this", instance)
	return &Function{
		Declaration:   f.Declaration,
		Closure:       env,
		IsInitializer: f.IsInitializer,
	}
}

type Class struct {
	Name       string
	Superclass *Class
	Methods    map[string]*Function
}

func (c *Class) Type() ObjectType { return CLASS_OBJ }
func (c *Class) Inspect() string  { return c.Name }

// FindMethod searches this class, then its superclass chain.
func (c *Class) FindMethod(name string) (*Function, bool) {
	for class := c; class != nil; class = class.Superclass {
		if m, ok := class.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

func (c *Class) Arity() int {
	if init, ok := c.FindMethod("init"); ok {
		return init.Arity()
	}
	return 0
}

// Call constructs an instance and runs its initializer, if any.
func (c *Class) Call(ctx EvaluatorContext, args []Object) Object {
	instance := NewInstance(c)
	if init, ok := c.FindMethod("init"); ok {
		if err, isErr := init.Bind(instance).Call(ctx, args).(*RuntimeError); isErr {
			return err
		}
	}
	return instance
}

type Instance struct {
	Class  *Class
	Fields map[string]Object
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: make(map[string]Object)}
}

func (i *Instance) Type() ObjectType { return INSTANCE_OBJ }
func (i *Instance) Inspect() string  { return i.Class.Name + " instance" }

// Get looks up a field first, so fields shadow methods; methods come back
// bound to i.
func (i *Instance) Get(name token.Token) (Object, error) {
	if val, ok := i.Fields[name.Lexeme]; ok {
		return val, nil
	}
	if m, ok := i.Class.FindMethod(name.Lexeme); ok {
		return m.Bind(i), nil
	}
	return nil, NewRuntimeError(name, "Undefined property '%s'.", name.Lexeme)
}

func (i *Instance) Set(name token.Token, val Object) {
	i.Fields[name.Lexeme] = val
}
