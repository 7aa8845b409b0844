package object

import (
	"fmt"
	"log/slog"
	"lox/internal/token"
	"sync/atomic"
)

var nextID atomic.Uint64

// Environment is one lexical scope. Outer is fixed at creation; closures
// share the *Environment so writes through any alias are observed by all.
type Environment struct {
	ID       uint64
	Bindings map[string]Object
	Outer    *Environment
}

func nextEnvID() uint64 {
	return nextID.Add(1)
}

// NewEnclosedEnvironment initializes an environment with a parent.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.Outer = outer
	return env
}

func NewEnvironment() *Environment {
	return &Environment{
		ID:       nextEnvID(),
		Bindings: make(map[string]Object),
	}
}

// Define binds name in this frame only, overwriting any previous binding.
func (e *Environment) Define(name string, val Object) {
	e.Bindings[name] = val
}

func (e *Environment) Get(name token.Token) (Object, error) {
	for env := e; env != nil; env = env.Outer {
		if val, ok := env.Bindings[name.Lexeme]; ok {
			return val, nil
		}
	}
	return nil, NewRuntimeError(name, "Undefined variable '%s'.", name.Lexeme)
}

func (e *Environment) Assign(name token.Token, val Object) error {
	for env := e; env != nil; env = env.Outer {
		if _, ok := env.Bindings[name.Lexeme]; ok {
			env.Bindings[name.Lexeme] = val
			return nil
		}
	}
	return NewRuntimeError(name, "Undefined variable '%s'.", name.Lexeme)
}

// Ancestor walks exactly distance Outer links.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance; i++ {
		if env.Outer == nil {
			panic(fmt.Sprintf("environment %d has no ancestor at distance %d", e.ID, distance))
		}
		env = env.Outer
	}
	return env
}

// GetAt reads a resolved binding. A miss means the resolver and evaluator
// disagree about scoping, which is a bug in this package's callers.
func (e *Environment) GetAt(distance int, name string) Object {
	env := e.Ancestor(distance)
	val, ok := env.Bindings[name]
	if !ok {
		slog.Error("resolved binding missing",
			slog.String("name", name),
			slog.Int("distance", distance),
			slog.Uint64("env", env.ID))
		panic(fmt.Sprintf("resolved variable '%s' not found at distance %d", name, distance))
	}
	return val
}

func (e *Environment) AssignAt(distance int, name string, val Object) {
	env := e.Ancestor(distance)
	if _, ok := env.Bindings[name]; !ok {
		panic(fmt.Sprintf("resolved variable '%s' not found at distance %d", name, distance))
	}
	env.Bindings[name] = val
}
