package evaluator

import (
	"lox/internal/foreign"
	"lox/internal/object"
)

// NewGlobals returns a global environment holding the native functions.
// Each call yields an independent scope.
func NewGlobals() *object.Environment {
	globals := object.NewEnvironment()
	for name, fn := range foreign.GetForeignFunctions() {
		globals.Define(name, fn)
	}
	return globals
}
