package foreign

import (
	"lox/internal/object"
)

// GetForeignFunctions returns a fresh set of native callables keyed by the
// global name they are bound to.
func GetForeignFunctions() map[string]*object.Foreign {
	return map[string]*object.Foreign{
		"clock": fnTimeClock(),
	}
}
