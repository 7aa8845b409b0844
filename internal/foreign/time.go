package foreign

import (
	"lox/internal/object"
	"time"
)

// now is replaced in tests.
var now = time.Now

// fnTimeClock returns seconds since the Unix epoch with millisecond
// precision.
func fnTimeClock() *object.Foreign {
	return &object.Foreign{
		Name:   "clock",
		Params: 0,
		Fn: func(ctx object.EvaluatorContext, args []object.Object) object.Object {
			return &object.Number{Value: float64(now().UnixMilli()) / 1000.0}
		},
	}
}
