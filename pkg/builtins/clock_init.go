package builtins

import "treelox/pkg/interpreter"

// ClockInitializer installs clock(), which returns the seconds since the
// Unix epoch as a number.
type ClockInitializer struct{}

func (c *ClockInitializer) Name() string {
	return "clock"
}

func (c *ClockInitializer) Priority() int {
	return PriorityClock
}

func (c *ClockInitializer) Install(ctx *RuntimeContext) error {
	now := ctx.Now
	clock := interpreter.NewNativeFunction("clock", 0, func(args []interpreter.Value) (interpreter.Value, error) {
		t := now()
		return interpreter.NumberValue(float64(t.Unix()) + float64(t.Nanosecond())/1e9), nil
	})
	return ctx.DefineGlobal("clock", interpreter.NewNativeFunctionValue(clock))
}
