package builtins

import (
	"time"
	"treelox/pkg/interpreter"
)

// Initializer is implemented by each group of native functions
type Initializer interface {
	// Name returns the group name (e.g., "clock")
	Name() string

	// Priority returns installation order (lower = earlier)
	Priority() int

	// Install defines the group's natives through ctx
	Install(ctx *RuntimeContext) error
}

// RuntimeContext provides everything an initializer needs to define natives
type RuntimeContext struct {
	// Define a global value
	DefineGlobal func(name string, value interpreter.Value) error

	// Current wall-clock time
	Now func() time.Time
}

// Priority constants for installation order
const (
	PriorityClock = 0
)
