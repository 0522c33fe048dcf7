package builtins

import (
	"fmt"
	"sort"
	"time"
	"treelox/pkg/interpreter"
)

type options struct {
	now          func() time.Time
	initializers []Initializer
}

type Option func(*options)

// WithClock replaces the time source used by clock().
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithInitializers installs extra initializers after the standard ones of
// lower priority.
func WithInitializers(inits ...Initializer) Option {
	return func(o *options) { o.initializers = append(o.initializers, inits...) }
}

// GetStandardInitializers returns all built-in initializers sorted by priority
func GetStandardInitializers() []Initializer {
	initializers := []Initializer{
		&ClockInitializer{},
	}
	sortByPriority(initializers)
	return initializers
}

func sortByPriority(initializers []Initializer) {
	sort.SliceStable(initializers, func(i, j int) bool {
		return initializers[i].Priority() < initializers[j].Priority()
	})
}

// Install defines every native into env, normally a session's globals.
// Defining the same name twice is an error.
func Install(env *interpreter.Environment, opts ...Option) error {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	initializers := append(GetStandardInitializers(), o.initializers...)
	sortByPriority(initializers)

	defined := make(map[string]string)
	ctx := &RuntimeContext{
		Now: o.now,
	}
	for _, init := range initializers {
		owner := init.Name()
		ctx.DefineGlobal = func(name string, value interpreter.Value) error {
			if prev, exists := defined[name]; exists {
				return fmt.Errorf("global %q already defined by %s", name, prev)
			}
			defined[name] = owner
			env.Define(name, value)
			return nil
		}
		if err := init.Install(ctx); err != nil {
			return fmt.Errorf("failed to install %s builtins: %w", owner, err)
		}
	}
	return nil
}
