package interpreter

// Environment is one frame of the variable chain. Globals live in the
// outermost frame; every block and call adds a frame on top of its
// enclosing one.
type Environment struct {
	values    map[string]Value
	enclosing *Environment
}

// NewEnvironment creates an outermost environment.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]Value)}
}

// NewEnclosedEnvironment creates a frame nested inside outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.enclosing = outer
	return env
}

// Enclosing returns the parent frame, or nil for the outermost one.
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define binds name in this frame, replacing any previous binding here.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get looks name up along the chain, innermost frame first.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.values[name]; ok {
			return v, true
		}
	}
	return Nil, false
}

// Assign rebinds an existing name along the chain. It reports false if no
// frame defines name.
func (e *Environment) Assign(name string, value Value) bool {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name]; ok {
			env.values[name] = value
			return true
		}
	}
	return false
}

// Ancestor walks distance frames outward. It returns nil if the chain is
// shorter than that.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance && env != nil; i++ {
		env = env.enclosing
	}
	return env
}

// GetAt reads name from the frame exactly distance frames out.
func (e *Environment) GetAt(distance int, name string) (Value, bool) {
	env := e.Ancestor(distance)
	if env == nil {
		return Nil, false
	}
	v, ok := env.values[name]
	return v, ok
}

// AssignAt writes name in the frame exactly distance frames out.
func (e *Environment) AssignAt(distance int, name string, value Value) bool {
	env := e.Ancestor(distance)
	if env == nil {
		return false
	}
	if _, ok := env.values[name]; !ok {
		return false
	}
	env.values[name] = value
	return true
}

// Names returns the names bound directly in this frame.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	return names
}
