package interpreter

import (
	"treelox/pkg/errors"
	"treelox/pkg/parser"
)

// Callable is anything that can appear before '(' at runtime.
type Callable interface {
	Name() string
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
}

// --- Native functions ---

// NativeFn is the Go side of a native function. Returning an error that is
// not a *errors.RuntimeError makes the interpreter wrap it at the call site.
type NativeFn func(args []Value) (Value, error)

type NativeFunction struct {
	name  string
	arity int
	fn    NativeFn
}

func NewNativeFunction(name string, arity int, fn NativeFn) *NativeFunction {
	return &NativeFunction{name: name, arity: arity, fn: fn}
}

func (n *NativeFunction) Name() string { return n.name }
func (n *NativeFunction) Arity() int   { return n.arity }

func (n *NativeFunction) Call(_ *Interpreter, args []Value) (Value, error) {
	return n.fn(args)
}

// --- User functions ---

// Function is a declared or anonymous Lox function paired with the
// environment it closed over.
type Function struct {
	declaration   *parser.FunctionLiteral
	closure       *Environment
	isInitializer bool
}

func NewFunction(declaration *parser.FunctionLiteral, closure *Environment, isInitializer bool) *Function {
	return &Function{declaration: declaration, closure: closure, isInitializer: isInitializer}
}

func (f *Function) Name() string { return f.declaration.Name }
func (f *Function) Arity() int   { return len(f.declaration.Params) }

func (f *Function) String() string {
	if f.declaration.Name == "" {
		return "<fn>"
	}
	return "<fn " + f.declaration.Name + ">"
}

// Bind returns a copy of f whose closure defines "this" as instance.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnclosedEnvironment(f.closure)
	env.Define("this", NewInstanceValue(instance))
	return NewFunction(f.declaration, env, f.isInitializer)
}

func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnclosedEnvironment(f.closure)
	for i, param := range f.declaration.Params {
		env.Define(param.Lexeme, args[i])
	}

	out, err := in.executeBlock(f.declaration.Body, env)
	if err != nil {
		return Nil, err
	}
	// An initializer always yields its instance, even after a bare return.
	if f.isInitializer {
		this, _ := f.closure.GetAt(0, "this")
		return this, nil
	}
	if out.kind == outcomeReturn {
		return out.value, nil
	}
	return Nil, nil
}

// --- Classes ---

type Class struct {
	name       string
	superclass *Class
	methods    map[string]*Function
}

func NewClass(name string, superclass *Class, methods map[string]*Function) *Class {
	return &Class{name: name, superclass: superclass, methods: methods}
}

func (c *Class) Name() string       { return c.name }
func (c *Class) Superclass() *Class { return c.superclass }

// FindMethod looks name up on the class and then along its superclasses.
func (c *Class) FindMethod(name string) (*Function, bool) {
	for class := c; class != nil; class = class.superclass {
		if method, ok := class.methods[name]; ok {
			return method, true
		}
	}
	return nil, false
}

// Arity of a class is the arity of its initializer, or zero without one.
func (c *Class) Arity() int {
	if init, ok := c.FindMethod("init"); ok {
		return init.Arity()
	}
	return 0
}

// Call constructs a new instance and runs init on it when present.
func (c *Class) Call(in *Interpreter, args []Value) (Value, error) {
	instance := NewInstance(c)
	if init, ok := c.FindMethod("init"); ok {
		if _, err := init.Bind(instance).Call(in, args); err != nil {
			return Nil, err
		}
	}
	return NewInstanceValue(instance), nil
}

// --- Instances ---

type Instance struct {
	class  *Class
	fields map[string]Value
}

func NewInstance(class *Class) *Instance {
	return &Instance{class: class, fields: make(map[string]Value)}
}

func (i *Instance) Class() *Class { return i.class }

func (i *Instance) String() string {
	return i.class.name + " instance"
}

// Get returns a field, or else a method bound to this instance. Fields
// shadow methods of the same name.
func (i *Instance) Get(name string) (Value, bool) {
	if v, ok := i.fields[name]; ok {
		return v, true
	}
	if method, ok := i.class.FindMethod(name); ok {
		return NewFunctionValue(method.Bind(i)), true
	}
	return Nil, false
}

func (i *Instance) Set(name string, value Value) {
	i.fields[name] = value
}

// propertyError builds the error for a missing property on an instance.
func propertyError(pos errors.Position, name string) *errors.RuntimeError {
	return errors.NewRuntimeError(pos, "Undefined property '"+name+"'.")
}
