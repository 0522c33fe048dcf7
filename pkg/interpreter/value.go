package interpreter

import (
	"math"
	"strconv"
)

type ValueType uint8

const (
	TypeNil ValueType = iota
	TypeBoolean
	TypeNumber
	TypeString
	TypeNativeFunction
	TypeFunction
	TypeClass
	TypeInstance
)

// String returns a human-readable name for the value type.
func (vt ValueType) String() string {
	switch vt {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeNativeFunction:
		return "native function"
	case TypeFunction:
		return "function"
	case TypeClass:
		return "class"
	case TypeInstance:
		return "instance"
	default:
		return "<unknown type>"
	}
}

// Value is a Lox runtime value. The zero Value is nil.
type Value struct {
	typ     ValueType
	boolean bool
	number  float64
	str     string
	obj     any // *NativeFunction, *Function, *Class or *Instance
}

var (
	Nil   = Value{typ: TypeNil}
	True  = Value{typ: TypeBoolean, boolean: true}
	False = Value{typ: TypeBoolean, boolean: false}
)

func NumberValue(value float64) Value {
	return Value{typ: TypeNumber, number: value}
}

func BooleanValue(value bool) Value {
	if value {
		return True
	}
	return False
}

func NewString(value string) Value {
	return Value{typ: TypeString, str: value}
}

func NewNativeFunctionValue(fn *NativeFunction) Value {
	return Value{typ: TypeNativeFunction, obj: fn}
}

func NewFunctionValue(fn *Function) Value {
	return Value{typ: TypeFunction, obj: fn}
}

func NewClassValue(class *Class) Value {
	return Value{typ: TypeClass, obj: class}
}

func NewInstanceValue(instance *Instance) Value {
	return Value{typ: TypeInstance, obj: instance}
}

// fromLiteral converts a parsed literal (nil, bool, float64, string).
func fromLiteral(v any) Value {
	switch lit := v.(type) {
	case bool:
		return BooleanValue(lit)
	case float64:
		return NumberValue(lit)
	case string:
		return NewString(lit)
	}
	return Nil
}

// --- Type checks ---

func (v Value) Type() ValueType  { return v.typ }
func (v Value) IsNil() bool      { return v.typ == TypeNil }
func (v Value) IsBoolean() bool  { return v.typ == TypeBoolean }
func (v Value) IsNumber() bool   { return v.typ == TypeNumber }
func (v Value) IsString() bool   { return v.typ == TypeString }
func (v Value) IsInstance() bool { return v.typ == TypeInstance }

// IsCallable reports whether the value can appear in call position.
func (v Value) IsCallable() bool {
	switch v.typ {
	case TypeNativeFunction, TypeFunction, TypeClass:
		return true
	}
	return false
}

// --- Accessors ---

func (v Value) AsBoolean() bool  { return v.boolean }
func (v Value) AsFloat() float64 { return v.number }
func (v Value) AsString() string { return v.str }

func (v Value) AsFunction() *Function {
	fn, _ := v.obj.(*Function)
	return fn
}

func (v Value) AsNativeFunction() *NativeFunction {
	fn, _ := v.obj.(*NativeFunction)
	return fn
}

func (v Value) AsClass() *Class {
	class, _ := v.obj.(*Class)
	return class
}

func (v Value) AsInstance() *Instance {
	instance, _ := v.obj.(*Instance)
	return instance
}

// AsCallable returns the value as a Callable when it is one.
func (v Value) AsCallable() (Callable, bool) {
	switch v.typ {
	case TypeNativeFunction:
		return v.AsNativeFunction(), true
	case TypeFunction:
		return v.AsFunction(), true
	case TypeClass:
		return v.AsClass(), true
	}
	return nil, false
}

// IsTruthy is false only for nil and false.
func (v Value) IsTruthy() bool {
	switch v.typ {
	case TypeNil:
		return false
	case TypeBoolean:
		return v.boolean
	}
	return true
}

// --- Equality ---

// Equals implements Lox ==. Values of different types are never equal.
// Numbers follow IEEE comparison, so NaN is not equal to itself. Functions,
// classes and instances compare by identity.
func (v Value) Equals(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNil:
		return true
	case TypeBoolean:
		return v.boolean == other.boolean
	case TypeNumber:
		return v.number == other.number
	case TypeString:
		return v.str == other.str
	}
	return v.obj == other.obj
}

// --- Printing ---

// String returns the form `print` writes.
func (v Value) String() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return strconv.FormatBool(v.boolean)
	case TypeNumber:
		return formatNumber(v.number)
	case TypeString:
		return v.str
	case TypeNativeFunction:
		return "<native fn>"
	case TypeFunction:
		return v.AsFunction().String()
	case TypeClass:
		return v.AsClass().Name()
	case TypeInstance:
		return v.AsInstance().String()
	}
	return "<unknown>"
}

// Inspect is like String but quotes strings. The REPL echoes values this way.
func (v Value) Inspect() string {
	if v.typ == TypeString {
		return strconv.Quote(v.str)
	}
	return v.String()
}

// formatNumber prints integral values without a fractional part and uses
// exponent notation only for very large or very small magnitudes.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs >= 1e21 || (abs != 0 && abs < 1e-6) {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cleanExponentialFormat strips leading zeros from the exponent:
// "1e-07" -> "1e-7", "1e+25" stays.
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != 'e' {
			continue
		}
		if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
			j := i + 2
			for j < len(s)-1 && s[j] == '0' {
				j++
			}
			return s[:i+2] + s[j:]
		}
		break
	}
	return s
}
