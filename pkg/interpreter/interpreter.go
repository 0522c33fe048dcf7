package interpreter

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"treelox/pkg/errors"
	"treelox/pkg/lexer"
	"treelox/pkg/parser"
)

const debugInterp = false

func debugPrintf(format string, args ...interface{}) {
	if debugInterp {
		fmt.Printf("[Interp] "+format, args...)
	}
}

// DefaultMaxDepth bounds the number of nested Lox calls.
const DefaultMaxDepth = 4096

type outcomeKind uint8

const (
	outcomeNormal outcomeKind = iota
	outcomeReturn
	outcomeBreak
	outcomeContinue
)

// outcome is how a statement finished. value is set only for outcomeReturn.
type outcome struct {
	kind  outcomeKind
	value Value
}

var normal = outcome{kind: outcomeNormal}

type Option func(*Interpreter)

// WithOutput sets where print writes. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithMaxDepth sets the call depth limit. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// Interpreter evaluates resolved programs against a global environment.
// It is not safe for concurrent use.
type Interpreter struct {
	globals  *Environment
	env      *Environment
	out      io.Writer
	maxDepth int
	depth    int
	ctx      context.Context
}

// NewInterpreter creates an interpreter over globals. A nil globals gets a
// fresh, empty environment.
func NewInterpreter(globals *Environment, opts ...Option) *Interpreter {
	if globals == nil {
		globals = NewEnvironment()
	}
	in := &Interpreter{
		globals:  globals,
		env:      globals,
		out:      os.Stdout,
		maxDepth: DefaultMaxDepth,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Interpreter) Globals() *Environment { return in.globals }

// Context returns the context of the run in progress.
func (in *Interpreter) Context() context.Context { return in.ctx }

// Interpret runs every statement of program in order. The first runtime
// error stops execution and is returned.
func (in *Interpreter) Interpret(ctx context.Context, program *parser.Program) error {
	if program == nil {
		return nil
	}
	for _, stmt := range program.Statements {
		if _, err := in.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs one top-level statement. For an expression statement it
// returns the value of the expression, and Nil otherwise. After a runtime
// error the interpreter is back at global scope and can keep going.
func (in *Interpreter) Execute(ctx context.Context, stmt parser.Statement) (Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	in.ctx = ctx
	in.env = in.globals
	in.depth = 0

	if es, ok := stmt.(*parser.ExpressionStatement); ok {
		v, err := in.evaluate(es.Expression)
		if err != nil {
			in.reset()
			return Nil, err
		}
		return v, nil
	}
	if _, err := in.execute(stmt); err != nil {
		in.reset()
		return Nil, err
	}
	return Nil, nil
}

func (in *Interpreter) reset() {
	in.env = in.globals
	in.depth = 0
}

// --- Statements ---

func (in *Interpreter) execute(stmt parser.Statement) (outcome, error) {
	switch node := stmt.(type) {
	case *parser.ExpressionStatement:
		if _, err := in.evaluate(node.Expression); err != nil {
			return normal, err
		}
		return normal, nil

	case *parser.PrintStatement:
		v, err := in.evaluate(node.Expression)
		if err != nil {
			return normal, err
		}
		fmt.Fprintln(in.out, v.String())
		return normal, nil

	case *parser.VarStatement:
		value := Nil
		if node.Initializer != nil {
			v, err := in.evaluate(node.Initializer)
			if err != nil {
				return normal, err
			}
			value = v
		}
		in.env.Define(node.Name.Lexeme, value)
		return normal, nil

	case *parser.BlockStatement:
		return in.executeBlock(node.Statements, NewEnclosedEnvironment(in.env))

	case *parser.IfStatement:
		cond, err := in.evaluate(node.Condition)
		if err != nil {
			return normal, err
		}
		if cond.IsTruthy() {
			return in.execute(node.Consequence)
		}
		if node.Alternative != nil {
			return in.execute(node.Alternative)
		}
		return normal, nil

	case *parser.WhileStatement:
		return in.executeWhile(node)

	case *parser.FunctionStatement:
		fn := NewFunction(node.Function, in.env, false)
		in.env.Define(node.Function.Name, NewFunctionValue(fn))
		return normal, nil

	case *parser.ReturnStatement:
		value := Nil
		if node.Value != nil {
			v, err := in.evaluate(node.Value)
			if err != nil {
				return normal, err
			}
			value = v
		}
		return outcome{kind: outcomeReturn, value: value}, nil

	case *parser.ClassStatement:
		return normal, in.executeClass(node)

	case *parser.BreakStatement:
		return outcome{kind: outcomeBreak}, nil

	case *parser.ContinueStatement:
		return outcome{kind: outcomeContinue}, nil
	}
	panic(fmt.Sprintf("interpreter: unhandled statement %T", stmt))
}

// executeBlock runs stmts in env and restores the previous environment
// however the block finishes.
func (in *Interpreter) executeBlock(stmts []parser.Statement, env *Environment) (outcome, error) {
	previous := in.env
	in.env = env
	defer func() { in.env = previous }()

	for _, stmt := range stmts {
		out, err := in.execute(stmt)
		if err != nil || out.kind != outcomeNormal {
			return out, err
		}
	}
	return normal, nil
}

func (in *Interpreter) executeWhile(node *parser.WhileStatement) (outcome, error) {
	for {
		if err := in.checkContext(node.Token); err != nil {
			return normal, err
		}
		cond, err := in.evaluate(node.Condition)
		if err != nil {
			return normal, err
		}
		if !cond.IsTruthy() {
			return normal, nil
		}

		out, err := in.execute(node.Body)
		if err != nil {
			return normal, err
		}
		switch out.kind {
		case outcomeBreak:
			return normal, nil
		case outcomeReturn:
			return out, nil
		}

		// Normal completion and continue both run the increment.
		if node.Increment != nil {
			if _, err := in.evaluate(node.Increment); err != nil {
				return normal, err
			}
		}
	}
}

func (in *Interpreter) executeClass(node *parser.ClassStatement) error {
	var superclass *Class
	if node.Superclass != nil {
		v, err := in.evaluate(node.Superclass)
		if err != nil {
			return err
		}
		if v.Type() != TypeClass {
			return in.runtimeError(node.Superclass.Name, "Superclass must be a class.")
		}
		superclass = v.AsClass()
	}

	in.env.Define(node.Name.Lexeme, Nil)

	methodEnv := in.env
	if superclass != nil {
		methodEnv = NewEnclosedEnvironment(in.env)
		methodEnv.Define("super", NewClassValue(superclass))
	}

	methods := make(map[string]*Function, len(node.Methods))
	for _, method := range node.Methods {
		methods[method.Name] = NewFunction(method, methodEnv, method.Name == "init")
	}

	class := NewClass(node.Name.Lexeme, superclass, methods)
	in.env.Assign(node.Name.Lexeme, NewClassValue(class))
	debugPrintf("defined class %s (%d methods)\n", class.Name(), len(methods))
	return nil
}

// --- Expressions ---

func (in *Interpreter) evaluate(expr parser.Expression) (Value, error) {
	switch node := expr.(type) {
	case *parser.Literal:
		return fromLiteral(node.Value), nil

	case *parser.Grouping:
		return in.evaluate(node.Expression)

	case *parser.Variable:
		return in.lookUpVariable(node.Name, node.Depth)

	case *parser.Assign:
		value, err := in.evaluate(node.Value)
		if err != nil {
			return Nil, err
		}
		var ok bool
		if node.Depth == parser.Global {
			ok = in.globals.Assign(node.Name.Lexeme, value)
		} else {
			ok = in.env.AssignAt(node.Depth, node.Name.Lexeme, value)
		}
		if !ok {
			return Nil, in.undefinedVariable(node.Name)
		}
		return value, nil

	case *parser.Unary:
		return in.evaluateUnary(node)

	case *parser.Binary:
		return in.evaluateBinary(node)

	case *parser.Logical:
		left, err := in.evaluate(node.Left)
		if err != nil {
			return Nil, err
		}
		if node.Operator.Type == lexer.OR {
			if left.IsTruthy() {
				return left, nil
			}
		} else if !left.IsTruthy() {
			return left, nil
		}
		return in.evaluate(node.Right)

	case *parser.Call:
		return in.evaluateCall(node)

	case *parser.Get:
		object, err := in.evaluate(node.Object)
		if err != nil {
			return Nil, err
		}
		if !object.IsInstance() {
			return Nil, in.runtimeError(node.Name, "Only instances have properties.")
		}
		if v, ok := object.AsInstance().Get(node.Name.Lexeme); ok {
			return v, nil
		}
		return Nil, propertyError(node.Name.Pos(), node.Name.Lexeme)

	case *parser.Set:
		object, err := in.evaluate(node.Object)
		if err != nil {
			return Nil, err
		}
		if !object.IsInstance() {
			return Nil, in.runtimeError(node.Name, "Only instances have fields.")
		}
		value, err := in.evaluate(node.Value)
		if err != nil {
			return Nil, err
		}
		object.AsInstance().Set(node.Name.Lexeme, value)
		return value, nil

	case *parser.This:
		return in.lookUpVariable(node.Keyword, node.Depth)

	case *parser.Super:
		return in.evaluateSuper(node)

	case *parser.FunctionLiteral:
		return NewFunctionValue(NewFunction(node, in.env, false)), nil
	}
	panic(fmt.Sprintf("interpreter: unhandled expression %T", expr))
}

func (in *Interpreter) lookUpVariable(name lexer.Token, depth int) (Value, error) {
	var (
		v  Value
		ok bool
	)
	if depth == parser.Global {
		v, ok = in.globals.Get(name.Lexeme)
	} else {
		v, ok = in.env.GetAt(depth, name.Lexeme)
	}
	if !ok {
		return Nil, in.undefinedVariable(name)
	}
	return v, nil
}

func (in *Interpreter) evaluateUnary(node *parser.Unary) (Value, error) {
	right, err := in.evaluate(node.Right)
	if err != nil {
		return Nil, err
	}
	switch node.Operator.Type {
	case lexer.BANG:
		return BooleanValue(!right.IsTruthy()), nil
	case lexer.MINUS:
		if !right.IsNumber() {
			return Nil, in.runtimeError(node.Operator, "Operand must be a number.")
		}
		return NumberValue(-right.AsFloat()), nil
	}
	panic(fmt.Sprintf("interpreter: unknown unary operator %s", node.Operator.Type))
}

func (in *Interpreter) evaluateBinary(node *parser.Binary) (Value, error) {
	left, err := in.evaluate(node.Left)
	if err != nil {
		return Nil, err
	}
	right, err := in.evaluate(node.Right)
	if err != nil {
		return Nil, err
	}

	switch node.Operator.Type {
	case lexer.EQ:
		return BooleanValue(left.Equals(right)), nil
	case lexer.NOT_EQ:
		return BooleanValue(!left.Equals(right)), nil
	case lexer.PLUS:
		switch {
		case left.IsNumber() && right.IsNumber():
			return NumberValue(left.AsFloat() + right.AsFloat()), nil
		case left.IsString() && right.IsString():
			return NewString(left.AsString() + right.AsString()), nil
		}
		return Nil, in.runtimeError(node.Operator, "Operands must be two numbers or two strings.")
	}

	if !left.IsNumber() || !right.IsNumber() {
		return Nil, in.runtimeError(node.Operator, "Operands must be numbers.")
	}
	l, r := left.AsFloat(), right.AsFloat()
	switch node.Operator.Type {
	case lexer.MINUS:
		return NumberValue(l - r), nil
	case lexer.ASTERISK:
		return NumberValue(l * r), nil
	case lexer.SLASH:
		return NumberValue(l / r), nil
	case lexer.GT:
		return BooleanValue(l > r), nil
	case lexer.GE:
		return BooleanValue(l >= r), nil
	case lexer.LT:
		return BooleanValue(l < r), nil
	case lexer.LE:
		return BooleanValue(l <= r), nil
	}
	panic(fmt.Sprintf("interpreter: unknown binary operator %s", node.Operator.Type))
}

func (in *Interpreter) evaluateCall(node *parser.Call) (Value, error) {
	callee, err := in.evaluate(node.Callee)
	if err != nil {
		return Nil, err
	}
	args := make([]Value, 0, len(node.Arguments))
	for _, arg := range node.Arguments {
		v, err := in.evaluate(arg)
		if err != nil {
			return Nil, err
		}
		args = append(args, v)
	}

	fn, ok := callee.AsCallable()
	if !ok {
		return Nil, in.runtimeError(node.Paren, "Can only call functions and classes.")
	}
	if len(args) != fn.Arity() {
		return Nil, in.runtimeError(node.Paren,
			fmt.Sprintf("Expected %d arguments but got %d.", fn.Arity(), len(args)))
	}
	return in.call(fn, args, node.Paren)
}

// call invokes fn with the depth limit and cancellation checks applied.
func (in *Interpreter) call(fn Callable, args []Value, paren lexer.Token) (Value, error) {
	if in.depth >= in.maxDepth {
		return Nil, in.runtimeError(paren, "Stack overflow.")
	}
	if err := in.checkContext(paren); err != nil {
		return Nil, err
	}

	in.depth++
	defer func() { in.depth-- }()

	result, err := fn.Call(in, args)
	if err != nil {
		var rtErr *errors.RuntimeError
		if stderrors.As(err, &rtErr) {
			return Nil, err
		}
		return Nil, errors.NewRuntimeError(paren.Pos(), err.Error()).CausedBy(err)
	}
	return result, nil
}

func (in *Interpreter) evaluateSuper(node *parser.Super) (Value, error) {
	sv, ok := in.env.GetAt(node.Depth, "super")
	if !ok || sv.Type() != TypeClass {
		return Nil, in.runtimeError(node.Keyword, "Undefined variable 'super'.")
	}
	this, ok := in.env.GetAt(node.Depth-1, "this")
	if !ok || !this.IsInstance() {
		return Nil, in.runtimeError(node.Keyword, "Undefined variable 'this'.")
	}

	method, ok := sv.AsClass().FindMethod(node.Method.Lexeme)
	if !ok {
		return Nil, propertyError(node.Method.Pos(), node.Method.Lexeme)
	}
	return NewFunctionValue(method.Bind(this.AsInstance())), nil
}

// --- Errors ---

func (in *Interpreter) runtimeError(tok lexer.Token, msg string) error {
	return errors.NewRuntimeError(tok.Pos(), msg)
}

func (in *Interpreter) undefinedVariable(name lexer.Token) error {
	return in.runtimeError(name, "Undefined variable '"+name.Lexeme+"'.")
}

// checkContext turns a cancelled or expired context into a runtime error.
func (in *Interpreter) checkContext(tok lexer.Token) error {
	if err := in.ctx.Err(); err != nil {
		debugPrintf("interrupted at line %d: %v\n", tok.Line, err)
		return errors.NewRuntimeError(tok.Pos(), "Execution interrupted.").CausedBy(err)
	}
	return nil
}
