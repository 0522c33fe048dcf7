package resolver

import (
	"fmt"
	"treelox/pkg/errors"
	"treelox/pkg/lexer"
	"treelox/pkg/parser"
)

const debugResolver = false

func debugPrintf(format string, args ...interface{}) {
	if debugResolver {
		fmt.Printf("[Resolver] "+format, args...)
	}
}

type functionType int

const (
	functionNone functionType = iota
	functionFunction
	functionMethod
	functionInitializer
)

type classType int

const (
	classNone classType = iota
	classClass
	classSubclass
)

// Resolver binds every variable reference to the number of scopes between
// it and its declaration. It writes the result into the Depth field of
// Variable, Assign, This and Super nodes and never touches runtime values.
type Resolver struct {
	scopes          scopeStack
	currentFunction functionType
	currentClass    classType
	loopDepth       int
	errors          []errors.LoxError
}

// NewResolver creates a resolver. A resolver can be reused; each call to
// Resolve starts from a clean state.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve annotates program in place and returns the static errors found.
// Running it again over the same program yields the same annotations and
// the same errors.
func Resolve(program *parser.Program) []errors.LoxError {
	return NewResolver().Resolve(program)
}

// Resolve annotates program in place. See the package-level Resolve.
func (r *Resolver) Resolve(program *parser.Program) []errors.LoxError {
	r.scopes = nil
	r.currentFunction = functionNone
	r.currentClass = classNone
	r.loopDepth = 0
	r.errors = nil

	if program != nil {
		r.resolveStatements(program.Statements)
	}
	debugPrintf("done, %d errors\n", len(r.errors))
	return r.errors
}

func (r *Resolver) resolveStatements(stmts []parser.Statement) {
	for _, stmt := range stmts {
		r.resolveStatement(stmt)
	}
}

func (r *Resolver) resolveStatement(stmt parser.Statement) {
	switch node := stmt.(type) {
	case *parser.BlockStatement:
		r.scopes.begin()
		r.resolveStatements(node.Statements)
		r.scopes.end()

	case *parser.VarStatement:
		r.declare(node.Name)
		if node.Initializer != nil {
			r.resolveExpression(node.Initializer)
		}
		r.define(node.Name)

	case *parser.FunctionStatement:
		// Defined before the body so the function can call itself.
		r.declare(node.Function.Token)
		r.define(node.Function.Token)
		r.resolveFunction(node.Function, functionFunction)

	case *parser.ClassStatement:
		r.resolveClass(node)

	case *parser.ExpressionStatement:
		r.resolveExpression(node.Expression)

	case *parser.PrintStatement:
		r.resolveExpression(node.Expression)

	case *parser.IfStatement:
		r.resolveExpression(node.Condition)
		r.resolveStatement(node.Consequence)
		if node.Alternative != nil {
			r.resolveStatement(node.Alternative)
		}

	case *parser.WhileStatement:
		r.resolveExpression(node.Condition)
		r.loopDepth++
		r.resolveStatement(node.Body)
		if node.Increment != nil {
			r.resolveExpression(node.Increment)
		}
		r.loopDepth--

	case *parser.ReturnStatement:
		if r.currentFunction == functionNone {
			r.addError(node, "Can't return from top-level code.")
		}
		if node.Value != nil {
			if r.currentFunction == functionInitializer {
				r.addError(node, "Can't return a value from an initializer.")
			}
			r.resolveExpression(node.Value)
		}

	case *parser.BreakStatement:
		if r.loopDepth == 0 {
			r.addError(node, "Can't use 'break' outside of a loop.")
		}

	case *parser.ContinueStatement:
		if r.loopDepth == 0 {
			r.addError(node, "Can't use 'continue' outside of a loop.")
		}

	default:
		panic(fmt.Sprintf("resolver: unhandled statement %T", stmt))
	}
}

func (r *Resolver) resolveClass(node *parser.ClassStatement) {
	enclosingClass := r.currentClass
	r.currentClass = classClass
	defer func() { r.currentClass = enclosingClass }()

	r.declare(node.Name)
	r.define(node.Name)

	if node.Superclass != nil {
		if node.Superclass.Name.Lexeme == node.Name.Lexeme {
			r.addError(node.Superclass, "A class can't inherit from itself.")
		}
		r.currentClass = classSubclass
		r.resolveExpression(node.Superclass)

		r.scopes.begin()
		r.scopes.top()["super"] = true
		defer r.scopes.end()
	}

	r.scopes.begin()
	r.scopes.top()["this"] = true
	for _, method := range node.Methods {
		kind := functionMethod
		if method.Name == "init" {
			kind = functionInitializer
		}
		r.resolveFunction(method, kind)
	}
	r.scopes.end()
}

// resolveFunction opens the parameter scope and resolves the body. Loops do
// not extend into nested functions, so break/continue inside a function
// body cannot reach a loop outside it.
func (r *Resolver) resolveFunction(fn *parser.FunctionLiteral, kind functionType) {
	enclosingFunction, enclosingLoop := r.currentFunction, r.loopDepth
	r.currentFunction, r.loopDepth = kind, 0

	r.scopes.begin()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.resolveStatements(fn.Body)
	r.scopes.end()

	r.currentFunction, r.loopDepth = enclosingFunction, enclosingLoop
}

func (r *Resolver) resolveExpression(expr parser.Expression) {
	switch node := expr.(type) {
	case *parser.Variable:
		if defined, ok := r.scopes.lookupInnermost(node.Name.Lexeme); ok && !defined {
			r.addError(node, "Can't read local variable in its own initializer.")
		}
		node.Depth = r.scopes.distance(node.Name.Lexeme)

	case *parser.Assign:
		r.resolveExpression(node.Value)
		node.Depth = r.scopes.distance(node.Name.Lexeme)

	case *parser.Binary:
		r.resolveExpression(node.Left)
		r.resolveExpression(node.Right)

	case *parser.Logical:
		r.resolveExpression(node.Left)
		r.resolveExpression(node.Right)

	case *parser.Unary:
		r.resolveExpression(node.Right)

	case *parser.Grouping:
		r.resolveExpression(node.Expression)

	case *parser.Literal:

	case *parser.Call:
		r.resolveExpression(node.Callee)
		for _, arg := range node.Arguments {
			r.resolveExpression(arg)
		}

	case *parser.Get:
		r.resolveExpression(node.Object)

	case *parser.Set:
		r.resolveExpression(node.Value)
		r.resolveExpression(node.Object)

	case *parser.This:
		if r.currentClass == classNone {
			r.addError(node, "Can't use 'this' outside of a class.")
		}
		node.Depth = r.scopes.distance("this")

	case *parser.Super:
		switch r.currentClass {
		case classNone:
			r.addError(node, "Can't use 'super' outside of a class.")
		case classClass:
			r.addError(node, "Can't use 'super' in a class with no superclass.")
		}
		node.Depth = r.scopes.distance("super")

	case *parser.FunctionLiteral:
		r.resolveFunction(node, functionFunction)

	default:
		panic(fmt.Sprintf("resolver: unhandled expression %T", expr))
	}
}

// declare adds name to the innermost scope as not yet usable. Globals are
// not tracked, so redeclaring one is allowed.
func (r *Resolver) declare(name lexer.Token) {
	scope := r.scopes.top()
	if scope == nil {
		return
	}
	if _, exists := scope[name.Lexeme]; exists {
		r.addErrorAt(name, "Already a variable with this name in this scope.")
	}
	scope[name.Lexeme] = false
}

func (r *Resolver) define(name lexer.Token) {
	if scope := r.scopes.top(); scope != nil {
		scope[name.Lexeme] = true
	}
}
