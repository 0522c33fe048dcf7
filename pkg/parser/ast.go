package parser

import (
	"bytes"
	"strconv"
	"strings"
	"treelox/pkg/lexer"
)

// Global is the depth recorded on a reference the resolver did not find in
// any local scope. Such references are looked up in the global environment.
const Global = -1

// --- Interfaces ---

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string // Lexeme of the token associated with the node
	String() string       // S-expression form, for debugging and tests
}

// Statement represents a statement node in the AST. The set of statement
// types is closed: only this package implements statementNode.
type Statement interface {
	Node
	statementNode()
}

// Expression represents an expression node in the AST. Like Statement, the
// set is closed to this package.
type Expression interface {
	Node
	expressionNode()
}

// --- Program Node ---

// Program is the root node of the AST.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	parts := make([]string, len(p.Statements))
	for i, s := range p.Statements {
		parts[i] = s.String()
	}
	return strings.Join(parts, "\n")
}

// --- Expression Nodes ---

// Literal is nil, true, false, a number or a string.
type Literal struct {
	Token lexer.Token
	Value any // nil, bool, float64 or string
}

func (l *Literal) expressionNode()      {}
func (l *Literal) TokenLiteral() string { return l.Token.Lexeme }
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return strconv.Quote(v)
	}
	return l.Token.Lexeme
}

// Grouping is a parenthesized expression.
type Grouping struct {
	Token      lexer.Token // The '(' token
	Expression Expression
}

func (g *Grouping) expressionNode()      {}
func (g *Grouping) TokenLiteral() string { return g.Token.Lexeme }
func (g *Grouping) String() string       { return "(group " + g.Expression.String() + ")" }

// Variable reads a named variable. Depth is filled in by the resolver.
type Variable struct {
	Name  lexer.Token
	Depth int
}

func (v *Variable) expressionNode()      {}
func (v *Variable) TokenLiteral() string { return v.Name.Lexeme }
func (v *Variable) String() string       { return v.Name.Lexeme }

// Assign writes a named variable. Depth is filled in by the resolver.
type Assign struct {
	Name  lexer.Token
	Value Expression
	Depth int
}

func (a *Assign) expressionNode()      {}
func (a *Assign) TokenLiteral() string { return a.Name.Lexeme }
func (a *Assign) String() string {
	return "(= " + a.Name.Lexeme + " " + a.Value.String() + ")"
}

// Unary is a prefix operator application: !x or -x.
type Unary struct {
	Operator lexer.Token
	Right    Expression
}

func (u *Unary) expressionNode()      {}
func (u *Unary) TokenLiteral() string { return u.Operator.Lexeme }
func (u *Unary) String() string {
	return "(" + u.Operator.Lexeme + " " + u.Right.String() + ")"
}

// Binary is an arithmetic, comparison or equality operation.
type Binary struct {
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (b *Binary) expressionNode()      {}
func (b *Binary) TokenLiteral() string { return b.Operator.Lexeme }
func (b *Binary) String() string {
	return "(" + b.Operator.Lexeme + " " + b.Left.String() + " " + b.Right.String() + ")"
}

// Logical is a short-circuiting and/or.
type Logical struct {
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (l *Logical) expressionNode()      {}
func (l *Logical) TokenLiteral() string { return l.Operator.Lexeme }
func (l *Logical) String() string {
	return "(" + l.Operator.Lexeme + " " + l.Left.String() + " " + l.Right.String() + ")"
}

// Call applies a callee to arguments. Paren is the closing ')' and is used to
// report errors raised by the call.
type Call struct {
	Callee    Expression
	Paren     lexer.Token
	Arguments []Expression
}

func (c *Call) expressionNode()      {}
func (c *Call) TokenLiteral() string { return c.Paren.Lexeme }
func (c *Call) String() string {
	var out bytes.Buffer
	out.WriteString("(call ")
	out.WriteString(c.Callee.String())
	for _, arg := range c.Arguments {
		out.WriteString(" ")
		out.WriteString(arg.String())
	}
	out.WriteString(")")
	return out.String()
}

// Get reads a property: object.name
type Get struct {
	Object Expression
	Name   lexer.Token
}

func (g *Get) expressionNode()      {}
func (g *Get) TokenLiteral() string { return g.Name.Lexeme }
func (g *Get) String() string {
	return "(. " + g.Object.String() + " " + g.Name.Lexeme + ")"
}

// Set writes a field: object.name = value
type Set struct {
	Object Expression
	Name   lexer.Token
	Value  Expression
}

func (s *Set) expressionNode()      {}
func (s *Set) TokenLiteral() string { return s.Name.Lexeme }
func (s *Set) String() string {
	return "(set " + s.Object.String() + " " + s.Name.Lexeme + " " + s.Value.String() + ")"
}

// This is the receiver inside a method body.
type This struct {
	Keyword lexer.Token
	Depth   int
}

func (t *This) expressionNode()      {}
func (t *This) TokenLiteral() string { return t.Keyword.Lexeme }
func (t *This) String() string       { return "this" }

// Super is a superclass method access: super.method
type Super struct {
	Keyword lexer.Token
	Method  lexer.Token
	Depth   int
}

func (s *Super) expressionNode()      {}
func (s *Super) TokenLiteral() string { return s.Keyword.Lexeme }
func (s *Super) String() string       { return "(super " + s.Method.Lexeme + ")" }

// FunctionLiteral is a function body with its parameters. It backs named
// function declarations, methods and anonymous `fun (a) { ... }` expressions.
type FunctionLiteral struct {
	Token  lexer.Token // The name token, or 'fun' for anonymous functions
	Name   string      // Empty for anonymous functions
	Params []lexer.Token
	Body   []Statement
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Lexeme }
func (fl *FunctionLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("(fun ")
	if fl.Name != "" {
		out.WriteString(fl.Name)
		out.WriteString(" ")
	}
	params := make([]string, len(fl.Params))
	for i, p := range fl.Params {
		params[i] = p.Lexeme
	}
	out.WriteString("(" + strings.Join(params, " ") + ")")
	for _, s := range fl.Body {
		out.WriteString(" ")
		out.WriteString(s.String())
	}
	out.WriteString(")")
	return out.String()
}

// --- Statement Nodes ---

// ExpressionStatement evaluates an expression for its side effects.
type ExpressionStatement struct {
	Token      lexer.Token // First token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) String() string       { return "(; " + es.Expression.String() + ")" }

// PrintStatement writes the string form of a value followed by a newline.
type PrintStatement struct {
	Token      lexer.Token
	Expression Expression
}

func (ps *PrintStatement) statementNode()       {}
func (ps *PrintStatement) TokenLiteral() string { return ps.Token.Lexeme }
func (ps *PrintStatement) String() string       { return "(print " + ps.Expression.String() + ")" }

// VarStatement declares a variable, optionally with an initializer.
type VarStatement struct {
	Name        lexer.Token
	Initializer Expression // nil when absent
}

func (vs *VarStatement) statementNode()       {}
func (vs *VarStatement) TokenLiteral() string { return vs.Name.Lexeme }
func (vs *VarStatement) String() string {
	if vs.Initializer == nil {
		return "(var " + vs.Name.Lexeme + ")"
	}
	return "(var " + vs.Name.Lexeme + " " + vs.Initializer.String() + ")"
}

// BlockStatement introduces a new lexical scope.
type BlockStatement struct {
	Token      lexer.Token // The '{' token, or 'for' for a desugared loop
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("(block")
	for _, s := range bs.Statements {
		out.WriteString(" ")
		out.WriteString(s.String())
	}
	out.WriteString(")")
	return out.String()
}

type IfStatement struct {
	Token       lexer.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement // nil without else
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStatement) String() string {
	out := "(if " + is.Condition.String() + " " + is.Consequence.String()
	if is.Alternative != nil {
		out += " " + is.Alternative.String()
	}
	return out + ")"
}

// WhileStatement loops while Condition is truthy. Loops desugared from `for`
// carry their increment separately so that `continue` still runs it.
type WhileStatement struct {
	Token     lexer.Token // 'while' or 'for'
	Condition Expression
	Body      Statement
	Increment Expression // nil for plain while loops
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Lexeme }
func (ws *WhileStatement) String() string {
	out := "(while " + ws.Condition.String() + " " + ws.Body.String()
	if ws.Increment != nil {
		out += " (step " + ws.Increment.String() + ")"
	}
	return out + ")"
}

// FunctionStatement binds a named function in the current scope.
type FunctionStatement struct {
	Function *FunctionLiteral
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Function.TokenLiteral() }
func (fs *FunctionStatement) String() string       { return fs.Function.String() }

type ReturnStatement struct {
	Keyword lexer.Token
	Value   Expression // nil for a bare return
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Keyword.Lexeme }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "(return)"
	}
	return "(return " + rs.Value.String() + ")"
}

// ClassStatement declares a class with an optional superclass.
type ClassStatement struct {
	Name       lexer.Token
	Superclass *Variable // nil without '<'
	Methods    []*FunctionLiteral
}

func (cs *ClassStatement) statementNode()       {}
func (cs *ClassStatement) TokenLiteral() string { return cs.Name.Lexeme }
func (cs *ClassStatement) String() string {
	var out bytes.Buffer
	out.WriteString("(class " + cs.Name.Lexeme)
	if cs.Superclass != nil {
		out.WriteString(" < " + cs.Superclass.Name.Lexeme)
	}
	for _, m := range cs.Methods {
		out.WriteString(" ")
		out.WriteString(m.String())
	}
	out.WriteString(")")
	return out.String()
}

type BreakStatement struct {
	Keyword lexer.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Keyword.Lexeme }
func (bs *BreakStatement) String() string       { return "(break)" }

type ContinueStatement struct {
	Keyword lexer.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Keyword.Lexeme }
func (cs *ContinueStatement) String() string       { return "(continue)" }
