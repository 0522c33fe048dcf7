package resolver

import (
	"treelox/pkg/errors"
	"treelox/pkg/lexer"
	"treelox/pkg/parser"
)

func (r *Resolver) addError(node parser.Node, message string) {
	r.addErrorAt(GetTokenFromNode(node), message)
}

func (r *Resolver) addErrorAt(tok lexer.Token, message string) {
	where := " at '" + tok.Lexeme + "'"
	if tok.Type == lexer.EOF {
		where = " at end"
	}
	r.errors = append(r.errors, errors.NewSyntaxError(tok.Pos(), where, message))
}

// GetTokenFromNode returns the token that best identifies node in a
// diagnostic. It returns the zero Token for nodes without one.
func GetTokenFromNode(node parser.Node) lexer.Token {
	switch n := node.(type) {
	// Statements
	case *parser.ExpressionStatement:
		return n.Token
	case *parser.PrintStatement:
		return n.Token
	case *parser.VarStatement:
		return n.Name
	case *parser.BlockStatement:
		return n.Token
	case *parser.IfStatement:
		return n.Token
	case *parser.WhileStatement:
		return n.Token
	case *parser.FunctionStatement:
		return n.Function.Token
	case *parser.ReturnStatement:
		return n.Keyword
	case *parser.ClassStatement:
		return n.Name
	case *parser.BreakStatement:
		return n.Keyword
	case *parser.ContinueStatement:
		return n.Keyword

	// Expressions
	case *parser.Literal:
		return n.Token
	case *parser.Grouping:
		return n.Token
	case *parser.Variable:
		return n.Name
	case *parser.Assign:
		return n.Name
	case *parser.Unary:
		return n.Operator
	case *parser.Binary:
		return n.Operator
	case *parser.Logical:
		return n.Operator
	case *parser.Call:
		return n.Paren
	case *parser.Get:
		return n.Name
	case *parser.Set:
		return n.Name
	case *parser.This:
		return n.Keyword
	case *parser.Super:
		return n.Keyword
	case *parser.FunctionLiteral:
		return n.Token
	}
	return lexer.Token{}
}
