package parser

import (
	"fmt"
	"treelox/pkg/errors"
	"treelox/pkg/lexer"
)

// --- Debug Flag ---
const debugParser = false

func debugPrint(format string, args ...interface{}) {
	if debugParser {
		fmt.Printf("[Parser Debug] "+format+"\n", args...)
	}
}

// --- End Debug Flag ---

// DumpASTEnabled turns on DumpAST output.
var DumpASTEnabled = false

// DumpAST prints the program in s-expression form when DumpASTEnabled is set.
func DumpAST(program *Program, label string) {
	if !DumpASTEnabled || program == nil {
		return
	}
	fmt.Printf("=== AST (%s) ===\n%s\n=== END AST ===\n", label, program.String())
}

const (
	maxErrors = 1000
	maxArity  = 255
)

// Parser builds an AST from a token sequence by recursive descent, one method
// per grammar level. Rules return nil after reporting an error; declaration
// then resynchronizes at the next statement boundary.
type Parser struct {
	tokens   []lexer.Token
	current  int
	errors   []errors.LoxError
	replMode bool
}

// NewParser drains l and prepares a parser over its tokens. Scan errors
// reported by the lexer are carried into the parser's error list.
func NewParser(l *lexer.Lexer) *Parser {
	p := NewParserFromTokens(l.ScanTokens())
	p.errors = append(p.errors, l.Errors()...)
	return p
}

// NewParserFromTokens prepares a parser over an already scanned token slice.
// A missing trailing EOF is supplied.
func NewParserFromTokens(tokens []lexer.Token) *Parser {
	if n := len(tokens); n == 0 || tokens[n-1].Type != lexer.EOF {
		eof := lexer.Token{Type: lexer.EOF, Line: 1}
		if n > 0 {
			last := tokens[n-1]
			eof.Line, eof.Source = last.Line, last.Source
			eof.StartPos, eof.EndPos = last.EndPos, last.EndPos
		}
		tokens = append(tokens[:n:n], eof)
	}
	return &Parser{tokens: tokens}
}

// Parse scans and parses src.
func Parse(src string) (*Program, []errors.LoxError) {
	return NewParser(lexer.NewLexer(src)).ParseProgram()
}

// SetReplMode lets the final expression statement omit its ';'.
func (p *Parser) SetReplMode(on bool) {
	p.replMode = on
}

// Errors returns the errors reported so far.
func (p *Parser) Errors() []errors.LoxError {
	return p.errors
}

// ParseProgram parses declarations until EOF. It never stops early: the
// program holds every statement that parsed cleanly, and the error list holds
// everything that did not.
func (p *Parser) ParseProgram() (*Program, []errors.LoxError) {
	program := &Program{}
	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}
	debugPrint("parsed %d statements, %d errors", len(program.Statements), len(p.errors))
	return program, p.errors
}

// --- Token helpers ---

func (p *Parser) curToken() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.curToken().Type == lexer.EOF
}

// nextToken consumes the current token and returns it. EOF is never consumed.
func (p *Parser) nextToken() lexer.Token {
	tok := p.curToken()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken().Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

// match consumes the current token if it has one of the given types.
func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			p.nextToken()
			return true
		}
	}
	return false
}

// expect consumes a token of type t or reports msg at the current token.
func (p *Parser) expect(t lexer.TokenType, msg string) (lexer.Token, bool) {
	if p.curTokenIs(t) {
		return p.nextToken(), true
	}
	p.addError(p.curToken(), msg)
	return p.curToken(), false
}

func (p *Parser) addError(tok lexer.Token, msg string) {
	if len(p.errors) >= maxErrors {
		return
	}
	where := " at '" + tok.Lexeme + "'"
	if tok.Type == lexer.EOF {
		where = " at end"
	}
	p.errors = append(p.errors, errors.NewSyntaxError(tok.Pos(), where, msg))
}

// synchronize discards tokens until a likely statement boundary: just past a
// ';' or in front of a keyword that starts a declaration or statement.
func (p *Parser) synchronize() {
	p.nextToken()
	for !p.isAtEnd() {
		if p.previous().Type == lexer.SEMICOLON {
			return
		}
		switch p.curToken().Type {
		case lexer.CLASS, lexer.FUN, lexer.VAR, lexer.FOR, lexer.IF, lexer.WHILE, lexer.PRINT, lexer.RETURN:
			return
		}
		p.nextToken()
	}
}

// --- Declarations ---

func (p *Parser) declaration() Statement {
	var stmt Statement
	switch {
	case p.match(lexer.CLASS):
		stmt = p.classDeclaration()
	case p.curTokenIs(lexer.FUN) && p.peekTokenIs(lexer.IDENT):
		p.nextToken()
		stmt = p.functionDeclaration()
	case p.match(lexer.VAR):
		stmt = p.varDeclaration()
	default:
		stmt = p.statement()
	}
	if stmt == nil {
		debugPrint("error near %q on line %d, synchronizing", p.curToken().Lexeme, p.curToken().Line)
		p.synchronize()
	}
	return stmt
}

func (p *Parser) classDeclaration() Statement {
	name, ok := p.expect(lexer.IDENT, "Expect class name.")
	if !ok {
		return nil
	}
	class := &ClassStatement{Name: name}

	if p.match(lexer.LT) {
		superName, ok := p.expect(lexer.IDENT, "Expect superclass name.")
		if !ok {
			return nil
		}
		class.Superclass = &Variable{Name: superName, Depth: Global}
	}

	if _, ok := p.expect(lexer.LBRACE, "Expect '{' before class body."); !ok {
		return nil
	}
	for !p.curTokenIs(lexer.RBRACE) && !p.isAtEnd() {
		method := p.function("method")
		if method == nil {
			return nil
		}
		class.Methods = append(class.Methods, method)
	}
	if _, ok := p.expect(lexer.RBRACE, "Expect '}' after class body."); !ok {
		return nil
	}
	return class
}

func (p *Parser) functionDeclaration() Statement {
	fn := p.function("function")
	if fn == nil {
		return nil
	}
	return &FunctionStatement{Function: fn}
}

// function parses `name(params) { body }`; kind is used in messages.
func (p *Parser) function(kind string) *FunctionLiteral {
	name, ok := p.expect(lexer.IDENT, "Expect "+kind+" name.")
	if !ok {
		return nil
	}
	fn := &FunctionLiteral{Token: name, Name: name.Lexeme}
	if _, ok := p.expect(lexer.LPAREN, "Expect '(' after "+kind+" name."); !ok {
		return nil
	}
	if !p.functionBody(fn, kind) {
		return nil
	}
	return fn
}

// functionBody parses the parameter list after '(' and the block body.
func (p *Parser) functionBody(fn *FunctionLiteral, kind string) bool {
	if !p.curTokenIs(lexer.RPAREN) {
		for {
			if len(fn.Params) >= maxArity {
				p.addError(p.curToken(), fmt.Sprintf("Can't have more than %d parameters.", maxArity))
			}
			param, ok := p.expect(lexer.IDENT, "Expect parameter name.")
			if !ok {
				return false
			}
			fn.Params = append(fn.Params, param)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if _, ok := p.expect(lexer.RPAREN, "Expect ')' after parameters."); !ok {
		return false
	}
	if _, ok := p.expect(lexer.LBRACE, "Expect '{' before "+kind+" body."); !ok {
		return false
	}
	body, ok := p.block()
	fn.Body = body
	return ok
}

func (p *Parser) varDeclaration() Statement {
	name, ok := p.expect(lexer.IDENT, "Expect variable name.")
	if !ok {
		return nil
	}
	stmt := &VarStatement{Name: name}
	if p.match(lexer.ASSIGN) {
		if stmt.Initializer = p.expression(); stmt.Initializer == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.SEMICOLON, "Expect ';' after variable declaration."); !ok {
		return nil
	}
	return stmt
}

// --- Statements ---

func (p *Parser) statement() Statement {
	switch p.curToken().Type {
	case lexer.FOR:
		return p.forStatement()
	case lexer.IF:
		return p.ifStatement()
	case lexer.PRINT:
		return p.printStatement()
	case lexer.RETURN:
		return p.returnStatement()
	case lexer.WHILE:
		return p.whileStatement()
	case lexer.BREAK:
		keyword := p.nextToken()
		if _, ok := p.expect(lexer.SEMICOLON, "Expect ';' after 'break'."); !ok {
			return nil
		}
		return &BreakStatement{Keyword: keyword}
	case lexer.CONTINUE:
		keyword := p.nextToken()
		if _, ok := p.expect(lexer.SEMICOLON, "Expect ';' after 'continue'."); !ok {
			return nil
		}
		return &ContinueStatement{Keyword: keyword}
	case lexer.LBRACE:
		brace := p.nextToken()
		stmts, ok := p.block()
		if !ok {
			return nil
		}
		return &BlockStatement{Token: brace, Statements: stmts}
	}
	return p.expressionStatement()
}

// block parses declarations up to and including the closing '}'. The opening
// brace has already been consumed.
func (p *Parser) block() ([]Statement, bool) {
	var stmts []Statement
	for !p.curTokenIs(lexer.RBRACE) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	_, ok := p.expect(lexer.RBRACE, "Expect '}' after block.")
	return stmts, ok
}

// forStatement desugars `for (init; cond; incr) body` into
// { init; while (cond) body } with incr kept on the while node.
func (p *Parser) forStatement() Statement {
	keyword := p.nextToken()
	if _, ok := p.expect(lexer.LPAREN, "Expect '(' after 'for'."); !ok {
		return nil
	}

	var initializer Statement
	switch {
	case p.match(lexer.SEMICOLON):
	case p.match(lexer.VAR):
		if initializer = p.varDeclaration(); initializer == nil {
			return nil
		}
	default:
		if initializer = p.expressionStatement(); initializer == nil {
			return nil
		}
	}

	var condition Expression
	if !p.curTokenIs(lexer.SEMICOLON) {
		if condition = p.expression(); condition == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.SEMICOLON, "Expect ';' after loop condition."); !ok {
		return nil
	}

	var increment Expression
	if !p.curTokenIs(lexer.RPAREN) {
		if increment = p.expression(); increment == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.RPAREN, "Expect ')' after for clauses."); !ok {
		return nil
	}

	body := p.statement()
	if body == nil {
		return nil
	}

	if condition == nil {
		condition = &Literal{Token: keyword, Value: true}
	}
	loop := &WhileStatement{Token: keyword, Condition: condition, Body: body, Increment: increment}
	if initializer == nil {
		return loop
	}
	return &BlockStatement{Token: keyword, Statements: []Statement{initializer, loop}}
}

func (p *Parser) ifStatement() Statement {
	stmt := &IfStatement{Token: p.nextToken()}
	if _, ok := p.expect(lexer.LPAREN, "Expect '(' after 'if'."); !ok {
		return nil
	}
	if stmt.Condition = p.expression(); stmt.Condition == nil {
		return nil
	}
	if _, ok := p.expect(lexer.RPAREN, "Expect ')' after if condition."); !ok {
		return nil
	}
	if stmt.Consequence = p.statement(); stmt.Consequence == nil {
		return nil
	}
	// The else binds to the nearest if, which is this one.
	if p.match(lexer.ELSE) {
		if stmt.Alternative = p.statement(); stmt.Alternative == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) printStatement() Statement {
	stmt := &PrintStatement{Token: p.nextToken()}
	if stmt.Expression = p.expression(); stmt.Expression == nil {
		return nil
	}
	if _, ok := p.expect(lexer.SEMICOLON, "Expect ';' after value."); !ok {
		return nil
	}
	return stmt
}

func (p *Parser) returnStatement() Statement {
	stmt := &ReturnStatement{Keyword: p.nextToken()}
	if !p.curTokenIs(lexer.SEMICOLON) {
		if stmt.Value = p.expression(); stmt.Value == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.SEMICOLON, "Expect ';' after return value."); !ok {
		return nil
	}
	return stmt
}

func (p *Parser) whileStatement() Statement {
	stmt := &WhileStatement{Token: p.nextToken()}
	if _, ok := p.expect(lexer.LPAREN, "Expect '(' after 'while'."); !ok {
		return nil
	}
	if stmt.Condition = p.expression(); stmt.Condition == nil {
		return nil
	}
	if _, ok := p.expect(lexer.RPAREN, "Expect ')' after condition."); !ok {
		return nil
	}
	if stmt.Body = p.statement(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) expressionStatement() Statement {
	stmt := &ExpressionStatement{Token: p.curToken()}
	if stmt.Expression = p.expression(); stmt.Expression == nil {
		return nil
	}
	if p.replMode && p.isAtEnd() {
		return stmt
	}
	if _, ok := p.expect(lexer.SEMICOLON, "Expect ';' after expression."); !ok {
		return nil
	}
	return stmt
}

// --- Expressions, lowest precedence first ---

func (p *Parser) expression() Expression {
	return p.assignment()
}

// assignment parses the left side as an ordinary expression and only then
// checks whether it is a valid target.
func (p *Parser) assignment() Expression {
	expr := p.or()
	if expr == nil {
		return nil
	}

	if p.match(lexer.ASSIGN) {
		equals := p.previous()
		value := p.assignment()
		if value == nil {
			return nil
		}
		switch target := expr.(type) {
		case *Variable:
			return &Assign{Name: target.Name, Value: value, Depth: Global}
		case *Get:
			return &Set{Object: target.Object, Name: target.Name, Value: value}
		}
		// Reported without synchronizing: the parser is not confused.
		p.addError(equals, "Invalid assignment target.")
	}
	return expr
}

func (p *Parser) or() Expression {
	return p.logical(p.and, lexer.OR)
}

func (p *Parser) and() Expression {
	return p.logical(p.equality, lexer.AND)
}

func (p *Parser) equality() Expression {
	return p.binary(p.comparison, lexer.NOT_EQ, lexer.EQ)
}

func (p *Parser) comparison() Expression {
	return p.binary(p.term, lexer.GT, lexer.GE, lexer.LT, lexer.LE)
}

func (p *Parser) term() Expression {
	return p.binary(p.factor, lexer.MINUS, lexer.PLUS)
}

func (p *Parser) factor() Expression {
	return p.binary(p.unary, lexer.SLASH, lexer.ASTERISK)
}

// binary folds a left-associative chain of operand (op operand)* in a loop.
func (p *Parser) binary(operand func() Expression, ops ...lexer.TokenType) Expression {
	expr := operand()
	if expr == nil {
		return nil
	}
	for p.match(ops...) {
		op := p.previous()
		right := operand()
		if right == nil {
			return nil
		}
		expr = &Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) logical(operand func() Expression, op lexer.TokenType) Expression {
	expr := operand()
	if expr == nil {
		return nil
	}
	for p.match(op) {
		operator := p.previous()
		right := operand()
		if right == nil {
			return nil
		}
		expr = &Logical{Left: expr, Operator: operator, Right: right}
	}
	return expr
}

func (p *Parser) unary() Expression {
	if p.match(lexer.BANG, lexer.MINUS) {
		op := p.previous()
		right := p.unary()
		if right == nil {
			return nil
		}
		return &Unary{Operator: op, Right: right}
	}
	return p.call()
}

// call parses a primary followed by any mix of argument lists and property
// accesses: a.b(c).d
func (p *Parser) call() Expression {
	expr := p.primary()
	if expr == nil {
		return nil
	}
	for {
		switch {
		case p.match(lexer.LPAREN):
			if expr = p.finishCall(expr); expr == nil {
				return nil
			}
		case p.match(lexer.DOT):
			name, ok := p.expect(lexer.IDENT, "Expect property name after '.'.")
			if !ok {
				return nil
			}
			expr = &Get{Object: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee Expression) Expression {
	var args []Expression
	if !p.curTokenIs(lexer.RPAREN) {
		for {
			if len(args) >= maxArity {
				p.addError(p.curToken(), fmt.Sprintf("Can't have more than %d arguments.", maxArity))
			}
			arg := p.expression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	paren, ok := p.expect(lexer.RPAREN, "Expect ')' after arguments.")
	if !ok {
		return nil
	}
	return &Call{Callee: callee, Paren: paren, Arguments: args}
}

func (p *Parser) primary() Expression {
	tok := p.curToken()
	switch tok.Type {
	case lexer.FALSE:
		p.nextToken()
		return &Literal{Token: tok, Value: false}
	case lexer.TRUE:
		p.nextToken()
		return &Literal{Token: tok, Value: true}
	case lexer.NIL:
		p.nextToken()
		return &Literal{Token: tok, Value: nil}
	case lexer.NUMBER, lexer.STRING:
		p.nextToken()
		return &Literal{Token: tok, Value: tok.Literal}
	case lexer.THIS:
		p.nextToken()
		return &This{Keyword: tok, Depth: Global}
	case lexer.IDENT:
		p.nextToken()
		return &Variable{Name: tok, Depth: Global}
	case lexer.SUPER:
		p.nextToken()
		if _, ok := p.expect(lexer.DOT, "Expect '.' after 'super'."); !ok {
			return nil
		}
		method, ok := p.expect(lexer.IDENT, "Expect superclass method name.")
		if !ok {
			return nil
		}
		return &Super{Keyword: tok, Method: method, Depth: Global}
	case lexer.LPAREN:
		p.nextToken()
		inner := p.expression()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.RPAREN, "Expect ')' after expression."); !ok {
			return nil
		}
		return &Grouping{Token: tok, Expression: inner}
	case lexer.FUN:
		p.nextToken()
		fn := &FunctionLiteral{Token: tok}
		if _, ok := p.expect(lexer.LPAREN, "Expect '(' after 'fun'."); !ok {
			return nil
		}
		if !p.functionBody(fn, "function") {
			return nil
		}
		return fn
	}
	p.addError(tok, "Expect expression.")
	return nil
}
