package lexer

import (
	"fmt"
	"strconv"
	"treelox/pkg/errors"
	"treelox/pkg/source"
	"unicode/utf8"
)

// TokenType represents the type of a token.
type TokenType string

// Token represents a lexical token. Tokens are values and never change once
// the lexer has produced them.
type Token struct {
	Type     TokenType
	Lexeme   string             // Raw text matched in the source
	Literal  any                // float64 for NUMBER, string for STRING, nil otherwise
	Line     int                // 1-based line number where the token starts
	Column   int                // 1-based column number (rune index) where the token starts
	StartPos int                // 0-based byte offset where the token starts
	EndPos   int                // 0-based byte offset after the token ends
	Source   *source.SourceFile // Source the token was read from, may be nil
}

// Pos converts the token location into an error position.
func (t Token) Pos() errors.Position {
	return errors.Position{
		Line:     t.Line,
		Column:   t.Column,
		StartPos: t.StartPos,
		EndPos:   t.EndPos,
		Source:   t.Source,
	}
}

func (t Token) String() string {
	if t.Literal != nil {
		return fmt.Sprintf("%s %s %v", t.Type, t.Lexeme, t.Literal)
	}
	return fmt.Sprintf("%s %s", t.Type, t.Lexeme)
}

// --- Token Types ---
const (
	EOF TokenType = "EOF"

	// Identifiers + Literals
	IDENT  TokenType = "IDENT"
	NUMBER TokenType = "NUMBER"
	STRING TokenType = "STRING"

	// Operators
	ASSIGN   TokenType = "="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	BANG     TokenType = "!"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	LT       TokenType = "<"
	GT       TokenType = ">"
	EQ       TokenType = "=="
	NOT_EQ   TokenType = "!="
	LE       TokenType = "<="
	GE       TokenType = ">="
	DOT      TokenType = "."

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"

	// Keywords
	AND      TokenType = "AND"
	BREAK    TokenType = "BREAK"
	CLASS    TokenType = "CLASS"
	CONTINUE TokenType = "CONTINUE"
	ELSE     TokenType = "ELSE"
	FALSE    TokenType = "FALSE"
	FOR      TokenType = "FOR"
	FUN      TokenType = "FUN"
	IF       TokenType = "IF"
	NIL      TokenType = "NIL"
	OR       TokenType = "OR"
	PRINT    TokenType = "PRINT"
	RETURN   TokenType = "RETURN"
	SUPER    TokenType = "SUPER"
	THIS     TokenType = "THIS"
	TRUE     TokenType = "TRUE"
	VAR      TokenType = "VAR"
	WHILE    TokenType = "WHILE"
)

var keywords = map[string]TokenType{
	"and":      AND,
	"break":    BREAK,
	"class":    CLASS,
	"continue": CONTINUE,
	"else":     ELSE,
	"false":    FALSE,
	"for":      FOR,
	"fun":      FUN,
	"if":       IF,
	"nil":      NIL,
	"or":       OR,
	"print":    PRINT,
	"return":   RETURN,
	"super":    SUPER,
	"this":     THIS,
	"true":     TRUE,
	"var":      VAR,
	"while":    WHILE,
}

// LookupIdent checks the keywords table for an identifier.
func LookupIdent(ident string) TokenType {
	if tokType, ok := keywords[ident]; ok {
		return tokType
	}
	return IDENT
}

// IsKeyword reports whether t is a reserved word.
func IsKeyword(t TokenType) bool {
	for _, kw := range keywords {
		if kw == t {
			return true
		}
	}
	return false
}

// Lexer turns source text into tokens one at a time. A Lexer is not
// rewindable; scanning again means constructing a new one over the same input.
type Lexer struct {
	input        string
	source       *source.SourceFile
	position     int  // offset of ch
	readPosition int  // offset after ch
	ch           byte // current byte under examination
	line         int
	column       int
	errors       []errors.LoxError
}

// NewLexer creates a lexer over raw input with no source metadata.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// NewLexerWithSource creates a lexer over a source file. Tokens keep a
// reference to the file for diagnostics.
func NewLexerWithSource(sf *source.SourceFile) *Lexer {
	l := &Lexer{input: sf.Content, source: sf, line: 1}
	l.readChar()
	return l
}

// Source returns the file the lexer reads from, or nil.
func (l *Lexer) Source() *source.SourceFile {
	return l.source
}

// Errors returns the scan errors reported so far.
func (l *Lexer) Errors() []errors.LoxError {
	return l.errors
}

// Scan tokenizes src in one go.
func Scan(src string) ([]Token, []errors.LoxError) {
	l := NewLexer(src)
	tokens := l.ScanTokens()
	return tokens, l.Errors()
}

// ScanTokens drains the lexer. The returned slice always ends with EOF.
func (l *Lexer) ScanTokens() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

// readChar gives us the next byte and advances our position in the input.
// Columns count runes, so UTF-8 continuation bytes do not advance them.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if !isContinuation(l.ch) {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// skipWhitespace consumes blanks, newlines and line comments.
func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '/':
			if l.peekChar() != '/' {
				return
			}
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken returns the next token. Malformed input is reported through
// Errors and skipped, so the caller only ever sees well-formed tokens.
// Once the input is exhausted every call returns EOF.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()

		startPos, line, col := l.position, l.line, l.column
		if l.atEnd() {
			return Token{Type: EOF, Line: line, Column: col, StartPos: len(l.input), EndPos: len(l.input), Source: l.source}
		}

		var tokType TokenType
		switch l.ch {
		case '(':
			tokType = LPAREN
		case ')':
			tokType = RPAREN
		case '{':
			tokType = LBRACE
		case '}':
			tokType = RBRACE
		case ',':
			tokType = COMMA
		case '.':
			tokType = DOT
		case '-':
			tokType = MINUS
		case '+':
			tokType = PLUS
		case ';':
			tokType = SEMICOLON
		case '*':
			tokType = ASTERISK
		case '/':
			tokType = SLASH
		case '!':
			tokType = l.either('=', NOT_EQ, BANG)
		case '=':
			tokType = l.either('=', EQ, ASSIGN)
		case '<':
			tokType = l.either('=', LE, LT)
		case '>':
			tokType = l.either('=', GE, GT)
		case '"':
			value, ok := l.readString()
			if !ok {
				l.addError(line, col, startPos, "Unterminated string.")
				continue
			}
			return l.makeToken(STRING, value, startPos, line, col)
		default:
			if isLetter(l.ch) {
				ident := l.readIdentifier()
				return l.makeToken(LookupIdent(ident), nil, startPos, line, col)
			}
			if isDigit(l.ch) {
				text := l.readNumber()
				value, err := strconv.ParseFloat(text, 64)
				if err != nil {
					l.addError(line, col, startPos, fmt.Sprintf("Invalid number literal '%s'.", text))
					continue
				}
				return l.makeToken(NUMBER, value, startPos, line, col)
			}
			// Skip the whole rune so a multi-byte character yields one error.
			_, size := utf8.DecodeRuneInString(l.input[l.position:])
			for i := 0; i < size; i++ {
				l.readChar()
			}
			l.addError(line, col, startPos, "Unexpected character.")
			continue
		}

		l.readChar()
		return l.makeToken(tokType, nil, startPos, line, col)
	}
}

// either consumes the following byte when it equals next and returns matched,
// otherwise it returns single without consuming anything.
func (l *Lexer) either(next byte, matched, single TokenType) TokenType {
	if l.peekChar() == next {
		l.readChar()
		return matched
	}
	return single
}

func (l *Lexer) makeToken(t TokenType, literal any, startPos, line, col int) Token {
	return Token{
		Type:     t,
		Lexeme:   l.input[startPos:l.position],
		Literal:  literal,
		Line:     line,
		Column:   col,
		StartPos: startPos,
		EndPos:   l.position,
		Source:   l.source,
	}
}

func (l *Lexer) addError(line, col, startPos int, msg string) {
	l.errors = append(l.errors, errors.NewScanError(errors.Position{
		Line:     line,
		Column:   col,
		StartPos: startPos,
		EndPos:   l.position,
		Source:   l.source,
	}, msg))
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads digits with an optional fractional part. A trailing dot
// without digits after it is left for the next token.
func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position]
}

// readString reads a double-quoted string starting at the opening quote.
// Strings may span lines. It returns false when the input ends first.
func (l *Lexer) readString() (string, bool) {
	l.readChar() // opening quote
	start := l.position
	for !l.atEnd() && l.ch != '"' {
		l.readChar()
	}
	if l.atEnd() {
		return "", false
	}
	value := l.input[start:l.position]
	l.readChar() // closing quote
	return value, true
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isContinuation(ch byte) bool {
	return ch&0xC0 == 0x80
}
