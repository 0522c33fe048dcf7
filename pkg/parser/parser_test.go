package parser

import (
	"strconv"
	"strings"
	"testing"
	"treelox/pkg/lexer"
)

func parseOK(t *testing.T, input string) *Program {
	t.Helper()
	program, errs := Parse(input)
	if len(errs) != 0 {
		var msgs []string
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		t.Fatalf("unexpected errors for %q:\n%s", input, strings.Join(msgs, "\n"))
	}
	return program
}

func TestExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3;", "(; (+ 1 (* 2 3)))"},
		{"(1 + 2) * 3;", "(; (* (group (+ 1 2)) 3))"},
		{"1 - 2 - 3;", "(; (- (- 1 2) 3))"},
		{"8 / 4 / 2;", "(; (/ (/ 8 4) 2))"},
		{"-a * b;", "(; (* (- a) b))"},
		{"!!true;", "(; (! (! true)))"},
		{"a < b == c >= d;", "(; (== (< a b) (>= c d)))"},
		{"a != b;", "(; (!= a b))"},
		{"a or b and c;", "(; (or a (and b c)))"},
		{"a and b or c and d;", "(; (or (and a b) (and c d)))"},
		{"a = b = c;", "(; (= a (= b c)))"},
		{"a.b.c = 1;", "(; (set (. a b) c 1))"},
		{"a.b(c).d;", "(; (. (call (. a b) c) d))"},
		{"f(1)(2, 3);", "(; (call (call f 1) 2 3))"},
		{"f();", "(; (call f))"},
		{"nil;", "(; nil)"},
		{`"hi";`, `(; "hi")`},
		{"2.5;", "(; 2.5)"},
		{"this.x;", "(; (. this x))"},
		{"super.m();", "(; (call (super m)))"},
		{"var f = fun (a, b) { return a; };", "(var f (fun (a b) (return a)))"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program := parseOK(t, tt.input)
			if got := program.String(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"print", "print 1;", "(print 1)"},
		{"var without initializer", "var a;", "(var a)"},
		{"var", "var a = 1;", "(var a 1)"},
		{"block", "{ var a = 1; print a; }", "(block (var a 1) (print a))"},
		{"if", "if (a) print 1;", "(if a (print 1))"},
		{"if else", "if (a) print 1; else print 2;", "(if a (print 1) (print 2))"},
		{"dangling else", "if (a) if (b) print 1; else print 2;", "(if a (if b (print 1) (print 2)))"},
		{"while", "while (x) x = x - 1;", "(while x (; (= x (- x 1))))"},
		{"fun", "fun add(a, b) { return a + b; }", "(fun add (a b) (return (+ a b)))"},
		{"bare return", "fun f() { return; }", "(fun f () (return))"},
		{"class", "class A { init(x) { this.x = x; } get() { return this.x; } }",
			"(class A (fun init (x) (; (set this x x))) (fun get () (return (. this x))))"},
		{"subclass", "class B < A {}", "(class B < A)"},
		{"break continue", "while (true) { break; continue; }", "(while true (block (break) (continue)))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program := parseOK(t, tt.input)
			if got := program.String(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestForDesugaring(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"for (var i = 0; i < 3; i = i + 1) print i;",
			"(block (var i 0) (while (< i 3) (print i) (step (= i (+ i 1)))))"},
		{"for (;;) print 1;", "(while true (print 1))"},
		{"for (i = 0; i < 1;) print i;", "(block (; (= i 0)) (while (< i 1) (print i)))"},
	}

	for _, tt := range tests {
		program := parseOK(t, tt.input)
		if got := program.String(); got != tt.expected {
			t.Errorf("%s\n got %s\nwant %s", tt.input, got, tt.expected)
		}
	}

	program := parseOK(t, "for (;;) {}")
	loop, ok := program.Statements[0].(*WhileStatement)
	if !ok {
		t.Fatalf("expected *WhileStatement, got %T", program.Statements[0])
	}
	lit, ok := loop.Condition.(*Literal)
	if !ok || lit.Value != true {
		t.Errorf("missing condition should become literal true, got %s", loop.Condition)
	}
}

func TestReferencesStartUnresolved(t *testing.T) {
	program := parseOK(t, "a = b; this.c; super.d;")

	assign := program.Statements[0].(*ExpressionStatement).Expression.(*Assign)
	if assign.Depth != Global {
		t.Errorf("assign depth = %d, want Global", assign.Depth)
	}
	if v := assign.Value.(*Variable); v.Depth != Global {
		t.Errorf("variable depth = %d, want Global", v.Depth)
	}
	get := program.Statements[1].(*ExpressionStatement).Expression.(*Get)
	if this := get.Object.(*This); this.Depth != Global {
		t.Errorf("this depth = %d, want Global", this.Depth)
	}
	super := program.Statements[2].(*ExpressionStatement).Expression.(*Super)
	if super.Depth != Global {
		t.Errorf("super depth = %d, want Global", super.Depth)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errors []string
	}{
		{"missing semicolon", "print 1", []string{"[line 1] Error at end: Expect ';' after value."}},
		{"missing expression", "print ;", []string{"[line 1] Error at ';': Expect expression."}},
		{"unclosed group", "(1 + 2;", []string{"[line 1] Error at ';': Expect ')' after expression."}},
		{"invalid target", "1 = 2;", []string{"[line 1] Error at '=': Invalid assignment target."}},
		{"invalid grouped target", "(a) = 2;", []string{"[line 1] Error at '=': Invalid assignment target."}},
		{"var name", "var 1 = 2;", []string{"[line 1] Error at '1': Expect variable name."}},
		{"class name", "class {}", []string{"[line 1] Error at '{': Expect class name."}},
		{"superclass name", "class A < {}", []string{"[line 1] Error at '{': Expect superclass name."}},
		{"property name", "a.1;", []string{"[line 1] Error at '1': Expect property name after '.'."}},
		{"super dot", "super;", []string{"[line 1] Error at ';': Expect '.' after 'super'."}},
		{"unclosed block", "{ print 1;", []string{"[line 1] Error at end: Expect '}' after block."}},
		{"if paren", "if a) print 1;", []string{"[line 1] Error at 'a': Expect '(' after 'if'."}},
		{"for clauses", "for (var i = 0; i < 1; i = i + 1 print i;", []string{"[line 1] Error at 'print': Expect ')' after for clauses."}},
		{"method body", "class A { m() }", []string{"[line 1] Error at '}': Expect '{' before method body."}},
		{"break semicolon", "while (true) break", []string{"[line 1] Error at end: Expect ';' after 'break'."}},
		{"anonymous fun", "var f = fun x() {};", []string{"[line 1] Error at 'x': Expect '(' after 'fun'."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := Parse(tt.input)
			if len(errs) != len(tt.errors) {
				t.Fatalf("got %d errors, want %d: %v", len(errs), len(tt.errors), errs)
			}
			for i, want := range tt.errors {
				if errs[i].Error() != want {
					t.Errorf("errs[%d] = %q, want %q", i, errs[i].Error(), want)
				}
				if errs[i].Kind() != "Syntax" {
					t.Errorf("errs[%d] kind = %q, want Syntax", i, errs[i].Kind())
				}
			}
		})
	}
}

func TestRecoveryReportsLaterErrors(t *testing.T) {
	input := `var a = ;
print "ok";
fun f( { }
var b = 1
print b;
class C { m() { return 1; } }`

	program, errs := Parse(input)
	want := []string{
		"[line 1] Error at ';': Expect expression.",
		"[line 3] Error at '{': Expect parameter name.",
		"[line 5] Error at 'print': Expect ';' after variable declaration.",
	}
	if len(errs) != len(want) {
		t.Fatalf("got %d errors, want %d: %v", len(errs), len(want), errs)
	}
	for i := range want {
		if errs[i].Error() != want[i] {
			t.Errorf("errs[%d] = %q, want %q", i, errs[i].Error(), want[i])
		}
	}

	// Statements around the broken ones still parse. "print b;" is swallowed
	// while synchronizing after the missing ';'.
	var kinds []string
	for _, s := range program.Statements {
		kinds = append(kinds, s.String())
	}
	got := strings.Join(kinds, " | ")
	if !strings.Contains(got, `(print "ok")`) || !strings.Contains(got, "(class C") {
		t.Errorf("recovered statements missing: %s", got)
	}
}

func TestScanErrorsComeFirst(t *testing.T) {
	_, errs := Parse("print @;\nprint 1")
	if len(errs) != 3 {
		t.Fatalf("got %d errors: %v", len(errs), errs)
	}
	if errs[0].Kind() != "Scan" {
		t.Errorf("first error should be the scan error, got %s", errs[0].Kind())
	}
}

func TestTooManyArguments(t *testing.T) {
	args := make([]string, 256)
	params := make([]string, 256)
	for i := range args {
		args[i] = "1"
		params[i] = "p" + strconv.Itoa(i)
	}

	_, errs := Parse("f(" + strings.Join(args, ", ") + ");")
	if len(errs) != 1 || !strings.HasSuffix(errs[0].Error(), "Can't have more than 255 arguments.") {
		t.Errorf("call errors = %v", errs)
	}

	_, errs = Parse("fun f(" + strings.Join(params, ", ") + ") {}")
	if len(errs) != 1 || !strings.HasSuffix(errs[0].Error(), "Can't have more than 255 parameters.") {
		t.Errorf("declaration errors = %v", errs)
	}
}

func TestLongChainsDoNotRecurse(t *testing.T) {
	input := strings.Repeat("1 + ", 50000) + "1;"
	program := parseOK(t, input)
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}
}

func TestReplModeAcceptsTrailingExpression(t *testing.T) {
	p := NewParser(lexer.NewLexer("var a = 1; a + 2"))
	p.SetReplMode(true)
	program, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := program.String(); got != "(var a 1)\n(; (+ a 2))" {
		t.Errorf("got %s", got)
	}

	_, errs = NewParser(lexer.NewLexer("a + 2")).ParseProgram()
	if len(errs) != 1 {
		t.Errorf("script mode should require ';', got %v", errs)
	}
}

func TestParserFromTokensSuppliesEOF(t *testing.T) {
	tokens, _ := lexer.Scan("print 1;")
	program, errs := NewParserFromTokens(tokens[:len(tokens)-1]).ParseProgram()
	if len(errs) != 0 || program.String() != "(print 1)" {
		t.Errorf("got %s, %v", program, errs)
	}

	program, errs = NewParserFromTokens(nil).ParseProgram()
	if len(errs) != 0 || len(program.Statements) != 0 {
		t.Errorf("empty token stream: %v %v", program.Statements, errs)
	}
}
