package interpreter

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"
	"treelox/pkg/errors"
	"treelox/pkg/parser"
	"treelox/pkg/resolver"
)

func compile(t *testing.T, src string) *parser.Program {
	t.Helper()
	program, errs := parser.Parse(src)
	if len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", src, errs)
	}
	if errs := resolver.Resolve(program); len(errs) != 0 {
		t.Fatalf("resolve errors for %q: %v", src, errs)
	}
	return program
}

// run interprets src in a fresh interpreter and returns what it printed.
func run(t *testing.T, src string, opts ...Option) (string, error) {
	t.Helper()
	var out bytes.Buffer
	in := NewInterpreter(nil, append([]Option{WithOutput(&out)}, opts...)...)
	err := in.Interpret(context.Background(), compile(t, src))
	return out.String(), err
}

func expectOutput(t *testing.T, src, want string) {
	t.Helper()
	got, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if got != want {
		t.Errorf("output mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"arithmetic", "print 1 + 2 * 3 - 4 / 2;", "5\n"},
		{"grouping", "print (1 + 2) * 3;", "9\n"},
		{"string concat", `print "foo" + "bar";`, "foobar\n"},
		{"comparison", "print 1 < 2; print 2 <= 2; print 3 > 4; print 4 >= 5;", "true\ntrue\nfalse\nfalse\n"},
		{"equality", `print 1 == 1; print "a" != "a"; print nil == false; print 1 == "1";`, "true\nfalse\nfalse\nfalse\n"},
		{"not", "print !nil; print !0; print !!true;", "true\nfalse\ntrue\n"},
		{"logical short circuit", `print nil or "yes"; print false and undefined; print 1 and 2;`, "yes\nfalse\n2\n"},
		{"division by zero", "print 1 / 0; print -1 / 0; print 0 / 0;", "Infinity\n-Infinity\nNaN\n"},
		{"negative zero", "print -0;", "-0\n"},
		{"uninitialized var", "var a; print a;", "nil\n"},
		{"assignment value", "var a; var b; a = b = 3; print a; print b;", "3\n3\n"},
		{"if else", `if (1 > 2) print "then"; else print "else";`, "else\n"},
		{"while", "var i = 0; while (i < 3) { print i; i = i + 1; }", "0\n1\n2\n"},
		{"for", "for (var i = 0; i < 3; i = i + 1) print i;", "0\n1\n2\n"},
		{"block scope", `var a = "outer"; { var a = "inner"; print a; } print a;`, "inner\nouter\n"},
		{"recursion", "fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(10);", "55\n"},
		{"implicit nil return", "fun f() {} print f();", "nil\n"},
		{"anonymous function", "var twice = fun (x) { return x * 2; }; print twice(21);", "42\n"},
		{"function values print", "fun f() {} print f; print fun () {};", "<fn f>\n<fn>\n"},
		{"class and instance print", "class A {} print A; print A();", "A\nA instance\n"},
		{"fields", "class P {} var p = P(); p.x = 1; p.y = 2; print p.x + p.y;", "3\n"},
		{"methods and this", `class Cake { taste() { return "The " + this.flavor + " cake is delicious!"; } } var c = Cake(); c.flavor = "German chocolate"; print c.taste();`, "The German chocolate cake is delicious!\n"},
		{"bound method keeps this", `class A { init(n) { this.n = n; } get() { return this.n; } } var m = A(7).get; print m();`, "7\n"},
		{"init arguments", "class V { init(x, y) { this.x = x; this.y = y; } } var v = V(1, 2); print v.x + v.y;", "3\n"},
		{"inherited method", `class A { hi() { print "hi"; } } class B < A {} B().hi();`, "hi\n"},
		{"inherited init", "class A { init(x) { this.x = x; } } class B < A {} print B(5).x;", "5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectOutput(t, tt.input, tt.want)
		})
	}
}

func TestClosureCounter(t *testing.T) {
	expectOutput(t, `
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    print i;
  }
  return count;
}
var counter = makeCounter();
counter();
counter();
`, "1\n2\n")
}

func TestClosuresShareEnvironment(t *testing.T) {
	expectOutput(t, `
fun pair() {
  var n = 0;
  fun inc() { n = n + 1; }
  fun get() { return n; }
  inc();
  inc();
  return get;
}
print pair()();
`, "2\n")
}

func TestStaticScopeCapture(t *testing.T) {
	expectOutput(t, `
var a = "global";
{
  fun showA() { print a; }
  showA();
  var a = "block";
  showA();
}
`, "global\nglobal\n")
}

func TestSuperDispatch(t *testing.T) {
	expectOutput(t, `
class A {
  method() { print "A method"; }
}
class B < A {
  method() { print "B method"; }
  test() { super.method(); }
}
class C < B {}
C().test();
`, "A method\n")
}

func TestSuperInClosure(t *testing.T) {
	expectOutput(t, `
class Base { name() { return "base"; } }
class Derived < Base {
  name() {
    fun inner() { return super.name(); }
    return inner() + "+derived";
  }
}
print Derived().name();
`, "base+derived\n")
}

func TestInitializerAlwaysReturnsInstance(t *testing.T) {
	expectOutput(t, `
class Foo {
  init() {
    print this;
    return;
  }
}
var foo = Foo();
print foo.init();
print foo.init() == foo;
`, "Foo instance\nFoo instance\nFoo instance\nFoo instance\ntrue\n")
}

func TestFieldShadowsMethod(t *testing.T) {
	expectOutput(t, `
class A { m() { return "method"; } }
var a = A();
print a.m();
a.m = "field";
print a.m;
`, "method\nfield\n")
}

func TestArity(t *testing.T) {
	decls := []string{
		"fun f() {}",
		"fun f(a) {}",
		"fun f(a, b) {}",
		"fun f(a, b, c) {}",
	}
	args := []string{"f();", "f(1);", "f(1, 2);", "f(1, 2, 3);"}

	for arity, decl := range decls {
		for count, call := range args {
			_, err := run(t, decl+" "+call)
			if arity == count {
				if err != nil {
					t.Errorf("%s %s: unexpected error %v", decl, call, err)
				}
				continue
			}
			var rtErr *errors.RuntimeError
			if !stderrors.As(err, &rtErr) {
				t.Fatalf("%s %s: got %v, want runtime error", decl, call, err)
			}
			want := fmt.Sprintf("Expected %d arguments but got %d.", arity, count)
			if rtErr.Message() != want {
				t.Errorf("%s %s: message %q, want %q", decl, call, rtErr.Message(), want)
			}
		}
	}
}

func TestClassArity(t *testing.T) {
	if _, err := run(t, "class A {} A(1);"); err == nil || err.(*errors.RuntimeError).Message() != "Expected 0 arguments but got 1." {
		t.Errorf("class without init: got %v", err)
	}
	if _, err := run(t, "class A { init(a, b) {} } A(1);"); err == nil || err.(*errors.RuntimeError).Message() != "Expected 2 arguments but got 1." {
		t.Errorf("class with init: got %v", err)
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
		line  int
	}{
		{"negate string", `print -"a";`, "Operand must be a number.", 1},
		{"subtract string", `print 1 - "a";`, "Operands must be numbers.", 1},
		{"compare mixed", `print "a" < 1;`, "Operands must be numbers.", 1},
		{"add mixed", `print 1 + "a";`, "Operands must be two numbers or two strings.", 1},
		{"add nil", "print nil + nil;", "Operands must be two numbers or two strings.", 1},
		{"undefined variable", "var a = 1;\n\nprint b;", "Undefined variable 'b'.", 3},
		{"undefined assignment", "\nb = 1;", "Undefined variable 'b'.", 2},
		{"call string", `"str"();`, "Can only call functions and classes.", 1},
		{"call nil", "var f; f();", "Can only call functions and classes.", 1},
		{"property on string", `var s = "str"; print s.x;`, "Only instances have properties.", 1},
		{"field on number", "var n = 1; n.x = 2;", "Only instances have fields.", 1},
		{"undefined property", "class A {}\nprint A().y;", "Undefined property 'y'.", 2},
		{"superclass not class", `var NotClass = "x"; class A < NotClass {}`, "Superclass must be a class.", 1},
		{"super missing method", "class A {} class B < A { m() { super.nope(); } } B().m();", "Undefined property 'nope'.", 1},
		{"error inside function", "fun f() {\n  return -nil;\n}\nf();", "Operand must be a number.", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.input)
			var rtErr *errors.RuntimeError
			if !stderrors.As(err, &rtErr) {
				t.Fatalf("got %v, want runtime error", err)
			}
			if rtErr.Message() != tt.msg {
				t.Errorf("message = %q, want %q", rtErr.Message(), tt.msg)
			}
			if rtErr.Line != tt.line {
				t.Errorf("line = %d, want %d", rtErr.Line, tt.line)
			}
		})
	}
}

func TestRuntimeErrorStopsExecution(t *testing.T) {
	out, err := run(t, `print "before"; print -nil; print "after";`)
	if err == nil {
		t.Fatal("expected runtime error")
	}
	if out != "before\n" {
		t.Errorf("output = %q, want only the first line", out)
	}
}

func TestStackOverflow(t *testing.T) {
	var out bytes.Buffer
	in := NewInterpreter(nil, WithOutput(&out), WithMaxDepth(100))

	err := in.Interpret(context.Background(), compile(t, "fun f() { f(); } f();"))
	var rtErr *errors.RuntimeError
	if !stderrors.As(err, &rtErr) || rtErr.Message() != "Stack overflow." {
		t.Fatalf("got %v, want stack overflow", err)
	}

	// The same interpreter keeps working, globals intact.
	if err := in.Interpret(context.Background(), compile(t, "print f;\nprint 1;")); err != nil {
		t.Fatalf("interpreter unusable after overflow: %v", err)
	}
	if out.String() != "<fn f>\n1\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestDepthLimitAllowsDeepRecursion(t *testing.T) {
	expectOutput(t, "fun down(n) { if (n == 0) return 0; return down(n - 1); } print down(1000);", "0\n")
}

func TestBreakContinue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"continue runs increment", "for (var i = 0; i < 5; i = i + 1) { if (i == 1) continue; if (i == 3) break; print i; }", "0\n2\n"},
		{"while continue", "var i = 0; while (i < 4) { i = i + 1; if (i == 2) continue; print i; }", "1\n3\n4\n"},
		{"break inner only", "for (var i = 0; i < 2; i = i + 1) { for (var j = 0; j < 5; j = j + 1) { if (j == 1) break; print i * 10 + j; } }", "0\n10\n"},
		{"break from nested block", "while (true) { { { break; } } } print \"done\";", "done\n"},
		{"return from loop", `fun f() { while (true) { return "out"; } } print f();`, "out\n"},
		{"loop inside function", "fun f() { for (var i = 0; ; i = i + 1) { if (i == 3) return i; } } print f();", "3\n"},
		{"closure per iteration body", "var fs; for (var i = 0; i < 1; i = i + 1) { var j = i; fun g() { return j; } fs = g; } print fs();", "0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectOutput(t, tt.input, tt.want)
		})
	}
}

func TestCancellation(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		in := NewInterpreter(nil, WithOutput(&bytes.Buffer{}))
		err := in.Interpret(ctx, compile(t, "while (true) {}"))
		if !stderrors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
		var rtErr *errors.RuntimeError
		if !stderrors.As(err, &rtErr) || rtErr.Message() != "Execution interrupted." {
			t.Errorf("got %v, want interrupted runtime error", err)
		}
	})

	t.Run("deadline in infinite loop", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		in := NewInterpreter(nil, WithOutput(&bytes.Buffer{}))
		err := in.Interpret(ctx, compile(t, "fun spin() { while (true) {} } spin();"))
		if !stderrors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("got %v, want context.DeadlineExceeded", err)
		}
	})
}

var errBoom = stderrors.New("boom")

func TestNativeFunctions(t *testing.T) {
	globals := NewEnvironment()
	globals.Define("answer", NewNativeFunctionValue(NewNativeFunction("answer", 0,
		func([]Value) (Value, error) { return NumberValue(42), nil })))
	globals.Define("fail", NewNativeFunctionValue(NewNativeFunction("fail", 1,
		func([]Value) (Value, error) { return Nil, errBoom })))

	var out bytes.Buffer
	in := NewInterpreter(globals, WithOutput(&out))
	if err := in.Interpret(context.Background(), compile(t, "print answer(); print answer;")); err != nil {
		t.Fatal(err)
	}
	if out.String() != "42\n<native fn>\n" {
		t.Errorf("output = %q", out.String())
	}

	err := in.Interpret(context.Background(), compile(t, "\nfail(1);"))
	var rtErr *errors.RuntimeError
	if !stderrors.As(err, &rtErr) {
		t.Fatalf("got %v, want runtime error", err)
	}
	if rtErr.Message() != "boom" || rtErr.Line != 2 || !stderrors.Is(err, errBoom) {
		t.Errorf("native error not wrapped at call site: %v", err)
	}

	err = in.Interpret(context.Background(), compile(t, "fail();"))
	if err == nil || err.(*errors.RuntimeError).Message() != "Expected 1 arguments but got 0." {
		t.Errorf("native arity not checked: %v", err)
	}
}

func TestExecuteReturnsExpressionValue(t *testing.T) {
	in := NewInterpreter(nil, WithOutput(&bytes.Buffer{}))
	program := compile(t, "var a = 20; a + 22; print a;")

	var values []string
	for _, stmt := range program.Statements {
		v, err := in.Execute(context.Background(), stmt)
		if err != nil {
			t.Fatal(err)
		}
		values = append(values, v.String())
	}
	want := []string{"nil", "42", "nil"}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("values[%d] = %q, want %q", i, values[i], want[i])
		}
	}
}

func TestInterpretersAreIndependent(t *testing.T) {
	first := NewInterpreter(nil, WithOutput(&bytes.Buffer{}))
	second := NewInterpreter(nil, WithOutput(&bytes.Buffer{}))

	if err := first.Interpret(context.Background(), compile(t, "var shared = 1;")); err != nil {
		t.Fatal(err)
	}
	err := second.Interpret(context.Background(), compile(t, "print shared;"))
	if err == nil {
		t.Fatal("globals leaked between interpreters")
	}
	if _, ok := first.Globals().Get("shared"); !ok {
		t.Error("first interpreter lost its global")
	}
}
