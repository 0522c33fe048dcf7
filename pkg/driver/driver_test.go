package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"treelox/pkg/expect"
)

func newTestSession(opts ...Option) (*Session, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	opts = append([]Option{WithStdout(&stdout), WithStderr(&stderr)}, opts...)
	return NewSession(opts...), &stdout, &stderr
}

func TestScripts(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.lox"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no scripts found in testdata")
	}

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("Failed to read script file %q: %v", path, err)
			}
			expectation, err := expect.Parse(string(content))
			if err != nil {
				t.Fatalf("Failed to parse expectations in %q: %v", path, err)
			}

			outcome, err := RunScript(context.Background(), path)
			if err != nil {
				t.Fatal(err)
			}
			for _, failure := range expectation.Check(outcome) {
				t.Error(failure)
			}
		})
	}
}

func TestRunStringKeepsGlobals(t *testing.T) {
	s, stdout, _ := newTestSession()

	if _, errs := s.RunString("var greeting = \"hi\";"); len(errs) != 0 {
		t.Fatal(errs)
	}
	if _, errs := s.RunString("print greeting;"); len(errs) != 0 {
		t.Fatal(errs)
	}
	if stdout.String() != "hi\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	first, _, _ := newTestSession()
	second, _, _ := newTestSession()

	if _, errs := first.RunString("var only = 1;"); len(errs) != 0 {
		t.Fatal(errs)
	}
	_, errs := second.RunString("print only;")
	if len(errs) != 1 || errs[0].Message() != "Undefined variable 'only'." {
		t.Fatalf("second session saw the first session's global: %v", errs)
	}
	if _, ok := first.Globals().Get("only"); !ok {
		t.Error("first session lost its global")
	}
}

func TestStaticErrorsPreventExecution(t *testing.T) {
	s, stdout, _ := newTestSession()

	_, errs := s.RunString("print \"side effect\";\nprint ;")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if errs[0].Error() != "[line 2] Error at ';': Expect expression." {
		t.Errorf("error = %q", errs[0].Error())
	}
	if stdout.Len() != 0 {
		t.Errorf("program ran despite a syntax error: %q", stdout.String())
	}

	_, errs = s.RunString("print \"side effect\";\nreturn;")
	if len(errs) != 1 || errs[0].Message() != "Can't return from top-level code." {
		t.Fatalf("resolve errors = %v", errs)
	}
	if stdout.Len() != 0 {
		t.Errorf("program ran despite a resolve error: %q", stdout.String())
	}
}

func TestReplEchoAndLeniency(t *testing.T) {
	s, stdout, _ := newTestSession()
	repl := RunOptions{Repl: true}

	value, errs := s.RunCode("1 + 2", repl)
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	if !s.DisplayResult("1 + 2", value, errs) {
		t.Fatal("DisplayResult reported failure")
	}

	value, errs = s.RunCode(`"quoted"`, repl)
	s.DisplayResult(`"quoted"`, value, errs)

	value, errs = s.RunCode("print 4;", repl)
	s.DisplayResult("print 4;", value, errs)

	if want := "3\n\"quoted\"\n4\n"; stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}

	if _, errs := s.RunCode("1 + 2", RunOptions{}); len(errs) == 0 {
		t.Error("script mode accepted a missing ';'")
	}
}

func TestReplSurvivesErrors(t *testing.T) {
	s, stdout, stderr := newTestSession()
	input := strings.Join([]string{
		"var a = 1;",
		"print -nil;",
		"print a +;",
		"",
		"a = a + 1;",
		"a",
	}, "\n")

	if err := s.RunPrompt(strings.NewReader(input), RunOptions{}); err != nil {
		t.Fatal(err)
	}

	out := stdout.String()
	if !strings.Contains(out, Prompt+"2\n") {
		t.Errorf("final entry not echoed: %q", out)
	}
	if !strings.HasSuffix(out, "\nGoodbye!\n") {
		t.Errorf("missing goodbye: %q", out)
	}
	errOut := stderr.String()
	if !strings.Contains(errOut, "Operand must be a number.\n[line 1]") {
		t.Errorf("runtime error not reported: %q", errOut)
	}
	if !strings.Contains(errOut, "[line 1] Error at ';': Expect expression.") {
		t.Errorf("syntax error not reported: %q", errOut)
	}
}

func TestReplRecoversFromStackOverflow(t *testing.T) {
	s, stdout, stderr := newTestSession(WithMaxDepth(50))
	input := "fun f() { f(); }\nf();\nprint \"alive\";\n"

	if err := s.RunPrompt(strings.NewReader(input), RunOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "Stack overflow.") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if !strings.Contains(stdout.String(), "alive\n") {
		t.Errorf("session unusable after overflow: %q", stdout.String())
	}
}

func TestRunFileExitStatus(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name   string
		path   string
		status ExitStatus
		stdout string
		stderr string
	}{
		{"ok", write("ok.lox", "print 1;"), ExitOK, "1\n", ""},
		{"syntax", write("syntax.lox", "print 1"), ExitDataErr, "", "[line 1] Error at end: Expect ';' after value."},
		{"scan", write("scan.lox", "print 1; #"), ExitDataErr, "", "[line 1] Error: Unexpected character."},
		{"resolve", write("resolve.lox", "{ var a = a; }"), ExitDataErr, "", "Can't read local variable in its own initializer."},
		{"runtime", write("runtime.lox", "print 1;\nprint nope;"), ExitSoftware, "1\n", "Undefined variable 'nope'.\n[line 2]"},
		{"missing", filepath.Join(dir, "missing.lox"), ExitIOErr, "", "Failed to read file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, stdout, stderr := newTestSession()
			if got := s.RunFile(tt.path); got != tt.status {
				t.Errorf("RunFile = %d, want %d", got, tt.status)
			}
			if stdout.String() != tt.stdout {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.stdout)
			}
			if tt.stderr == "" && stderr.Len() != 0 {
				t.Errorf("unexpected stderr: %q", stderr.String())
			}
			if !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.stderr)
			}
		})
	}
}

func TestDisplayErrorsShowsSourceLine(t *testing.T) {
	s, _, stderr := newTestSession()
	src := "var x = 1;\nprint x - \"s\";"
	value, errs := s.RunString(src)
	if s.DisplayResult(src, value, errs) {
		t.Fatal("DisplayResult reported success")
	}
	want := "Operands must be numbers.\n[line 2]\n  print x - \"s\";\n          ^\n"
	if stderr.String() != want {
		t.Errorf("stderr =\n%s\nwant\n%s", stderr.String(), want)
	}
}

func TestShowTokensAndAST(t *testing.T) {
	s, stdout, _ := newTestSession()
	if _, errs := s.RunCode("print 1 + 2;", RunOptions{ShowTokens: true, ShowAST: true}); len(errs) != 0 {
		t.Fatal(errs)
	}
	out := stdout.String()
	for _, want := range []string{"=== Tokens ===", "NUMBER 1 1", "=== AST ===", "(print (+ 1 2))", "3\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInjectedClock(t *testing.T) {
	s, stdout, _ := newTestSession(WithClock(func() time.Time { return time.Unix(42, 0) }))
	if _, errs := s.RunString("print clock();"); len(errs) != 0 {
		t.Fatal(errs)
	}
	if stdout.String() != "42\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestContextInterruptsRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s, _, _ := newTestSession(WithContext(ctx))
	_, errs := s.RunString("while (true) {}")
	if len(errs) != 1 || errs[0].Message() != "Execution interrupted." {
		t.Fatalf("errs = %v", errs)
	}
	if ExitStatusFor(errs) != ExitSoftware {
		t.Errorf("exit status = %d", ExitStatusFor(errs))
	}
}
