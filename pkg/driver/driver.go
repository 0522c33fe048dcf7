package driver

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"
	"treelox/pkg/builtins"
	"treelox/pkg/errors"
	"treelox/pkg/interpreter"
	"treelox/pkg/lexer"
	"treelox/pkg/parser"
	"treelox/pkg/resolver"
	"treelox/pkg/source"
)

const debugDriver = false

func debugPrintf(format string, args ...interface{}) {
	if debugDriver {
		fmt.Printf(format, args...)
	}
}

// ExitStatus is a process exit code in the sysexits convention.
type ExitStatus int

const (
	ExitOK       ExitStatus = 0
	ExitUsage    ExitStatus = 64 // command line usage error
	ExitDataErr  ExitStatus = 65 // scan, syntax or resolution error
	ExitSoftware ExitStatus = 70 // runtime error
	ExitIOErr    ExitStatus = 74 // script could not be read
)

// ExitStatusFor maps the errors of one run to the exit status a script run
// ends with.
func ExitStatusFor(errs []errors.LoxError) ExitStatus {
	if len(errs) == 0 {
		return ExitOK
	}
	for _, err := range errs {
		if errors.IsStatic(err) {
			return ExitDataErr
		}
	}
	return ExitSoftware
}

// Option configures a Session.
type Option func(*Session)

// WithStdout sets where print output and REPL echoes go.
func WithStdout(w io.Writer) Option {
	return func(s *Session) { s.stdout = w }
}

// WithStderr sets where diagnostics go.
func WithStderr(w io.Writer) Option {
	return func(s *Session) { s.stderr = w }
}

// WithMaxDepth bounds the Lox call depth of the session.
func WithMaxDepth(n int) Option {
	return func(s *Session) { s.maxDepth = n }
}

// WithClock replaces the time source behind clock().
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.clock = now }
}

// WithContext sets the context every run is bound to. Cancelling it
// interrupts the program being run.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

// Session represents a persistent interpreter session. Globals defined by
// one run stay visible to the next; two sessions never share state.
type Session struct {
	interp   *interpreter.Interpreter
	stdout   io.Writer
	stderr   io.Writer
	maxDepth int
	clock    func() time.Time
	ctx      context.Context
}

// NewSession creates a session with fresh globals and the builtins installed.
func NewSession(opts ...Option) *Session {
	s := &Session{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		maxDepth: interpreter.DefaultMaxDepth,
		clock:    time.Now,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	globals := interpreter.NewEnvironment()
	if err := builtins.Install(globals, builtins.WithClock(s.clock)); err != nil {
		fmt.Fprintf(s.stderr, "Warning: Builtin initialization failed: %v\n", err)
	}
	s.interp = interpreter.NewInterpreter(globals,
		interpreter.WithOutput(s.stdout),
		interpreter.WithMaxDepth(s.maxDepth))
	return s
}

// Globals exposes the session's global environment.
func (s *Session) Globals() *interpreter.Environment {
	return s.interp.Globals()
}

// RunOptions configures optional debugging output and REPL leniency.
type RunOptions struct {
	ShowTokens bool
	ShowAST    bool
	// Repl accepts a trailing expression without ';' and returns the value
	// of a final expression statement for echoing.
	Repl bool
}

// RunString runs src as a script in the session.
func (s *Session) RunString(src string) (interpreter.Value, []errors.LoxError) {
	return s.RunCode(src, RunOptions{})
}

// RunCode scans, parses, resolves and interprets src. Static errors stop
// the run before anything executes; a runtime error stops it where it
// happened and is returned as the only error.
func (s *Session) RunCode(src string, options RunOptions) (interpreter.Value, []errors.LoxError) {
	sf := source.NewEvalSource(src)
	if options.Repl {
		sf = source.NewReplSource(src)
	}
	return s.run(sf, options)
}

func (s *Session) run(sf *source.SourceFile, options RunOptions) (interpreter.Value, []errors.LoxError) {
	l := lexer.NewLexerWithSource(sf)
	tokens := l.ScanTokens()
	if options.ShowTokens {
		fmt.Fprintln(s.stdout, "=== Tokens ===")
		for _, tok := range tokens {
			fmt.Fprintln(s.stdout, tok.String())
		}
		fmt.Fprintln(s.stdout, "==============")
	}

	p := parser.NewParserFromTokens(tokens)
	p.SetReplMode(options.Repl)
	program, parseErrs := p.ParseProgram()

	var staticErrs []errors.LoxError
	staticErrs = append(staticErrs, l.Errors()...)
	staticErrs = append(staticErrs, parseErrs...)
	if len(staticErrs) > 0 {
		return interpreter.Nil, staticErrs
	}

	parser.DumpAST(program, "RunCode")
	if options.ShowAST {
		fmt.Fprintln(s.stdout, "=== AST ===")
		fmt.Fprintln(s.stdout, program.String())
		fmt.Fprintln(s.stdout, "===========")
	}

	if resolveErrs := resolver.Resolve(program); len(resolveErrs) > 0 {
		return interpreter.Nil, resolveErrs
	}

	debugPrintf("// [Driver] running %s (%d statements)\n", sf.DisplayPath(), len(program.Statements))

	if !options.Repl {
		if err := s.interp.Interpret(s.ctx, program); err != nil {
			return interpreter.Nil, []errors.LoxError{asLoxError(err)}
		}
		return interpreter.Nil, nil
	}

	result := interpreter.Nil
	for _, stmt := range program.Statements {
		v, err := s.interp.Execute(s.ctx, stmt)
		if err != nil {
			return interpreter.Nil, []errors.LoxError{asLoxError(err)}
		}
		result = v
	}
	return result, nil
}

// asLoxError keeps runtime errors as they are and wraps anything else.
func asLoxError(err error) errors.LoxError {
	var rtErr *errors.RuntimeError
	if stderrors.As(err, &rtErr) {
		return rtErr
	}
	return errors.NewRuntimeError(errors.Position{}, err.Error()).CausedBy(err)
}

// DisplayResult reports errs to the error writer, or echoes a non-nil value
// to the output writer. It returns true if the run had no errors.
func (s *Session) DisplayResult(src string, value interpreter.Value, errs []errors.LoxError) bool {
	if len(errs) > 0 {
		errors.DisplayErrors(s.stderr, src, errs)
		return false
	}
	if !value.IsNil() {
		fmt.Fprintln(s.stdout, value.Inspect())
	}
	return true
}

// RunFile reads and runs the script at path, reporting errors to the error
// writer. The returned status is what the process should exit with.
func (s *Session) RunFile(path string) ExitStatus {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.stderr, "Failed to read file '%s': %s\n", path, err.Error())
		return ExitIOErr
	}
	sf := source.FromFile(path, string(content))
	_, errs := s.run(sf, RunOptions{})
	s.DisplayResult(sf.Content, interpreter.Nil, errs)
	return ExitStatusFor(errs)
}
