package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"treelox/pkg/errors"
	"treelox/pkg/expect"
	"treelox/pkg/source"
)

// RunScript runs the script at path in a fresh session bound to ctx and
// records what it printed and reported. Only a failure to read the script
// is returned as an error.
func RunScript(ctx context.Context, path string, opts ...Option) (expect.Outcome, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return expect.Outcome{}, fmt.Errorf("failed to read script %q: %w", path, err)
	}
	return RunSource(ctx, source.FromFile(path, string(content)), opts...), nil
}

// RunSource is RunScript for source already in memory.
func RunSource(ctx context.Context, sf *source.SourceFile, opts ...Option) expect.Outcome {
	var stdout bytes.Buffer
	opts = append(opts, WithStdout(&stdout), WithStderr(io.Discard), WithContext(ctx))
	s := NewSession(opts...)

	_, errs := s.run(sf, RunOptions{})
	return OutcomeOf(stdout.String(), errs)
}

// OutcomeOf describes a finished run from its output and errors.
func OutcomeOf(output string, errs []errors.LoxError) expect.Outcome {
	outcome := expect.Outcome{ExitCode: int(ExitStatusFor(errs))}
	if output != "" {
		outcome.Output = strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	}
	for _, err := range errs {
		if errors.IsStatic(err) {
			outcome.StaticErrors = append(outcome.StaticErrors, err.Error())
			continue
		}
		outcome.RuntimeError = err.Message()
		outcome.RuntimeLine = err.Pos().Line
	}
	return outcome
}
