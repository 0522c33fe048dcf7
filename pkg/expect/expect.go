// Package expect reads the expectation comments embedded in Lox test
// scripts and checks a run against them.
//
// Recognized comments, anywhere on a line:
//
//	// expect: <output line>
//	// expect runtime error: <message>
//	// [line N] Error at 'x': <message>
//	// Error at 'x': <message>   (line is the comment's own line)
package expect

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

var expectationPattern = regexp2.MustCompile(
	`//\s?(?:`+
		`expect: ?(?<output>.*)`+
		`|expect runtime error: (?<runtime>.+)`+
		`|\[(?:(?<lang>java|c) )?line (?<line>\d+)\] (?<lineerr>Error.*)`+
		`|(?<error>Error.*)`+
		`)`,
	regexp2.None)

// Exit codes a script run ends with.
const (
	ExitOK      = 0
	ExitStatic  = 65
	ExitRuntime = 70
)

// Expectations is what a script says it should do.
type Expectations struct {
	Output       []string
	StaticErrors []string // rendered "[line N] Error...: msg"
	RuntimeError string   // message without the line trailer
	RuntimeLine  int
}

// Outcome is what a run actually did.
type Outcome struct {
	Output       []string
	StaticErrors []string
	RuntimeError string
	RuntimeLine  int
	ExitCode     int
}

// Parse collects the expectations from src.
func Parse(src string) (*Expectations, error) {
	exp := &Expectations{}
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		m, err := expectationPattern.FindStringMatch(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if m == nil {
			continue
		}

		switch {
		case matched(m, "output"):
			exp.Output = append(exp.Output, group(m, "output"))

		case matched(m, "runtime"):
			if exp.RuntimeError != "" {
				return nil, fmt.Errorf("line %d: more than one runtime error expected", lineNum)
			}
			exp.RuntimeError = strings.TrimSpace(group(m, "runtime"))
			exp.RuntimeLine = lineNum

		case matched(m, "lineerr"):
			// Expectations written for the bytecode implementation only.
			if group(m, "lang") == "c" {
				continue
			}
			n, err := strconv.Atoi(group(m, "line"))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad line number: %w", lineNum, err)
			}
			exp.StaticErrors = append(exp.StaticErrors, fmt.Sprintf("[line %d] %s", n, group(m, "lineerr")))

		case matched(m, "error"):
			exp.StaticErrors = append(exp.StaticErrors, fmt.Sprintf("[line %d] %s", lineNum, group(m, "error")))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading script content: %w", err)
	}
	return exp, nil
}

func matched(m *regexp2.Match, name string) bool {
	g := m.GroupByName(name)
	return g != nil && len(g.Captures) > 0
}

func group(m *regexp2.Match, name string) string {
	if g := m.GroupByName(name); g != nil {
		return g.String()
	}
	return ""
}

// ExitCode is the exit code the expectations imply.
func (e *Expectations) ExitCode() int {
	switch {
	case len(e.StaticErrors) > 0:
		return ExitStatic
	case e.RuntimeError != "":
		return ExitRuntime
	}
	return ExitOK
}

// Check compares o against the expectations and describes every mismatch.
// An empty result means the run passed.
func (e *Expectations) Check(o Outcome) []string {
	var failures []string
	fail := func(format string, args ...interface{}) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	// Static errors compare as sets; the order they are reported in is not
	// part of the contract.
	want := make(map[string]int, len(e.StaticErrors))
	for _, msg := range e.StaticErrors {
		want[msg]++
	}
	for _, msg := range o.StaticErrors {
		if want[msg] > 0 {
			want[msg]--
			continue
		}
		fail("unexpected error: %s", msg)
	}
	for _, msg := range e.StaticErrors {
		if want[msg] > 0 {
			want[msg]--
			fail("missing expected error: %s", msg)
		}
	}

	switch {
	case e.RuntimeError != "" && o.RuntimeError == "":
		fail("expected runtime error %q and got none", e.RuntimeError)
	case e.RuntimeError != "" && o.RuntimeError != e.RuntimeError:
		fail("expected runtime error %q and got %q", e.RuntimeError, o.RuntimeError)
	case e.RuntimeError != "" && o.RuntimeLine != e.RuntimeLine:
		fail("expected runtime error on line %d but was on line %d", e.RuntimeLine, o.RuntimeLine)
	case e.RuntimeError == "" && o.RuntimeError != "":
		fail("unexpected runtime error: %s [line %d]", o.RuntimeError, o.RuntimeLine)
	}

	for i, line := range o.Output {
		if i >= len(e.Output) {
			fail("got output %q when none was expected", line)
			continue
		}
		if line != e.Output[i] {
			fail("expected output %q and got %q", e.Output[i], line)
		}
	}
	for _, line := range e.Output[min(len(o.Output), len(e.Output)):] {
		fail("missing expected output %q", line)
	}

	if want := e.ExitCode(); o.ExitCode != want {
		fail("expected exit code %d and got %d", want, o.ExitCode)
	}
	return failures
}
