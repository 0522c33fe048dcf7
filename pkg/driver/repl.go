package driver

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompt is written before every REPL entry.
const Prompt = "> "

// RunPrompt reads one entry per line from r and runs it in the session
// until EOF. Errors are reported and abandon only the entry that caused
// them, so definitions made by earlier entries survive.
func (s *Session) RunPrompt(r io.Reader, options RunOptions) error {
	reader := bufio.NewReader(r)
	options.Repl = true

	for {
		fmt.Fprint(s.stdout, Prompt)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("error reading input: %w", err)
		}

		if entry := strings.TrimRight(line, "\r\n"); strings.TrimSpace(entry) != "" {
			value, errs := s.RunCode(entry, options)
			_ = s.DisplayResult(entry, value, errs)
		}

		if err == io.EOF {
			fmt.Fprintln(s.stdout, "\nGoodbye!")
			return nil
		}
	}
}
