package source

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceFile holds a unit of Lox source text along with where it came from.
// Content is always stored in Unicode NFC so identical-looking identifiers
// and string literals compare equal.
type SourceFile struct {
	Name    string // Display name ("fib.lox", "<repl>", "<eval>")
	Path    string // Full file path, empty for REPL/eval input
	Content string
	lines   []string
}

// NewSourceFile creates a source file, normalizing its content.
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:    name,
		Path:    path,
		Content: Normalize(content),
	}
}

// NewEvalSource creates a source for code passed with -e.
func NewEvalSource(content string) *SourceFile {
	return NewSourceFile("<eval>", "", content)
}

// NewReplSource creates a source for a single REPL entry.
func NewReplSource(content string) *SourceFile {
	return NewSourceFile("<repl>", "", content)
}

// FromFile creates a SourceFile from a file path and its content.
func FromFile(filePath, content string) *SourceFile {
	return NewSourceFile(filepath.Base(filePath), filePath, content)
}

// Normalize returns s in NFC form. Already-normalized input is returned as is.
func Normalize(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Lines returns the content split into lines (cached).
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// Line returns the 1-based line n, or "" when out of range.
func (sf *SourceFile) Line(n int) string {
	lines := sf.Lines()
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[n-1], "\r")
}

// DisplayPath prefers Path and falls back to Name.
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}

// IsFile reports whether the source was read from disk.
func (sf *SourceFile) IsFile() bool {
	return sf.Path != ""
}
