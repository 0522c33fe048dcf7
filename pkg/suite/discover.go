// Package suite runs directories of Lox scripts against the expectation
// comments they carry and tracks results across runs.
package suite

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// DefaultPattern selects every Lox script.
const DefaultPattern = "*.lox"

// Discover walks fsys and returns the .lox scripts whose base name matches
// pattern, sorted for consistent ordering.
func Discover(fsys fs.FS, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var scripts []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".lox") {
			return nil
		}
		if matched, _ := path.Match(pattern, path.Base(p)); matched {
			scripts = append(scripts, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error finding scripts: %w", err)
	}

	sort.Strings(scripts)
	return scripts, nil
}
