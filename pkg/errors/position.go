package errors

import "treelox/pkg/source"

// Position is a location in Lox source. Line and Column are 1-based, the byte
// offsets are 0-based with EndPos exclusive.
type Position struct {
	Line     int
	Column   int
	StartPos int
	EndPos   int
	Source   *source.SourceFile
}
