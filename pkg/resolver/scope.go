package resolver

import "treelox/pkg/parser"

// scope maps a name to whether its declaration has finished.
type scope map[string]bool

// scopeStack mirrors the shape of the runtime environment chain for every
// block and function enclosing the current node. The global scope is never
// on the stack.
type scopeStack []scope

func (s *scopeStack) begin() {
	*s = append(*s, scope{})
}

func (s *scopeStack) end() {
	*s = (*s)[:len(*s)-1]
}

// top returns the innermost scope, or nil at global level.
func (s scopeStack) top() scope {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

func (s scopeStack) lookupInnermost(name string) (defined, ok bool) {
	top := s.top()
	if top == nil {
		return false, false
	}
	defined, ok = top[name]
	return defined, ok
}

// distance counts the scopes between the innermost one and the one that
// declares name. It returns parser.Global when no local scope does.
func (s scopeStack) distance(name string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if _, ok := s[i][name]; ok {
			return len(s) - 1 - i
		}
	}
	return parser.Global
}
