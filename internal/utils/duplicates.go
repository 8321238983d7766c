package utils

// SeenFilter drops values whose key was already seen.
// It is not safe for concurrent use.
type SeenFilter struct {
	seen map[string]struct{}
	key  func(string) string
}

// NewSeenFilter creates a filter keyed by key. Values in exclude count as
// already seen. A nil key compares values as they are.
func NewSeenFilter(key func(string) string, exclude ...string) *SeenFilter {
	if key == nil {
		key = func(s string) string { return s }
	}
	f := &SeenFilter{
		seen: make(map[string]struct{}, len(exclude)),
		key:  key,
	}
	for _, s := range exclude {
		f.seen[key(s)] = struct{}{}
	}
	return f
}

// ShouldInclude reports whether s is new, and marks it seen.
func (f *SeenFilter) ShouldInclude(s string) bool {
	k := f.key(s)
	if _, dup := f.seen[k]; dup {
		return false
	}
	f.seen[k] = struct{}{}
	return true
}
