package xmlpatch

import (
	"fmt"
	"strings"
	"unicode"
)

// Locator is an anchored element path such as /project/dependencies.
// It matches an element iff the local names of the element and all its
// ancestors, from the document root down, equal the path segments.
// Namespace prefixes and URIs are ignored.
type Locator struct {
	segments []string
}

// ParseLocator parses an absolute path of element names separated by "/".
func ParseLocator(path string) (Locator, error) {
	if !strings.HasPrefix(path, "/") {
		return Locator{}, fmt.Errorf("locator %q: must start with /", path)
	}
	segments := strings.Split(path[1:], "/")
	for _, s := range segments {
		if s == "" {
			return Locator{}, fmt.Errorf("locator %q: empty path segment", path)
		}
		if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
			return Locator{}, fmt.Errorf("locator %q: segment %q contains whitespace", path, s)
		}
	}
	return Locator{segments: segments}, nil
}

// MustParseLocator is like ParseLocator but panics on invalid input.
// Intended for package-level constants.
func MustParseLocator(path string) Locator {
	l, err := ParseLocator(path)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Locator) String() string {
	return "/" + strings.Join(l.segments, "/")
}

// IsZero reports whether l is the zero Locator, which matches nothing.
func (l Locator) IsZero() bool {
	return len(l.segments) == 0
}

// Matches reports whether the element path given by stack (root first)
// is exactly the locator's path.
func (l Locator) Matches(stack []string) bool {
	if len(stack) != len(l.segments) || len(stack) == 0 {
		return false
	}
	for i := range stack {
		if stack[i] != l.segments[i] {
			return false
		}
	}
	return true
}
