package dedupe

import "strconv"

// componentSeparator cannot appear in a host, port, or path component, so
// concatenation can never collide two distinct (host, port, path) tuples
// onto the same key. Replaces the teacher's builder-style key
// construction (withHost().withPort().withPath()) with a pure function,
// per spec §9 design note.
const componentSeparator = "\x1f"

// DefaultKey is the default dedupe-key strategy: host, port, and path
// joined by a separator that cannot occur in any of the three
// components.
func DefaultKey(host string, port int, path string) string {
	return host + componentSeparator + strconv.Itoa(port) + componentSeparator + path
}
