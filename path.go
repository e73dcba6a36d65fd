package keyfs

import "strings"

// Delimiter is the character separating key path components. Together with
// the layout version token in metadata.go it is the only fixed external
// constant of this package; both are embedding-time decisions, never
// call-time parameters.
const Delimiter = "/"

// KeyPath is the parsed form of a key or path string: the non-empty
// components between delimiters, plus whether the original string was
// absolute (leading delimiter). Parsing collapses redundant interior
// delimiters and ignores a trailing delimiter; String renders the
// canonical form back out.
//
// This deliberately avoids the platform path types (path, path/filepath)
// so the parsing rules, particularly around redundant delimiters, are
// explicit behavior owned and tested by this package rather than a hidden
// dependency.
type KeyPath struct {
	components []string
	absolute   bool
}

// ParseKeyPath splits s on the delimiter. Empty segments produced by
// leading, trailing or doubled delimiters carry no components; use
// IsValidName to reject the doubled-delimiter forms before parsing where
// that matters.
func ParseKeyPath(s string) KeyPath {
	kp := KeyPath{absolute: strings.HasPrefix(s, Delimiter)}
	for _, c := range strings.Split(s, Delimiter) {
		if c != "" {
			kp.components = append(kp.components, c)
		}
	}
	return kp
}

// Count returns the number of components. The root and the empty path
// both have zero.
func (kp KeyPath) Count() int { return len(kp.components) }

// IsAbsolute reports whether the original string carried a leading
// delimiter.
func (kp KeyPath) IsAbsolute() bool { return kp.absolute }

// Component returns the i'th component, counting from zero at the top of
// the hierarchy. i must be in [0, Count).
func (kp KeyPath) Component(i int) string { return kp.components[i] }

// Last returns the final component, or false if the path has none.
func (kp KeyPath) Last() (string, bool) {
	if len(kp.components) == 0 {
		return "", false
	}
	return kp.components[len(kp.components)-1], true
}

// Parent returns the path with the final component removed. The second
// return is false when there is no parent: the path is empty, or it is a
// relative path with a single component. The parent of an absolute
// single-component path is the root.
func (kp KeyPath) Parent() (KeyPath, bool) {
	if len(kp.components) == 0 || (len(kp.components) == 1 && !kp.absolute) {
		return KeyPath{}, false
	}
	return KeyPath{
		components: kp.components[:len(kp.components)-1],
		absolute:   kp.absolute,
	}, true
}

// String renders the canonical form: components joined by the delimiter,
// with a leading delimiter if the path is absolute. The root renders as
// the bare delimiter, the empty relative path as "". There is never a
// trailing delimiter.
func (kp KeyPath) String() string {
	if kp.absolute {
		return Delimiter + strings.Join(kp.components, Delimiter)
	}
	return strings.Join(kp.components, Delimiter)
}
