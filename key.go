package keyfs

import "strings"

// Key path conventions: a key ending with the delimiter is
// directory-shaped and names a non-leaf entry; a key without one is
// file-shaped and names a leaf. The functions in this file translate
// between absolute paths ("/a/b/c") and the flat keys ("a/b/c") stored in
// a bucket, and answer parent/child questions about them. They are pure
// and hold no state, so they are safe for any number of concurrent
// callers.

// PathToKey strips the single leading delimiter from an absolute path,
// yielding the flat key form. The input must be non-empty and absolute;
// passing anything else is a caller error.
func PathToKey(path string) string {
	return path[1:]
}

// Parent returns the parent of keyName with a trailing delimiter
// appended, or "" if keyName has no parent (it is empty, or a single
// relative component). The parent of a top-level absolute key is the bare
// delimiter.
func Parent(keyName string) string {
	parent, ok := ParseKeyPath(keyName).Parent()
	if !ok {
		return ""
	}
	return AddTrailingSlash(parent.String())
}

// ParentDir returns the name of the deepest directory containing keyName:
// for "/a/b/c/d/e/file1" it returns "e". Unlike Parent this is a single
// component, not a path. Returns "" if keyName has no parent.
func ParentDir(keyName string) string {
	parent, ok := ParseKeyPath(keyName).Parent()
	if !ok {
		return ""
	}
	last, ok := parent.Last()
	if !ok {
		return ""
	}
	return last
}

// FileName returns the last path component of keyName, the leaf name. If
// keyName has no components it is returned unchanged.
func FileName(keyName string) string {
	last, ok := ParseKeyPath(keyName).Last()
	if !ok {
		return keyName
	}
	return last
}

// ComponentCount returns the number of path components in keyName.
// Redundant delimiters do not add components and a leading delimiter does
// not count as one.
func ComponentCount(keyName string) int {
	return ParseKeyPath(keyName).Count()
}

// AddTrailingSlash appends the delimiter to key unless one is already
// present. Pure suffix concatenation; the interior of the key is never
// touched.
func AddTrailingSlash(key string) string {
	if !strings.HasSuffix(key, Delimiter) {
		return key + Delimiter
	}
	return key
}

// RemoveTrailingSlash re-renders a directory-shaped key in canonical
// form, which drops the trailing delimiter. File-shaped keys are returned
// unchanged. Unlike AddTrailingSlash this goes through the parser, so
// redundant interior delimiters collapse too.
func RemoveTrailingSlash(key string) string {
	if strings.HasSuffix(key, Delimiter) {
		return ParseKeyPath(key).String()
	}
	return key
}

// IsFile reports whether keyName is file-shaped. Directory-shaped keys,
// including the empty key (the root), are never files.
func IsFile(keyName string) bool {
	return keyName != "" && !strings.HasSuffix(keyName, Delimiter)
}

// IsValidName reports whether src is acceptable as an absolute path: it
// must start with the delimiter, contain no doubled delimiters in its
// interior, and no component may be ".", "..", or contain ":". Dot
// components are rejected outright, never resolved. A trailing delimiter
// is legitimate and denotes a directory-shaped path.
func IsValidName(src string) bool {
	if !strings.HasPrefix(src, Delimiter) {
		return false
	}
	components := strings.Split(src, Delimiter)
	for i, component := range components {
		if component == "." || component == ".." ||
			strings.Contains(component, ":") ||
			strings.Contains(component, Delimiter) {
			return false
		}
		// The string may start or end with the delimiter, but interior
		// components must be non-empty.
		if component == "" && i != 0 && i != len(components)-1 {
			return false
		}
	}
	return true
}

// ImmediateChild returns the immediate child of ancestor on the way to
// descendant. If descendant is ancestor plus exactly one component it is
// returned as is, without a trailing delimiter; this lets callers tell a
// file leaf from an intermediate directory, as file keys never carry one.
// A deeper descendant yields ancestor plus its next single component,
// with a trailing delimiter appended. The second return is false when
// descendant is not under ancestor at all; that is an expected outcome,
// not an error.
//
// For example, with ancestor "/a/b": descendant "/a/b/c/d/e" yields
// "/a/b/c/", while descendant "/a/b/c" yields "/a/b/c".
func ImmediateChild(descendant, ancestor string) (string, bool) {
	if ancestor != "" {
		ancestor = AddTrailingSlash(ancestor)
	}
	if !strings.HasPrefix(descendant, ancestor) {
		return "", false
	}
	var ancestorCount int
	if ancestor != "" {
		ancestorCount = ComponentCount(ancestor)
	}
	descendantPath := ParseKeyPath(descendant)
	if descendantPath.Count()-ancestorCount > 1 {
		return AddTrailingSlash(ancestor + descendantPath.Component(ancestorCount)), true
	}
	return descendant, true
}

// IsImmediateChild reports whether childKey names an entry directly under
// parentKey. A blank childKey has no parent relationship at all. A blank
// parentKey matches top-level entries: children with no parent, or whose
// parent is the root. Otherwise the canonical parsed forms of parentKey
// and of childKey's parent are compared.
func IsImmediateChild(parentKey, childKey string) bool {
	if strings.TrimSpace(childKey) == "" {
		return false
	}
	childParent, ok := ParseKeyPath(childKey).Parent()
	if strings.TrimSpace(parentKey) == "" {
		return !ok || childParent.String() == Delimiter
	}
	if !ok {
		return false
	}
	return ParseKeyPath(parentKey).String() == childParent.String()
}

// AppendFileName joins fileName onto keyName with the delimiter between
// them. Neither argument is validated.
func AppendFileName(keyName, fileName string) string {
	return keyName + Delimiter + fileName
}
