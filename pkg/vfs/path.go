package vfs

import (
	"strings"
	"unicode"
)

// Normalize collapses duplicate separators, strips leading and trailing
// slashes, and drops a single leading "./". The result never starts or ends
// with a slash; the empty string denotes the root of a root_key.
//
// Backslashes are ordinary characters, not separators, and ".." components
// are preserved literally: paths are storage keys, not navigable filesystem
// paths.
func Normalize(p string) string {
	if strings.HasPrefix(p, "./") {
		p = p[2:]
	}

	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	return p
}

// Split separates a normalized path into its parent path and final
// component. A path with no separator has parent "".
func Split(p string) (parentPath, filename string) {
	p = Normalize(p)
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

// Join concatenates parts with single slashes and normalizes the result.
// Empty parts are skipped.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return Normalize(strings.Join(nonEmpty, "/"))
}

// ValidName reports whether a single path component is acceptable.
// The whitelist is letters (including non-ASCII), digits, space, and
// the punctuation set "._-&()[]".
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
		case unicode.IsDigit(r):
		case r == ' ' || r == '.' || r == '_' || r == '-' || r == '&':
		case r == '(' || r == ')' || r == '[' || r == ']':
		default:
			return false
		}
	}
	return true
}

// ValidatePath checks every component of a full path with ValidName.
// The empty path (root) is valid.
func ValidatePath(p string) error {
	p = Normalize(p)
	if p == "" {
		return nil
	}
	for _, part := range strings.Split(p, "/") {
		if !ValidName(part) {
			return NewInvalidName(part)
		}
	}
	return nil
}
