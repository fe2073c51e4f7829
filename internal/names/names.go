// Package names implements XML 1.0 NAME/NMTOKEN validation and the
// element/attribute case-folding policy used by the SGML reader.
package names

import "strings"

// Fold selects how element and attribute names are normalized as they are
// read off the wire.
type Fold int

const (
	// FoldNone preserves the spelling found in the source. End tags still
	// match their start tag case-insensitively; the reported name mirrors
	// the start tag's original spelling.
	FoldNone Fold = iota
	// FoldUpper upper-cases every element and attribute name.
	FoldUpper
	// FoldLower lower-cases every element and attribute name.
	FoldLower
)

// Apply folds name according to f.
func Apply(f Fold, name string) string {
	switch f {
	case FoldUpper:
		return strings.ToUpper(name)
	case FoldLower:
		return strings.ToLower(name)
	default:
		return name
	}
}

// EqualFold reports whether a and b name the same element/attribute when
// matched case-insensitively, which is how end tags are paired with their
// start tag regardless of the active Fold policy.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

func isNameStartChar(r rune) bool {
	switch {
	case r == '_' || r == ':':
		return true
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r >= 0xC0 && r <= 0xD6, r >= 0xD8 && r <= 0xF6, r >= 0xF8 && r <= 0x2FF:
		return true
	case r >= 0x370 && r <= 0x37D, r >= 0x37F && r <= 0x1FFF:
		return true
	case r >= 0x200C && r <= 0x200D, r >= 0x2070 && r <= 0x218F:
		return true
	case r >= 0x2C00 && r <= 0x2FEF, r >= 0x3001 && r <= 0xD7FF:
		return true
	case r >= 0xF900 && r <= 0xFDCF, r >= 0xFDF0 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0xEFFFF:
		return true
	}
	return false
}

func isNameChar(r rune) bool {
	if isNameStartChar(r) {
		return true
	}
	switch {
	case r == '-' || r == '.':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == 0xB7:
		return true
	case r >= 0x0300 && r <= 0x036F:
		return true
	case r == 0x203F || r == 0x2040:
		return true
	}
	return false
}

// VerifyName reports whether s is a well-formed XML Name: a NameStartChar
// followed by zero or more NameChars. An empty string is never a valid name.
func VerifyName(s string) bool {
	if s == "" {
		return false
	}
	first := true
	for _, r := range s {
		if first {
			if !isNameStartChar(r) {
				return false
			}
			first = false
			continue
		}
		if !isNameChar(r) {
			return false
		}
	}
	return true
}

// VerifyNMTOKEN reports whether s is a well-formed XML Nmtoken: one or more
// NameChars (no NameStartChar restriction on the first character).
func VerifyNMTOKEN(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isNameChar(r) {
			return false
		}
	}
	return true
}

// SplitPrefix splits a qualified name "prefix:local" into its parts. ok is
// false when name has no colon, in which case prefix is empty and local
// equals name. When name has a colon, the suffix after it is additionally
// validated as an NCName (no further colons) per spec.md's rule that
// attribute names with a colon must verify the suffix as an NCName.
func SplitPrefix(name string) (prefix, local string, ok bool) {
	i := strings.IndexByte(name, ':')
	if i < 0 {
		return "", name, false
	}
	prefix, local = name[:i], name[i+1:]
	if prefix == "" || local == "" || strings.IndexByte(local, ':') >= 0 {
		return "", name, false
	}
	if !VerifyName(local) {
		return "", name, false
	}
	return prefix, local, true
}
