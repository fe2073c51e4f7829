package sgml

import "github.com/arturoeanton/sgmlreader/internal/names"

// Whitespace controls how text runs consisting solely of whitespace are
// reported.
type Whitespace int

const (
	// WhitespaceAll reports every whitespace-only run as a Whitespace node.
	WhitespaceAll Whitespace = iota
	// WhitespaceSignificant reports whitespace-only runs only where
	// xml:space is in effect as "preserve"; elsewhere they are suppressed.
	WhitespaceSignificant
	// WhitespaceNone suppresses whitespace-only runs entirely.
	WhitespaceNone
)

// Options configures a Reader. It mirrors the host-application inputs: doc
// type / DOCTYPE overrides, DTD handling, name casing, whitespace policy,
// a proxy string, and the base URI for relative SYSTEM literals.
type Options struct {
	// DocType overrides the in-document DOCTYPE root name. "html"
	// (case-insensitive) loads the embedded default HTML DTD.
	DocType string
	// PublicID / SystemLiteral / InternalSubset override the DOCTYPE's
	// external/internal subset.
	PublicID       string
	SystemLiteral  string
	InternalSubset string

	// IgnoreDTD skips DTD loading entirely: no auto-close, no named entity
	// expansion beyond numeric character references.
	IgnoreDTD bool
	// StripDocType suppresses the synthesized DocumentType node, though the
	// DTD it names is still loaded.
	StripDocType bool

	// Fold is the element/attribute name-casing policy.
	Fold names.Fold
	// Whitespace is the whitespace-reporting policy.
	Whitespace Whitespace

	// Proxy is an opaque "server:port" string. The Reader does not read it:
	// external entity/DTD fetches go through the stream's byte source as
	// that source was constructed.
	Proxy string
	// BaseURI resolves relative SYSTEM literals when set.
	BaseURI string
}
