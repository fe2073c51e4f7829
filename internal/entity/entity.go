// Package entity implements the encoding-detecting character source
// (spec.md's Entity layer): auto-detecting byte decoding, a single open
// Entity's scan primitives, and the Stream that threads nested entities
// together into one flat character sequence for the DTD parser and the
// SGML reader to consume.
package entity

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EOF is the sentinel rune returned once an Entity's underlying stream is
// exhausted. It is outside the Unicode scalar range used by any legal
// character reference, so it can never collide with real content.
const EOF = rune(-1)

// LiteralKind distinguishes the three flavors of entity literal text that a
// DTD ENTITY declaration can carry.
type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralCDATA
	LiteralSDATA
	LiteralPI
)

// ByteSource resolves an absolute URI to a byte stream. It is the "byte
// source by URI" external collaborator: the default implementation lives in
// internal/fetch, but DTD and SGML parsing only ever see this interface.
type ByteSource interface {
	Open(ctx context.Context, uri string) (rc io.ReadCloser, resolvedURI, contentType string, err error)
}

// Entity is one node of the entity stack: either the top-level document, an
// external DTD subset, an external general/parameter entity fetched over a
// ByteSource, or an internal entity expanding from a literal string held
// entirely in memory.
type Entity struct {
	Name        string
	PublicID    string
	URI         string
	ResolvedURI string
	Parent      *Entity
	Literal     string
	LiteralKind LiteralKind
	IsInternal  bool
	htmlFlag    bool
	Encoding    string
	LastChar    rune
	Line        int
	LineStart   int64
	Offset      int64
	Proxy       string

	isWhitespace bool
	opened       bool
	closed       bool

	r      *bufio.Reader
	closer io.Closer

	externalSrc ByteSource
	rawReader   io.Reader
}

// NewInternal constructs an entity backed by an in-memory literal, e.g. the
// replacement text of a general entity declared with a quoted value.
func NewInternal(name, literal string, kind LiteralKind, parent *Entity) *Entity {
	e := &Entity{Name: name, Literal: literal, LiteralKind: kind, IsInternal: true, Parent: parent}
	if parent != nil {
		e.htmlFlag = parent.htmlFlag
		e.Proxy = parent.Proxy
	}
	return e
}

// NewExternal constructs an entity that will be fetched through src when
// Open is called.
func NewExternal(name, publicID, uri string, parent *Entity, src ByteSource) *Entity {
	e := &Entity{Name: name, PublicID: publicID, URI: uri, Parent: parent}
	if parent != nil {
		e.htmlFlag = parent.htmlFlag
		e.Proxy = parent.Proxy
	}
	e.externalSrc = src
	return e
}

// NewFromReader wraps a pre-existing character source (e.g. an os.Stdin
// pipe the caller already opened) as the root entity, bypassing ByteSource
// resolution entirely.
func NewFromReader(name string, r io.Reader, isHTML bool) *Entity {
	e := &Entity{Name: name, htmlFlag: isHTML, rawReader: r}
	return e
}

// IsHTMLEffective reports whether this entity, or any ancestor, was marked
// HTML; HTML-ness propagates down the entity stack once set.
func (e *Entity) IsHTMLEffective() bool {
	for cur := e; cur != nil; cur = cur.Parent {
		if cur.htmlFlag {
			return true
		}
	}
	return false
}

// MarkHTML sets this entity's own HTML flag (used once content-type sniffing
// or the -html CLI flag confirms it).
func (e *Entity) MarkHTML() { e.htmlFlag = true }

// Open resolves the entity's byte stream exactly once, detects its encoding
// (falling back to def when no BOM or declaration overrides it), and primes
// LastChar with the first decoded character. Calling Open twice is a usage
// error.
func (e *Entity) Open(ctx context.Context, def Decoding) error {
	if e.opened {
		return fmt.Errorf("entity %q already opened", e.Name)
	}
	e.opened = true
	e.Line = 1

	switch {
	case e.IsInternal:
		e.r = bufio.NewReader(strings.NewReader(e.Literal))
		e.Encoding = "utf-8"
	case e.rawReader != nil:
		if err := e.openDecoded(e.rawReader, def); err != nil {
			return err
		}
	default:
		if e.externalSrc == nil {
			return fmt.Errorf("entity %q has no byte source", e.Name)
		}
		rc, resolved, contentType, err := e.externalSrc.Open(ctx, e.URI)
		if err != nil {
			return fmt.Errorf("opening entity %q: %w", e.Name, err)
		}
		e.closer = rc
		e.ResolvedURI = resolved
		if strings.Contains(strings.ToLower(contentType), "text/html") {
			e.htmlFlag = true
		}
		if err := e.openDecoded(rc, def); err != nil {
			return err
		}
	}

	e.advance()
	return nil
}

// openDecoded buffers the whole byte stream (non-seekable sources can't be
// rewound once sniffing has consumed a window of them), detects the BOM,
// then a declaration or meta charset, then wraps the result in the chosen
// Decoding before handing it to bufio for rune-at-a-time reading.
func (e *Entity) openDecoded(raw io.Reader, def Decoding) error {
	all, err := io.ReadAll(raw)
	if err != nil {
		return fmt.Errorf("reading entity %q: %w", e.Name, err)
	}

	dec := def
	body := all
	if bom, consumed := DetectBOM(all); bom != nil {
		dec = *bom
		body = all[consumed:]
	} else {
		window := decodeWindow(dec, body)
		if name, ok := Sniff(window); ok {
			if found, ok := Lookup(name); ok {
				dec = *found
			}
		}
	}
	e.Encoding = dec.Name
	e.r = bufio.NewReader(dec.Reader(bytes.NewReader(body)))
	return nil
}

func decodeWindow(dec Decoding, body []byte) string {
	n := len(body)
	if n > 4096 {
		n = 4096
	}
	r := bufio.NewReader(dec.Reader(bytes.NewReader(body[:n])))
	var sb strings.Builder
	for {
		ru, _, err := r.ReadRune()
		if err != nil {
			break
		}
		sb.WriteRune(ru)
	}
	return sb.String()
}

// Close releases the underlying byte stream, if any. Closing an entity more
// than once, or one that was never opened, is a no-op.
func (e *Entity) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// Current returns the entity's current lookahead character without
// consuming it.
func (e *Entity) Current() rune { return e.LastChar }

// ReadChar advances past the current lookahead character and returns the
// next one, updating Line/LineStart/Offset bookkeeping as it goes. Returns
// EOF once the underlying stream is exhausted.
func (e *Entity) ReadChar() rune { return e.advance() }

// advance performs one raw decode step: it normalizes an embedded NUL to a
// space, tracks line/column using a one-character lookahead (CRLF counts as
// a single line break), and updates LastChar/Offset/isWhitespace.
func (e *Entity) advance() rune {
	if e.closed || e.r == nil {
		e.LastChar = EOF
		return EOF
	}
	prev := e.LastChar
	r, _, err := e.r.ReadRune()
	if err != nil {
		e.LastChar = EOF
		e.isWhitespace = false
		return EOF
	}
	if r == 0 {
		r = ' '
	}
	if r == '\n' || (prev == '\r' && r != '\n') {
		e.Line++
		e.LineStart = e.Offset
	}
	e.Offset++
	e.LastChar = r
	e.isWhitespace = r == ' ' || r == '\t' || r == '\r' || r == '\n'
	return r
}

// SkipWhitespace advances past consecutive whitespace characters and
// returns the first non-whitespace character (or EOF).
func (e *Entity) SkipWhitespace() rune {
	for e.isWhitespace {
		e.advance()
	}
	return e.LastChar
}

// ScanToken reads characters into buf, starting from the current lookahead
// character, until the lookahead character is contained in term. When
// nmtoken is true, the first character scanned must be a valid XML
// NameStartChar. The terminator character is left as the lookahead for the
// caller to inspect.
func (e *Entity) ScanToken(term string, nmtoken bool) (string, error) {
	var sb strings.Builder
	first := true
	for e.LastChar != EOF && !strings.ContainsRune(term, e.LastChar) {
		if first && nmtoken && !isNameStart(e.LastChar) {
			return "", e.lexicalErrorf("name expected, found %q", e.LastChar)
		}
		first = false
		sb.WriteRune(e.LastChar)
		e.advance()
	}
	if sb.Len() == 0 && nmtoken {
		return "", e.lexicalErrorf("name expected, found %q", e.LastChar)
	}
	return sb.String(), nil
}

// ScanLiteral reads a quoted literal. The lookahead character must be the
// opening quote; ScanLiteral consumes through the matching closing quote,
// expanding numeric character references as it goes, and leaves the
// lookahead positioned on the character after the closing quote.
func (e *Entity) ScanLiteral(quote rune) (string, error) {
	var sb strings.Builder
	e.advance() // step past the opening quote
	for {
		switch e.LastChar {
		case EOF:
			return "", e.lexicalErrorf("literal not terminated; expected %q", quote)
		case quote:
			e.advance()
			return sb.String(), nil
		case '&':
			e.advance()
			if e.LastChar == '#' {
				expanded, err := e.ExpandCharEntity()
				if err != nil {
					return "", err
				}
				sb.WriteString(expanded)
				continue
			}
			sb.WriteByte('&')
		default:
			sb.WriteRune(e.LastChar)
			e.advance()
		}
	}
}

// ScanToEnd reads characters into a buffer, starting from the current
// lookahead character, until the accumulated tail matches terminator. It
// returns the buffer with the terminator stripped and leaves the lookahead
// positioned on the character after the terminator. label names the
// construct being scanned (comment, CDATA section, ...) for error messages.
func (e *Entity) ScanToEnd(label, terminator string) (string, error) {
	termLen := len([]rune(terminator))
	var buf []rune
	for {
		if e.LastChar == EOF {
			return "", e.lexicalErrorf("%s not terminated; expected %q", label, terminator)
		}
		buf = append(buf, e.LastChar)
		if len(buf) >= termLen && string(buf[len(buf)-termLen:]) == terminator {
			e.advance()
			return string(buf[:len(buf)-termLen]), nil
		}
		e.advance()
	}
}

// ExpandCharEntity parses a numeric character reference whose '&#' prefix
// has already been consumed (the lookahead character is '#'), and returns
// its expansion as a one-rune UTF-8 string. It consumes through the
// terminating ';' when present.
func (e *Entity) ExpandCharEntity() (string, error) {
	e.advance() // step past '#'
	hex := false
	if e.LastChar == 'x' || e.LastChar == 'X' {
		hex = true
		e.advance()
	}
	var digits strings.Builder
	for (hex && isHexDigit(e.LastChar)) || (!hex && isDigit(e.LastChar)) {
		digits.WriteRune(e.LastChar)
		e.advance()
	}
	if digits.Len() == 0 {
		return "", e.lexicalErrorf("malformed character reference")
	}
	if e.LastChar == ';' {
		e.advance()
	}
	base := 10
	if hex {
		base = 16
	}
	v, err := strconv.ParseInt(digits.String(), base, 32)
	if err != nil {
		return "", e.lexicalErrorf("malformed character reference: %v", err)
	}
	cp := rune(v)
	if e.IsHTMLEffective() {
		cp = remapWindows1252(cp)
	}
	if cp < 0 || cp > 0x10FFFF || (cp >= 0xD800 && cp <= 0xDFFF) {
		return "", e.lexicalErrorf("character reference out of range: U+%X", cp)
	}
	return string(cp), nil
}

// Context renders a human-readable trace of this entity and its ancestors,
// innermost first, for inclusion in diagnostics.
func (e *Entity) Context() string {
	var sb strings.Builder
	for cur := e; cur != nil; cur = cur.Parent {
		col := cur.Offset - cur.LineStart
		fmt.Fprintf(&sb, "  at %s, line %d, col %d", cur.describe(), cur.Line, col)
		if cur.ResolvedURI != "" {
			fmt.Fprintf(&sb, " [%s]", cur.ResolvedURI)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (e *Entity) describe() string {
	if e.Name == "" {
		return "<document>"
	}
	return e.Name
}

func isDigit(r rune) bool    { return r >= '0' && r <= '9' }
func isHexDigit(r rune) bool { return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') }
func isNameStart(r rune) bool {
	return r == '_' || r == ':' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r > 0x7F
}
