// Package elemstack implements the reader's open-element stack: the
// high-water-mark Node/Attribute slots the SGML reader pushes and pops as it
// walks a document, and the xml:space/xml:lang scoping and namespace
// resolution that ride along with them.
package elemstack

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/arturoeanton/sgmlreader/internal/dtd"
)

// NodeType mirrors the pull-reader's node type surface.
type NodeType int

const (
	Document NodeType = iota
	DocumentTypeNode
	Element
	EndElement
	Attribute
	Text
	CData
	Comment
	ProcessingInstruction
	Whitespace
)

// SpaceScope is the xml:space scope in effect for a node.
type SpaceScope int

const (
	SpaceDefault SpaceScope = iota
	SpacePreserve
)

// Attr is one attribute on an Element node. Value is nil when the attribute
// was not given a literal in the source and the DTD default should be used
// instead (`read_attribute_value` / default-value resolution at the reader
// layer dereferences Default via DtdAttr).
type Attr struct {
	Name    string
	Value   *string
	Quote   rune
	DtdAttr *dtd.AttDef
}

// Node is one slot of the open-element stack. Slots are retained and reused
// across pushes (see Stack), so every field reset() touches must be restored
// to its zero/default meaning before the slot is handed back out.
type Node struct {
	Name      string
	LocalName string
	Prefix    string
	NamespaceURI string

	Type  NodeType
	Value string

	Space SpaceScope
	Lang  string

	IsEmpty   bool
	Simulated bool

	Dtd *dtd.ElementDecl

	Attrs []Attr

	attrCursor int // -1 = positioned on the element itself, else index into Attrs
}

// reset restores every field a pushed slot is responsible for clearing, per
// the high-water-mark reuse contract: attribute count zeroed, DTD binding
// cleared, is_empty true. Space/Lang are set by the caller afterward (Stack
// inherits them from the parent before any of the node's own attributes are
// known).
func (n *Node) reset(name string, typ NodeType, value string) {
	n.Name = name
	n.LocalName = name
	n.Prefix = ""
	n.NamespaceURI = ""
	n.Type = typ
	n.Value = value
	n.IsEmpty = true
	n.Simulated = false
	n.Dtd = nil
	n.Attrs = n.Attrs[:0]
	n.attrCursor = -1
}

// AddAttribute appends an attribute, dropping it with ok=false if name is
// already present (duplicate attributes are dropped with a warning at the
// reader layer, which owns the logger).
func (n *Node) AddAttribute(name string, value *string, quote rune, def *dtd.AttDef) (ok bool) {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name, name) {
			return false
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value, Quote: quote, DtdAttr: def})
	return true
}

// Attribute looks up an attribute by name, case-sensitively first and falling
// back to a case-insensitive match (names on a node are typically already
// folded to a single case by the time they land here).
func (n *Node) Attribute(name string) (Attr, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Attr{}, false
}

// AttributeValue returns an attribute's effective string value: its literal
// if one was given, else its DTD default, else "".
func (n *Node) AttributeValue(name string) (string, bool) {
	a, ok := n.Attribute(name)
	if !ok {
		return "", false
	}
	if a.Value != nil {
		return *a.Value, true
	}
	if a.DtdAttr != nil {
		return a.DtdAttr.Default, true
	}
	return "", true
}

// MoveToAttribute points the node's attribute cursor at the i'th attribute.
func (n *Node) MoveToAttribute(i int) bool {
	if i < 0 || i >= len(n.Attrs) {
		return false
	}
	n.attrCursor = i
	return true
}

// MoveToFirstAttribute resets the cursor to the first attribute, if any.
func (n *Node) MoveToFirstAttribute() bool { return n.MoveToAttribute(0) }

// MoveToNextAttribute advances the cursor to the next attribute.
func (n *Node) MoveToNextAttribute() bool { return n.MoveToAttribute(n.attrCursor + 1) }

// MoveToElement resets the attribute cursor back onto the element itself.
func (n *Node) MoveToElement() { n.attrCursor = -1 }

// CurrentAttribute returns the attribute the cursor currently points at.
func (n *Node) CurrentAttribute() (Attr, bool) {
	if n.attrCursor < 0 || n.attrCursor >= len(n.Attrs) {
		return Attr{}, false
	}
	return n.Attrs[n.attrCursor], true
}

// canonicalizeLang validates/normalizes a BCP-47 xml:lang value with
// golang.org/x/text/language, falling back to the raw string unchanged if it
// doesn't parse, so an unusual or future language tag still surfaces rather
// than being silently dropped.
func canonicalizeLang(raw string) string {
	if raw == "" {
		return raw
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}
