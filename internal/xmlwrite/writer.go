// Package xmlwrite serializes the node stream produced by sgml.Reader back
// into well-formed XML text, the pull-driven replacement for the teacher's
// map-driven Encoder (xml/streaming_encoder.go, now deleted — see
// DESIGN.md).
package xmlwrite

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Writer streams XML markup to w, tracking just enough open-element state
// (the stack of tag names not yet closed, and whether the most recently
// opened start tag still needs its '>' written) to interleave attributes,
// children, and close tags correctly as they arrive one event at a time.
type Writer struct {
	w      io.Writer
	open   []string
	dirty  bool // a start tag's '>' hasn't been written yet
	pretty bool
	indent string
	err    error

	sawAny      bool // at least one byte has been written
	lastWasText bool // the last content written was Text/CData, not markup
}

// New returns a Writer with no pretty-printing.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

// NewPretty returns a Writer that indents nested elements with indent
// repeated once per depth level.
func NewPretty(w io.Writer, indent string) *Writer {
	return &Writer{w: w, pretty: true, indent: indent}
}

func (enc *Writer) closeStartTag() {
	if enc.dirty {
		enc.write(">")
		enc.dirty = false
	}
}

func (enc *Writer) write(s string) {
	if enc.err != nil || s == "" {
		return
	}
	_, enc.err = io.WriteString(enc.w, s)
	enc.sawAny = true
}

// newline indents before the next markup token, skipped for the very first
// token written and whenever the immediately preceding content was text:
// indenting around character data would change what a reader sees.
func (enc *Writer) newline() {
	if !enc.pretty || !enc.sawAny || enc.lastWasText {
		return
	}
	enc.write("\n" + strings.Repeat(enc.indent, len(enc.open)))
}

// Err returns the first write error encountered, if any.
func (enc *Writer) Err() error { return enc.err }

// StartElement opens name, writing attrs into the tag. If isEmpty, the tag
// is self-closed immediately and no matching EndElement should follow.
func (enc *Writer) StartElement(name string, attrs []Attr, isEmpty bool) error {
	enc.closeStartTag()
	enc.newline()
	enc.write("<" + name)
	for _, a := range attrs {
		enc.write(fmt.Sprintf(` %s="%s"`, a.Name, escapeAttr(a.Value)))
	}
	enc.lastWasText = false
	if isEmpty {
		enc.write("/>")
		return enc.err
	}
	enc.open = append(enc.open, name)
	enc.dirty = true
	return enc.err
}

// EndElement closes the innermost open element, which must be name (callers
// drive this from sgml.Reader's own EndElement events, so names always
// match; a mismatch indicates a caller bug, not malformed input the
// serializer needs to repair).
func (enc *Writer) EndElement(name string) error {
	if enc.dirty {
		enc.write("/>")
		enc.dirty = false
		enc.popOpen(name)
		enc.lastWasText = false
		return enc.err
	}
	enc.popOpen(name)
	enc.newline()
	enc.write("</" + name + ">")
	enc.lastWasText = false
	return enc.err
}

func (enc *Writer) popOpen(name string) {
	if n := len(enc.open); n > 0 && enc.open[n-1] == name {
		enc.open = enc.open[:n-1]
	}
}

// Text writes s as escaped character data.
func (enc *Writer) Text(s string) error {
	enc.closeStartTag()
	escapeText(enc.w, s, &enc.err)
	enc.sawAny = enc.sawAny || s != ""
	enc.lastWasText = true
	return enc.err
}

// CData writes s wrapped in a CDATA section. s must not itself contain the
// "]]>" terminator; callers splitting such content are responsible for
// breaking it across adjacent sections.
func (enc *Writer) CData(s string) error {
	enc.closeStartTag()
	enc.write("<![CDATA[" + s + "]]>")
	enc.lastWasText = true
	return enc.err
}

// Comment writes s as an XML comment.
func (enc *Writer) Comment(s string) error {
	enc.closeStartTag()
	enc.newline()
	enc.write("<!--" + s + "-->")
	enc.lastWasText = false
	return enc.err
}

// ProcessingInstruction writes a "<?target data?>" instruction.
func (enc *Writer) ProcessingInstruction(target, data string) error {
	enc.closeStartTag()
	enc.newline()
	if data == "" {
		enc.write("<?" + target + "?>")
	} else {
		enc.write("<?" + target + " " + data + "?>")
	}
	enc.lastWasText = false
	return enc.err
}

// DocumentType writes a "<!DOCTYPE name PUBLIC|SYSTEM ...>" declaration.
// Either of publicID/systemID may be empty.
func (enc *Writer) DocumentType(name, publicID, systemID string) error {
	enc.write("<!DOCTYPE " + name)
	switch {
	case publicID != "":
		enc.write(fmt.Sprintf(` PUBLIC "%s" "%s"`, publicID, systemID))
	case systemID != "":
		enc.write(fmt.Sprintf(` SYSTEM "%s"`, systemID))
	}
	enc.write(">")
	return enc.err
}

// Attr is one attribute to emit on a StartElement call.
type Attr struct {
	Name  string
	Value string
}

func escapeText(w io.Writer, s string, errp *error) {
	if *errp != nil {
		return
	}
	*errp = xml.EscapeText(w, []byte(s))
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
