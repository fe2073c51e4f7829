// Package sgml implements the pull-mode SGML/HTML-to-XML reader: a state
// machine that walks a character stream (via internal/entity), consults a
// DTD (internal/dtd) for content-model-driven auto-close and named-entity
// expansion, and reports nodes through an open-element stack
// (internal/elemstack).
package sgml

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/arturoeanton/sgmlreader/internal/diag"
	"github.com/arturoeanton/sgmlreader/internal/dtd"
	"github.com/arturoeanton/sgmlreader/internal/elemstack"
	"github.com/arturoeanton/sgmlreader/internal/entity"
	"github.com/arturoeanton/sgmlreader/internal/names"
)

// state names the reader's top-level pull-parsing states. A single Read
// call may run several of these in sequence (e.g. stateMarkup resolving
// straight back to stateText after a comment), but never returns without
// settling on the state the next call should resume from.
type state int

const (
	stateInitial state = iota
	stateText
	stateMarkup
	stateEof
)

// Attribute terminators, named after spec's literal SGML terminator sets.
const (
	Aterm  = " \t\r\n='\"/>"
	Avterm = " \t\r\n>"
)

// pendingEvent is a node the reader has already decided to emit but hasn't
// reported yet — built up whenever a single cause (auto-close, root
// injection, an explicit end tag closing several frames at once) produces
// more than one node. Read drains these one per call before resuming the
// state machine.
//
// End events carry their own name/depth snapshot rather than a *Node
// pointer: Stack reuses the same *Node across Push calls at a given
// high-water-mark position, so holding the pointer past a further Push/Pop
// would see it mutated out from under the reader.
type pendingEvent struct {
	isEnd        bool
	depth        int
	name         string
	localName    string
	prefix       string
	namespaceURI string
	node         *elemstack.Node // set for start events only
}

// Reader is a pull-mode SGML/HTML reader. The zero value is not usable; call
// NewReader.
type Reader struct {
	stream  *entity.Stream
	stack   *elemstack.Stack
	scratch *elemstack.Node

	loader ResourceLoader
	opts   Options
	log    diag.Logger

	dtd    *dtd.Dtd
	opened bool

	state state

	rootFound bool
	eof       bool

	pending []pendingEvent

	cur     *elemstack.Node
	curType elemstack.NodeType

	depthOverride int // depth of the last emitted node, stamped by setCur when the event was decided
}

// NewReader constructs a Reader that reads from stream, using loader to
// resolve the embedded HTML DTD and log for warnings (may be nil).
func NewReader(stream *entity.Stream, loader ResourceLoader, opts Options, log diag.Logger) *Reader {
	return &Reader{
		stream:  stream,
		stack:   elemstack.New(),
		scratch: &elemstack.Node{},
		loader:  loader,
		opts:    opts,
		log:     log,
		state:   stateInitial,
	}
}

// Dtd returns the DTD bound to this reader, or nil before it has loaded one.
func (r *Reader) Dtd() *dtd.Dtd { return r.dtd }

// Depth returns the current node's nesting depth (the document is depth 0).
// Every setCur/setScratch call stamps depthOverride with the depth snapshot
// taken at the moment the event was decided (Push/Pop time), not when it's
// finally drained from the pending queue — auto-close and root injection can
// push a replacement node onto the stack before a queued EndElement for a
// different frame is reported, so reading the live stack depth here instead
// would attribute the wrong number to it.
func (r *Reader) Depth() int {
	return r.depthOverride
}

// NodeType, Name, LocalName, Prefix, Value, IsEmptyElement report on the
// most recently read node.
func (r *Reader) NodeType() elemstack.NodeType { return r.curType }

func (r *Reader) Name() string {
	if r.cur == nil {
		return ""
	}
	return r.cur.Name
}

func (r *Reader) LocalName() string {
	if r.cur == nil {
		return ""
	}
	return r.cur.LocalName
}

func (r *Reader) Prefix() string {
	if r.cur == nil {
		return ""
	}
	return r.cur.Prefix
}

func (r *Reader) NamespaceURI() string {
	if r.cur == nil || r.cur.Prefix == "" {
		return ""
	}
	return r.stack.ResolveNamespaceURI(r.cur.Prefix)
}

func (r *Reader) Value() string {
	if r.cur == nil {
		return ""
	}
	return r.cur.Value
}

func (r *Reader) IsEmptyElement() bool {
	return r.cur != nil && r.cur.IsEmpty
}

func (r *Reader) XMLSpacePreserve() bool {
	return r.cur != nil && r.cur.Space == elemstack.SpacePreserve
}

func (r *Reader) XMLLang() string {
	if r.cur == nil {
		return ""
	}
	return r.cur.Lang
}

func (r *Reader) AttributeCount() int {
	if r.cur == nil {
		return 0
	}
	return len(r.cur.Attrs)
}

func (r *Reader) GetAttribute(i int) (elemstack.Attr, bool) {
	if r.cur == nil || i < 0 || i >= len(r.cur.Attrs) {
		return elemstack.Attr{}, false
	}
	return r.cur.Attrs[i], true
}

func (r *Reader) GetAttributeByName(name string) (elemstack.Attr, bool) {
	if r.cur == nil {
		return elemstack.Attr{}, false
	}
	return r.cur.Attribute(name)
}

func (r *Reader) MoveToAttribute(i int) bool {
	if r.cur == nil {
		return false
	}
	return r.cur.MoveToAttribute(i)
}

func (r *Reader) MoveToFirstAttribute() bool {
	if r.cur == nil {
		return false
	}
	return r.cur.MoveToFirstAttribute()
}

func (r *Reader) MoveToNextAttribute() bool {
	if r.cur == nil {
		return false
	}
	return r.cur.MoveToNextAttribute()
}

func (r *Reader) MoveToElement() {
	if r.cur != nil {
		r.cur.MoveToElement()
	}
}

// Eof reports whether the reader has no further nodes to produce.
func (r *Reader) Eof() bool { return r.eof }

// Close disposes the entity chain still open on the reader's stream.
func (r *Reader) Close() error {
	var err error
	for r.stream.Current() != nil {
		if e := r.stream.Pop(); e != nil && err == nil {
			err = e
		}
	}
	r.eof = true
	return err
}

// GetEncoding returns the encoding name of the currently open entity.
func (r *Reader) GetEncoding() string {
	if e := r.stream.Current(); e != nil {
		return e.Encoding
	}
	return ""
}

func (r *Reader) warn(format string, args ...any) {
	diag.Warn(r.log, format, args...)
}

func (r *Reader) errorf(format string, args ...any) error {
	return &diag.ReaderError{Msg: fmt.Sprintf(format, args...), Context: r.stream.Context()}
}

func (r *Reader) setCur(n *elemstack.Node, typ elemstack.NodeType, depth int) {
	r.cur = n
	r.curType = typ
	r.depthOverride = depth
}

// setScratch stores a throwaway node kind (Text, CData, Comment, PI,
// Whitespace, DocumentType, EndElement) into the reader's single reused
// scratch slot, which is current only for the duration of the call that
// produced it.
func (r *Reader) setScratch(typ elemstack.NodeType, name, value string, depth int) *elemstack.Node {
	r.scratch.Name = name
	r.scratch.LocalName = name
	r.scratch.Prefix = ""
	r.scratch.NamespaceURI = ""
	r.scratch.Type = typ
	r.scratch.Value = value
	r.scratch.Attrs = r.scratch.Attrs[:0]
	r.scratch.IsEmpty = true
	r.scratch.Simulated = false
	r.setCur(r.scratch, typ, depth)
	return r.scratch
}

// Read advances the reader by one node. It returns false once the stream is
// exhausted (or on a second root-level element, which forces Eof to keep the
// result single-rooted); callers distinguish "done" from "error" via err.
func (r *Reader) Read(ctx context.Context) (bool, error) {
	if r.eof {
		return false, nil
	}
	if !r.opened {
		if err := r.ensureOpen(ctx); err != nil {
			return false, err
		}
		r.opened = true
	}

	for {
		if len(r.pending) > 0 {
			ev := r.pending[0]
			r.pending = r.pending[1:]
			if ev.isEnd {
				n := r.setScratch(elemstack.EndElement, ev.name, "", ev.depth)
				n.LocalName, n.Prefix, n.NamespaceURI = ev.localName, ev.prefix, ev.namespaceURI
			} else {
				r.setCur(ev.node, elemstack.Element, ev.depth)
			}
			return true, nil
		}

		switch r.state {
		case stateInitial:
			if r.stream.Current() == nil {
				r.state = stateEof
				continue
			}
			r.state = stateText

		case stateText:
			produced, err := r.readText(ctx)
			if err != nil {
				return false, err
			}
			if produced {
				return true, nil
			}
			continue

		case stateMarkup:
			produced, err := r.readMarkup(ctx)
			if err != nil {
				return false, err
			}
			if produced {
				return true, nil
			}
			continue

		case stateEof:
			if !r.rootFound {
				return false, nil
			}
			if r.stack.Depth() > 0 {
				top := r.stack.Pop()
				n := r.setScratch(elemstack.EndElement, top.Name, "", r.stack.Depth()+1)
				n.LocalName, n.Prefix = top.LocalName, top.Prefix
				return true, nil
			}
			r.eof = true
			return false, nil

		default:
			return false, r.errorf("reader entered an unknown state")
		}
	}
}

// ensureOpen loads the DTD named by Options before the first node is read,
// deferring to an in-document DOCTYPE when no override is given. The entity
// stream is left as the caller pushed it.
func (r *Reader) ensureOpen(ctx context.Context) error {
	if r.opts.IgnoreDTD {
		r.dtd = dtd.NewDtd(r.opts.DocType)
		return nil
	}
	d := dtd.NewDtd(r.opts.DocType)
	switch {
	case r.opts.SystemLiteral != "":
		if err := r.loadExternalDtdInto(ctx, d, r.opts.SystemLiteral); err != nil {
			return err
		}
	case strings.EqualFold(r.opts.DocType, "html"):
		if err := r.loadHTMLDtdInto(ctx, d); err != nil {
			return err
		}
	}
	if r.opts.InternalSubset != "" {
		if err := r.parseInternalSubset(ctx, d, r.opts.InternalSubset); err != nil {
			return err
		}
	}
	r.dtd = d
	return nil
}

// loadHTMLDtdInto parses the embedded default HTML DTD (via loader) into d.
func (r *Reader) loadHTMLDtdInto(ctx context.Context, d *dtd.Dtd) error {
	if r.loader == nil {
		return nil
	}
	rd, err := r.loader.Load("HTML")
	if err != nil {
		return err
	}
	dtdStream := entity.NewStream(entity.UTF8, r.stream.Sources())
	if err := dtdStream.Push(ctx, entity.NewFromReader("html.dtd", rd, false)); err != nil {
		return err
	}
	return dtd.NewParser(dtdStream, d, r.log).Parse(ctx)
}

// loadExternalDtdInto fetches systemLiteral (resolved against
// Options.BaseURI when that is set) through the reader's byte source and
// parses it into d.
func (r *Reader) loadExternalDtdInto(ctx context.Context, d *dtd.Dtd, systemLiteral string) error {
	if r.opts.BaseURI != "" {
		if base, err := url.Parse(r.opts.BaseURI); err == nil {
			if ref, err := url.Parse(systemLiteral); err == nil {
				systemLiteral = base.ResolveReference(ref).String()
			}
		}
	}
	dtdStream := entity.NewStream(entity.UTF8, r.stream.Sources())
	ext := entity.NewExternal("dtd", r.opts.PublicID, systemLiteral, nil, r.stream.Sources())
	if err := dtdStream.Push(ctx, ext); err != nil {
		return err
	}
	return dtd.NewParser(dtdStream, d, r.log).Parse(ctx)
}

// parseInternalSubset feeds subset (the bracketed text between [ and ] in a
// DOCTYPE) through the DTD parser, merging declarations additively into d.
func (r *Reader) parseInternalSubset(ctx context.Context, d *dtd.Dtd, subset string) error {
	s := entity.NewStream(entity.UTF8, r.stream.Sources())
	if err := s.Push(ctx, entity.NewInternal("internal-subset", subset, entity.LiteralNone, nil)); err != nil {
		return err
	}
	return dtd.NewParser(s, d, r.log).Parse(ctx)
}

func applyFold(opts Options, name string) string {
	return names.Apply(opts.Fold, name)
}

func isSGMLSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func isLetterRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
