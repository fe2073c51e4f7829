package sgml

import (
	"context"
	"strings"

	"github.com/arturoeanton/sgmlreader/internal/dtd"
	"github.com/arturoeanton/sgmlreader/internal/elemstack"
	"github.com/arturoeanton/sgmlreader/internal/entity"
	"github.com/arturoeanton/sgmlreader/internal/names"
)

// readMarkup dispatches on the character following '<' (already consumed,
// still the current lookahead) to the right tag-shaped parser.
func (r *Reader) readMarkup(ctx context.Context) (bool, error) {
	switch c := r.stream.Lookahead(); {
	case c == '/':
		return r.readEndTag(ctx)
	case c == '!':
		return r.readBangMarkup(ctx)
	case c == '?':
		return r.readPI(ctx)
	case c == '%':
		return r.readASP(ctx)
	default:
		return r.readStartTag(ctx)
	}
}

func (r *Reader) dtdLookupElement(name string) (*dtd.ElementDecl, bool) {
	if r.dtd == nil {
		return nil, false
	}
	return r.dtd.Element(name)
}

// readStartTag parses a start tag whose name's first character is the
// current lookahead, pushes the element node, parses its attributes, runs
// root injection and DTD-driven auto-close, and queues whatever nodes result
// for Read to drain.
func (r *Reader) readStartTag(ctx context.Context) (bool, error) {
	rawName, _ := r.stream.ScanToken(Aterm, true)
	if !names.VerifyName(rawName) {
		text := "<" + rawName
		r.setScratch(elemstack.Text, "", text, r.stack.Depth()+1)
		r.state = stateText
		return true, nil
	}

	name := applyFold(r.opts, rawName)
	dtdElem, _ := r.dtdLookupElement(name)
	node := r.stack.Push(name, elemstack.Element, "")
	node.Dtd = dtdElem
	node.IsEmpty = false

	for {
		c := r.stream.SkipWhitespace()
		if c == entity.EOF {
			return false, r.errorf("start tag for %q not terminated", name)
		}
		if c == '>' {
			r.stream.ReadChar()
			break
		}
		if c == '/' {
			r.stream.ReadChar()
			if r.stream.Lookahead() == '>' {
				r.stream.ReadChar()
			}
			node.IsEmpty = true
			break
		}
		if strings.ContainsRune(",=:;", c) {
			r.stream.ReadChar()
			continue
		}
		attrName, _ := r.stream.ScanToken(Aterm, false)
		if attrName == "" {
			r.stream.ReadChar()
			continue
		}
		if !names.VerifyNMTOKEN(attrName) {
			r.warn("attribute %q on <%s> failed NMTOKEN validation; dropped", attrName, name)
			continue
		}
		attrName = applyFold(r.opts, attrName)
		valuePtr, quote, err := r.readAttributeValue(attrName)
		if err != nil {
			return false, err
		}
		var def *dtd.AttDef
		if dtdElem != nil {
			def, _ = dtdElem.Attribute(attrName)
		}
		if !node.AddAttribute(attrName, valuePtr, quote, def) {
			r.warn("duplicate attribute %q on <%s> dropped", attrName, name)
		}
	}

	r.stack.ApplyScope(node)
	if dtdElem != nil && dtdElem.Content != nil && dtdElem.Content.DeclaredContent == dtd.DeclaredEMPTY {
		node.IsEmpty = true
	}

	if r.stack.Depth() == 1 {
		if r.rootFound {
			// A second root-level element: the result must remain
			// single-rooted, so the reader stops here.
			r.stack.Pop()
			r.state = stateEof
			return false, nil
		}
		r.rootFound = true
		if r.injectSimulatedRoot(name) {
			node = r.stack.NodeAt(r.stack.Depth() - 1)
		}
	}

	isEmpty := node.IsEmpty
	r.applyAutoClose(node, name)
	if isEmpty {
		// Self-closed or DTD-EMPTY elements get exactly one Start event and
		// no matching End event (the IsEmptyElement flag on that event is
		// how a caller knows not to expect one, mirroring XmlReader), so pop
		// it back off immediately rather than leaving it open to swallow
		// whatever comes next as its children.
		r.stack.Pop()
	}
	r.state = stateText
	return false, nil
}

func (r *Reader) readAttributeValue(attrName string) (*string, rune, error) {
	if r.stream.Lookahead() != '=' {
		v := attrName
		return &v, 0, nil
	}
	r.stream.ReadChar()
	r.stream.SkipWhitespace()
	q := r.stream.Lookahead()
	if q == '"' || q == '\'' {
		lit, err := r.stream.ScanLiteral(q)
		if err != nil {
			return nil, 0, err
		}
		return &lit, q, nil
	}
	tok, err := r.stream.ScanToken(Avterm, false)
	if err != nil {
		return nil, 0, err
	}
	return &tok, 0, nil
}

// injectSimulatedRoot swaps a synthesized <html> element to the bottom of
// the stack the first time HTML content arrives whose root isn't <html>
// itself, queuing its Start event ahead of the node that triggered it. It
// reports whether an injection happened. Callers must only invoke this once
// per document, right as the first root-level element is pushed.
func (r *Reader) injectSimulatedRoot(name string) bool {
	if !strings.EqualFold(r.opts.DocType, "html") || strings.EqualFold(name, "html") {
		return false
	}
	saved := snapshotNode(r.stack.Top())
	r.stack.Pop()
	html := r.stack.Push(applyFold(r.opts, "html"), elemstack.Element, "")
	html.Dtd, _ = r.dtdLookupElement(html.Name)
	html.Simulated = true
	html.IsEmpty = false
	r.pending = append(r.pending, pendingEvent{node: html, depth: r.stack.Depth()})

	reborn := r.stack.Push(saved.Name, elemstack.Element, "")
	reborn.Dtd = saved.Dtd
	reborn.IsEmpty = saved.IsEmpty
	for _, a := range saved.Attrs {
		reborn.AddAttribute(a.Name, a.Value, a.Quote, a.DtdAttr)
	}
	r.stack.ApplyScope(reborn)
	return true
}

// applyAutoClose walks the stack from the immediate parent downward looking
// for an ancestor whose content model permits name, per spec.md's stop
// rules: unknown DTD type, <body> at depth 2, the DTD's declared root
// element (Dtd.Name), and any ancestor with a required end tag are floors —
// the search tests them once and goes no further. If the search stops above
// the immediate parent, at an ancestor that can contain name or at a floor
// (which may not), the intervening elements (including the immediate
// parent) are popped, each queuing an EndElement, and node is re-pushed
// directly above that ancestor before its own Start event is queued. Walking past every open element without finding a container or a
// floor closes the whole stack and re-pushes node at the top level.
func (r *Reader) applyAutoClose(node *elemstack.Node, name string) {
	parentIdx := r.stack.Depth() - 2
	if parentIdx < 0 {
		r.pending = append(r.pending, pendingEvent{node: node, depth: r.stack.Depth()})
		return
	}

	ancestorIdx := parentIdx
	for i := parentIdx; i >= 0; i-- {
		anc := r.stack.NodeAt(i)
		depth := i + 1
		isDtdRoot := r.dtd != nil && r.dtd.Name != "" && strings.EqualFold(anc.Name, r.dtd.Name)
		floor := anc.Dtd == nil || isDtdRoot || (depth == 2 && strings.EqualFold(anc.Name, "body")) ||
			(anc.Dtd != nil && !anc.Dtd.EndTagOptional)
		canContain := anc.Dtd != nil && anc.Dtd.CanContain(name)
		if canContain {
			ancestorIdx = i
			break
		}
		if floor {
			ancestorIdx = i
			break
		}
		ancestorIdx = i - 1
	}

	if ancestorIdx == parentIdx {
		r.pending = append(r.pending, pendingEvent{node: node, depth: r.stack.Depth()})
		return
	}

	saved := snapshotNode(node)
	r.stack.Pop() // remove the newly pushed node; it will be re-pushed below ancestorIdx
	for r.stack.Depth()-1 > ancestorIdx {
		depth := r.stack.Depth()
		popped := r.stack.Pop()
		r.pending = append(r.pending, pendingEvent{
			isEnd: true, depth: depth,
			name: popped.Name, localName: popped.LocalName,
			prefix: popped.Prefix, namespaceURI: popped.NamespaceURI,
		})
	}
	reborn := r.stack.Push(saved.Name, elemstack.Element, "")
	reborn.Dtd = saved.Dtd
	reborn.IsEmpty = saved.IsEmpty
	reborn.Simulated = saved.Simulated
	for _, a := range saved.Attrs {
		reborn.AddAttribute(a.Name, a.Value, a.Quote, a.DtdAttr)
	}
	r.stack.ApplyScope(reborn)
	r.pending = append(r.pending, pendingEvent{node: reborn, depth: r.stack.Depth()})
}

// savedNode is a value snapshot of a pushed elemstack.Node, taken before
// popping it back off during auto-close or root injection — see
// pendingEvent's doc comment for why a *Node can't be held across Push/Pop.
type savedNode struct {
	Name      string
	Dtd       *dtd.ElementDecl
	IsEmpty   bool
	Simulated bool
	Attrs     []elemstack.Attr
}

func snapshotNode(n *elemstack.Node) savedNode {
	return savedNode{
		Name: n.Name, Dtd: n.Dtd, IsEmpty: n.IsEmpty, Simulated: n.Simulated,
		Attrs: append([]elemstack.Attr(nil), n.Attrs...),
	}
}

// readEndTag parses "</name>" (the '/' is still the current lookahead),
// finds the matching open element (case-insensitively, since end tags pair
// with their start tag regardless of the active Fold policy), and queues an
// EndElement for it and every frame opened after it. An end tag with no
// matching open element is logged and dropped.
func (r *Reader) readEndTag(ctx context.Context) (bool, error) {
	r.stream.ReadChar() // consume '/'
	name, _ := r.stream.ScanToken(" \t\r\n>", true)
	r.stream.SkipWhitespace()
	if r.stream.Lookahead() == '>' {
		r.stream.ReadChar()
	}

	idx := -1
	for i := r.stack.Depth() - 1; i >= 0; i-- {
		if names.EqualFold(r.stack.NodeAt(i).Name, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.warn("end tag </%s> has no matching open element; dropped", name)
		r.state = stateText
		return false, nil
	}
	for r.stack.Depth()-1 >= idx {
		depth := r.stack.Depth()
		popped := r.stack.Pop()
		r.pending = append(r.pending, pendingEvent{
			isEnd: true, depth: depth,
			name: popped.Name, localName: popped.LocalName,
			prefix: popped.Prefix, namespaceURI: popped.NamespaceURI,
		})
	}
	r.state = stateText
	return false, nil
}
