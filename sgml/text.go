package sgml

import (
	"context"
	"strings"

	"github.com/arturoeanton/sgmlreader/internal/dtd"
	"github.com/arturoeanton/sgmlreader/internal/elemstack"
	"github.com/arturoeanton/sgmlreader/internal/entity"
)

// readText accumulates character data, delegating to readCDataContent when
// the open element's declared content is raw CDATA (script, style, ...).
func (r *Reader) readText(ctx context.Context) (bool, error) {
	if top := r.stack.Top(); top != nil && top.Dtd != nil && top.Dtd.Content != nil &&
		top.Dtd.Content.DeclaredContent == dtd.DeclaredCDATA {
		return r.readCDataContent(ctx, top)
	}
	return r.readNormalText(ctx)
}

func (r *Reader) readNormalText(ctx context.Context) (bool, error) {
	var buf strings.Builder
	sawTagOpen := false

loop:
	for {
		switch c := r.stream.Lookahead(); c {
		case entity.EOF:
			break loop
		case '&':
			r.stream.ReadChar()
			expanded, literal, err := r.expandReference(ctx)
			if err != nil {
				return false, err
			}
			if literal {
				buf.WriteString(expanded)
			}
		case '<':
			r.stream.ReadChar()
			nc := r.stream.Lookahead()
			if nc == '/' || nc == '!' || nc == '?' || nc == '%' || isLetterRune(nc) {
				sawTagOpen = true
				break loop
			}
			buf.WriteByte('<')
		default:
			buf.WriteRune(c)
			r.stream.ReadChar()
		}
	}

	text := buf.String()
	if text == "" {
		if sawTagOpen {
			r.state = stateMarkup
			return false, nil
		}
		r.state = stateEof
		return false, nil
	}

	nextState := stateEof
	if sawTagOpen {
		nextState = stateMarkup
	}

	if isAllWhitespace(text) {
		preserve := r.stack.Top() != nil && r.stack.Top().Space == elemstack.SpacePreserve
		suppress := r.opts.Whitespace == WhitespaceNone || (r.opts.Whitespace == WhitespaceSignificant && !preserve)
		if suppress {
			r.state = nextState
			return false, nil
		}
		r.setScratch(elemstack.Whitespace, "", text, r.stack.Depth()+1)
		r.state = nextState
		return true, nil
	}

	r.setScratch(elemstack.Text, "", text, r.stack.Depth()+1)
	r.state = nextState
	return true, nil
}

// readCDataContent accumulates raw content for an element whose DTD declares
// CDATA content (script, style): no markup is recognized except a comment,
// a PI, and the specific end tag matching the enclosing element.
func (r *Reader) readCDataContent(ctx context.Context, top *elemstack.Node) (bool, error) {
	var buf strings.Builder

loop:
	for {
		c := r.stream.Lookahead()
		if c == entity.EOF {
			r.state = stateEof
			break
		}
		if c != '<' {
			buf.WriteRune(c)
			r.stream.ReadChar()
			continue
		}
		r.stream.ReadChar()
		nc := r.stream.Lookahead()
		switch {
		case nc == '!' || nc == '?':
			r.state = stateMarkup
			break loop
		case nc == '/':
			if r.cdataCloseFollows(top.Name) {
				r.state = stateText
				break loop
			}
			buf.WriteString("</")
			r.stream.ReadChar()
		default:
			buf.WriteByte('<')
		}
	}

	text := stripCDataWrappers(buf.String())
	if text == "" {
		return false, nil
	}
	r.setScratch(elemstack.CData, "", text, r.stack.Depth()+1)
	return true, nil
}

// cdataCloseFollows reports whether the current lookahead ('/' already
// consumed) is immediately followed by name and a tag-closing boundary,
// without consuming anything if it is not a match — except the already
// irrevocably consumed "</" prefix, which the caller re-emits as literal
// text on a mismatch.
func (r *Reader) cdataCloseFollows(name string) bool {
	r.stream.ReadChar() // consume '/'
	var kw strings.Builder
	for {
		c := r.stream.Lookahead()
		if isLetterRune(c) || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == ':' {
			kw.WriteRune(c)
			r.stream.ReadChar()
			continue
		}
		break
	}
	if !strings.EqualFold(kw.String(), name) {
		return false
	}
	r.stream.SkipWhitespace()
	if r.stream.Lookahead() == '>' {
		r.stream.ReadChar()
	}
	idx := -1
	for i := r.stack.Depth() - 1; i >= 0; i-- {
		if strings.EqualFold(r.stack.NodeAt(i).Name, name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
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
	return true
}

func stripCDataWrappers(s string) string {
	s = strings.ReplaceAll(s, "<![CDATA[", "")
	s = strings.ReplaceAll(s, "]]>", "")
	s = strings.ReplaceAll(s, "/**/", "")
	return s
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		if !isSGMLSpace(r) {
			return false
		}
	}
	return true
}

// expandReference parses a character or general entity reference whose '&'
// has already been consumed. literal is false when the reference resolved
// to an external entity that was pushed onto the stream for transparent
// inclusion (nothing to append yet — subsequent reads drain it directly).
func (r *Reader) expandReference(ctx context.Context) (value string, literal bool, err error) {
	if r.stream.Lookahead() == '#' {
		s, err := r.stream.ExpandCharEntity()
		return s, true, err
	}

	var nb strings.Builder
	for isEntityNameChar(r.stream.Lookahead()) {
		nb.WriteRune(r.stream.Lookahead())
		r.stream.ReadChar()
	}
	if r.stream.Lookahead() == ';' {
		r.stream.ReadChar()
	}
	name := nb.String()
	if name == "" {
		return "&", true, nil
	}
	if r.dtd == nil {
		return "&" + name + ";", true, nil
	}
	ge, ok := r.dtd.GeneralEntities[name]
	if !ok {
		return "&" + name + ";", true, nil
	}
	if ge.URI != "" {
		ext := entity.NewExternal(ge.Name, ge.PublicID, ge.URI, nil, r.stream.Sources())
		if err := r.stream.Push(ctx, ext); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return ge.Literal, true, nil
}

func isEntityNameChar(r rune) bool {
	return r == '-' || r == '_' || r == '.' || r == ':' || (r >= '0' && r <= '9') || isLetterRune(r)
}

// readBangMarkup dispatches "<!" markup (comment, CDATA section, marked
// section / IE downlevel-revealed block, DOCTYPE). '!' is still the current
// lookahead.
func (r *Reader) readBangMarkup(ctx context.Context) (bool, error) {
	r.stream.ReadChar() // consume '!'
	switch r.stream.Lookahead() {
	case '-':
		r.stream.ReadChar()
		if r.stream.Lookahead() == '-' {
			r.stream.ReadChar()
			return r.readComment(ctx)
		}
		return r.skipToGT(ctx)
	case '[':
		return r.readMarkedBlock(ctx)
	default:
		kw, _ := r.stream.ScanToken(" \t\r\n>", true)
		if strings.EqualFold(kw, "DOCTYPE") {
			return r.readDoctype(ctx)
		}
		r.warn("unrecognized markup declaration <!%s...>; discarded", kw)
		return r.skipToGT(ctx)
	}
}

func (r *Reader) skipToGT(ctx context.Context) (bool, error) {
	if _, err := r.stream.ScanToEnd("markup declaration", ">"); err != nil {
		return false, err
	}
	r.state = stateText
	return false, nil
}

func (r *Reader) readComment(ctx context.Context) (bool, error) {
	raw, err := r.stream.ScanToEnd("comment", "-->")
	if err != nil {
		return false, err
	}
	for strings.Contains(raw, "--") {
		raw = strings.ReplaceAll(raw, "--", "-")
	}
	if strings.HasSuffix(raw, "-") {
		raw += " "
	}
	r.setScratch(elemstack.Comment, "", raw, r.stack.Depth()+1)
	r.state = stateText
	return true, nil
}

// readMarkedBlock handles "<![...". CDATA sections become CData nodes;
// anything else (IE downlevel-revealed "<![if ...]>"/"<![endif]>", and
// marked sections that have no meaning outside a DTD) is silently skipped.
func (r *Reader) readMarkedBlock(ctx context.Context) (bool, error) {
	r.stream.ReadChar() // consume '['
	var kw strings.Builder
	for {
		c := r.stream.Lookahead()
		if c == '[' || c == ']' || c == entity.EOF || isSGMLSpace(c) {
			break
		}
		kw.WriteRune(c)
		r.stream.ReadChar()
	}
	if strings.EqualFold(kw.String(), "CDATA") && r.stream.Lookahead() == '[' {
		r.stream.ReadChar()
		raw, err := r.stream.ScanToEnd("CDATA section", "]]>")
		if err != nil {
			return false, err
		}
		r.setScratch(elemstack.CData, "", stripCDataWrappers(raw), r.stack.Depth()+1)
		r.state = stateText
		return true, nil
	}
	if _, err := r.stream.ScanToEnd("marked block", "]>"); err != nil {
		return false, err
	}
	r.state = stateText
	return false, nil
}

func (r *Reader) readPI(ctx context.Context) (bool, error) {
	r.stream.ReadChar() // consume '?'
	target, _ := r.stream.ScanToken(" \t\r\n?", true)
	rest, err := r.stream.ScanToEnd("processing instruction", "?>")
	if err != nil {
		return false, err
	}
	r.state = stateText
	if strings.EqualFold(target, "xml") {
		// Regenerated by the serializer; not reported as a node.
		return false, nil
	}
	r.setScratch(elemstack.ProcessingInstruction, target, strings.TrimSpace(rest), r.stack.Depth()+1)
	return true, nil
}

func (r *Reader) readASP(ctx context.Context) (bool, error) {
	r.stream.ReadChar() // consume '%'
	raw, err := r.stream.ScanToEnd("ASP block", "%>")
	if err != nil {
		return false, err
	}
	r.setScratch(elemstack.CData, "", "<%"+raw+"%>", r.stack.Depth()+1)
	r.state = stateText
	return true, nil
}

// readDoctype parses "<!DOCTYPE root [PUBLIC pubid [syslit] | SYSTEM
// syslit] [internal-subset]>", loads the named DTD, and (unless
// StripDocType) synthesizes a DocumentType node carrying PUBLIC/SYSTEM as
// attributes.
func (r *Reader) readDoctype(ctx context.Context) (bool, error) {
	r.stream.SkipWhitespace()
	rootName, err := r.stream.ScanToken(" \t\r\n[>", true)
	if err != nil {
		return false, err
	}
	r.stream.SkipWhitespace()

	var pubid, syslit string
	if isLetterRune(r.stream.Lookahead()) {
		kw, _ := r.stream.ScanToken(" \t\r\n", true)
		switch strings.ToUpper(kw) {
		case "PUBLIC":
			r.stream.SkipWhitespace()
			if pubid, err = r.stream.ScanLiteral(r.stream.Lookahead()); err != nil {
				return false, err
			}
			r.stream.SkipWhitespace()
			if q := r.stream.Lookahead(); q == '"' || q == '\'' {
				if syslit, err = r.stream.ScanLiteral(q); err != nil {
					return false, err
				}
			}
		case "SYSTEM":
			r.stream.SkipWhitespace()
			if syslit, err = r.stream.ScanLiteral(r.stream.Lookahead()); err != nil {
				return false, err
			}
		}
	}
	r.stream.SkipWhitespace()

	var subset string
	if r.stream.Lookahead() == '[' {
		r.stream.ReadChar()
		if subset, err = r.scanBalancedSubset(); err != nil {
			return false, err
		}
	}
	r.stream.SkipWhitespace()
	if r.stream.Lookahead() == '>' {
		r.stream.ReadChar()
	}

	if !r.opts.IgnoreDTD {
		d := dtd.NewDtd(strings.ToUpper(rootName))
		switch {
		case syslit != "":
			if err := r.loadExternalDtdInto(ctx, d, syslit); err != nil {
				return false, err
			}
		case strings.EqualFold(rootName, "html"):
			if err := r.loadHTMLDtdInto(ctx, d); err != nil {
				return false, err
			}
		}
		if subset != "" {
			if err := r.parseInternalSubset(ctx, d, subset); err != nil {
				return false, err
			}
		}
		r.dtd = d
	}

	r.state = stateText
	if r.opts.StripDocType {
		return false, nil
	}
	n := r.setScratch(elemstack.DocumentTypeNode, rootName, "", 1)
	if pubid != "" {
		v := pubid
		n.AddAttribute("PUBLIC", &v, '"', nil)
	}
	if syslit != "" {
		v := syslit
		n.AddAttribute("SYSTEM", &v, '"', nil)
	}
	return true, nil
}

func (r *Reader) scanBalancedSubset() (string, error) {
	var buf strings.Builder
	depth := 1
	for {
		c := r.stream.ReadChar()
		if c == entity.EOF {
			return "", r.errorf("internal DTD subset not terminated")
		}
		if c == '[' {
			depth++
		}
		if c == ']' {
			depth--
			if depth == 0 {
				return buf.String(), nil
			}
		}
		buf.WriteRune(c)
	}
}
