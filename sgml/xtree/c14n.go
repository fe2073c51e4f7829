package xtree

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/arturoeanton/sgmlreader/internal/elemstack"
	"github.com/arturoeanton/sgmlreader/sgml"
)

// nsFrame is one level of the namespace stack: the prefix->URI bindings
// declared by the element at that depth, mirroring ucarion-c14n's
// stack.Stack but keyed to this reader's own Prefix()/NamespaceURI()
// resolution (internal/elemstack.Stack.ResolveNamespaceURI) instead of
// encoding/xml's namespace machinery.
type nsFrame struct {
	declared map[string]string
	rendered map[string]string
}

// Canonicalize drains r and renders it in Exclusive Canonical XML form
// (sorted attributes, minimal namespace redeclaration, no self-closing
// tags), adapted from ucarion-c14n/c14n.go's namespace-stack algorithm to
// consume this reader's own node stream instead of encoding/xml.Decoder.
// The teacher's own xml/c14n.go canonicalizes an already-built OrderedMap
// tree and sorts attributes without tracking namespace scope at all; this
// version restores the namespace-axis handling the W3C C14N spec actually
// requires, since sgml.Reader (unlike the teacher's reader) resolves
// prefixes to namespace URIs as it walks the stack.
func Canonicalize(ctx context.Context, r *sgml.Reader) ([]byte, error) {
	var buf bytes.Buffer
	var stack []*nsFrame

	for {
		ok, err := r.Read(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch r.NodeType() {
		case elemstack.Element:
			frame := renderStartTag(r, &buf, stack)
			stack = append(stack, frame)
			if r.IsEmptyElement() {
				writeEndTag(&buf, r)
				stack = stack[:len(stack)-1]
			}

		case elemstack.EndElement:
			writeEndTag(&buf, r)
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case elemstack.Text, elemstack.Whitespace:
			buf.WriteString(escapeC14NText(r.Value()))

		case elemstack.CData:
			buf.WriteString(escapeC14NText(r.Value()))

		case elemstack.ProcessingInstruction:
			// The XML declaration never reaches here: sgml.Reader doesn't
			// emit it as a node event in the first place.
			fmt.Fprintf(&buf, "<?%s", r.Name())
			if v := r.Value(); v != "" {
				buf.WriteByte(' ')
				buf.WriteString(v)
			}
			buf.WriteString("?>")

		case elemstack.Comment, elemstack.DocumentTypeNode:
			// C14N omits comments and the document type declaration from
			// the canonical form.
		}
	}
	return buf.Bytes(), nil
}

// renderStartTag writes an element's opening tag, resolving which xmlns
// declarations must be (re-)rendered at this depth per the C14N spec: a
// namespace is rendered only if it's visibly used here and isn't already
// in effect with the same URI from an ancestor.
func renderStartTag(r *sgml.Reader, buf *bytes.Buffer, stack []*nsFrame) *nsFrame {
	declared := map[string]string{}
	visiblyUsed := map[string]bool{r.Prefix(): true}

	attrs := make([]elemstack.Attr, 0, r.AttributeCount())
	for i := 0; i < r.AttributeCount(); i++ {
		a, _ := r.GetAttribute(i)
		if prefix, ok := namespaceDecl(a.Name); ok {
			declared[prefix] = attrValue(a)
			continue
		}
		attrs = append(attrs, a)
		if p, _, ok := strings.Cut(a.Name, ":"); ok {
			visiblyUsed[p] = true
		}
	}

	frame := &nsFrame{declared: declared, rendered: map[string]string{}}
	toRender := map[string]string{}
	for prefix, uri := range allKnown(stack, declared) {
		if !visiblyUsed[prefix] {
			continue
		}
		if already, ok := alreadyRendered(stack, prefix); ok && already == uri {
			continue
		}
		toRender[prefix] = uri
	}
	for prefix, uri := range toRender {
		frame.rendered[prefix] = uri
	}

	buf.WriteByte('<')
	buf.WriteString(r.Name())

	var nsNames []string
	for prefix := range toRender {
		nsNames = append(nsNames, prefix)
	}
	sort.Strings(nsNames)
	for _, prefix := range nsNames {
		if prefix == "" {
			fmt.Fprintf(buf, ` xmlns="%s"`, escapeC14NAttr(toRender[prefix]))
		} else {
			fmt.Fprintf(buf, ` xmlns:%s="%s"`, prefix, escapeC14NAttr(toRender[prefix]))
		}
	}

	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
	for _, a := range attrs {
		fmt.Fprintf(buf, ` %s="%s"`, a.Name, escapeC14NAttr(attrValue(a)))
	}
	buf.WriteByte('>')

	return frame
}

func writeEndTag(buf *bytes.Buffer, r *sgml.Reader) {
	fmt.Fprintf(buf, "</%s>", r.Name())
}

func allKnown(stack []*nsFrame, declared map[string]string) map[string]string {
	known := map[string]string{}
	for _, f := range stack {
		for prefix, uri := range f.declared {
			known[prefix] = uri
		}
	}
	for prefix, uri := range declared {
		known[prefix] = uri
	}
	return known
}

func alreadyRendered(stack []*nsFrame, prefix string) (string, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		if uri, ok := stack[i].rendered[prefix]; ok {
			return uri, true
		}
	}
	return "", false
}

func namespaceDecl(name string) (prefix string, ok bool) {
	if name == "xmlns" {
		return "", true
	}
	if p, local, found := strings.Cut(name, ":"); found && p == "xmlns" {
		return local, true
	}
	return "", false
}

func attrValue(a elemstack.Attr) string {
	if a.Value != nil {
		return *a.Value
	}
	return ""
}

func escapeC14NText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\r", "&#xD;")
	return s
}

func escapeC14NAttr(s string) string {
	s = escapeC14NText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "\t", "&#x9;")
	s = strings.ReplaceAll(s, "\n", "&#xA;")
	return s
}
