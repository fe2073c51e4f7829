package xtree

import (
	"context"
	"fmt"

	"github.com/arturoeanton/sgmlreader/internal/elemstack"
	"github.com/arturoeanton/sgmlreader/sgml"
)

// frame tracks one open element while BuildFromReader walks the reader's
// event stream, mirroring the teacher's MapXML stack of (tagName, data)
// pairs but keyed off sgml.Reader nodes instead of encoding/xml tokens.
type frame struct {
	tagName string
	data    *OrderedMap
}

// BuildFromReader drains r and materializes its event stream into an
// OrderedMap tree: attributes become "@name" keys, character data
// accumulates under "#text", comments/PIs/CDATA sections collect under
// "#comments"/"#pi"/"#cdata", and repeated child tags promote to a []any
// list. This is the in-memory counterpart to xmlwrite.CopyFromReader: both
// replay whatever the reader already decided to emit, one event at a time,
// rather than walking a pre-built tree the way the teacher's MapXML did
// with encoding/xml.Decoder.
func BuildFromReader(ctx context.Context, r *sgml.Reader) (*OrderedMap, error) {
	root := NewMap()
	stack := []*frame{{data: root}}

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
			current := NewMap()
			for i := 0; i < r.AttributeCount(); i++ {
				a, _ := r.GetAttribute(i)
				v := ""
				if a.Value != nil {
					v = *a.Value
				}
				current.Put("@"+a.Name, v)
			}
			stack = append(stack, &frame{tagName: r.Name(), data: current})
			if r.IsEmptyElement() {
				closeFrame(stack)
				stack = stack[:len(stack)-1]
			}

		case elemstack.EndElement:
			if len(stack) < 2 {
				continue // unbalanced EndElement past the root; reader already warned
			}
			closeFrame(stack)
			stack = stack[:len(stack)-1]

		case elemstack.Text, elemstack.Whitespace:
			appendText(stack[len(stack)-1].data, r.Value())

		case elemstack.CData:
			appendStringList(stack[len(stack)-1].data, "#cdata", r.Value())

		case elemstack.Comment:
			appendStringList(stack[len(stack)-1].data, "#comments", r.Value())

		case elemstack.ProcessingInstruction:
			pi := fmt.Sprintf("target=%s data=%s", r.Name(), r.Value())
			appendStringList(stack[len(stack)-1].data, "#pi", pi)

		case elemstack.DocumentTypeNode:
			pub, _ := r.GetAttributeByName("PUBLIC")
			sys, _ := r.GetAttributeByName("SYSTEM")
			dt := NewMap()
			dt.Put("@name", r.Name())
			if pub.Value != nil {
				dt.Put("@public", *pub.Value)
			}
			if sys.Value != nil {
				dt.Put("@system", *sys.Value)
			}
			root.Put("#doctype", dt)
		}
	}
	return root, nil
}

// closeFrame assigns the frame at the top of stack to its parent under its
// tag name, promoting repeated tags to a []any list the way the teacher's
// MapXML did on EndElement.
func closeFrame(stack []*frame) {
	child := stack[len(stack)-1]
	parent := stack[len(stack)-2]

	var value any = child.data
	if child.data.Len() == 1 {
		if text := child.data.Get("#text"); text != nil {
			value = text
		}
	}

	existing := parent.data.Get(child.tagName)
	switch v := existing.(type) {
	case nil:
		parent.data.Put(child.tagName, value)
	case []any:
		parent.data.Put(child.tagName, append(v, value))
	default:
		parent.data.Put(child.tagName, []any{v, value})
	}
}

func appendText(m *OrderedMap, text string) {
	if text == "" {
		return
	}
	if existing, ok := m.Get("#text").(string); ok {
		m.Put("#text", existing+text)
	} else {
		m.Put("#text", text)
	}
}

func appendStringList(m *OrderedMap, key, value string) {
	if list, ok := m.Get(key).([]string); ok {
		m.Put(key, append(list, value))
	} else {
		m.Put(key, []string{value})
	}
}
