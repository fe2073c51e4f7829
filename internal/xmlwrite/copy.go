package xmlwrite

import (
	"context"
	"fmt"

	"github.com/arturoeanton/sgmlreader/internal/elemstack"
	"github.com/arturoeanton/sgmlreader/sgml"
)

// CopyFromReader drains r, writing every node it produces to enc in order.
// It is the pull-mode analogue of the teacher's recursive encodeNode: rather
// than walking an in-memory map, it replays exactly what the reader already
// decided to emit.
func CopyFromReader(ctx context.Context, enc *Writer, r *sgml.Reader) error {
	for {
		ok, err := r.Read(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := copyNode(enc, r); err != nil {
			return err
		}
	}
	return enc.Err()
}

func copyNode(enc *Writer, r *sgml.Reader) error {
	switch r.NodeType() {
	case elemstack.Element:
		attrs := make([]Attr, 0, r.AttributeCount())
		for i := 0; i < r.AttributeCount(); i++ {
			a, _ := r.GetAttribute(i)
			v := ""
			if a.Value != nil {
				v = *a.Value
			}
			attrs = append(attrs, Attr{Name: a.Name, Value: v})
		}
		return enc.StartElement(r.Name(), attrs, r.IsEmptyElement())
	case elemstack.EndElement:
		return enc.EndElement(r.Name())
	case elemstack.Text:
		return enc.Text(r.Value())
	case elemstack.Whitespace:
		return enc.Text(r.Value())
	case elemstack.CData:
		return enc.CData(r.Value())
	case elemstack.Comment:
		return enc.Comment(r.Value())
	case elemstack.ProcessingInstruction:
		return enc.ProcessingInstruction(r.Name(), r.Value())
	case elemstack.DocumentTypeNode:
		pub, _ := r.GetAttributeByName("PUBLIC")
		sys, _ := r.GetAttributeByName("SYSTEM")
		pubVal, sysVal := "", ""
		if pub.Value != nil {
			pubVal = *pub.Value
		}
		if sys.Value != nil {
			sysVal = *sys.Value
		}
		return enc.DocumentType(r.Name(), pubVal, sysVal)
	default:
		return fmt.Errorf("xmlwrite: unhandled node type %v", r.NodeType())
	}
}
