package sgml

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/sgmlreader/internal/dtdres"
	"github.com/arturoeanton/sgmlreader/internal/elemstack"
	"github.com/arturoeanton/sgmlreader/internal/entity"
	"github.com/arturoeanton/sgmlreader/internal/names"
)

// newHTMLReader builds a Reader backed by the embedded default HTML DTD, the
// way cmd/sgmlreader's --html flag does (see cmd/sgmlreader/cmd/convert.go),
// for tests that need a real content model: unlike newReader, it does not
// force IgnoreDTD.
func newHTMLReader(t *testing.T, root *entity.Entity, opts Options) *Reader {
	t.Helper()
	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(context.Background(), root))
	opts.DocType = "html"
	return NewReader(stream, dtdres.New(), opts, nil)
}

// TestReader_AutoCloseSiblingNotNestedWhenParentCannotContain covers
// spec.md's S2: a custom DTD declares p's end tag optional and its content
// model as #PCDATA only, so a second <p> can't nest inside the first (p
// can't contain p) and must close it and start a sibling instead of nesting.
func TestReader_AutoCloseSiblingNotNestedWhenParentCannotContain(t *testing.T) {
	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(context.Background(), entity.NewInternal("doc", `<p>a<p>b`, entity.LiteralNone, nil)))
	r := NewReader(stream, nil, Options{InternalSubset: `<!ELEMENT p - O (#PCDATA)*>`}, nil)
	nodes := drain(t, r)

	require.Len(t, nodes, 6)
	assert.Equal(t, elemstack.Element, nodes[0].typ)
	assert.Equal(t, "p", nodes[0].name)
	assert.Equal(t, elemstack.Text, nodes[1].typ)
	assert.Equal(t, "a", nodes[1].value)
	assert.Equal(t, elemstack.EndElement, nodes[2].typ)
	assert.Equal(t, "p", nodes[2].name)
	assert.Equal(t, elemstack.Element, nodes[3].typ)
	assert.Equal(t, "p", nodes[3].name)
	assert.Equal(t, elemstack.Text, nodes[4].typ)
	assert.Equal(t, "b", nodes[4].value)
	assert.Equal(t, elemstack.EndElement, nodes[5].typ)
	assert.Equal(t, "p", nodes[5].name)
}

// TestReader_HTMLRootInjectedOverBareBody covers spec.md's S3: a document
// whose root is <body> rather than <html> gets a simulated <html> pushed
// underneath it, and <img> (DTD-declared EMPTY) reports no matching end tag
// and keeps its attribute.
func TestReader_HTMLRootInjectedOverBareBody(t *testing.T) {
	root := entity.NewFromReader("doc", strings.NewReader(`<BODY><IMG SRC=x.gif>`), true)
	r := newHTMLReader(t, root, Options{Fold: names.FoldLower})

	var got []collected
	for {
		ok, err := r.Read(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, collected{r.NodeType(), r.Name(), r.Value(), r.Depth(), r.IsEmptyElement()})
		if r.NodeType() == elemstack.Element && r.Name() == "img" {
			attr, found := r.GetAttributeByName("src")
			require.True(t, found)
			require.NotNil(t, attr.Value)
			assert.Equal(t, "x.gif", *attr.Value)
		}
	}

	require.Len(t, got, 5)
	assert.Equal(t, elemstack.Element, got[0].typ)
	assert.Equal(t, "html", got[0].name)
	assert.False(t, got[0].empty)
	assert.Equal(t, elemstack.Element, got[1].typ)
	assert.Equal(t, "body", got[1].name)
	assert.Equal(t, elemstack.Element, got[2].typ)
	assert.Equal(t, "img", got[2].name)
	assert.True(t, got[2].empty)
	assert.Equal(t, elemstack.EndElement, got[3].typ)
	assert.Equal(t, "body", got[3].name)
	assert.Equal(t, elemstack.EndElement, got[4].typ)
	assert.Equal(t, "html", got[4].name)
}

// TestReader_ScriptUsesDTDDeclaredCDATAContent covers spec.md's S5: script's
// DTD entry declares CDATA content, so its body is scanned raw (markup
// characters like "<" pass through untouched) all the way to its own end
// tag, distinct from an explicit <![CDATA[...]]> section.
func TestReader_ScriptUsesDTDDeclaredCDATAContent(t *testing.T) {
	root := entity.NewFromReader("doc", strings.NewReader(`<html><body><script>if (a<b) { }</script></body></html>`), true)
	r := newHTMLReader(t, root, Options{})
	nodes := drain(t, r)

	idx := -1
	for i, n := range nodes {
		if n.typ == elemstack.Element && n.name == "script" {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.Greater(t, len(nodes), idx+1)
	assert.Equal(t, elemstack.CData, nodes[idx+1].typ)
	assert.Equal(t, "if (a<b) { }", nodes[idx+1].value)
}

// TestReader_Windows1252RemapThroughHTMLReader covers spec.md's S6: a
// numeric character reference in the 0x80-0x9F C1 range is remapped to its
// Windows-1252 punctuation when the source entity is HTML-flagged.
func TestReader_Windows1252RemapThroughHTMLReader(t *testing.T) {
	root := entity.NewFromReader("doc", strings.NewReader(`<p>&amp;&#65;&#x42;&#x80;</p>`), true)
	r := newHTMLReader(t, root, Options{})
	nodes := drain(t, r)

	require.Len(t, nodes, 5)
	assert.Equal(t, elemstack.Element, nodes[0].typ)
	assert.Equal(t, "html", nodes[0].name)
	assert.Equal(t, "p", nodes[1].name)
	assert.Equal(t, elemstack.Text, nodes[2].typ)
	assert.Equal(t, "&AB€", nodes[2].value)
}
