package dtd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/sgmlreader/internal/entity"
)

func parseText(t *testing.T, src string) *Dtd {
	t.Helper()
	ctx := context.Background()
	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(ctx, entity.NewInternal("dtd", src, entity.LiteralNone, nil)))
	d := NewDtd("html")
	p := NewParser(stream, d, nil)
	require.NoError(t, p.Parse(ctx))
	return d
}

func TestParser_ElementDeclSimple(t *testing.T) {
	d := parseText(t, `<!ELEMENT img - O EMPTY>`)
	e, ok := d.Element("img")
	require.True(t, ok)
	assert.False(t, e.StartTagOptional)
	assert.True(t, e.EndTagOptional)
	assert.Equal(t, DeclaredEMPTY, e.Content.DeclaredContent)
}

func TestParser_ElementDeclNameGroupAndModel(t *testing.T) {
	d := parseText(t, `<!ELEMENT (b|i) - - (#PCDATA)*>`)
	b, ok := d.Element("b")
	require.True(t, ok)
	assert.True(t, b.Content.Root.Mixed)
	i, ok := d.Element("i")
	require.True(t, ok)
	assert.True(t, i.Content.Root.Mixed)
}

func TestParser_ElementDeclNestedGroup(t *testing.T) {
	d := parseText(t, `<!ELEMENT p - O (#PCDATA|b|(i|u))*>`)
	p, ok := d.Element("p")
	require.True(t, ok)
	assert.True(t, p.Content.CanContain("b"))
	assert.True(t, p.Content.CanContain("i"))
	assert.True(t, p.Content.CanContain("u"))
	assert.False(t, p.Content.CanContain("table"))
}

func TestParser_AttlistEnumerationAndDefault(t *testing.T) {
	d := parseText(t, `<!ELEMENT input - O EMPTY>
<!ATTLIST input
  type (text|password|checkbox) "text"
  disabled (disabled) #IMPLIED
  value CDATA #REQUIRED>`)
	input, ok := d.Element("input")
	require.True(t, ok)
	typ, ok := input.Attribute("type")
	require.True(t, ok)
	assert.Equal(t, AttrENUMERATION, typ.Type)
	assert.ElementsMatch(t, []string{"text", "password", "checkbox"}, typ.EnumValues)
	assert.Equal(t, "text", typ.Default)

	value, ok := input.Attribute("value")
	require.True(t, ok)
	assert.Equal(t, PresenceRequired, value.Presence)
}

func TestParser_AttlistUndeclaredElementErrors(t *testing.T) {
	ctx := context.Background()
	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(ctx, entity.NewInternal("dtd", `<!ATTLIST ghost foo CDATA #IMPLIED>`, entity.LiteralNone, nil)))
	d := NewDtd("html")
	p := NewParser(stream, d, nil)
	assert.Error(t, p.Parse(ctx))
}

func TestParser_EntityDeclInternal(t *testing.T) {
	d := parseText(t, `<!ENTITY nbsp "&#160;">`)
	e, ok := d.GeneralEntities["nbsp"]
	require.True(t, ok)
	assert.Equal(t, string(rune(0xA0)), e.Literal)
}

func TestParser_ParameterEntityExpansion(t *testing.T) {
	d := parseText(t, `<!ENTITY % inline "b|i">
<!ELEMENT p - O (#PCDATA|%inline;)*>`)
	p, ok := d.Element("p")
	require.True(t, ok)
	assert.True(t, p.Content.CanContain("b"))
	assert.True(t, p.Content.CanContain("i"))
}

func TestParser_UndefinedParameterEntityErrors(t *testing.T) {
	ctx := context.Background()
	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(ctx, entity.NewInternal("dtd", `<!ELEMENT p - O (%missing;)>`, entity.LiteralNone, nil)))
	d := NewDtd("html")
	p := NewParser(stream, d, nil)
	assert.Error(t, p.Parse(ctx))
}

func TestParser_ExternalParameterEntityRejected(t *testing.T) {
	ctx := context.Background()
	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(ctx, entity.NewInternal("dtd", `<!ENTITY % ext SYSTEM "http://example.com/x.ent">
<!ELEMENT p - O (%ext;)>`, entity.LiteralNone, nil)))
	d := NewDtd("html")
	p := NewParser(stream, d, nil)
	assert.Error(t, p.Parse(ctx))
}

func TestParser_MarkedSectionIncludeUnimplemented(t *testing.T) {
	ctx := context.Background()
	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(ctx, entity.NewInternal("dtd", `<![INCLUDE[<!ELEMENT p - O EMPTY>]]>`, entity.LiteralNone, nil)))
	d := NewDtd("html")
	p := NewParser(stream, d, nil)
	assert.Error(t, p.Parse(ctx))
}

func TestParser_MarkedSectionIgnoreDiscardsContent(t *testing.T) {
	d := parseText(t, `<![IGNORE[<!ELEMENT p - O EMPTY>]]><!ELEMENT img - O EMPTY>`)
	_, ok := d.Element("p")
	assert.False(t, ok)
	_, ok = d.Element("img")
	assert.True(t, ok)
}

func TestParser_Comment(t *testing.T) {
	d := parseText(t, `<!-- a comment with -- two dashes --><!ELEMENT img - O EMPTY>`)
	_, ok := d.Element("img")
	assert.True(t, ok)
}

func TestParser_ExclusionGroup(t *testing.T) {
	d := parseText(t, `<!ELEMENT pre - - (#PCDATA)* -(img)>`)
	pre, ok := d.Element("pre")
	require.True(t, ok)
	assert.True(t, pre.Exclusions["IMG"])
}
