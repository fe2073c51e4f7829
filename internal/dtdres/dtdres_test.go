package dtdres

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/sgmlreader/internal/dtd"
	"github.com/arturoeanton/sgmlreader/internal/entity"
)

func loadHTML(t *testing.T) *dtd.Dtd {
	t.Helper()
	l := New()
	rd, err := l.Load("HTML")
	require.NoError(t, err)
	data, err := io.ReadAll(rd)
	require.NoError(t, err)

	stream := entity.NewStream(entity.UTF8, nil)
	require.NoError(t, stream.Push(context.Background(), entity.NewInternal("html.dtd", string(data), entity.LiteralNone, nil)))
	d := dtd.NewDtd("html")
	require.NoError(t, dtd.NewParser(stream, d, nil).Parse(context.Background()))
	return d
}

func TestLoader_UnknownNameErrors(t *testing.T) {
	_, err := New().Load("DOCBOOK")
	assert.Error(t, err)
}

func TestEmbeddedHTML_ParsesCleanly(t *testing.T) {
	d := loadHTML(t)

	html, ok := d.Element("html")
	require.True(t, ok)
	assert.True(t, html.EndTagOptional)

	body, ok := d.Element("body")
	require.True(t, ok)
	assert.True(t, body.CanContain("p"))
	assert.True(t, body.CanContain("div"))

	p, ok := d.Element("p")
	require.True(t, ok)
	assert.True(t, p.Content.CanContain("a"))
	assert.True(t, p.Content.CanContain("img"))

	img, ok := d.Element("img")
	require.True(t, ok)
	assert.Equal(t, dtd.DeclaredEMPTY, img.Content.DeclaredContent)
	srcAttr, ok := img.Attribute("src")
	require.True(t, ok)
	assert.Equal(t, dtd.PresenceRequired, srcAttr.Presence)

	script, ok := d.Element("script")
	require.True(t, ok)
	assert.Equal(t, dtd.DeclaredCDATA, script.Content.DeclaredContent)

	pre, ok := d.Element("pre")
	require.True(t, ok)
	assert.True(t, pre.Exclusions["IMG"])
}

func TestEmbeddedHTML_NamedEntities(t *testing.T) {
	d := loadHTML(t)

	nbsp, ok := d.GeneralEntities["nbsp"]
	require.True(t, ok)
	assert.Equal(t, string(rune(0xA0)), nbsp.Literal)

	amp, ok := d.GeneralEntities["amp"]
	require.True(t, ok)
	assert.Equal(t, "&", amp.Literal)
}
