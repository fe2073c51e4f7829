package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInternal(t *testing.T, literal string) *Entity {
	t.Helper()
	e := NewInternal("test", literal, LiteralNone, nil)
	require.NoError(t, e.Open(context.Background(), UTF8))
	return e
}

func TestEntity_ReadCharAdvancesAndTracksLines(t *testing.T) {
	e := openInternal(t, "ab\ncd")
	assert.Equal(t, 'a', e.Current())
	assert.Equal(t, 1, e.Line)
	assert.Equal(t, 'b', e.ReadChar())
	assert.Equal(t, '\n', e.ReadChar())
	assert.Equal(t, 'c', e.ReadChar())
	assert.Equal(t, 2, e.Line)
	assert.Equal(t, 'd', e.ReadChar())
	assert.Equal(t, EOF, e.ReadChar())
}

func TestEntity_CRLFCountsAsOneLine(t *testing.T) {
	e := openInternal(t, "a\r\nb\rc")
	assert.Equal(t, 'a', e.Current())
	assert.Equal(t, '\r', e.ReadChar())
	assert.Equal(t, 1, e.Line)
	assert.Equal(t, '\n', e.ReadChar())
	assert.Equal(t, 2, e.Line)
	assert.Equal(t, 'b', e.ReadChar())
	assert.Equal(t, '\r', e.ReadChar())
	assert.Equal(t, 'c', e.ReadChar())
	assert.Equal(t, 3, e.Line)
}

func TestEntity_SkipWhitespace(t *testing.T) {
	e := openInternal(t, "   \t\nfoo")
	r := e.SkipWhitespace()
	assert.Equal(t, 'f', r)
}

func TestEntity_ScanToken(t *testing.T) {
	e := openInternal(t, "div class=\"x\">")
	tok, err := e.ScanToken(" \t\r\n>=", false)
	require.NoError(t, err)
	assert.Equal(t, "div", tok)
	assert.Equal(t, ' ', e.Current())
}

func TestEntity_ScanTokenRejectsBadNameStart(t *testing.T) {
	e := openInternal(t, "1bad>")
	_, err := e.ScanToken(">", true)
	assert.Error(t, err)
}

func TestEntity_ScanLiteral(t *testing.T) {
	e := openInternal(t, `"hello world" rest`)
	lit, err := e.ScanLiteral('"')
	require.NoError(t, err)
	assert.Equal(t, "hello world", lit)
	assert.Equal(t, ' ', e.Current())
}

func TestEntity_ScanLiteralExpandsCharRef(t *testing.T) {
	e := openInternal(t, `"a&#65;b"`)
	lit, err := e.ScanLiteral('"')
	require.NoError(t, err)
	assert.Equal(t, "aAb", lit)
}

func TestEntity_ScanLiteralUnterminated(t *testing.T) {
	e := openInternal(t, `"unterminated`)
	_, err := e.ScanLiteral('"')
	assert.Error(t, err)
}

func TestEntity_ScanToEnd(t *testing.T) {
	e := openInternal(t, " this is a comment -->rest")
	body, err := e.ScanToEnd("comment", "-->")
	require.NoError(t, err)
	assert.Equal(t, " this is a comment ", body)
	assert.Equal(t, 'r', e.Current())
}

func TestEntity_ScanToEndUnterminated(t *testing.T) {
	e := openInternal(t, " never closes")
	_, err := e.ScanToEnd("comment", "-->")
	assert.Error(t, err)
}

func TestEntity_ExpandCharEntityDecimal(t *testing.T) {
	e := openInternal(t, "#65;rest")
	s, err := e.ExpandCharEntity()
	require.NoError(t, err)
	assert.Equal(t, "A", s)
	assert.Equal(t, 'r', e.Current())
}

func TestEntity_ExpandCharEntityHex(t *testing.T) {
	e := openInternal(t, "#x41;rest")
	s, err := e.ExpandCharEntity()
	require.NoError(t, err)
	assert.Equal(t, "A", s)
}

func TestEntity_ExpandCharEntityWindows1252Remap(t *testing.T) {
	e := NewInternal("test", "#146;", LiteralNone, nil)
	e.MarkHTML()
	require.NoError(t, e.Open(context.Background(), UTF8))
	s, err := e.ExpandCharEntity()
	require.NoError(t, err)
	assert.Equal(t, string(rune(0x2019)), s) // right single quotation mark
}

func TestEntity_ExpandCharEntityRejectsSurrogateRange(t *testing.T) {
	e := openInternal(t, "#xD800;")
	_, err := e.ExpandCharEntity()
	assert.Error(t, err)
}

func TestEntity_OpenTwiceErrors(t *testing.T) {
	e := openInternal(t, "x")
	err := e.Open(context.Background(), UTF8)
	assert.Error(t, err)
}

func TestEntity_Context(t *testing.T) {
	parent := NewInternal("outer", "ignored", LiteralNone, nil)
	require.NoError(t, parent.Open(context.Background(), UTF8))
	child := NewInternal("inner", "x", LiteralNone, parent)
	require.NoError(t, child.Open(context.Background(), UTF8))
	ctx := child.Context()
	assert.Contains(t, ctx, "inner")
	assert.Contains(t, ctx, "outer")
}

func TestEntity_HTMLFlagPropagatesToChildren(t *testing.T) {
	parent := NewInternal("outer", "x", LiteralNone, nil)
	parent.MarkHTML()
	child := NewInternal("inner", "y", LiteralNone, parent)
	assert.True(t, child.IsHTMLEffective())
}
