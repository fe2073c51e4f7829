package xtree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMap_ToJSONPreservesKeyOrder(t *testing.T) {
	m := NewMap()
	m.Put("z", 1)
	m.Put("a", "two")
	out, err := m.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"two"}`, out)
}

func TestOrderedMap_DumpIndentsJSON(t *testing.T) {
	m := NewMap()
	m.Put("name", "go")
	out := m.Dump()
	assert.Contains(t, out, "\n")
	assert.Contains(t, out, `"name": "go"`)
}

func TestToCSV_WritesHeaderAndQuotesSpecialFields(t *testing.T) {
	a := NewMap()
	a.Put("name", "Ada")
	a.Put("note", "has, a comma")
	b := NewMap()
	b.Put("name", "Grace")
	b.Put("note", "plain")

	var buf strings.Builder
	require.NoError(t, ToCSV(&buf, []*OrderedMap{a, b}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,note", lines[0])
	assert.Equal(t, "Ada,\"has, a comma\"", lines[1])
	assert.Equal(t, "Grace,plain", lines[2])
}

func TestToCSV_SkipsAttributeAndMetaKeysFromHeaders(t *testing.T) {
	a := NewMap()
	a.Put("@id", "1")
	a.Put("#text", "ignored")
	a.Put("name", "kept")

	var buf strings.Builder
	require.NoError(t, ToCSV(&buf, []*OrderedMap{a}))
	assert.Equal(t, "name", strings.Split(buf.String(), "\n")[0])
}

func TestText_FlattensNestedCharacterData(t *testing.T) {
	root := NewMap()
	root.Put("#text", "hello ")
	child := NewMap()
	child.Put("#text", "world")
	root.Put("child", child)

	assert.Equal(t, "hello world", Text(root))
}
