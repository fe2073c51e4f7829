package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBOM_UTF8(t *testing.T) {
	d, consumed := DetectBOM([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'})
	require.NotNil(t, d)
	assert.Equal(t, 3, consumed)
	assert.Equal(t, "utf-8", d.Name)
}

func TestDetectBOM_UTF16(t *testing.T) {
	be, consumed := DetectBOM([]byte{0xFE, 0xFF, 0x00, 'h'})
	require.NotNil(t, be)
	assert.Equal(t, 2, consumed)
	assert.Equal(t, "utf-16be", be.Name)

	le, consumed := DetectBOM([]byte{0xFF, 0xFE, 'h', 0x00})
	require.NotNil(t, le)
	assert.Equal(t, 2, consumed)
	assert.Equal(t, "utf-16le", le.Name)
}

func TestDetectBOM_UCS4NoBOM(t *testing.T) {
	d, consumed := DetectBOM([]byte{0x00, 0x00, 0x00, 0x3C})
	require.NotNil(t, d)
	assert.Equal(t, 0, consumed)
	assert.Equal(t, "ucs-4le", d.Name)

	d, consumed = DetectBOM([]byte{0x3C, 0x00, 0x00, 0x00})
	require.NotNil(t, d)
	assert.Equal(t, 0, consumed)
	assert.Equal(t, "ucs-4be", d.Name)
}

func TestDetectBOM_NoMatch(t *testing.T) {
	d, consumed := DetectBOM([]byte("<html>"))
	assert.Nil(t, d)
	assert.Equal(t, 0, consumed)
}

func TestSniff_XMLDeclaration(t *testing.T) {
	name, ok := Sniff(`<?xml version="1.0" encoding="ISO-8859-1"?><root/>`)
	require.True(t, ok)
	assert.Equal(t, "ISO-8859-1", name)
}

func TestSniff_MetaHTTPEquiv(t *testing.T) {
	window := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=windows-1252"></head></html>`
	name, ok := Sniff(window)
	require.True(t, ok)
	assert.Equal(t, "windows-1252", name)
}

func TestSniff_MetaCharsetHTML5(t *testing.T) {
	name, ok := Sniff(`<html><head><meta charset="utf-8"></head></html>`)
	require.True(t, ok)
	assert.Equal(t, "utf-8", name)
}

func TestSniff_NoMatch(t *testing.T) {
	_, ok := Sniff(`<html><body>hello</body></html>`)
	assert.False(t, ok)
}

func TestLookup_KnownNames(t *testing.T) {
	d, ok := Lookup("UTF-8")
	require.True(t, ok)
	assert.Equal(t, "utf-8", d.Name)

	d, ok = Lookup("windows-1252")
	require.True(t, ok)
	assert.NotNil(t, d)

	d, ok = Lookup("ucs-4le")
	require.True(t, ok)
	assert.Equal(t, "ucs-4le", d.Name)
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := Lookup("not-a-real-charset")
	assert.False(t, ok)
}
