package xtree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortsAttributesAlphabetically(t *testing.T) {
	r := newReader(t, `<tag z="last" a="first" m="middle"/>`)
	out, err := Canonicalize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, `<tag a="first" m="middle" z="last"></tag>`, string(out))
}

func TestCanonicalize_SelfClosedElementGetsExplicitEndTag(t *testing.T) {
	r := newReader(t, `<root><br/></root>`)
	out, err := Canonicalize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, `<root><br></br></root>`, string(out))
}

func TestCanonicalize_OmitsCommentsAndXMLDeclaration(t *testing.T) {
	r := newReader(t, `<?xml version="1.0"?><root><!--hidden--><p>text</p></root>`)
	out, err := Canonicalize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, `<root><p>text</p></root>`, string(out))
}

func TestCanonicalize_RedeclaresNamespaceOnlyOncePerScope(t *testing.T) {
	r := newReader(t, `<a:root xmlns:a="urn:example"><a:child>x</a:child></a:root>`)
	out, err := Canonicalize(context.Background(), r)
	require.NoError(t, err)
	rendered := string(out)
	assert.Equal(t, 1, countOccurrences(rendered, `xmlns:a="urn:example"`))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
