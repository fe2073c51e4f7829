package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_FlattensNestedEntities(t *testing.T) {
	s := NewStream(UTF8, nil)
	root := NewInternal("root", "ab&x;cd", LiteralNone, nil)
	require.NoError(t, s.Push(context.Background(), root))

	assert.Equal(t, 'a', s.Lookahead())
	assert.Equal(t, 'b', s.ReadChar())
	assert.Equal(t, '&', s.ReadChar())

	// simulate the SGML reader resolving "&x;" to an internal entity and
	// pushing it onto the stream mid-document; the parent's lookahead is
	// left on the character following the reference ('c') so that popping
	// back out of the child resumes there.
	s.ReadChar() // advance past '&' onto 'x'
	s.ReadChar() // advance past 'x' onto ';'
	s.ReadChar() // advance past ';' onto 'c'
	child := NewInternal("x", "EXPANDED", LiteralNone, nil)
	require.NoError(t, s.Push(context.Background(), child))
	assert.Equal(t, 'E', s.Lookahead())

	var out []rune
	for r := s.Lookahead(); r != EOF; r = s.ReadChar() {
		out = append(out, r)
	}
	assert.Equal(t, "EXPANDEDcd", string(out))
}

func TestStream_PopRestoresParent(t *testing.T) {
	s := NewStream(UTF8, nil)
	root := NewInternal("root", "x", LiteralNone, nil)
	require.NoError(t, s.Push(context.Background(), root))
	child := NewInternal("child", "y", LiteralNone, nil)
	require.NoError(t, s.Push(context.Background(), child))
	assert.Equal(t, child, s.Current())
	require.NoError(t, s.Pop())
	assert.Equal(t, root, s.Current())
}

func TestStream_EmptyStreamReadsEOF(t *testing.T) {
	s := NewStream(UTF8, nil)
	assert.Equal(t, EOF, s.ReadChar())
	assert.Equal(t, EOF, s.Lookahead())
}

func TestStream_Depth(t *testing.T) {
	s := NewStream(UTF8, nil)
	assert.Equal(t, 0, s.Depth())
	require.NoError(t, s.Push(context.Background(), NewInternal("a", "x", LiteralNone, nil)))
	assert.Equal(t, 1, s.Depth())
	require.NoError(t, s.Push(context.Background(), NewInternal("b", "y", LiteralNone, nil)))
	assert.Equal(t, 2, s.Depth())
}
