package xtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFunctions_BuiltinsClassifyKeys(t *testing.T) {
	cases := []struct {
		fn   string
		key  string
		want bool
	}{
		{"isNumeric", "12345", true},
		{"isNumeric", "12a45", false},
		{"isAlpha", "abcDEF", true},
		{"isAlpha", "abc123", false},
		{"isAlphanumeric", "abc123", true},
		{"isAlphanumeric", "abc-123", false},
		{"isLower", "lower", true},
		{"isLower", "Mixed", false},
		{"isUpper", "UPPER", true},
		{"hasUnderscore", "foo_bar", true},
		{"hasHyphen", "foo-bar", true},
		{"hasDigits", "v2", true},
		{"startsWithUnderscore", "_private", true},
		{"startsWithUnderscore", "public", false},
	}
	for _, c := range cases {
		fn, ok := getQueryFunction(c.fn)
		require.True(t, ok, "function %q should be registered", c.fn)
		assert.Equal(t, c.want, fn(c.key), "%s(%q)", c.fn, c.key)
	}
}

func TestRegisterQueryFunction_AddsCustomPredicate(t *testing.T) {
	RegisterQueryFunction("isGreeting", func(key string) bool { return key == "hello" })
	fn, ok := getQueryFunction("isGreeting")
	require.True(t, ok)
	assert.True(t, fn("hello"))
	assert.False(t, fn("goodbye"))
}
