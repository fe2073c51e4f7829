package xtree

import (
	"strings"
	"sync"
)

// QueryFunction is a named key predicate usable in a QueryAll path segment
// like "items/func:isNumeric/id".
type QueryFunction func(key string) bool

var (
	queryFunctions   = make(map[string]QueryFunction)
	queryFunctionsMu sync.RWMutex
)

// RegisterQueryFunction registers fn under name for use as "func:name" in a
// QueryAll path segment.
func RegisterQueryFunction(name string, fn QueryFunction) {
	queryFunctionsMu.Lock()
	defer queryFunctionsMu.Unlock()
	queryFunctions[name] = fn
}

func getQueryFunction(name string) (QueryFunction, bool) {
	queryFunctionsMu.RLock()
	defer queryFunctionsMu.RUnlock()
	fn, ok := queryFunctions[name]
	return fn, ok
}

func init() {
	RegisterQueryFunction("isNumeric", func(key string) bool {
		if key == "" {
			return false
		}
		for _, r := range key {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})

	RegisterQueryFunction("isAlpha", func(key string) bool {
		if key == "" {
			return false
		}
		for _, r := range key {
			if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
				return false
			}
		}
		return true
	})

	RegisterQueryFunction("isAlphanumeric", func(key string) bool {
		if key == "" {
			return false
		}
		for _, r := range key {
			letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			digit := r >= '0' && r <= '9'
			if !letter && !digit {
				return false
			}
		}
		return true
	})

	RegisterQueryFunction("isLower", func(key string) bool {
		return key != "" && key == strings.ToLower(key)
	})

	RegisterQueryFunction("isUpper", func(key string) bool {
		return key != "" && key == strings.ToUpper(key)
	})

	RegisterQueryFunction("hasUnderscore", func(key string) bool {
		return strings.Contains(key, "_")
	})

	RegisterQueryFunction("hasHyphen", func(key string) bool {
		return strings.Contains(key, "-")
	})

	RegisterQueryFunction("hasDigits", func(key string) bool {
		return strings.ContainsAny(key, "0123456789")
	})

	RegisterQueryFunction("startsWithUnderscore", func(key string) bool {
		return strings.HasPrefix(key, "_")
	})
}
