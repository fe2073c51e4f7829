package xtree

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryAll searches a tree built by BuildFromReader for every node matching
// path, adapted from the teacher's xml.QueryAll (the teacher ran it over
// OrderedMaps built by its own encoding/xml-based MapXML; the path syntax
// and filter language are unchanged since OrderedMap's own shape didn't
// change).
//
// Path syntax:
//   - Deep navigation: "library/section/book"
//   - Deep search:     "//error" (find "error" nodes anywhere)
//   - Array indexing:  "users/user[0]"
//   - Filter logic:    "book[price>10]", "user[role=admin]", "user[id!=5]"
//   - Filter funcs:    "book[contains(title, 'Go')]", "user[starts-with(name, 'A')]"
//   - Wildcards:       "items/*/sku"
//   - Custom funcs:    "items/func:isNumeric/id"
//   - Meta properties: "items/#count" (child count)
//   - Text extraction: "book/title/#text"
func QueryAll(data any, path string) ([]any, error) {
	if path == "" {
		return []any{data}, nil
	}

	if strings.HasPrefix(path, "//") {
		return findAllRecursively(data, strings.TrimPrefix(path, "//")), nil
	}

	segments := strings.Split(path, "/")
	currentCandidates := []any{data}

	for _, segment := range segments {
		if segment == "" {
			continue
		}
		var nextCandidates []any
		for _, candidate := range currentCandidates {
			nodesToSearch := []any{candidate}
			if list, ok := candidate.([]any); ok {
				nodesToSearch = list
			}

			if segment == "#count" {
				nextCandidates = append(nextCandidates, countOf(candidate))
				continue
			}

			for _, node := range nodesToSearch {
				nextCandidates = append(nextCandidates, resolveSegment(node, segment)...)
			}
		}
		if len(nextCandidates) == 0 {
			return nil, nil
		}
		currentCandidates = nextCandidates
	}
	return currentCandidates, nil
}

func countOf(candidate any) int {
	switch v := candidate.(type) {
	case []any:
		return len(v)
	case *OrderedMap:
		return v.Len()
	default:
		return 0
	}
}

func resolveSegment(node any, segment string) []any {
	key, fParams, idx := parseSegment(segment)

	if key == "#text" {
		switch node.(type) {
		case string, int, float64, bool:
			return []any{node}
		}
	}

	m, ok := node.(*OrderedMap)
	if !ok {
		return nil
	}

	var values []any
	switch {
	case key == "*":
		m.ForEach(func(k string, v any) bool {
			if !strings.HasPrefix(k, "@") && !strings.HasPrefix(k, "#") {
				values = append(values, v)
			}
			return true
		})
	case strings.HasPrefix(key, "func:"):
		if fn, ok := getQueryFunction(strings.TrimPrefix(key, "func:")); ok {
			m.ForEach(func(k string, v any) bool {
				if !strings.HasPrefix(k, "@") && !strings.HasPrefix(k, "#") && fn(k) {
					values = append(values, v)
				}
				return true
			})
		}
	default:
		if val := m.Get(key); val != nil {
			values = append(values, val)
		}
	}

	var out []any
	for _, val := range values {
		switch {
		case fParams != nil:
			if list, ok := val.([]any); ok {
				for _, item := range list {
					if matchFilter(item, fParams) {
						out = append(out, item)
					}
				}
			} else if matchFilter(val, fParams) {
				out = append(out, val)
			}
		case idx >= 0:
			if list, ok := val.([]any); ok && idx < len(list) {
				out = append(out, list[idx])
			}
		default:
			out = append(out, val)
		}
	}
	return out
}

type filterParams struct {
	Key    string
	Op     string
	Val    string
	IsFunc bool
}

// parseSegment splits a path segment into its key and an optional trailing
// "[...]" filter/index/function clause.
func parseSegment(seg string) (key string, fp *filterParams, idx int) {
	idx = -1
	key = seg
	i := strings.Index(seg, "[")
	if i <= 0 || !strings.HasSuffix(seg, "]") {
		return
	}
	key = seg[:i]
	inside := seg[i+1 : len(seg)-1]

	if strings.Contains(inside, "(") && strings.Contains(inside, ")") {
		pIndex := strings.Index(inside, "(")
		funcName := strings.TrimSpace(inside[:pIndex])
		args := strings.Split(inside[pIndex+1:len(inside)-1], ",")
		if len(args) == 2 {
			fKey := strings.TrimSpace(args[0])
			fVal := strings.Trim(strings.TrimSpace(args[1]), "'\"")
			return key, &filterParams{Key: fKey, Op: funcName, Val: fVal, IsFunc: true}, -1
		}
	}

	for _, op := range []string{"!=", ">=", "<=", "=", ">", "<"} {
		if strings.Contains(inside, op) {
			parts := strings.SplitN(inside, op, 2)
			fKey := strings.TrimSpace(parts[0])
			fVal := strings.Trim(strings.TrimSpace(parts[1]), "'\"")
			return key, &filterParams{Key: fKey, Op: op, Val: fVal}, -1
		}
	}

	if val, err := strconv.Atoi(inside); err == nil {
		idx = val
	}
	return
}

func matchFilter(item any, fp *filterParams) bool {
	m, ok := item.(*OrderedMap)
	if !ok {
		return false
	}
	actual := m.Get(fp.Key)
	if actual == nil {
		actual = m.Get("@" + fp.Key)
	}
	if actual == nil {
		return false
	}
	actualStr := fmt.Sprintf("%v", actual)

	if fp.IsFunc {
		switch fp.Op {
		case "contains":
			return strings.Contains(actualStr, fp.Val)
		case "starts-with":
			return strings.HasPrefix(actualStr, fp.Val)
		}
		return false
	}

	switch fp.Op {
	case "=":
		return actualStr == fp.Val
	case "!=":
		return actualStr != fp.Val
	case ">", "<", ">=", "<=":
		numV, errV := strconv.ParseFloat(actualStr, 64)
		targetV, errT := strconv.ParseFloat(fp.Val, 64)
		if errV != nil || errT != nil {
			return false
		}
		switch fp.Op {
		case ">":
			return numV > targetV
		case "<":
			return numV < targetV
		case ">=":
			return numV >= targetV
		case "<=":
			return numV <= targetV
		}
	}
	return false
}

func findAllRecursively(data any, targetKey string) []any {
	var results []any
	var traverse func(node any)
	traverse = func(node any) {
		switch v := node.(type) {
		case *OrderedMap:
			if val := v.Get(targetKey); val != nil {
				results = append(results, val)
			}
			v.ForEach(func(_ string, val any) bool {
				traverse(val)
				return true
			})
		case []any:
			for _, item := range v {
				traverse(item)
			}
		}
	}
	traverse(data)
	return results
}

// Query returns the first match for path, or an error if none is found.
func Query(data any, path string) (any, error) {
	res, err := QueryAll(data, path)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("xtree: no match for path %q", path)
	}
	return res[0], nil
}

// Get runs Query and coerces the result to T, converting between string and
// numeric representations where the stored value doesn't already match T.
func Get[T any](data any, path string) (T, error) {
	var zero T
	val, err := Query(data, path)
	if err != nil {
		return zero, err
	}
	if v, ok := val.(T); ok {
		return v, nil
	}
	switch any(zero).(type) {
	case string:
		return any(fmt.Sprintf("%v", val)).(T), nil
	case int:
		if i, err := strconv.Atoi(fmt.Sprintf("%v", val)); err == nil {
			return any(i).(T), nil
		}
	}
	return zero, fmt.Errorf("xtree: value at %q is %T, expected %T", path, val, zero)
}
