package xtree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ToJSON renders an OrderedMap as JSON text, preserving key insertion order
// (unlike encoding/json.Marshal over a plain map) — grounded on the
// teacher's xml.OrderedMap.MarshalJSON, moved out of map.go since it's an
// export concern rather than core storage.
func (om *OrderedMap) ToJSON() (string, error) {
	b, err := om.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MarshalJSON implements json.Marshaler directly (rather than building on
// encoding/json's reflection path) because OrderedMap's whole purpose is a
// key order encoding/json has no way to preserve.
func (om *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range om.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(om.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Dump renders om as indented JSON, for debugging and -query output.
func (om *OrderedMap) Dump() string {
	b, err := om.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<DumpError: %v>", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return string(b)
	}
	return out.String()
}

// ToCSV writes nodes in CSV form to w: headers are the union of every
// non-attribute, non-meta key across nodes, sorted for a deterministic
// column order, and each row's fields are quoted per RFC 4180 when needed.
func ToCSV(w io.Writer, nodes []*OrderedMap) error {
	if len(nodes) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var headers []string
	for _, node := range nodes {
		for _, k := range node.Keys() {
			if !seen[k] && !strings.HasPrefix(k, "@") && !strings.HasPrefix(k, "#") {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)

	if _, err := fmt.Fprintln(w, strings.Join(headers, ",")); err != nil {
		return err
	}
	for _, node := range nodes {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = csvField(node.String(h))
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return nil
}

func csvField(val string) string {
	val = strings.ReplaceAll(val, `"`, `""`)
	if strings.ContainsAny(val, ",\n\"") {
		return `"` + val + `"`
	}
	return val
}

// Text extracts all character data under data, recursively, the way
// jQuery's .text() flattens an element's descendants.
func Text(data any) string {
	var sb strings.Builder
	textRecursive(data, &sb)
	return strings.TrimSpace(sb.String())
}

func textRecursive(data any, sb *strings.Builder) {
	switch v := data.(type) {
	case nil:
		return
	case string:
		sb.WriteString(v)
	case int, float64, bool:
		fmt.Fprintf(sb, "%v", v)
	case *OrderedMap:
		if text := v.Get("#text"); text != nil {
			fmt.Fprintf(sb, "%v", text)
		}
		v.ForEach(func(k string, val any) bool {
			if !strings.HasPrefix(k, "@") && !strings.HasPrefix(k, "#") {
				textRecursive(val, sb)
			}
			return true
		})
	case []any:
		for _, item := range v {
			textRecursive(item, sb)
		}
	}
}
