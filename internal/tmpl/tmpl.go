// Package tmpl resolves dotted key paths against decoded JSON data and
// expands {path} placeholders in layout strings.
package tmpl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ResolvePath walks data one dot-separated segment at a time. Maps are
// indexed by key and slices by decimal index. It reports false as soon as a
// segment is missing, nil, or not a container.
func ResolvePath(data any, path string) (any, bool) {
	cur := data
	for _, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]string:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Interpolate replaces every {path} span in template with the stringified
// value at path, or the empty string when the path does not resolve. Braces
// do not nest and an unterminated { is kept as is.
func Interpolate(template string, data any) string {
	if !strings.Contains(template, "{") {
		return template
	}
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open+1:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		path := rest[open+1 : open+1+end]
		if v, ok := ResolvePath(data, path); ok {
			b.WriteString(Stringify(v))
		}
		rest = rest[open+end+2:]
	}
	return b.String()
}

// IsReference reports whether s is exactly one {path} placeholder and
// returns the inner path.
func IsReference(s string) (string, bool) {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return "", false
	}
	inner := s[1 : len(s)-1]
	if strings.ContainsAny(inner, "{}") {
		return "", false
	}
	return inner, true
}

// Stringify renders a decoded JSON value the way it should appear in text.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
