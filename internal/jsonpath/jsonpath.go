// Package jsonpath pulls transcript text out of provider JSON responses
// using dotted paths such as "results[0].text" or "segments[*].text".
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Wildcard is the index that matches every element of an array.
const Wildcard = -1

// SegmentsPath is where Whisper-style responses keep per-segment text.
const SegmentsPath = "segments[*].text"

// Text returns the value at textPath. When that is missing or blank it
// joins the segment texts with single spaces. It returns "" if neither
// yields any text or the body is not JSON.
func Text(body []byte, textPath string) string {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}
	switch {
	case textPath == "":
	case strings.Contains(textPath, "[*]"):
		if v := Join(root, textPath, " "); v != "" {
			return v
		}
	default:
		if v, ok := Lookup(root, textPath); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return Join(root, SegmentsPath, " ")
}

// Join collects every scalar matched by path, trims each one, drops the
// empty ones, and joins the rest with sep.
func Join(root interface{}, path, sep string) string {
	vals, err := Collect(root, path)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

// Lookup returns the single scalar at path. Paths with a wildcard report
// ok only when exactly one element matched.
func Lookup(root interface{}, path string) (string, bool) {
	vals, err := Collect(root, path)
	if err != nil || len(vals) != 1 {
		return "", false
	}
	return vals[0], true
}

// Collect walks path and returns the string form of each scalar it reaches.
func Collect(root interface{}, path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	cur := []interface{}{root}
	for _, part := range strings.Split(path, ".") {
		key, idxs, err := ParseKeyAndIndexes(part)
		if err != nil {
			return nil, err
		}
		if key != "" {
			cur = stepKey(cur, key)
		}
		for _, idx := range idxs {
			cur = stepIndex(cur, idx)
		}
		if len(cur) == 0 {
			return nil, nil
		}
	}

	out := make([]string, 0, len(cur))
	for _, v := range cur {
		if s, ok := scalar(v); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func stepKey(nodes []interface{}, key string) []interface{} {
	var next []interface{}
	for _, n := range nodes {
		m, ok := n.(map[string]interface{})
		if !ok {
			continue
		}
		if v, exists := m[key]; exists {
			next = append(next, v)
		}
	}
	return next
}

func stepIndex(nodes []interface{}, idx int) []interface{} {
	var next []interface{}
	for _, n := range nodes {
		arr, ok := n.([]interface{})
		if !ok {
			continue
		}
		if idx == Wildcard {
			next = append(next, arr...)
			continue
		}
		if idx >= 0 && idx < len(arr) {
			next = append(next, arr[idx])
		}
	}
	return next
}

func scalar(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

// ParseKeyAndIndexes parses a token like "foo[0][1]", "[0]", "items[*]" or
// "bar" into its base key and indexes. A "*" index becomes Wildcard.
func ParseKeyAndIndexes(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty token")
	}
	br := strings.Index(token, "[")
	if br == -1 {
		return token, nil, nil
	}
	key := token[:br]
	rest := token[br:]
	var idxs []int
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "[") {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.Index(rest, "]")
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		numStr := strings.TrimSpace(rest[1:closePos])
		switch {
		case numStr == "":
			return "", nil, fmt.Errorf("empty index in %s", token)
		case numStr == "*":
			idxs = append(idxs, Wildcard)
		default:
			n, err := strconv.Atoi(numStr)
			if err != nil || n < 0 {
				return "", nil, fmt.Errorf("invalid index '%s' in %s", numStr, token)
			}
			idxs = append(idxs, n)
		}
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}
