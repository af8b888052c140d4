package hotkey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Combination is the set of keys that must be held together.
// Names are normalized and sorted; duplicates are removed.
type Combination []string

var aliases = map[string]string{
	"control":  "ctrl",
	"lctrl":    "ctrl",
	"rctrl":    "ctrl",
	"ctrl_l":   "ctrl",
	"ctrl_r":   "ctrl",
	"lcontrol": "ctrl",
	"rcontrol": "ctrl",
	"menu":     "alt",
	"option":   "alt",
	"lalt":     "alt",
	"ralt":     "alt",
	"alt_l":    "alt",
	"alt_r":    "alt",
	"alt_gr":   "alt",
	"altgr":    "alt",
	"lshift":   "shift",
	"rshift":   "shift",
	"shift_l":  "shift",
	"shift_r":  "shift",
	"win":      "cmd",
	"meta":     "cmd",
	"super":    "cmd",
	"command":  "cmd",
	"lcmd":     "cmd",
	"rcmd":     "cmd",
	"cmd_l":    "cmd",
	"cmd_r":    "cmd",
	"escape":   "esc",
	"return":   "enter",
	"spacebar": "space",
	"back":     "backspace",
	"del":      "delete",
	"ins":      "insert",
	"pgup":     "pageup",
	"pgdn":     "pagedown",
	"caps":     "capslock",
}

var named = map[string]bool{
	"ctrl": true, "alt": true, "shift": true, "cmd": true,
	"esc": true, "enter": true, "space": true, "tab": true,
	"backspace": true, "delete": true, "insert": true,
	"home": true, "end": true, "pageup": true, "pagedown": true,
	"left": true, "right": true, "up": true, "down": true,
	"capslock": true,
}

// NormalizeKey maps a key name to its canonical lowercase form.
// It returns "" for names it does not recognize.
func NormalizeKey(name string) string {
	k := strings.ToLower(strings.TrimSpace(name))
	k = strings.Trim(k, "'\"")
	k = strings.TrimPrefix(k, "key.")
	if k == "" {
		return ""
	}
	if a, ok := aliases[k]; ok {
		k = a
	}
	if named[k] {
		return k
	}
	if len(k) == 1 {
		ch := k[0]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			return k
		}
		return ""
	}
	if strings.HasPrefix(k, "f") {
		if n, err := strconv.Atoi(k[1:]); err == nil && n >= 1 && n <= 24 {
			return k
		}
	}
	for _, p := range []string{"numpad", "num", "kp"} {
		if strings.HasPrefix(k, p) {
			if n, err := strconv.Atoi(k[len(p):]); err == nil && n >= 0 && n <= 9 {
				return "numpad" + strconv.Itoa(n)
			}
		}
	}
	return ""
}

// ParseCombination accepts "ctrl+shift", "Ctrl, Shift" or a JSON-ish list
// such as ["Ctrl","Shift"].
func ParseCombination(s string) (Combination, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty key combination")
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '+' || r == ',' })
	seen := make(map[string]bool, len(parts))
	var keys []string
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		k := NormalizeKey(p)
		if k == "" {
			return nil, fmt.Errorf("unsupported key token %q in %q", strings.TrimSpace(p), s)
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty key combination")
	}
	sort.Strings(keys)
	return Combination(keys), nil
}

func (c Combination) String() string {
	return strings.Join(c, "+")
}

// Contains reports whether key is part of the combination.
func (c Combination) Contains(key string) bool {
	for _, k := range c {
		if k == key {
			return true
		}
	}
	return false
}
