package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Fields is one decoded JSON object with values left raw until read.
// Getters never fail: a missing or ill-typed value reports ok=false and the
// caller substitutes its default.
type Fields map[string]json.RawMessage

// Has reports whether key is present and not null.
func (f Fields) Has(key string) bool {
	raw, ok := f[key]
	return ok && !isNull(raw)
}

// String reads a string value. Numbers and booleans are accepted as their
// literal text.
func (f Fields) String(key string) (string, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	return "", false
}

// Int reads an integer from a JSON number or a numeric string such as
// "80", "80.4" or "80%". Fractions round to nearest.
func (f Fields) Int(key string) (int, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return 0, false
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return roundInt(num)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return roundInt(num)
}

// Strings reads a list of strings. A single string is split on commas,
// which models sometimes emit for keyword lists. Non-string elements are
// skipped.
func (f Fields) Strings(key string) ([]string, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			if json.Unmarshal(item, &s) == nil {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out, true
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		out := []string{}
		for _, part := range strings.Split(joined, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, true
	}
	return nil, false
}

// Object reads a nested object.
func (f Fields) Object(key string) (Fields, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	var obj Fields
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Objects reads a list of objects, skipping elements that are not objects.
func (f Fields) Objects(key string) ([]Fields, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]Fields, 0, len(items))
	for _, item := range items {
		var obj Fields
		if json.Unmarshal(item, &obj) == nil && obj != nil {
			out = append(out, obj)
		}
	}
	return out, true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func roundInt(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Round(v)), true
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
