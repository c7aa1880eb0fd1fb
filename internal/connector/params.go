package connector

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params are the source-specific job parameters.
type Params map[string]any

// ParamsFromJSON decodes a JSON object into Params.
func ParamsFromJSON(raw []byte) (Params, error) {
	p := Params{}
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}
	return p, nil
}

// String returns a trimmed string parameter, or "" when absent or not a string.
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return ""
}

// StringOr returns the string parameter or fallback when empty.
func (p Params) StringOr(key, fallback string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return fallback
}

// Int returns an integer parameter. JSON numbers and numeric strings are accepted.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// Bool returns a boolean parameter. "true"/"false" strings are accepted.
func (p Params) Bool(key string, fallback bool) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// Strings returns a list parameter. A comma-separated string is split.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Value returns the raw parameter or fallback when absent.
func (p Params) Value(key string, fallback any) any {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Require returns a ParameterError naming every absent key.
func (p Params) Require(source string, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if p.String(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ParameterError{Source: source, Names: missing}
}
