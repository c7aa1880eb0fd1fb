package connector

import (
	"fmt"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// Extract evaluates a JMESPath expression against decoded JSON.
func Extract(expr string, data any) (any, error) {
	v, err := jmespath.Search(expr, data)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return v, nil
}

// MustCompile panics when expr is not valid JMESPath. Use for package-level expressions.
func MustCompile(expr string) string {
	if _, err := jmespath.Compile(expr); err != nil {
		panic(fmt.Sprintf("connector: invalid expression %q: %v", expr, err))
	}
	return expr
}

// ExtractObjects evaluates expr and keeps the elements that are JSON objects.
func ExtractObjects(expr string, data any) ([]map[string]any, error) {
	v, err := Extract(expr, data)
	if err != nil {
		return nil, err
	}
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ExtractString evaluates expr and returns the result when it is a non-empty string.
func ExtractString(expr string, data any) string {
	v, err := Extract(expr, data)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// StringField returns m[key] as a string. Numbers are formatted.
func StringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

// ParseTimestamp parses an RFC3339 upstream timestamp, returning nil when absent or malformed.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
