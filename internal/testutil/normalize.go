package testutil

import (
	"encoding/json"
	"strings"
	"testing"
)

// Normalizer prepares data for stable golden comparison.
type Normalizer interface {
	Normalize(t *testing.T, data any) any
}

// DefaultNormalizer drops volatile keys (timestamps, generated ids) and
// turns backslashes in strings into forward slashes.
type DefaultNormalizer struct{}

var volatileFields = map[string]bool{
	"id":        true,
	"uid":       true,
	"createdAt": true,
	"updatedAt": true,
	"addedAt":   true,
	"timestamp": true,
	"buildDate": true,
	"goVersion": true,
}

// Normalize returns a normalized deep copy of data.
func (n *DefaultNormalizer) Normalize(t *testing.T, data any) any {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}
	return n.normalizeValue(generic)
}

func (n *DefaultNormalizer) normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if volatileFields[k] {
				continue
			}
			out[k] = n.normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = n.normalizeValue(item)
		}
		return out
	case string:
		return strings.ReplaceAll(val, "\\", "/")
	default:
		return v
	}
}

// MarshalNormalized normalizes data and encodes it as indented JSON with
// sorted keys and a trailing newline.
func MarshalNormalized(t *testing.T, data any) []byte {
	t.Helper()

	normalizer := &DefaultNormalizer{}
	out, err := json.MarshalIndent(normalizer.Normalize(t, data), "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return append(out, '\n')
}
