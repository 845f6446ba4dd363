package ledger

import (
	"encoding/json"
	"strings"
)

// EmptyMetadata is the canonical stored form of a record without metadata.
const EmptyMetadata = "{}"

// Metadata is the free-form key/value map attached to a record.
type Metadata map[string]any

// String returns the value for key when it is a non-empty string.
func (m Metadata) String(key string) string {
	v, ok := m[key].(string)
	if !ok {
		return ""
	}

	return v
}

// Encode returns the JSON object form of m. A nil map encodes as "{}".
func (m Metadata) Encode() (string, error) {
	if m == nil {
		return EmptyMetadata, nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Placeholder strings older writers persisted in place of real metadata.
var corruptMetadata = map[string]struct{}{
	"":                {},
	"[object Object]": {},
	"null":            {},
	"undefined":       {},
}

// ParseMetadata decodes a stored metadata value.
// It reports false when the value is missing, a known placeholder, or not a JSON object.
func ParseMetadata(raw *string) (Metadata, bool) {
	if raw == nil {
		return Metadata{}, false
	}

	s := strings.TrimSpace(*raw)
	if _, bad := corruptMetadata[s]; bad {
		return Metadata{}, false
	}

	var m Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return Metadata{}, false
	}

	return m, true
}

// FromStrings copies gateway string metadata into a Metadata map.
func FromStrings(src map[string]string) Metadata {
	m := make(Metadata, len(src))
	for k, v := range src {
		m[k] = v
	}

	return m
}
