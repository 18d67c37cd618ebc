package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewRecordID returns a fresh record id (random UUID, canonical form).
func NewRecordID() string {
	return uuid.NewString()
}

// ParseRecordID validates a record id and returns it in canonical form.
func ParseRecordID(s string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid record id %q: %w", s, err)
	}
	return u.String(), nil
}

// Short returns the first block of an id, for compact listings.
// "9f1c2a4e-..." -> "9f1c2a4e"
func Short(recordID string) string {
	if i := strings.IndexByte(recordID, '-'); i > 0 {
		return recordID[:i]
	}
	return recordID
}

// Resolve finds the single id in ids that equals or starts with prefix.
func Resolve(prefix string, ids []string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("empty record id")
	}
	var match string
	for _, candidate := range ids {
		if candidate == prefix {
			return candidate, nil
		}
		if strings.HasPrefix(candidate, prefix) {
			if match != "" {
				return "", fmt.Errorf("record id %q is ambiguous", prefix)
			}
			match = candidate
		}
	}
	if match == "" {
		return "", fmt.Errorf("no record matches id %q", prefix)
	}
	return match, nil
}
