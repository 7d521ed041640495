package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// savedAtLayout matches the ISO-8601 form browsers produce with
// Date.toISOString, e.g. "2024-04-26T15:10:00.000Z".
const savedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// EncodeDraft serializes a whole draft for persistence.
func EncodeDraft(d Draft) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	return data, nil
}

// DecodeDraft parses a persisted draft. Any failure wraps [ErrCorruptDraft].
func DecodeDraft(data []byte) (Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("%w: %w", ErrCorruptDraft, err)
	}
	return d, nil
}

// FormatSavedAt renders a save time in UTC with millisecond precision.
func FormatSavedAt(t time.Time) string {
	return t.UTC().Format(savedAtLayout)
}

// ParseSavedAt accepts any RFC 3339 timestamp, with or without fractional seconds.
func ParseSavedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse draft timestamp %q: %w", s, err)
	}
	return t, nil
}
