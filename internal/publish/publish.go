// Package publish owns the single translation between the site's boolean
// "published" flag and the backend's status enum.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFlag is returned when "published" is present but cannot be read
// as a boolean.
var ErrInvalidFlag = errors.New("published must be true or false")

type Status string

const (
	Draft     Status = "Draft"
	Published Status = "Published"
)

// StatusFor maps the boolean flag to the backend enum.
func StatusFor(published bool) Status {
	if published {
		return Published
	}
	return Draft
}

// IsPublished maps the backend enum to the boolean flag. Anything other
// than "Published" (case-insensitive) counts as a draft.
func IsPublished(s Status) bool {
	return strings.EqualFold(string(s), string(Published))
}

// ToBackend rewrites an outbound payload in place: "published" becomes the
// "status" enum and is removed. Besides JSON booleans it accepts the strings
// and numbers strconv.ParseBool does, as form-encoding clients send them.
// Payloads without the flag are left alone.
func ToBackend(payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, nil
	}
	v, ok := payload["published"]
	if !ok {
		return payload, nil
	}
	published, err := parseFlag(v)
	if err != nil {
		return nil, err
	}
	payload["status"] = string(StatusFor(published))
	delete(payload, "published")
	return payload, nil
}

func parseFlag(v any) (bool, error) {
	var s string
	switch f := v.(type) {
	case bool:
		return f, nil
	case string:
		s = strings.TrimSpace(f)
	case json.Number:
		s = f.String()
	case float64:
		s = strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return false, fmt.Errorf("%w: got %v", ErrInvalidFlag, v)
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: got %q", ErrInvalidFlag, s)
	}
	return b, nil
}

// FromBackend rewrites an inbound record in place, deriving "published"
// from "status". The status field is kept.
func FromBackend(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	if s, ok := record["status"].(string); ok {
		record["published"] = IsPublished(Status(s))
	}
	return record
}
