package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/relvacode/iso8601"
)

// ErrRejected marks a feed record that failed validation. Errors returned by
// Validate wrap it and name the offending field.
var ErrRejected = errors.New("sample rejected")

// Feed record field names.
const (
	FieldYaw        = "yaw"
	FieldPitch      = "pitch"
	FieldRoll       = "roll"
	FieldAltitude   = "alt"
	FieldLat        = "lat"
	FieldLng        = "lng"
	FieldInsertedAt = "insertedAt"
)

// Validate turns one decoded feed record into a Sample. raw is whatever the
// JSON decoder produced for the array element: a record must be an object
// whose six numeric fields are JSON numbers holding finite values and whose
// insertedAt is an ISO-8601 string. Strings that merely look numeric, such
// as "NaN" or "1.5", are rejected.
func Validate(raw any) (Sample, error) {
	rec, ok := raw.(map[string]any)
	if !ok {
		return Sample{}, fmt.Errorf("%w: record is %s, not an object", ErrRejected, describe(raw))
	}

	var s Sample
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{FieldYaw, &s.Yaw},
		{FieldPitch, &s.Pitch},
		{FieldRoll, &s.Roll},
		{FieldAltitude, &s.Altitude},
		{FieldLat, &s.Lat},
		{FieldLng, &s.Lng},
	} {
		v, err := numberField(rec, f.name)
		if err != nil {
			return Sample{}, err
		}
		*f.dst = v
	}

	ts, ok := rec[FieldInsertedAt]
	if !ok || ts == nil {
		return Sample{}, fmt.Errorf("%w: field %q is missing", ErrRejected, FieldInsertedAt)
	}
	str, ok := ts.(string)
	if !ok {
		return Sample{}, fmt.Errorf("%w: field %q is %s, not a string", ErrRejected, FieldInsertedAt, describe(ts))
	}
	t, err := iso8601.ParseString(str)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: field %q: %v", ErrRejected, FieldInsertedAt, err)
	}
	s.Timestamp = t

	return s, nil
}

func numberField(rec map[string]any, name string) (float64, error) {
	v, ok := rec[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: field %q is missing", ErrRejected, name)
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %v", ErrRejected, name, err)
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("%w: field %q is %s, not a number", ErrRejected, name, describe(v))
	}

	if !finite(f) {
		return 0, fmt.Errorf("%w: field %q is not finite", ErrRejected, name)
	}
	return f, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ValidateAll validates records in feed order, keeping survivors in order.
// It returns the accepted samples, the number rejected, and the first
// rejection error (nil when every record passed).
func ValidateAll(records []any) (accepted []Sample, rejected int, firstErr error) {
	accepted = make([]Sample, 0, len(records))
	for _, raw := range records {
		s, err := Validate(raw)
		if err != nil {
			rejected++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		accepted = append(accepted, s)
	}
	return accepted, rejected, firstErr
}

// DecodeFeed decodes a feed response body into its raw records. The body
// must be a single JSON array; numbers are kept as json.Number so Validate
// sees exactly what the feed sent. Element contents are not checked here.
func DecodeFeed(r io.Reader) ([]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode feed array: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode feed array: trailing data after array")
	}
	if records == nil {
		// A literal null decodes without error.
		return nil, errors.New("decode feed array: body is null")
	}
	return records, nil
}
