// Package record models backend rows (jobs, users, ratings) as loosely typed maps.
// The canister schema drifts between deployments, so every accessor is defensive and
// falls back to a default instead of failing.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

type Record map[string]any

// ErrNotList is returned when a document is valid JSON but not an array.
var ErrNotList = errors.New("not a JSON array")

// DecodeList decodes a JSON array of objects keeping numbers as json.Number.
// Nanosecond timestamps do not fit into float64 without losing precision.
func DecodeList(data []byte) ([]Record, error) {
	var raw any
	if err := decode(data, &raw); err != nil {
		return nil, err
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotList, kindOf(raw))
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			// non-object entries carry nothing the tools could use
			continue
		}
		records = append(records, Record(obj))
	}

	return records, nil
}

// DecodeObject decodes a single JSON object.
func DecodeObject(data []byte) (Record, error) {
	var obj map[string]any
	if err := decode(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object, got null")
	}
	return Record(obj), nil
}

func decode(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// String returns the field rendered as a string. Numbers are formatted without
// exponent so numeric ids compare equal to their string form.
func (r Record) String(field, def string) string {
	return AsString(r[field], def)
}

// Number returns the field as float64.
func (r Record) Number(field string, def float64) float64 {
	if f, ok := AsNumber(r[field]); ok {
		return f
	}
	return def
}

// HasNumber reports whether the field holds a JSON number.
func (r Record) HasNumber(field string) bool {
	switch r[field].(type) {
	case json.Number, float64, int, int64:
		return true
	}
	return false
}

// Int64 returns the field as int64, parsing numeric strings as well.
func (r Record) Int64(field string, def int64) int64 {
	if n, ok := AsInt64(r[field]); ok {
		return n
	}
	return def
}

func (r Record) Bool(field string, def bool) bool {
	if b, ok := r[field].(bool); ok {
		return b
	}
	return def
}

// List returns the field as a slice, nil when absent or not an array.
func (r Record) List(field string) []any {
	if l, ok := r[field].([]any); ok {
		return l
	}
	return nil
}

// Strings returns the string elements of an array field.
func (r Record) Strings(field string) []string {
	list := r.List(field)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether the field is present and not null.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Pick returns a new record holding only the listed fields. Absent fields are set
// from defaults when provided.
func (r Record) Pick(fields []string, defaults map[string]any) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
			continue
		}
		out[f] = defaults[f]
	}
	return out
}

func AsString(v any, def string) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return def
	}
}

func AsNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func AsInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int64(val), true
	case int:
		return int64(val), true
	case int64:
		return val, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
