package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// decodeArgs copies model-provided arguments into a typed struct using its json
// tags. Numbers arrive as float64 or json.Number and are converted as needed.
func decodeArgs(args map[string]any, out any) error {
	cfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       integralNumberHook,
		Result:           out,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return fmt.Errorf("build argument decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// integralNumberHook lets integer fields accept numbers written with a fraction,
// such as 5.0. The fraction is truncated.
func integralNumberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}

	var f float64
	switch v := data.(type) {
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return data, nil
		}
		parsed, err := v.Float64()
		if err != nil {
			return data, nil
		}
		f = parsed
	case float64:
		f = v
	default:
		return data, nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return data, nil
	}
	return int64(math.Trunc(f)), nil
}

// sessionUser resolves the acting user. An explicit user_id argument wins over
// the authenticated session.
func sessionUser(ctx context.Context, explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	return UserIDFrom(ctx)
}
