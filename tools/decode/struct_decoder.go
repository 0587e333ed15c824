package decode

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Options customises Decode.
type Options struct {
	// WeaklyTypedInput lets "123" decode into an int, true into "true" and so on.
	WeaklyTypedInput bool
	// Remain names a map[string]any field receiving keys no other field claimed.
	Remain bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// Raw turns a JSON document into its generic form.
func Raw(data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("payload is not json: %w", err)
	}
	return v, nil
}

// Object decodes a JSON object payload into T using `json` tags.
func Object[T any](data json.RawMessage, opts ...Options) (*T, error) {
	v, err := Raw(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload must be an object (got %s)", kind(v))
	}
	return Map[T](m, opts...)
}

// Map decodes a generic map into T.
func Map[T any](m map[string]any, opts ...Options) (*T, error) {
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			floatToIntHook(),
			jsonRawStringToMapHook(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

// String reads a payload that is either a bare JSON string or a number.
func String(data json.RawMessage) (string, error) {
	v, err := Raw(data)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("payload must be a string (got %s)", kind(v))
	}
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// floatToIntHook converts JSON numbers into integer fields.
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}

// jsonRawStringToMapHook decodes a string holding a JSON object into a map field.
func jsonRawStringToMapHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.String || to != reflect.Map {
			return data, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(data.(string)), &m); err == nil {
			return m, nil
		}
		return data, nil
	}
}

// Merge overlays the top-level keys of patch onto dst, the way a Mongo $set
// of those keys would. Keys listed in protected are ignored.
func Merge(dst any, patch json.RawMessage, protected ...string) error {
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return fmt.Errorf("patch must be an object: %w", err)
	}
	if overlay == nil {
		return fmt.Errorf("patch must be an object (got null)")
	}
	for _, k := range protected {
		delete(overlay, k)
	}

	cur, err := json.Marshal(dst)
	if err != nil {
		return fmt.Errorf("encode current value: %w", err)
	}
	base := make(map[string]json.RawMessage)
	if err := json.Unmarshal(cur, &base); err != nil {
		return fmt.Errorf("current value is not an object: %w", err)
	}
	for k, v := range overlay {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("encode merged value: %w", err)
	}
	if err := json.Unmarshal(merged, dst); err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	return nil
}
