package tracing

import (
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

// Attrs is a bag of span attributes. Values are limited to string, bool,
// integer and float kinds; anything else is stored as its fmt.Sprint form.
type Attrs map[string]any

// KeyValues converts the bag into attributes sorted by key.
func (a Attrs) KeyValues() []attribute.KeyValue {
	if len(a) == 0 {
		return nil
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, coerce(k, a[k]))
	}
	return kvs
}

func coerce(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int8:
		return attribute.Int64(key, int64(val))
	case int16:
		return attribute.Int64(key, int64(val))
	case int32:
		return attribute.Int64(key, int64(val))
	case int64:
		return attribute.Int64(key, val)
	case uint8:
		return attribute.Int64(key, int64(val))
	case uint16:
		return attribute.Int64(key, int64(val))
	case uint32:
		return attribute.Int64(key, int64(val))
	case float32:
		return attribute.Float64(key, float64(val))
	case float64:
		return attribute.Float64(key, val)
	case fmt.Stringer:
		return attribute.String(key, val.String())
	case nil:
		return attribute.String(key, "")
	default:
		return attribute.String(key, fmt.Sprint(val))
	}
}
