package conflict

import (
	"encoding/json"
	"reflect"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns v in the canonical form used for comparison: strings in
// Unicode NFC, json.Number and every Go numeric kind as float64, and slices
// and string-keyed maps of any element type as []any and map[string]any,
// normalized recursively.
func Normalize(v any) any {
	switch x := v.(type) {
	case string:
		return norm.NFC.String(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = Normalize(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[norm.NFC.String(k)] = Normalize(e)
		}
		return out
	case nil, bool, float64, []byte:
		return v
	default:
		return normalizeReflect(reflect.ValueOf(v))
	}
}

// normalizeReflect covers the numeric, slice and map types not matched by
// Normalize's fast path, such as uint16, []int or map[string]string.
func normalizeReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return norm.NFC.String(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return rv.Interface()
		}
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[norm.NFC.String(iter.Key().String())] = Normalize(iter.Value().Interface())
		}
		return out
	default:
		return rv.Interface()
	}
}

// Equal reports whether a and b are the same value after normalization.
func Equal(a, b any) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// normalizeName lowercases and trims an identifier for rule lookups.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
