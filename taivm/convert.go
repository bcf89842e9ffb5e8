package taivm

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// FromGo converts decoded JSON-like Go values into VM values.
func FromGo(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		return v, nil
	case []byte:
		return Bytes(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []any:
		elems := make([]any, len(v))
		for i, elem := range v {
			e, err := FromGo(elem)
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return NewList(elems...), nil
	case map[string]any:
		d := NewDict()
		for _, k := range slices.Sorted(maps.Keys(v)) {
			e, err := FromGo(v[k])
			if err != nil {
				return nil, err
			}
			if err := d.Set(k, e); err != nil {
				return nil, err
			}
		}
		return d, nil
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(value.Uint()), nil
	}
	return nil, fmt.Errorf("unsupported input value of type %T", v)
}
