package debugs

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/reusee/starlarkutil"
	"github.com/reusee/taitrace/taivm"
	"go.starlark.net/starlark"
)

// toStarlarkValue converts Go and interpreter values for inspection in the tap.
// Values with no starlark counterpart are shown by their string form.
func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {

	case nil:
		return starlark.None
	case starlark.Value:
		return v

	case bool:
		return starlark.Bool(v)
	case string:
		return starlark.String(v)
	case []byte:
		return starlark.Bytes(v)
	case taivm.Bytes:
		return starlark.Bytes(v)
	case int64:
		return starlark.MakeInt64(v)
	case float64:
		return starlark.Float(v)

	case *taivm.List:
		return toStarlarkList(v.Elements)
	case taivm.Tuple:
		elems := make(starlark.Tuple, len(v))
		for i, e := range v {
			elems[i] = toStarlarkValue(e)
		}
		return elems
	case *taivm.Dict:
		d := starlark.NewDict(v.Len())
		for _, item := range v.Items() {
			d.SetKey(toStarlarkValue(item[0]), toStarlarkValue(item[1]))
		}
		return d
	case *taivm.Range:
		elems := make([]any, 0, v.Len())
		for i := range v.Len() {
			elems = append(elems, v.At(i))
		}
		return toStarlarkList(elems)
	case *taivm.Closure:
		return starlark.String("<function " + v.Fun.Name + ">")

	case []any:
		return toStarlarkList(v)
	case map[string]any:
		d := starlark.NewDict(len(v))
		for k, val := range v {
			d.SetKey(starlark.String(k), toStarlarkValue(val))
		}
		return d

	}

	value := reflect.ValueOf(v)
	switch value.Kind() {

	case reflect.Bool:
		return starlark.Bool(value.Bool())
	case reflect.String:
		return starlark.String(value.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(value.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(value.Uint())
	case reflect.Float32, reflect.Float64:
		return starlark.Float(value.Float())

	case reflect.Slice, reflect.Array:
		elems := make([]any, value.Len())
		for i := range elems {
			elems[i] = value.Index(i).Interface()
		}
		return toStarlarkList(elems)

	case reflect.Map:
		d := starlark.NewDict(value.Len())
		iter := value.MapRange()
		for iter.Next() {
			d.SetKey(
				toStarlarkValue(iter.Key().Interface()),
				toStarlarkValue(iter.Value().Interface()),
			)
		}
		return d

	case reflect.Struct:
		typ := value.Type()
		d := starlark.NewDict(typ.NumField())
		for i := range typ.NumField() {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				embedded := toStarlarkValue(value.Field(i).Interface()).(*starlark.Dict)
				for _, item := range embedded.Items() {
					d.SetKey(item[0], item[1])
				}
				continue
			}
			name := fieldName(field)
			if name == "-" {
				continue
			}
			d.SetKey(
				starlark.String(name),
				toStarlarkValue(value.Field(i).Interface()),
			)
		}
		return d

	case reflect.Pointer, reflect.Interface:
		elem := value.Elem()
		if !elem.IsValid() {
			return starlark.None
		}
		return toStarlarkValue(elem.Interface())

	case reflect.Func:
		return starlarkutil.MakeFunc("", value.Interface())

	}

	return starlark.String(fmt.Sprint(v))
}

func toStarlarkList(elems []any) *starlark.List {
	values := make([]starlark.Value, len(elems))
	for i, e := range elems {
		values[i] = toStarlarkValue(e)
	}
	return starlark.NewList(values)
}

// fieldName prefers the json tag so tapped values read like the wire format.
func fieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}
