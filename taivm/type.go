package taivm

import "math"

// value kinds: nil, bool, int64, float64, string, Bytes, *List, Tuple, *Dict, *Range, *Closure, NativeFunc, *BoundMethod, Class

type Bytes string

type Tuple []any

type List struct {
	Elements []any
}

func NewList(elems ...any) *List {
	return &List{
		Elements: elems,
	}
}

// Class is the value returned by type().
type Class string

type Range struct {
	Start int64
	Stop  int64
	Step  int64
}

// Len is computed in uint64 so wide ranges do not wrap. It saturates at MaxInt64.
func (r *Range) Len() int64 {
	var span, step uint64
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		span = uint64(r.Stop) - uint64(r.Start)
		step = uint64(r.Step)
	case r.Step < 0 && r.Start > r.Stop:
		span = uint64(r.Start) - uint64(r.Stop)
		step = -uint64(r.Step)
	default:
		return 0
	}
	n := (span-1)/step + 1
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

func (r *Range) At(i int64) int64 {
	return r.Start + i*r.Step
}

func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case Bytes:
		return "bytes"
	case *List:
		return "list"
	case Tuple:
		return "tuple"
	case *Dict:
		return "dict"
	case *Range:
		return "range"
	case *Closure:
		return "function"
	case NativeFunc:
		return "builtin_function_or_method"
	case *BoundMethod:
		return "builtin_function_or_method"
	case Class:
		return "type"
	case *Iterator:
		return "iterator"
	}
	return "object"
}

func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case Bytes:
		return v != ""
	case *List:
		return len(v.Elements) > 0
	case Tuple:
		return len(v) > 0
	case *Dict:
		return v.Len() > 0
	case *Range:
		return v.Len() > 0
	}
	return true
}

func ToInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func ToFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) &&
		f >= math.MinInt64 && f < math.MaxInt64
}
