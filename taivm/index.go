package taivm

import (
	"fmt"
	"unicode/utf8"
)

func normalizeIndex(i int64, n int, what string) (int, error) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, fmt.Errorf("%s index out of range", what)
	}
	return int(i), nil
}

func indexInt(container, key any) (int64, error) {
	if i, ok := ToInt64(key); ok {
		return i, nil
	}
	return 0, fmt.Errorf("%s indices must be integers or slices, not %s", TypeName(container), TypeName(key))
}

func GetIndex(container, key any) (any, error) {
	switch c := container.(type) {

	case *Dict:
		v, ok, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			s, err := Repr(key)
			if err != nil {
				s = Str(key)
			}
			return nil, fmt.Errorf("%s", s)
		}
		return v, nil

	case *List:
		i, err := indexInt(c, key)
		if err != nil {
			return nil, err
		}
		idx, err := normalizeIndex(i, len(c.Elements), "list")
		if err != nil {
			return nil, err
		}
		return c.Elements[idx], nil

	case Tuple:
		i, err := indexInt(c, key)
		if err != nil {
			return nil, err
		}
		idx, err := normalizeIndex(i, len(c), "tuple")
		if err != nil {
			return nil, err
		}
		return c[idx], nil

	case string:
		i, err := indexInt(c, key)
		if err != nil {
			return nil, err
		}
		runes := []rune(c)
		idx, err := normalizeIndex(i, len(runes), "string")
		if err != nil {
			return nil, err
		}
		return string(runes[idx]), nil

	case Bytes:
		i, err := indexInt(c, key)
		if err != nil {
			return nil, err
		}
		idx, err := normalizeIndex(i, len(c), "index")
		if err != nil {
			return nil, err
		}
		return int64(c[idx]), nil

	case *Range:
		i, err := indexInt(c, key)
		if err != nil {
			return nil, err
		}
		idx, err := normalizeIndex(i, int(c.Len()), "range object")
		if err != nil {
			return nil, err
		}
		return c.At(int64(idx)), nil

	}
	return nil, fmt.Errorf("'%s' object is not subscriptable", TypeName(container))
}

func SetIndex(container, key, value any) error {
	switch c := container.(type) {
	case *Dict:
		return c.Set(key, value)
	case *List:
		i, err := indexInt(c, key)
		if err != nil {
			return err
		}
		idx, err := normalizeIndex(i, len(c.Elements), "list assignment")
		if err != nil {
			return err
		}
		c.Elements[idx] = value
		return nil
	}
	return fmt.Errorf("'%s' object does not support item assignment", TypeName(container))
}

func sliceBounds(n int, lo, hi, step any) (start, stop, stride int, err error) {
	stride = 1
	if step != nil {
		s, ok := ToInt64(step)
		if !ok {
			return 0, 0, 0, fmt.Errorf("slice indices must be integers or None")
		}
		if s == 0 {
			return 0, 0, 0, fmt.Errorf("slice step cannot be zero")
		}
		stride = int(s)
	}

	clamp := func(v any, def int) (int, error) {
		if v == nil {
			return def, nil
		}
		i, ok := ToInt64(v)
		if !ok {
			return 0, fmt.Errorf("slice indices must be integers or None")
		}
		idx := int(i)
		if idx < 0 {
			idx += n
			if idx < 0 {
				if stride < 0 {
					return -1, nil
				}
				return 0, nil
			}
		}
		if idx >= n {
			if stride < 0 {
				return n - 1, nil
			}
			return n, nil
		}
		return idx, nil
	}

	if stride > 0 {
		if start, err = clamp(lo, 0); err != nil {
			return
		}
		stop, err = clamp(hi, n)
	} else {
		if start, err = clamp(lo, n-1); err != nil {
			return
		}
		stop, err = clamp(hi, -1)
	}
	return
}

func sliceIndices(n int, lo, hi, step any) ([]int, error) {
	start, stop, stride, err := sliceBounds(n, lo, hi, step)
	if err != nil {
		return nil, err
	}
	var ret []int
	if stride > 0 {
		for i := start; i < stop; i += stride {
			ret = append(ret, i)
		}
	} else {
		for i := start; i > stop; i += stride {
			ret = append(ret, i)
		}
	}
	return ret, nil
}

func Slice(container, lo, hi, step any) (any, error) {
	switch c := container.(type) {

	case *List:
		idx, err := sliceIndices(len(c.Elements), lo, hi, step)
		if err != nil {
			return nil, err
		}
		elems := make([]any, len(idx))
		for i, j := range idx {
			elems[i] = c.Elements[j]
		}
		return NewList(elems...), nil

	case Tuple:
		idx, err := sliceIndices(len(c), lo, hi, step)
		if err != nil {
			return nil, err
		}
		ret := make(Tuple, len(idx))
		for i, j := range idx {
			ret[i] = c[j]
		}
		return ret, nil

	case string:
		runes := []rune(c)
		idx, err := sliceIndices(len(runes), lo, hi, step)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 0, len(idx))
		for _, j := range idx {
			buf = utf8.AppendRune(buf, runes[j])
		}
		return string(buf), nil

	case Bytes:
		idx, err := sliceIndices(len(c), lo, hi, step)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, len(idx))
		for i, j := range idx {
			buf[i] = c[j]
		}
		return Bytes(buf), nil

	case *Range:
		idx, err := sliceIndices(int(c.Len()), lo, hi, step)
		if err != nil {
			return nil, err
		}
		elems := make([]any, len(idx))
		for i, j := range idx {
			elems[i] = c.At(int64(j))
		}
		return NewList(elems...), nil

	}
	return nil, fmt.Errorf("'%s' object is not subscriptable", TypeName(container))
}

func Len(v any) (int64, error) {
	switch v := v.(type) {
	case string:
		return int64(utf8.RuneCountInString(v)), nil
	case Bytes:
		return int64(len(v)), nil
	case *List:
		return int64(len(v.Elements)), nil
	case Tuple:
		return int64(len(v)), nil
	case *Dict:
		return int64(v.Len()), nil
	case *Range:
		return v.Len(), nil
	}
	return 0, fmt.Errorf("object of type '%s' has no len()", TypeName(v))
}
