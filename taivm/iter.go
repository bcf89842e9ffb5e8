package taivm

import (
	"fmt"
	"unicode/utf8"
)

type Iterator struct {
	next func() (any, bool)
}

func (it *Iterator) Next() (any, bool) {
	return it.next()
}

func Iterate(v any) (*Iterator, error) {
	switch v := v.(type) {

	case *List:
		i := 0
		return &Iterator{
			next: func() (any, bool) {
				if i >= len(v.Elements) {
					return nil, false
				}
				i++
				return v.Elements[i-1], true
			},
		}, nil

	case Tuple:
		return sliceIterator(v), nil

	case *Dict:
		return sliceIterator(v.Keys()), nil

	case string:
		rest := v
		return &Iterator{
			next: func() (any, bool) {
				if rest == "" {
					return nil, false
				}
				_, size := utf8.DecodeRuneInString(rest)
				ret := rest[:size]
				rest = rest[size:]
				return ret, true
			},
		}, nil

	case Bytes:
		i := 0
		return &Iterator{
			next: func() (any, bool) {
				if i >= len(v) {
					return nil, false
				}
				i++
				return int64(v[i-1]), true
			},
		}, nil

	case *Range:
		var i int64
		n := v.Len()
		return &Iterator{
			next: func() (any, bool) {
				if i >= n {
					return nil, false
				}
				i++
				return v.At(i - 1), true
			},
		}, nil

	case *Iterator:
		return v, nil

	}
	return nil, fmt.Errorf("'%s' object is not iterable", TypeName(v))
}

func sliceIterator(elems []any) *Iterator {
	i := 0
	return &Iterator{
		next: func() (any, bool) {
			if i >= len(elems) {
				return nil, false
			}
			i++
			return elems[i-1], true
		},
	}
}

// Elements materializes an iterable.
func Elements(v any) ([]any, error) {
	switch v := v.(type) {
	case *List:
		return append([]any(nil), v.Elements...), nil
	case Tuple:
		return append([]any(nil), v...), nil
	case *Range:
		if err := CheckAlloc(v.Len()); err != nil {
			return nil, err
		}
	}
	it, err := Iterate(v)
	if err != nil {
		return nil, err
	}
	var ret []any
	for {
		elem, ok := it.Next()
		if !ok {
			break
		}
		if len(ret) >= MaxAlloc {
			return nil, ErrAllocLimit
		}
		ret = append(ret, elem)
	}
	return ret, nil
}
