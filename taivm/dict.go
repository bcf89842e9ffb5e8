package taivm

import (
	"fmt"
	"strings"
)

// Dict is an insertion ordered mapping.
type Dict struct {
	keys   []any
	values []any
	index  map[any]int
}

func NewDict() *Dict {
	return &Dict{
		index: make(map[any]int),
	}
}

type tupleKey string

func hashKey(k any) (any, error) {
	switch k := k.(type) {
	case nil, bool, int64, string, Bytes, Class:
		return k, nil
	case float64:
		if isIntegral(k) {
			return int64(k), nil
		}
		return k, nil
	case Tuple:
		var b strings.Builder
		for _, elem := range k {
			h, err := hashKey(elem)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "%T:%v,", h, h)
		}
		return tupleKey(b.String()), nil
	case *Closure, *Range:
		return k, nil
	}
	return nil, fmt.Errorf("unhashable type: '%s'", TypeName(k))
}

func (d *Dict) Len() int {
	return len(d.keys)
}

func (d *Dict) Get(k any) (any, bool, error) {
	h, err := hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[h]
	if !ok {
		return nil, false, nil
	}
	return d.values[i], true, nil
}

func (d *Dict) Set(k, v any) error {
	h, err := hashKey(k)
	if err != nil {
		return err
	}
	if i, ok := d.index[h]; ok {
		d.values[i] = v
		return nil
	}
	d.index[h] = len(d.keys)
	d.keys = append(d.keys, k)
	d.values = append(d.values, v)
	return nil
}

func (d *Dict) Delete(k any) (any, bool, error) {
	h, err := hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[h]
	if !ok {
		return nil, false, nil
	}
	v := d.values[i]
	delete(d.index, h)
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.values = append(d.values[:i], d.values[i+1:]...)
	for j := i; j < len(d.keys); j++ {
		h, _ := hashKey(d.keys[j])
		d.index[h] = j
	}
	return v, true, nil
}

func (d *Dict) Clear() {
	d.keys = nil
	d.values = nil
	d.index = make(map[any]int)
}

func (d *Dict) Keys() []any {
	return append([]any(nil), d.keys...)
}

func (d *Dict) Values() []any {
	return append([]any(nil), d.values...)
}

func (d *Dict) Items() []Tuple {
	ret := make([]Tuple, len(d.keys))
	for i, k := range d.keys {
		ret[i] = Tuple{k, d.values[i]}
	}
	return ret
}

func (d *Dict) Copy() *Dict {
	ret := NewDict()
	for i, k := range d.keys {
		_ = ret.Set(k, d.values[i])
	}
	return ret
}
