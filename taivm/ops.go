package taivm

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

func unsupported(op OpCode, a, b any) error {
	return fmt.Errorf("unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(a), TypeName(b))
}

// numeric operands: bool counts as int
func numbers(a, b any) (ai, bi int64, af, bf float64, isInt, ok bool) {
	ai, aIsInt := ToInt64(a)
	bi, bIsInt := ToInt64(b)
	if aIsInt && bIsInt {
		return ai, bi, 0, 0, true, true
	}
	af, aOK := ToFloat64(a)
	bf, bOK := ToFloat64(b)
	if aOK && bOK {
		return 0, 0, af, bf, false, true
	}
	return
}

func Binary(op OpCode, a, b any) (any, error) {
	op &= 0xff
	switch op {

	case OpAdd:
		switch x := a.(type) {
		case string:
			if y, ok := b.(string); ok {
				if err := CheckAlloc(int64(len(x)) + int64(len(y))); err != nil {
					return nil, err
				}
				return x + y, nil
			}
		case Bytes:
			if y, ok := b.(Bytes); ok {
				if err := CheckAlloc(int64(len(x)) + int64(len(y))); err != nil {
					return nil, err
				}
				return x + y, nil
			}
		case *List:
			if y, ok := b.(*List); ok {
				if err := CheckAlloc(int64(len(x.Elements)) + int64(len(y.Elements))); err != nil {
					return nil, err
				}
				elems := make([]any, 0, len(x.Elements)+len(y.Elements))
				elems = append(elems, x.Elements...)
				elems = append(elems, y.Elements...)
				return NewList(elems...), nil
			}
		case Tuple:
			if y, ok := b.(Tuple); ok {
				if err := CheckAlloc(int64(len(x)) + int64(len(y))); err != nil {
					return nil, err
				}
				ret := make(Tuple, 0, len(x)+len(y))
				ret = append(ret, x...)
				return append(ret, y...), nil
			}
		}

	case OpMul:
		if n, ok := ToInt64(b); ok {
			if ret, ok, err := repeat(a, n); ok {
				return ret, err
			}
		}
		if n, ok := ToInt64(a); ok {
			if _, isBool := a.(bool); !isBool {
				if ret, ok, err := repeat(b, n); ok {
					return ret, err
				}
			}
		}

	case OpMod:
		if format, ok := a.(string); ok {
			return formatPercent(format, b)
		}

	}

	ai, bi, af, bf, isInt, ok := numbers(a, b)
	if !ok {
		return nil, unsupported(op, a, b)
	}

	switch op {
	case OpAdd:
		if isInt {
			return AddInt(ai, bi)
		}
		return af + bf, nil
	case OpSub:
		if isInt {
			return SubInt(ai, bi)
		}
		return af - bf, nil
	case OpMul:
		if isInt {
			return MulInt(ai, bi)
		}
		return af * bf, nil
	case OpDiv:
		if isInt {
			if bi == 0 {
				return nil, errors.New("division by zero")
			}
			return float64(ai) / float64(bi), nil
		}
		if bf == 0 {
			return nil, errors.New("float division by zero")
		}
		return af / bf, nil
	case OpFloorDiv:
		if isInt {
			if bi == 0 {
				return nil, errors.New("integer division or modulo by zero")
			}
			if ai == math.MinInt64 && bi == -1 {
				return nil, ErrOverflow
			}
			return floorDiv(ai, bi), nil
		}
		if bf == 0 {
			return nil, errors.New("float floor division by zero")
		}
		return math.Floor(af / bf), nil
	case OpMod:
		if isInt {
			if bi == 0 {
				return nil, errors.New("integer modulo by zero")
			}
			if bi == -1 {
				return int64(0), nil
			}
			return ai - floorDiv(ai, bi)*bi, nil
		}
		if bf == 0 {
			return nil, errors.New("float modulo")
		}
		m := math.Mod(af, bf)
		if m != 0 && (m < 0) != (bf < 0) {
			m += bf
		}
		return m, nil
	}

	if !isInt {
		return nil, unsupported(op, a, b)
	}
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	switch op {
	case OpBitAnd:
		if aBool && bBool {
			return ai&bi != 0, nil
		}
		return ai & bi, nil
	case OpBitOr:
		if aBool && bBool {
			return ai|bi != 0, nil
		}
		return ai | bi, nil
	case OpBitXor:
		if aBool && bBool {
			return ai^bi != 0, nil
		}
		return ai ^ bi, nil
	case OpBitLsh:
		if bi < 0 {
			return nil, errors.New("negative shift count")
		}
		if ai == 0 {
			return int64(0), nil
		}
		if bi >= 64 || (ai<<uint(bi))>>uint(bi) != ai {
			return nil, ErrOverflow
		}
		return ai << uint(bi), nil
	case OpBitRsh:
		if bi < 0 {
			return nil, errors.New("negative shift count")
		}
		return ai >> min(uint(bi), 63), nil
	}

	return nil, unsupported(op, a, b)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// repeat implements sequence * n. ok is false when v is not a sequence.
func repeat(v any, n int64) (_ any, ok bool, err error) {
	n = max(n, 0)
	var size int64
	switch v := v.(type) {
	case string:
		size = int64(len(v))
	case Bytes:
		size = int64(len(v))
	case *List:
		size = int64(len(v.Elements))
	case Tuple:
		size = int64(len(v))
	default:
		return nil, false, nil
	}
	total, err := allocProduct(size, n)
	if err != nil {
		return nil, true, err
	}
	switch v := v.(type) {
	case string:
		return strings.Repeat(v, int(n)), true, nil
	case Bytes:
		return Bytes(strings.Repeat(string(v), int(n))), true, nil
	case *List:
		elems := make([]any, 0, total)
		for range n {
			elems = append(elems, v.Elements...)
		}
		return NewList(elems...), true, nil
	case Tuple:
		ret := make(Tuple, 0, total)
		for range n {
			ret = append(ret, v...)
		}
		return ret, true, nil
	}
	return nil, false, nil
}

// InplaceAdd extends lists in place, otherwise behaves like Binary.
func InplaceAdd(a, b any) (any, error) {
	if l, ok := a.(*List); ok {
		elems, err := Elements(b)
		if err != nil {
			return nil, err
		}
		if err := CheckAlloc(int64(len(l.Elements)) + int64(len(elems))); err != nil {
			return nil, err
		}
		l.Elements = append(l.Elements, elems...)
		return l, nil
	}
	return Binary(OpAdd, a, b)
}

func Unary(op OpCode, v any) (any, error) {
	switch op & 0xff {
	case OpNot:
		return !Truthy(v), nil
	case OpNeg:
		if i, ok := ToInt64(v); ok {
			return NegInt(i)
		}
		if f, ok := v.(float64); ok {
			return -f, nil
		}
	case OpPos:
		if i, ok := ToInt64(v); ok {
			return i, nil
		}
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case OpBitNot:
		if i, ok := ToInt64(v); ok {
			return ^i, nil
		}
	}
	return nil, fmt.Errorf("bad operand type for %s: '%s'", op, TypeName(v))
}

func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && x == y
	case *List:
		y, ok := b.(*List)
		return ok && (x == y || equalSlices(x.Elements, y.Elements))
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSlices(x, y)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if x.Len() != y.Len() {
			return false
		}
		for i, k := range x.keys {
			v, ok, err := y.Get(k)
			if err != nil || !ok || !Equal(x.values[i], v) {
				return false
			}
		}
		return true
	case *Range:
		y, ok := b.(*Range)
		return ok && *x == *y
	case Class:
		// type(1) == int
		switch y := b.(type) {
		case Class:
			return x == y
		case NativeFunc:
			return string(x) == y.Name
		}
		return false
	case NativeFunc:
		switch y := b.(type) {
		case NativeFunc:
			return x.Name == y.Name
		case Class:
			return x.Name == string(y)
		}
		return false
	case *Closure:
		return a == b
	case *BoundMethod:
		return a == b
	}
	_, _, af, bf, isInt, ok := numbers(a, b)
	if !ok {
		return false
	}
	if isInt {
		ai, _ := ToInt64(a)
		bi, _ := ToInt64(b)
		return ai == bi
	}
	return af == bf
}

func equalSlices(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Less reports a < b with ordering defined for numbers, strings, bytes and sequences.
func Less(a, b any) (bool, error) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return x < y, nil
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return x < y, nil
		}
	case *List:
		if y, ok := b.(*List); ok {
			return lessSlices(x.Elements, y.Elements)
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			return lessSlices(x, y)
		}
	}
	ai, bi, af, bf, isInt, ok := numbers(a, b)
	if !ok {
		return false, fmt.Errorf("'<' not supported between instances of '%s' and '%s'", TypeName(a), TypeName(b))
	}
	if isInt {
		return ai < bi, nil
	}
	return af < bf, nil
}

func lessSlices(a, b []any) (bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		return Less(a[i], b[i])
	}
	return len(a) < len(b), nil
}

func Compare(op OpCode, a, b any) (bool, error) {
	switch op & 0xff {
	case OpEq:
		return Equal(a, b), nil
	case OpNe:
		return !Equal(a, b), nil
	case OpLt:
		return Less(a, b)
	case OpGt:
		return Less(b, a)
	case OpLe:
		lt, err := Less(b, a)
		return !lt, err
	case OpGe:
		lt, err := Less(a, b)
		return !lt, err
	}
	return false, fmt.Errorf("bad comparison")
}

func Contains(container, item any) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand, not %s", TypeName(item))
		}
		return strings.Contains(c, s), nil
	case Bytes:
		switch s := item.(type) {
		case Bytes:
			return strings.Contains(string(c), string(s)), nil
		case int64:
			return strings.IndexByte(string(c), byte(s)) >= 0, nil
		}
		return false, fmt.Errorf("a bytes-like object is required, not '%s'", TypeName(item))
	case *Dict:
		_, ok, err := c.Get(item)
		return ok, err
	case *Range:
		i, ok := ToInt64(item)
		if !ok {
			return false, nil
		}
		n := c.Len()
		if n == 0 {
			return false, nil
		}
		off := i - c.Start
		if off%c.Step != 0 {
			return false, nil
		}
		idx := off / c.Step
		return idx >= 0 && idx < n, nil
	}
	it, err := Iterate(container)
	if err != nil {
		return false, fmt.Errorf("argument of type '%s' is not iterable", TypeName(container))
	}
	for {
		elem, ok := it.Next()
		if !ok {
			return false, nil
		}
		if Equal(elem, item) {
			return true, nil
		}
	}
}
