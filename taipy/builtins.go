package taipy

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/reusee/taitrace/taivm"
)

func native(name string, fn func(vm *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error)) taivm.NativeFunc {
	return taivm.NativeFunc{
		Name: name,
		Func: fn,
	}
}

// positional rejects keyword arguments and checks the argument count.
func positional(name string, min, max int, fn func(vm *taivm.VM, args []any) (any, error)) taivm.NativeFunc {
	return native(name, func(vm *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s() takes no keyword arguments", name)
		}
		if err := taivm.CheckArgs(name, args, min, max); err != nil {
			return nil, err
		}
		return fn(vm, args)
	})
}

var builtins = []taivm.NativeFunc{

	native("print", func(vm *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error) {
		if err := kwargs.Only("print", "sep", "end"); err != nil {
			return nil, err
		}
		sep, end := " ", "\n"
		if v, ok := kwargs.Lookup("sep"); ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("sep must be None or a string, not %s", taivm.TypeName(v))
			}
			sep = s
		}
		if v, ok := kwargs.Lookup("end"); ok && v != nil {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("end must be None or a string, not %s", taivm.TypeName(v))
			}
			end = s
		}
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = taivm.Str(arg)
		}
		if _, err := io.WriteString(vm.Stdout, strings.Join(parts, sep)+end); err != nil {
			return nil, err
		}
		return nil, nil
	}),

	positional("len", 1, 1, func(_ *taivm.VM, args []any) (any, error) {
		return taivm.Len(args[0])
	}),

	positional("range", 1, 3, func(_ *taivm.VM, args []any) (any, error) {
		ints := make([]int64, len(args))
		for i, arg := range args {
			n, ok := taivm.ToInt64(arg)
			if !ok {
				return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", taivm.TypeName(arg))
			}
			ints[i] = n
		}
		r := &taivm.Range{Step: 1}
		switch len(ints) {
		case 1:
			r.Stop = ints[0]
		case 2:
			r.Start, r.Stop = ints[0], ints[1]
		case 3:
			r.Start, r.Stop, r.Step = ints[0], ints[1], ints[2]
			if r.Step == 0 {
				return nil, fmt.Errorf("range() arg 3 must not be zero")
			}
		}
		return r, nil
	}),

	positional("str", 0, 1, func(_ *taivm.VM, args []any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return taivm.Str(args[0]), nil
	}),

	positional("repr", 1, 1, func(_ *taivm.VM, args []any) (any, error) {
		return taivm.Repr(args[0])
	}),

	positional("int", 0, 2, func(_ *taivm.VM, args []any) (any, error) {
		if len(args) == 0 {
			return int64(0), nil
		}
		if len(args) == 2 {
			s, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("int() can't convert non-string with explicit base")
			}
			base, ok := taivm.ToInt64(args[1])
			if !ok {
				return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", taivm.TypeName(args[1]))
			}
			return parseInt(s, int(base))
		}
		switch v := args[0].(type) {
		case int64:
			return v, nil
		case bool:
			n, _ := taivm.ToInt64(v)
			return n, nil
		case float64:
			return taivm.FloatToInt(v)
		case string:
			return parseInt(v, 10)
		}
		return nil, fmt.Errorf("int() argument must be a string or a number, not '%s'", taivm.TypeName(args[0]))
	}),

	positional("float", 0, 1, func(_ *taivm.VM, args []any) (any, error) {
		if len(args) == 0 {
			return 0.0, nil
		}
		if s, ok := args[0].(string); ok {
			trimmed := strings.ToLower(strings.TrimSpace(s))
			switch strings.TrimLeft(trimmed, "+-") {
			case "inf", "infinity", "nan":
			default:
				if strings.ContainsAny(trimmed, "xp") {
					return nil, fmt.Errorf("could not convert string to float: %s", quote(s))
				}
			}
			f, err := strconv.ParseFloat(trimmed, 64)
			if err != nil && !isRangeError(err) {
				return nil, fmt.Errorf("could not convert string to float: %s", quote(s))
			}
			return f, nil
		}
		f, ok := taivm.ToFloat64(args[0])
		if !ok {
			return nil, fmt.Errorf("float() argument must be a string or a number, not '%s'", taivm.TypeName(args[0]))
		}
		return f, nil
	}),

	positional("bool", 0, 1, func(_ *taivm.VM, args []any) (any, error) {
		if len(args) == 0 {
			return false, nil
		}
		return taivm.Truthy(args[0]), nil
	}),

	positional("type", 1, 1, func(_ *taivm.VM, args []any) (any, error) {
		return taivm.Class(taivm.TypeName(args[0])), nil
	}),

	positional("abs", 1, 1, func(_ *taivm.VM, args []any) (any, error) {
		switch v := args[0].(type) {
		case int64:
			if v < 0 {
				return taivm.NegInt(v)
			}
			return v, nil
		case bool:
			n, _ := taivm.ToInt64(v)
			return n, nil
		case float64:
			return math.Abs(v), nil
		}
		return nil, fmt.Errorf("bad operand type for abs(): '%s'", taivm.TypeName(args[0]))
	}),

	native("min", func(vm *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error) {
		return extreme(vm, "min", args, kwargs, false)
	}),

	native("max", func(vm *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error) {
		return extreme(vm, "max", args, kwargs, true)
	}),

	native("sorted", func(vm *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error) {
		if err := kwargs.Only("sorted", "key", "reverse"); err != nil {
			return nil, err
		}
		if err := taivm.CheckArgs("sorted", args, 1, 1); err != nil {
			return nil, err
		}
		elems, err := taivm.Elements(args[0])
		if err != nil {
			return nil, err
		}
		elems = append([]any(nil), elems...)
		key, _ := kwargs.Lookup("key")
		reverse, _ := kwargs.Lookup("reverse")
		if err := taivm.SortElements(vm, elems, key, taivm.Truthy(reverse)); err != nil {
			return nil, err
		}
		return taivm.NewList(elems...), nil
	}),

	positional("list", 0, 1, func(_ *taivm.VM, args []any) (any, error) {
		if len(args) == 0 {
			return taivm.NewList(), nil
		}
		elems, err := taivm.Elements(args[0])
		if err != nil {
			return nil, err
		}
		return taivm.NewList(append([]any(nil), elems...)...), nil
	}),

	positional("tuple", 0, 1, func(_ *taivm.VM, args []any) (any, error) {
		if len(args) == 0 {
			return taivm.Tuple{}, nil
		}
		elems, err := taivm.Elements(args[0])
		if err != nil {
			return nil, err
		}
		return taivm.Tuple(append([]any(nil), elems...)), nil
	}),

	native("dict", func(_ *taivm.VM, args []any, kwargs taivm.KwArgs) (any, error) {
		if err := taivm.CheckArgs("dict", args, 0, 1); err != nil {
			return nil, err
		}
		d := taivm.NewDict()
		if len(args) == 1 {
			if src, ok := args[0].(*taivm.Dict); ok {
				d = src.Copy()
			} else {
				elems, err := taivm.Elements(args[0])
				if err != nil {
					return nil, err
				}
				for i, elem := range elems {
					pair, err := taivm.Elements(elem)
					if err != nil || len(pair) != 2 {
						return nil, fmt.Errorf("dictionary update sequence element #%d has wrong length", i)
					}
					if err := d.Set(pair[0], pair[1]); err != nil {
						return nil, err
					}
				}
			}
		}
		for _, kw := range kwargs {
			if err := d.Set(kw.Name, kw.Value); err != nil {
				return nil, err
			}
		}
		return d, nil
	}),

	positional("bytes", 0, 2, func(_ *taivm.VM, args []any) (any, error) {
		if len(args) == 0 {
			return taivm.Bytes(""), nil
		}
		switch v := args[0].(type) {
		case string:
			if len(args) < 2 {
				return nil, fmt.Errorf("string argument without an encoding")
			}
			return taivm.Bytes(v), nil
		case taivm.Bytes:
			return v, nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("negative count")
			}
			if err := taivm.CheckAlloc(v); err != nil {
				return nil, err
			}
			return taivm.Bytes(make([]byte, v)), nil
		}
		elems, err := taivm.Elements(args[0])
		if err != nil {
			return nil, fmt.Errorf("cannot convert '%s' object to bytes", taivm.TypeName(args[0]))
		}
		buf := make([]byte, len(elems))
		for i, elem := range elems {
			n, ok := taivm.ToInt64(elem)
			if !ok {
				return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", taivm.TypeName(elem))
			}
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("bytes must be in range(0, 256)")
			}
			buf[i] = byte(n)
		}
		return taivm.Bytes(buf), nil
	}),

	positional("round", 1, 2, func(_ *taivm.VM, args []any) (any, error) {
		if n, ok := args[0].(int64); ok {
			return n, nil
		}
		f, ok := taivm.ToFloat64(args[0])
		if !ok {
			return nil, fmt.Errorf("type %s doesn't define __round__ method", taivm.TypeName(args[0]))
		}
		if len(args) == 1 || args[1] == nil {
			return taivm.FloatToInt(math.RoundToEven(f))
		}
		digits, ok := taivm.ToInt64(args[1])
		if !ok {
			return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", taivm.TypeName(args[1]))
		}
		scale := math.Pow(10, float64(digits))
		return math.RoundToEven(f*scale) / scale, nil
	}),

	positional("pow", 2, 3, func(_ *taivm.VM, args []any) (any, error) {
		return power(args)
	}),

	positional("chr", 1, 1, func(_ *taivm.VM, args []any) (any, error) {
		n, ok := taivm.ToInt64(args[0])
		if !ok {
			return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", taivm.TypeName(args[0]))
		}
		if n < 0 || n > utf8.MaxRune {
			return nil, fmt.Errorf("chr() arg not in range(0x110000)")
		}
		return string(rune(n)), nil
	}),

	positional("ord", 1, 1, func(_ *taivm.VM, args []any) (any, error) {
		var s string
		switch v := args[0].(type) {
		case string:
			s = v
			if utf8.RuneCountInString(s) == 1 {
				r, _ := utf8.DecodeRuneInString(s)
				return int64(r), nil
			}
			return nil, fmt.Errorf("ord() expected a character, but string of length %d found", utf8.RuneCountInString(s))
		case taivm.Bytes:
			if len(v) == 1 {
				return int64(v[0]), nil
			}
			return nil, fmt.Errorf("ord() expected a character, but string of length %d found", len(v))
		}
		return nil, fmt.Errorf("ord() expected string of length 1, but %s found", taivm.TypeName(args[0]))
	}),

	positional("divmod", 2, 2, func(_ *taivm.VM, args []any) (any, error) {
		q, err := taivm.Binary(taivm.OpFloorDiv, args[0], args[1])
		if err != nil {
			return nil, err
		}
		r, err := taivm.Binary(taivm.OpMod, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return taivm.Tuple{q, r}, nil
	}),

	positional("isinstance", 2, 2, func(_ *taivm.VM, args []any) (any, error) {
		classes := []any{args[1]}
		if t, ok := args[1].(taivm.Tuple); ok {
			classes = t
		}
		name := taivm.TypeName(args[0])
		for _, class := range classes {
			var want string
			switch c := class.(type) {
			case taivm.Class:
				want = string(c)
			case taivm.NativeFunc:
				want = c.Name
			default:
				return nil, fmt.Errorf("isinstance() arg 2 must be a type or tuple of types")
			}
			if want == name || (want == "int" && name == "bool") {
				return true, nil
			}
		}
		return false, nil
	}),
}

func extreme(vm *taivm.VM, name string, args []any, kwargs taivm.KwArgs, max bool) (any, error) {
	if err := kwargs.Only(name, "key", "default"); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s expected at least 1 argument, got 0", name)
	}
	elems := args
	if len(args) == 1 {
		var err error
		elems, err = taivm.Elements(args[0])
		if err != nil {
			return nil, err
		}
	}
	if len(elems) == 0 {
		if def, ok := kwargs.Lookup("default"); ok {
			return def, nil
		}
		return nil, fmt.Errorf("%s() arg is an empty sequence", name)
	}

	key, _ := kwargs.Lookup("key")
	keyOf := func(v any) (any, error) {
		if key == nil {
			return v, nil
		}
		return vm.Call(key, []any{v}, nil)
	}

	best := elems[0]
	bestKey, err := keyOf(best)
	if err != nil {
		return nil, err
	}
	for _, elem := range elems[1:] {
		k, err := keyOf(elem)
		if err != nil {
			return nil, err
		}
		var better bool
		if max {
			better, err = taivm.Less(bestKey, k)
		} else {
			better, err = taivm.Less(k, bestKey)
		}
		if err != nil {
			return nil, err
		}
		if better {
			best, bestKey = elem, k
		}
	}
	return best, nil
}

func power(args []any) (any, error) {
	base, exp := args[0], args[1]
	bi, baseInt := taivm.ToInt64(base)
	ei, expInt := taivm.ToInt64(exp)

	if len(args) == 3 {
		mod, modInt := taivm.ToInt64(args[2])
		if !baseInt || !expInt || !modInt {
			return nil, fmt.Errorf("pow() 3rd argument not allowed unless all arguments are integers")
		}
		if mod == 0 {
			return nil, fmt.Errorf("pow() 3rd argument cannot be 0")
		}
		if mod < 0 {
			return nil, fmt.Errorf("pow() negative modulus is not supported")
		}
		if ei < 0 {
			return nil, fmt.Errorf("pow() negative exponent with modulus is not supported")
		}
		result := int64(1) % mod
		b := ((bi % mod) + mod) % mod
		for e := ei; e > 0; e >>= 1 {
			if e&1 == 1 {
				result = mulMod(result, b, mod)
			}
			b = mulMod(b, b, mod)
		}
		return result, nil
	}

	if baseInt && expInt && ei >= 0 {
		result := int64(1)
		b := bi
		for e := ei; e > 0; e >>= 1 {
			var err error
			if e&1 == 1 {
				if result, err = taivm.MulInt(result, b); err != nil {
					return nil, err
				}
			}
			if e > 1 {
				if b, err = taivm.MulInt(b, b); err != nil {
					return nil, err
				}
			}
		}
		return result, nil
	}

	bf, ok1 := taivm.ToFloat64(base)
	ef, ok2 := taivm.ToFloat64(exp)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("unsupported operand type(s) for pow(): '%s' and '%s'", taivm.TypeName(base), taivm.TypeName(exp))
	}
	if bf == 0 && ef < 0 {
		return nil, fmt.Errorf("0.0 cannot be raised to a negative power")
	}
	return math.Pow(bf, ef), nil
}

func mulMod(a, b, mod int64) int64 {
	var result int64
	a %= mod
	for b > 0 {
		if b&1 == 1 {
			result = (result + a) % mod
		}
		a = (a * 2) % mod
		b >>= 1
	}
	return result
}

func parseInt(s string, base int) (any, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if base == 0 || base == 16 || base == 8 || base == 2 {
		lower := strings.ToLower(strings.TrimLeft(trimmed, "+-"))
		sign := trimmed[:len(trimmed)-len(strings.TrimLeft(trimmed, "+-"))]
		for prefix, b := range map[string]int{"0x": 16, "0o": 8, "0b": 2} {
			if strings.HasPrefix(lower, prefix) && (base == 0 || base == b) {
				trimmed = sign + lower[2:]
				base = b
				break
			}
		}
		if base == 0 {
			base = 10
		}
	}
	if base < 2 || base > 36 {
		return nil, fmt.Errorf("int() base must be >= 2 and <= 36, or 0")
	}
	n, err := strconv.ParseInt(trimmed, base, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid literal for int() with base %d: %s", base, quote(s))
	}
	return n, nil
}

func quote(s string) string {
	r, err := taivm.Repr(s)
	if err != nil {
		return s
	}
	return r
}

func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}
