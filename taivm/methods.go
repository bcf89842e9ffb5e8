package taivm

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

func GetAttr(obj any, name string) (any, error) {
	if table, ok := methods[TypeName(obj)]; ok {
		if fn, ok := table[name]; ok {
			return &BoundMethod{
				Self:   obj,
				Method: fn,
			}, nil
		}
	}
	return nil, fmt.Errorf("'%s' object has no attribute '%s'", TypeName(obj), name)
}

// CheckArgs validates the positional argument count, receiver included for methods.
func CheckArgs(name string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		if min == max {
			return fmt.Errorf("%s() takes exactly %d argument(s) (%d given)", name, min, len(args))
		}
		return fmt.Errorf("%s() takes from %d to %d arguments (%d given)", name, min, max, len(args))
	}
	return nil
}

func method(name string, min, max int, fn func(vm *VM, self any, args []any) (any, error)) NativeFunc {
	return NativeFunc{
		Name: name,
		Func: func(vm *VM, args []any, kwargs KwArgs) (any, error) {
			if err := kwargs.Only(name); err != nil {
				return nil, err
			}
			if err := CheckArgs(name, args[1:], min, max); err != nil {
				return nil, err
			}
			return fn(vm, args[0], args[1:])
		},
	}
}

func argString(fn string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s() argument must be str, not %s", fn, TypeName(v))
	}
	return s, nil
}

// SortElements sorts elems in place with optional key function.
func SortElements(vm *VM, elems []any, key any, reverse bool) error {
	keys := elems
	if key != nil {
		keys = make([]any, len(elems))
		for i, elem := range elems {
			k, err := vm.Call(key, []any{elem}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	slices.SortStableFunc(idx, func(a, b int) int {
		x, y := keys[a], keys[b]
		if reverse {
			x, y = y, x
		}
		lt, err := Less(x, y)
		if err != nil {
			if sortErr == nil {
				sortErr = err
			}
			return 0
		}
		if lt {
			return -1
		}
		gt, err := Less(y, x)
		if err != nil {
			if sortErr == nil {
				sortErr = err
			}
			return 0
		}
		if gt {
			return 1
		}
		return 0
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]any, len(elems))
	for i, j := range idx {
		sorted[i] = elems[j]
	}
	copy(elems, sorted)
	return nil
}

var methods map[string]map[string]NativeFunc

func init() {
	methods = map[string]map[string]NativeFunc{
		"list": listMethods,
		"dict": dictMethods,
		"str":  strMethods,
	}
}

var listMethods = map[string]NativeFunc{

	"append": method("append", 1, 1, func(_ *VM, self any, args []any) (any, error) {
		l := self.(*List)
		l.Elements = append(l.Elements, args[0])
		return nil, nil
	}),

	"extend": method("extend", 1, 1, func(_ *VM, self any, args []any) (any, error) {
		l := self.(*List)
		elems, err := Elements(args[0])
		if err != nil {
			return nil, err
		}
		if err := CheckAlloc(int64(len(l.Elements)) + int64(len(elems))); err != nil {
			return nil, err
		}
		l.Elements = append(l.Elements, elems...)
		return nil, nil
	}),

	"insert": method("insert", 2, 2, func(_ *VM, self any, args []any) (any, error) {
		l := self.(*List)
		i, ok := ToInt64(args[0])
		if !ok {
			return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", TypeName(args[0]))
		}
		n := int64(len(l.Elements))
		if i < 0 {
			i = max(i+n, 0)
		}
		i = min(i, n)
		l.Elements = slices.Insert(l.Elements, int(i), args[1])
		return nil, nil
	}),

	"pop": method("pop", 0, 1, func(_ *VM, self any, args []any) (any, error) {
		l := self.(*List)
		if len(l.Elements) == 0 {
			return nil, fmt.Errorf("pop from empty list")
		}
		i := int64(-1)
		if len(args) > 0 {
			var ok bool
			i, ok = ToInt64(args[0])
			if !ok {
				return nil, fmt.Errorf("'%s' object cannot be interpreted as an integer", TypeName(args[0]))
			}
		}
		idx, err := normalizeIndex(i, len(l.Elements), "pop")
		if err != nil {
			return nil, err
		}
		ret := l.Elements[idx]
		l.Elements = slices.Delete(l.Elements, idx, idx+1)
		return ret, nil
	}),

	"remove": method("remove", 1, 1, func(_ *VM, self any, args []any) (any, error) {
		l := self.(*List)
		for i, elem := range l.Elements {
			if Equal(elem, args[0]) {
				l.Elements = slices.Delete(l.Elements, i, i+1)
				return nil, nil
			}
		}
		return nil, fmt.Errorf("list.remove(x): x not in list")
	}),

	"index": method("index", 1, 1, func(_ *VM, self any, args []any) (any, error) {
		for i, elem := range self.(*List).Elements {
			if Equal(elem, args[0]) {
				return int64(i), nil
			}
		}
		s, _ := Repr(args[0])
		return nil, fmt.Errorf("%s is not in list", s)
	}),

	"count": method("count", 1, 1, func(_ *VM, self any, args []any) (any, error) {
		var n int64
		for _, elem := range self.(*List).Elements {
			if Equal(elem, args[0]) {
				n++
			}
		}
		return n, nil
	}),

	"reverse": method("reverse", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		slices.Reverse(self.(*List).Elements)
		return nil, nil
	}),

	"copy": method("copy", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		return NewList(slices.Clone(self.(*List).Elements)...), nil
	}),

	"clear": method("clear", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		self.(*List).Elements = nil
		return nil, nil
	}),

	"sort": {
		Name: "sort",
		Func: func(vm *VM, args []any, kwargs KwArgs) (any, error) {
			if err := kwargs.Only("sort", "key", "reverse"); err != nil {
				return nil, err
			}
			if err := CheckArgs("sort", args[1:], 0, 0); err != nil {
				return nil, err
			}
			key, _ := kwargs.Lookup("key")
			reverse, _ := kwargs.Lookup("reverse")
			l := args[0].(*List)
			return nil, SortElements(vm, l.Elements, key, Truthy(reverse))
		},
	},
}

var dictMethods = map[string]NativeFunc{

	"get": method("get", 1, 2, func(_ *VM, self any, args []any) (any, error) {
		v, ok, err := self.(*Dict).Get(args[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			if len(args) > 1 {
				return args[1], nil
			}
			return nil, nil
		}
		return v, nil
	}),

	"keys": method("keys", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		return NewList(self.(*Dict).Keys()...), nil
	}),

	"values": method("values", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		return NewList(self.(*Dict).Values()...), nil
	}),

	"items": method("items", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		items := self.(*Dict).Items()
		elems := make([]any, len(items))
		for i, item := range items {
			elems[i] = item
		}
		return NewList(elems...), nil
	}),

	"pop": method("pop", 1, 2, func(_ *VM, self any, args []any) (any, error) {
		v, ok, err := self.(*Dict).Delete(args[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			if len(args) > 1 {
				return args[1], nil
			}
			s, _ := Repr(args[0])
			return nil, fmt.Errorf("%s", s)
		}
		return v, nil
	}),

	"setdefault": method("setdefault", 1, 2, func(_ *VM, self any, args []any) (any, error) {
		d := self.(*Dict)
		v, ok, err := d.Get(args[0])
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
		var def any
		if len(args) > 1 {
			def = args[1]
		}
		return def, d.Set(args[0], def)
	}),

	"update": method("update", 1, 1, func(_ *VM, self any, args []any) (any, error) {
		d := self.(*Dict)
		other, ok := args[0].(*Dict)
		if !ok {
			return nil, fmt.Errorf("'%s' object is not a mapping", TypeName(args[0]))
		}
		for _, item := range other.Items() {
			if err := d.Set(item[0], item[1]); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}),

	"copy": method("copy", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		return self.(*Dict).Copy(), nil
	}),

	"clear": method("clear", 0, 0, func(_ *VM, self any, _ []any) (any, error) {
		self.(*Dict).Clear()
		return nil, nil
	}),
}

func strMethod(name string, min, max int, fn func(s string, args []any) (any, error)) NativeFunc {
	return method(name, min, max, func(_ *VM, self any, args []any) (any, error) {
		return fn(self.(string), args)
	})
}

func optionalChars(fn string, args []any) (string, bool, error) {
	if len(args) == 0 || args[0] == nil {
		return "", false, nil
	}
	s, err := argString(fn, args[0])
	return s, true, err
}

var strMethods = map[string]NativeFunc{

	"upper": strMethod("upper", 0, 0, func(s string, _ []any) (any, error) {
		return strings.ToUpper(s), nil
	}),

	"lower": strMethod("lower", 0, 0, func(s string, _ []any) (any, error) {
		return strings.ToLower(s), nil
	}),

	"title": strMethod("title", 0, 0, func(s string, _ []any) (any, error) {
		prev := ' '
		return strings.Map(func(r rune) rune {
			out := unicode.ToUpper(r)
			if unicode.IsLetter(prev) {
				out = unicode.ToLower(r)
			}
			prev = r
			return out
		}, s), nil
	}),

	"capitalize": strMethod("capitalize", 0, 0, func(s string, _ []any) (any, error) {
		if s == "" {
			return s, nil
		}
		runes := []rune(strings.ToLower(s))
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes), nil
	}),

	"strip": strMethod("strip", 0, 1, func(s string, args []any) (any, error) {
		chars, ok, err := optionalChars("strip", args)
		if err != nil {
			return nil, err
		}
		if !ok {
			return strings.TrimSpace(s), nil
		}
		return strings.Trim(s, chars), nil
	}),

	"lstrip": strMethod("lstrip", 0, 1, func(s string, args []any) (any, error) {
		chars, ok, err := optionalChars("lstrip", args)
		if err != nil {
			return nil, err
		}
		if !ok {
			return strings.TrimLeftFunc(s, unicode.IsSpace), nil
		}
		return strings.TrimLeft(s, chars), nil
	}),

	"rstrip": strMethod("rstrip", 0, 1, func(s string, args []any) (any, error) {
		chars, ok, err := optionalChars("rstrip", args)
		if err != nil {
			return nil, err
		}
		if !ok {
			return strings.TrimRightFunc(s, unicode.IsSpace), nil
		}
		return strings.TrimRight(s, chars), nil
	}),

	"split": strMethod("split", 0, 1, func(s string, args []any) (any, error) {
		var parts []string
		sep, ok, err := optionalChars("split", args)
		if err != nil {
			return nil, err
		}
		if !ok {
			parts = strings.Fields(s)
		} else {
			if sep == "" {
				return nil, fmt.Errorf("empty separator")
			}
			parts = strings.Split(s, sep)
		}
		elems := make([]any, len(parts))
		for i, part := range parts {
			elems[i] = part
		}
		return NewList(elems...), nil
	}),

	"join": strMethod("join", 1, 1, func(s string, args []any) (any, error) {
		elems, err := Elements(args[0])
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(elems))
		var total int64
		for i, elem := range elems {
			str, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("sequence item %d: expected str instance, %s found", i, TypeName(elem))
			}
			parts[i] = str
			total += int64(len(str)) + int64(len(s))
		}
		if err := CheckAlloc(total); err != nil {
			return nil, err
		}
		return strings.Join(parts, s), nil
	}),

	"replace": strMethod("replace", 2, 2, func(s string, args []any) (any, error) {
		old, err := argString("replace", args[0])
		if err != nil {
			return nil, err
		}
		repl, err := argString("replace", args[1])
		if err != nil {
			return nil, err
		}
		n := int64(strings.Count(s, old))
		grow, err := allocProduct(n, int64(max(len(repl)-len(old), 0)))
		if err != nil {
			return nil, err
		}
		if err := CheckAlloc(int64(len(s)) + grow); err != nil {
			return nil, err
		}
		return strings.ReplaceAll(s, old, repl), nil
	}),

	"startswith": strMethod("startswith", 1, 1, func(s string, args []any) (any, error) {
		prefix, err := argString("startswith", args[0])
		if err != nil {
			return nil, err
		}
		return strings.HasPrefix(s, prefix), nil
	}),

	"endswith": strMethod("endswith", 1, 1, func(s string, args []any) (any, error) {
		suffix, err := argString("endswith", args[0])
		if err != nil {
			return nil, err
		}
		return strings.HasSuffix(s, suffix), nil
	}),

	"find": strMethod("find", 1, 1, func(s string, args []any) (any, error) {
		sub, err := argString("find", args[0])
		if err != nil {
			return nil, err
		}
		idx := strings.Index(s, sub)
		if idx < 0 {
			return int64(-1), nil
		}
		return int64(len([]rune(s[:idx]))), nil
	}),

	"count": strMethod("count", 1, 1, func(s string, args []any) (any, error) {
		sub, err := argString("count", args[0])
		if err != nil {
			return nil, err
		}
		return int64(strings.Count(s, sub)), nil
	}),

	"isdigit": strMethod("isdigit", 0, 0, func(s string, _ []any) (any, error) {
		return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0, nil
	}),

	"isalpha": strMethod("isalpha", 0, 0, func(s string, _ []any) (any, error) {
		return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0, nil
	}),

	"format": {
		Name: "format",
		Func: func(_ *VM, args []any, kwargs KwArgs) (any, error) {
			return formatBraces(args[0].(string), args[1:], kwargs)
		},
	},
}

// formatBraces implements str.format for {}, {n} and {name} fields without format specs.
func formatBraces(format string, args []any, kwargs KwArgs) (string, error) {
	var b strings.Builder
	auto := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("single '{' encountered in format string")
			}
			field := format[i+1 : i+end]
			conv := ""
			if idx := strings.IndexAny(field, "!:"); idx >= 0 {
				conv = field[idx:]
				field = field[:idx]
			}
			var value any
			switch {
			case field == "":
				if auto >= len(args) {
					return "", fmt.Errorf("replacement index %d out of range for positional args tuple", auto)
				}
				value = args[auto]
				auto++
			case field[0] >= '0' && field[0] <= '9':
				var n int
				if _, err := fmt.Sscanf(field, "%d", &n); err != nil || n >= len(args) {
					return "", fmt.Errorf("replacement index %s out of range for positional args tuple", field)
				}
				value = args[n]
			default:
				v, ok := kwargs.Lookup(field)
				if !ok {
					return "", fmt.Errorf("'%s'", field)
				}
				value = v
			}
			if conv == "!r" {
				s, err := Repr(value)
				if err != nil {
					return "", err
				}
				b.WriteString(s)
			} else {
				b.WriteString(Str(value))
			}
			if err := CheckAlloc(int64(b.Len())); err != nil {
				return "", err
			}
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
