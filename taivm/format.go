package taivm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// formatPercent implements the printf-style str % args operator.
func formatPercent(format string, arg any) (string, error) {
	var args []any
	if t, ok := arg.(Tuple); ok {
		args = t
	} else {
		args = []any{arg}
	}
	var mapping *Dict
	if d, ok := arg.(*Dict); ok {
		mapping = d
	}

	var b strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", errors.New("incomplete format")
		}

		var value any
		haveValue := false
		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 || mapping == nil {
				return "", errors.New("format requires a mapping")
			}
			key := format[i+1 : i+end]
			v, ok, err := mapping.Get(key)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", fmt.Errorf("%s", quoteString(key))
			}
			value = v
			haveValue = true
			i += end + 1
		}

		// flags, width, precision
		start := i
		for i < len(format) && strings.IndexByte("-+ 0#.0123456789", format[i]) >= 0 {
			i++
		}
		if i >= len(format) {
			return "", errors.New("incomplete format")
		}
		spec := format[start:i]
		verb := format[i]
		if err := checkSpec(spec); err != nil {
			return "", err
		}

		if verb == '%' {
			b.WriteByte('%')
			continue
		}
		if !haveValue {
			if next >= len(args) {
				return "", errors.New("not enough arguments for format string")
			}
			value = args[next]
			next++
		}

		switch verb {
		case 's':
			b.WriteString(pad(spec, Str(value)))
		case 'r':
			s, err := Repr(value)
			if err != nil {
				return "", err
			}
			b.WriteString(pad(spec, s))
		case 'd', 'i':
			n, ok := ToInt64(value)
			if !ok {
				f, isFloat := value.(float64)
				if !isFloat {
					return "", fmt.Errorf("%%%c format: a real number is required, not %s", verb, TypeName(value))
				}
				var err error
				if n, err = FloatToInt(f); err != nil {
					return "", err
				}
			}
			b.WriteString(fmt.Sprintf("%"+spec+"d", n))
		case 'x', 'X', 'o':
			n, ok := ToInt64(value)
			if !ok {
				return "", fmt.Errorf("%%%c format: an integer is required, not %s", verb, TypeName(value))
			}
			b.WriteString(fmt.Sprintf("%"+spec+string(verb), n))
		case 'f', 'F', 'e', 'E', 'g', 'G':
			f, ok := ToFloat64(value)
			if !ok {
				return "", fmt.Errorf("must be real number, not %s", TypeName(value))
			}
			if !strings.Contains(spec, ".") && verb != 'g' && verb != 'G' {
				spec += ".6"
			}
			b.WriteString(fmt.Sprintf("%"+spec+string(verb), f))
		case 'c':
			switch v := value.(type) {
			case string:
				b.WriteString(v)
			default:
				n, ok := ToInt64(v)
				if !ok {
					return "", errors.New("%c requires int or char")
				}
				b.WriteRune(rune(n))
			}
		default:
			return "", fmt.Errorf("unsupported format character '%c'", verb)
		}
		if err := CheckAlloc(int64(b.Len())); err != nil {
			return "", err
		}
	}

	if mapping == nil && next < len(args) {
		return "", errors.New("not all arguments converted during string formatting")
	}
	return b.String(), nil
}

// checkSpec rejects widths and precisions that would exceed MaxAlloc.
func checkSpec(spec string) error {
	for field := range strings.FieldsFuncSeq(spec, func(r rune) bool {
		return r < '0' || r > '9'
	}) {
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return ErrAllocLimit
		}
		if err := CheckAlloc(n); err != nil {
			return err
		}
	}
	return nil
}

func pad(spec string, s string) string {
	if spec == "" {
		return s
	}
	left := strings.HasPrefix(spec, "-")
	spec = strings.TrimLeft(spec, "-+ 0#")
	if dot := strings.IndexByte(spec, '.'); dot >= 0 {
		if prec, err := strconv.Atoi(spec[dot+1:]); err == nil && prec < len(s) {
			s = s[:prec]
		}
		spec = spec[:dot]
	}
	width, err := strconv.Atoi(spec)
	if err != nil || width <= len(s) {
		return s
	}
	if left {
		return s + strings.Repeat(" ", width-len(s))
	}
	return strings.Repeat(" ", width-len(s)) + s
}
