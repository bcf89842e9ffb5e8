package taivm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var ErrReprTooDeep = errors.New("object too deeply nested to represent")

const maxReprDepth = 64

// Repr renders v the way the interactive interpreter echoes it.
func Repr(v any) (string, error) {
	var b strings.Builder
	r := &reprState{
		b:      &b,
		active: make(map[any]bool),
	}
	if err := r.write(v, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Str renders v the way print shows it.
func Str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	s, err := Repr(v)
	if err != nil {
		return fmt.Sprintf("<%s object>", TypeName(v))
	}
	return s
}

type reprState struct {
	b      *strings.Builder
	active map[any]bool
}

func (r *reprState) write(v any, depth int) error {
	if depth > maxReprDepth {
		return ErrReprTooDeep
	}
	b := r.b
	switch v := v.(type) {

	case nil:
		b.WriteString("None")
	case bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case float64:
		b.WriteString(FormatFloat(v))
	case string:
		b.WriteString(quoteString(v))
	case Bytes:
		b.WriteString(quoteBytes(v))

	case *List:
		if r.active[v] {
			b.WriteString("[...]")
			return nil
		}
		r.active[v] = true
		defer delete(r.active, v)
		b.WriteByte('[')
		if err := r.writeElems(v.Elements, depth); err != nil {
			return err
		}
		b.WriteByte(']')

	case Tuple:
		b.WriteByte('(')
		if err := r.writeElems(v, depth); err != nil {
			return err
		}
		if len(v) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')

	case *Dict:
		if r.active[v] {
			b.WriteString("{...}")
			return nil
		}
		r.active[v] = true
		defer delete(r.active, v)
		b.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := r.write(k, depth+1); err != nil {
				return err
			}
			b.WriteString(": ")
			if err := r.write(v.values[i], depth+1); err != nil {
				return err
			}
		}
		b.WriteByte('}')

	case *Range:
		if v.Step == 1 {
			fmt.Fprintf(b, "range(%d, %d)", v.Start, v.Stop)
		} else {
			fmt.Fprintf(b, "range(%d, %d, %d)", v.Start, v.Stop, v.Step)
		}
	case *Closure:
		fmt.Fprintf(b, "<function %s>", v.Fun.Name)
	case NativeFunc:
		fmt.Fprintf(b, "<built-in function %s>", v.Name)
	case *BoundMethod:
		fmt.Fprintf(b, "<built-in method %s of %s object>", v.Method.Name, TypeName(v.Self))
	case Class:
		fmt.Fprintf(b, "<class '%s'>", string(v))
	case *Iterator:
		b.WriteString("<iterator object>")

	default:
		return fmt.Errorf("cannot represent value of type %T", v)
	}
	return nil
}

func (r *reprState) writeElems(elems []any, depth int) error {
	for i, elem := range elems {
		if i > 0 {
			r.b.WriteString(", ")
		}
		if err := r.write(elem, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// FormatFloat uses the shortest round-trip digits, switching to exponent form outside [1e-4, 1e16).
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	idx := strings.LastIndexByte(e, 'e')
	exp, _ := strconv.Atoi(e[idx+1:])
	if exp < -4 || exp >= 16 {
		mantissa, expPart := e[:idx], e[idx+1:]
		sign := expPart[0]
		digits := strings.TrimLeft(expPart[1:], "0")
		if len(digits) < 2 {
			digits = strings.Repeat("0", 2-len(digits)) + digits
		}
		return mantissa + "e" + string(sign) + digits
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func quoteString(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case !unicode.IsPrint(r):
			if r <= 0xffff {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

func quoteBytes(s Bytes) string {
	quote := byte('\'')
	if strings.IndexByte(string(s), '\'') >= 0 && strings.IndexByte(string(s), '"') < 0 {
		quote = '"'
	}
	var b strings.Builder
	b.WriteString("b")
	b.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
