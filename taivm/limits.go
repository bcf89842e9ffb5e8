package taivm

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// MaxAlloc caps the size of a single value built by an operation:
// bytes for str and bytes, elements for list and tuple.
const MaxAlloc = 1 << 24

var (
	ErrAllocLimit       = errors.New("result too large")
	ErrOverflow         = errors.New("integer overflow")
	ErrInstructionLimit = errors.New("instruction limit exceeded")
)

// CheckAlloc reports ErrAllocLimit when n units exceed MaxAlloc.
func CheckAlloc(n int64) error {
	if n < 0 || n > MaxAlloc {
		return ErrAllocLimit
	}
	return nil
}

// allocProduct returns size*count, or ErrAllocLimit when it exceeds MaxAlloc.
func allocProduct(size, count int64) (int64, error) {
	if size == 0 || count <= 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(uint64(size), uint64(count))
	if hi != 0 || lo > MaxAlloc {
		return 0, ErrAllocLimit
	}
	return int64(lo), nil
}

func AddInt(a, b int64) (int64, error) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, ErrOverflow
	}
	return c, nil
}

func SubInt(a, b int64) (int64, error) {
	c := a - b
	if (c < a) != (b > 0) {
		return 0, ErrOverflow
	}
	return c, nil
}

func MulInt(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if (a == -1 && b == math.MinInt64) ||
		(b == -1 && a == math.MinInt64) ||
		c/b != a {
		return 0, ErrOverflow
	}
	return c, nil
}

func NegInt(a int64) (int64, error) {
	if a == math.MinInt64 {
		return 0, ErrOverflow
	}
	return -a, nil
}

// FloatToInt truncates f, failing when the result does not fit an int.
func FloatToInt(f float64) (int64, error) {
	switch {
	case math.IsInf(f, 0):
		return 0, errors.New("cannot convert float infinity to integer")
	case math.IsNaN(f):
		return 0, errors.New("cannot convert float NaN to integer")
	}
	f = math.Trunc(f)
	// 2^63 is exactly representable, MaxInt64 is not
	if f >= math.Exp2(63) || f < -math.Exp2(63) {
		return 0, fmt.Errorf("%w: float %g out of range", ErrOverflow, f)
	}
	return int64(f), nil
}
