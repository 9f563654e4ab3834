// Package numeric holds the value policy shared by every kernel: what counts
// as a structural nonzero, how complex values are reduced to magnitudes and how
// values move between precisions.
package numeric

import (
	"math"
	"math/cmplx"
)

// Value is the set of element types a sparse matrix can store.
type Value interface {
	float32 | float64 | complex64 | complex128
}

// Index is the set of column/row index types. The narrow and wide variants
// are chosen independently of the value type.
type Index interface {
	int32 | int64
}

// Accumulator is the precision mixed-precision arithmetic runs in: float64
// for real operands, complex128 as soon as one operand is complex.
type Accumulator interface {
	float64 | complex128
}

// Zero returns the additive identity of V.
func Zero[V Value]() V {
	var z V
	return z
}

// IsNonzero reports whether v is a structural nonzero. For complex values this
// is equivalent to a nonzero magnitude.
func IsNonzero[V Value](v V) bool {
	return v != Zero[V]()
}

// IsComplex reports whether V is a complex type.
func IsComplex[V Value]() bool {
	var z V
	switch any(z).(type) {
	case complex64, complex128:
		return true
	}
	return false
}

// AnyComplex reports whether an operation over A, B and C needs complex
// arithmetic.
func AnyComplex[A, B, C Value]() bool {
	return IsComplex[A]() || IsComplex[B]() || IsComplex[C]()
}

// Abs returns |v| in V. Complex values keep their type and carry the magnitude
// in the real part.
func Abs[V Value](v V) V {
	switch x := any(v).(type) {
	case float32:
		return any(float32(math.Abs(float64(x)))).(V)
	case float64:
		return any(math.Abs(x)).(V)
	case complex64:
		return any(complex(float32(cmplx.Abs(complex128(x))), 0)).(V)
	case complex128:
		return any(complex(cmplx.Abs(x), 0)).(V)
	}
	return v
}

// Convert moves v into the precision of To. Real values become complex values
// with a zero imaginary part; complex values converted to a real type keep
// only their real part.
func Convert[To, From Value](v From) To {
	switch x := any(v).(type) {
	case float32:
		return FromComplex[To](complex(float64(x), 0))
	case float64:
		return FromComplex[To](complex(x, 0))
	case complex64:
		return FromComplex[To](complex128(x))
	case complex128:
		return FromComplex[To](x)
	}
	panic("numeric: unsupported value type")
}

// FromComplex narrows a complex128 accumulator into V.
func FromComplex[V Value](c complex128) V {
	var out V
	switch p := any(&out).(type) {
	case *float32:
		*p = float32(real(c))
	case *float64:
		*p = real(c)
	case *complex64:
		*p = complex64(c)
	case *complex128:
		*p = c
	}
	return out
}

// ToComplex widens v into a complex128 accumulator.
func ToComplex[V Value](v V) complex128 {
	return Convert[complex128](v)
}

// ToFloat widens the real part of v into a float64 accumulator.
func ToFloat[V Value](v V) float64 {
	switch x := any(v).(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case complex64:
		return float64(real(x))
	case complex128:
		return real(x)
	}
	return 0
}

// ToInt widens an index into int.
func ToInt[I Index](i I) int {
	return int(i)
}
