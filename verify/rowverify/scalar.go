package rowverify

import (
	"bytes"
	"cmp"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/cockroachdb/errors"
)

// valuer is implemented by the typed arrow arrays.
type valuer[T any] interface {
	arrow.Array
	Value(int) T
}

// compareFn orders row i against row j of the same array.
type compareFn func(i, j int) int

// equalFn compares row i of one array against row j of another.
type equalFn func(i, j int) bool

func orderedBy[T cmp.Ordered, A valuer[T]](a A) compareFn {
	return func(i, j int) int {
		return cmp.Compare(a.Value(i), a.Value(j))
	}
}

func orderedWith[T any, A valuer[T]](a A, c func(x, y T) int) compareFn {
	return func(i, j int) int {
		return c(a.Value(i), a.Value(j))
	}
}

func compareBool(x, y bool) int {
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	}
	return 1
}

// compareFloat16 and the wider float comparators order floats which compare
// as equal but differ in bits (signed zeros, NaN payloads) by bit pattern,
// matching bitwise equality.
func compareFloat16(x, y float16.Num) int {
	if c := cmp.Compare(x.Float32(), y.Float32()); c != 0 {
		return c
	}
	return cmp.Compare(x.Uint16(), y.Uint16())
}

func compareFloat32(x, y float32) int {
	if c := cmp.Compare(x, y); c != 0 {
		return c
	}
	return cmp.Compare(math.Float32bits(x), math.Float32bits(y))
}

func compareFloat64(x, y float64) int {
	if c := cmp.Compare(x, y); c != 0 {
		return c
	}
	return cmp.Compare(math.Float64bits(x), math.Float64bits(y))
}

// nullsLast wraps a comparator so nulls form a single group ordered after
// every value.
func nullsLast(arr arrow.Array, c compareFn) compareFn {
	if arr.NullN() == 0 {
		return c
	}
	return func(i, j int) int {
		iNull, jNull := arr.IsNull(i), arr.IsNull(j)
		switch {
		case iNull && jNull:
			return 0
		case iNull:
			return 1
		case jNull:
			return -1
		}
		return c(i, j)
	}
}

// newOrdering returns a comparator over the rows of a scalar array. Nulls sort
// last.
func newOrdering(arr arrow.Array) (compareFn, error) {
	var c compareFn
	switch arr := arr.(type) {
	case *array.Null:
		c = func(i, j int) int { return 0 }
	case *array.Boolean:
		c = orderedWith[bool](arr, compareBool)
	case *array.Int8:
		c = orderedBy[int8](arr)
	case *array.Int16:
		c = orderedBy[int16](arr)
	case *array.Int32:
		c = orderedBy[int32](arr)
	case *array.Int64:
		c = orderedBy[int64](arr)
	case *array.Uint8:
		c = orderedBy[uint8](arr)
	case *array.Uint16:
		c = orderedBy[uint16](arr)
	case *array.Uint32:
		c = orderedBy[uint32](arr)
	case *array.Uint64:
		c = orderedBy[uint64](arr)
	case *array.Float16:
		c = orderedWith[float16.Num](arr, compareFloat16)
	case *array.Float32:
		c = orderedWith[float32](arr, compareFloat32)
	case *array.Float64:
		c = orderedWith[float64](arr, compareFloat64)
	case *array.String:
		c = orderedBy[string](arr)
	case *array.LargeString:
		c = orderedBy[string](arr)
	case *array.StringView:
		c = orderedBy[string](arr)
	case *array.Binary:
		c = orderedWith[[]byte](arr, bytes.Compare)
	case *array.LargeBinary:
		c = orderedWith[[]byte](arr, bytes.Compare)
	case *array.BinaryView:
		c = orderedWith[[]byte](arr, bytes.Compare)
	case *array.FixedSizeBinary:
		c = orderedWith[[]byte](arr, bytes.Compare)
	case *array.Date32:
		c = orderedBy[arrow.Date32](arr)
	case *array.Date64:
		c = orderedBy[arrow.Date64](arr)
	case *array.Time32:
		c = orderedBy[arrow.Time32](arr)
	case *array.Time64:
		c = orderedBy[arrow.Time64](arr)
	case *array.Timestamp:
		c = orderedBy[arrow.Timestamp](arr)
	case *array.Duration:
		c = orderedBy[arrow.Duration](arr)
	case *array.Decimal32:
		c = orderedWith[decimal.Decimal32](arr, decimal.Decimal32.Cmp)
	case *array.Decimal64:
		c = orderedWith[decimal.Decimal64](arr, decimal.Decimal64.Cmp)
	case *array.Decimal128:
		c = orderedWith[decimal.Decimal128](arr, decimal.Decimal128.Cmp)
	case *array.Decimal256:
		c = orderedWith[decimal.Decimal256](arr, decimal.Decimal256.Cmp)
	case *array.Dictionary:
		valueOrder, err := newOrdering(arr.Dictionary())
		if err != nil {
			return nil, err
		}
		c = func(i, j int) int {
			return valueOrder(arr.GetValueIndex(i), arr.GetValueIndex(j))
		}
	default:
		return nil, errors.Newf("values of type %s cannot be ordered", arr.DataType())
	}
	return nullsLast(arr, c), nil
}

func equalWith[T any, A valuer[T]](a A, b arrow.Array, eq func(x, y T) bool) (equalFn, error) {
	other, ok := b.(A)
	if !ok {
		return nil, errors.AssertionFailedf("cannot compare %T with %T", a, b)
	}
	return func(i, j int) bool {
		return eq(a.Value(i), other.Value(j))
	}, nil
}

func equalValues[T comparable, A valuer[T]](a A, b arrow.Array) (equalFn, error) {
	return equalWith[T](a, b, func(x, y T) bool { return x == y })
}

func float32BitsEqual(x, y float32) bool {
	return math.Float32bits(x) == math.Float32bits(y)
}

func float64BitsEqual(x, y float64) bool {
	return math.Float64bits(x) == math.Float64bits(y)
}

func float16BitsEqual(x, y float16.Num) bool {
	return x.Uint16() == y.Uint16()
}

// nullAware wraps an equality function so two positions are equal iff both
// are null or both hold equal values.
func nullAware(a, b arrow.Array, eq equalFn) equalFn {
	return func(i, j int) bool {
		aNull, bNull := a.IsNull(i), b.IsNull(j)
		if aNull || bNull {
			return aNull && bNull
		}
		return eq(i, j)
	}
}

// newScalarEquality returns an exact value-and-null equality between rows of
// two scalar arrays of the same type. Floating point values are compared by
// their bit patterns.
func newScalarEquality(a, b arrow.Array) (equalFn, error) {
	if !arrow.TypeEqual(a.DataType(), b.DataType()) {
		return nil, errors.AssertionFailedf("cannot compare %s with %s", a.DataType(), b.DataType())
	}
	var eq equalFn
	var err error
	switch a := a.(type) {
	case *array.Null:
		eq = func(i, j int) bool { return true }
	case *array.Boolean:
		eq, err = equalValues[bool](a, b)
	case *array.Int8:
		eq, err = equalValues[int8](a, b)
	case *array.Int16:
		eq, err = equalValues[int16](a, b)
	case *array.Int32:
		eq, err = equalValues[int32](a, b)
	case *array.Int64:
		eq, err = equalValues[int64](a, b)
	case *array.Uint8:
		eq, err = equalValues[uint8](a, b)
	case *array.Uint16:
		eq, err = equalValues[uint16](a, b)
	case *array.Uint32:
		eq, err = equalValues[uint32](a, b)
	case *array.Uint64:
		eq, err = equalValues[uint64](a, b)
	case *array.Float16:
		eq, err = equalWith[float16.Num](a, b, float16BitsEqual)
	case *array.Float32:
		eq, err = equalWith[float32](a, b, float32BitsEqual)
	case *array.Float64:
		eq, err = equalWith[float64](a, b, float64BitsEqual)
	case *array.String:
		eq, err = equalValues[string](a, b)
	case *array.LargeString:
		eq, err = equalValues[string](a, b)
	case *array.StringView:
		eq, err = equalValues[string](a, b)
	case *array.Binary:
		eq, err = equalWith[[]byte](a, b, bytes.Equal)
	case *array.LargeBinary:
		eq, err = equalWith[[]byte](a, b, bytes.Equal)
	case *array.BinaryView:
		eq, err = equalWith[[]byte](a, b, bytes.Equal)
	case *array.FixedSizeBinary:
		eq, err = equalWith[[]byte](a, b, bytes.Equal)
	case *array.Date32:
		eq, err = equalValues[arrow.Date32](a, b)
	case *array.Date64:
		eq, err = equalValues[arrow.Date64](a, b)
	case *array.Time32:
		eq, err = equalValues[arrow.Time32](a, b)
	case *array.Time64:
		eq, err = equalValues[arrow.Time64](a, b)
	case *array.Timestamp:
		eq, err = equalValues[arrow.Timestamp](a, b)
	case *array.Duration:
		eq, err = equalValues[arrow.Duration](a, b)
	case *array.Decimal32:
		eq, err = equalValues[decimal.Decimal32](a, b)
	case *array.Decimal64:
		eq, err = equalValues[decimal.Decimal64](a, b)
	case *array.Decimal128:
		eq, err = equalValues[decimal.Decimal128](a, b)
	case *array.Decimal256:
		eq, err = equalValues[decimal.Decimal256](a, b)
	case *array.Dictionary:
		other := b.(*array.Dictionary)
		valuesEq, err := newScalarEquality(a.Dictionary(), other.Dictionary())
		if err != nil {
			return nil, err
		}
		eq = func(i, j int) bool {
			return valuesEq(a.GetValueIndex(i), other.GetValueIndex(j))
		}
	default:
		// Anything else is compared through arrow's own equality, one value at
		// a time.
		eq = func(i, j int) bool {
			return array.SliceEqual(a, int64(i), int64(i+1), b, int64(j), int64(j+1))
		}
	}
	if err != nil {
		return nil, err
	}
	return nullAware(a, b, eq), nil
}
