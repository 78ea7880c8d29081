package rowverify

import (
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// canonicalDecimal is a decimal in its reduced, plain text form, so 1.50 and
// 1.5 are the same value regardless of precision and scale.
type canonicalDecimal string

// opaqueValue holds a value with no natural Go form, rendered by arrow.
type opaqueValue struct {
	Type  string
	Value string
}

var canonicalEqualOpts = []cmp.Option{cmpopts.EquateNaNs()}

// canonicalEqual reports whether two canonical values are deeply equal.
func canonicalEqual(x, y any) bool {
	return cmp.Equal(x, y, canonicalEqualOpts...)
}

func canonicalizeDecimal(s string) (canonicalDecimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return "", errors.Wrapf(err, "error parsing decimal %q", s)
	}
	d.Reduce(d)
	return canonicalDecimal(d.Text('f')), nil
}

// canonicalUint maps unsigned integers onto int64 where they fit, so equal
// integers are equal regardless of signedness.
func canonicalUint(v uint64) any {
	if v > math.MaxInt64 {
		return v
	}
	return int64(v)
}

func decimalScale(arr arrow.Array) int32 {
	return arr.DataType().(arrow.DecimalType).GetScale()
}

// canonicalize converts the value at row i into a form independent of its
// physical layout. Structs and map entries become map[string]any, lists
// become []any and leaves become native Go values. Nulls become nil.
func canonicalize(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch arr := arr.(type) {
	case *array.Struct:
		st := arr.DataType().(*arrow.StructType)
		ret := make(map[string]any, arr.NumField())
		for f := 0; f < arr.NumField(); f++ {
			v, err := canonicalize(arr.Field(f), i)
			if err != nil {
				return nil, err
			}
			ret[st.Field(f).Name] = v
		}
		return ret, nil
	case array.ListLike:
		start, end := arr.ValueOffsets(i)
		values := arr.ListValues()
		ret := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			v, err := canonicalize(values, int(j))
			if err != nil {
				return nil, err
			}
			ret = append(ret, v)
		}
		return ret, nil
	case *array.Dictionary:
		return canonicalize(arr.Dictionary(), arr.GetValueIndex(i))
	case array.ExtensionArray:
		return canonicalize(arr.Storage(), i)

	case *array.Null:
		return nil, nil
	case *array.Boolean:
		return arr.Value(i), nil
	case *array.Int8:
		return int64(arr.Value(i)), nil
	case *array.Int16:
		return int64(arr.Value(i)), nil
	case *array.Int32:
		return int64(arr.Value(i)), nil
	case *array.Int64:
		return arr.Value(i), nil
	case *array.Uint8:
		return canonicalUint(uint64(arr.Value(i))), nil
	case *array.Uint16:
		return canonicalUint(uint64(arr.Value(i))), nil
	case *array.Uint32:
		return canonicalUint(uint64(arr.Value(i))), nil
	case *array.Uint64:
		return canonicalUint(arr.Value(i)), nil
	case *array.Float16:
		return float64(arr.Value(i).Float32()), nil
	case *array.Float32:
		return float64(arr.Value(i)), nil
	case *array.Float64:
		return arr.Value(i), nil
	case *array.String:
		return arr.Value(i), nil
	case *array.LargeString:
		return arr.Value(i), nil
	case *array.StringView:
		return arr.Value(i), nil
	case *array.Binary:
		return append([]byte(nil), arr.Value(i)...), nil
	case *array.LargeBinary:
		return append([]byte(nil), arr.Value(i)...), nil
	case *array.BinaryView:
		return append([]byte(nil), arr.Value(i)...), nil
	case *array.FixedSizeBinary:
		return append([]byte(nil), arr.Value(i)...), nil
	case *array.Date32:
		return arr.Value(i).ToTime(), nil
	case *array.Date64:
		return arr.Value(i).ToTime(), nil
	case *array.Timestamp:
		unit := arr.DataType().(*arrow.TimestampType).Unit
		return arr.Value(i).ToTime(unit), nil
	case *array.Time32:
		unit := arr.DataType().(*arrow.Time32Type).Unit
		return time.Duration(arr.Value(i)) * unit.Multiplier(), nil
	case *array.Time64:
		unit := arr.DataType().(*arrow.Time64Type).Unit
		return time.Duration(arr.Value(i)) * unit.Multiplier(), nil
	case *array.Duration:
		unit := arr.DataType().(*arrow.DurationType).Unit
		return time.Duration(arr.Value(i)) * unit.Multiplier(), nil
	case *array.Decimal32:
		return canonicalizeDecimal(arr.Value(i).ToString(decimalScale(arr)))
	case *array.Decimal64:
		return canonicalizeDecimal(arr.Value(i).ToString(decimalScale(arr)))
	case *array.Decimal128:
		return canonicalizeDecimal(arr.Value(i).ToString(decimalScale(arr)))
	case *array.Decimal256:
		return canonicalizeDecimal(arr.Value(i).ToString(decimalScale(arr)))
	}
	// Unions, intervals and anything else are compared on arrow's rendering of
	// the value along with its type.
	return opaqueValue{Type: arr.DataType().String(), Value: arr.ValueStr(i)}, nil
}
