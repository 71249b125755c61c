package countydata

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// *********** Conversions ***********

func toFloat(x any) (any, bool) {
	switch xx := x.(type) {
	case float64:
		return xx, true
	case *float64:
		if xx == nil {
			return math.NaN(), true
		}

		return *xx, true
	case nil:
		return math.NaN(), true
	case string:
		s := strings.TrimSpace(xx)
		if s == "" {
			return math.NaN(), true
		}

		if f, e := strconv.ParseFloat(s, 64); e == nil {
			return f, true
		}

		return nil, false
	case []byte:
		return toFloat(string(xx))
	}

	xv := reflect.ValueOf(x)
	if xv.Kind() == reflect.Pointer {
		if xv.IsNil() {
			return math.NaN(), true
		}

		return toFloat(xv.Elem().Interface())
	}

	if xv.CanFloat() {
		return xv.Float(), true
	}

	if xv.CanInt() {
		return float64(xv.Int()), true
	}

	if xv.CanUint() {
		return float64(xv.Uint()), true
	}

	return nil, false
}

func toInt(x any) (any, bool) {
	switch xx := x.(type) {
	case int:
		return xx, true
	case string:
		if i, e := strconv.ParseInt(strings.TrimSpace(xx), 10, 64); e == nil {
			return int(i), true
		}

		// accept "2019.0"
		if f, e := strconv.ParseFloat(strings.TrimSpace(xx), 64); e == nil && f == math.Trunc(f) {
			return int(f), true
		}

		return nil, false
	case []byte:
		return toInt(string(xx))
	case nil:
		return nil, false
	}

	xv := reflect.ValueOf(x)
	if xv.Kind() == reflect.Pointer {
		if xv.IsNil() {
			return nil, false
		}

		return toInt(xv.Elem().Interface())
	}

	if xv.CanInt() {
		return int(xv.Int()), true
	}

	if xv.CanUint() {
		return int(xv.Uint()), true
	}

	if xv.CanFloat() {
		f := xv.Float()
		if math.IsNaN(f) || f != math.Trunc(f) {
			return nil, false
		}

		return int(f), true
	}

	return nil, false
}

func toString(x any) (any, bool) {
	switch xx := x.(type) {
	case string:
		return xx, true
	case *string:
		if xx == nil {
			return "", true
		}

		return *xx, true
	case []byte:
		return string(xx), true
	case nil:
		return "", true
	case float64:
		return FormatFloat(xx), true
	case int:
		return strconv.Itoa(xx), true
	}

	xv := reflect.ValueOf(x)
	if xv.Kind() == reflect.Pointer {
		if xv.IsNil() {
			return "", true
		}

		return toString(xv.Elem().Interface())
	}

	if xv.CanInt() {
		return strconv.FormatInt(xv.Int(), 10), true
	}

	if xv.CanFloat() {
		return FormatFloat(xv.Float()), true
	}

	return fmt.Sprintf("%v", x), true
}

func toDataType(x any, dt DataTypes) (any, bool) {
	switch dt {
	case DTfloat:
		return toFloat(x)
	case DTint:
		return toInt(x)
	case DTstring:
		return toString(x)
	}

	return nil, false
}

// FormatFloat renders x the way a dataframe writes a float column: shortest representation,
// with integral values keeping a trailing ".0". Null (NaN) renders as "".
func FormatFloat(x float64) string {
	if math.IsNaN(x) {
		return ""
	}

	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !math.IsInf(x, 0) {
		s += ".0"
	}

	return s
}

func toSlc(xIn any, target DataTypes) (any, bool) {
	switch target {
	case DTfloat:
		if x, ok := xIn.([]float64); ok {
			return x, true
		}
	case DTint:
		if x, ok := xIn.([]int); ok {
			return x, true
		}
	case DTstring:
		if x, ok := xIn.([]string); ok {
			return x, true
		}
	default:
		return nil, false
	}

	x := reflect.ValueOf(xIn)
	if x.Kind() != reflect.Slice {
		// a single value becomes a vector of length 1
		xOut := MakeVector(target, 0)
		if e := xOut.Append(xIn); e != nil {
			return nil, false
		}

		return xOut.data, true
	}

	xOut := MakeVector(target, 0)
	for ind := 0; ind < x.Len(); ind++ {
		if e := xOut.Append(x.Index(ind).Interface()); e != nil {
			return nil, false
		}
	}

	return xOut.data, true
}
