package countydata

import (
	"fmt"
	"math"
)

// Vector is the typed data behind a column. Floats use NaN for null and strings use "".
// Ints are never null.
type Vector struct {
	dt DataTypes

	data any
}

func NewVector(data any, dt DataTypes) (*Vector, error) {
	var (
		v  any
		ok bool
	)
	if v, ok = toSlc(data, dt); !ok {
		return nil, fmt.Errorf("cannot make vector of type %s", dt)
	}

	return &Vector{dt: dt, data: v}, nil
}

func MakeVector(dt DataTypes, n int) *Vector {
	switch dt {
	case DTfloat:
		return &Vector{dt: dt, data: make([]float64, n)}
	case DTint:
		return &Vector{dt: dt, data: make([]int, n)}
	case DTstring:
		return &Vector{dt: dt, data: make([]string, n)}
	default:
		panic(fmt.Errorf("cannot make Vector with data type %s", dt))
	}
}

// NullVector returns a vector of length n with every element null.
func NullVector(dt DataTypes, n int) *Vector {
	v := MakeVector(dt, n)
	if dt == DTfloat {
		x := v.data.([]float64)
		for ind := range x {
			x[ind] = math.NaN()
		}
	}

	return v
}

func (v *Vector) VectorType() DataTypes {
	return v.dt
}

func (v *Vector) AsAny() any {
	return v.data
}

func (v *Vector) AsFloat() ([]float64, error) {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64), nil
	case DTint:
		xOut := make([]float64, v.Len())
		for ind, xx := range v.data.([]int) {
			xOut[ind] = float64(xx)
		}

		return xOut, nil
	}

	var (
		vx *Vector
		e  error
	)
	if vx, e = v.Coerce(DTfloat); e != nil {
		return nil, e
	}

	return vx.data.([]float64), nil
}

func (v *Vector) AsInt() ([]int, error) {
	if v.dt == DTint {
		return v.data.([]int), nil
	}

	var (
		vx *Vector
		e  error
	)
	if vx, e = v.Coerce(DTint); e != nil {
		return nil, e
	}

	return vx.data.([]int), nil
}

func (v *Vector) AsString() ([]string, error) {
	if v.dt == DTstring {
		return v.data.([]string), nil
	}

	var (
		vx *Vector
		e  error
	)
	if vx, e = v.Coerce(DTstring); e != nil {
		return nil, e
	}

	return vx.data.([]string), nil
}

func (v *Vector) Element(indx int) any {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[indx]
	case DTint:
		return v.data.([]int)[indx]
	case DTstring:
		return v.data.([]string)[indx]
	default:
		panic(fmt.Errorf("unsupported data type in Element"))
	}
}

func (v *Vector) ElementFloat(indx int) float64 {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[indx]
	case DTint:
		return float64(v.data.([]int)[indx])
	}

	if x, ok := toFloat(v.Element(indx)); ok {
		return x.(float64)
	}

	return math.NaN()
}

func (v *Vector) ElementInt(indx int) (int, bool) {
	if v.dt == DTint {
		return v.data.([]int)[indx], true
	}

	if v.IsNull(indx) {
		return 0, false
	}

	if x, ok := toInt(v.Element(indx)); ok {
		return x.(int), true
	}

	return 0, false
}

func (v *Vector) ElementString(indx int) string {
	if v.dt == DTstring {
		return v.data.([]string)[indx]
	}

	if v.IsNull(indx) {
		return ""
	}

	x, _ := toString(v.Element(indx))

	return x.(string)
}

// IsNull reports whether element indx holds the null value for its type.
func (v *Vector) IsNull(indx int) bool {
	switch v.dt {
	case DTfloat:
		return math.IsNaN(v.data.([]float64)[indx])
	case DTstring:
		return v.data.([]string)[indx] == ""
	default:
		return false
	}
}

func (v *Vector) Len() int {
	switch v.dt {
	case DTfloat:
		return len(v.data.([]float64))
	case DTint:
		return len(v.data.([]int))
	case DTstring:
		return len(v.data.([]string))
	default:
		panic(fmt.Errorf("unexpected error in Vector.Len"))
	}
}

func (v *Vector) Swap(i, j int) {
	switch v.dt {
	case DTfloat:
		v.data.([]float64)[i], v.data.([]float64)[j] = v.data.([]float64)[j], v.data.([]float64)[i]
	case DTint:
		v.data.([]int)[i], v.data.([]int)[j] = v.data.([]int)[j], v.data.([]int)[i]
	case DTstring:
		v.data.([]string)[i], v.data.([]string)[j] = v.data.([]string)[j], v.data.([]string)[i]
	default:
		panic(fmt.Errorf("unexpected error in Vector.Swap"))
	}
}

// Compare returns -1, 0, 1 as element i is less than, equal to or greater than element j.
// Null floats sort last.
func (v *Vector) Compare(i, j int) int {
	switch v.dt {
	case DTfloat:
		x := v.data.([]float64)
		xi, xj := x[i], x[j]
		switch {
		case math.IsNaN(xi) && math.IsNaN(xj):
			return 0
		case math.IsNaN(xi):
			return 1
		case math.IsNaN(xj):
			return -1
		}

		return cmpOrdered(xi, xj)
	case DTint:
		x := v.data.([]int)
		return cmpOrdered(x[i], x[j])
	case DTstring:
		x := v.data.([]string)
		return cmpOrdered(x[i], x[j])
	default:
		panic(fmt.Errorf("unexpected error in Vector.Compare"))
	}
}

func (v *Vector) AppendVector(vAdd *Vector) error {
	if v.VectorType() != vAdd.VectorType() {
		return fmt.Errorf("appending different vector types: %s and %s", v.VectorType(), vAdd.VectorType())
	}

	switch v.dt {
	case DTfloat:
		v.data = append(v.data.([]float64), vAdd.data.([]float64)...)
	case DTint:
		v.data = append(v.data.([]int), vAdd.data.([]int)...)
	case DTstring:
		v.data = append(v.data.([]string), vAdd.data.([]string)...)
	default:
		return fmt.Errorf("unknown type in Vector.AppendVector")
	}

	return nil
}

func (v *Vector) Append(data ...any) error {
	for ind := 0; ind < len(data); ind++ {
		var (
			x  any
			ok bool
		)
		if x, ok = toDataType(data[ind], v.dt); !ok {
			return fmt.Errorf("cannot make %s from %v in Append", v.dt, data[ind])
		}

		switch v.dt {
		case DTfloat:
			v.data = append(v.data.([]float64), x.(float64))
		case DTint:
			v.data = append(v.data.([]int), x.(int))
		case DTstring:
			v.data = append(v.data.([]string), x.(string))
		}
	}

	return nil
}

func (v *Vector) Copy() *Vector {
	vCopy := &Vector{dt: v.dt}
	switch v.dt {
	case DTfloat:
		x := make([]float64, v.Len())
		copy(x, v.data.([]float64))
		vCopy.data = x
	case DTint:
		x := make([]int, v.Len())
		copy(x, v.data.([]int))
		vCopy.data = x
	case DTstring:
		x := make([]string, v.Len())
		copy(x, v.data.([]string))
		vCopy.data = x
	default:
		panic(fmt.Errorf("unexpected error in Vector.Copy"))
	}

	return vCopy
}

// Where returns the elements of v for which keep is true.
func (v *Vector) Where(keep []bool) *Vector {
	outVec := MakeVector(v.VectorType(), 0)
	switch v.dt {
	case DTfloat:
		x := v.data.([]float64)
		var out []float64
		for ind, k := range keep {
			if k {
				out = append(out, x[ind])
			}
		}
		outVec.data = append(outVec.data.([]float64), out...)
	case DTint:
		x := v.data.([]int)
		var out []int
		for ind, k := range keep {
			if k {
				out = append(out, x[ind])
			}
		}
		outVec.data = append(outVec.data.([]int), out...)
	case DTstring:
		x := v.data.([]string)
		var out []string
		for ind, k := range keep {
			if k {
				out = append(out, x[ind])
			}
		}
		outVec.data = append(outVec.data.([]string), out...)
	}

	return outVec
}

// Reorder returns a vector whose element i is element order[i] of v.
func (v *Vector) Reorder(order []int) *Vector {
	outVec := MakeVector(v.VectorType(), len(order))
	for ind, src := range order {
		switch v.dt {
		case DTfloat:
			outVec.data.([]float64)[ind] = v.data.([]float64)[src]
		case DTint:
			outVec.data.([]int)[ind] = v.data.([]int)[src]
		case DTstring:
			outVec.data.([]string)[ind] = v.data.([]string)[src]
		}
	}

	return outVec
}

func (v *Vector) Coerce(to DataTypes) (*Vector, error) {
	xOut := MakeVector(to, v.Len())
	for ind := 0; ind < v.Len(); ind++ {
		if v.IsNull(ind) {
			switch to {
			case DTfloat:
				xOut.data.([]float64)[ind] = math.NaN()
				continue
			case DTstring:
				continue
			default:
				return nil, fmt.Errorf("cannot coerce null to %s", to)
			}
		}

		var (
			x  any
			ok bool
		)
		if x, ok = toDataType(v.Element(ind), to); !ok {
			return nil, fmt.Errorf("cannot coerce %v to %s", v.Element(ind), to)
		}

		switch to {
		case DTfloat:
			xOut.data.([]float64)[ind] = x.(float64)
		case DTint:
			xOut.data.([]int)[ind] = x.(int)
		case DTstring:
			xOut.data.([]string)[ind] = x.(string)
		}
	}

	return xOut, nil
}

func cmpOrdered[T float64 | int | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
