package countydata

import (
	"fmt"
	"strings"
)

// *********** ColCore ***********

// ColCore holds the metadata of a column.
type ColCore struct {
	name string
	dt   DataTypes
}

func NewColCore(dt DataTypes, ops ...ColOpt) (*ColCore, error) {
	c := &ColCore{dt: dt}

	for _, op := range ops {
		if e := op(c); e != nil {
			return nil, e
		}
	}

	return c, nil
}

// *********** Setters ***********

type ColOpt func(c *ColCore) error

func ColName(name string) ColOpt {
	return func(c *ColCore) error {
		if c == nil {
			return fmt.Errorf("nil column to ColName")
		}

		if e := validName(name); e != nil {
			return e
		}

		c.name = name

		return nil
	}
}

func ColDataType(dt DataTypes) ColOpt {
	return func(c *ColCore) error {
		if c == nil {
			return fmt.Errorf("nil column to ColDataType")
		}

		c.dt = dt

		return nil
	}
}

// *********** Methods ***********

func (c *ColCore) Copy() *ColCore {
	return &ColCore{name: c.name, dt: c.dt}
}

func (c *ColCore) DataType() DataTypes {
	return c.dt
}

func (c *ColCore) Name() string {
	return c.name
}

// *********** Col ***********

// Col is a named Vector.
type Col struct {
	*Vector

	*ColCore
}

// NewCol builds a column from a slice (or a *Vector) of type dt.
func NewCol(data any, dt DataTypes, opts ...ColOpt) (*Col, error) {
	var v *Vector
	if vx, ok := data.(*Vector); ok {
		v = vx
		dt = vx.VectorType()
	}

	if v == nil {
		var e error
		if v, e = NewVector(data, dt); e != nil {
			return nil, e
		}
	}

	var (
		cc *ColCore
		e  error
	)
	if cc, e = NewColCore(dt, opts...); e != nil {
		return nil, e
	}

	return &Col{Vector: v, ColCore: cc}, nil
}

func (c *Col) Copy() *Col {
	return &Col{
		Vector:  c.Vector.Copy(),
		ColCore: c.ColCore.Copy(),
	}
}

func (c *Col) DataType() DataTypes {
	return c.ColCore.DataType()
}

func (c *Col) String() string {
	return fmt.Sprintf("column: %s\ntype: %s\nlength: %d\n", c.Name(), c.DataType(), c.Len())
}

// validName rejects names that cannot be written as a header field.
func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty column name")
	}

	if strings.ContainsAny(name, "\n\r\"") {
		return fmt.Errorf("illegal column name: %q", name)
	}

	return nil
}
