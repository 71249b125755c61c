package build

import (
	"fmt"
	"math"

	d "github.com/invertedv/countydata"
)

// mergeTag says which source column of a split variable supplies a row's value.
type mergeTag uint8

const (
	mergeNone mergeTag = iota
	mergePrimary
	mergeSecondary
	mergeInvalid
)

// MergeError reports a row in which more than one source column of a split variable is populated.
type MergeError struct {
	Label string
	IDs   []string
	FIPS  string
	Name  string
	Year  int
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("%s: more than one of %v populated for %s (FIPS %s) in %d", e.Label, e.IDs, e.Name, e.FIPS, e.Year)
}

// tag classifies one row given the values of its source columns, in priority order.
func tag(vals []float64) (mergeTag, int) {
	t, src := mergeNone, -1
	for ind, v := range vals {
		if math.IsNaN(v) {
			continue
		}

		if t != mergeNone {
			return mergeInvalid, -1
		}

		t, src = mergeSecondary, ind
		if ind == 0 {
			t = mergePrimary
		}
	}

	return t, src
}

// mergeSplit replaces the source columns ids of label with a single column named label.
// Columns of ids absent from t are treated as all null.
func mergeSplit(t *d.Table, label string, ids []string) error {
	n := t.RowCount()

	var srcs [][]float64
	for _, id := range ids {
		col, e := t.Column(id)
		if e != nil {
			srcs = append(srcs, d.NullVector(d.DTfloat, n).AsAny().([]float64))
			continue
		}

		x, e := col.AsFloat()
		if e != nil {
			return fmt.Errorf("column %s: %w", id, e)
		}

		srcs = append(srcs, x)
	}

	merged := make([]float64, n)
	vals := make([]float64, len(ids))
	for row := 0; row < n; row++ {
		for ind := range srcs {
			vals[ind] = srcs[ind][row]
		}

		switch tg, src := tag(vals); tg {
		case mergeInvalid:
			return mergeError(t, row, label, ids)
		case mergeNone:
			merged[row] = math.NaN()
		default:
			merged[row] = vals[src]
		}
	}

	for _, id := range ids {
		if t.HasColumns(id) {
			if e := t.DropColumns(id); e != nil {
				return e
			}
		}
	}

	col, e := d.NewCol(merged, d.DTfloat, d.ColName(label))
	if e != nil {
		return e
	}

	return t.AppendColumn(col)
}

func mergeError(t *d.Table, row int, label string, ids []string) error {
	me := &MergeError{Label: label, IDs: ids}

	if c, e := t.Column(colState); e == nil {
		me.FIPS = c.ElementString(row)
	}

	if c, e := t.Column(colCounty); e == nil {
		me.FIPS += c.ElementString(row)
	}

	if c, e := t.Column(colName); e == nil {
		me.Name = c.ElementString(row)
	}

	if c, e := t.Column(d.ColYear); e == nil {
		me.Year, _ = c.ElementInt(row)
	}

	return me
}
