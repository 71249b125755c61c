package countydata

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

func Has[C comparable](needle C, haystack []C) bool {
	return Position(needle, haystack) >= 0
}

func Position[C comparable](needle C, haystack []C) int {
	for ind, straw := range haystack {
		if needle == straw {
			return ind
		}
	}

	return -1
}

// Unique collapses xs to the first occurrence of each value, preserving order.
func Unique[C comparable](xs []C) []C {
	seen := make(map[C]bool, len(xs))
	var out []C
	for _, x := range xs {
		if seen[x] {
			continue
		}

		seen[x] = true
		out = append(out, x)
	}

	return out
}

// ***************** printing *****************

// String shows the first rows of the table followed by a summary of each float column.
func (t *Table) String() string {
	const maxRows = 10

	n := t.RowCount()
	show := make([]bool, n)
	for ind := 0; ind < n && ind < maxRows; ind++ {
		show[ind] = true
	}

	var (
		header []string
		cols   []any
		summ   string
	)

	for c := t.Next(true); c != nil; c = t.Next(false) {
		header = append(header, c.Name())
		cols = append(cols, c.Where(show).AsAny())

		if c.DataType() == DTfloat {
			summ += c.Name() + "\n" + summary(c.AsAny().([]float64)) + "\n"
		}
	}

	out := fmt.Sprintf("rows: %d, columns: %d\n", n, t.ColumnCount())
	out += prettyPrint(header, cols...)
	if n > maxRows {
		out += "...\n"
	}

	return out + "\n" + summ
}

// summary gives quartiles and mean of the non-null values of x.
func summary(xIn []float64) string {
	var x []float64
	for _, xv := range xIn {
		if !math.IsNaN(xv) {
			x = append(x, xv)
		}
	}

	nulls := float64(len(xIn) - len(x))
	cats := []string{"n", "nulls"}
	vals := []float64{float64(len(x)), nulls}

	if len(x) > 0 {
		sort.Float64s(x)
		cats = append(cats, "min", "lq", "median", "mean", "uq", "max")
		vals = append(vals, x[0],
			stat.Quantile(0.25, stat.Empirical, x, nil),
			stat.Quantile(0.5, stat.Empirical, x, nil),
			stat.Mean(x, nil),
			stat.Quantile(0.75, stat.Empirical, x, nil),
			x[len(x)-1])
	}

	return prettyPrint([]string{"metric", "value"}, cats, vals)
}

func prettyPrint(header []string, cols ...any) string {
	var colsS [][]string

	for ind := 0; ind < len(cols); ind++ {
		colsS = append(colsS, stringSlice(header[ind], cols[ind]))
	}

	if len(colsS) == 0 {
		return ""
	}

	out := ""
	for row := 0; row < len(colsS[0]); row++ {
		for c := 0; c < len(colsS); c++ {
			out += colsS[c][row]
		}
		out += "\n"
	}

	return out
}

func stringSlice(header string, inVal any) []string {
	const pad = 3
	c := []string{header}

	numeric := false
	switch x := inVal.(type) {
	case []float64:
		format := selectFormat(x)
		numeric = true
		for _, xv := range x {
			el := ""
			if !math.IsNaN(xv) {
				el = fmt.Sprintf(format, xv)
			}
			c = append(c, el)
		}
	case []int:
		numeric = true
		for _, xv := range x {
			c = append(c, fmt.Sprintf("%d", xv))
		}
	case []string:
		c = append(c, x...)
	default:
		panic(fmt.Errorf("unsupported data type"))
	}

	maxLen := 0
	for _, cx := range c {
		if l := len(cx); l > maxLen {
			maxLen = l
		}
	}

	for ind, cx := range c {
		padded := cx + strings.Repeat(" ", maxLen-len(cx)+pad)
		if numeric {
			padded = strings.Repeat(" ", maxLen-len(cx)+pad) + cx
		}
		c[ind] = padded
	}

	return c
}

func selectFormat(x []float64) string {
	var minX, maxX float64
	first := true
	for _, xv := range x {
		if math.IsNaN(xv) {
			continue
		}

		xva := math.Abs(xv)
		if first || xva < minX {
			minX = xva
		}

		if first || xva > maxX {
			maxX = xva
		}
		first = false
	}

	rangeX := maxX - minX
	l := math.Log10(rangeX)
	var dp int
	switch {
	case rangeX == 0:
		dp = 1
	case l < -1:
		dp = int(math.Abs(l)+0.5) + 1
	case l > 1:
		dp = 0
	default:
		dp = 1
	}

	return "%." + fmt.Sprintf("%d", dp) + "f"
}
