package countydata

import (
	"fmt"
	"sort"
)

// DataTypes are the types of data that the package supports
type DataTypes uint8

// values of DataTypes
const (
	DTunknown DataTypes = 0 + iota
	DTstring
	DTfloat
	DTint
)

// max value of DataTypes type
const MaxDT = DTint

var dtNames = [...]string{"DTunknown", "DTstring", "DTfloat", "DTint"}

func (dt DataTypes) String() string {
	if dt > MaxDT {
		return fmt.Sprintf("DataTypes(%d)", uint8(dt))
	}

	return dtNames[dt]
}

func DTFromString(nm string) DataTypes {
	if pos := Position(nm, dtNames[:]); pos >= 0 {
		return DataTypes(uint8(pos))
	}

	return DTunknown
}

// Table is an ordered list of equal-length columns held in memory.
type Table struct {
	head *columnList
	tail *columnList

	current *columnList
	rowIter int
}

type columnList struct {
	col *Col

	prior *columnList
	next  *columnList
}

// NewTable builds a table from cols. The columns must be named, uniquely, and have the same length.
func NewTable(cols ...*Col) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns in NewTable")
	}

	t := &Table{}
	for _, col := range cols {
		if e := t.AppendColumn(col); e != nil {
			return nil, e
		}
	}

	return t, nil
}

// ***************** Table - columns *****************

// Next iterates over the columns. reset=true starts from the first column; nil signals the end.
func (t *Table) Next(reset bool) *Col {
	if reset || t.current == nil {
		t.current = t.head
	} else {
		t.current = t.current.next
	}

	if t.current == nil {
		return nil
	}

	return t.current.col
}

func (t *Table) RowCount() int {
	if t.head == nil {
		return 0
	}

	return t.head.col.Len()
}

func (t *Table) ColumnCount() int {
	cols := 0
	for c := t.head; c != nil; c = c.next {
		cols++
	}

	return cols
}

func (t *Table) ColumnNames() []string {
	var names []string

	for h := t.head; h != nil; h = h.next {
		names = append(names, h.col.Name())
	}

	return names
}

func (t *Table) ColumnTypes() []DataTypes {
	var dts []DataTypes

	for h := t.head; h != nil; h = h.next {
		dts = append(dts, h.col.DataType())
	}

	return dts
}

func (t *Table) Column(colName string) (*Col, error) {
	var (
		node *columnList
		e    error
	)
	if node, e = t.node(colName); e != nil {
		return nil, e
	}

	return node.col, nil
}

func (t *Table) HasColumns(colNames ...string) bool {
	names := t.ColumnNames()
	for _, cn := range colNames {
		if !Has(cn, names) {
			return false
		}
	}

	return true
}

func (t *Table) AppendColumn(col *Col) error {
	if col == nil {
		return fmt.Errorf("nil column in AppendColumn")
	}

	if e := validName(col.Name()); e != nil {
		return e
	}

	if t.head != nil {
		if Has(col.Name(), t.ColumnNames()) {
			return fmt.Errorf("duplicate column name: %s", col.Name())
		}

		if col.Len() != t.RowCount() {
			return fmt.Errorf("length mismatch: table - %d, append col %s - %d", t.RowCount(), col.Name(), col.Len())
		}
	}

	node := &columnList{col: col, prior: t.tail}
	if t.tail != nil {
		t.tail.next = node
	}

	t.tail = node
	if t.head == nil {
		t.head = node
	}

	return nil
}

func (t *Table) node(colName string) (*columnList, error) {
	for h := t.head; h != nil; h = h.next {
		if h.col.Name() == colName {
			return h, nil
		}
	}

	return nil, fmt.Errorf("column %s not found", colName)
}

func (t *Table) DropColumns(colNames ...string) error {
	for _, cName := range colNames {
		var (
			node *columnList
			e    error
		)

		if node, e = t.node(cName); e != nil {
			return e
		}

		if node.prior != nil {
			node.prior.next = node.next
		} else {
			t.head = node.next
		}

		if node.next != nil {
			node.next.prior = node.prior
		} else {
			t.tail = node.prior
		}
	}

	if t.head == nil {
		return fmt.Errorf("no columns left")
	}

	return nil
}

// KeepColumns returns a new table with colNames, in that order. The columns are shared, not copied.
func (t *Table) KeepColumns(colNames ...string) (*Table, error) {
	var cols []*Col
	for _, cn := range colNames {
		var (
			col *Col
			e   error
		)
		if col, e = t.Column(cn); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewTable(cols...)
}

// Rename renames columns according to renames (old name -> new name). Names not present are ignored.
func (t *Table) Rename(renames map[string]string) error {
	names := t.ColumnNames()
	for h := t.head; h != nil; h = h.next {
		newName, ok := renames[h.col.Name()]
		if !ok || newName == h.col.Name() {
			continue
		}

		if Has(newName, names) {
			if _, moving := renames[newName]; !moving {
				return fmt.Errorf("column %s already exists, cannot rename %s", newName, h.col.Name())
			}
		}

		if e := ColName(newName)(h.col.ColCore); e != nil {
			return e
		}
	}

	if u := Unique(t.ColumnNames()); len(u) != t.ColumnCount() {
		return fmt.Errorf("rename produced duplicate column names")
	}

	return nil
}

// ***************** Table - rows *****************

// Row returns the values in row indx, in column order.
func (t *Table) Row(indx int) ([]any, error) {
	if indx < 0 || indx >= t.RowCount() {
		return nil, fmt.Errorf("row %d out of range", indx)
	}

	var row []any
	for h := t.head; h != nil; h = h.next {
		row = append(row, h.col.Element(indx))
	}

	return row, nil
}

// Where returns a new table with the rows for which keep is true.
func (t *Table) Where(keep []bool) (*Table, error) {
	if len(keep) != t.RowCount() {
		return nil, fmt.Errorf("Where: indicator has length %d, table has %d rows", len(keep), t.RowCount())
	}

	var cols []*Col
	for h := t.head; h != nil; h = h.next {
		cols = append(cols, &Col{Vector: h.col.Where(keep), ColCore: h.col.ColCore.Copy()})
	}

	return NewTable(cols...)
}

// Filter keeps the rows for which fn is true. fn gets the row index.
func (t *Table) Filter(fn func(row int) bool) (*Table, error) {
	keep := make([]bool, t.RowCount())
	for ind := range keep {
		keep[ind] = fn(ind)
	}

	return t.Where(keep)
}

// Sort sorts the table in place on keys. The sort is stable and nulls go last.
func (t *Table) Sort(ascending bool, keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("no sort keys")
	}

	var by []*Col
	for _, k := range keys {
		var (
			col *Col
			e   error
		)
		if col, e = t.Column(k); e != nil {
			return e
		}

		by = append(by, col)
	}

	order := make([]int, t.RowCount())
	for ind := range order {
		order[ind] = ind
	}

	sort.SliceStable(order, func(i, j int) bool {
		for _, col := range by {
			// nulls last in either direction
			if ni, nj := col.IsNull(order[i]), col.IsNull(order[j]); ni != nj {
				return nj
			}

			c := col.Compare(order[i], order[j])
			if c == 0 {
				continue
			}

			if ascending {
				return c < 0
			}

			return c > 0
		}

		return false
	})

	for h := t.head; h != nil; h = h.next {
		h.col.Vector = h.col.Reorder(order)
	}

	return nil
}

// AppendRows returns a table with the rows of t followed by the rows of t2. Columns missing from
// either table are filled with nulls; column order is that of t followed by any new columns of t2.
func (t *Table) AppendRows(t2 *Table) (*Table, error) {
	n1, n2 := t.RowCount(), t2.RowCount()
	names := Unique(append(t.ColumnNames(), t2.ColumnNames()...))

	var cols []*Col
	for _, cn := range names {
		c1, e1 := t.Column(cn)
		c2, e2 := t2.Column(cn)

		var dt DataTypes
		switch {
		case e1 == nil && e2 == nil:
			dt = c1.DataType()
			if c2.DataType() != dt {
				return nil, fmt.Errorf("column %s has type %s and %s", cn, dt, c2.DataType())
			}
		case e1 == nil:
			dt = c1.DataType()
		default:
			dt = c2.DataType()
		}

		var v *Vector
		if e1 == nil {
			v = c1.Vector.Copy()
		} else {
			if dt == DTint {
				return nil, fmt.Errorf("int column %s cannot be null-filled", cn)
			}
			v = NullVector(dt, n1)
		}

		add := NullVector(dt, n2)
		if e2 == nil {
			add = c2.Vector
		} else if dt == DTint {
			return nil, fmt.Errorf("int column %s cannot be null-filled", cn)
		}

		if e := v.AppendVector(add); e != nil {
			return nil, e
		}

		var (
			col *Col
			e   error
		)
		if col, e = NewCol(v, dt, ColName(cn)); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewTable(cols...)
}

// Copy makes a deep copy of the table.
func (t *Table) Copy() *Table {
	var cols []*Col
	for h := t.head; h != nil; h = h.next {
		cols = append(cols, h.col.Copy())
	}

	// can't fail: the source table was valid
	tOut, _ := NewTable(cols...)

	return tOut
}

// Iter iterates over the rows. reset=true starts at the first row; the error is non-nil after the last row.
func (t *Table) Iter(reset bool) ([]any, error) {
	if reset {
		t.rowIter = 0
	}

	if t.rowIter >= t.RowCount() {
		return nil, fmt.Errorf("end of table")
	}

	row, e := t.Row(t.rowIter)
	t.rowIter++

	return row, e
}
