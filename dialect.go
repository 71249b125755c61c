package countydata

import (
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// All code interacting with a database is here

var (
	//go:embed skeletons/clickhouse/create.txt
	chCreate string
	//go:embed skeletons/postgres/create.txt
	pgCreate string
	//go:embed skeletons/sqlite/create.txt
	slCreate string

	//go:embed skeletons/clickhouse/types.txt
	chTypes string
	//go:embed skeletons/postgres/types.txt
	pgTypes string
	//go:embed skeletons/sqlite/types.txt
	slTypes string

	//go:embed skeletons/clickhouse/fields.txt
	chFields string
	//go:embed skeletons/postgres/fields.txt
	pgFields string
	//go:embed skeletons/sqlite/fields.txt
	slFields string

	//go:embed skeletons/clickhouse/dropIf.txt
	chDropIf string
	//go:embed skeletons/postgres/dropIf.txt
	pgDropIf string
	//go:embed skeletons/sqlite/dropIf.txt
	slDropIf string

	//go:embed skeletons/clickhouse/exists.txt
	chExists string
	//go:embed skeletons/postgres/exists.txt
	pgExists string
	//go:embed skeletons/sqlite/exists.txt
	slExists string

	//go:embed skeletons/clickhouse/rename.txt
	chRename string
	//go:embed skeletons/postgres/rename.txt
	pgRename string
	//go:embed skeletons/sqlite/rename.txt
	slRename string

	//go:embed skeletons/clickhouse/swap.txt
	chSwap string
)

const (
	ch = "clickhouse"
	pg = "postgres"
	sl = "sqlite"
)

// Dialect saves tables to, and loads tables from, a database.
type Dialect struct {
	db      *sql.DB
	dialect string

	dtTypes []DataTypes
	dbTypes []string
	scanned [][]string

	create string
	fields string
	dropIf string
	exists string
	rename string
	swap   string

	bufRows int
}

func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	if db == nil {
		return nil, fmt.Errorf("nil *sql.DB in NewDialect")
	}

	dialect = strings.ToLower(dialect)

	d := &Dialect{db: db, dialect: dialect, bufRows: 1000}

	var types string
	switch d.dialect {
	case ch:
		d.create, d.fields, d.dropIf, d.exists = chCreate, chFields, chDropIf, chExists
		d.rename, d.swap = chRename, chSwap
		types = chTypes
	case pg:
		d.create, d.fields, d.dropIf, d.exists = pgCreate, pgFields, pgDropIf, pgExists
		d.rename = pgRename
		types = pgTypes
	case sl:
		d.create, d.fields, d.dropIf, d.exists = slCreate, slFields, slDropIf, slExists
		d.rename = slRename
		types = slTypes
	default:
		return nil, fmt.Errorf("no skeletons for database %s", dialect)
	}

	for _, lm := range strings.Split(types, "\n") {
		if strings.TrimSpace(lm) == "" {
			continue
		}

		t := strings.Split(lm, ",")
		if len(t) != 3 {
			return nil, fmt.Errorf("bad types line in NewDialect: %s", lm)
		}

		var dt DataTypes
		if dt = DTFromString(t[0]); dt == DTunknown {
			return nil, fmt.Errorf("unknown data type in NewDialect: %s", t[0])
		}

		d.dtTypes = append(d.dtTypes, dt)
		d.dbTypes = append(d.dbTypes, t[1])
		d.scanned = append(d.scanned, strings.Split(t[2], "|"))
	}

	return d, nil
}

// ***************** Methods *****************

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) DialectName() string {
	return d.dialect
}

func (d *Dialect) Close() error {
	return d.db.Close()
}

// BufRows is the number of rows sent per INSERT statement.
func (d *Dialect) BufRows() int {
	return d.bufRows
}

func (d *Dialect) SetBufRows(rows int) {
	if rows > 0 {
		d.bufRows = rows
	}
}

// Create creates tableName with the given fields. orderBy is used by ClickHouse and defaults to the first field.
func (d *Dialect) Create(tableName string, orderBy []string, fields []string, types []DataTypes, overwrite bool) error {
	if len(fields) != len(types) || len(fields) == 0 {
		return fmt.Errorf("fields and types must be non-empty and of equal length in Dialect.Create")
	}

	var (
		exists bool
		e      error
	)
	if exists, e = d.Exists(tableName); e != nil {
		return e
	}

	if exists {
		if !overwrite {
			return fmt.Errorf("table %s exists", tableName)
		}

		if e := d.DropTable(tableName); e != nil {
			return e
		}
	}

	if len(orderBy) == 0 {
		orderBy = fields[:1]
	}

	var flds []string
	for ind := 0; ind < len(fields); ind++ {
		var (
			dbType string
			ex     error
		)
		if dbType, ex = d.dbType(types[ind]); ex != nil {
			return ex
		}

		field := strings.ReplaceAll(d.fields, "?Field", fields[ind])
		field = strings.ReplaceAll(field, "?Type", dbType)
		flds = append(flds, field)
	}

	create := strings.ReplaceAll(d.create, "?TableName", tableName)
	create = strings.Replace(create, "?OrderBy", quoteNames(orderBy), 1)
	create = strings.Replace(create, "?fields", strings.Join(flds, ",\n"), 1)

	_, e = d.db.Exec(create)

	return e
}

func (d *Dialect) DropTable(tableName string) error {
	_, e := d.db.Exec(strings.ReplaceAll(d.dropIf, "?TableName", tableName))

	return e
}

func (d *Dialect) Exists(tableName string) (bool, error) {
	var (
		res *sql.Rows
		e   error
	)
	if res, e = d.db.Query(strings.ReplaceAll(d.exists, "?TableName", tableName)); e != nil {
		return false, e
	}

	defer func() { _ = res.Close() }()

	if !res.Next() {
		return false, res.Err()
	}

	var exist any
	if e := res.Scan(&exist); e != nil {
		return false, e
	}

	switch x := exist.(type) {
	case nil:
		return false, nil
	case uint8:
		return x == 1, nil
	case int64:
		return x == 1, nil
	case bool:
		return x, nil
	}

	return true, nil
}

// Save writes t to tableName. The rows go to a staging table first, which replaces tableName only
// once every row is in, so a failed Save leaves any existing tableName as it was. orderBy is the
// ClickHouse sort key.
func (d *Dialect) Save(t *Table, tableName string, orderBy []string, overwrite bool) error {
	if !overwrite {
		exists, e := d.Exists(tableName)
		if e != nil {
			return e
		}

		if exists {
			return fmt.Errorf("table %s exists", tableName)
		}
	}

	var (
		staged string
		e      error
	)
	if staged, e = d.Stage(t, tableName, orderBy); e != nil {
		return e
	}

	if e = d.Commit(staged, tableName); e != nil {
		_ = d.DropTable(staged)
		return e
	}

	return nil
}

// StagingName is the table Stage fills for tableName.
func StagingName(tableName string) string {
	return tableName + "_staging"
}

// Stage writes t to the staging table of tableName, replacing any earlier staging table, and returns
// its name. Commit moves it into place; DropTable discards it. Nothing is written if t holds an
// infinite value.
func (d *Dialect) Stage(t *Table, tableName string, orderBy []string) (string, error) {
	if !t.HasColumns(orderBy...) {
		return "", fmt.Errorf("not all columns present in orderBy %v", orderBy)
	}

	var cols []*Col
	for c := t.Next(true); c != nil; c = t.Next(false) {
		if e := finite(c); e != nil {
			return "", e
		}

		cols = append(cols, c)
	}

	staged := StagingName(tableName)
	if e := d.Create(staged, orderBy, t.ColumnNames(), t.ColumnTypes(), true); e != nil {
		return "", e
	}

	if e := d.insert(staged, t.ColumnNames(), cols, t.RowCount()); e != nil {
		_ = d.DropTable(staged)
		return "", e
	}

	return staged, nil
}

// Commit replaces tableName with the staged table.
func (d *Dialect) Commit(staged, tableName string) error {
	replace := func(skel string) string {
		return strings.ReplaceAll(strings.ReplaceAll(skel, "?Staged", staged), "?TableName", tableName)
	}

	if d.dialect == ch {
		exists, e := d.Exists(tableName)
		if e != nil {
			return e
		}

		if !exists {
			_, e = d.db.Exec(replace(d.rename))
			return e
		}

		if _, e = d.db.Exec(replace(d.swap)); e != nil {
			return e
		}

		// the staged name now holds the old rows; the next Stage replaces it if this fails
		_ = d.DropTable(staged)

		return nil
	}

	tx, e := d.db.Begin()
	if e != nil {
		return e
	}

	if _, e = tx.Exec(strings.ReplaceAll(d.dropIf, "?TableName", tableName)); e == nil {
		_, e = tx.Exec(replace(d.rename))
	}

	if e != nil {
		_ = tx.Rollback()
		return e
	}

	return tx.Commit()
}

func (d *Dialect) insert(tableName string, names []string, cols []*Col, rows int) error {
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tableName, quoteNames(names))

	var buffer []string
	for row := 0; row < rows; row++ {
		vals := make([]string, len(cols))
		for ind, c := range cols {
			vals[ind] = d.ToString(c.Element(row))
		}

		buffer = append(buffer, "("+strings.Join(vals, ",")+")")

		if len(buffer) >= d.bufRows {
			if _, e := d.db.Exec(insert + strings.Join(buffer, ",")); e != nil {
				return e
			}

			buffer = nil
		}
	}

	if buffer != nil {
		if _, e := d.db.Exec(insert + strings.Join(buffer, ",")); e != nil {
			return e
		}
	}

	return nil
}

// Load runs qry and returns the result as a table. Column types come from the driver when it reports
// a known database type, otherwise from the values returned.
func (d *Dialect) Load(qry string) (*Table, error) {
	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = d.db.Query(qry); e != nil {
		return nil, e
	}

	defer func() { _ = rows.Close() }()

	var colTypes []*sql.ColumnType
	if colTypes, e = rows.ColumnTypes(); e != nil {
		return nil, e
	}

	dts := make([]DataTypes, len(colTypes))
	for ind, ct := range colTypes {
		dts[ind] = d.dataType(ct.DatabaseTypeName())
	}

	var data [][]any
	for rows.Next() {
		row := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for ind := range row {
			ptrs[ind] = &row[ind]
		}

		if e := rows.Scan(ptrs...); e != nil {
			return nil, e
		}

		data = append(data, row)
	}

	if e := rows.Err(); e != nil {
		return nil, e
	}

	var cols []*Col
	for c, ct := range colTypes {
		if dts[c] == DTunknown {
			dts[c] = valueType(data, c)
		}

		v := MakeVector(dts[c], 0)
		for _, row := range data {
			x := row[c]
			if x == nil && dts[c] == DTint {
				return nil, fmt.Errorf("null in integer column %s", ct.Name())
			}

			if e := v.Append(x); e != nil {
				return nil, fmt.Errorf("column %s: %w", ct.Name(), e)
			}
		}

		var col *Col
		if col, e = NewCol(v, dts[c], ColName(ct.Name())); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewTable(cols...)
}

// ToString renders x as a SQL literal.
func (d *Dialect) ToString(x any) string {
	switch xx := x.(type) {
	case float64:
		// no SQL literal for infinity
		if math.IsNaN(xx) || math.IsInf(xx, 0) {
			return "NULL"
		}

		return strconv.FormatFloat(xx, 'g', -1, 64)
	case int:
		return strconv.Itoa(xx)
	case string:
		return "'" + strings.ReplaceAll(xx, "'", "''") + "'"
	case nil:
		return "NULL"
	}

	s, _ := toString(x)

	return "'" + strings.ReplaceAll(s.(string), "'", "''") + "'"
}

// *********** Helpers ***********

func (d *Dialect) dbType(dt DataTypes) (string, error) {
	if pos := Position(dt, d.dtTypes); pos >= 0 {
		return d.dbTypes[pos], nil
	}

	return "", fmt.Errorf("no database type for %s in %s", dt, d.dialect)
}

func (d *Dialect) dataType(dbType string) DataTypes {
	dbType = strings.ToUpper(strings.TrimSpace(dbType))
	for ind, names := range d.scanned {
		if Has(dbType, names) {
			return d.dtTypes[ind]
		}
	}

	return DTunknown
}

// valueType picks a type for column c from the first non-null value.
func valueType(data [][]any, c int) DataTypes {
	for _, row := range data {
		switch row[c].(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
			return DTint
		case float32, float64:
			return DTfloat
		default:
			return DTstring
		}
	}

	return DTfloat
}

// finite rejects float columns holding +/-Inf.
func finite(c *Col) error {
	if c.DataType() != DTfloat {
		return nil
	}

	for row := 0; row < c.Len(); row++ {
		if math.IsInf(c.ElementFloat(row), 0) {
			return fmt.Errorf("column %s row %d is infinite", c.Name(), row)
		}
	}

	return nil
}

func quoteNames(names []string) string {
	var q []string
	for _, n := range names {
		q = append(q, `"`+n+`"`)
	}

	return strings.Join(q, ", ")
}
