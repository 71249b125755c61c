package countydata

import (
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sqliteDialect(t *testing.T) *Dialect {
	dlct, e := Connect("sqlite", ":memory:")
	assert.Nil(t, e)
	t.Cleanup(func() { _ = dlct.Close() })

	return dlct
}

func TestNewDialect(t *testing.T) {
	dlct := sqliteDialect(t)
	assert.Equal(t, "sqlite", dlct.DialectName())
	assert.Equal(t, 1000, dlct.BufRows())

	_, e := NewDialect("oracle", dlct.DB())
	assert.NotNil(t, e)

	_, e = NewDialect("sqlite", nil)
	assert.NotNil(t, e)

	_, e = Connect("oracle", "")
	assert.NotNil(t, e)
}

func TestDialect_ToString(t *testing.T) {
	dlct := sqliteDialect(t)
	assert.Equal(t, "NULL", dlct.ToString(math.NaN()))
	assert.Equal(t, "NULL", dlct.ToString(math.Inf(1)))
	assert.Equal(t, "NULL", dlct.ToString(math.Inf(-1)))
	assert.Equal(t, "1.5", dlct.ToString(1.5))
	assert.Equal(t, "2019", dlct.ToString(2019))
	assert.Equal(t, "'Prince George''s County'", dlct.ToString("Prince George's County"))
}

func TestDialect_SaveLoad(t *testing.T) {
	dlct := sqliteDialect(t)
	dlct.SetBufRows(2)

	f, _ := NewFiles()
	tbl, e := f.Read(strings.NewReader(countyCSV))
	assert.Nil(t, e)

	assert.Nil(t, dlct.Save(tbl, "county", []string{ColFIPS, ColYear}, false))

	exists, e := dlct.Exists("county")
	assert.Nil(t, e)
	assert.True(t, exists)

	// no overwrite
	assert.NotNil(t, dlct.Save(tbl, "county", []string{ColFIPS}, false))
	assert.Nil(t, dlct.Save(tbl, "county", []string{ColFIPS}, true))

	back, e := dlct.Load("SELECT * FROM county")
	assert.Nil(t, e)
	assert.Equal(t, tbl.ColumnNames(), back.ColumnNames())
	assert.Equal(t, tbl.ColumnTypes(), back.ColumnTypes())
	assert.Equal(t, 3, back.RowCount())

	rent, _ := back.Column("Median Rent")
	assert.True(t, rent.IsNull(1))
	assert.Equal(t, 850.5, rent.ElementFloat(2))

	fips, _ := back.Column(ColFIPS)
	assert.Equal(t, "01003", fips.ElementString(2))

	assert.Nil(t, dlct.DropTable("county"))
	exists, e = dlct.Exists("county")
	assert.Nil(t, e)
	assert.False(t, exists)

	assert.NotNil(t, dlct.Save(tbl, "county", []string{"nope"}, true))
}

func countRows(t *testing.T, dlct *Dialect, tableName string) int {
	back, e := dlct.Load("SELECT * FROM " + tableName)
	assert.Nil(t, e)
	if back == nil {
		return -1
	}

	return back.RowCount()
}

func TestDialect_StageCommit(t *testing.T) {
	dlct := sqliteDialect(t)
	dlct.SetBufRows(1)

	f, _ := NewFiles()
	tbl, _ := f.Read(strings.NewReader(countyCSV))
	assert.Nil(t, dlct.Save(tbl, "county", []string{ColFIPS, ColYear}, false))

	// an infinite value is rejected before the live table is touched
	bad := tbl.Copy()
	assert.Nil(t, bad.DropColumns("Median Rent"))
	inf, _ := NewCol([]float64{700, math.NaN(), math.Inf(1)}, DTfloat, ColName("Median Rent"))
	assert.Nil(t, bad.AppendColumn(inf))
	assert.NotNil(t, dlct.Save(bad, "county", []string{ColFIPS, ColYear}, true))
	assert.Equal(t, 3, countRows(t, dlct, "county"))

	staged, e := dlct.Exists(StagingName("county"))
	assert.Nil(t, e)
	assert.False(t, staged)

	// a staged table sits beside the live one until committed
	short, _ := tbl.Filter(func(row int) bool { return row < 2 })
	name, e := dlct.Stage(short, "county", []string{ColFIPS})
	assert.Nil(t, e)
	assert.Equal(t, "county_staging", name)
	assert.Equal(t, 3, countRows(t, dlct, "county"))
	assert.Equal(t, 2, countRows(t, dlct, name))

	assert.Nil(t, dlct.Commit(name, "county"))
	assert.Equal(t, 2, countRows(t, dlct, "county"))

	staged, e = dlct.Exists(name)
	assert.Nil(t, e)
	assert.False(t, staged)

	// commit into a new name
	name, e = dlct.Stage(tbl, "county2", nil)
	assert.Nil(t, e)
	assert.Nil(t, dlct.Commit(name, "county2"))
	assert.Equal(t, 3, countRows(t, dlct, "county2"))
}

// environment variables for the database tests:
//   - host: ClickHouse/Postgres IP address
//   - user, password: credentials for both
//   - db: Postgres database name

func dsn(dialect string) string {
	user, password, host := os.Getenv("user"), os.Getenv("password"), os.Getenv("host")
	if dialect == ch {
		return fmt.Sprintf("clickhouse://%s:%s@%s:9000/default", user, password, host)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:5432/%s", user, password, host, os.Getenv("db"))
}

func TestDialect_Servers(t *testing.T) {
	if os.Getenv("host") == "" {
		t.Skip("no database host")
	}

	for _, dialect := range []string{ch, pg} {
		dlct, e := Connect(dialect, dsn(dialect))
		if !assert.Nil(t, e, dialect) {
			continue
		}

		f, _ := NewFiles()
		tbl, _ := f.Read(strings.NewReader(countyCSV))
		assert.Nil(t, dlct.Save(tbl, "county_test", []string{ColFIPS, ColYear}, true), dialect)

		back, e := dlct.Load(`SELECT * FROM county_test ORDER BY "FIPS", "YEAR"`)
		assert.Nil(t, e, dialect)
		assert.Equal(t, 3, back.RowCount(), dialect)
		assert.Equal(t, tbl.ColumnTypes(), back.ColumnTypes(), dialect)

		assert.Nil(t, dlct.DropTable("county_test"), dialect)
		_ = dlct.Close()
	}
}
