package countydata

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const countyCSV = `STATE_NAME,COUNTY_NAME,YEAR,Median Rent,FIPS
Virginia,Fairfax County,2019,1900.0,51059
Virginia,Fairfax County,2021,,51059
Alabama,Baldwin County,2019,850.5,01003
`

func TestFiles_Read(t *testing.T) {
	f, e := NewFiles()
	assert.Nil(t, e)

	tbl, e := f.Read(strings.NewReader(countyCSV))
	assert.Nil(t, e)
	assert.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, []DataTypes{DTstring, DTstring, DTint, DTfloat, DTstring}, tbl.ColumnTypes())

	// leading zeros are kept
	fips, _ := tbl.Column("FIPS")
	assert.Equal(t, "01003", fips.ElementString(2))

	rent, _ := tbl.Column("Median Rent")
	assert.True(t, rent.IsNull(1))
}

func TestFiles_FieldTypes(t *testing.T) {
	data := "YEAR,FIPS,x\n2019,51059,1\n2021,51061,2\n"

	f, e := NewFiles(FileFieldTypes(FieldTypes("x")))
	assert.Nil(t, e)

	tbl, e := f.Read(strings.NewReader(data))
	assert.Nil(t, e)
	assert.Equal(t, []DataTypes{DTint, DTstring, DTfloat}, tbl.ColumnTypes())

	_, e = NewFiles(FileFieldTypes(map[string]DataTypes{"x": DTunknown}))
	assert.NotNil(t, e)
}

func TestFiles_Strict(t *testing.T) {
	data := "a,b\n1,2\n3\n4,5\n"

	f, _ := NewFiles()
	_, e := f.Read(strings.NewReader(data))
	assert.NotNil(t, e)

	f, _ = NewFiles(FileStrict(false))
	tbl, e := f.Read(strings.NewReader(data))
	assert.Nil(t, e)
	assert.Equal(t, 2, tbl.RowCount())
}

func TestFiles_NoHeader(t *testing.T) {
	f, _ := NewFiles(FileHeader(false), FileFieldNames([]string{"a", "b"}), FileSep('|'))
	tbl, e := f.Read(strings.NewReader("x|1.5\ny|2\n"))
	assert.Nil(t, e)
	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
	assert.Equal(t, DTfloat, tbl.ColumnTypes()[1])
}

func TestFiles_Write(t *testing.T) {
	f, _ := NewFiles()
	tbl, e := f.Read(strings.NewReader(countyCSV))
	assert.Nil(t, e)

	var buf bytes.Buffer
	assert.Nil(t, f.Write(&buf, tbl))
	assert.Equal(t, countyCSV, buf.String())
}

func TestFiles_SaveAtomic(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "county.csv")

	f, _ := NewFiles()
	tbl, _ := f.Read(strings.NewReader(countyCSV))
	assert.Nil(t, f.SaveAtomic(fileName, tbl))

	b, e := os.ReadFile(fileName)
	assert.Nil(t, e)
	assert.Equal(t, countyCSV, string(b))

	// only the target is left behind
	entries, _ := os.ReadDir(dir)
	assert.Equal(t, 1, len(entries))

	back, e := f.FileLoad(fileName)
	assert.Nil(t, e)
	assert.Equal(t, tbl.ColumnNames(), back.ColumnNames())

	// a missing directory fails without creating anything
	assert.NotNil(t, f.SaveAtomic(filepath.Join(dir, "nope", "county.csv"), tbl))
}

func TestFiles_SaveTemp(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "county.csv")
	assert.Nil(t, os.WriteFile(fileName, []byte("old"), 0o644))

	f, _ := NewFiles()
	tbl, _ := f.Read(strings.NewReader(countyCSV))
	tmpName, e := f.SaveTemp(fileName, tbl)
	assert.Nil(t, e)
	assert.Equal(t, dir, filepath.Dir(tmpName))

	// the target is untouched until the caller renames
	b, _ := os.ReadFile(fileName)
	assert.Equal(t, "old", string(b))

	b, _ = os.ReadFile(tmpName)
	assert.Equal(t, countyCSV, string(b))

	info, e := os.Stat(tmpName)
	assert.Nil(t, e)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
