package countydata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// All code interacting with files is here

const (
	Sep    = ','
	Header = true
	Peek   = 1000
)

// Files reads and writes delimited text files with a header row.
type Files struct {
	sep    rune
	header bool
	peek   int
	strict bool

	fieldNames []string
	fieldTypes map[string]DataTypes

	file     *os.File
	fileName string
}

type FileOpt func(f *Files) error

func NewFiles(opts ...FileOpt) (*Files, error) {
	f := &Files{
		sep:    Sep,
		header: Header,
		peek:   Peek,
		strict: true,
	}

	for _, opt := range opts {
		if e := opt(f); e != nil {
			return nil, e
		}
	}

	return f, nil
}

// *********** Setters ***********

func FileSep(sep rune) FileOpt {
	return func(f *Files) error {
		if sep == '"' || sep == '\n' || sep == '\r' {
			return fmt.Errorf("illegal separator %q", sep)
		}

		f.sep = sep
		return nil
	}
}

func FileHeader(header bool) FileOpt {
	return func(f *Files) error {
		f.header = header
		return nil
	}
}

// FilePeek sets the number of rows examined to impute column types.
func FilePeek(rows int) FileOpt {
	return func(f *Files) error {
		if rows < 1 {
			return fmt.Errorf("peek must be positive")
		}

		f.peek = rows
		return nil
	}
}

// FileStrict makes malformed rows an error rather than skipping them.
func FileStrict(strict bool) FileOpt {
	return func(f *Files) error {
		f.strict = strict
		return nil
	}
}

// FileFieldNames supplies the field names for a file without a header.
func FileFieldNames(names []string) FileOpt {
	return func(f *Files) error {
		f.fieldNames = names
		return nil
	}
}

// FileFieldTypes fixes the types of the named fields; the rest are imputed.
func FileFieldTypes(types map[string]DataTypes) FileOpt {
	return func(f *Files) error {
		for k, dt := range types {
			if dt == DTunknown || dt > MaxDT {
				return fmt.Errorf("field %s: bad data type %s", k, dt)
			}
		}

		f.fieldTypes = types
		return nil
	}
}

// *********** Methods ***********

func (f *Files) Open(fileName string) error {
	var e error
	f.fileName = fileName
	f.file, e = os.Open(fileName)

	return e
}

func (f *Files) Create(fileName string) error {
	var e error
	f.fileName = fileName
	f.file, e = os.Create(fileName)

	return e
}

func (f *Files) FileName() string {
	return f.fileName
}

func (f *Files) Close() error {
	if f.file != nil {
		e := f.file.Close()
		f.file = nil

		return e
	}

	return fmt.Errorf("no open files")
}

// Load reads the open file into a table and closes it.
func (f *Files) Load() (*Table, error) {
	if f.file == nil {
		return nil, fmt.Errorf("no open file to Load")
	}

	defer func() { _ = f.Close() }()

	return f.Read(f.file)
}

// FileLoad opens and loads fileName.
func (f *Files) FileLoad(fileName string) (*Table, error) {
	if e := f.Open(fileName); e != nil {
		return nil, e
	}

	return f.Load()
}

func (f *Files) Read(r io.Reader) (*Table, error) {
	rdr := csv.NewReader(r)
	rdr.Comma = f.sep
	rdr.FieldsPerRecord = 0
	if !f.strict {
		rdr.FieldsPerRecord = -1
	}

	names := f.fieldNames
	if f.header {
		var (
			hdr []string
			e   error
		)
		if hdr, e = rdr.Read(); e != nil {
			return nil, fmt.Errorf("reading header of %s: %w", f.fileName, e)
		}

		if names == nil {
			names = hdr
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no field names for %s", f.fileName)
	}

	if u := Unique(names); len(u) != len(names) {
		return nil, fmt.Errorf("duplicate field names in %s", f.fileName)
	}

	var records [][]string
	for line := 1; ; line++ {
		rec, e := rdr.Read()
		if e == io.EOF {
			break
		}

		if e == nil && len(rec) != len(names) {
			e = fmt.Errorf("expected %d fields, got %d", len(names), len(rec))
		}

		if e != nil {
			if f.strict {
				return nil, fmt.Errorf("%s line %d: %w", f.fileName, line, e)
			}

			log.Printf("skipping line %d of %s: %v", line, f.fileName, e)
			continue
		}

		records = append(records, rec)
	}

	var cols []*Col
	for c, name := range names {
		dt, ok := f.fieldTypes[name]
		if !ok {
			dt = imputeType(records, c, f.peek)
		}

		v := MakeVector(dt, len(records))
		for row, rec := range records {
			if e := setElement(v, row, rec[c]); e != nil {
				if f.strict || dt == DTint {
					return nil, fmt.Errorf("%s field %s line %d: %w", f.fileName, name, row+1, e)
				}

				log.Printf("%s field %s line %d: %v, set to null", f.fileName, name, row+1, e)
				_ = setElement(v, row, "")
			}
		}

		var (
			col *Col
			e   error
		)
		if col, e = NewCol(v, dt, ColName(name)); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewTable(cols...)
}

// Save writes t to fileName, replacing any existing file.
func (f *Files) Save(fileName string, t *Table) error {
	if e := f.Create(fileName); e != nil {
		return e
	}

	if e := f.Write(f.file, t); e != nil {
		_ = f.Close()
		return e
	}

	return f.Close()
}

// SaveAtomic writes t to a temporary file alongside fileName and renames it into place, so fileName
// is either the complete new table or untouched.
func (f *Files) SaveAtomic(fileName string, t *Table) error {
	var (
		tmpName string
		e       error
	)
	if tmpName, e = f.SaveTemp(fileName, t); e != nil {
		return e
	}

	if e = os.Rename(tmpName, fileName); e != nil {
		_ = os.Remove(tmpName)
		return e
	}

	f.fileName = fileName

	return nil
}

// SaveTemp writes t to a new temporary file in the directory of fileName and returns its name. The
// caller renames it into place or removes it.
func (f *Files) SaveTemp(fileName string, t *Table) (string, error) {
	var (
		tmp *os.File
		e   error
	)
	if tmp, e = os.CreateTemp(filepath.Dir(fileName), "."+filepath.Base(fileName)+".*"); e != nil {
		return "", e
	}

	tmpName := tmp.Name()
	if e = f.Write(tmp, t); e == nil {
		e = tmp.Sync()
	}

	if e == nil {
		e = tmp.Chmod(0o644)
	}

	if ec := tmp.Close(); e == nil {
		e = ec
	}

	if e != nil {
		_ = os.Remove(tmpName)
		return "", e
	}

	return tmpName, nil
}

func (f *Files) Write(w io.Writer, t *Table) error {
	wrtr := csv.NewWriter(w)
	wrtr.Comma = f.sep

	if f.header {
		if e := wrtr.Write(t.ColumnNames()); e != nil {
			return e
		}
	}

	var cols []*Col
	for c := t.Next(true); c != nil; c = t.Next(false) {
		cols = append(cols, c)
	}

	rec := make([]string, len(cols))
	for row := 0; row < t.RowCount(); row++ {
		for ind, c := range cols {
			rec[ind] = c.ElementString(row)
		}

		if e := wrtr.Write(rec); e != nil {
			return e
		}
	}

	wrtr.Flush()

	return wrtr.Error()
}

// *********** Helpers ***********

// imputeType picks the narrowest type that holds the first peek non-empty values of field c.
// Codes with leading zeros stay strings.
func imputeType(records [][]string, c, peek int) DataTypes {
	isInt, isFloat, nulls, seen := true, true, false, 0
	for _, rec := range records {
		if seen >= peek {
			break
		}

		x := strings.TrimSpace(rec[c])
		if x == "" {
			nulls = true
			continue
		}
		seen++

		if _, e := strconv.ParseInt(x, 10, 64); e != nil {
			isInt = false
		} else if len(x) > 1 && x[0] == '0' {
			return DTstring
		}

		if _, e := strconv.ParseFloat(x, 64); e != nil {
			isFloat = false
		}
	}

	switch {
	case seen == 0:
		return DTfloat
	case isInt && !nulls:
		return DTint
	case isInt || isFloat:
		return DTfloat
	default:
		return DTstring
	}
}

func setElement(v *Vector, row int, x string) error {
	switch v.dt {
	case DTstring:
		v.data.([]string)[row] = x
	case DTfloat:
		if strings.TrimSpace(x) == "" {
			v.data.([]float64)[row] = math.NaN()
			return nil
		}

		xf, e := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if e != nil {
			return e
		}
		v.data.([]float64)[row] = xf
	case DTint:
		xi, ok := toInt(x)
		if !ok {
			return fmt.Errorf("cannot convert %q to int", x)
		}
		v.data.([]int)[row] = xi.(int)
	}

	return nil
}
