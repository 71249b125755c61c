// Package query answers the dashboard's questions about the persisted county table.
package query

import (
	"errors"
	"fmt"
	"sort"

	d "github.com/invertedv/countydata"
	"github.com/invertedv/countydata/labels"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAmbiguous    = errors.New("ambiguous")
	ErrUnknownLabel = errors.New("unknown variable label")
)

// Service holds the county table. The table is loaded once and never modified.
type Service struct {
	table  *d.Table
	labels labels.Map

	refYears [2]int

	states   []string
	counties []string
	fips     []string
	years    []int
}

// Point is one year of one county's value of a variable. Value is NaN when not reported.
type Point struct {
	State  string  `json:"state"`
	County string  `json:"county"`
	Year   int     `json:"year"`
	Value  float64 `json:"value"`
}

// New wraps a loaded table. The table must have the fixed columns and one float column per label.
func New(t *d.Table, lm labels.Map) (*Service, error) {
	if t == nil {
		return nil, fmt.Errorf("nil table")
	}

	need := append([]string{d.ColStateName, d.ColCountyName, d.ColYear, d.ColFIPS}, lm.UniqueLabels()...)
	if !t.HasColumns(need...) {
		return nil, fmt.Errorf("county table needs columns %v, has %v", need, t.ColumnNames())
	}

	s := &Service{table: t, labels: lm, refYears: d.RefYears}

	var e error
	if s.states, e = stringCol(t, d.ColStateName); e != nil {
		return nil, e
	}

	if s.counties, e = stringCol(t, d.ColCountyName); e != nil {
		return nil, e
	}

	if s.fips, e = stringCol(t, d.ColFIPS); e != nil {
		return nil, e
	}

	yc, _ := t.Column(d.ColYear)
	if s.years, e = yc.AsInt(); e != nil {
		return nil, fmt.Errorf("column %s: %w", d.ColYear, e)
	}

	for _, lbl := range lm.UniqueLabels() {
		c, _ := t.Column(lbl)
		if c.DataType() != d.DTfloat && c.DataType() != d.DTint {
			return nil, fmt.Errorf("column %s is %s, need a number", lbl, c.DataType())
		}
	}

	return s, nil
}

// Load reads the county file written by the builder.
func Load(fileName string, lm labels.Map) (*Service, error) {
	var (
		f *d.Files
		e error
	)
	if f, e = d.NewFiles(d.FileFieldTypes(d.FieldTypes(lm.UniqueLabels()...))); e != nil {
		return nil, e
	}

	var t *d.Table
	if t, e = f.FileLoad(fileName); e != nil {
		return nil, e
	}

	return New(t, lm)
}

// LoadDB reads the county table from a database.
func LoadDB(dlct *d.Dialect, tableName string, lm labels.Map) (*Service, error) {
	t, e := dlct.Load(fmt.Sprintf("SELECT * FROM %s", tableName))
	if e != nil {
		return nil, e
	}

	return New(t, lm)
}

// WithRefYears returns a copy of s that ranks on years instead of the default reference years.
func (s *Service) WithRefYears(years [2]int) *Service {
	sx := *s
	sx.refYears = years

	return &sx
}

func (s *Service) RefYears() [2]int {
	return s.refYears
}

func (s *Service) Table() *d.Table {
	return s.table
}

// States returns the distinct state names in table order.
func (s *Service) States() []string {
	return d.Unique(s.states)
}

// Counties returns the distinct county names of state, sorted.
func (s *Service) Counties(state string) ([]string, error) {
	var cs []string
	for row, st := range s.states {
		if st == state {
			cs = append(cs, s.counties[row])
		}
	}

	if cs == nil {
		return nil, fmt.Errorf("state %q: %w", state, ErrNotFound)
	}

	sort.Strings(cs)

	return d.Unique(cs), nil
}

// FIPS returns the code of the county. Exactly one code must match.
func (s *Service) FIPS(state, county string) (string, error) {
	var codes []string
	for _, row := range s.rows(state, county) {
		codes = append(codes, s.fips[row])
	}

	codes = d.Unique(codes)
	switch len(codes) {
	case 0:
		return "", fmt.Errorf("county %q, %q: %w", county, state, ErrNotFound)
	case 1:
		return codes[0], nil
	default:
		return "", fmt.Errorf("county %q, %q has FIPS codes %v: %w", county, state, codes, ErrAmbiguous)
	}
}

// Labels returns the variable labels in display order.
func (s *Service) Labels() []string {
	return s.labels.UniqueLabels()
}

func (s *Service) HoverFormat(label string) string {
	return s.labels.HoverFormat(label)
}

// Series returns the county's value of label for each survey year, ascending.
func (s *Service) Series(state, county, label string) ([]Point, error) {
	var (
		vals []float64
		e    error
	)
	if vals, e = s.values(label); e != nil {
		return nil, e
	}

	rows := s.rows(state, county)
	if rows == nil {
		return nil, fmt.Errorf("county %q, %q: %w", county, state, ErrNotFound)
	}

	var pts []Point
	for _, row := range rows {
		pts = append(pts, Point{State: state, County: county, Year: s.years[row], Value: vals[row]})
	}

	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Year < pts[j].Year })

	for ind := 1; ind < len(pts); ind++ {
		if pts[ind].Year == pts[ind-1].Year {
			return nil, fmt.Errorf("county %q, %q has two rows for %d: %w", county, state, pts[ind].Year, ErrAmbiguous)
		}
	}

	return pts, nil
}

// rows returns the row numbers of the county, in table order.
func (s *Service) rows(state, county string) []int {
	var rows []int
	for row := range s.states {
		if s.states[row] == state && s.counties[row] == county {
			rows = append(rows, row)
		}
	}

	return rows
}

func (s *Service) values(label string) ([]float64, error) {
	if !s.labels.HasLabel(label) {
		return nil, fmt.Errorf("%q: %w", label, ErrUnknownLabel)
	}

	c, e := s.table.Column(label)
	if e != nil {
		return nil, e
	}

	return c.AsFloat()
}

func stringCol(t *d.Table, name string) ([]string, error) {
	c, e := t.Column(name)
	if e != nil {
		return nil, e
	}

	x, e := c.AsString()
	if e != nil {
		return nil, fmt.Errorf("column %s: %w", name, e)
	}

	return x, nil
}
