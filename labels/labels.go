// Package labels maps display labels to census variable ids.
package labels

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	d "github.com/invertedv/countydata"
)

//go:embed labels.yaml
var defaultLabels []byte

const (
	FormatCount   = "count"
	FormatDollars = "dollars"
)

// Variable is one census variable and the label it is displayed under. From and To bound the survey
// years in which ID is used; zero means unbounded.
type Variable struct {
	Label  string `yaml:"label"`
	ID     string `yaml:"id"`
	From   int    `yaml:"from,omitempty"`
	To     int    `yaml:"to,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Map is the ordered list of variables. The order is the display order.
type Map []Variable

type file struct {
	Variables Map `yaml:"variables"`
}

// Default returns the label map compiled into the package.
func Default() Map {
	m, e := Parse(defaultLabels)
	if e != nil {
		panic(fmt.Errorf("embedded labels.yaml: %w", e))
	}

	return m
}

// Load reads a label map from a YAML file.
func Load(path string) (Map, error) {
	var (
		b []byte
		e error
	)
	if b, e = os.ReadFile(path); e != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, e)
	}

	return Parse(b)
}

func Parse(b []byte) (Map, error) {
	var f file
	if e := yaml.Unmarshal(b, &f); e != nil {
		return nil, fmt.Errorf("parse labels: %w", e)
	}

	if e := f.Variables.Validate(); e != nil {
		return nil, e
	}

	return f.Variables, nil
}

// Validate checks that every variable has a label and id, ids are unique, year ranges are sane,
// a label keeps one format, and no two ids of one label are active in the same year.
func (m Map) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("no variables in label map")
	}

	ids := make(map[string]bool)
	formats := make(map[string]string)
	for _, v := range m {
		if strings.TrimSpace(v.Label) == "" || strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("variable with empty label or id: %+v", v)
		}

		if ids[v.ID] {
			return fmt.Errorf("duplicate variable id %s", v.ID)
		}
		ids[v.ID] = true

		if v.From != 0 && v.To != 0 && v.From > v.To {
			return fmt.Errorf("variable %s: from %d after to %d", v.ID, v.From, v.To)
		}

		switch v.Format {
		case "", FormatCount, FormatDollars:
		default:
			return fmt.Errorf("variable %s: unknown format %s", v.ID, v.Format)
		}

		if f, ok := formats[v.Label]; ok && f != v.Format {
			return fmt.Errorf("label %s has formats %s and %s", v.Label, f, v.Format)
		}
		formats[v.Label] = v.Format
	}

	for ind, v := range m {
		for _, w := range m[ind+1:] {
			if v.Label == w.Label && overlap(v, w) {
				return fmt.Errorf("label %s: ids %s and %s overlap in years", v.Label, v.ID, w.ID)
			}
		}
	}

	return nil
}

// Active reports whether the variable's id is used in year.
func (v Variable) Active(year int) bool {
	return (v.From == 0 || year >= v.From) && (v.To == 0 || year <= v.To)
}

// IDsForYear returns the ids to request for year, in map order.
func (m Map) IDsForYear(year int) []string {
	var ids []string
	for _, v := range m {
		if v.Active(year) {
			ids = append(ids, v.ID)
		}
	}

	return ids
}

// IDs returns every id in map order.
func (m Map) IDs() []string {
	var ids []string
	for _, v := range m {
		ids = append(ids, v.ID)
	}

	return ids
}

// UniqueLabels returns the distinct labels in the order they first appear.
func (m Map) UniqueLabels() []string {
	var lbls []string
	for _, v := range m {
		lbls = append(lbls, v.Label)
	}

	return d.Unique(lbls)
}

// Rename maps each id to its label.
func (m Map) Rename() map[string]string {
	r := make(map[string]string, len(m))
	for _, v := range m {
		r[v.ID] = v.Label
	}

	return r
}

func (m Map) LabelFor(id string) (string, bool) {
	for _, v := range m {
		if v.ID == id {
			return v.Label, true
		}
	}

	return "", false
}

func (m Map) HasLabel(label string) bool {
	for _, v := range m {
		if v.Label == label {
			return true
		}
	}

	return false
}

// Split returns the labels backed by more than one id, each with its ids in map order.
func (m Map) Split() map[string][]string {
	byLabel := make(map[string][]string)
	for _, v := range m {
		byLabel[v.Label] = append(byLabel[v.Label], v.ID)
	}

	out := make(map[string][]string)
	for lbl, ids := range byLabel {
		if len(ids) > 1 {
			out[lbl] = ids
		}
	}

	return out
}

// HoverFormat is the d3 number format used when hovering over label's values.
func (m Map) HoverFormat(label string) string {
	for _, v := range m {
		if v.Label == label && v.Format == FormatDollars {
			return ":$,"
		}
	}

	return ":,"
}

func overlap(v, w Variable) bool {
	lo1, hi1 := bounds(v)
	lo2, hi2 := bounds(w)

	return lo1 <= hi2 && lo2 <= hi1
}

func bounds(v Variable) (lo, hi int) {
	lo, hi = v.From, v.To
	if hi == 0 {
		hi = 1 << 30
	}

	return lo, hi
}
