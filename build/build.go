// Package build downloads county statistics for every survey year, reconciles them and writes the
// table the query service reads.
//
// The raw data has known problems, which Run repairs:
//
//  1. Counties come and go. Only counties present in both reference years are kept, for every year.
//  2. Some variables changed id over the period (e.g. "worked from home" moved from B08006_021E to
//     B08006_017E). The ids of such a label are merged into one column.
//  3. Changes like 2 are easy to miss, so the census labels each variable carried over the years are
//     reported for inspection.
package build

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	d "github.com/invertedv/countydata"
	"github.com/invertedv/countydata/acs"
)

// columns of the intermediate table that do not survive to the output
const (
	colName   = acs.ColName
	colState  = acs.ColState
	colCounty = acs.ColCounty
)

// Publisher copies the persisted file somewhere the dashboard can reach it.
type Publisher interface {
	PublishFile(ctx context.Context, key, path string) error
}

// Builder runs the download-and-reconcile pipeline.
type Builder struct {
	provider acs.Provider
	cfg      Config
	progress io.Writer

	checkLabels bool

	dialect *d.Dialect
	dbTable string

	publisher  Publisher
	publishKey string
}

type Opt func(b *Builder) error

func New(provider acs.Provider, cfg Config, opts ...Opt) (*Builder, error) {
	if provider == nil {
		return nil, fmt.Errorf("nil provider")
	}

	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	b := &Builder{
		provider:    provider,
		cfg:         cfg,
		progress:    io.Discard,
		checkLabels: true,
	}

	for _, opt := range opts {
		if e := opt(b); e != nil {
			return nil, e
		}
	}

	return b, nil
}

// WithProgress sends operator progress messages to w.
func WithProgress(w io.Writer) Opt {
	return func(b *Builder) error {
		if w == nil {
			return fmt.Errorf("nil progress writer")
		}

		b.progress = w
		return nil
	}
}

// WithLabelCheck turns the variable label report on or off. It needs a provider that is an acs.Labeler.
func WithLabelCheck(check bool) Opt {
	return func(b *Builder) error {
		b.checkLabels = check
		return nil
	}
}

// WithDialect also saves the table to tableName in a database.
func WithDialect(dlct *d.Dialect, tableName string) Opt {
	return func(b *Builder) error {
		if dlct == nil || tableName == "" {
			return fmt.Errorf("WithDialect needs a dialect and a table name")
		}

		b.dialect, b.dbTable = dlct, tableName
		return nil
	}
}

// WithPublisher uploads the persisted file under key.
func WithPublisher(p Publisher, key string) Opt {
	return func(b *Builder) error {
		if p == nil || key == "" {
			return fmt.Errorf("WithPublisher needs a publisher and a key")
		}

		b.publisher, b.publishKey = p, key
		return nil
	}
}

// Build runs the pipeline and persists the result to outFile and the optional sinks. Every output is
// staged first (a temp file beside outFile, a staging database table) and the file is published from
// its staged copy. The staged outputs replace the live ones only after all of them succeed; on any
// error they are removed and outFile and the database table are left as they were.
func (b *Builder) Build(ctx context.Context, outFile string) (*d.Table, error) {
	var (
		t *d.Table
		e error
	)
	if t, e = b.Run(ctx); e != nil {
		return nil, e
	}

	var f *d.Files
	if f, e = d.NewFiles(); e != nil {
		return nil, e
	}

	var tmpFile string
	if tmpFile, e = f.SaveTemp(outFile, t); e != nil {
		return nil, fmt.Errorf("save %s: %w", outFile, e)
	}

	var staged string
	committed := false
	defer func() {
		if committed {
			return
		}

		_ = os.Remove(tmpFile)
		if staged != "" {
			_ = b.dialect.DropTable(staged)
		}
	}()

	if b.dialect != nil {
		if staged, e = b.dialect.Stage(t, b.dbTable, []string{d.ColFIPS, d.ColYear}); e != nil {
			return nil, fmt.Errorf("save table %s: %w", b.dbTable, e)
		}
	}

	if b.publisher != nil {
		if e = b.publisher.PublishFile(ctx, b.publishKey, tmpFile); e != nil {
			return nil, fmt.Errorf("publish %s: %w", outFile, e)
		}

		fmt.Fprintf(b.progress, "Published %s as %s.\n", outFile, b.publishKey)
	}

	if b.dialect != nil {
		if e = b.dialect.Commit(staged, b.dbTable); e != nil {
			return nil, fmt.Errorf("save table %s: %w", b.dbTable, e)
		}

		fmt.Fprintf(b.progress, "Saved table %s to %s.\n", b.dbTable, b.dialect.DialectName())
	}

	if e = os.Rename(tmpFile, outFile); e != nil {
		return nil, fmt.Errorf("save %s: %w", outFile, e)
	}

	committed = true
	fmt.Fprintf(b.progress, "Wrote %d rows to %s.\n", t.RowCount(), outFile)

	return t, nil
}

// Run downloads and reconciles the data, returning the final table.
func (b *Builder) Run(ctx context.Context) (*d.Table, error) {
	var (
		t *d.Table
		e error
	)

	if t, e = b.download(ctx); e != nil {
		return nil, e
	}

	var stable map[string]bool
	if stable, e = b.stableCounties(ctx); e != nil {
		return nil, e
	}

	if t, e = keepStable(t, stable); e != nil {
		return nil, e
	}

	fmt.Fprintf(b.progress, "After keeping only those counties there are %d rows with %d unique counties.\n",
		t.RowCount(), countCounties(t))

	if e = t.Sort(true, colState, colCounty, d.ColYear); e != nil {
		return nil, e
	}

	if b.checkLabels {
		if lb, ok := b.provider.(acs.Labeler); ok {
			b.reportLabels(ctx, lb)
		}
	}

	return b.reconcile(t)
}

// download fetches every survey year and stacks the results.
func (b *Builder) download(ctx context.Context) (*d.Table, error) {
	fmt.Fprint(b.progress, "Generating data. Please wait.\n")
	start := time.Now()

	var all *d.Table
	for _, year := range b.cfg.Years() {
		fmt.Fprint(b.progress, ".")

		var (
			t *d.Table
			e error
		)
		if t, e = b.provider.Fetch(ctx, year, b.cfg.Labels.IDsForYear(year)); e != nil {
			return nil, e
		}

		if e = addNames(t, year); e != nil {
			return nil, fmt.Errorf("year %d: %w", year, e)
		}

		if all == nil {
			all = t
			continue
		}

		if all, e = all.AppendRows(t); e != nil {
			return nil, fmt.Errorf("year %d: %w", year, e)
		}
	}

	fmt.Fprintf(b.progress, "\nGenerating all historic data took %.1f seconds.\n", time.Since(start).Seconds())
	fmt.Fprintf(b.progress, "The resulting table has %d rows with %d unique counties.\n", all.RowCount(), countCounties(all))

	return all, nil
}

// addNames adds the county and state name columns and the survey year.
func addNames(t *d.Table, year int) error {
	if !t.HasColumns(colName, colState, colCounty) {
		return fmt.Errorf("provider table missing one of %s, %s, %s", colName, colState, colCounty)
	}

	nameCol, _ := t.Column(colName)
	names, e := nameCol.AsString()
	if e != nil {
		return e
	}

	counties := make([]string, len(names))
	states := make([]string, len(names))
	for ind, nm := range names {
		if counties[ind], states[ind], e = acs.SplitName(nm); e != nil {
			return e
		}
	}

	years := make([]int, len(names))
	for ind := range years {
		years[ind] = year
	}

	for _, add := range []struct {
		name string
		data any
		dt   d.DataTypes
	}{
		{d.ColCountyName, counties, d.DTstring},
		{d.ColStateName, states, d.DTstring},
		{d.ColYear, years, d.DTint},
	} {
		var col *d.Col
		if col, e = d.NewCol(add.data, add.dt, d.ColName(add.name)); e != nil {
			return e
		}

		if e = t.AppendColumn(col); e != nil {
			return e
		}
	}

	return nil
}

// stableCounties returns the region names present in both reference years.
func (b *Builder) stableCounties(ctx context.Context) (map[string]bool, error) {
	var sets []map[string]bool
	for _, year := range b.cfg.RefYears {
		t, e := b.provider.Fetch(ctx, year, nil)
		if e != nil {
			return nil, e
		}

		col, e := t.Column(colName)
		if e != nil {
			return nil, fmt.Errorf("reference year %d: %w", year, e)
		}

		names, e := col.AsString()
		if e != nil {
			return nil, e
		}

		set := make(map[string]bool, len(names))
		for _, nm := range names {
			set[nm] = true
		}

		sets = append(sets, set)
	}

	both := make(map[string]bool)
	for nm := range sets[0] {
		if sets[1][nm] {
			both[nm] = true
		}
	}

	fmt.Fprintf(b.progress, "%d counties appear in both %d and %d.\n", len(both), b.cfg.RefYears[0], b.cfg.RefYears[1])

	return both, nil
}

func keepStable(t *d.Table, stable map[string]bool) (*d.Table, error) {
	col, e := t.Column(colName)
	if e != nil {
		return nil, e
	}

	return t.Filter(func(row int) bool { return stable[col.ElementString(row)] })
}

// reportLabels prints every distinct census label each variable carried over the survey years.
func (b *Builder) reportLabels(ctx context.Context, lb acs.Labeler) {
	report := b.LabelReport(ctx, lb)

	fmt.Fprint(b.progress, "\nThe unique labels used for each variable in the table.\n")
	fmt.Fprint(b.progress, "Check that no variable was used for completely different things over the years!\n")
	for _, v := range b.cfg.Labels {
		lbls := report[v.ID]
		fmt.Fprintf(b.progress, "%s (%s):\n", v.ID, v.Label)
		for _, l := range lbls {
			fmt.Fprintf(b.progress, "    %s\n", l)
		}

		if len(lbls) > 1 {
			fmt.Fprintf(b.progress, "    ** %s had %d different labels\n", v.ID, len(lbls))
		}
	}
}

// LabelReport collects the distinct census labels of each variable over the years it is requested,
// in the order first seen. Lookup failures are logged and skipped.
func (b *Builder) LabelReport(ctx context.Context, lb acs.Labeler) map[string][]string {
	report := make(map[string][]string)
	for _, v := range b.cfg.Labels {
		var lbls []string
		for _, year := range b.cfg.Years() {
			if !v.Active(year) {
				continue
			}

			l, e := lb.VariableLabel(ctx, year, v.ID)
			if e != nil {
				log.Printf("label lookup for %s in %d failed: %v", v.ID, year, e)
				continue
			}

			lbls = append(lbls, l)
		}

		report[v.ID] = d.Unique(lbls)
	}

	return report
}

// reconcile merges split variables, renames ids to labels, orders the columns and adds FIPS.
func (b *Builder) reconcile(t *d.Table) (*d.Table, error) {
	split := b.cfg.Labels.Split()
	for _, lbl := range b.cfg.Labels.UniqueLabels() {
		ids, ok := split[lbl]
		if !ok {
			continue
		}

		if e := mergeSplit(t, lbl, ids); e != nil {
			return nil, e
		}
	}

	if e := t.Rename(b.cfg.Labels.Rename()); e != nil {
		return nil, e
	}

	n := t.RowCount()
	for _, lbl := range b.cfg.Labels.UniqueLabels() {
		if t.HasColumns(lbl) {
			continue
		}

		// a label with no id in any survey year
		col, e := d.NewCol(d.NullVector(d.DTfloat, n), d.DTfloat, d.ColName(lbl))
		if e != nil {
			return nil, e
		}

		if e := t.AppendColumn(col); e != nil {
			return nil, e
		}
	}

	fips, e := fipsColumn(t)
	if e != nil {
		return nil, e
	}

	order := append([]string{d.ColStateName, d.ColCountyName, d.ColYear}, b.cfg.Labels.UniqueLabels()...)

	var out *d.Table
	if out, e = t.KeepColumns(order...); e != nil {
		return nil, e
	}

	if e = out.AppendColumn(fips); e != nil {
		return nil, e
	}

	if e = checkUnique(out); e != nil {
		return nil, e
	}

	return out, nil
}

// fipsColumn concatenates the state and county codes.
func fipsColumn(t *d.Table) (*d.Col, error) {
	st, e := t.Column(colState)
	if e != nil {
		return nil, e
	}

	co, e := t.Column(colCounty)
	if e != nil {
		return nil, e
	}

	fips := make([]string, t.RowCount())
	for ind := range fips {
		fips[ind] = st.ElementString(ind) + co.ElementString(ind)
	}

	return d.NewCol(fips, d.DTstring, d.ColName(d.ColFIPS))
}

// checkUnique verifies (FIPS, YEAR) identifies a row.
func checkUnique(t *d.Table) error {
	fc, e := t.Column(d.ColFIPS)
	if e != nil {
		return e
	}

	yc, e := t.Column(d.ColYear)
	if e != nil {
		return e
	}

	seen := make(map[string]bool, t.RowCount())
	for row := 0; row < t.RowCount(); row++ {
		key := fc.ElementString(row) + "/" + yc.ElementString(row)
		if seen[key] {
			return fmt.Errorf("duplicate row for FIPS %s in %s", fc.ElementString(row), yc.ElementString(row))
		}

		seen[key] = true
	}

	return nil
}

func countCounties(t *d.Table) int {
	st, e1 := t.Column(colState)
	co, e2 := t.Column(colCounty)
	if e1 != nil || e2 != nil {
		return 0
	}

	seen := make(map[string]bool)
	for row := 0; row < t.RowCount(); row++ {
		seen[st.ElementString(row)+co.ElementString(row)] = true
	}

	return len(seen)
}
