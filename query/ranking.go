package query

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	d "github.com/invertedv/countydata"
)

// Rank is one county's change in a variable between the reference years.
type Rank struct {
	County        string  `json:"county"`
	FIPS          string  `json:"fips"`
	Earlier       float64 `json:"earlier"`
	Later         float64 `json:"later"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	Rank          int     `json:"rank"`
}

// Ranking ranks every county on the percent change of label between the reference years, largest
// first. Counties missing either year, or with an earlier value of zero, are left out. Ties share a
// rank and the next distinct value gets the next rank.
func (s *Service) Ranking(label string) ([]Rank, error) {
	vals, e := s.values(label)
	if e != nil {
		return nil, e
	}

	type pair struct {
		name           string
		earlier, later float64
		hasE, hasL     bool
	}

	var (
		order []string
		pairs = make(map[string]*pair)
	)
	for row := range s.fips {
		yr := s.years[row]
		if yr != s.refYears[0] && yr != s.refYears[1] {
			continue
		}

		p, ok := pairs[s.fips[row]]
		if !ok {
			p = &pair{name: s.counties[row] + ", " + s.states[row]}
			pairs[s.fips[row]] = p
			order = append(order, s.fips[row])
		}

		if yr == s.refYears[0] {
			p.earlier, p.hasE = vals[row], true
		} else {
			p.later, p.hasL = vals[row], true
		}
	}

	var ranks []Rank
	for _, fips := range order {
		p := pairs[fips]
		if !p.hasE || !p.hasL || math.IsNaN(p.earlier) || math.IsNaN(p.later) || p.earlier == 0 {
			continue
		}

		ranks = append(ranks, Rank{
			County:        p.name,
			FIPS:          fips,
			Earlier:       p.earlier,
			Later:         p.later,
			Change:        p.later - p.earlier,
			PercentChange: Round1((p.later - p.earlier) / p.earlier * 100),
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].PercentChange > ranks[j].PercentChange })

	for ind := range ranks {
		switch {
		case ind == 0:
			ranks[ind].Rank = 1
		case ranks[ind].PercentChange == ranks[ind-1].PercentChange:
			ranks[ind].Rank = ranks[ind-1].Rank
		default:
			ranks[ind].Rank = ranks[ind-1].Rank + 1
		}
	}

	return ranks, nil
}

// Round1 rounds x to one decimal place, halves to even.
func Round1(x float64) float64 {
	return math.RoundToEven(x*10) / 10
}

// RankingText describes where the county falls in ranking.
func (s *Service) RankingText(state, county, label string, ranking []Rank) (string, error) {
	fips, e := s.FIPS(state, county)
	if e != nil {
		return "", e
	}

	lo, hi := s.refYears[0], s.refYears[1]
	for _, r := range ranking {
		if r.FIPS != fips {
			continue
		}

		return fmt.Sprintf("From %d to %d, %s, %s had a %.1f%% change in %s. "+
			"That ranks %d out of the %d counties with data.",
			lo, hi, county, state, r.PercentChange, label, r.Rank, ranking[len(ranking)-1].Rank), nil
	}

	return fmt.Sprintf("%s, %s cannot be ranked on %s: it has no usable value for %d or %d.",
		county, state, label, lo, hi), nil
}

// MapEntry places a county in a quartile of percent change, for the choropleth.
type MapEntry struct {
	FIPS          string  `json:"fips"`
	County        string  `json:"county"`
	PercentChange float64 `json:"percent_change"`
	Quartile      string  `json:"quartile"`
	// Bucket is the quartile index, 0 for the lowest changes.
	Bucket int `json:"bucket"`
}

// Mapping buckets the ranked counties into quartiles of percent change.
func (s *Service) Mapping(label string) ([]MapEntry, error) {
	ranks, e := s.Ranking(label)
	if e != nil {
		return nil, e
	}

	if len(ranks) == 0 {
		return nil, nil
	}

	pct := make([]float64, len(ranks))
	for ind, r := range ranks {
		pct[ind] = r.PercentChange
	}

	sort.Float64s(pct)
	cuts := []float64{pct[0]}
	for _, p := range []float64{0.25, 0.5, 0.75} {
		cuts = append(cuts, stat.Quantile(p, stat.LinInterp, pct, nil))
	}
	cuts = append(cuts, pct[len(pct)-1])

	var names []string
	for q := 0; q < 4; q++ {
		names = append(names, fmt.Sprintf("%.1f%% to %.1f%%", cuts[q], cuts[q+1]))
	}

	var entries []MapEntry
	for _, r := range ranks {
		q := 3
		for ind := 1; ind <= 3; ind++ {
			if r.PercentChange <= cuts[ind] {
				q = ind - 1
				break
			}
		}

		entries = append(entries, MapEntry{FIPS: r.FIPS, County: r.County, PercentChange: r.PercentChange, Quartile: names[q], Bucket: q})
	}

	return entries, nil
}

// PercentChanges gives the change from the prior point for each point of a series, in percent.
// The first point, and any point following a null or zero, is NaN.
func PercentChanges(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for ind := range pts {
		out[ind] = math.NaN()
		if ind == 0 {
			continue
		}

		prior := pts[ind-1].Value
		if math.IsNaN(prior) || prior == 0 {
			continue
		}

		out[ind] = (pts[ind].Value - prior) / prior * 100
	}

	return out
}

// RankingTable returns the ranking as a table with the dashboard's column names.
func RankingTable(ranks []Rank, refYears [2]int) (*d.Table, error) {
	n := len(ranks)
	county, earlier, later := make([]string, n), make([]float64, n), make([]float64, n)
	change, pct, rank := make([]float64, n), make([]float64, n), make([]int, n)
	for ind, r := range ranks {
		county[ind], earlier[ind], later[ind] = r.County, r.Earlier, r.Later
		change[ind], pct[ind], rank[ind] = r.Change, r.PercentChange, r.Rank
	}

	specs := []struct {
		name string
		data any
		dt   d.DataTypes
	}{
		{"County", county, d.DTstring},
		{fmt.Sprintf("%d", refYears[0]), earlier, d.DTfloat},
		{fmt.Sprintf("%d", refYears[1]), later, d.DTfloat},
		{"Change", change, d.DTfloat},
		{"Percent Change", pct, d.DTfloat},
		{"Rank", rank, d.DTint},
	}

	var cols []*d.Col
	for _, sp := range specs {
		c, e := d.NewCol(sp.data, sp.dt, d.ColName(sp.name))
		if e != nil {
			return nil, e
		}

		cols = append(cols, c)
	}

	return d.NewTable(cols...)
}

// MarshalJSON writes a null value as JSON null.
func (p Point) MarshalJSON() ([]byte, error) {
	type point struct {
		State  string   `json:"state"`
		County string   `json:"county"`
		Year   int      `json:"year"`
		Value  *float64 `json:"value"`
	}

	px := point{State: p.State, County: p.County, Year: p.Year}
	if !math.IsNaN(p.Value) {
		px.Value = &p.Value
	}

	return json.Marshal(px)
}
