// Package plot builds the dashboard's figures.
package plot

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/MetalBlueberry/go-plotly/offline"

	"github.com/invertedv/countydata/query"
)

// CountyGeoJSON is the county boundary file the choropleth draws on.
const CountyGeoJSON = "https://raw.githubusercontent.com/plotly/datasets/master/geojson-counties-fips.json"

type Plot struct {
	Fig *grob.Fig
	Lay *grob.Layout
}

type Opt func(plot *Plot) *Plot

func NewPlot(opt ...Opt) *Plot {
	fig := &grob.Fig{}
	lay := &grob.Layout{}
	fig.Layout = lay
	p := &Plot{Fig: fig, Lay: lay}
	for _, o := range opt {
		o(p)
	}

	return p
}

func WithTitle(title string) Opt {
	return func(p *Plot) *Plot { p.Lay.Title = &grob.LayoutTitle{Text: title}; return p }
}

func WithLegend(show bool) Opt {
	return func(p *Plot) *Plot {
		if show {
			p.Lay.Showlegend = grob.True
		} else {
			p.Lay.Showlegend = grob.False
		}

		return p
	}
}

func WithXlabel(label string) Opt {
	return func(p *Plot) *Plot {
		if p.Lay.Xaxis == nil {
			p.Lay.Xaxis = &grob.LayoutXaxis{}
		}

		p.Lay.Xaxis.Title = &grob.LayoutXaxisTitle{Text: label}
		return p
	}
}

func WithYlabel(label string) Opt {
	return func(p *Plot) *Plot {
		if p.Lay.Yaxis == nil {
			p.Lay.Yaxis = &grob.LayoutYaxis{}
		}

		p.Lay.Yaxis.Title = &grob.LayoutYaxisTitle{Text: label}
		return p
	}
}

// SeriesFigure is a line of the county's value by year.
func SeriesFigure(pts []query.Point, label string, opts ...Opt) (*Plot, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}

	var (
		x []int
		y []any
	)
	for _, pt := range pts {
		x = append(x, pt.Year)
		y = append(y, nullable(pt.Value))
	}

	title := fmt.Sprintf("%s, %s: %s", pts[0].County, pts[0].State, label)
	p := NewPlot(append([]Opt{WithTitle(title), WithXlabel("Year"), WithYlabel(label), WithLegend(false)}, opts...)...)

	p.Fig.AddTraces(&grob.Scatter{
		Type: grob.TraceTypeScatter,
		Name: label,
		X:    x,
		Y:    y,
		Mode: grob.ScatterModeLines + "+" + grob.ScatterModeMarkers,
	})

	return p, nil
}

// ChangeFigure is a bar chart of the year-over-year percent change of the series.
func ChangeFigure(pts []query.Point, label string, opts ...Opt) (*Plot, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}

	var (
		x []int
		y []any
	)
	for ind, pc := range query.PercentChanges(pts) {
		x = append(x, pts[ind].Year)
		y = append(y, nullable(pc))
	}

	title := fmt.Sprintf("%s, %s: percent change in %s", pts[0].County, pts[0].State, label)
	p := NewPlot(append([]Opt{WithTitle(title), WithXlabel("Year"), WithYlabel("Percent Change"), WithLegend(false)}, opts...)...)

	p.Fig.AddTraces(&grob.Bar{
		Type: grob.TraceTypeBar,
		Name: "Percent Change",
		X:    x,
		Y:    y,
	})

	return p, nil
}

// QuartileColors are the fills of the four quartiles, lowest first.
var QuartileColors = [4]string{"#ffffcc", "#a1dab4", "#41b6c4", "#225ea8"}

// MapFigure colors each county by its quartile of percent change. Each quartile is its own trace, in
// quartile order, so the legend names the bucket.
func MapFigure(entries []query.MapEntry, label string, opts ...Opt) (*Plot, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no counties to map")
	}

	var (
		buckets []int
		byQ     = make(map[int][]query.MapEntry)
	)
	for _, en := range entries {
		if en.Bucket < 0 || en.Bucket >= len(QuartileColors) {
			return nil, fmt.Errorf("county %s has quartile %d", en.FIPS, en.Bucket)
		}

		if _, ok := byQ[en.Bucket]; !ok {
			buckets = append(buckets, en.Bucket)
		}

		byQ[en.Bucket] = append(byQ[en.Bucket], en)
	}

	sort.Ints(buckets)

	p := NewPlot(append([]Opt{WithTitle("Percent change in " + label), WithLegend(true)}, opts...)...)
	p.Lay.Geo = &grob.LayoutGeo{Scope: grob.LayoutGeoScopeUsa}

	for _, q := range buckets {
		var (
			locs []string
			z    []int
			text []string
		)
		for _, en := range byQ[q] {
			locs = append(locs, en.FIPS)
			z = append(z, q)
			text = append(text, fmt.Sprintf("%s: %.1f%%", en.County, en.PercentChange))
		}

		color := QuartileColors[q]
		p.Fig.AddTraces(&grob.Choropleth{
			Type:       grob.TraceTypeChoropleth,
			Name:       byQ[q][0].Quartile,
			Geojson:    CountyGeoJSON,
			Locations:  locs,
			Z:          z,
			Text:       text,
			Colorscale: [][]any{{0, color}, {1, color}},
			Showscale:  grob.False,
		})
	}

	return p, nil
}

// Save writes the figure as a standalone HTML page.
func (p *Plot) Save(fileName string) error {
	if !strings.HasSuffix(strings.ToLower(fileName), ".html") {
		return fmt.Errorf("plots save as .html, got %s", fileName)
	}

	offline.ToHtml(p.Fig, fileName)

	return nil
}

// JSON is the plotly figure specification.
func (p *Plot) JSON() ([]byte, error) {
	return json.Marshal(p.Fig)
}

// nullable turns NaN into a gap in the plot.
func nullable(x float64) any {
	if math.IsNaN(x) {
		return nil
	}

	return x
}
