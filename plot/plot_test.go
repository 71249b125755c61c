package plot

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invertedv/countydata/query"
)

var pts = []query.Point{
	{State: "Virginia", County: "Fairfax County", Year: 2018, Value: 90},
	{State: "Virginia", County: "Fairfax County", Year: 2019, Value: math.NaN()},
	{State: "Virginia", County: "Fairfax County", Year: 2021, Value: 150},
}

// figure decodes the plot's JSON so tests can look at it without depending on plotly's Go types.
func figure(t *testing.T, p *Plot) map[string]any {
	js, e := p.JSON()
	assert.Nil(t, e)

	var fig map[string]any
	assert.Nil(t, json.Unmarshal(js, &fig))

	return fig
}

func TestSeriesFigure(t *testing.T) {
	p, e := SeriesFigure(pts, "Median Rent")
	assert.Nil(t, e)

	fig := figure(t, p)
	data := fig["data"].([]any)
	assert.Equal(t, 1, len(data))

	trace := data[0].(map[string]any)
	assert.Equal(t, "scatter", trace["type"])
	assert.Equal(t, []any{2018.0, 2019.0, 2021.0}, trace["x"])
	assert.Equal(t, []any{90.0, nil, 150.0}, trace["y"])

	title := fig["layout"].(map[string]any)["title"].(map[string]any)
	assert.Equal(t, "Fairfax County, Virginia: Median Rent", title["text"])

	_, e = SeriesFigure(nil, "Median Rent")
	assert.NotNil(t, e)
}

func TestChangeFigure(t *testing.T) {
	more := append([]query.Point{}, pts...)
	more[1].Value = 100

	p, e := ChangeFigure(more, "Median Rent", WithTitle("Rent growth"))
	assert.Nil(t, e)

	fig := figure(t, p)
	trace := fig["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "bar", trace["type"])
	y := trace["y"].([]any)
	assert.Nil(t, y[0])
	assert.InDelta(t, 11.111, y[1].(float64), 1e-3)
	assert.InDelta(t, 50.0, y[2].(float64), 1e-9)

	// options given by the caller win
	title := fig["layout"].(map[string]any)["title"].(map[string]any)
	assert.Equal(t, "Rent growth", title["text"])
}

func TestMapFigure(t *testing.T) {
	// ranking order: highest change first
	entries := []query.MapEntry{
		{FIPS: "51059", County: "Fairfax County, Virginia", PercentChange: 50, Quartile: "20.4% to 50.0%", Bucket: 3},
		{FIPS: "01003", County: "Baldwin County, Alabama", PercentChange: 10.5, Quartile: "3.6% to 20.4%", Bucket: 2},
		{FIPS: "51013", County: "Arlington County, Virginia", PercentChange: 12, Quartile: "3.6% to 20.4%", Bucket: 2},
		{FIPS: "01001", County: "Autauga County, Alabama", PercentChange: -3.2, Quartile: "-3.2% to 0.1%", Bucket: 0},
	}

	p, e := MapFigure(entries, "Median Rent")
	assert.Nil(t, e)

	fig := figure(t, p)
	data := fig["data"].([]any)
	assert.Equal(t, 3, len(data))

	// traces run from the lowest quartile up, each a single color without its own colorbar
	var names, colors []string
	for _, tr := range data {
		trace := tr.(map[string]any)
		assert.Equal(t, "choropleth", trace["type"])
		assert.Equal(t, false, trace["showscale"])
		names = append(names, trace["name"].(string))

		scale := trace["colorscale"].([]any)
		lo, hi := scale[0].([]any), scale[1].([]any)
		assert.Equal(t, lo[1], hi[1])
		colors = append(colors, lo[1].(string))
	}

	assert.Equal(t, []string{"-3.2% to 0.1%", "3.6% to 20.4%", "20.4% to 50.0%"}, names)
	assert.Equal(t, []string{"#ffffcc", "#41b6c4", "#225ea8"}, colors)

	second := data[1].(map[string]any)
	assert.Equal(t, []any{"01003", "51013"}, second["locations"])
	assert.Equal(t, CountyGeoJSON, second["geojson"])

	geo := fig["layout"].(map[string]any)["geo"].(map[string]any)
	assert.Equal(t, "usa", geo["scope"])

	_, e = MapFigure(nil, "Median Rent")
	assert.NotNil(t, e)

	_, e = MapFigure([]query.MapEntry{{FIPS: "01001", Bucket: 4}}, "Median Rent")
	assert.NotNil(t, e)
}

func TestPlot_Save(t *testing.T) {
	p, _ := SeriesFigure(pts, "Median Rent", WithXlabel("Survey Year"), WithLegend(true))

	fileName := filepath.Join(t.TempDir(), "rent.html")
	assert.Nil(t, p.Save(fileName))

	info, e := os.Stat(fileName)
	assert.Nil(t, e)
	assert.True(t, info.Size() > 0)

	assert.NotNil(t, p.Save(filepath.Join(t.TempDir(), "rent.png")))
}
