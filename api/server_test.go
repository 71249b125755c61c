package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	d "github.com/invertedv/countydata"
	"github.com/invertedv/countydata/labels"
	"github.com/invertedv/countydata/query"
)

func testServer(t *testing.T) *httptest.Server {
	lm, e := labels.Parse([]byte("variables:\n  - {label: Median Rent, id: B25064_001E, format: dollars}\n"))
	assert.Nil(t, e)

	cols := []struct {
		name string
		data any
		dt   d.DataTypes
	}{
		{d.ColStateName, []string{"Virginia", "Virginia", "Maryland", "Maryland"}, d.DTstring},
		{d.ColCountyName, []string{"Fairfax County", "Fairfax County", "Prince George's County", "Prince George's County"}, d.DTstring},
		{d.ColYear, []int{2019, 2021, 2019, 2021}, d.DTint},
		{"Median Rent", []float64{100, 150, 200, 190}, d.DTfloat},
		{d.ColFIPS, []string{"51059", "51059", "24033", "24033"}, d.DTstring},
	}

	var cs []*d.Col
	for _, c := range cols {
		col, e := d.NewCol(c.data, c.dt, d.ColName(c.name))
		assert.Nil(t, e)
		cs = append(cs, col)
	}

	tbl, e := d.NewTable(cs...)
	assert.Nil(t, e)

	svc, e := query.New(tbl, lm)
	assert.Nil(t, e)

	srv := httptest.NewServer(NewServer("", svc).Handler())
	t.Cleanup(srv.Close)

	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, target any) int {
	resp, e := http.Get(srv.URL + path)
	assert.Nil(t, e)
	defer func() { _ = resp.Body.Close() }()

	if target != nil {
		assert.Nil(t, json.NewDecoder(resp.Body).Decode(target))
	}

	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	srv := testServer(t)

	var out map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/health", &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, 4.0, out["rows"])
}

func TestServer_States(t *testing.T) {
	srv := testServer(t)

	var states []string
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/states", &states))
	assert.Equal(t, []string{"Virginia", "Maryland"}, states)

	var counties []string
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/states/Maryland/counties", &counties))
	assert.Equal(t, []string{"Prince George's County"}, counties)

	var errOut map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/states/Narnia/counties", &errOut))
	assert.Contains(t, errOut["error"], "not found")
}

func TestServer_FIPS(t *testing.T) {
	srv := testServer(t)

	var out map[string]string
	path := "/api/v1/states/Maryland/counties/" + url.PathEscape("Prince George's County") + "/fips"
	assert.Equal(t, http.StatusOK, get(t, srv, path, &out))
	assert.Equal(t, "24033", out["fips"])

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/v1/states/Maryland/counties/Nowhere/fips", nil))
}

func TestServer_Series(t *testing.T) {
	srv := testServer(t)

	var pts []map[string]any
	path := "/api/v1/states/Virginia/counties/" + url.PathEscape("Fairfax County") + "/series?label=" + url.QueryEscape("Median Rent")
	assert.Equal(t, http.StatusOK, get(t, srv, path, &pts))
	assert.Equal(t, 2, len(pts))
	assert.Equal(t, 2019.0, pts[0]["year"])
	assert.Equal(t, 100.0, pts[0]["value"])

	path = "/api/v1/states/Virginia/counties/" + url.PathEscape("Fairfax County") + "/series?label=Cats"
	assert.Equal(t, http.StatusBadRequest, get(t, srv, path, nil))
}

func TestServer_Ranking(t *testing.T) {
	srv := testServer(t)

	var ranks []query.Rank
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/ranking?label="+url.QueryEscape("Median Rent"), &ranks))
	assert.Equal(t, 2, len(ranks))
	assert.Equal(t, "51059", ranks[0].FIPS)
	assert.Equal(t, 50.0, ranks[0].PercentChange)
	assert.Equal(t, -5.0, ranks[1].PercentChange)

	var text map[string]string
	path := "/api/v1/states/Virginia/counties/" + url.PathEscape("Fairfax County") + "/rank?label=" + url.QueryEscape("Median Rent")
	assert.Equal(t, http.StatusOK, get(t, srv, path, &text))
	assert.Contains(t, text["text"], "ranks 1 out of the 2")

	var entries []query.MapEntry
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/mapping?label="+url.QueryEscape("Median Rent"), &entries))
	assert.Equal(t, 2, len(entries))

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/v1/ranking?label=Cats", nil))
}

func TestServer_Labels(t *testing.T) {
	srv := testServer(t)

	var out []map[string]string
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/labels", &out))
	assert.Equal(t, []map[string]string{{"label": "Median Rent", "hover_format": ":$,"}}, out)
}

func TestServer_Plots(t *testing.T) {
	srv := testServer(t)
	base := "/api/v1/states/Virginia/counties/" + url.PathEscape("Fairfax County") + "/plot?label=" + url.QueryEscape("Median Rent")

	var fig map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv, base, &fig))
	assert.Equal(t, "scatter", fig["data"].([]any)[0].(map[string]any)["type"])

	fig = nil
	assert.Equal(t, http.StatusOK, get(t, srv, base+"&kind=change", &fig))
	assert.Equal(t, "bar", fig["data"].([]any)[0].(map[string]any)["type"])

	assert.Equal(t, http.StatusBadRequest, get(t, srv, base+"&kind=pie", nil))

	fig = nil
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/v1/mapping/plot?label="+url.QueryEscape("Median Rent"), &fig))
	assert.Equal(t, "choropleth", fig["data"].([]any)[0].(map[string]any)["type"])
}

func TestParam(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/counties/{county}", func(w http.ResponseWriter, req *http.Request) {
		got = param(req, "county")
	})

	tests := []struct {
		target string
		want   string
	}{
		{"/counties/Prince%20George's%20County", "Prince George's County"},
		// a literal percent sign is decoded once
		{"/counties/50%2541%20County", "50%41 County"},
		{"/counties/Anne%20Arundel%2FCounty", "Anne Arundel/County"},
	}

	for _, tc := range tests {
		got = ""
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, nil))
		assert.Equal(t, http.StatusOK, w.Code, tc.target)
		assert.Equal(t, tc.want, got, tc.target)
	}
}
