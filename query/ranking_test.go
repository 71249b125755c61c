package query

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_Ranking(t *testing.T) {
	s := testService(t)

	ranks, e := s.Ranking("Median Rent")
	assert.Nil(t, e)

	// Arlington has a zero 2019 value and Mobile a null one; both are left out
	var fips []string
	for _, r := range ranks {
		fips = append(fips, r.FIPS)
	}
	assert.Equal(t, []string{"51059", "01003", "01001"}, fips)

	assert.Equal(t, Rank{County: "Fairfax County, Virginia", FIPS: "51059", Earlier: 100, Later: 150,
		Change: 50, PercentChange: 50, Rank: 1}, ranks[0])
	assert.Equal(t, 10.5, ranks[1].PercentChange)
	assert.Equal(t, -3.2, ranks[2].PercentChange)
	assert.Equal(t, []int{1, 2, 3}, []int{ranks[0].Rank, ranks[1].Rank, ranks[2].Rank})

	_, e = s.Ranking("Median Cats")
	assert.ErrorIs(t, e, ErrUnknownLabel)
}

func TestService_Ranking_Ties(t *testing.T) {
	rows := []row{
		{"A", "One", "01001", 2019, 100, 1},
		{"A", "One", "01001", 2021, 110, 1},
		{"A", "Two", "01002", 2019, 200, 1},
		{"A", "Two", "01002", 2021, 220, 1},
		{"A", "Three", "01003", 2019, 100, 1},
		{"A", "Three", "01003", 2021, 105, 1},
	}
	s, e := New(makeTable(t, rows), testLabels(t))
	assert.Nil(t, e)

	ranks, e := s.Ranking("Median Rent")
	assert.Nil(t, e)
	assert.Equal(t, []int{1, 1, 2}, []int{ranks[0].Rank, ranks[1].Rank, ranks[2].Rank})
	// ties keep table order
	assert.Equal(t, "01001", ranks[0].FIPS)
	assert.Equal(t, "01002", ranks[1].FIPS)
}

func TestService_WithRefYears(t *testing.T) {
	s := testService(t).WithRefYears([2]int{2018, 2021})
	assert.Equal(t, [2]int{2018, 2021}, s.RefYears())

	ranks, e := s.Ranking("Median Rent")
	assert.Nil(t, e)
	assert.Equal(t, 1, len(ranks))
	assert.Equal(t, 66.7, ranks[0].PercentChange)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 50.0, Round1(50))
	assert.Equal(t, -3.2, Round1(-3.2))
	assert.Equal(t, 0.2, Round1(0.25))
	assert.Equal(t, 66.7, Round1(200.0/3))
}

func TestService_RankingText(t *testing.T) {
	s := testService(t)
	ranks, _ := s.Ranking("Median Rent")

	txt, e := s.RankingText("Virginia", "Fairfax County", "Median Rent", ranks)
	assert.Nil(t, e)
	assert.Equal(t, "From 2019 to 2021, Fairfax County, Virginia had a 50.0% change in Median Rent. "+
		"That ranks 1 out of the 3 counties with data.", txt)

	txt, e = s.RankingText("Virginia", "Arlington County", "Median Rent", ranks)
	assert.Nil(t, e)
	assert.Contains(t, txt, "cannot be ranked")

	_, e = s.RankingText("Virginia", "Nowhere", "Median Rent", ranks)
	assert.ErrorIs(t, e, ErrNotFound)
}

func TestService_Mapping(t *testing.T) {
	s := testService(t)

	entries, e := s.Mapping("Median Rent")
	assert.Nil(t, e)
	assert.Equal(t, 3, len(entries))

	byFIPS := make(map[string]MapEntry)
	for _, en := range entries {
		byFIPS[en.FIPS] = en
	}

	// the largest change is in the top bucket, the smallest in the bottom one
	assert.True(t, strings.HasPrefix(byFIPS["01001"].Quartile, "-3.2% to "))
	assert.True(t, strings.HasSuffix(byFIPS["51059"].Quartile, " to 50.0%"))
	assert.NotEqual(t, byFIPS["01001"].Quartile, byFIPS["51059"].Quartile)
	assert.Equal(t, 0, byFIPS["01001"].Bucket)
	assert.Equal(t, 3, byFIPS["51059"].Bucket)
}

func TestPercentChanges(t *testing.T) {
	pts := []Point{{Year: 2017, Value: 100}, {Year: 2018, Value: 110}, {Year: 2019, Value: math.NaN()},
		{Year: 2021, Value: 50}, {Year: 2022, Value: 0}, {Year: 2023, Value: 5}}

	pc := PercentChanges(pts)
	assert.True(t, math.IsNaN(pc[0]))
	assert.InDelta(t, 10.0, pc[1], 1e-9)
	assert.True(t, math.IsNaN(pc[2]))
	assert.True(t, math.IsNaN(pc[3]))
	assert.Equal(t, -100.0, pc[4])
	assert.True(t, math.IsNaN(pc[5]))
}

func TestRankingTable(t *testing.T) {
	s := testService(t)
	ranks, _ := s.Ranking("Median Rent")

	tbl, e := RankingTable(ranks, s.RefYears())
	assert.Nil(t, e)
	assert.Equal(t, []string{"County", "2019", "2021", "Change", "Percent Change", "Rank"}, tbl.ColumnNames())
	assert.Equal(t, 3, tbl.RowCount())
}

func TestPoint_MarshalJSON(t *testing.T) {
	b, e := json.Marshal(Point{State: "Alabama", County: "Baldwin County", Year: 2019, Value: math.NaN()})
	assert.Nil(t, e)
	assert.JSONEq(t, `{"state":"Alabama","county":"Baldwin County","year":2019,"value":null}`, string(b))

	b, e = json.Marshal(Point{Year: 2021, Value: 221})
	assert.Nil(t, e)
	assert.JSONEq(t, `{"state":"","county":"","year":2021,"value":221}`, string(b))
}
