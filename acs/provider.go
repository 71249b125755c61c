// Package acs fetches county-level observations from the American Community Survey.
package acs

import (
	"context"
	"fmt"
	"strings"

	d "github.com/invertedv/countydata"
)

// Columns of the tables returned by a Provider, ahead of the requested variables.
const (
	ColName   = "NAME"
	ColState  = "STATE"
	ColCounty = "COUNTY"
)

// Provider returns one row per county for year. The table has the columns NAME, STATE, COUNTY
// followed by one float column per requested variable; missing values are null.
type Provider interface {
	Fetch(ctx context.Context, year int, vars []string) (*d.Table, error)
}

// Labeler is implemented by providers that can describe a variable as it was defined in a year.
type Labeler interface {
	VariableLabel(ctx context.Context, year int, id string) (string, error)
}

// AllStatesAndDC are the FIPS codes of the 50 states and the District of Columbia.
var AllStatesAndDC = []string{
	"01", "02", "04", "05", "06", "08", "09", "10", "11", "12",
	"13", "15", "16", "17", "18", "19", "20", "21", "22", "23",
	"24", "25", "26", "27", "28", "29", "30", "31", "32", "33",
	"34", "35", "36", "37", "38", "39", "40", "41", "42", "44",
	"45", "46", "47", "48", "49", "50", "51", "53", "54", "55",
	"56",
}

// SplitName splits "Autauga County, Alabama" into its county and state parts.
func SplitName(name string) (county, state string, err error) {
	parts := strings.SplitN(name, ", ", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot split region name %q into county and state", name)
	}

	return parts[0], parts[1], nil
}
