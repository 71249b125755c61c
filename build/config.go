package build

import (
	"fmt"

	d "github.com/invertedv/countydata"
	"github.com/invertedv/countydata/labels"
)

// The ACS 1-year estimates start in 2005. 2020 was not released because of the pandemic.
const (
	StartYear = 2005
	EndYear   = 2022
)

var SkipYears = []int{2020}

// Config fixes the survey years and variables of a build.
type Config struct {
	StartYear int
	EndYear   int
	SkipYears []int

	// RefYears define the stable county set: counties present in both years.
	RefYears [2]int

	Labels labels.Map
}

func DefaultConfig() Config {
	return Config{
		StartYear: StartYear,
		EndYear:   EndYear,
		SkipYears: SkipYears,
		RefYears:  d.RefYears,
		Labels:    labels.Default(),
	}
}

// Years are the survey years to download, ascending.
func (c Config) Years() []int {
	var years []int
	for year := c.StartYear; year <= c.EndYear; year++ {
		if !d.Has(year, c.SkipYears) {
			years = append(years, year)
		}
	}

	return years
}

func (c Config) Validate() error {
	if c.StartYear > c.EndYear {
		return fmt.Errorf("start year %d after end year %d", c.StartYear, c.EndYear)
	}

	if len(c.Years()) == 0 {
		return fmt.Errorf("no survey years between %d and %d", c.StartYear, c.EndYear)
	}

	for _, ry := range c.RefYears {
		if d.Has(ry, c.SkipYears) {
			return fmt.Errorf("reference year %d is a skipped year", ry)
		}
	}

	if c.RefYears[0] >= c.RefYears[1] {
		return fmt.Errorf("reference years must be increasing: %v", c.RefYears)
	}

	return c.Labels.Validate()
}
