package countydata

// Columns of the persisted county table. The variable columns, named by their display labels,
// sit between ColYear and ColFIPS.
const (
	ColStateName  = "STATE_NAME"
	ColCountyName = "COUNTY_NAME"
	ColYear       = "YEAR"
	ColFIPS       = "FIPS"
)

// RefYears are the survey years that define the stable county set and the before/after pair
// used for rankings.
var RefYears = [2]int{2019, 2021}

// FieldTypes are the types of the fixed columns of the persisted table. Variable columns are floats.
func FieldTypes(labels ...string) map[string]DataTypes {
	ft := map[string]DataTypes{
		ColStateName:  DTstring,
		ColCountyName: DTstring,
		ColYear:       DTint,
		ColFIPS:       DTstring,
	}

	for _, l := range labels {
		ft[l] = DTfloat
	}

	return ft
}
