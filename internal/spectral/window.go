package spectral

import (
	"math"
	"time"
)

// tropicsLat bounds the band where a year-round composite is used.
const tropicsLat = 23.5

// SeasonWindow returns the acquisition window for a growing-season
// composite at the given latitude: the whole calendar year in the tropics,
// May through September in the north, and November of the previous year
// through March in the south.
func SeasonWindow(lat float64, year int) (from, to time.Time) {
	switch {
	case math.Abs(lat) < tropicsLat:
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)
	case lat >= 0:
		from = time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(year, time.September, 30, 23, 59, 59, 0, time.UTC)
	default:
		from = time.Date(year-1, time.November, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(year, time.March, 31, 23, 59, 59, 0, time.UTC)
	}
	return from, to
}

// ClampYear steps year back until its season window has closed by now, and
// never returns a year before firstYear.
func ClampYear(lat float64, year, firstYear int, now time.Time) int {
	for year > firstYear {
		if _, to := SeasonWindow(lat, year); !to.After(now) {
			break
		}
		year--
	}
	if year < firstYear {
		return firstYear
	}
	return year
}
