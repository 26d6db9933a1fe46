package spectral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeasonWindow(t *testing.T) {
	tests := []struct {
		name     string
		lat      float64
		from, to string
	}{
		{"tropics", 5, "2022-01-01", "2022-12-31"},
		{"north", 47.6, "2022-05-01", "2022-09-30"},
		{"south", -33.9, "2021-11-01", "2022-03-31"},
		{"tropic edge south", -23.5, "2021-11-01", "2022-03-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := SeasonWindow(tt.lat, 2022)
			assert.Equal(t, tt.from, from.Format(time.DateOnly))
			assert.Equal(t, tt.to, to.Format(time.DateOnly))
			assert.True(t, to.After(from))
		})
	}
}

func TestClampYear(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2024, ClampYear(45, 2025, 2017, now), "northern season still open")
	assert.Equal(t, 2025, ClampYear(-35, 2025, 2017, now), "southern season closed in March")
	assert.Equal(t, 2024, ClampYear(0, 2025, 2017, now))
	assert.Equal(t, 2020, ClampYear(45, 2020, 2017, now))
	assert.Equal(t, 2017, ClampYear(45, 2012, 2017, now))
	assert.Equal(t, 2024, ClampYear(45, 2030, 2017, now))
}
