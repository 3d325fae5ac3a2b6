package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStats(t *testing.T) {
	stats := parseStats(map[string]string{
		"visits":                 "7",
		"redirected":             "5",
		"late":                   "1",
		"trigger:deadline":       "2",
		"trigger:device_failure": "5",
		"source:ip":              "4",
		"source:gps":             "3",
		"country:France":         "6",
		"garbage":                "12",
		"visits_broken":          "x",
	})

	assert.Equal(t, int64(7), stats.Visits)
	assert.Equal(t, int64(5), stats.Redirected)
	assert.Equal(t, int64(1), stats.LateRecords)
	assert.Equal(t, map[string]int64{"deadline": 2, "device_failure": 5}, stats.Triggers)
	assert.Equal(t, map[string]int64{"ip": 4, "gps": 3}, stats.Sources)
	assert.Equal(t, map[string]int64{"France": 6}, stats.Countries)
}

func TestParseStats_Empty(t *testing.T) {
	stats := parseStats(nil)

	assert.Zero(t, stats.Visits)
	assert.NotNil(t, stats.Triggers)
	assert.NotNil(t, stats.Sources)
	assert.NotNil(t, stats.Countries)
}
