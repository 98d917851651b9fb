package metoffice

import (
	"strconv"
	"strings"
)

const unknown = "Unknown"

// weatherTypes maps DataPoint significant weather codes. Code 4 is not used upstream.
var weatherTypes = map[int]string{
	0:  "Clear night",
	1:  "Sunny day",
	2:  "Partly cloudy (night)",
	3:  "Partly cloudy (day)",
	5:  "Mist",
	6:  "Fog",
	7:  "Cloudy",
	8:  "Overcast",
	9:  "Light rain shower (night)",
	10: "Light rain shower (day)",
	11: "Drizzle",
	12: "Light rain",
	13: "Heavy rain shower (night)",
	14: "Heavy rain shower (day)",
	15: "Heavy rain",
	16: "Sleet shower (night)",
	17: "Sleet shower (day)",
	18: "Sleet",
	19: "Hail shower (night)",
	20: "Hail shower (day)",
	21: "Hail",
	22: "Light snow shower (night)",
	23: "Light snow shower (day)",
	24: "Light snow",
	25: "Heavy snow shower (night)",
	26: "Heavy snow shower (day)",
	27: "Heavy snow",
	28: "Thunder shower (night)",
	29: "Thunder shower (day)",
	30: "Thunder",
}

var visibilities = map[string]string{
	"UN": "Unknown",
	"VP": "Very poor - less than 1km",
	"PO": "Poor - between 1-4km",
	"MO": "Moderate - between 4-10km",
	"GO": "Good - between 10-20km",
	"VG": "Very good - between 20-40km",
	"EX": "Excellent - more than 40km",
}

// WeatherType describes a significant weather code.
func WeatherType(code string) string {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return unknown
	}
	if d, ok := weatherTypes[n]; ok {
		return d
	}
	return unknown
}

// Visibility describes a visibility band code.
func Visibility(code string) string {
	if d, ok := visibilities[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return d
	}
	return unknown
}

// UVBand describes a UV index.
func UVBand(index int) string {
	switch {
	case index < 0:
		return unknown
	case index <= 2:
		return "Low exposure"
	case index <= 5:
		return "Moderate exposure"
	case index <= 7:
		return "High exposure"
	case index <= 10:
		return "Very high exposure"
	default:
		return "Extreme exposure"
	}
}
