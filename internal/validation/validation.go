package validation

import (
	"errors"
	"strings"
	"unicode"
)

// MaxLocationLen bounds a configured location name, in runes.
const MaxLocationLen = 64

// ErrLocationTooLong is returned when a location name exceeds MaxLocationLen.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when a location name contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrCoordinateRange is returned when a latitude or longitude is out of range.
var ErrCoordinateRange = errors.New("coordinate out of range")

// ValidateLocation trims a configured location name and checks it is short
// enough to sit in a segment header. Letters, digits, space, comma, period,
// apostrophe and hyphen are allowed. An empty result is valid and means the
// source default.
func ValidateLocation(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) > MaxLocationLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '.', '\'', '-':
		return true
	}
	return false
}

// ValidateCoordinates checks whichever of lat and lon are set.
func ValidateCoordinates(lat, lon *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return ErrCoordinateRange
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return ErrCoordinateRange
	}
	return nil
}
