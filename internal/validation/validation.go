package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/jakesky/internal/models"
)

// ErrAddressEmpty is returned when an address is empty or whitespace-only after trim.
var ErrAddressEmpty = errors.New("address is required")

// ErrAddressTooLong is returned when an address exceeds the maximum length.
var ErrAddressTooLong = errors.New("address too long")

// ErrAddressInvalidChars is returned when an address contains disallowed characters.
var ErrAddressInvalidChars = errors.New("address contains invalid characters")

// ErrCoordinatesInvalid is returned when a latitude or longitude is not a number.
var ErrCoordinatesInvalid = errors.New("coordinates must be numeric")

// ErrCoordinatesOutOfRange is returned when latitude is outside [-90,90] or longitude outside [-180,180].
var ErrCoordinatesOutOfRange = errors.New("coordinates out of range")

var validate = validator.New()

// ValidateAddress trims the input, enforces maxLen (in runes, 0 = unbounded) and restricts the
// address to letters, digits, whitespace and the punctuation found in postal addresses.
// Splitting into street, city, state and postal code is left to the location package.
func ValidateAddress(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrAddressEmpty
	}
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrAddressTooLong
	}
	for _, c := range r {
		if !isAllowedAddressRune(c) {
			return "", ErrAddressInvalidChars
		}
	}
	return s, nil
}

func isAllowedAddressRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', '-', '.', '#', '\'', '/':
		return true
	}
	return false
}

// ValidateCoordinates checks that c lies on the globe.
func ValidateCoordinates(c models.Coordinates) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrCoordinatesOutOfRange, err)
	}
	return nil
}

// ParseCoordinates parses a latitude/longitude pair from strings, e.g. query parameters.
func ParseCoordinates(lat, lon string) (models.Coordinates, error) {
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: latitude %q", ErrCoordinatesInvalid, lat)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: longitude %q", ErrCoordinatesInvalid, lon)
	}
	c := models.Coordinates{Latitude: latitude, Longitude: longitude}
	if err := ValidateCoordinates(c); err != nil {
		return models.Coordinates{}, err
	}
	return c, nil
}
