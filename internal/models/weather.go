package models

import "time"

// Observation is a single weather reading, either the current conditions or one forecast hour.
type Observation struct {
	Timestamp   time.Time `json:"timestamp"`
	Summary     string    `json:"summary"`
	Temperature float64   `json:"temperature"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type PostalAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// DeviceAddress is the registered address of a voice-assistant device, as the device API returns it.
type DeviceAddress struct {
	CountryCode   string `json:"countryCode"`
	AddressLine1  string `json:"addressLine1"`
	City          string `json:"city"`
	StateOrRegion string `json:"stateOrRegion"`
	PostalCode    string `json:"postalCode"`
}

// PostalAddress converts the device address into the shape the geocoder expects.
func (d DeviceAddress) PostalAddress() PostalAddress {
	return PostalAddress{
		Street:     d.AddressLine1,
		City:       d.City,
		State:      d.StateOrRegion,
		PostalCode: d.PostalCode,
	}
}
