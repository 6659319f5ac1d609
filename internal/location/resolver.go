// Package location resolves the coordinates a forecast is fetched for.
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/jakesky/internal/models"
	"github.com/kjstillabower/jakesky/internal/observability"
	"github.com/kjstillabower/jakesky/internal/validation"
)

var (
	ErrMissingLocation   = errors.New("location is required")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrGeocoding         = errors.New("geocoding failed")
	ErrUnsupportedRegion = errors.New("unsupported region")
)

// DefaultCountryCode is the only device country the address heuristics and geocoder support.
const DefaultCountryCode = "US"

// Geocoder looks up candidate coordinates for a postal address.
type Geocoder interface {
	Geocode(ctx context.Context, addr models.PostalAddress) ([]models.Coordinates, error)
}

// DeviceLocator fetches the registered address of a voice-assistant device.
type DeviceLocator interface {
	DeviceAddress(ctx context.Context, apiEndpoint, deviceID, accessToken string) (models.DeviceAddress, error)
}

// Source is one of Explicit, AddressString or Device.
type Source interface {
	isSource()
}

// Explicit carries coordinates supplied by the caller. A nil field means it was not supplied.
type Explicit struct {
	Latitude  *float64
	Longitude *float64
}

// AddressString is a one-line postal address; see SplitAddressString.
type AddressString string

// Device identifies a voice-assistant device and the credentials to look up its address.
type Device struct {
	DeviceID    string
	APIEndpoint string
	AccessToken string
}

func (Explicit) isSource()      {}
func (AddressString) isSource() {}
func (Device) isSource()        {}

// Resolver turns a Source into coordinates, calling the geocoder and device API as needed.
type Resolver struct {
	geocoder    Geocoder
	devices     DeviceLocator
	countryCode string
}

// NewResolver creates a Resolver. Either collaborator may be nil when its mode is not used;
// countryCode defaults to DefaultCountryCode.
func NewResolver(geocoder Geocoder, devices DeviceLocator, countryCode string) *Resolver {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &Resolver{
		geocoder:    geocoder,
		devices:     devices,
		countryCode: countryCode,
	}
}

// Resolve dispatches on the kind of src.
func (r *Resolver) Resolve(ctx context.Context, src Source) (models.Coordinates, error) {
	switch s := src.(type) {
	case Explicit:
		return r.ResolveExplicit(s)
	case AddressString:
		return r.ResolveAddress(ctx, string(s))
	case Device:
		return r.ResolveDevice(ctx, s)
	case nil:
		return models.Coordinates{}, ErrMissingLocation
	default:
		return models.Coordinates{}, fmt.Errorf("unsupported location source %T", src)
	}
}

// ResolveExplicit passes supplied coordinates through unchanged.
func (r *Resolver) ResolveExplicit(e Explicit) (models.Coordinates, error) {
	if e.Latitude == nil || e.Longitude == nil {
		return models.Coordinates{}, fmt.Errorf("%w: latitude and longitude are both required", ErrMissingLocation)
	}
	c := models.Coordinates{Latitude: *e.Latitude, Longitude: *e.Longitude}
	if err := validation.ValidateCoordinates(c); err != nil {
		return models.Coordinates{}, err
	}
	return c, nil
}

// ResolveAddress splits a one-line address and geocodes it.
func (r *Resolver) ResolveAddress(ctx context.Context, address string) (models.Coordinates, error) {
	if strings.TrimSpace(address) == "" {
		return models.Coordinates{}, fmt.Errorf("%w: address is empty", ErrMissingLocation)
	}
	addr, err := SplitAddressString(address)
	if err != nil {
		return models.Coordinates{}, err
	}
	return r.geocode(ctx, addr)
}

// ResolveDevice looks up the device's registered address and geocodes it.
func (r *Resolver) ResolveDevice(ctx context.Context, d Device) (models.Coordinates, error) {
	if d.DeviceID == "" || d.APIEndpoint == "" || d.AccessToken == "" {
		return models.Coordinates{}, fmt.Errorf("%w: device id, api endpoint and access token are required", ErrMissingLocation)
	}
	if r.devices == nil {
		return models.Coordinates{}, fmt.Errorf("%w: no device locator configured", ErrMissingLocation)
	}

	da, err := r.devices.DeviceAddress(ctx, d.APIEndpoint, d.DeviceID, d.AccessToken)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("device address: %w", err)
	}
	if !strings.EqualFold(da.CountryCode, r.countryCode) {
		return models.Coordinates{}, fmt.Errorf("%w: country %q, expected %q", ErrUnsupportedRegion, da.CountryCode, r.countryCode)
	}
	return r.geocode(ctx, da.PostalAddress())
}

func (r *Resolver) geocode(ctx context.Context, addr models.PostalAddress) (models.Coordinates, error) {
	if r.geocoder == nil {
		return models.Coordinates{}, fmt.Errorf("%w: no geocoder configured", ErrGeocoding)
	}
	logger := observability.LoggerFromContext(ctx)
	logger.Debug("geocoding address",
		zap.String("street", addr.Street),
		zap.String("city", addr.City),
		zap.String("state", addr.State),
		zap.String("postal_code", addr.PostalCode))

	results, err := r.geocoder.Geocode(ctx, addr)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("geocode: %w", err)
	}
	if len(results) != 1 {
		return models.Coordinates{}, fmt.Errorf("%w: expected 1 result, got %d", ErrGeocoding, len(results))
	}
	logger.Debug("geocoded address", zap.Float64("latitude", results[0].Latitude), zap.Float64("longitude", results[0].Longitude))
	return results[0], nil
}
