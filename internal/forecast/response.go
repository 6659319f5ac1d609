package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

// ErrMalformedResponse is returned when a provider response lacks a required field or has one of the wrong type.
var ErrMalformedResponse = errors.New("malformed weather response")

// DataPoint is one reading from the provider: the current conditions or one hour of the forecast.
type DataPoint struct {
	Time        int64
	Summary     string
	Temperature float64
}

// Response is a validated provider response. Location is the zone named by Timezone.
type Response struct {
	Timezone  string
	Location  *time.Location
	Currently DataPoint
	Hourly    []DataPoint
}

type rawDataPoint struct {
	Time        *int64   `json:"time"`
	Summary     *string  `json:"summary"`
	Temperature *float64 `json:"temperature"`
}

type rawResponse struct {
	Timezone  *string       `json:"timezone"`
	Currently *rawDataPoint `json:"currently"`
	Hourly    *struct {
		Data *[]rawDataPoint `json:"data"`
	} `json:"hourly"`
}

// Decode parses a raw provider response. Any missing or mistyped required field is reported as
// ErrMalformedResponse; no attempt is made to recover a partial response.
func Decode(raw []byte) (*Response, error) {
	var r rawResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if r.Timezone == nil {
		return nil, fmt.Errorf("%w: missing timezone", ErrMalformedResponse)
	}
	// LoadLocation maps "" to UTC and "Local" to the caller's zone; neither names the forecast's.
	if *r.Timezone == "" || *r.Timezone == "Local" {
		return nil, fmt.Errorf("%w: timezone %q is not an IANA zone", ErrMalformedResponse, *r.Timezone)
	}
	loc, err := time.LoadLocation(*r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrMalformedResponse, *r.Timezone)
	}

	if r.Currently == nil {
		return nil, fmt.Errorf("%w: missing currently", ErrMalformedResponse)
	}
	current, err := r.Currently.validate("currently")
	if err != nil {
		return nil, err
	}

	if r.Hourly == nil || r.Hourly.Data == nil {
		return nil, fmt.Errorf("%w: missing hourly.data", ErrMalformedResponse)
	}
	hourly := make([]DataPoint, 0, len(*r.Hourly.Data))
	for i, p := range *r.Hourly.Data {
		dp, err := p.validate(fmt.Sprintf("hourly.data[%d]", i))
		if err != nil {
			return nil, err
		}
		hourly = append(hourly, dp)
	}

	return &Response{
		Timezone:  *r.Timezone,
		Location:  loc,
		Currently: current,
		Hourly:    hourly,
	}, nil
}

func (p rawDataPoint) validate(path string) (DataPoint, error) {
	switch {
	case p.Time == nil:
		return DataPoint{}, fmt.Errorf("%w: missing %s.time", ErrMalformedResponse, path)
	case p.Summary == nil:
		return DataPoint{}, fmt.Errorf("%w: missing %s.summary", ErrMalformedResponse, path)
	case p.Temperature == nil:
		return DataPoint{}, fmt.Errorf("%w: missing %s.temperature", ErrMalformedResponse, path)
	}
	return DataPoint{Time: *p.Time, Summary: *p.Summary, Temperature: *p.Temperature}, nil
}

// Now returns the time of the current reading in the response's timezone.
func (r *Response) Now() time.Time {
	return time.Unix(r.Currently.Time, 0).In(r.Location)
}
