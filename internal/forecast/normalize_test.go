package forecast

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", name, err)
	}
	return loc
}

func point(ts time.Time, summary string, temp float64) map[string]interface{} {
	return map[string]interface{}{
		"time":        ts.Unix(),
		"summary":     summary,
		"temperature": temp,
	}
}

// buildResponse returns a provider response with the current reading at now and one hourly entry
// per hour from now's hour through the given number of hours.
func buildResponse(t *testing.T, tz string, now time.Time, hours int) []byte {
	t.Helper()
	start := now.Truncate(time.Hour)
	var data []map[string]interface{}
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		data = append(data, point(ts, "Hour", float64(ts.Hour())))
	}
	raw, err := json.Marshal(map[string]interface{}{
		"timezone":  tz,
		"currently": point(now, "Clear", 50.9),
		"hourly":    map[string]interface{}{"data": data},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return raw
}

// TestNormalize_SelectsHoursOfInterest verifies that the current reading comes first, followed only
// by today's hours of interest, and that entries on the next day are dropped.
func TestNormalize_SelectsHoursOfInterest(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	now := time.Date(2017, time.December, 4, 9, 30, 0, 0, loc)
	resp, err := Decode(buildResponse(t, "America/New_York", now, 48))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	obs := Normalize(resp, Options{Hours: testHours})

	if len(obs) != 3 {
		t.Fatalf("Normalize() returned %d observations, want 3: %+v", len(obs), obs)
	}
	if !obs[0].Timestamp.Equal(now) || obs[0].Summary != "Clear" || obs[0].Temperature != 50.9 {
		t.Errorf("obs[0] = %+v, want current reading", obs[0])
	}
	wantHours := []int{12, 18}
	for i, h := range wantHours {
		got := obs[i+1]
		if got.Timestamp.Hour() != h {
			t.Errorf("obs[%d].Timestamp hour = %d, want %d", i+1, got.Timestamp.Hour(), h)
		}
		if got.Timestamp.Day() != 4 {
			t.Errorf("obs[%d] on day %d, want 4", i+1, got.Timestamp.Day())
		}
	}
}

// TestNormalize_SkipsCurrentHour verifies that an hourly entry sharing the current hour is never
// repeated even when it is a candidate hour.
func TestNormalize_SkipsCurrentHour(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	now := time.Date(2017, time.December, 4, 6, 10, 0, 0, loc)
	resp, err := Decode(buildResponse(t, "America/New_York", now, 6))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	obs := Normalize(resp, Options{Hours: []int{6, 8, 12, 18}})

	for _, o := range obs[1:] {
		if o.Timestamp.Hour() == 6 {
			t.Errorf("Normalize() included current hour entry %+v", o)
		}
	}
	if len(obs) != 2 || obs[1].Timestamp.Hour() != 8 {
		t.Errorf("Normalize() = %+v, want current plus 8 AM", obs)
	}
}

// TestNormalize_UsesResponseTimezone verifies that hours are evaluated in the zone named by the
// response rather than the process's local zone.
func TestNormalize_UsesResponseTimezone(t *testing.T) {
	loc := mustLoad(t, "America/Los_Angeles")
	now := time.Date(2017, time.December, 4, 5, 0, 0, 0, loc)
	resp, err := Decode(buildResponse(t, "America/Los_Angeles", now, 24))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	obs := Normalize(resp, Options{})

	if len(obs) != 4 {
		t.Fatalf("Normalize() returned %d observations, want 4: %+v", len(obs), obs)
	}
	for i, h := range []int{8, 12, 18} {
		if got := obs[i+1].Timestamp; got.Hour() != h || got.Location().String() != "America/Los_Angeles" {
			t.Errorf("obs[%d].Timestamp = %v, want hour %d in America/Los_Angeles", i+1, got, h)
		}
	}
}

// TestNormalize_WeekendExtra verifies that the weekend hour is only added when enabled.
func TestNormalize_WeekendExtra(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	friday := time.Date(2017, time.December, 8, 19, 0, 0, 0, loc)
	resp, err := Decode(buildResponse(t, "America/New_York", friday, 10))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if obs := Normalize(resp, Options{WeekendExtra: false}); len(obs) != 1 {
		t.Errorf("Normalize(weekendExtra=false) = %+v, want only current", obs)
	}
	obs := Normalize(resp, Options{WeekendExtra: true})
	if len(obs) != 2 || obs[1].Timestamp.Hour() != WeekendExtraHour {
		t.Errorf("Normalize(weekendExtra=true) = %+v, want current plus 22", obs)
	}
}

// TestDecode_Malformed verifies that missing or mistyped required fields fail with ErrMalformedResponse.
func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"missing timezone", `{"currently":{"time":1,"summary":"x","temperature":1},"hourly":{"data":[]}}`},
		{"unknown timezone", `{"timezone":"Mars/Olympus","currently":{"time":1,"summary":"x","temperature":1},"hourly":{"data":[]}}`},
		{"empty timezone", `{"timezone":"","currently":{"time":1,"summary":"x","temperature":1},"hourly":{"data":[]}}`},
		{"caller-local timezone", `{"timezone":"Local","currently":{"time":1,"summary":"x","temperature":1},"hourly":{"data":[]}}`},
		{"timezone wrong type", `{"timezone":5,"currently":{"time":1,"summary":"x","temperature":1},"hourly":{"data":[]}}`},
		{"missing currently", `{"timezone":"UTC","hourly":{"data":[]}}`},
		{"missing currently.time", `{"timezone":"UTC","currently":{"summary":"x","temperature":1},"hourly":{"data":[]}}`},
		{"missing currently.summary", `{"timezone":"UTC","currently":{"time":1,"temperature":1},"hourly":{"data":[]}}`},
		{"missing currently.temperature", `{"timezone":"UTC","currently":{"time":1,"summary":"x"},"hourly":{"data":[]}}`},
		{"temperature wrong type", `{"timezone":"UTC","currently":{"time":1,"summary":"x","temperature":"hot"},"hourly":{"data":[]}}`},
		{"missing hourly", `{"timezone":"UTC","currently":{"time":1,"summary":"x","temperature":1}}`},
		{"missing hourly.data", `{"timezone":"UTC","currently":{"time":1,"summary":"x","temperature":1},"hourly":{}}`},
		{"hourly.data wrong type", `{"timezone":"UTC","currently":{"time":1,"summary":"x","temperature":1},"hourly":{"data":{}}}`},
		{"hourly entry missing time", `{"timezone":"UTC","currently":{"time":1,"summary":"x","temperature":1},"hourly":{"data":[{"summary":"x","temperature":1}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("Decode() error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

// TestDecode_EmptyHourly verifies that an empty hourly list is valid and yields only the current reading.
func TestDecode_EmptyHourly(t *testing.T) {
	resp, err := Decode([]byte(`{"timezone":"UTC","currently":{"time":0,"summary":"Fog","temperature":40},"hourly":{"data":[]}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	obs := Normalize(resp, Options{})
	if len(obs) != 1 || obs[0].Summary != "Fog" {
		t.Errorf("Normalize() = %+v, want single current reading", obs)
	}
}
