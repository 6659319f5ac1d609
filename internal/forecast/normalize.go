package forecast

import (
	"slices"
	"time"

	"github.com/kjstillabower/jakesky/internal/models"
)

// Options controls which forecast hours Normalize keeps.
type Options struct {
	// Hours are the candidate hours of interest; DefaultHours when empty.
	Hours []int
	// WeekendExtra adds WeekendExtraHour on Friday and Saturday.
	WeekendExtra bool
}

func (o Options) candidates() []int {
	if len(o.Hours) == 0 {
		return DefaultHours
	}
	return o.Hours
}

// Normalize turns a decoded response into the observations to announce. The current reading
// always comes first. Hourly entries follow in provider order, limited to the rest of today,
// skipping the current hour and keeping only the hours of interest.
func Normalize(resp *Response, opts Options) []models.Observation {
	now := resp.Now()
	hours := SelectHours(now, opts.candidates(), opts.WeekendExtra)

	obs := []models.Observation{{
		Timestamp:   now,
		Summary:     resp.Currently.Summary,
		Temperature: resp.Currently.Temperature,
	}}

	for _, p := range resp.Hourly {
		ts := time.Unix(p.Time, 0).In(resp.Location)
		if dateAfter(ts, now) {
			break
		}
		if ts.Hour() == now.Hour() {
			continue
		}
		if slices.Contains(hours, ts.Hour()) {
			obs = append(obs, models.Observation{
				Timestamp:   ts,
				Summary:     p.Summary,
				Temperature: p.Temperature,
			})
		}
	}
	return obs
}

// dateAfter reports whether a falls on a later calendar date than b. Both must share a location.
func dateAfter(a, b time.Time) bool {
	if a.Year() != b.Year() {
		return a.Year() > b.Year()
	}
	return a.YearDay() > b.YearDay()
}
