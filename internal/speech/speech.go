// Package speech renders weather observations as a short sentence suitable for text-to-speech.
package speech

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kjstillabower/jakesky/internal/models"
)

// ErrEmptyInput is returned by Format when there is no current reading to announce.
var ErrEmptyInput = errors.New("no observations to format")

// Format renders observations as spoken text. The first observation is the current reading and
// every later one is a forecast hour. When there is more than one sentence the last one is joined
// with "And".
func Format(obs []models.Observation) (string, error) {
	if len(obs) == 0 {
		return "", ErrEmptyInput
	}

	sentences := make([]string, 0, len(obs))
	sentences = append(sentences, fmt.Sprintf("It's currently %s.", SpeakableWeather(obs[0])))
	for _, o := range obs[1:] {
		sentences = append(sentences, fmt.Sprintf("At %s, it will be %s.", SpeakableTimestamp(o.Timestamp), SpeakableWeather(o)))
	}

	if n := len(sentences); n > 1 {
		sentences[n-1] = "And " + lowerFirst(sentences[n-1])
	}
	return strings.Join(sentences, " "), nil
}

// SpeakableTimestamp renders the hour of ts on a 12-hour clock, e.g. "9 AM", "noon" or "midnight".
func SpeakableTimestamp(ts time.Time) string {
	switch s := ts.Format("3 PM"); s {
	case "12 PM":
		return "noon"
	case "12 AM":
		return "midnight"
	default:
		return s
	}
}

// SpeakableWeather renders the temperature, truncated toward zero, and summary, e.g. "65 and Sunny".
func SpeakableWeather(o models.Observation) string {
	return fmt.Sprintf("%d and %s", int(math.Trunc(o.Temperature)), SpeakableSummary(o.Summary))
}

// SpeakableSummary adjusts provider summaries that read poorly after "it will be".
func SpeakableSummary(summary string) string {
	if strings.EqualFold(summary, "drizzle") {
		return "Drizzling"
	}
	return summary
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
