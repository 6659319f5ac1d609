package forecast

import (
	"sort"
	"time"
)

// DefaultHours are the hours of the day announced in a forecast: morning, midday and evening.
var DefaultHours = []int{8, 12, 18}

// WeekendExtraHour is announced in addition to the candidate hours on Friday and Saturday.
const WeekendExtraHour = 22

// SelectHours returns the candidate hours still worth announcing at now, in ascending order.
// An hour qualifies only if it is more than one hour after the current hour, so the current and
// immediately following hours are never repeated. Once one candidate qualifies, every later
// candidate does too. Returns nil when nothing qualifies. candidates is not modified.
func SelectHours(now time.Time, candidates []int, weekendExtra bool) []int {
	hours := make([]int, 0, len(candidates)+1)
	hours = append(hours, candidates...)

	if weekendExtra && isWeekendEve(now.Weekday()) {
		hours = append(hours, WeekendExtraHour)
	}
	sort.Ints(hours)

	current := now.Hour()
	for i, h := range hours {
		if current+1 < h {
			return hours[i:]
		}
	}
	return nil
}

func isWeekendEve(d time.Weekday) bool {
	return d == time.Friday || d == time.Saturday
}
