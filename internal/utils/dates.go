package utils

import "time"

// AdjustForWeekend moves a Saturday or Sunday forward to the following
// Monday, keeping the time of day. Weekdays and nil are returned unchanged.
func AdjustForWeekend(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	adjusted := *t
	switch adjusted.Weekday() {
	case time.Saturday:
		adjusted = adjusted.AddDate(0, 0, 2)
	case time.Sunday:
		adjusted = adjusted.AddDate(0, 0, 1)
	}
	return &adjusted
}
