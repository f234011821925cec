package services

import (
	"time"

	"grocery-app/delivery-scheduler/internal/models"
)

// searchHorizonDays bounds the day-by-day search so a rule with no future
// eligible date terminates with "no next delivery" instead of spinning.
const searchHorizonDays = 366

// NextDeliveryDate returns the earliest eligible date strictly after ref, or
// false when the rule yields no future delivery. That is a normal outcome for
// a degenerate rule (no weekdays, no include/selected dates), not an error.
func NextDeliveryDate(rule models.RecurrenceRule, ref time.Time) (time.Time, bool) {
	ref = ref.UTC()

	// An explicit selected-dates list overrides weekday matching entirely.
	if len(rule.SelectedDates) > 0 {
		var best time.Time
		found := false
		for _, d := range rule.SelectedDates {
			d = models.DateOnly(d)
			if !d.After(ref) || rule.IsExcluded(d) || !withinBounds(rule, d) {
				continue
			}
			if !found || d.Before(best) {
				best = d
				found = true
			}
		}
		return best, found
	}

	if len(rule.DaysOfWeek) == 0 && len(rule.IncludeDates) == 0 {
		return time.Time{}, false
	}

	weekdays := make(map[int]bool, len(rule.DaysOfWeek))
	for _, d := range rule.DaysOfWeek {
		weekdays[d] = true
	}

	cursor := models.DateOnly(ref).AddDate(0, 0, 1)
	for i := 0; i < searchHorizonDays; i++ {
		eligible := weekdays[int(cursor.Weekday())] || containsDate(rule.IncludeDates, cursor)
		if eligible && !rule.IsExcluded(cursor) && withinBounds(rule, cursor) {
			return cursor, true
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

// NextWeekday returns the next date strictly after ref that falls on the named
// weekday. Unrecognized names are rejected rather than defaulted.
func NextWeekday(day string, ref time.Time) (time.Time, error) {
	wd, err := models.ParseWeekday(day)
	if err != nil {
		return time.Time{}, err
	}
	cursor := models.DateOnly(ref.UTC()).AddDate(0, 0, 1)
	for i := 0; i < 7; i++ {
		if cursor.Weekday() == wd {
			return cursor, nil
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	// Unreachable: every weekday occurs within 7 consecutive days.
	return cursor, nil
}

func withinBounds(rule models.RecurrenceRule, date time.Time) bool {
	if rule.StartDate != nil && date.Before(models.DateOnly(*rule.StartDate)) {
		return false
	}
	// EndDate is exclusive: recurrence has no effect at or after it.
	if rule.EndDate != nil && !date.Before(models.DateOnly(*rule.EndDate)) {
		return false
	}
	return true
}

func containsDate(dates []time.Time, date time.Time) bool {
	for _, d := range dates {
		if models.DateOnly(d).Equal(date) {
			return true
		}
	}
	return false
}
