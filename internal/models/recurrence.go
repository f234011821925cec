package models

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// RecurrenceRule describes which calendar dates a delivery recurs on.
// When SelectedDates is non-empty it alone defines the eligible dates;
// otherwise DaysOfWeek plus IncludeDates do. ExcludeDates always wins.
type RecurrenceRule struct {
	StartDate     *time.Time  `bson:"start_date,omitempty"     json:"start_date,omitempty"`
	EndDate       *time.Time  `bson:"end_date,omitempty"       json:"end_date,omitempty"`
	DaysOfWeek    []int       `bson:"days_of_week,omitempty"   json:"days_of_week,omitempty"`
	IncludeDates  []time.Time `bson:"include_dates,omitempty"  json:"include_dates,omitempty"`
	ExcludeDates  []time.Time `bson:"exclude_dates,omitempty"  json:"exclude_dates,omitempty"`
	SelectedDates []time.Time `bson:"selected_dates,omitempty" json:"selected_dates,omitempty"`
	Notes         string      `bson:"notes,omitempty"          json:"notes,omitempty"`
}

func (r RecurrenceRule) Validate() error {
	if r.StartDate != nil && r.EndDate != nil && r.StartDate.After(*r.EndDate) {
		return fmt.Errorf("%w: start_date must not be after end_date", ErrValidation)
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: days_of_week values must be 0 (Sunday) to 6 (Saturday)", ErrValidation)
		}
	}
	return nil
}

// IsExcluded reports whether date is listed in ExcludeDates.
func (r RecurrenceRule) IsExcluded(date time.Time) bool {
	return containsDate(r.ExcludeDates, date)
}

// SingleWeekdayRule builds the degenerate rule for a plain weekly slot.
func SingleWeekdayRule(day string) (RecurrenceRule, error) {
	wd, err := ParseWeekday(day)
	if err != nil {
		return RecurrenceRule{}, err
	}
	return RecurrenceRule{DaysOfWeek: []int{int(wd)}}, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// ParseWeekday maps a weekday name (case-insensitive, full or 3-letter) to
// time.Weekday. Unrecognized names are rejected; there is no default day.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", ErrValidation, name)
	}
	return wd, nil
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a midnight-UTC time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

func containsDate(dates []time.Time, date time.Time) bool {
	date = DateOnly(date)
	for _, d := range dates {
		if DateOnly(d).Equal(date) {
			return true
		}
	}
	return false
}

// RecurrenceRuleRequest is the wire form of a rule: all date fields arrive as
// YYYY-MM-DD strings and are parsed into times by Parse.
type RecurrenceRuleRequest struct {
	StartDate     string   `json:"start_date,omitempty"`
	EndDate       string   `json:"end_date,omitempty"`
	DaysOfWeek    []int    `json:"days_of_week,omitempty" validate:"omitempty,dive,min=0,max=6"`
	IncludeDates  []string `json:"include_dates,omitempty"`
	ExcludeDates  []string `json:"exclude_dates,omitempty"`
	SelectedDates []string `json:"selected_dates,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

func (req RecurrenceRuleRequest) Parse() (RecurrenceRule, error) {
	rule := RecurrenceRule{
		DaysOfWeek: req.DaysOfWeek,
		Notes:      req.Notes,
	}

	if req.StartDate != "" {
		d, err := ParseDate(req.StartDate)
		if err != nil {
			return RecurrenceRule{}, err
		}
		rule.StartDate = &d
	}
	if req.EndDate != "" {
		d, err := ParseDate(req.EndDate)
		if err != nil {
			return RecurrenceRule{}, err
		}
		rule.EndDate = &d
	}

	var err error
	if rule.IncludeDates, err = parseDates(req.IncludeDates); err != nil {
		return RecurrenceRule{}, err
	}
	if rule.ExcludeDates, err = parseDates(req.ExcludeDates); err != nil {
		return RecurrenceRule{}, err
	}
	if rule.SelectedDates, err = parseDates(req.SelectedDates); err != nil {
		return RecurrenceRule{}, err
	}

	if err := rule.Validate(); err != nil {
		return RecurrenceRule{}, err
	}
	return rule, nil
}

func parseDates(raw []string) ([]time.Time, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}
