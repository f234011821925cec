package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		name string
		want time.Weekday
	}{
		{"sunday", time.Sunday},
		{"Saturday", time.Saturday},
		{"WED", time.Wednesday},
		{" fri ", time.Friday},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.name)
		if err != nil {
			t.Errorf("ParseWeekday(%q) error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseWeekday_Unknown(t *testing.T) {
	if _, err := ParseWeekday("someday"); !errors.Is(err, ErrValidation) {
		t.Errorf("ParseWeekday(someday) = %v, want ErrValidation", err)
	}
	if _, err := ParseWeekday(""); !errors.Is(err, ErrValidation) {
		t.Errorf("ParseWeekday(\"\") = %v, want ErrValidation", err)
	}
}

func TestRecurrenceRuleValidate(t *testing.T) {
	start := day(2024, 3, 1)
	end := day(2024, 2, 1)
	rule := RecurrenceRule{StartDate: &start, EndDate: &end}
	if err := rule.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("start after end = %v, want ErrValidation", err)
	}

	rule = RecurrenceRule{DaysOfWeek: []int{7}}
	if err := rule.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("day 7 = %v, want ErrValidation", err)
	}

	rule = RecurrenceRule{DaysOfWeek: []int{0, 6}}
	if err := rule.Validate(); err != nil {
		t.Errorf("valid rule rejected: %v", err)
	}
}

func TestRecurrenceRuleRequestParse(t *testing.T) {
	req := RecurrenceRuleRequest{
		StartDate:     "2024-01-01",
		EndDate:       "2024-06-30",
		DaysOfWeek:    []int{6},
		IncludeDates:  []string{"2024-02-14"},
		ExcludeDates:  []string{"2024-03-02"},
		SelectedDates: nil,
		Notes:         "leave at the door",
	}

	rule, err := req.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if rule.StartDate == nil || !rule.StartDate.Equal(day(2024, 1, 1)) {
		t.Errorf("StartDate = %v", rule.StartDate)
	}
	if rule.EndDate == nil || !rule.EndDate.Equal(day(2024, 6, 30)) {
		t.Errorf("EndDate = %v", rule.EndDate)
	}
	if len(rule.IncludeDates) != 1 || !rule.IncludeDates[0].Equal(day(2024, 2, 14)) {
		t.Errorf("IncludeDates = %v", rule.IncludeDates)
	}
	if !rule.IsExcluded(day(2024, 3, 2)) {
		t.Error("2024-03-02 should be excluded")
	}
	if rule.Notes != "leave at the door" {
		t.Errorf("Notes = %q", rule.Notes)
	}
}

func TestRecurrenceRuleRequestParse_BadInput(t *testing.T) {
	if _, err := (RecurrenceRuleRequest{StartDate: "01/02/2024"}).Parse(); !errors.Is(err, ErrValidation) {
		t.Errorf("bad start date = %v, want ErrValidation", err)
	}
	if _, err := (RecurrenceRuleRequest{SelectedDates: []string{"not-a-date"}}).Parse(); !errors.Is(err, ErrValidation) {
		t.Errorf("bad selected date = %v, want ErrValidation", err)
	}
	if _, err := (RecurrenceRuleRequest{StartDate: "2024-03-01", EndDate: "2024-01-01"}).Parse(); !errors.Is(err, ErrValidation) {
		t.Errorf("inverted bounds = %v, want ErrValidation", err)
	}
}

func TestSingleWeekdayRule(t *testing.T) {
	rule, err := SingleWeekdayRule("saturday")
	if err != nil {
		t.Fatalf("SingleWeekdayRule failed: %v", err)
	}
	if len(rule.DaysOfWeek) != 1 || rule.DaysOfWeek[0] != 6 {
		t.Errorf("DaysOfWeek = %v, want [6]", rule.DaysOfWeek)
	}

	if _, err := SingleWeekdayRule("noday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestDateOnly(t *testing.T) {
	got := DateOnly(time.Date(2024, 5, 5, 13, 45, 12, 99, time.UTC))
	if !got.Equal(day(2024, 5, 5)) {
		t.Errorf("DateOnly = %v", got)
	}
}
