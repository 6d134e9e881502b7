package models

import (
	"time"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "DAILY"
	RecurrenceWeekly  RecurrenceType = "WEEKLY"
	RecurrenceMonthly RecurrenceType = "MONTHLY"
	RecurrenceYearly  RecurrenceType = "YEARLY"
)

// Pattern describes how a recurring definition repeats. DaysOfWeek uses
// 1=Monday through 7=Sunday.
type Pattern struct {
	Type        RecurrenceType `json:"type"`
	Interval    int            `json:"interval"`
	DaysOfWeek  []int          `json:"days_of_week,omitempty"`
	DayOfMonth  *int           `json:"day_of_month,omitempty"`
	MonthOfYear *int           `json:"month_of_year,omitempty"`
}

func (p Pattern) Validate() error {
	switch p.Type {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
	default:
		return NewValidationError("recurrence_type", "unknown type %q", p.Type)
	}
	if p.Interval < 1 {
		return NewValidationError("recurrence_interval", "must be at least 1, got %d", p.Interval)
	}

	if len(p.DaysOfWeek) > 0 {
		if p.Type != RecurrenceWeekly {
			return NewValidationError("days_of_week", "only allowed for WEEKLY")
		}
		seen := make(map[int]bool, len(p.DaysOfWeek))
		for _, d := range p.DaysOfWeek {
			if d < 1 || d > 7 {
				return NewValidationError("days_of_week", "day %d outside 1-7", d)
			}
			if seen[d] {
				return NewValidationError("days_of_week", "day %d listed twice", d)
			}
			seen[d] = true
		}
	}
	if p.DayOfMonth != nil {
		if p.Type != RecurrenceMonthly {
			return NewValidationError("day_of_month", "only allowed for MONTHLY")
		}
		if *p.DayOfMonth < 1 || *p.DayOfMonth > 31 {
			return NewValidationError("day_of_month", "%d outside 1-31", *p.DayOfMonth)
		}
	}
	if p.MonthOfYear != nil {
		if p.Type != RecurrenceYearly {
			return NewValidationError("month_of_year", "only allowed for YEARLY")
		}
		if *p.MonthOfYear < 1 || *p.MonthOfYear > 12 {
			return NewValidationError("month_of_year", "%d outside 1-12", *p.MonthOfYear)
		}
	}
	return nil
}

// RecurringEventDefinition is the template a recurring series is
// materialized from. StartDate/EndDate fix the time of day and duration of
// every occurrence; the date part of StartDate is the first candidate date.
type RecurringEventDefinition struct {
	ID                int64      `json:"id"`
	OwnerID           int64      `json:"owner_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	Pattern           Pattern    `json:"pattern"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty"`
	NoEndDate         bool       `json:"no_end_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (d *RecurringEventDefinition) Validate() error {
	if d.Title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if d.StartDate.IsZero() {
		return NewValidationError("start_date", "is required")
	}
	if d.EndDate.Before(d.StartDate) {
		return NewValidationError("end_date", "must not be before start_date")
	}
	if d.NoEndDate && d.RecurrenceEndDate != nil {
		return NewValidationError("recurrence_end_date", "cannot be set together with no_end_date")
	}
	if !d.NoEndDate && d.RecurrenceEndDate == nil {
		return NewValidationError("recurrence_end_date", "is required unless no_end_date is set")
	}
	if d.RecurrenceEndDate != nil && StartOfDay(*d.RecurrenceEndDate).Before(StartOfDay(d.StartDate)) {
		return NewValidationError("recurrence_end_date", "must not be before start_date")
	}
	return d.Pattern.Validate()
}

// Duration is the length of every occurrence.
func (d *RecurringEventDefinition) Duration() time.Duration {
	return d.EndDate.Sub(d.StartDate)
}

// OccurrenceStart combines an occurrence date with the definition's time of day.
func (d *RecurringEventDefinition) OccurrenceStart(date time.Time) time.Time {
	start := d.StartDate.UTC()
	day := StartOfDay(date)
	return time.Date(day.Year(), day.Month(), day.Day(),
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), time.UTC)
}

// ActiveIn reports whether the series can produce occurrences in [start, end].
func (d *RecurringEventDefinition) ActiveIn(start, end time.Time) bool {
	if StartOfDay(d.StartDate).After(end) {
		return false
	}
	if d.RecurrenceEndDate != nil && StartOfDay(*d.RecurrenceEndDate).Before(StartOfDay(start)) {
		return false
	}
	return true
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
