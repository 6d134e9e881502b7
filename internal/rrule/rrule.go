package rrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

// DefaultMaxOccurrences caps a single expansion so an open-ended series
// combined with a huge range cannot produce an unbounded result.
const DefaultMaxOccurrences = 5000

var weekdays = map[int]rrule.Weekday{
	1: rrule.MO,
	2: rrule.TU,
	3: rrule.WE,
	4: rrule.TH,
	5: rrule.FR,
	6: rrule.SA,
	7: rrule.SU,
}

var weekdayNames = map[int]string{
	1: "Mon", 2: "Tue", 3: "Wed", 4: "Thu", 5: "Fri", 6: "Sat", 7: "Sun",
}

// Expansion is the result of expanding a definition over a range.
type Expansion struct {
	// Dates are UTC start-of-day values in ascending order, without duplicates.
	Dates []time.Time
	// Truncated is set when the occurrence cap stopped the expansion early.
	Truncated bool
}

// Build converts a definition into an rrule-go rule anchored at the start of
// the definition's first day. Months lacking the requested day (and Feb 29
// in non-leap years) produce no occurrence.
func Build(def *models.RecurringEventDefinition) (*rrule.RRule, error) {
	if err := def.Pattern.Validate(); err != nil {
		return nil, err
	}

	dtstart := models.StartOfDay(def.StartDate)
	opt := rrule.ROption{
		Interval: def.Pattern.Interval,
		Dtstart:  dtstart,
		Wkst:     rrule.MO,
	}

	switch def.Pattern.Type {
	case models.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
		days := def.Pattern.DaysOfWeek
		if len(days) == 0 {
			days = []int{isoWeekday(dtstart)}
		}
		for _, d := range days {
			opt.Byweekday = append(opt.Byweekday, weekdays[d])
		}
	case models.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
		day := dtstart.Day()
		if def.Pattern.DayOfMonth != nil {
			day = *def.Pattern.DayOfMonth
		}
		opt.Bymonthday = []int{day}
	case models.RecurrenceYearly:
		opt.Freq = rrule.YEARLY
		month := int(dtstart.Month())
		if def.Pattern.MonthOfYear != nil {
			month = *def.Pattern.MonthOfYear
		}
		opt.Bymonth = []int{month}
		opt.Bymonthday = []int{dtstart.Day()}
	}

	if def.RecurrenceEndDate != nil {
		opt.Until = models.StartOfDay(*def.RecurrenceEndDate)
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule: %w", err)
	}
	return r, nil
}

// Expand returns the occurrence dates of def that fall within
// [startOfDay(rangeStart), rangeEnd], bounded by the recurrence end date and
// by maxOccurrences (DefaultMaxOccurrences when <= 0).
func Expand(def *models.RecurringEventDefinition, rangeStart, rangeEnd time.Time, maxOccurrences int) (Expansion, error) {
	var result Expansion

	if rangeEnd.Before(rangeStart) {
		return result, models.NewValidationError("range", "end is before start")
	}
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}

	rule, err := Build(def)
	if err != nil {
		return result, err
	}

	lower := models.StartOfDay(rangeStart)
	upper := rangeEnd.UTC()
	if def.RecurrenceEndDate != nil {
		if until := models.StartOfDay(*def.RecurrenceEndDate); until.Before(upper) {
			upper = until
		}
	}

	next := rule.Iterator()
	var last time.Time
	for {
		date, ok := next()
		if !ok || date.After(upper) {
			break
		}
		if date.Before(lower) {
			continue
		}
		date = models.StartOfDay(date)
		if len(result.Dates) > 0 && !date.After(last) {
			continue
		}
		if len(result.Dates) == maxOccurrences {
			result.Truncated = true
			break
		}
		result.Dates = append(result.Dates, date)
		last = date
	}

	return result, nil
}

// Describe renders a short English summary of a pattern, e.g.
// "every 2 weeks on Mon, Wed".
func Describe(p models.Pattern) string {
	var unit string
	switch p.Type {
	case models.RecurrenceDaily:
		unit = "day"
	case models.RecurrenceWeekly:
		unit = "week"
	case models.RecurrenceMonthly:
		unit = "month"
	case models.RecurrenceYearly:
		unit = "year"
	default:
		return "once"
	}

	var sb strings.Builder
	if p.Interval <= 1 {
		sb.WriteString("every " + unit)
	} else {
		sb.WriteString(fmt.Sprintf("every %d %ss", p.Interval, unit))
	}

	if len(p.DaysOfWeek) > 0 {
		names := make([]string, 0, len(p.DaysOfWeek))
		for _, d := range p.DaysOfWeek {
			names = append(names, weekdayNames[d])
		}
		sb.WriteString(" on " + strings.Join(names, ", "))
	}
	if p.DayOfMonth != nil {
		sb.WriteString(fmt.Sprintf(" on day %d", *p.DayOfMonth))
	}
	if p.MonthOfYear != nil {
		sb.WriteString(" in " + time.Month(*p.MonthOfYear).String())
	}
	return sb.String()
}

// isoWeekday maps time.Weekday to 1=Monday .. 7=Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
