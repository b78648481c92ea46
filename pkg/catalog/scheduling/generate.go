// Package scheduling expands class templates into concrete class sessions.
//
// Templates describe a recurrence with a start date, an optional end date, a
// set of ISO weekdays (1=Monday..7=Sunday) and a wall-clock start and end
// time. Times of day are interpreted in the organization's time zone; the
// generated timestamps are stored in UTC.
package scheduling

import (
	"errors"
	"sort"
	"time"

	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
)

// DateLayout is the wire format of template start and end dates
const DateLayout = "2006-01-02"

// TimeOfDayLayout is the wire format of template start and end times
const TimeOfDayLayout = "15:04"

// DefaultHorizonMonths bounds generation for templates without an end date
const DefaultHorizonMonths = 3

// ErrUnboundedWindow is returned when a template has no end date and no horizon is set
var ErrUnboundedWindow = errors.New("scheduling: generation window requires an end date or a horizon")

// Options controls a single expansion
type Options struct {
	// From, when set, is the earliest date generated. Only its calendar
	// date in Location is used.
	From *time.Time
	// HorizonMonths caps open-ended templates at this many months past
	// today, or past the first generated date when that is later.
	HorizonMonths int
	// Now anchors the horizon; nil means the first generated date.
	Now *time.Time
	// Location is the organization's time zone; nil means UTC.
	Location *time.Location
}

// ISOWeekday returns the ISO-8601 day number of t, with Sunday as 7
func ISOWeekday(t time.Time) int {
	if wd := t.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

// ParseTimeOfDay parses an "HH:MM" 24-hour time
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return 0, 0, apperr.Validation("invalid time of day %q, expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// NormalizeDays validates ISO weekday numbers and returns them sorted without duplicates
func NormalizeDays(days []int) ([]int, error) {
	if len(days) == 0 {
		return nil, apperr.Validation("days_of_week must contain at least one day")
	}
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			return nil, apperr.Validation("days_of_week entries must be between 1 (Monday) and 7 (Sunday), got %d", d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out, nil
}

// ValidateTemplate checks the fields generation depends on
func ValidateTemplate(t *models.ClassTemplate) error {
	if _, err := NormalizeDays(t.DaysOfWeek); err != nil {
		return err
	}
	sh, sm, err := ParseTimeOfDay(t.StartTime)
	if err != nil {
		return err
	}
	eh, em, err := ParseTimeOfDay(t.EndTime)
	if err != nil {
		return err
	}
	if eh*60+em <= sh*60+sm {
		return apperr.Validation("end_time must be after start_time")
	}
	if t.Capacity <= 0 {
		return apperr.Validation("capacity must be greater than zero")
	}
	if t.StartDate.IsZero() {
		return apperr.Validation("start_date is required")
	}
	if t.EndDate != nil && civilDate(*t.EndDate, time.UTC).Before(civilDate(t.StartDate, time.UTC)) {
		return apperr.Validation("end_date must not be before start_date")
	}
	return nil
}

// Generate expands a template into sessions, one per matching day from
// max(StartDate, From) through EndDate inclusive. Generate performs no I/O.
func Generate(t *models.ClassTemplate, opts Options) ([]models.ClassSession, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	sh, sm, err := ParseTimeOfDay(t.StartTime)
	if err != nil {
		return nil, err
	}
	eh, em, err := ParseTimeOfDay(t.EndTime)
	if err != nil {
		return nil, err
	}

	// Template dates are calendar dates; they are stored as UTC midnight.
	cursor := civilDate(t.StartDate, time.UTC)
	if opts.From != nil {
		if from := civilDate(*opts.From, loc); from.After(cursor) {
			cursor = from
		}
	}

	var last time.Time
	switch {
	case t.EndDate != nil:
		last = civilDate(*t.EndDate, time.UTC)
	case opts.HorizonMonths > 0:
		anchor := cursor
		if opts.Now != nil {
			if today := civilDate(*opts.Now, loc); today.After(anchor) {
				anchor = today
			}
		}
		last = anchor.AddDate(0, opts.HorizonMonths, 0)
	default:
		return nil, ErrUnboundedWindow
	}

	days := make(map[int]bool, len(t.DaysOfWeek))
	for _, d := range t.DaysOfWeek {
		days[d] = true
	}

	var sessions []models.ClassSession
	for day := cursor; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !days[ISOWeekday(day)] {
			continue
		}
		y, m, d := day.Date()
		sessions = append(sessions, models.ClassSession{
			OrganizationID: t.OrganizationID,
			TemplateID:     t.ID,
			StartsAt:       time.Date(y, m, d, sh, sm, 0, 0, loc).UTC(),
			EndsAt:         time.Date(y, m, d, eh, em, 0, 0, loc).UTC(),
			Capacity:       t.Capacity,
			LocationID:     t.LocationID,
			Room:           t.Room,
			InstructorID:   t.InstructorID,
			Status:         models.SessionStatusScheduled,
		})
	}
	return sessions, nil
}

// StartOfDay returns midnight of t's calendar date in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// civilDate returns t's calendar date in loc as UTC midnight, so that day
// arithmetic never crosses a DST transition.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
