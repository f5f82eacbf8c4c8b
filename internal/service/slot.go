package service

import (
	"fmt"
	"strings"
	"time"
)

var weekdayAbbrev = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Week is a Sunday-start scheduling week in the business time zone.
type Week struct {
	Start time.Time
}

// WeekOf returns the week containing t, starting Sunday 00:00 in loc.
func WeekOf(t time.Time, loc *time.Location) Week {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day()-int(local.Weekday()), 0, 0, 0, 0, loc)
	return Week{Start: start}
}

// ParseWeekDate accepts "2006-01-02" or an RFC 3339 timestamp and returns its week.
// A bare date is read as a calendar day in loc.
func ParseWeekDate(raw string, loc *time.Location) (Week, error) {
	raw = strings.TrimSpace(raw)
	if day, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return WeekOf(day, loc), nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return WeekOf(ts, loc), nil
	}
	return Week{}, fmt.Errorf("invalid week date %q: want YYYY-MM-DD", raw)
}

// At projects (day, hour) onto the week. Calendar arithmetic goes through time.Date
// so DST transitions resolve in the week's location. An hour skipped by a
// spring-forward transition normalizes to the next existing hour; use Slot when
// the wall clock must match.
func (w Week) At(day, hour int) time.Time {
	y, m, d := w.Start.Date()
	return time.Date(y, m, d+day, hour, 0, 0, 0, w.Start.Location())
}

// Slot is At for bookable slots: ok is false when (day, hour) does not exist on
// the local wall clock.
func (w Week) Slot(day, hour int) (time.Time, bool) {
	at := w.At(day, hour)
	local := at.In(w.Start.Location())
	y, m, d := w.Start.Date()
	want := time.Date(y, m, d+day, 12, 0, 0, 0, w.Start.Location())
	return at, local.Hour() == hour && local.Day() == want.Day()
}

// End is the following Sunday 00:00.
func (w Week) End() time.Time {
	return w.At(7, 0)
}

// Contains reports whether t falls inside [Start, End).
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}

// Key identifies the week by its Sunday date.
func (w Week) Key() string {
	return w.Start.Format("2006-01-02")
}

// Location is the business time zone of the week.
func (w Week) Location() *time.Location {
	return w.Start.Location()
}

// SlotLabel renders (day, hour) as "Mon 09:00".
func SlotLabel(day, hour int) string {
	return fmt.Sprintf("%s %02d:00", weekdayAbbrev[((day%7)+7)%7], hour)
}

// LabelAt renders an instant as its slot label in loc.
func LabelAt(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return fmt.Sprintf("%s %s", weekdayAbbrev[local.Weekday()], local.Format("15:04"))
}

// ParseSlotLabel is the inverse of SlotLabel and LabelAt.
func ParseSlotLabel(label string) (day, hour, minute int, err error) {
	parts := strings.Fields(label)
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid slot label %q", label)
	}
	day = -1
	for i, abbrev := range weekdayAbbrev {
		if strings.EqualFold(parts[0], abbrev) {
			day = i
			break
		}
	}
	if day < 0 {
		return 0, 0, 0, fmt.Errorf("invalid weekday in slot label %q", label)
	}
	clock, err := time.Parse("15:04", parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid time in slot label %q: %w", label, err)
	}
	return day, clock.Hour(), clock.Minute(), nil
}

func weekdayName(day int) string {
	return time.Weekday(((day % 7) + 7) % 7).String()
}
