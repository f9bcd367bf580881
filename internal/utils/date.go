package utils

import (
	"fmt"
	"math"
	"time"
)

const (
	// DayLayout is the day-granularity format used for due dates
	DayLayout = "02/01/2006"
	// StampLayout is the format of loan creation stamps and join dates
	StampLayout = "15:04:05 02/01/2006"
	// ClockLayout is the format of notification times
	ClockLayout = "15:04 02/01/2006"
)

// Midnight truncates t to the start of its calendar day in t's location
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDay parses a DD/MM/YYYY string as midnight in loc
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

// FormatDay formats t as DD/MM/YYYY
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseStamp parses a HH:MM:SS DD/MM/YYYY string in loc
func ParseStamp(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(StampLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns the number of whole calendar days from one day to another.
// Both sides are truncated to midnight first; the result is negative when to is earlier.
func DaysBetween(from, to time.Time) int {
	// Compare calendar dates in UTC so DST shifts never shave a day off.
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(b.Sub(a).Hours() / 24))
}

// DaysOverdue returns how many days today is past the DD/MM/YYYY due day, 0 if not past
func DaysOverdue(due string, today time.Time) (int, error) {
	dueDate, err := ParseDay(due, today.Location())
	if err != nil {
		return 0, err
	}
	if days := DaysBetween(dueDate, today); days > 0 {
		return days, nil
	}
	return 0, nil
}

// NextDueDate returns the due date for a loan taken at now: the 1st of next month,
// or the 1st of the month after when fewer than 10 days are left until then.
func NextDueDate(now time.Time) time.Time {
	nextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	left := int(math.Ceil(nextMonth.Sub(now).Hours() / 24))
	if left < 10 {
		return time.Date(now.Year(), now.Month()+2, 1, 0, 0, 0, 0, now.Location())
	}
	return nextMonth
}

// Millis returns t as milliseconds since epoch, the logical timestamp unit of the ledger
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
