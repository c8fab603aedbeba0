package leave

import (
	"strings"
	"time"
)

// DateLayout is the only accepted wire format for dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DAY - Calendar date with day granularity
// =============================================================================

// Day is a calendar date normalized to midnight UTC.
type Day struct {
	Time time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar date in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, &DateError{Value: s, Err: err}
	}
	return Day{Time: t}, nil
}

func (d Day) Before(other Day) bool { return d.Time.Before(other.Time) }
func (d Day) After(other Day) bool  { return d.Time.After(other.Time) }
func (d Day) Equal(other Day) bool  { return d.Time.Equal(other.Time) }
func (d Day) AddDays(n int) Day     { return Day{Time: d.Time.AddDate(0, 0, n)} }
func (d Day) IsZero() bool          { return d.Time.IsZero() }
func (d Day) Weekday() time.Weekday { return d.Time.Weekday() }

func (d Day) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Day) IsWorkday() bool { return !d.IsWeekend() }

// Within reports whether d lies in [from, to] inclusive.
func (d Day) Within(from, to Day) bool {
	return !d.Before(from) && !d.After(to)
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// =============================================================================
// BUSINESS DAYS
// =============================================================================

// BusinessDays counts Monday-Friday dates in [from, to] inclusive. Weekends
// inside the range are excluded. Returns 0 when to is before from. Whole
// weeks are counted without walking the range.
func BusinessDays(from, to Day) int {
	if to.Before(from) {
		return 0
	}
	span := (to.Time.Unix()-from.Time.Unix())/secondsPerDay + 1
	n := span / 7 * 5
	wd := int64(from.Weekday())
	for i := int64(0); i < span%7; i++ {
		if d := (wd + i) % 7; d != int64(time.Saturday) && d != int64(time.Sunday) {
			n++
		}
	}
	return int(n)
}

const secondsPerDay = 24 * 60 * 60
