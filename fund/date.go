package fund

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day without time of day
// =============================================================================

// DateLayout is the MM/DD/YYYY form used by ingestion files and reports.
const DateLayout = "01/02/2006"

// Date is a calendar day normalized to midnight UTC.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date { return NewDate(t.Year(), t.Month(), t.Day()) }

// ParseDate parses an MM/DD/YYYY string. Impossible days such as 02/31 fail.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q (want MM/DD/YYYY)", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustParseDate is for fixtures and tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) After(other Date) bool { return d.Time.After(other.Time) }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) AddDays(n int) Date    { return Date{Time: d.Time.AddDate(0, 0, n)} }

// String formats the date as MM/DD/YYYY.
func (d Date) String() string { return d.Time.Format(DateLayout) }

// ISO formats the date as YYYY-MM-DD for storage.
func (d Date) ISO() string { return d.Time.Format("2006-01-02") }

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the absolute number of whole days between a and b.
// The result does not depend on argument order. Unix seconds are used
// because time.Duration saturates after about 292 years.
func DaysBetween(a, b Date) int {
	days := (b.Time.Unix() - a.Time.Unix()) / secondsPerDay
	if days < 0 {
		days = -days
	}
	return int(days)
}
