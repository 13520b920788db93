// Package dates provides timezone-naive calendar arithmetic for a
// Monday-first month grid.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a range ends before it starts.
var ErrInvalidRange = errors.New("invalid date range")

const layoutISO = "2006-01-02"

// Date is a civil date without time of day or location. It is comparable
// and can be used as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date for year/month/day (e.g. Jan 32 -> Feb 1).
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime strips the time of day, keeping the calendar date as seen in
// t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(layoutISO, s)
	if err != nil {
		return Date{}, fmt.Errorf("dates: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Time returns midnight of d in loc (UTC if loc is nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return New(d.Year, d.Month, d.Day+n)
}

// DaysUntil returns the number of days from d to other (negative if other
// is earlier).
func (d Date) DaysUntil(other Date) int {
	return other.dayNumber() - d.dayNumber()
}

// dayNumber counts days since 1970-01-01 in the proleptic Gregorian
// calendar. Out-of-range months and days are normalized first.
func (d Date) dayNumber() int {
	n := New(d.Year, d.Month, d.Day)
	y, m := n.Year, int(n.Month)
	if m <= 2 {
		y--
	}
	era := y / 400
	if y < 0 && y%400 != 0 {
		era--
	}
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + n.Day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Min and Max return the earlier / later of two dates.
func Min(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

func Max(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
