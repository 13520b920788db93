package dates

import (
	"fmt"
	"iter"
	"time"
)

// DaysPerWeek is the number of columns in the grid.
const DaysPerWeek = 7

// Month identifies a visible (year, month).
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December
}

func (m Month) First() Date { return Date{Year: m.Year, Month: m.Month, Day: 1} }

func (m Month) Last() Date {
	return Date{Year: m.Year, Month: m.Month, Day: DaysInMonth(m.Year, m.Month)}
}

func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// AddMonths moves n months forward (or backward for negative n).
func (m Month) AddMonths(n int) Month {
	idx := m.Year*12 + int(m.Month-1) + n
	year := idx / 12
	mon := idx % 12
	if mon < 0 {
		mon += 12
		year--
	}
	return Month{Year: year, Month: time.Month(mon + 1)}
}

// Contains reports whether d belongs to m (lead/trail grid days do not).
func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// GridStart and GridEnd are the first Monday and last Sunday of m's grid.
func (m Month) GridStart() Date { return FirstDayOfWeek(m.First()) }
func (m Month) GridEnd() Date { return LastDayOfWeek(m.Last()) }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// DaysInMonth returns the number of calendar days in month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstDayOfWeek returns the Monday of the week containing d.
func FirstDayOfWeek(d Date) Date {
	offset := (int(d.Weekday()) + 6) % DaysPerWeek
	return d.AddDays(-offset)
}

// LastDayOfWeek returns the Sunday of the week containing d.
func LastDayOfWeek(d Date) Date {
	return FirstDayOfWeek(d).AddDays(DaysPerWeek - 1)
}

// IterMonthDates yields every date of the month's display grid, from the
// Monday on/before the 1st through the Sunday on/after the last day.
func IterMonthDates(year int, month time.Month) iter.Seq[Date] {
	m := Month{Year: year, Month: month}
	return func(yield func(Date) bool) {
		end := m.GridEnd()
		for d := m.GridStart(); !d.After(end); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// MonthDates collects IterMonthDates into a slice.
func MonthDates(year int, month time.Month) []Date {
	out := make([]Date, 0, 6*DaysPerWeek)
	for d := range IterMonthDates(year, month) {
		out = append(out, d)
	}
	return out
}

// NumberOfWeeks returns the number of grid rows needed for the month.
func NumberOfWeeks(year int, month time.Month) int {
	return len(MonthDates(year, month)) / DaysPerWeek
}

// Weeks splits the month grid into Monday..Sunday rows.
func Weeks(year int, month time.Month) [][DaysPerWeek]Date {
	all := MonthDates(year, month)
	rows := make([][DaysPerWeek]Date, len(all)/DaysPerWeek)
	for i, d := range all {
		rows[i/DaysPerWeek][i%DaysPerWeek] = d
	}
	return rows
}

// IterDateRange yields every date from start to end inclusive.
func IterDateRange(start, end Date) (iter.Seq[Date], error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, end, start)
	}
	return func(yield func(Date) bool) {
		for d := start; !d.After(end); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}, nil
}

// DateRange collects IterDateRange into a slice.
func DateRange(start, end Date) ([]Date, error) {
	seq, err := IterDateRange(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]Date, 0, start.DaysUntil(end)+1)
	for d := range seq {
		out = append(out, d)
	}
	return out, nil
}
