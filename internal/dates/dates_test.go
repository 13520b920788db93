package dates

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, tt := range tests {
		t.Run(Month{tt.year, tt.month}.String(), func(t *testing.T) {
			require.Equal(t, tt.want, DaysInMonth(tt.year, tt.month))
		})
	}
}

func TestMonthDatesCoverCompleteWeeks(t *testing.T) {
	for year := 2023; year <= 2026; year++ {
		for month := time.January; month <= time.December; month++ {
			all := MonthDates(year, month)
			weeks := NumberOfWeeks(year, month)

			require.Equal(t, weeks*DaysPerWeek, len(all))
			require.Equal(t, time.Monday, all[0].Weekday())
			require.Equal(t, time.Sunday, all[len(all)-1].Weekday())
			require.False(t, all[0].After(Date{year, month, 1}))
			require.False(t, all[len(all)-1].Before(Date{year, month, DaysInMonth(year, month)}))

			for i := 1; i < len(all); i++ {
				require.Equal(t, all[i-1].AddDays(1), all[i])
			}
		}
	}
}

func TestNumberOfWeeks(t *testing.T) {
	// February 2021 starts on Monday and has 28 days.
	require.Equal(t, 4, NumberOfWeeks(2021, time.February))
	// March 2025 starts on Saturday and ends on Monday.
	require.Equal(t, 6, NumberOfWeeks(2025, time.March))
	require.Equal(t, 5, NumberOfWeeks(2025, time.January))
}

func TestIterMonthDatesIsRestartable(t *testing.T) {
	seq := IterMonthDates(2025, time.June)
	var first, second []Date
	for d := range seq {
		first = append(first, d)
	}
	for d := range seq {
		second = append(second, d)
	}
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestWeekBounds(t *testing.T) {
	wed := New(2025, time.March, 12)
	require.Equal(t, New(2025, time.March, 10), FirstDayOfWeek(wed))
	require.Equal(t, New(2025, time.March, 16), LastDayOfWeek(wed))

	sun := New(2025, time.March, 16)
	require.Equal(t, New(2025, time.March, 10), FirstDayOfWeek(sun))

	mon := New(2025, time.March, 10)
	require.Equal(t, mon, FirstDayOfWeek(mon))
}

func TestDateRange(t *testing.T) {
	start := New(2024, time.December, 28)
	end := New(2025, time.January, 3)

	got, err := DateRange(start, end)
	require.NoError(t, err)
	require.Len(t, got, start.DaysUntil(end)+1)
	require.Equal(t, start, got[0])
	require.Equal(t, end, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		require.True(t, got[i-1].Before(got[i]))
	}

	single, err := DateRange(start, start)
	require.NoError(t, err)
	require.Equal(t, []Date{start}, single)
}

func TestDateRangeInvalid(t *testing.T) {
	_, err := IterDateRange(New(2025, time.March, 5), New(2025, time.March, 4))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidRange))
}

func TestMonthNavigation(t *testing.T) {
	dec := Month{2024, time.December}
	require.Equal(t, Month{2025, time.January}, dec.Next())
	require.Equal(t, Month{2024, time.November}, dec.Prev())
	require.Equal(t, Month{2023, time.December}, Month{2024, time.January}.Prev())
	require.Equal(t, Month{2026, time.February}, dec.AddMonths(14))
	require.Equal(t, Month{2023, time.October}, dec.AddMonths(-14))
	require.Equal(t, dec, dec.AddMonths(0))
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	require.NoError(t, err)
	require.Equal(t, New(2025, time.February, 29), d) // normalized Feb 29 -> Mar 1
	require.Equal(t, "2025-03-01", d.String())

	loc := time.FixedZone("UTC+9", 9*3600)
	require.Equal(t, New(2025, time.March, 2), FromTime(time.Date(2025, 3, 2, 23, 59, 0, 0, loc)))

	a, b := New(2025, 1, 1), New(2025, 1, 2)
	require.Equal(t, a, Min(a, b))
	require.Equal(t, b, Max(a, b))
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 0, a.Compare(a))

	_, err = ParseDate("not-a-date")
	require.Error(t, err)
}

func TestDaysUntil(t *testing.T) {
	epoch := New(1970, time.January, 1)
	require.Equal(t, 0, epoch.DaysUntil(epoch))
	require.Equal(t, 59, epoch.DaysUntil(New(1970, time.March, 1)))
	require.Equal(t, -1, epoch.DaysUntil(New(1969, time.December, 31)))
	require.Equal(t, 366, New(2024, time.January, 1).DaysUntil(New(2025, time.January, 1)))
	require.Equal(t, 29, New(2024, time.February, 1).DaysUntil(New(2024, time.March, 1)))

	// Spans far beyond what a time.Duration can hold.
	require.Equal(t, 146097*3, New(1000, time.June, 15).DaysUntil(New(2200, time.June, 15)))
	require.Equal(t, -146097*25, New(2000, time.January, 1).DaysUntil(New(-8000, time.January, 1)))
	require.Equal(t, 146097*3+1, New(1000, time.June, 15).DaysUntil(Date{Year: 2200, Month: time.June, Day: 16}))
}
