package model

import (
	"errors"
	"fmt"
	"time"

	"monthcal/internal/dates"
)

// ErrMissingID is returned when an event has no identifier.
var ErrMissingID = errors.New("event id is empty")

// Color is an RGB triple assigned per calendar by the palette.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Event is a single concrete calendar occurrence, already expanded from any
// recurrence rule by the data source.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string

	// Start / End keep their time of day; layout only looks at the dates.
	Start time.Time
	End   time.Time

	CalendarID string
	Color      Color

	// Active is false when the owning calendar is toggled off. Inactive
	// events stay in the store but are never laid out.
	Active bool
}

// StartDate returns the civil date of Start in its own location.
func (e Event) StartDate() dates.Date { return dates.FromTime(e.Start) }

// EndDate returns the civil date of End in its own location.
func (e Event) EndDate() dates.Date { return dates.FromTime(e.End) }

// Days returns the number of calendar days the event touches.
func (e Event) Days() int { return e.StartDate().DaysUntil(e.EndDate()) + 1 }

// SameContent reports whether two events carry identical fields, ignoring
// the Active flag which is owned by the calendar toggle.
func (e Event) SameContent(o Event) bool {
	return e.ID == o.ID &&
		e.Title == o.Title &&
		e.Description == o.Description &&
		e.Location == o.Location &&
		e.Start.Equal(o.Start) &&
		e.End.Equal(o.End) &&
		e.CalendarID == o.CalendarID &&
		e.Color == o.Color
}

// InvalidRangeError reports an event whose end lies before its start.
type InvalidRangeError struct {
	EventID string
	Start   time.Time
	End     time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("event %q: end %s is before start %s",
		e.EventID, e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *InvalidRangeError) Unwrap() error { return dates.ErrInvalidRange }

// Normalize validates ev for ingestion and applies the midnight rule: an
// event ending exactly at midnight after its start ends on the previous day
// at end-of-day. It must be applied once, when the event enters the store.
//
// End is moved into Start's location so both dates are read on the same
// calendar; an event that ends after it starts never ends on an earlier day.
func Normalize(ev Event) (Event, error) {
	if ev.ID == "" {
		return ev, ErrMissingID
	}
	if ev.End.Before(ev.Start) {
		return ev, &InvalidRangeError{EventID: ev.ID, Start: ev.Start, End: ev.End}
	}
	ev.End = ev.End.In(ev.Start.Location())
	if ev.End.After(ev.Start) && isMidnight(ev.End) {
		ev.End = ev.End.Add(-time.Nanosecond)
	}
	return ev, nil
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
