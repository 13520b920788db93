// Package layout derives which events are visible on each day of a month
// grid and assigns them collision-free lanes per week row. It knows nothing
// about pixels; see package grid for geometry.
package layout

import (
	"cmp"
	"slices"
	"strings"

	"monthcal/internal/dates"
	"monthcal/internal/model"
)

// Span is an event's date range clipped to the visible grid.
type Span struct {
	Start dates.Date
	End   dates.Date
}

// Index maps every grid day of a month to the active events touching it.
// It is rebuilt from scratch for each (events, month) pair.
type Index struct {
	month  dates.Month
	days   map[dates.Date][]model.Event
	spans  map[string]Span
	events []model.Event
}

// BuildIndex keeps active events whose range intersects the month grid and
// records each one only on the clipped dates inside the grid. Events must
// already be normalized (see model.Normalize).
func BuildIndex(events []model.Event, m dates.Month) *Index {
	idx := &Index{
		month: m,
		days:  make(map[dates.Date][]model.Event),
		spans: make(map[string]Span),
	}

	gridStart, gridEnd := m.GridStart(), m.GridEnd()
	for _, ev := range events {
		if !ev.Active {
			continue
		}
		start, end := ev.StartDate(), ev.EndDate()
		if end.Before(gridStart) || start.After(gridEnd) {
			continue
		}
		idx.events = append(idx.events, ev)
		idx.spans[ev.ID] = Span{
			Start: dates.Max(start, gridStart),
			End:   dates.Min(end, gridEnd),
		}
	}

	slices.SortFunc(idx.events, compareEvents)

	// Events are appended in sorted order, so each day's list is sorted too.
	for _, ev := range idx.events {
		span := idx.spans[ev.ID]
		for d := span.Start; !d.After(span.End); d = d.AddDays(1) {
			idx.days[d] = append(idx.days[d], ev)
		}
	}
	return idx
}

func (idx *Index) Month() dates.Month { return idx.month }

// On returns the events touching d, ordered by start, longest first, then
// title and id.
func (idx *Index) On(d dates.Date) []model.Event { return idx.days[d] }

// Events returns the distinct visible events in the same order as On.
func (idx *Index) Events() []model.Event { return idx.events }

// Span returns the clipped visible range of an event.
func (idx *Index) Span(id string) (Span, bool) {
	s, ok := idx.spans[id]
	return s, ok
}

func (idx *Index) Len() int { return len(idx.events) }

func compareEvents(a, b model.Event) int {
	if c := a.StartDate().Compare(b.StartDate()); c != 0 {
		return c
	}
	if c := b.EndDate().Compare(a.EndDate()); c != 0 {
		return c
	}
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
