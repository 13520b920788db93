package monthview

import (
	"cmp"
	"slices"

	"monthcal/internal/dates"
	"monthcal/internal/grid"
	"monthcal/internal/layout"
	"monthcal/internal/model"
)

// Entry is one event bar drawn inside a day cell.
type Entry struct {
	Event  model.Event
	Lane   int
	Shape  layout.Shape
	Bounds grid.Rect
	// Span covers the event's columns in this week row on the entry's lane.
	Span grid.Rect
	// Fits is false when the lane overflows the cell.
	Fits bool
}

// Day is one cell of the grid.
type Day struct {
	Date        dates.Date
	Row         int
	Col         int
	InMonth     bool
	FirstOfWeek bool
	LastOfWeek  bool
	Selected    bool
	Bounds      grid.Rect
	Entries     []Entry
}

// Layout is the read model a renderer consumes.
type Layout struct {
	Month dates.Month
	Weeks int
	Days  []Day

	lanes *layout.Lanes
	pos   map[dates.Date]int
}

// Day looks up a grid day.
func (l Layout) Day(d dates.Date) (Day, bool) {
	i, ok := l.pos[d]
	if !ok {
		return Day{}, false
	}
	return l.Days[i], true
}

// LaneOf returns the lane of an event on a day.
func (l Layout) LaneOf(id string, d dates.Date) (int, bool) {
	if l.lanes == nil {
		return 0, false
	}
	return l.lanes.LaneOf(id, d)
}

// Row returns the seven days of a week row.
func (l Layout) Row(row int) []Day {
	start := row * dates.DaysPerWeek
	if row < 0 || start >= len(l.Days) {
		return nil
	}
	return l.Days[start : start+dates.DaysPerWeek]
}

// LaneCount returns the lanes used in a row.
func (l Layout) LaneCount(row int) int {
	if l.lanes == nil {
		return 0
	}
	return l.lanes.LaneCount(row)
}

// clone copies the days and their entries so callers can't write into the
// view's cached layout.
func (l Layout) clone() Layout {
	days := make([]Day, len(l.Days))
	for i, d := range l.Days {
		days[i] = d.clone()
	}
	l.Days = days
	return l
}

func (d Day) clone() Day {
	d.Entries = slices.Clone(d.Entries)
	return d
}

func build(m dates.Month, lanes *layout.Lanes, g grid.Grid, selected *dates.Date) Layout {
	weeks := dates.Weeks(m.Year, m.Month)
	out := Layout{
		Month: m,
		Weeks: len(weeks),
		Days:  make([]Day, 0, len(weeks)*dates.DaysPerWeek),
		lanes: lanes,
		pos:   make(map[dates.Date]int, len(weeks)*dates.DaysPerWeek),
	}

	for row, week := range weeks {
		for col, d := range week {
			out.pos[d] = len(out.Days)
			out.Days = append(out.Days, Day{
				Date:        d,
				Row:         row,
				Col:         col,
				InMonth:     m.Contains(d),
				FirstOfWeek: col == 0,
				LastOfWeek:  col == dates.DaysPerWeek-1,
				Selected:    selected != nil && *selected == d,
				Bounds:      g.Cell(col, row),
			})
		}

		for _, seg := range lanes.Week(row) {
			span := g.SpanRect(row, seg.StartCol, seg.EndCol, seg.Lane)
			for col := seg.StartCol; col <= seg.EndCol; col++ {
				i := row*dates.DaysPerWeek + col
				out.Days[i].Entries = append(out.Days[i].Entries, Entry{
					Event:  seg.Event,
					Lane:   seg.Lane,
					Shape:  seg.ShapeOn(col),
					Bounds: g.LaneRect(col, row, seg.Lane),
					Span:   span,
					Fits:   g.LaneFits(seg.Lane),
				})
			}
		}
	}

	for i := range out.Days {
		slices.SortFunc(out.Days[i].Entries, func(a, b Entry) int {
			return cmp.Compare(a.Lane, b.Lane)
		})
	}
	return out
}
