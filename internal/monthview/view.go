// Package monthview is the entry point of the month-grid layout engine. A
// View owns the event store and the visible month, recomputes the layout
// inline after every mutation and exposes it as a read-only Layout.
package monthview

import (
	"errors"
	"fmt"
	"time"

	"monthcal/internal/dates"
	"monthcal/internal/grid"
	"monthcal/internal/layout"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

// ErrInvalidMonth is returned for a month outside 1..12.
var ErrInvalidMonth = errors.New("invalid month")

// View is not safe for concurrent use. Multi-threaded hosts go through
// Locked.
type View struct {
	store   *store.Store
	month   dates.Month
	bounds  grid.Rect
	metrics grid.Metrics

	selected    dates.Date
	hasSelected bool

	listeners map[int]func(Day)
	nextID    int

	// deferNotify queues listener calls in pending while Locked holds the
	// view.
	deferNotify bool
	pending     []func()

	index  *layout.Index
	lanes  *layout.Lanes
	layout Layout
}

// New builds a view over s showing month m. A nil store starts empty.
func New(s *store.Store, m dates.Month, bounds grid.Rect, metrics grid.Metrics) (*View, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMonth, int(m.Month))
	}
	if s == nil {
		s = store.New()
	}
	v := &View{
		store:     s,
		month:     m,
		bounds:    bounds,
		metrics:   metrics,
		listeners: make(map[int]func(Day)),
	}
	v.recompute()
	return v, nil
}

// Store gives read access to every stored event, including inactive ones.
func (v *View) Store() *store.Store { return v.store }

func (v *View) OnEventsAdded(events []model.Event) error {
	err := v.store.Add(events...)
	v.recompute()
	return logMutation("add", len(events), err)
}

func (v *View) OnEventsRemoved(ids []string) error {
	err := v.store.Remove(ids...)
	v.recompute()
	return logMutation("remove", len(ids), err)
}

func (v *View) OnEventsUpdated(events []model.Event) error {
	err := v.store.Update(events...)
	v.recompute()
	return logMutation("update", len(events), err)
}

func (v *View) OnCalendarActiveChanged(calendarID string, active bool) {
	n := v.store.SetCalendarActive(calendarID, active)
	appLog.Debug("calendar toggled", "calendar_id", calendarID, "active", active, "events", n)
	v.recompute()
}

// SetVisibleMonth changes the displayed month. The store is untouched.
func (v *View) SetVisibleMonth(year int, month time.Month) error {
	m := dates.Month{Year: year, Month: month}
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, int(month))
	}
	v.setMonth(m)
	return nil
}

func (v *View) NextMonth() { v.setMonth(v.month.Next()) }
func (v *View) PrevMonth() { v.setMonth(v.month.Prev()) }

func (v *View) VisibleMonth() dates.Month { return v.month }

// SetBounds changes the container size in pixels.
func (v *View) SetBounds(bounds grid.Rect) {
	v.bounds = bounds
	v.recompute()
}

func (v *View) Bounds() grid.Rect { return v.bounds }

// Layout returns a copy of the current read model.
func (v *View) Layout() Layout { return v.layout.clone() }

// Events returns the active events visible in the current grid.
func (v *View) Events() []model.Event {
	return append([]model.Event(nil), v.index.Events()...)
}

func (v *View) setMonth(m dates.Month) {
	v.month = m
	if v.hasSelected && !v.inGrid(v.selected) {
		v.hasSelected = false
	}
	v.recompute()
}

func (v *View) inGrid(d dates.Date) bool {
	return !d.Before(v.month.GridStart()) && !d.After(v.month.GridEnd())
}

// recompute rebuilds index, lanes and geometry wholesale.
func (v *View) recompute() {
	v.index = layout.BuildIndex(v.store.All(), v.month)
	v.lanes = layout.Assign(v.index)
	v.layout = build(v.month, v.lanes, grid.New(v.lanes.Rows(), v.bounds, v.metrics), v.selection())
}

func (v *View) selection() *dates.Date {
	if !v.hasSelected {
		return nil
	}
	d := v.selected
	return &d
}

func logMutation(op string, n int, err error) error {
	if err != nil {
		appLog.Error("event store mutation partially rejected", err, "op", op, "count", n)
		return fmt.Errorf("monthview: %s: %w", op, err)
	}
	appLog.Debug("event store mutated", "op", op, "count", n)
	return nil
}
