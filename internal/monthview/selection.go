package monthview

import (
	"monthcal/internal/dates"
	"monthcal/internal/grid"
)

// DayAt maps a container point to the grid day under it.
func (v *View) DayAt(x, y float64) (Day, bool) {
	g := grid.New(v.layout.Weeks, v.bounds, v.metrics)
	col, row, ok := g.At(x, y)
	if !ok {
		return Day{}, false
	}
	return v.layout.Days[row*dates.DaysPerWeek+col].clone(), true
}

// SelectDay marks d as selected and notifies listeners. It returns false
// and leaves the selection alone when d is not part of the visible grid.
func (v *View) SelectDay(d dates.Date) bool {
	if !v.inGrid(d) {
		return false
	}
	v.selected = d
	v.hasSelected = true
	v.recompute()

	day, _ := v.layout.Day(d)
	for _, id := range v.listenerIDs() {
		fn := v.listeners[id]
		v.notify(func() { fn(day.clone()) })
	}
	return true
}

// notify runs fn now, or queues it until the current Locked.Do returns.
func (v *View) notify(fn func()) {
	if v.deferNotify {
		v.pending = append(v.pending, fn)
		return
	}
	fn()
}

// SelectAt combines DayAt and SelectDay, as for a click.
func (v *View) SelectAt(x, y float64) (Day, bool) {
	day, ok := v.DayAt(x, y)
	if !ok {
		return Day{}, false
	}
	v.SelectDay(day.Date)
	day, _ = v.layout.Day(day.Date)
	return day.clone(), true
}

// Selected returns the selected date, if any.
func (v *View) Selected() (dates.Date, bool) {
	return v.selected, v.hasSelected
}

// ClearSelection drops the selection without notifying listeners.
func (v *View) ClearSelection() {
	if !v.hasSelected {
		return
	}
	v.hasSelected = false
	v.recompute()
}

// OnDaySelected registers fn for selection changes. Calling the returned
// function unregisters it. When the selection changes inside Locked.Do, fn
// runs after the lock is released, so it may call Locked.Do itself.
func (v *View) OnDaySelected(fn func(Day)) (cancel func()) {
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() { delete(v.listeners, id) }
}

// listenerIDs returns registration ids in ascending order so listeners are
// notified in the order they subscribed.
func (v *View) listenerIDs() []int {
	ids := make([]int, 0, len(v.listeners))
	for id := 0; id < v.nextID; id++ {
		if _, ok := v.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
