// Package store holds the keyed collection of events shown by the month
// view. It is not safe for concurrent use; hosts serialize access.
package store

import (
	"errors"
	"fmt"

	"monthcal/internal/model"
)

// ErrUnknownEvent is returned by Update and Remove for ids not in the store.
var ErrUnknownEvent = errors.New("unknown event")

// UnknownEventError names the id that was not found.
type UnknownEventError struct {
	ID string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("event %q not found", e.ID)
}

func (e *UnknownEventError) Unwrap() error { return ErrUnknownEvent }

type Store struct {
	data     map[string]model.Event
	inactive map[string]bool // calendar id -> toggled off
}

func New() *Store {
	return &Store{
		data:     make(map[string]model.Event),
		inactive: make(map[string]bool),
	}
}

// Add normalizes and stores events, replacing records with the same id.
// Invalid events are skipped and reported in the returned (joined) error;
// the valid ones are stored regardless.
func (s *Store) Add(events ...model.Event) error {
	var errs []error
	for _, ev := range events {
		norm, err := model.Normalize(ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.data[norm.ID] = s.withCalendarState(norm)
	}
	return errors.Join(errs...)
}

// Update replaces existing records matched by id. Unknown ids are rejected
// with UnknownEventError; the rest of the batch is still applied.
func (s *Store) Update(events ...model.Event) error {
	var errs []error
	for _, ev := range events {
		if _, ok := s.data[ev.ID]; !ok {
			errs = append(errs, &UnknownEventError{ID: ev.ID})
			continue
		}
		norm, err := model.Normalize(ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.data[norm.ID] = s.withCalendarState(norm)
	}
	return errors.Join(errs...)
}

// Remove deletes records by id. Unknown ids are reported, known ones removed.
func (s *Store) Remove(ids ...string) error {
	var errs []error
	for _, id := range ids {
		if _, ok := s.data[id]; !ok {
			errs = append(errs, &UnknownEventError{ID: id})
			continue
		}
		delete(s.data, id)
	}
	return errors.Join(errs...)
}

// SetCalendarActive flips the active flag of every event of calendarID and
// remembers the state for events added later. It returns the number of
// events touched.
func (s *Store) SetCalendarActive(calendarID string, active bool) int {
	if active {
		delete(s.inactive, calendarID)
	} else {
		s.inactive[calendarID] = true
	}

	n := 0
	for id, ev := range s.data {
		if ev.CalendarID != calendarID {
			continue
		}
		ev.Active = active
		s.data[id] = ev
		n++
	}
	return n
}

// CalendarActive reports the remembered toggle state of a calendar.
func (s *Store) CalendarActive(calendarID string) bool {
	return !s.inactive[calendarID]
}

func (s *Store) Get(id string) (model.Event, bool) {
	ev, ok := s.data[id]
	return ev, ok
}

// All returns every stored event, active or not, in no particular order.
func (s *Store) All() []model.Event {
	out := make([]model.Event, 0, len(s.data))
	for _, ev := range s.data {
		out = append(out, ev)
	}
	return out
}

func (s *Store) Len() int { return len(s.data) }

func (s *Store) withCalendarState(ev model.Event) model.Event {
	ev.Active = !s.inactive[ev.CalendarID]
	return ev
}
