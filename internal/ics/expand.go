package ics

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"monthcal/internal/dates"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the zone every occurrence is converted into.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult holds the expanded events sorted by start, then id.
type ExpandResult struct {
	Events []model.Event
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// Expand turns parsed VEVENTs into concrete events inside the configured
// window. It handles single events, RRULE recurrence, EXDATE removal,
// RECURRENCE-ID overrides and all-day dates.
//
// Every event gets a stable id derived from its source, UID and scheduled
// instance start, so an overridden instance keeps the id of the slot it
// replaces.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	type key struct{ source, uid string }
	baseByUID := make(map[key][]ParsedEvent)
	overridesByUID := make(map[key][]ParsedEvent)
	var order []key

	for _, ev := range events {
		k := key{ev.Source.ID, ev.UID}
		if ev.IsOverride() {
			overridesByUID[k] = append(overridesByUID[k], ev)
			continue
		}
		if _, seen := baseByUID[k]; !seen {
			order = append(order, k)
		}
		baseByUID[k] = append(baseByUID[k], ev)
	}

	out := make([]model.Event, 0)
	for _, k := range order {
		ov := overridesByUID[k]
		truncated := false

		for _, ev := range baseByUID[k] {
			expanded, hitCap := expandEvent(ev, ov, cfg)
			truncated = truncated || hitCap
			out = append(out, expanded...)
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", k.uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	slices.SortFunc(out, func(a, b model.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	result.Events = out
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	instance := ev.Start
	start, end := ev.Start, ev.End
	if o, ok := findOverrideForStart(overrides, instance); ok {
		start, end = o.Start, o.End
		ev = withOverride(ev, o)
	}
	if !timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Event{makeEvent(ev, instance, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event duration so instances that began
	// before the window but still run into it are kept.
	dur := ev.End.Sub(ev.Start)
	rangeStart := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)
	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	allDayLen := max(1, dates.FromTime(ev.Start).DaysUntil(dates.FromTime(ev.End)))

	out := make([]model.Event, 0, len(occTimes))
	for _, instance := range occTimes {
		start, end := instance, instance.Add(dur)
		if ev.AllDay {
			day := dates.FromTime(instance)
			start = day.Time(instance.Location())
			end = day.AddDays(allDayLen).Time(instance.Location())
		}

		occ := ev
		if o, ok := findOverrideForStart(overrides, instance); ok {
			start, end = o.Start, o.End
			occ = withOverride(ev, o)
		}
		if !timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeEvent(occ, instance, start, end, cfg.DisplayLocation))
	}

	return out, hitCap
}

// findOverrideForStart finds the override whose RECURRENCE-ID equals the
// instance start.
func findOverrideForStart(overrides []ParsedEvent, instance time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(instance) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// withOverride keeps the base identity and source but takes the override's
// content.
func withOverride(base, o ParsedEvent) ParsedEvent {
	o.Source = base.Source
	o.UID = base.UID
	if o.Summary == "" {
		o.Summary = base.Summary
	}
	return o
}

// EventID derives the stable event id for one instance of a VEVENT.
func EventID(sourceID, uid string, instance time.Time) string {
	name := sourceID + "|" + uid + "|" + instance.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// makeEvent builds the model event in displayLoc. All-day events keep their
// civil dates instead of being shifted by the zone conversion.
func makeEvent(ev ParsedEvent, instance, start, end time.Time, displayLoc *time.Location) model.Event {
	if ev.AllDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, displayLoc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, displayLoc)
	} else {
		start = start.In(displayLoc)
		end = end.In(displayLoc)
	}

	return model.Event{
		ID:          EventID(ev.Source.ID, ev.UID, instance),
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       start,
		End:         end,
		CalendarID:  ev.Source.ID,
		Color:       ev.Source.Color,
		Active:      true,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
