// Package refresh pulls the configured ICS feeds, expands them around the
// visible month and feeds the difference into the month view.
package refresh

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"monthcal/internal/dates"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/monthview"
)

// Fetcher is the part of ics.Fetcher the refresher needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

type Options struct {
	Sources  []ics.Source
	Location *time.Location
	// HorizonMonths widens the expansion window on both sides of the
	// visible month.
	HorizonMonths          int
	MaxOccurrencesPerEvent int
}

// Result summarizes one run.
type Result struct {
	Added     int
	Updated   int
	Removed   int
	Truncated []string
	// Failed lists calendars whose feed could not be fetched or parsed;
	// their stored events were left untouched.
	Failed []string
}

type Refresher struct {
	fetcher Fetcher
	view    *monthview.Locked
	opts    Options

	// runs never overlap
	mu sync.Mutex
}

func New(fetcher Fetcher, view *monthview.Locked, opts Options) *Refresher {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.HorizonMonths < 0 {
		opts.HorizonMonths = 0
	}
	return &Refresher{fetcher: fetcher, view: view, opts: opts}
}

// Window returns the expansion range for month m: from the grid start of
// m minus the horizon to the day after the grid end of m plus the horizon.
func (r *Refresher) Window(m dates.Month) (time.Time, time.Time) {
	from := m.AddMonths(-r.opts.HorizonMonths).GridStart()
	to := m.AddMonths(r.opts.HorizonMonths).GridEnd().AddDays(1)
	return from.Time(r.opts.Location), to.Time(r.opts.Location)
}

// Run performs one fetch, parse, expand and diff cycle. Feed failures are
// reported in the result and the returned error but never abort the run.
func (r *Refresher) Run(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result
	var month dates.Month
	_ = r.view.Do(func(v *monthview.View) error {
		month = v.VisibleMonth()
		return nil
	})
	appLog.Info("refresh start",
		"month", month.String(),
		"sources", len(r.opts.Sources),
	)

	fetched, fetchErrs := r.fetcher.FetchAll(ctx, r.opts.Sources)
	errs := fetchErrs

	fresh := make(map[string]bool, len(fetched))
	var parsed []ics.ParsedEvent
	for _, fr := range fetched {
		events, err := ics.ParseICS(fr.Source, fr.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fresh[fr.Source.ID] = true
		parsed = append(parsed, events...)
	}

	configured := make(map[string]bool, len(r.opts.Sources))
	for _, src := range r.opts.Sources {
		configured[src.ID] = true
		if !fresh[src.ID] {
			res.Failed = append(res.Failed, src.ID)
		}
	}

	// Calendars that failed keep their last known events; calendars no
	// longer configured lose theirs.
	owned := func(calendarID string) bool {
		return fresh[calendarID] || !configured[calendarID]
	}

	desired, truncated, skipped, err := r.expand(parsed, month)
	if err != nil {
		return res, fmt.Errorf("refresh: %w", err)
	}

	err = r.view.Do(func(v *monthview.View) error {
		// The user may have navigated while feeds were fetched.
		if now := v.VisibleMonth(); now != month {
			appLog.Info("refresh: visible month changed; expanding again", "from", month.String(), "to", now.String())
			month = now
			var err error
			if desired, truncated, skipped, err = r.expand(parsed, month); err != nil {
				return err
			}
		}
		errs = append(errs, skipped...)
		res.Truncated = truncated

		d := Diff(v.Store().All(), desired, owned)
		res.Added, res.Updated, res.Removed = len(d.Added), len(d.Updated), len(d.Removed)

		var applyErrs []error
		if len(d.Removed) > 0 {
			applyErrs = append(applyErrs, v.OnEventsRemoved(d.Removed))
		}
		if len(d.Updated) > 0 {
			applyErrs = append(applyErrs, v.OnEventsUpdated(d.Updated))
		}
		if len(d.Added) > 0 {
			applyErrs = append(applyErrs, v.OnEventsAdded(d.Added))
		}
		return errors.Join(applyErrs...)
	})
	if err != nil {
		errs = append(errs, err)
	}

	appLog.Info("refresh done",
		"added", res.Added,
		"updated", res.Updated,
		"removed", res.Removed,
		"truncated", len(res.Truncated),
		"failed", len(res.Failed),
	)

	if len(errs) > 0 {
		return res, fmt.Errorf("refresh: %w", errors.Join(errs...))
	}
	return res, nil
}

// expand turns the parsed feeds into normalized events for the window
// around month m. Events failing normalization are skipped and reported.
func (r *Refresher) expand(parsed []ics.ParsedEvent, m dates.Month) (desired []model.Event, truncated []string, skipped []error, err error) {
	rangeStart, rangeEnd := r.Window(m)
	expanded, err := ics.Expand(parsed, ics.ExpandConfig{
		DisplayLocation:        r.opts.Location,
		RangeStart:             rangeStart,
		RangeEnd:               rangeEnd,
		MaxOccurrencesPerEvent: r.opts.MaxOccurrencesPerEvent,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	desired = make([]model.Event, 0, len(expanded.Events))
	for _, ev := range expanded.Events {
		norm, err := model.Normalize(ev)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		desired = append(desired, norm)
	}
	return desired, expanded.TruncatedEvents, skipped, nil
}

// Changes is the minimal set of mutations turning one event set into another.
type Changes struct {
	Added   []model.Event
	Updated []model.Event
	Removed []string
}

// Diff compares the stored events with the desired ones by id. Stored events
// missing from desired are only removed when owned reports their calendar as
// refreshed. The Active flag is ignored. Outputs are sorted by id.
func Diff(stored, desired []model.Event, owned func(calendarID string) bool) Changes {
	var c Changes

	current := make(map[string]model.Event, len(stored))
	for _, ev := range stored {
		current[ev.ID] = ev
	}

	want := make(map[string]bool, len(desired))
	for _, ev := range desired {
		if want[ev.ID] {
			continue
		}
		want[ev.ID] = true
		old, ok := current[ev.ID]
		switch {
		case !ok:
			c.Added = append(c.Added, ev)
		case !old.SameContent(ev):
			c.Updated = append(c.Updated, ev)
		}
	}

	for _, ev := range stored {
		if !want[ev.ID] && owned(ev.CalendarID) {
			c.Removed = append(c.Removed, ev.ID)
		}
	}

	byID := func(a, b model.Event) int { return cmp.Compare(a.ID, b.ID) }
	slices.SortFunc(c.Added, byID)
	slices.SortFunc(c.Updated, byID)
	slices.Sort(c.Removed)
	return c
}

// Schedule registers Run on c with the given cron spec. Failures are
// logged; the schedule keeps going.
func (r *Refresher) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.Run(ctx); err != nil {
			appLog.Error("scheduled refresh finished with errors", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("refresh: schedule %q: %w", spec, err)
	}
	return id, nil
}
