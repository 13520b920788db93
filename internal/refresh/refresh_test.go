package refresh

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"monthcal/internal/dates"
	"monthcal/internal/grid"
	"monthcal/internal/ics"
	"monthcal/internal/model"
	"monthcal/internal/monthview"
	"monthcal/internal/store"
)

type fakeFetcher struct {
	bodies map[string]string
	// during runs while the fetch is in flight.
	during func()
}

func (f *fakeFetcher) FetchAll(_ context.Context, sources []ics.Source) ([]ics.FetchResult, []error) {
	if f.during != nil {
		f.during()
	}
	var out []ics.FetchResult
	var errs []error
	for _, src := range sources {
		body, ok := f.bodies[src.ID]
		if !ok {
			errs = append(errs, errors.New("fetch "+src.ID+": unreachable"))
			continue
		}
		out = append(out, ics.FetchResult{Source: src, Body: []byte(body)})
	}
	return out, errs
}

func calendar(events ...string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//monthcal//test//EN"}
	for _, e := range events {
		lines = append(lines, strings.Split(e, "\n")...)
	}
	lines = append(lines, "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

const standup = `BEGIN:VEVENT
UID:standup
DTSTART:20250305T100000Z
DTEND:20250305T110000Z
SUMMARY:Standup
END:VEVENT`

const trip = `BEGIN:VEVENT
UID:trip
DTSTART;VALUE=DATE:20250310
DTEND;VALUE=DATE:20250312
SUMMARY:Trip
END:VEVENT`

const dentist = `BEGIN:VEVENT
UID:dentist
DTSTART:20250320T080000Z
DTEND:20250320T090000Z
SUMMARY:Dentist
END:VEVENT`

const summer = `BEGIN:VEVENT
UID:summer
DTSTART:20250610T080000Z
DTEND:20250610T090000Z
SUMMARY:Summer party
END:VEVENT`

var (
	workSrc = ics.Source{ID: "work", URL: "https://example.com/work.ics", Color: model.Color{R: 10}}
	homeSrc = ics.Source{ID: "home", URL: "https://example.com/home.ics", Color: model.Color{G: 10}}
)

func newRefresher(t *testing.T, f Fetcher, sources ...ics.Source) (*Refresher, *monthview.Locked) {
	t.Helper()
	v, err := monthview.New(store.New(), dates.Month{Year: 2025, Month: time.March},
		grid.Rect{W: 700, H: 620}, grid.Metrics{HeaderHeight: 20, DayHeaderHeight: 20, LaneHeight: 15, LaneGap: 2})
	require.NoError(t, err)
	locked := monthview.NewLocked(v)
	return New(f, locked, Options{Sources: sources, Location: time.UTC}), locked
}

func titles(l *monthview.Locked) []string {
	var out []string
	_ = l.Do(func(v *monthview.View) error {
		for _, ev := range v.Store().All() {
			out = append(out, ev.Title)
		}
		return nil
	})
	return out
}

func TestRunAddsUpdatesAndRemoves(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"work": calendar(standup, trip)}}
	r, locked := newRefresher(t, f, workSrc)
	ctx := context.Background()

	res, err := r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Added)
	require.ElementsMatch(t, []string{"Standup", "Trip"}, titles(locked))

	// The all-day event ends on its last day after ingestion.
	day, ok := locked.Snapshot().Day(dates.New(2025, time.March, 11))
	require.True(t, ok)
	require.Len(t, day.Entries, 1)
	require.Equal(t, "Trip", day.Entries[0].Event.Title)
	require.Equal(t, workSrc.Color, day.Entries[0].Event.Color)

	res, err = r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, Result{}, res)

	f.bodies["work"] = calendar(strings.Replace(standup, "Standup", "Daily sync", 1))
	res, err = r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, 1, res.Removed)
	require.Equal(t, 0, res.Added)
	require.Equal(t, []string{"Daily sync"}, titles(locked))
}

func TestRunPicksUpDescriptionEdits(t *testing.T) {
	withDesc := func(d string) string {
		return strings.Replace(standup, "SUMMARY:Standup", "SUMMARY:Standup\nDESCRIPTION:"+d+"\nLOCATION:Room 4", 1)
	}
	f := &fakeFetcher{bodies: map[string]string{"work": calendar(withDesc("Agenda"))}}
	r, locked := newRefresher(t, f, workSrc)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	f.bodies["work"] = calendar(withDesc("New agenda"))
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	var got model.Event
	_ = locked.Do(func(v *monthview.View) error {
		got = v.Store().All()[0]
		return nil
	})
	require.Equal(t, "New agenda", got.Description)
	require.Equal(t, "Room 4", got.Location)
}

func TestRunKeepsEventsOfFailedFeed(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{
		"work": calendar(standup),
		"home": calendar(dentist),
	}}
	r, locked := newRefresher(t, f, workSrc, homeSrc)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, titles(locked), 2)

	delete(f.bodies, "home")
	res, err := r.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unreachable")
	require.Equal(t, []string{"home"}, res.Failed)
	require.Equal(t, 0, res.Removed)
	require.ElementsMatch(t, []string{"Standup", "Dentist"}, titles(locked))
}

func TestRunRespectsCalendarToggle(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"home": calendar(dentist)}}
	r, locked := newRefresher(t, f, homeSrc)

	require.NoError(t, locked.Do(func(v *monthview.View) error {
		v.OnCalendarActiveChanged("home", false)
		return nil
	}))

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	var events []model.Event
	_ = locked.Do(func(v *monthview.View) error {
		events = v.Events()
		return nil
	})
	require.Empty(t, events)
	require.Equal(t, []string{"Dentist"}, titles(locked))

	// A later run does not see the inactive flag as a content change.
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.Updated)
}

func TestRunFollowsNavigationDuringFetch(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"work": calendar(standup, summer)}}
	r, locked := newRefresher(t, f, workSrc)
	setMonth := func(m time.Month) {
		require.NoError(t, locked.Do(func(v *monthview.View) error {
			return v.SetVisibleMonth(2025, m)
		}))
	}

	setMonth(time.June)
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Summer party"}, titles(locked))

	// The run starts on March but the user is back on June before it applies.
	setMonth(time.March)
	f.during = func() { setMonth(time.June) }
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.Removed)
	require.Equal(t, 0, res.Added)
	require.Equal(t, []string{"Summer party"}, titles(locked))
}

func TestDiff(t *testing.T) {
	at := time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)
	mk := func(id, title, cal string) model.Event {
		return model.Event{ID: id, Title: title, Start: at, End: at.Add(time.Hour), CalendarID: cal, Active: true}
	}
	inactive := mk("same", "Same", "work")
	inactive.Active = false

	stored := []model.Event{inactive, mk("changed", "Old", "work"), mk("gone", "Gone", "work"), mk("stale", "Stale", "home")}
	desired := []model.Event{mk("same", "Same", "work"), mk("changed", "New", "work"), mk("new", "New", "work"), mk("new", "Dup", "work")}

	c := Diff(stored, desired, func(cal string) bool { return cal == "work" })
	require.Len(t, c.Added, 1)
	require.Equal(t, "new", c.Added[0].ID)
	require.Equal(t, "New", c.Added[0].Title)
	require.Len(t, c.Updated, 1)
	require.Equal(t, "changed", c.Updated[0].ID)
	require.Equal(t, []string{"gone"}, c.Removed)
}

func TestWindow(t *testing.T) {
	r := New(&fakeFetcher{}, nil, Options{Location: time.UTC, HorizonMonths: 1})
	from, to := r.Window(dates.Month{Year: 2025, Month: time.March})
	require.Equal(t, time.Date(2025, time.January, 27, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC), to)

	r = New(&fakeFetcher{}, nil, Options{Location: time.UTC})
	from, to = r.Window(dates.Month{Year: 2025, Month: time.March})
	require.Equal(t, time.Date(2025, time.February, 24, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC), to)
}

func TestSchedule(t *testing.T) {
	r, _ := newRefresher(t, &fakeFetcher{})
	c := cron.New()

	_, err := r.Schedule(context.Background(), c, "not a spec")
	require.Error(t, err)

	id, err := r.Schedule(context.Background(), c, "*/15 * * * *")
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)
	require.Equal(t, id, c.Entries()[0].ID)
}
