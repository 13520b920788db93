package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "monthcal/internal/log"
)

// ParsedEvent is the normalized representation of a VEVENT before
// recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if this VEVENT overrides one instance
}

// IsOverride reports whether the event replaces a single recurring instance.
func (p ParsedEvent) IsOverride() bool { return p.Recurrence != nil }

// ParseICS parses one ICS payload. Broken VEVENTs are logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, err := parseVEvent(src, comp)
		if err != nil {
			appLog.Error("ics vevent parse failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = start

	// DTEND is optional: all-day events default to one day, timed events
	// to zero duration.
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		end, err := ve.GetEndAt()
		if err != nil {
			return out, fmt.Errorf("DTEND: %w", err)
		}
		out.End = end
	} else if out.AllDay {
		out.End = start.AddDate(0, 0, 1)
	} else {
		out.End = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, tzidOf(p), start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value, tzidOf(p), start.Location()); err == nil {
			out.Recurrence = &t
		}
	}

	return out, nil
}

// isDateValue reports VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func tzidOf(p *ical.IANAProperty) string {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		return tzs[0]
	}
	return ""
}

// parseICSTime parses DATE / DATE-TIME / UTC DATE-TIME values used by
// EXDATE and RECURRENCE-ID. Floating values use tzid when it resolves,
// otherwise fallback.
func parseICSTime(v, tzid string, fallback *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	loc := fallback
	if loc == nil {
		loc = time.Local
	}
	if tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
