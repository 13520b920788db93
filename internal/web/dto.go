package web

import (
	"time"

	"monthcal/internal/dates"
	"monthcal/internal/grid"
	"monthcal/internal/layout"
	"monthcal/internal/model"
	"monthcal/internal/monthview"
)

// layoutResponse is the JSON shape of /api/layout and of every endpoint
// that changes the layout.
type layoutResponse struct {
	Month    string      `json:"month"`
	Year     int         `json:"year"`
	MonthNum int         `json:"month_num"`
	Weeks    int         `json:"weeks"`
	Selected *dates.Date `json:"selected"`
	Days     []dayDTO    `json:"days"`
}

type dayDTO struct {
	Date        dates.Date `json:"date"`
	Row         int        `json:"row"`
	Col         int        `json:"col"`
	InMonth     bool       `json:"in_month"`
	FirstOfWeek bool       `json:"first_of_week"`
	LastOfWeek  bool       `json:"last_of_week"`
	Selected    bool       `json:"selected"`
	Bounds      grid.Rect  `json:"bounds"`
	Entries     []entryDTO `json:"entries"`
}

type entryDTO struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	CalendarID string       `json:"calendar_id"`
	Color      string       `json:"color"`
	Lane       int          `json:"lane"`
	Shape      layout.Shape `json:"shape"`
	Bounds     grid.Rect    `json:"bounds"`
	Span       grid.Rect    `json:"span"`
	Fits       bool         `json:"fits"`
}

type eventDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	CalendarID  string    `json:"calendar_id"`
	Color       string    `json:"color"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Active      bool      `json:"active"`
}

type eventsResponse struct {
	Month  string     `json:"month"`
	Events []eventDTO `json:"events"`
}

type selectResponse struct {
	Day *dayDTO `json:"day"`
}

type refreshResponse struct {
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Removed   int      `json:"removed"`
	Truncated []string `json:"truncated,omitempty"`
	Failed    []string `json:"failed,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newLayoutResponse(l monthview.Layout) layoutResponse {
	resp := layoutResponse{
		Month:    l.Month.String(),
		Year:     l.Month.Year,
		MonthNum: int(l.Month.Month),
		Weeks:    l.Weeks,
		Days:     make([]dayDTO, 0, len(l.Days)),
	}
	for _, d := range l.Days {
		if d.Selected {
			resp.Selected = ptr(d.Date)
		}
		resp.Days = append(resp.Days, newDayDTO(d))
	}
	return resp
}

func newDayDTO(d monthview.Day) dayDTO {
	out := dayDTO{
		Date:        d.Date,
		Row:         d.Row,
		Col:         d.Col,
		InMonth:     d.InMonth,
		FirstOfWeek: d.FirstOfWeek,
		LastOfWeek:  d.LastOfWeek,
		Selected:    d.Selected,
		Bounds:      d.Bounds,
		Entries:     make([]entryDTO, 0, len(d.Entries)),
	}
	for _, e := range d.Entries {
		out.Entries = append(out.Entries, entryDTO{
			ID:         e.Event.ID,
			Title:      e.Event.Title,
			CalendarID: e.Event.CalendarID,
			Color:      e.Event.Color.Hex(),
			Lane:       e.Lane,
			Shape:      e.Shape,
			Bounds:     e.Bounds,
			Span:       e.Span,
			Fits:       e.Fits,
		})
	}
	return out
}

func newEventDTO(ev model.Event) eventDTO {
	return eventDTO{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		CalendarID:  ev.CalendarID,
		Color:       ev.Color.Hex(),
		Start:       ev.Start,
		End:         ev.End,
		Active:      ev.Active,
	}
}
