// Package grid computes pixel geometry for a 7-column month grid: cell
// bounds, lane offsets inside cells and the inverse point-to-cell mapping.
package grid

import "monthcal/internal/dates"

// Rect is an axis-aligned rectangle in container pixels.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"width" yaml:"width"`
	H float64 `json:"height" yaml:"height"`
}

// Contains reports whether (x, y) lies inside r. The right and bottom edges
// belong to the neighbouring rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Metrics are the fixed vertical measures of the grid.
type Metrics struct {
	// HeaderHeight is reserved at the top of the container for weekday names.
	HeaderHeight float64 `yaml:"header_height" json:"header_height"`
	// DayHeaderHeight is the day-number strip at the top of every cell.
	DayHeaderHeight float64 `yaml:"day_header_height" json:"day_header_height"`
	LaneHeight      float64 `yaml:"lane_height" json:"lane_height"`
	LaneGap         float64 `yaml:"lane_gap" json:"lane_gap"`
}

// DefaultMetrics mirrors the paddings of the desktop month view.
func DefaultMetrics() Metrics {
	return Metrics{
		HeaderHeight:    25,
		DayHeaderHeight: 21,
		LaneHeight:      15,
		LaneGap:         2,
	}
}

// Grid divides a container uniformly into 7 columns and weeks rows below
// the header.
type Grid struct {
	bounds  Rect
	metrics Metrics
	weeks   int
}

func New(weeks int, bounds Rect, metrics Metrics) Grid {
	return Grid{bounds: bounds, metrics: metrics, weeks: weeks}
}

func (g Grid) Weeks() int { return g.weeks }
func (g Grid) Bounds() Rect { return g.bounds }
func (g Grid) Metrics() Metrics { return g.metrics }
func (g Grid) CellWidth() float64 { return g.bounds.W / dates.DaysPerWeek }

func (g Grid) CellHeight() float64 {
	if g.weeks <= 0 {
		return 0
	}
	h := (g.bounds.H - g.metrics.HeaderHeight) / float64(g.weeks)
	return max(h, 0)
}

// Area is the part of the container covered by cells.
func (g Grid) Area() Rect {
	return Rect{
		X: g.bounds.X,
		Y: g.bounds.Y + g.metrics.HeaderHeight,
		W: g.bounds.W,
		H: g.CellHeight() * float64(g.weeks),
	}
}

// Cell returns the bounds of column col (0 = Monday) in row row.
func (g Grid) Cell(col, row int) Rect {
	w, h := g.CellWidth(), g.CellHeight()
	return Rect{
		X: g.bounds.X + float64(col)*w,
		Y: g.bounds.Y + g.metrics.HeaderHeight + float64(row)*h,
		W: w,
		H: h,
	}
}

// LaneY returns the vertical offset of lane inside a cell, relative to the
// cell's top.
func (g Grid) LaneY(lane int) float64 {
	return g.metrics.DayHeaderHeight + float64(lane)*(g.metrics.LaneHeight+g.metrics.LaneGap)
}

// LaneRect is the bar rectangle of a lane within one day cell.
func (g Grid) LaneRect(col, row, lane int) Rect {
	cell := g.Cell(col, row)
	return Rect{X: cell.X, Y: cell.Y + g.LaneY(lane), W: cell.W, H: g.metrics.LaneHeight}
}

// SpanRect is the bar rectangle of a lane across columns startCol..endCol
// of a row, e.g. to lay out a title over a multi-day segment.
func (g Grid) SpanRect(row, startCol, endCol, lane int) Rect {
	r := g.LaneRect(startCol, row, lane)
	r.W = float64(endCol-startCol+1) * g.CellWidth()
	return r
}

// LaneFits reports whether lane ends inside its cell.
func (g Grid) LaneFits(lane int) bool {
	return g.LaneY(lane)+g.metrics.LaneHeight <= g.CellHeight()
}

// At maps a point to the enclosing cell. ok is false for points outside the
// cell area, including the weekday header.
func (g Grid) At(x, y float64) (col, row int, ok bool) {
	area := g.Area()
	if g.weeks <= 0 || area.Empty() || !area.Contains(x, y) {
		return 0, 0, false
	}
	col = int((x - area.X) / g.CellWidth())
	row = int((y - area.Y) / g.CellHeight())
	col = min(col, dates.DaysPerWeek-1)
	row = min(row, g.weeks-1)
	return col, row, true
}
