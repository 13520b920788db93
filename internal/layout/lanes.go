package layout

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"monthcal/internal/dates"
	"monthcal/internal/model"
)

// Shape describes the end caps of a segment within one day cell.
type Shape int

const (
	// ShapeSolo is rounded on both sides: the segment starts and ends here.
	ShapeSolo Shape = iota
	// ShapeStart is rounded on the left only.
	ShapeStart
	// ShapeMiddle is a plain rectangle.
	ShapeMiddle
	// ShapeEnd is rounded on the right only.
	ShapeEnd
)

var shapeNames = [...]string{"solo", "start", "middle", "end"}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("Shape(%d)", int(s))
	}
	return shapeNames[s]
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(b []byte) error {
	i := slices.Index(shapeNames[:], strings.ToLower(string(b)))
	if i < 0 {
		return fmt.Errorf("layout: unknown shape %q", b)
	}
	*s = Shape(i)
	return nil
}

// Segment is the part of an event inside one week row.
type Segment struct {
	Event    model.Event
	Row      int
	StartCol int // 0 = Monday
	EndCol   int
	Lane     int
}

// Days is the number of days the segment shares with its week.
func (s Segment) Days() int { return s.EndCol - s.StartCol + 1 }

func (s Segment) Covers(col int) bool { return col >= s.StartCol && col <= s.EndCol }

func (s Segment) overlaps(o Segment) bool {
	return s.StartCol <= o.EndCol && o.StartCol <= s.EndCol
}

// ShapeOn returns the segment shape in column col.
func (s Segment) ShapeOn(col int) Shape {
	first, last := col == s.StartCol, col == s.EndCol
	switch {
	case first && last:
		return ShapeSolo
	case first:
		return ShapeStart
	case last:
		return ShapeEnd
	default:
		return ShapeMiddle
	}
}

type laneKey struct {
	id  string
	day dates.Date
}

// Lanes is the lane assignment of a whole month grid.
type Lanes struct {
	weeks [][]Segment
	byDay map[laneKey]int
}

// Assign computes lanes for every week row of the index's month. Rows are
// independent: a multi-week event gets a fresh lane in each row.
func Assign(idx *Index) *Lanes {
	m := idx.Month()
	rows := dates.Weeks(m.Year, m.Month)

	l := &Lanes{
		weeks: make([][]Segment, len(rows)),
		byDay: make(map[laneKey]int),
	}
	for row, week := range rows {
		segs := AssignWeek(row, week, idx)
		l.weeks[row] = segs
		for _, seg := range segs {
			for col := seg.StartCol; col <= seg.EndCol; col++ {
				l.byDay[laneKey{id: seg.Event.ID, day: week[col]}] = seg.Lane
			}
		}
	}
	return l
}

// AssignWeek ranks the events present in one week row and gives each the
// lowest lane not taken by an overlapping, higher-ranked event. The result
// depends only on the set of events, not on their order in the index.
func AssignWeek(row int, week [dates.DaysPerWeek]dates.Date, idx *Index) []Segment {
	var segs []Segment
	pos := make(map[string]int)

	for col, day := range week {
		for _, ev := range idx.On(day) {
			if i, ok := pos[ev.ID]; ok {
				segs[i].EndCol = col
				continue
			}
			pos[ev.ID] = len(segs)
			segs = append(segs, Segment{Event: ev, Row: row, StartCol: col, EndCol: col})
		}
	}

	slices.SortFunc(segs, rankSegments)

	for i := range segs {
		taken := make(map[int]bool)
		for _, prev := range segs[:i] {
			if prev.overlaps(segs[i]) {
				taken[prev.Lane] = true
			}
		}
		lane := 0
		for taken[lane] {
			lane++
		}
		segs[i].Lane = lane
	}
	return segs
}

// rankSegments orders segments for lane resolution. Segments already
// present on a day outrank those first appearing on it. Between segments
// starting together, the one with more days from the common start wins;
// equal sizes fall back to title, then id.
func rankSegments(a, b Segment) int {
	if c := cmp.Compare(a.StartCol, b.StartCol); c != 0 {
		return c
	}
	from := max(a.StartCol, b.StartCol)
	sizeA, sizeB := a.EndCol-from+1, b.EndCol-from+1
	if c := cmp.Compare(sizeB, sizeA); c != 0 {
		return c
	}
	if c := strings.Compare(a.Event.Title, b.Event.Title); c != 0 {
		return c
	}
	return cmp.Compare(a.Event.ID, b.Event.ID)
}

// LaneOf returns the lane of an event on a given day.
func (l *Lanes) LaneOf(id string, d dates.Date) (int, bool) {
	lane, ok := l.byDay[laneKey{id: id, day: d}]
	return lane, ok
}

// Week returns the ranked segments of a row.
func (l *Lanes) Week(row int) []Segment {
	if row < 0 || row >= len(l.weeks) {
		return nil
	}
	return l.weeks[row]
}

func (l *Lanes) Rows() int { return len(l.weeks) }

// LaneCount returns the number of lanes used in a row (highest lane + 1).
func (l *Lanes) LaneCount(row int) int {
	n := 0
	for _, seg := range l.Week(row) {
		n = max(n, seg.Lane+1)
	}
	return n
}
