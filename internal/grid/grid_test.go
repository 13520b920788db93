package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var metrics = Metrics{HeaderHeight: 20, DayHeaderHeight: 10, LaneHeight: 8, LaneGap: 2}

func TestCellBounds(t *testing.T) {
	g := New(5, Rect{W: 700, H: 520}, metrics)

	require.Equal(t, 100.0, g.CellWidth())
	require.Equal(t, 100.0, g.CellHeight())
	require.Equal(t, Rect{X: 0, Y: 20, W: 100, H: 100}, g.Cell(0, 0))
	require.Equal(t, Rect{X: 600, Y: 420, W: 100, H: 100}, g.Cell(6, 4))
}

func TestCellBoundsWithOffset(t *testing.T) {
	g := New(4, Rect{X: 10, Y: 5, W: 140, H: 100}, metrics)
	require.Equal(t, Rect{X: 30, Y: 45, W: 20, H: 20}, g.Cell(1, 1))
}

func TestLaneGeometry(t *testing.T) {
	g := New(5, Rect{W: 700, H: 520}, metrics)

	require.Equal(t, 10.0, g.LaneY(0))
	require.Equal(t, 30.0, g.LaneY(2))
	require.Equal(t, Rect{X: 200, Y: 140, W: 100, H: 8}, g.LaneRect(2, 1, 1))
	require.Equal(t, Rect{X: 100, Y: 40, W: 300, H: 8}, g.SpanRect(0, 1, 3, 1))

	require.True(t, g.LaneFits(8))  // 10 + 8*10 + 8 = 98
	require.False(t, g.LaneFits(9)) // 108 > 100
}

func TestAt(t *testing.T) {
	g := New(5, Rect{W: 700, H: 520}, metrics)

	tests := []struct {
		name     string
		x, y     float64
		col, row int
		ok       bool
	}{
		{"top left cell", 1, 21, 0, 0, true},
		{"inner cell", 350, 250, 3, 2, true},
		{"right edge of last column", 699.9, 519.9, 6, 4, true},
		{"header strip", 50, 10, 0, 0, false},
		{"left of grid", -1, 100, 0, 0, false},
		{"below grid", 50, 520, 0, 0, false},
		{"right of grid", 700, 100, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, row, ok := g.At(tt.x, tt.y)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.col, col)
				require.Equal(t, tt.row, row)
			}
		})
	}
}

func TestDegenerateGrid(t *testing.T) {
	_, _, ok := New(0, Rect{W: 700, H: 500}, metrics).At(10, 30)
	require.False(t, ok)

	small := New(5, Rect{W: 700, H: 10}, metrics)
	require.Equal(t, 0.0, small.CellHeight())
	_, _, ok = small.At(10, 15)
	require.False(t, ok)
}
