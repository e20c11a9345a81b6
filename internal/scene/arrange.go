package scene

import (
	"math"
	"sort"

	"refboard/internal/command"
	"refboard/internal/item"
	"refboard/pkg/geometry"
)

// Arrange lays the selected items out next to each other with the given
// gap, anchored at the selection's current top-left corner, as one undo
// step. When optimal is false the items form a single row ordered by
// their current position; when true they form a roughly square grid.
// Fewer than two selected items is a no-op.
func (s *Scene) Arrange(gap float64, optimal bool) {
	items := s.SelectedItems()
	if len(items) < 2 {
		return
	}

	ordered := make([]item.Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Position(), ordered[j].Position()
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	columns := len(ordered)
	if optimal {
		columns = int(math.Ceil(math.Sqrt(float64(len(ordered)))))
	}

	origin := s.SelectionRect().TopLeft()
	targets := make([]geometry.Point2D, len(ordered))
	x, y := origin.X, origin.Y
	rowHeight := 0.0
	for i, it := range ordered {
		if i > 0 && i%columns == 0 {
			x = origin.X
			y += rowHeight + gap
			rowHeight = 0
		}
		sbr := item.SceneBoundingRect(it)
		// keep the item's offset between its origin and its visual
		// top-left; only the visual box is placed on the grid
		targets[i] = geometry.NewPoint2D(x, y).Add(it.Position().Sub(sbr.TopLeft()))
		x += sbr.Width + gap
		if sbr.Height > rowHeight {
			rowHeight = sbr.Height
		}
	}
	s.Push(command.NewArrangeItems(ordered, targets))
}
