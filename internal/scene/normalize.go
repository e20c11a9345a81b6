package scene

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"refboard/internal/command"
	"refboard/internal/item"
)

// NormalizeMode selects which displayed metric the selected items are
// equalized on.
type NormalizeMode int

const (
	// NormalizeHeight equalizes displayed heights.
	NormalizeHeight NormalizeMode = iota
	// NormalizeWidth equalizes displayed widths.
	NormalizeWidth
	// NormalizeArea equalizes displayed areas.
	NormalizeArea
)

// Normalize rescales every selected item so its displayed metric matches
// the selection's average, each around its own center, as one undo step.
// Fewer than two selected items is a no-op, as are items whose metric is
// degenerate.
func (s *Scene) Normalize(mode NormalizeMode) {
	items := s.SelectedItems()
	if len(items) < 2 {
		return
	}

	displayed := make([]float64, len(items))
	for i, it := range items {
		displayed[i] = displayedMetric(it, mode)
	}
	avg := stat.Mean(displayed, nil)
	if avg <= 0 {
		return
	}

	targets := make([]float64, len(items))
	for i, it := range items {
		if displayed[i] <= 0 {
			targets[i] = it.Scale()
			continue
		}
		ratio := avg / displayed[i]
		if mode == NormalizeArea {
			ratio = math.Sqrt(ratio)
		}
		targets[i] = it.Scale() * ratio
	}
	s.Push(command.NewNormalizeItems(items, targets))
}

func displayedMetric(it item.Item, mode NormalizeMode) float64 {
	br := it.BoundingRect()
	sc := it.Scale()
	switch mode {
	case NormalizeWidth:
		return br.Width * sc
	case NormalizeArea:
		return br.Width * br.Height * sc * sc
	default:
		return br.Height * sc
	}
}
