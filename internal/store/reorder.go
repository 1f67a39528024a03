package store

import (
	"sort"

	"whiteboard-backend/internal/model"
)

// zChange one element's new paint rank
type zChange struct {
	UUID   string
	ZIndex int
}

// planReorder computes the z-index rewrites for a reorder request.
// ordered must be the whiteboard's elements in current paint order
// (z ascending, back to front). Unknown uuids are ignored.
//
// FRONT/BACK move the named set to the top/bottom band, keep its
// internal paint order, and renumber the whole board densely from
// zero. FORWARD/BACKWARD swap each named element with its immediate
// neighbor, clamped at the boundary: the topmost element on FORWARD
// stays put.
func planReorder(ordered []model.WhiteboardElement, uuids []string, direction model.ReorderDirection) []zChange {
	if len(ordered) == 0 || len(uuids) == 0 {
		return nil
	}

	selected := make(map[string]bool, len(uuids))
	for _, u := range uuids {
		selected[u] = true
	}

	switch direction {
	case model.ReorderFront, model.ReorderBack:
		return planBand(ordered, selected, direction == model.ReorderFront)
	case model.ReorderForward:
		return planStep(ordered, selected, true)
	case model.ReorderBackward:
		return planStep(ordered, selected, false)
	}
	return nil
}

// planBand partitions into kept and named, concatenates, and renumbers
// densely from zero.
func planBand(ordered []model.WhiteboardElement, selected map[string]bool, toFront bool) []zChange {
	kept := make([]model.WhiteboardElement, 0, len(ordered))
	named := make([]model.WhiteboardElement, 0, len(selected))
	for _, el := range ordered {
		if selected[el.UUID] {
			named = append(named, el)
		} else {
			kept = append(kept, el)
		}
	}
	if len(named) == 0 {
		return nil
	}

	var next []model.WhiteboardElement
	if toFront {
		next = append(kept, named...)
	} else {
		next = append(named, kept...)
	}

	changes := make([]zChange, 0, len(next))
	for i, el := range next {
		if el.ZIndex != i {
			changes = append(changes, zChange{UUID: el.UUID, ZIndex: i})
		}
	}
	return changes
}

// planStep swaps each named element with its neighbor one rank up
// (forward) or down (backward). The permuted order keeps the board's
// original z values, so gaps survive single-step moves.
func planStep(ordered []model.WhiteboardElement, selected map[string]bool, forward bool) []zChange {
	next := make([]model.WhiteboardElement, len(ordered))
	copy(next, ordered)

	if forward {
		// Walk top-down so a named element does not leapfrog another
		// named element in the same request.
		for i := len(next) - 2; i >= 0; i-- {
			if selected[next[i].UUID] && !selected[next[i+1].UUID] {
				next[i], next[i+1] = next[i+1], next[i]
			}
		}
	} else {
		for i := 1; i < len(next); i++ {
			if selected[next[i].UUID] && !selected[next[i-1].UUID] {
				next[i], next[i-1] = next[i-1], next[i]
			}
		}
	}

	zs := make([]int, len(ordered))
	for i, el := range ordered {
		zs[i] = el.ZIndex
	}
	sort.Ints(zs)

	changes := make([]zChange, 0, len(next))
	for i, el := range next {
		if el.ZIndex != zs[i] {
			changes = append(changes, zChange{UUID: el.UUID, ZIndex: zs[i]})
		}
	}
	return changes
}
