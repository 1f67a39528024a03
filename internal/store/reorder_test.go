package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"whiteboard-backend/internal/model"
)

func board(zs ...int) []model.WhiteboardElement {
	els := make([]model.WhiteboardElement, len(zs))
	for i, z := range zs {
		els[i] = model.WhiteboardElement{UUID: uuidFor(i), ZIndex: z}
	}
	return els
}

// uuidFor stable fake uuids: "u0", "u1", ...
func uuidFor(i int) string {
	return "u" + string(rune('0'+i))
}

func changesByUUID(changes []zChange) map[string]int {
	m := make(map[string]int, len(changes))
	for _, ch := range changes {
		m[ch.UUID] = ch.ZIndex
	}
	return m
}

func TestPlanReorder_Front(t *testing.T) {
	t.Run("moves named band to top and renumbers densely", func(t *testing.T) {
		// u0..u4 at z 0..4, bring u1 to front
		changes := planReorder(board(0, 1, 2, 3, 4), []string{"u1"}, model.ReorderFront)

		m := changesByUUID(changes)
		assert.Equal(t, 4, m["u1"])
		assert.Equal(t, 1, m["u2"])
		assert.Equal(t, 2, m["u3"])
		assert.Equal(t, 3, m["u4"])
		assert.NotContains(t, m, "u0") // already at 0, unchanged
	})

	t.Run("band keeps its internal paint order", func(t *testing.T) {
		changes := planReorder(board(0, 1, 2, 3), []string{"u0", "u2"}, model.ReorderFront)

		m := changesByUUID(changes)
		// kept: u1,u3 then band: u0,u2
		assert.Equal(t, 0, m["u1"])
		assert.Equal(t, 1, m["u3"])
		assert.Equal(t, 2, m["u0"])
		assert.Equal(t, 3, m["u2"])
	})

	t.Run("collapses sparse z values", func(t *testing.T) {
		changes := planReorder(board(3, 10, 42), []string{"u0"}, model.ReorderFront)

		m := changesByUUID(changes)
		assert.Equal(t, 0, m["u1"])
		assert.Equal(t, 1, m["u2"])
		assert.Equal(t, 2, m["u0"])
	})

	t.Run("element already at front is a no-op band move", func(t *testing.T) {
		changes := planReorder(board(0, 1, 2), []string{"u2"}, model.ReorderFront)
		assert.Empty(t, changes)
	})
}

func TestPlanReorder_Back(t *testing.T) {
	changes := planReorder(board(0, 1, 2, 3), []string{"u3"}, model.ReorderBack)

	m := changesByUUID(changes)
	assert.Equal(t, 0, m["u3"])
	assert.Equal(t, 1, m["u0"])
	assert.Equal(t, 2, m["u1"])
	assert.Equal(t, 3, m["u2"])
}

func TestPlanReorder_Forward(t *testing.T) {
	t.Run("swaps with the next element up", func(t *testing.T) {
		changes := planReorder(board(0, 1, 2), []string{"u0"}, model.ReorderForward)

		m := changesByUUID(changes)
		assert.Equal(t, 1, m["u0"])
		assert.Equal(t, 0, m["u1"])
		assert.NotContains(t, m, "u2")
	})

	t.Run("topmost element clamps to a no-op", func(t *testing.T) {
		changes := planReorder(board(0, 1, 2), []string{"u2"}, model.ReorderForward)
		assert.Empty(t, changes)
	})

	t.Run("preserves sparse z values", func(t *testing.T) {
		changes := planReorder(board(5, 17), []string{"u0"}, model.ReorderForward)

		m := changesByUUID(changes)
		// The pair trades ranks but the board keeps z values {5,17}.
		assert.Equal(t, 17, m["u0"])
		assert.Equal(t, 5, m["u1"])
	})

	t.Run("adjacent named elements move as a block", func(t *testing.T) {
		changes := planReorder(board(0, 1, 2), []string{"u1", "u2"}, model.ReorderForward)
		// u2 clamps at top; u1 cannot leapfrog u2, so nothing moves.
		assert.Empty(t, changes)
	})
}

func TestPlanReorder_Backward(t *testing.T) {
	t.Run("swaps with the next element down", func(t *testing.T) {
		changes := planReorder(board(0, 1, 2), []string{"u2"}, model.ReorderBackward)

		m := changesByUUID(changes)
		assert.Equal(t, 1, m["u2"])
		assert.Equal(t, 2, m["u1"])
	})

	t.Run("bottom element clamps to a no-op", func(t *testing.T) {
		changes := planReorder(board(0, 1, 2), []string{"u0"}, model.ReorderBackward)
		assert.Empty(t, changes)
	})
}

func TestPlanReorder_EdgeCases(t *testing.T) {
	t.Run("empty board", func(t *testing.T) {
		assert.Nil(t, planReorder(nil, []string{"u0"}, model.ReorderFront))
	})

	t.Run("no uuids", func(t *testing.T) {
		assert.Nil(t, planReorder(board(0, 1), nil, model.ReorderFront))
	})

	t.Run("unknown uuids are ignored", func(t *testing.T) {
		assert.Empty(t, planReorder(board(0, 1), []string{"ghost"}, model.ReorderFront))
	})

	t.Run("unknown direction", func(t *testing.T) {
		assert.Nil(t, planReorder(board(0, 1), []string{"u0"}, model.ReorderDirection("SIDEWAYS")))
	})
}
