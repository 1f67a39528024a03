package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviewKey(t *testing.T) {
	assert.Equal(t, "2400000000/whiteboard/a.png", PreviewKey(42, "whiteboard", "a.png"))
	assert.Equal(t, "0000000001/whiteboard/a.png", PreviewKey(1000000000, "whiteboard", "a.png"))
}

func TestReverseCourseID(t *testing.T) {
	// Sequential course ids must land on different prefixes.
	assert.Equal(t, "1210000000", reverseCourseID(121))
	assert.Equal(t, "2210000000", reverseCourseID(122))
	assert.Equal(t, "0000000000", reverseCourseID(0))
}
