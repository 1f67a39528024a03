package preview

import "sync"

// DirtySet boards whose previews are stale. Marking is idempotent; the
// housekeeper drains the whole set each cycle, so a board edited many
// times between cycles is rendered once.
type DirtySet struct {
	mu     sync.Mutex
	boards map[int64]bool
}

// NewDirtySet DirtySet constructor
func NewDirtySet() *DirtySet {
	return &DirtySet{boards: make(map[int64]bool)}
}

// Mark flags a board for regeneration.
func (d *DirtySet) Mark(whiteboardID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.boards[whiteboardID] = true
}

// Drain returns the flagged boards and clears the set. Boards marked
// while a cycle is rendering land in the next cycle.
func (d *DirtySet) Drain() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]int64, 0, len(d.boards))
	for id := range d.boards {
		ids = append(ids, id)
	}
	d.boards = make(map[int64]bool)
	return ids
}

// Len number of boards currently flagged.
func (d *DirtySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.boards)
}
