package preview

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-backend/internal/apperror"
	"whiteboard-backend/internal/model"
)

func TestDirtySet(t *testing.T) {
	t.Run("marking is idempotent", func(t *testing.T) {
		d := NewDirtySet()
		d.Mark(1)
		d.Mark(1)
		d.Mark(2)
		assert.Equal(t, 2, d.Len())

		ids := d.Drain()
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		assert.Equal(t, []int64{1, 2}, ids)
	})

	t.Run("drain clears the set", func(t *testing.T) {
		d := NewDirtySet()
		d.Mark(1)
		d.Drain()
		assert.Empty(t, d.Drain())
		assert.Equal(t, 0, d.Len())
	})

	t.Run("concurrent marks", func(t *testing.T) {
		d := NewDirtySet()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				d.Mark(id % 10)
			}(int64(i))
		}
		wg.Wait()
		assert.Equal(t, 10, d.Len())
	})
}

type fakeBoardSource struct {
	boards       map[int64]*model.Whiteboard
	teachingByID map[int64]int64 // courseID -> viewer
	previews     map[int64][2]string
}

func (f *fakeBoardSource) FindByID(id int64, includeDeleted bool) (*model.Whiteboard, error) {
	wb, ok := f.boards[id]
	if !ok {
		return nil, apperror.NotFound("whiteboard", id)
	}
	return wb, nil
}

func (f *fakeBoardSource) FindTeachingViewer(courseID int64) (int64, error) {
	return f.teachingByID[courseID], nil
}

func (f *fakeBoardSource) SetPreviewURLs(id int64, imageURL, thumbnailURL string) error {
	f.previews[id] = [2]string{imageURL, thumbnailURL}
	return nil
}

type fakeElementSource struct{}

func (fakeElementSource) FindByWhiteboard(whiteboardID int64) ([]model.WhiteboardElement, error) {
	return []model.WhiteboardElement{{UUID: "a", ZIndex: 0}}, nil
}

type fakeRenderer struct {
	renders      int
	thumbRenders int
	err          error
}

func (f *fakeRenderer) Render(_ context.Context, elements []model.WhiteboardElement) ([]byte, error) {
	f.renders++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}

func (f *fakeRenderer) RenderThumbnail(_ context.Context, elements []model.WhiteboardElement) ([]byte, error) {
	f.thumbRenders++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("thumb-bytes"), nil
}

type fakeUploader struct {
	keys []string
	data map[string][]byte
}

func (f *fakeUploader) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	f.keys = append(f.keys, key)
	f.data[key] = data
	return "https://cdn.example.com/" + key, nil
}

type fakeLocker struct {
	granted        bool
	attempts       int
	releases       int
	beatsAtRelease int
	heartbeat      *fakeHeartbeater
}

func (f *fakeLocker) WithLock(_ context.Context, fn func() error) (bool, error) {
	f.attempts++
	if !f.granted {
		return false, nil
	}
	err := fn()
	if f.heartbeat != nil {
		f.beatsAtRelease = f.heartbeat.beats
	}
	f.releases++
	return true, err
}

type fakeHeartbeater struct {
	beats int
}

func (f *fakeHeartbeater) HousekeeperHeartbeat() error {
	f.beats++
	return nil
}

type housekeeperFixture struct {
	hk        *Housekeeper
	dirty     *DirtySet
	boards    *fakeBoardSource
	renderer  *fakeRenderer
	uploader  *fakeUploader
	locker    *fakeLocker
	heartbeat *fakeHeartbeater
}

func newHousekeeperFixture(t *testing.T) *housekeeperFixture {
	t.Helper()

	f := &housekeeperFixture{
		dirty: NewDirtySet(),
		boards: &fakeBoardSource{
			boards: map[int64]*model.Whiteboard{
				1: {ID: 1, CourseID: 42},
			},
			teachingByID: map[int64]int64{42: 7},
			previews:     make(map[int64][2]string),
		},
		renderer:  &fakeRenderer{},
		uploader:  &fakeUploader{},
		heartbeat: &fakeHeartbeater{},
	}
	f.locker = &fakeLocker{granted: true, heartbeat: f.heartbeat}
	f.hk = NewHousekeeper(f.dirty, f.boards, fakeElementSource{}, f.renderer, f.uploader, f.locker, f.heartbeat, time.Second)
	return f
}

func TestHousekeeperCycle_RendersDirtyBoards(t *testing.T) {
	f := newHousekeeperFixture(t)
	f.dirty.Mark(1)

	require.NoError(t, f.hk.Cycle(context.Background()))

	assert.Equal(t, 1, f.renderer.renders)
	assert.Equal(t, 1, f.renderer.thumbRenders)
	require.Len(t, f.uploader.keys, 2, "image and thumbnail")
	urls := f.boards.previews[1]
	assert.Contains(t, urls[0], ".png")
	assert.Contains(t, urls[1], "_thumb.png")

	assert.Equal(t, 1, f.heartbeat.beats)
	assert.Equal(t, 1, f.locker.releases, "lock released after the cycle")
	assert.Equal(t, 0, f.dirty.Len())
}

func TestHousekeeperCycle_ThumbnailRenderedSeparately(t *testing.T) {
	f := newHousekeeperFixture(t)
	f.dirty.Mark(1)
	require.NoError(t, f.hk.Cycle(context.Background()))

	require.Len(t, f.uploader.keys, 2)
	image := f.uploader.data[f.uploader.keys[0]]
	thumb := f.uploader.data[f.uploader.keys[1]]
	assert.NotEqual(t, image, thumb, "thumbnail is its own render, not a copy")
}

// The drain, the renders, and the heartbeat must all happen while the
// lock is held; a release before the heartbeat would let two instances
// interleave a cycle.
func TestHousekeeperCycle_WorkCompletesBeforeLockRelease(t *testing.T) {
	f := newHousekeeperFixture(t)
	f.dirty.Mark(1)

	require.NoError(t, f.hk.Cycle(context.Background()))
	assert.Equal(t, 1, f.locker.beatsAtRelease, "heartbeat fired inside the critical section")
}

func TestHousekeeperCycle_KeyLayout(t *testing.T) {
	f := newHousekeeperFixture(t)
	f.dirty.Mark(1)
	require.NoError(t, f.hk.Cycle(context.Background()))

	// course 42 reversed zero-padded: 0000000042 -> 2400000000
	for _, key := range f.uploader.keys {
		assert.True(t, strings.HasPrefix(key, "2400000000/whiteboard/"), "key %q", key)
	}
}

func TestHousekeeperCycle_SkipsWhenLockHeldElsewhere(t *testing.T) {
	f := newHousekeeperFixture(t)
	f.locker.granted = false
	f.dirty.Mark(1)

	require.NoError(t, f.hk.Cycle(context.Background()))

	assert.Equal(t, 0, f.renderer.renders)
	assert.Equal(t, 1, f.dirty.Len(), "board stays dirty for the lock holder")
	assert.Equal(t, 0, f.heartbeat.beats)
	assert.Equal(t, 0, f.locker.releases, "nothing to release when not granted")
}

func TestHousekeeperCycle_SkipsCourseWithoutTeachingMember(t *testing.T) {
	f := newHousekeeperFixture(t)
	f.boards.teachingByID[42] = 0
	f.dirty.Mark(1)

	require.NoError(t, f.hk.Cycle(context.Background()))
	assert.Equal(t, 0, f.renderer.renders)
	assert.Equal(t, 1, f.heartbeat.beats, "cycle still completes")
}

func TestHousekeeperCycle_SkipsDeletedBoard(t *testing.T) {
	f := newHousekeeperFixture(t)
	now := time.Now()
	f.boards.boards[1].DeletedAt = &now
	f.dirty.Mark(1)

	require.NoError(t, f.hk.Cycle(context.Background()))
	assert.Equal(t, 0, f.renderer.renders)
}

func TestHousekeeperCycle_RenderFailureIsolatedPerBoard(t *testing.T) {
	f := newHousekeeperFixture(t)
	f.boards.boards[2] = &model.Whiteboard{ID: 2, CourseID: 42}
	f.renderer.err = errors.New("renderer crashed")
	f.dirty.Mark(1)
	f.dirty.Mark(2)

	require.NoError(t, f.hk.Cycle(context.Background()))

	assert.Equal(t, 2, f.renderer.renders, "second board still attempted")
	assert.Empty(t, f.boards.previews)
	assert.Equal(t, 1, f.heartbeat.beats)
}
