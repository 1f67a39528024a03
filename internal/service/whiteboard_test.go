package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"whiteboard-backend/internal/apperror"
	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
)

type mockBoardStore struct {
	mockBoardReader
	nextID int64
}

func (m *mockBoardStore) ListByCourse(courseID int64, includeDeleted bool) ([]model.Whiteboard, error) {
	var out []model.Whiteboard
	for _, wb := range m.boards {
		if wb.CourseID != courseID {
			continue
		}
		if !includeDeleted && wb.DeletedAt != nil {
			continue
		}
		out = append(out, *wb)
	}
	return out, nil
}

func (m *mockBoardStore) Create(courseID int64, title string, userIDs []int64) (*model.Whiteboard, error) {
	m.nextID++
	wb := &model.Whiteboard{ID: m.nextID, CourseID: courseID, Title: title}
	for _, uid := range userIDs {
		wb.Users = append(wb.Users, model.User{ID: uid})
	}
	m.boards[wb.ID] = wb
	if m.collaborators[wb.ID] == nil {
		m.collaborators[wb.ID] = make(map[int64]bool)
	}
	for _, uid := range userIDs {
		m.collaborators[wb.ID][uid] = true
	}
	created := *wb
	return &created, nil
}

func (m *mockBoardStore) Update(id int64, title string, userIDs []int64) (*model.Whiteboard, error) {
	wb, ok := m.boards[id]
	if !ok || wb.DeletedAt != nil {
		return nil, apperror.NotFound("whiteboard", id)
	}
	wb.Title = title
	wb.Users = nil
	m.collaborators[id] = make(map[int64]bool)
	for _, uid := range userIDs {
		wb.Users = append(wb.Users, model.User{ID: uid})
		m.collaborators[id][uid] = true
	}
	updated := *wb
	return &updated, nil
}

func (m *mockBoardStore) SoftDelete(id int64) error {
	wb, ok := m.boards[id]
	if !ok || wb.DeletedAt != nil {
		return apperror.NotFound("whiteboard", id)
	}
	now := time.Now()
	wb.DeletedAt = &now
	return nil
}

func (m *mockBoardStore) Restore(id int64) error {
	wb, ok := m.boards[id]
	if !ok || wb.DeletedAt == nil {
		return apperror.NotFound("whiteboard", id)
	}
	wb.DeletedAt = nil
	return nil
}

type createdAsset struct {
	courseID    int64
	title       string
	ownerIDs    []int64
	categoryIDs []int64
	elements    []model.WhiteboardElement
}

type mockAssetCreator struct {
	created []createdAsset
	nextID  int64
}

func (m *mockAssetCreator) CreateWhiteboardAsset(courseID int64, title string, description *string, ownerIDs, categoryIDs []int64, elements []model.WhiteboardElement) (*model.Asset, error) {
	m.nextID++
	m.created = append(m.created, createdAsset{
		courseID:    courseID,
		title:       title,
		ownerIDs:    ownerIDs,
		categoryIDs: categoryIDs,
		elements:    elements,
	})
	return &model.Asset{ID: m.nextID, CourseID: courseID, Title: title}, nil
}

type boardFixture struct {
	svc        *WhiteboardService
	boards     *mockBoardStore
	elements   *mockElements
	assets     *mockAssetCreator
	activities *mockActivities
}

// newBoardFixture one board (id 1, course 7): student 100 collaborates,
// student 300 is enrolled but not a member, 200 teaches.
func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()

	f := &boardFixture{
		boards: &mockBoardStore{
			mockBoardReader: mockBoardReader{
				boards: map[int64]*model.Whiteboard{
					1: {ID: 1, CourseID: 7, Title: "optics", Users: []model.User{{ID: 100}}},
				},
				roles: map[int64]model.CourseRole{
					100: model.RoleStudent,
					200: model.RoleInstructor,
					300: model.RoleStudent,
				},
				collaborators: map[int64]map[int64]bool{
					1: {100: true},
				},
			},
			nextID: 1,
		},
		elements:   newMockElements(),
		assets:     &mockAssetCreator{},
		activities: &mockActivities{},
	}
	f.svc = NewWhiteboardService(f.boards, f.elements, f.assets, f.activities, &mockSessions{})
	return f
}

func student(id int64) *auth.Actor {
	return &auth.Actor{ID: id, CourseID: 7, IsStudent: true}
}

func instructor(id int64) *auth.Actor {
	return &auth.Actor{ID: id, CourseID: 7, IsTeaching: true}
}

func TestWhiteboardGet_Visibility(t *testing.T) {
	f := newBoardFixture(t)

	t.Run("collaborator sees the board", func(t *testing.T) {
		wb, err := f.svc.Get(student(100), 1, false)
		require.NoError(t, err)
		assert.Equal(t, "optics", wb.Title)
	})

	t.Run("non-collaborator gets not found, not forbidden", func(t *testing.T) {
		_, err := f.svc.Get(student(300), 1, false)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("actor from another course gets not found", func(t *testing.T) {
		outsider := &auth.Actor{ID: 100, CourseID: 8, IsStudent: true}
		_, err := f.svc.Get(outsider, 1, false)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("teaching staff see any board in course", func(t *testing.T) {
		_, err := f.svc.Get(instructor(200), 1, false)
		assert.NoError(t, err)
	})

	t.Run("deleted board visibility", func(t *testing.T) {
		require.NoError(t, f.boards.SoftDelete(1))
		defer func() { require.NoError(t, f.boards.Restore(1)) }()

		_, err := f.svc.Get(student(100), 1, true)
		assert.ErrorIs(t, err, apperror.ErrNotFound, "students never see deleted boards")

		_, err = f.svc.Get(instructor(200), 1, true)
		assert.NoError(t, err, "teaching staff may include deleted boards")

		_, err = f.svc.Get(instructor(200), 1, false)
		assert.ErrorIs(t, err, apperror.ErrNotFound, "deleted boards stay hidden unless asked for")
	})
}

func TestWhiteboardList_FiltersByMembership(t *testing.T) {
	f := newBoardFixture(t)
	_, err := f.boards.Create(7, "second", []int64{300})
	require.NoError(t, err)

	boards, err := f.svc.List(student(100), false)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, int64(1), boards[0].ID)

	boards, err = f.svc.List(instructor(200), false)
	require.NoError(t, err)
	assert.Len(t, boards, 2)
}

func TestWhiteboardCreate(t *testing.T) {
	f := newBoardFixture(t)

	t.Run("creator is always a collaborator", func(t *testing.T) {
		wb, err := f.svc.Create(student(100), "new board", []int64{300})
		require.NoError(t, err)

		ids := make([]int64, 0, len(wb.Users))
		for _, u := range wb.Users {
			ids = append(ids, u.ID)
		}
		assert.Contains(t, ids, int64(100))
		assert.Contains(t, ids, int64(300))
	})

	t.Run("blank title rejected", func(t *testing.T) {
		_, err := f.svc.Create(student(100), "   ", []int64{100})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("observer cannot create", func(t *testing.T) {
		observer := &auth.Actor{ID: 400, CourseID: 7, IsObserver: true}
		_, err := f.svc.Create(observer, "watching", []int64{400})
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestWhiteboardSoftDeleteAndRestore(t *testing.T) {
	f := newBoardFixture(t)

	t.Run("student cannot delete", func(t *testing.T) {
		err := f.svc.SoftDelete(student(100), 1)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("instructor deletes and restores", func(t *testing.T) {
		require.NoError(t, f.svc.SoftDelete(instructor(200), 1))
		assert.NotNil(t, f.boards.boards[1].DeletedAt)

		require.NoError(t, f.svc.Restore(instructor(200), 1))
		assert.Nil(t, f.boards.boards[1].DeletedAt)
	})
}

func TestExportToAsset(t *testing.T) {
	t.Run("empty board cannot be exported", func(t *testing.T) {
		f := newBoardFixture(t)
		_, err := f.svc.ExportToAsset(student(100), 1, "snapshot", nil, nil)
		assert.ErrorIs(t, err, apperror.ErrEmpty)
		assert.Empty(t, f.assets.created)
	})

	t.Run("export copies elements and owners", func(t *testing.T) {
		f := newBoardFixture(t)
		_, err := f.elements.Create(1, "a", nil, datatypes.JSON(`{"type":"rect"}`), 0)
		require.NoError(t, err)

		asset, err := f.svc.ExportToAsset(student(100), 1, "snapshot", nil, []int64{3})
		require.NoError(t, err)
		assert.Equal(t, "snapshot", asset.Title)

		require.Len(t, f.assets.created, 1)
		created := f.assets.created[0]
		assert.Equal(t, int64(7), created.courseID)
		assert.Equal(t, []int64{100}, created.ownerIDs)
		assert.Equal(t, []int64{3}, created.categoryIDs)
		require.Len(t, created.elements, 1)

		// Export is recorded in the activity ledger.
		require.Len(t, f.activities.records, 1)
		assert.Equal(t, model.ActivityExportWhiteboard, f.activities.records[0].Type)
		assert.Equal(t, int64(100), f.activities.records[0].UserID)
	})

	t.Run("board edits after export leave the asset untouched", func(t *testing.T) {
		f := newBoardFixture(t)
		_, err := f.elements.Create(1, "a", nil, datatypes.JSON(`{"type":"rect","x":1}`), 0)
		require.NoError(t, err)

		_, err = f.svc.ExportToAsset(student(100), 1, "frozen", nil, nil)
		require.NoError(t, err)

		_, err = f.elements.Update(1, "a", nil, datatypes.JSON(`{"type":"rect","x":999}`))
		require.NoError(t, err)

		exported := f.assets.created[0].elements
		assert.JSONEq(t, `{"type":"rect","x":1}`, string(exported[0].Element))
	})
}
