package tasksync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow/internal/database"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/services"
)

var errStoreDown = errors.New("store unavailable")

type fakeLoader struct {
	mu    sync.Mutex
	views []services.TaskView
	calls int
}

func (l *fakeLoader) ListTasks(_ context.Context) ([]services.TaskView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	out := make([]services.TaskView, len(l.views))
	for i, v := range l.views {
		out[i] = v.Clone()
	}
	return out, nil
}

func sampleViews() []services.TaskView {
	due := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	parent := uuid.New()
	staff := services.StaffSummary{ID: uuid.New(), Name: "Aiko", Email: "aiko@example.com", Role: models.RoleStaff}
	return []services.TaskView{
		{
			ID:               uuid.New(),
			TaskNo:           "T101",
			Title:            "Weld frame",
			AllocationMode:   models.AllocationIndividual,
			AssignedStaffIDs: []uuid.UUID{staff.ID},
			Status:           models.TaskStatusTodo,
			Priority:         models.PriorityHigh,
			DueDate:          &due,
			RepeatConfig:     map[string]any{"every": "week", "days": []any{"mon", "thu"}},
			SupportFiles:     []string{"drawings/frame.pdf"},
			AssignedStaff:    []services.StaffSummary{staff},
			OriginalAssignee: &staff,
		},
		{
			ID:           uuid.New(),
			TaskNo:       "T100.1",
			Title:        "Paint panels",
			ParentTaskID: &parent,
			Status:       models.TaskStatusInProgress,
			Delegations: []services.DelegationSummary{
				{ID: uuid.New(), From: staff, Status: models.DelegationActive},
			},
			DelegationCount: 1,
			HasDelegations:  true,
		},
	}
}

func newTestCache(t *testing.T, loader Loader, opts ...Option) *Cache {
	t.Helper()
	cache, err := New(loader, opts...)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

func TestCache_ListLoadsOnce(t *testing.T) {
	loader := &fakeLoader{views: sampleViews()}
	cache := newTestCache(t, loader)

	first, err := cache.List(context.Background())
	require.NoError(t, err)
	second, err := cache.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loader.calls)

	// Callers get copies
	first[0].Title = "changed"
	third, err := cache.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Weld frame", third[0].Title)
}

func TestCache_InvalidateIsIdempotent(t *testing.T) {
	loader := &fakeLoader{views: sampleViews()}
	cache := newTestCache(t, loader)
	ctx := context.Background()

	cache.Invalidate()
	first, err := cache.List(ctx)
	require.NoError(t, err)

	cache.Invalidate()
	cache.Invalidate()
	second, err := cache.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCache_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	existing := sampleViews()

	cases := []struct {
		name   string
		mutate func(c *Cache, commit Commit) error
		check  func(t *testing.T, during []services.TaskView)
	}{
		{
			name: "create",
			mutate: func(c *Cache, commit Commit) error {
				placeholder := services.TaskView{ID: uuid.New(), Title: "Draft", Optimistic: true}
				return c.Create(ctx, []services.TaskView{placeholder}, commit)
			},
			check: func(t *testing.T, during []services.TaskView) {
				require.Len(t, during, 3)
				assert.True(t, during[0].Optimistic)
			},
		},
		{
			name: "update",
			mutate: func(c *Cache, commit Commit) error {
				return c.Update(ctx, existing[0].ID, func(v *services.TaskView) {
					v.Title = "Weld frame v2"
					v.RepeatConfig["every"] = "day"
					v.AssignedStaffIDs = nil
				}, commit)
			},
			check: func(t *testing.T, during []services.TaskView) {
				assert.Equal(t, "Weld frame v2", during[0].Title)
			},
		},
		{
			name: "delete",
			mutate: func(c *Cache, commit Commit) error {
				return c.Delete(ctx, []uuid.UUID{existing[1].ID}, commit)
			},
			check: func(t *testing.T, during []services.TaskView) {
				assert.Len(t, during, 1)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cache := newTestCache(t, &fakeLoader{views: existing})
			_, err := cache.List(ctx)
			require.NoError(t, err)

			before := cache.Snapshot()
			err = tc.mutate(cache, func(context.Context) error {
				tc.check(t, cache.Snapshot())
				return errStoreDown
			})

			assert.ErrorIs(t, err, errStoreDown)
			assert.Equal(t, before, cache.Snapshot())
		})
	}
}

func TestCache_RollbackSkippedAfterInvalidation(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t, &fakeLoader{views: sampleViews()})
	_, err := cache.List(ctx)
	require.NoError(t, err)

	err = cache.Delete(ctx, []uuid.UUID{uuid.New()}, func(context.Context) error {
		cache.Invalidate()
		return errStoreDown
	})

	assert.ErrorIs(t, err, errStoreDown)
	assert.Nil(t, cache.Snapshot())
}

func TestCache_SuccessInvalidatesAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	broadcaster := NewLocalBroadcaster()
	loader := &fakeLoader{views: sampleViews()}

	local := newTestCache(t, loader, WithBroadcaster(broadcaster))
	sibling := newTestCache(t, loader, WithBroadcaster(broadcaster))

	var reasons []string
	local.OnInvalidate(func(reason string) {
		reasons = append(reasons, reason)
	})

	_, err := local.List(ctx)
	require.NoError(t, err)
	_, err = sibling.List(ctx)
	require.NoError(t, err)

	err = local.Update(ctx, loader.views[0].ID, func(v *services.TaskView) {
		v.Status = models.TaskStatusCompleted
	}, func(context.Context) error { return nil })
	require.NoError(t, err)

	assert.Nil(t, local.Snapshot())
	assert.Nil(t, sibling.Snapshot())
	// The sender ignores its own signal
	assert.Equal(t, []string{ReasonUpdate}, reasons)
}

func TestCache_ChangeFeedInvalidates(t *testing.T) {
	ctx := context.Background()
	feed := database.NewChangeFeed()
	cache := newTestCache(t, &fakeLoader{views: sampleViews()}, WithChangeFeed(feed))

	_, err := cache.List(ctx)
	require.NoError(t, err)

	feed.Publish(database.Change{Table: "notifications", Op: database.OpInsert})
	assert.NotNil(t, cache.Snapshot())

	feed.Publish(database.Change{Table: "task_delegations", Op: database.OpUpdate})
	assert.Nil(t, cache.Snapshot())
}

func TestCache_CloseUnsubscribes(t *testing.T) {
	ctx := context.Background()
	feed := database.NewChangeFeed()
	broadcaster := NewLocalBroadcaster()
	cache := newTestCache(t, &fakeLoader{views: sampleViews()}, WithChangeFeed(feed), WithBroadcaster(broadcaster))

	_, err := cache.List(ctx)
	require.NoError(t, err)
	cache.Close()

	feed.Publish(database.Change{Table: "tasks", Op: database.OpInsert})
	require.NoError(t, broadcaster.Publish(ctx, Signal{Origin: "other", Reason: ReasonCreate}))

	assert.NotNil(t, cache.Snapshot())
}

func TestDecodeSignal(t *testing.T) {
	payload, err := encodeSignal(Signal{Origin: "a", Reason: ReasonDelete})
	require.NoError(t, err)

	sig, err := decodeSignal(payload)
	require.NoError(t, err)
	assert.Equal(t, "a", sig.Origin)

	_, err = decodeSignal([]byte(`{"reason":"create"}`))
	assert.Error(t, err)
	_, err = decodeSignal([]byte(`not json`))
	assert.Error(t, err)
}
