package sync

import (
	"testing"
	"time"

	"github.com/Rrens/taskboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func board() []domain.Task {
	return []domain.Task{
		{ID: "t1", Title: "One", Status: domain.StatusToDo, Order: 0},
		{ID: "t2", Title: "Two", Status: domain.StatusToDo, Order: 1},
		{ID: "t3", Title: "Three", Status: domain.StatusToDo, Order: 2},
		{ID: "t4", Title: "Four", Status: domain.StatusInProgress, Order: 0},
	}
}

func columnIDs(tasks []domain.Task, status domain.Status) []string {
	byOrder := map[int]string{}
	n := 0
	for _, t := range tasks {
		if t.Status == status {
			byOrder[t.Order] = t.ID
			n++
		}
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = byOrder[i]
	}
	return out
}

func TestMoveTask_WithinColumn(t *testing.T) {
	now := time.Now()

	tasks, ok := moveTask(board(), "t3", domain.StatusToDo, 0, now)
	require.True(t, ok)
	assert.Equal(t, []string{"t3", "t1", "t2"}, columnIDs(tasks, domain.StatusToDo))

	// Untouched column keeps its numbering
	assert.Equal(t, []string{"t4"}, columnIDs(tasks, domain.StatusInProgress))
}

func TestMoveTask_AcrossColumns(t *testing.T) {
	now := time.Now()

	tasks, ok := moveTask(board(), "t1", domain.StatusInProgress, 1, now)
	require.True(t, ok)
	assert.Equal(t, []string{"t2", "t3"}, columnIDs(tasks, domain.StatusToDo))
	assert.Equal(t, []string{"t4", "t1"}, columnIDs(tasks, domain.StatusInProgress))
}

func TestMoveTask_IndexClamped(t *testing.T) {
	now := time.Now()

	tasks, ok := moveTask(board(), "t1", domain.StatusToDo, 99, now)
	require.True(t, ok)
	assert.Equal(t, []string{"t2", "t3", "t1"}, columnIDs(tasks, domain.StatusToDo))

	tasks, ok = moveTask(board(), "t3", domain.StatusToDo, -5, now)
	require.True(t, ok)
	assert.Equal(t, []string{"t3", "t1", "t2"}, columnIDs(tasks, domain.StatusToDo))
}

func TestMoveTask_Missing(t *testing.T) {
	tasks := board()
	got, ok := moveTask(tasks, "nope", domain.StatusDone, 0, time.Now())
	assert.False(t, ok)
	assert.Equal(t, tasks, got)
}

func TestMoveTask_CompletedAt(t *testing.T) {
	now := time.Now()

	find := func(tasks []domain.Task, id string) domain.Task {
		for _, t := range tasks {
			if t.ID == id {
				return t
			}
		}
		return domain.Task{}
	}

	t.Run("entering done stamps once", func(t *testing.T) {
		tasks, _ := moveTask(board(), "t1", domain.StatusDone, 0, now)
		got := find(tasks, "t1")
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, now, *got.CompletedAt)
	})

	t.Run("done to done preserves the stamp", func(t *testing.T) {
		earlier := now.Add(-48 * time.Hour)
		tasks := []domain.Task{
			{ID: "t1", Status: domain.StatusDone, Order: 0, CompletedAt: &earlier},
			{ID: "t2", Status: domain.StatusDone, Order: 1},
		}
		moved, _ := moveTask(tasks, "t1", domain.StatusDone, 1, now)
		got := find(moved, "t1")
		require.NotNil(t, got.CompletedAt)
		assert.Equal(t, earlier, *got.CompletedAt)
	})

	t.Run("leaving done clears the stamp", func(t *testing.T) {
		stamp := now.Add(-time.Hour)
		tasks := []domain.Task{
			{ID: "t1", Status: domain.StatusDone, Order: 0, CompletedAt: &stamp},
		}
		moved, _ := moveTask(tasks, "t1", domain.StatusInProgress, 0, now)
		assert.Nil(t, find(moved, "t1").CompletedAt)
	})
}
