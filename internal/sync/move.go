package sync

import (
	"sort"
	"time"

	"github.com/Rrens/taskboard/internal/domain"
)

// moveTask moves one task to a status column at a position and renumbers that
// column densely. Tasks in untouched columns keep their order values. Returns
// false when the task does not exist.
func moveTask(tasks []domain.Task, taskID string, status domain.Status, index int, now time.Time) ([]domain.Task, bool) {
	var moving *domain.Task
	others := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == taskID {
			t := t
			moving = &t
			continue
		}
		others = append(others, t)
	}
	if moving == nil {
		return tasks, false
	}

	// Destination column, sorted by current order.
	rest := make([]domain.Task, 0, len(others))
	column := make([]domain.Task, 0, len(others))
	for _, t := range others {
		if t.Status == status {
			column = append(column, t)
		} else {
			rest = append(rest, t)
		}
	}
	sort.SliceStable(column, func(i, j int) bool { return column[i].Order < column[j].Order })

	if index < 0 {
		index = 0
	}
	if index > len(column) {
		index = len(column)
	}

	// Entering Done stamps the completion time once; leaving Done clears it.
	if status == domain.StatusDone {
		if moving.CompletedAt == nil {
			stamp := now
			moving.CompletedAt = &stamp
		}
	} else {
		moving.CompletedAt = nil
	}
	moving.Status = status

	column = append(column, domain.Task{})
	copy(column[index+1:], column[index:])
	column[index] = *moving

	for i := range column {
		column[i].Order = i
	}

	return append(rest, column...), true
}
