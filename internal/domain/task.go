package domain

import "time"

// Status is a board column.
type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
	StatusArchived   Status = "Archived"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusBacklog, StatusToDo, StatusInProgress, StatusDone, StatusArchived}

// Valid reports whether s is a known board column.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority is the task's urgency tier. Weights follow the planning-poker
// scale the board charts are built on.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityModerate Priority = "Moderate"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityUrgent   Priority = "Urgent"
)

var priorityWeights = map[Priority]int{
	PriorityLow:      5,
	PriorityModerate: 8,
	PriorityMedium:   13,
	PriorityHigh:     20,
	PriorityUrgent:   40,
}

// Weight returns the priority's score. Unknown values count as the lowest
// tier so half-filled boards still chart.
func (p Priority) Weight() int {
	if w, ok := priorityWeights[p]; ok {
		return w
	}
	return priorityWeights[PriorityLow]
}

// Duration is the task's estimated effort bucket.
type Duration string

const (
	DurationOneDay      Duration = "1 day"
	DurationTwoThreeDay Duration = "2-3 days"
	DurationOneWeek     Duration = "1 week"
	DurationTwoWeek     Duration = "2 weeks"
)

var durationWeights = map[Duration]int{
	DurationOneDay:      5,
	DurationTwoThreeDay: 8,
	DurationOneWeek:     13,
	DurationTwoWeek:     20,
}

// Weight returns the duration's score, defaulting to the lowest tier.
func (d Duration) Weight() int {
	if w, ok := durationWeights[d]; ok {
		return w
	}
	return durationWeights[DurationOneDay]
}

// Subtask is a checklist entry inside a task.
type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task is one board card. Order is its dense position inside its status
// column. CompletedAt is set exactly when the task enters Done and cleared
// when it leaves.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	ProjectID     string     `json:"projectId"`
	ResponsibleID string     `json:"responsibleId"`
	Subtasks      []Subtask  `json:"subtasks,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt"`
	Order         int        `json:"order"`
	Priority      Priority   `json:"priority,omitempty"`
	Duration      Duration   `json:"duration,omitempty"`
}

// Weight is the combined priority and effort score used by the dashboard
// charts.
func (t Task) Weight() int {
	return t.Priority.Weight() + t.Duration.Weight()
}
