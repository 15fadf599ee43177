package domain

import "time"

// Message is a board chat entry, optionally linked to a task.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	TaskID    string    `json:"taskId,omitempty"`
}
