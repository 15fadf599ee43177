package domain

// Project groups tasks and carries the member assignments shown on the board.
// Description is optional context handed to the subtask planner.
type Project struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Color          string   `json:"color"`
	ResponsibleIDs []string `json:"responsibleIds"`
	Description    string   `json:"description,omitempty"`
}
