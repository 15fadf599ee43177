package ai

import "context"

// Request contains subtask generation parameters.
type Request struct {
	Title              string
	Description        string
	ProjectName        string
	ProjectDescription string
}

// Response contains the generated subtask texts.
type Response struct {
	Subtasks  []string
	Model     string
	LatencyMs int64
}

// Planner defines the interface for subtask generation providers.
type Planner interface {
	// Name returns the provider identifier.
	Name() string

	// DefaultModel returns the default model.
	DefaultModel() string

	// IsConfigured checks if the provider has valid credentials.
	IsConfigured() bool

	// GenerateSubtasks breaks a task down into actionable subtasks.
	GenerateSubtasks(ctx context.Context, req Request, model string) (*Response, error)
}
