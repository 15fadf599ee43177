package domain

import "time"

// Seed data for freshly initialized personal workspaces and for the local-mode
// workspace list, mirroring what a first-time user sees.

func daysAgo(n int) time.Time {
	return time.Now().Add(-time.Duration(n) * 24 * time.Hour)
}

// SampleUsers returns the demo members seeded into a personal workspace.
func SampleUsers() []User {
	return []User{
		{ID: "user-1", Name: "Ana López", AvatarColor: "#E24A4A"},
		{ID: "user-2", Name: "Carlos García", AvatarColor: "#23B2F5"},
		{ID: "user-3", Name: "Sofía Martínez", AvatarColor: "#E350D3"},
	}
}

// SampleProjects returns the demo projects seeded into a personal workspace.
func SampleProjects() []Project {
	return []Project{
		{
			ID:             "proj-1",
			Name:           "Frontend Development",
			Color:          "#4A90E2",
			ResponsibleIDs: []string{"user-1", "user-3"},
			Description:    "Modern, responsive customer portal UI built with React and Tailwind CSS.",
		},
		{
			ID:             "proj-2",
			Name:           "Marketing Campaign",
			Color:          "#F5A623",
			ResponsibleIDs: []string{"user-2"},
			Description:    "Q3 product launch focused on social media and email marketing to improve retention.",
		},
		{
			ID:             "proj-3",
			Name:           "UX Research",
			Color:          "#50E3C2",
			ResponsibleIDs: []string{"user-3"},
			Description:    "Usability study and user interviews to find pain points in the current checkout flow.",
		},
	}
}

// SampleTasks returns the demo tasks seeded into a personal workspace.
func SampleTasks() []Task {
	done := daysAgo(8)
	return []Task{
		{
			ID:            "task-1",
			Title:         "Set up the development environment",
			Description:   "Install dependencies and configure the linter and formatter.",
			Status:        StatusDone,
			ProjectID:     "proj-1",
			ResponsibleID: "user-1",
			Subtasks: []Subtask{
				{ID: "sub-1-1", Text: "Install Node.js and npm", Completed: true},
				{ID: "sub-1-2", Text: "Create the React project", Completed: true},
				{ID: "sub-1-3", Text: "Configure ESLint", Completed: true},
			},
			CreatedAt:   daysAgo(10),
			CompletedAt: &done,
			Priority:    PriorityHigh,
			Duration:    DurationOneDay,
		},
		{
			ID:            "task-2",
			Title:         "Build the UI components",
			Description:   "Develop the reusable buttons, modals and cards.",
			Status:        StatusInProgress,
			ProjectID:     "proj-1",
			ResponsibleID: "user-1",
			Subtasks: []Subtask{
				{ID: "sub-2-1", Text: "Button component", Completed: true},
				{ID: "sub-2-2", Text: "Modal component", Completed: false},
				{ID: "sub-2-3", Text: "Task card component", Completed: false},
			},
			CreatedAt: daysAgo(5),
			Priority:  PriorityMedium,
			Duration:  DurationTwoThreeDay,
		},
		{
			ID:            "task-3",
			Title:         "Define the social media strategy",
			Description:   "Plan next quarter's content for Instagram and Twitter.",
			Status:        StatusToDo,
			ProjectID:     "proj-2",
			ResponsibleID: "user-2",
			Subtasks: []Subtask{
				{ID: "sub-3-1", Text: "Research trends", Completed: false},
				{ID: "sub-3-2", Text: "Create the content calendar", Completed: false},
				{ID: "sub-3-3", Text: "Design post templates", Completed: false},
			},
			CreatedAt: daysAgo(2),
			Priority:  PriorityUrgent,
			Duration:  DurationOneWeek,
		},
	}
}

// SampleWorkspaces returns the demo collaborative workspaces seeded into the
// local-mode workspace list.
func SampleWorkspaces() []Workspace {
	users := SampleUsers()
	return []Workspace{
		{
			ID:         "ws-collab-1",
			Name:       "Design Team",
			IsPersonal: false,
			Members: []User{
				users[0],
				users[2],
				{ID: "user-4", Name: "David", AvatarColor: "#4AE29D"},
			},
		},
		{
			ID:         "ws-collab-2",
			Name:       "Project Titan",
			IsPersonal: false,
			Order:      1,
			Members: []User{
				users[0],
				users[1],
				users[2],
				{ID: "user-5", Name: "Elena", AvatarColor: "#F5A623"},
				{ID: "user-6", Name: "Frank", AvatarColor: "#4A90E2"},
				{ID: "user-7", Name: "Gloria", AvatarColor: "#8B572A"},
			},
		},
	}
}
