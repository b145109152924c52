package tasks

import (
	tasksapi "google.golang.org/api/tasks/v1"
)

// Task status values used by the Google Tasks API.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// TaskList represents a Google Tasks task list.
type TaskList struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Updated string `json:"updated,omitempty"`
}

// Task represents a Google Tasks task.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
	Status    string `json:"status"` // "needsAction" or "completed"
	Due       string `json:"due,omitempty"`
	Completed string `json:"completed,omitempty"`
	Parent    string `json:"parent,omitempty"`
	Position  string `json:"position,omitempty"`
	Updated   string `json:"updated,omitempty"`
}

// TaskPatch describes a partial update to a task. Nil fields are left
// untouched on the stored task; there is no way to clear a field through a
// patch, only to replace its value.
type TaskPatch struct {
	Title  *string
	Notes  *string
	Due    *string // RFC 3339 UTC timestamp, passed through verbatim
	Status *string // "needsAction" or "completed"
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Notes == nil && p.Due == nil && p.Status == nil
}

// toTaskList converts an API task list to our TaskList type.
func toTaskList(tl *tasksapi.TaskList) TaskList {
	if tl == nil {
		return TaskList{}
	}
	return TaskList{
		ID:      tl.Id,
		Title:   tl.Title,
		Updated: tl.Updated,
	}
}

// toTask converts an API task to our Task type. Timestamps are passed
// through as the RFC 3339 strings the API returned.
func toTask(t *tasksapi.Task) Task {
	if t == nil {
		return Task{}
	}

	result := Task{
		ID:       t.Id,
		Title:    t.Title,
		Notes:    t.Notes,
		Status:   t.Status,
		Due:      t.Due,
		Parent:   t.Parent,
		Position: t.Position,
		Updated:  t.Updated,
	}
	if t.Completed != nil {
		result.Completed = *t.Completed
	}
	return result
}
