package tasks

import (
	"context"
	"time"

	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/tasklight/tasklight/internal/apierr"
)

// completedTimeLayout is the timestamp format written to the completed
// field, UTC with microsecond precision.
const completedTimeLayout = "2006-01-02T15:04:05.000000Z"

// Service is the task management surface exposed to tool handlers.
type Service interface {
	ListTaskLists(ctx context.Context) ([]TaskList, error)
	CreateTaskList(ctx context.Context, title string) (*TaskList, error)
	UpdateTaskList(ctx context.Context, taskListID, title string) (*TaskList, error)
	DeleteTaskList(ctx context.Context, taskListID string) error

	ListTasks(ctx context.Context, taskListID string, showCompleted bool) ([]Task, error)
	CreateTask(ctx context.Context, taskListID, title, notes, due string) (*Task, error)
	UpdateTask(ctx context.Context, taskListID, taskID string, patch TaskPatch) (*Task, error)
	DeleteTask(ctx context.Context, taskListID, taskID string) error
	CompleteTask(ctx context.Context, taskListID, taskID string) (*Task, error)
	MoveTask(ctx context.Context, taskListID, taskID, destListID string) (*Task, error)
	ClearCompletedTasks(ctx context.Context, taskListID string) error
}

// Client wraps the Google Tasks service.
type Client struct {
	svc *tasksapi.Service
	now func() time.Time
}

var _ Service = (*Client)(nil)

// NewClient creates a Tasks client on top of an authenticated HTTP client.
// Extra options are appended after the HTTP client, so tests can redirect
// the service at a fake backend with option.WithEndpoint.
func NewClient(ctx context.Context, httpClient option.ClientOption, opts ...option.ClientOption) (*Client, error) {
	svc, err := tasksapi.NewService(ctx, append([]option.ClientOption{httpClient}, opts...)...)
	if err != nil {
		return nil, apierr.Remote("failed to create Tasks service", err)
	}

	return &Client{
		svc: svc,
		now: time.Now,
	}, nil
}

// ListTaskLists lists all task lists for the authenticated user.
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	result, err := c.svc.Tasklists.List().Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("list task lists", err)
	}

	taskLists := make([]TaskList, 0, len(result.Items))
	for _, tl := range result.Items {
		taskLists = append(taskLists, toTaskList(tl))
	}

	return taskLists, nil
}

// CreateTaskList creates a new task list with the given title.
func (c *Client) CreateTaskList(ctx context.Context, title string) (*TaskList, error) {
	created, err := c.svc.Tasklists.Insert(&tasksapi.TaskList{Title: title}).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("create task list", err)
	}

	result := toTaskList(created)
	return &result, nil
}

// UpdateTaskList renames a task list. The stored list is fetched first and
// submitted back with the new title, so fields this client does not model
// survive the update.
func (c *Client) UpdateTaskList(ctx context.Context, taskListID, title string) (*TaskList, error) {
	existing, err := c.svc.Tasklists.Get(taskListID).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("get task list", err)
	}

	existing.Title = title

	updated, err := c.svc.Tasklists.Update(taskListID, existing).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("update task list", err)
	}

	result := toTaskList(updated)
	return &result, nil
}

// DeleteTaskList deletes a task list and all tasks in it.
func (c *Client) DeleteTaskList(ctx context.Context, taskListID string) error {
	if err := c.svc.Tasklists.Delete(taskListID).Context(ctx).Do(); err != nil {
		return apierr.FromGoogleAPI("delete task list", err)
	}
	return nil
}

// ListTasks lists tasks in a task list. When showCompleted is true,
// completed and hidden tasks are included.
func (c *Client) ListTasks(ctx context.Context, taskListID string, showCompleted bool) ([]Task, error) {
	call := c.svc.Tasks.List(taskListID).ShowCompleted(showCompleted)
	if showCompleted {
		// Completed tasks age into hidden; without this they vanish
		// from listings shortly after completion.
		call = call.ShowHidden(true)
	}

	result, err := call.Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("list tasks", err)
	}

	taskList := make([]Task, 0, len(result.Items))
	for _, t := range result.Items {
		taskList = append(taskList, toTask(t))
	}

	return taskList, nil
}

// CreateTask creates a new task in a task list. Notes and due are optional;
// due must be an RFC 3339 UTC timestamp and is passed through verbatim.
func (c *Client) CreateTask(ctx context.Context, taskListID, title, notes, due string) (*Task, error) {
	t := &tasksapi.Task{
		Title: title,
		Notes: notes,
		Due:   due,
	}

	created, err := c.svc.Tasks.Insert(taskListID, t).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("create task", err)
	}

	result := toTask(created)
	return &result, nil
}

// UpdateTask applies a partial update to a task. The stored task is fetched,
// the non-nil patch fields replace its values, and the whole task is
// submitted back. Concurrent writers race on a last-write-wins basis.
func (c *Client) UpdateTask(ctx context.Context, taskListID, taskID string, patch TaskPatch) (*Task, error) {
	existing, err := c.svc.Tasks.Get(taskListID, taskID).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("get task", err)
	}

	if patch.Title != nil {
		existing.Title = *patch.Title
	}
	if patch.Notes != nil {
		existing.Notes = *patch.Notes
	}
	if patch.Due != nil {
		existing.Due = *patch.Due
	}
	if patch.Status != nil {
		existing.Status = *patch.Status
		if *patch.Status == StatusNeedsAction {
			existing.Completed = nil
		}
	}

	updated, err := c.svc.Tasks.Update(taskListID, taskID, existing).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("update task", err)
	}

	result := toTask(updated)
	return &result, nil
}

// DeleteTask deletes a task from a task list.
func (c *Client) DeleteTask(ctx context.Context, taskListID, taskID string) error {
	if err := c.svc.Tasks.Delete(taskListID, taskID).Context(ctx).Do(); err != nil {
		return apierr.FromGoogleAPI("delete task", err)
	}
	return nil
}

// CompleteTask marks a task as completed, stamping the completion time with
// the current UTC time. Completing an already completed task refreshes the
// timestamp.
func (c *Client) CompleteTask(ctx context.Context, taskListID, taskID string) (*Task, error) {
	existing, err := c.svc.Tasks.Get(taskListID, taskID).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("get task", err)
	}

	existing.Status = StatusCompleted
	completedTime := c.now().UTC().Format(completedTimeLayout)
	existing.Completed = &completedTime

	updated, err := c.svc.Tasks.Update(taskListID, taskID, existing).Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("complete task", err)
	}

	result := toTask(updated)
	return &result, nil
}

// MoveTask moves a task to another task list. The moved task gets a new
// position in the destination list; title, notes, due and status carry over.
func (c *Client) MoveTask(ctx context.Context, taskListID, taskID, destListID string) (*Task, error) {
	moved, err := c.svc.Tasks.Move(taskListID, taskID).
		DestinationTasklist(destListID).
		Context(ctx).Do()
	if err != nil {
		return nil, apierr.FromGoogleAPI("move task", err)
	}

	result := toTask(moved)
	return &result, nil
}

// ClearCompletedTasks permanently hides all completed tasks in a task list.
func (c *Client) ClearCompletedTasks(ctx context.Context, taskListID string) error {
	if err := c.svc.Tasks.Clear(taskListID).Context(ctx).Do(); err != nil {
		return apierr.FromGoogleAPI("clear completed tasks", err)
	}
	return nil
}
