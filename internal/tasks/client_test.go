package tasks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/tasklight/tasklight/internal/apierr"
)

// fakeBackend is an in-memory stand-in for the Tasks REST API, serving the
// endpoints the client uses.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int
	lists  map[string]*tasksapi.TaskList
	tasks  map[string]map[string]*tasksapi.Task // list ID -> task ID -> task
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		lists: make(map[string]*tasksapi.TaskList),
		tasks: make(map[string]map[string]*tasksapi.Task),
	}
}

func (f *fakeBackend) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeBackend) addList(title string) *tasksapi.TaskList {
	f.mu.Lock()
	defer f.mu.Unlock()
	tl := &tasksapi.TaskList{Id: f.newID("list"), Title: title}
	f.lists[tl.Id] = tl
	f.tasks[tl.Id] = make(map[string]*tasksapi.Task)
	return tl
}

func (f *fakeBackend) addTask(listID string, t *tasksapi.Task) *tasksapi.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.Id = f.newID("task")
	if t.Status == "" {
		t.Status = StatusNeedsAction
	}
	f.tasks[listID][t.Id] = t
	return t
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, msg)
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := &tasksapi.TaskLists{}
		for _, tl := range f.lists {
			out.Items = append(out.Items, tl)
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("POST /tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		var tl tasksapi.TaskList
		_ = json.NewDecoder(r.Body).Decode(&tl)
		f.mu.Lock()
		defer f.mu.Unlock()
		tl.Id = f.newID("list")
		f.lists[tl.Id] = &tl
		f.tasks[tl.Id] = make(map[string]*tasksapi.Task)
		writeJSON(w, &tl)
	})

	mux.HandleFunc("GET /tasks/v1/users/@me/lists/{list}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		tl, ok := f.lists[r.PathValue("list")]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task list not found")
			return
		}
		writeJSON(w, tl)
	})

	mux.HandleFunc("PUT /tasks/v1/users/@me/lists/{list}", func(w http.ResponseWriter, r *http.Request) {
		var in tasksapi.TaskList
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		tl, ok := f.lists[r.PathValue("list")]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task list not found")
			return
		}
		tl.Title = in.Title
		writeJSON(w, tl)
	})

	mux.HandleFunc("DELETE /tasks/v1/users/@me/lists/{list}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("list")
		if _, ok := f.lists[id]; !ok {
			writeAPIError(w, http.StatusNotFound, "Task list not found")
			return
		}
		delete(f.lists, id)
		delete(f.tasks, id)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		listTasks, ok := f.tasks[r.PathValue("list")]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task list not found")
			return
		}
		showCompleted := r.URL.Query().Get("showCompleted") != "false"
		out := &tasksapi.Tasks{}
		for _, t := range listTasks {
			if !showCompleted && t.Status == StatusCompleted {
				continue
			}
			out.Items = append(out.Items, t)
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		var t tasksapi.Task
		_ = json.NewDecoder(r.Body).Decode(&t)
		f.mu.Lock()
		defer f.mu.Unlock()
		listTasks, ok := f.tasks[r.PathValue("list")]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task list not found")
			return
		}
		t.Id = f.newID("task")
		if t.Status == "" {
			t.Status = StatusNeedsAction
		}
		listTasks[t.Id] = &t
		writeJSON(w, &t)
	})

	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		t, ok := f.tasks[r.PathValue("list")][r.PathValue("task")]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task not found")
			return
		}
		writeJSON(w, t)
	})

	mux.HandleFunc("PUT /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		var in tasksapi.Task
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		listTasks := f.tasks[r.PathValue("list")]
		if _, ok := listTasks[r.PathValue("task")]; !ok {
			writeAPIError(w, http.StatusNotFound, "Task not found")
			return
		}
		in.Id = r.PathValue("task")
		listTasks[in.Id] = &in
		writeJSON(w, &in)
	})

	mux.HandleFunc("DELETE /tasks/v1/lists/{list}/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		listTasks := f.tasks[r.PathValue("list")]
		if _, ok := listTasks[r.PathValue("task")]; !ok {
			writeAPIError(w, http.StatusNotFound, "Task not found")
			return
		}
		delete(listTasks, r.PathValue("task"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks/{task}/move", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		src := f.tasks[r.PathValue("list")]
		t, ok := src[r.PathValue("task")]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task not found")
			return
		}
		if dest := r.URL.Query().Get("destinationTasklist"); dest != "" {
			destTasks, ok := f.tasks[dest]
			if !ok {
				writeAPIError(w, http.StatusNotFound, "Task list not found")
				return
			}
			delete(src, t.Id)
			destTasks[t.Id] = t
		}
		t.Position = "00000000000000000000"
		writeJSON(w, t)
	})

	mux.HandleFunc("POST /tasks/v1/lists/{list}/clear", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		listTasks, ok := f.tasks[r.PathValue("list")]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "Task list not found")
			return
		}
		for id, t := range listTasks {
			if t.Status == StatusCompleted {
				delete(listTasks, id)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(t.Context(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL))
	require.NoError(t, err)

	return client, backend
}

func TestListTaskLists(t *testing.T) {
	client, backend := newTestClient(t)
	backend.addList("Inbox")
	backend.addList("Groceries")

	lists, err := client.ListTaskLists(t.Context())
	require.NoError(t, err)
	assert.Len(t, lists, 2)

	titles := []string{lists[0].Title, lists[1].Title}
	assert.ElementsMatch(t, []string{"Inbox", "Groceries"}, titles)
}

func TestCreateTaskList(t *testing.T) {
	client, _ := newTestClient(t)

	created, err := client.CreateTaskList(t.Context(), "Projects")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Projects", created.Title)
}

func TestUpdateTaskList(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Old Name")

	updated, err := client.UpdateTaskList(t.Context(), tl.Id, "New Name")
	require.NoError(t, err)
	assert.Equal(t, tl.Id, updated.ID)
	assert.Equal(t, "New Name", updated.Title)
}

func TestUpdateTaskListNotFound(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.UpdateTaskList(t.Context(), "missing", "New Name")
	require.Error(t, err)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
	assert.True(t, apierr.IsNotFound(err))
}

func TestDeleteTaskList(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Doomed")

	require.NoError(t, client.DeleteTaskList(t.Context(), tl.Id))

	lists, err := client.ListTaskLists(t.Context())
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestCreateTaskPassesDueVerbatim(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")

	created, err := client.CreateTask(t.Context(), tl.Id, "Buy milk", "two liters", "2026-09-01T00:00:00Z")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "two liters", created.Notes)
	assert.Equal(t, "2026-09-01T00:00:00Z", created.Due)
	assert.Equal(t, StatusNeedsAction, created.Status)
}

func TestListTasksFiltersCompleted(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")
	backend.addTask(tl.Id, &tasksapi.Task{Title: "open"})
	backend.addTask(tl.Id, &tasksapi.Task{Title: "done", Status: StatusCompleted})

	visible, err := client.ListTasks(t.Context(), tl.Id, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "open", visible[0].Title)

	all, err := client.ListTasks(t.Context(), tl.Id, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateTaskPartialPatch(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")
	task := backend.addTask(tl.Id, &tasksapi.Task{
		Title: "original",
		Notes: "keep me",
		Due:   "2026-09-01T00:00:00Z",
	})

	newTitle := "renamed"
	updated, err := client.UpdateTask(t.Context(), tl.Id, task.Id, TaskPatch{Title: &newTitle})
	require.NoError(t, err)

	// Unpatched fields keep their stored values.
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "keep me", updated.Notes)
	assert.Equal(t, "2026-09-01T00:00:00Z", updated.Due)
}

func TestUpdateTaskReopenClearsCompleted(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")
	completedAt := "2026-08-01T10:00:00.000000Z"
	task := backend.addTask(tl.Id, &tasksapi.Task{
		Title:     "done",
		Status:    StatusCompleted,
		Completed: &completedAt,
	})

	status := StatusNeedsAction
	updated, err := client.UpdateTask(t.Context(), tl.Id, task.Id, TaskPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsAction, updated.Status)
	assert.Empty(t, updated.Completed)
}

func TestUpdateTaskNotFound(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")

	title := "x"
	_, err := client.UpdateTask(t.Context(), tl.Id, "missing", TaskPatch{Title: &title})
	require.Error(t, err)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestCompleteTask(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")
	task := backend.addTask(tl.Id, &tasksapi.Task{Title: "todo"})

	fixed := time.Date(2026, 8, 24, 15, 4, 5, 123456000, time.UTC)
	client.now = func() time.Time { return fixed }

	completed, err := client.CompleteTask(t.Context(), tl.Id, task.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, "2026-08-24T15:04:05.123456Z", completed.Completed)
}

func TestCompleteTaskAlreadyCompletedRefreshesTimestamp(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")
	old := "2026-01-01T00:00:00.000000Z"
	task := backend.addTask(tl.Id, &tasksapi.Task{
		Title:     "done",
		Status:    StatusCompleted,
		Completed: &old,
	})

	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	completed, err := client.CompleteTask(t.Context(), tl.Id, task.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, "2026-08-24T12:00:00.000000Z", completed.Completed)
}

func TestDeleteTask(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")
	task := backend.addTask(tl.Id, &tasksapi.Task{Title: "doomed"})

	require.NoError(t, client.DeleteTask(t.Context(), tl.Id, task.Id))

	err := client.DeleteTask(t.Context(), tl.Id, task.Id)
	require.Error(t, err)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestMoveTaskAcrossLists(t *testing.T) {
	client, backend := newTestClient(t)
	src := backend.addList("Source")
	dest := backend.addList("Destination")
	task := backend.addTask(src.Id, &tasksapi.Task{
		Title: "migrating",
		Notes: "carry me over",
		Due:   "2026-09-01T00:00:00Z",
	})

	moved, err := client.MoveTask(t.Context(), src.Id, task.Id, dest.Id)
	require.NoError(t, err)
	assert.Equal(t, task.Id, moved.ID)
	assert.Equal(t, "migrating", moved.Title)
	assert.Equal(t, "carry me over", moved.Notes)
	assert.Equal(t, "2026-09-01T00:00:00Z", moved.Due)

	srcTasks, err := client.ListTasks(t.Context(), src.Id, true)
	require.NoError(t, err)
	assert.Empty(t, srcTasks)

	destTasks, err := client.ListTasks(t.Context(), dest.Id, true)
	require.NoError(t, err)
	require.Len(t, destTasks, 1)
	assert.Equal(t, task.Id, destTasks[0].ID)
}

func TestMoveTaskToMissingListNotFound(t *testing.T) {
	client, backend := newTestClient(t)
	src := backend.addList("Source")
	task := backend.addTask(src.Id, &tasksapi.Task{Title: "stuck"})

	_, err := client.MoveTask(t.Context(), src.Id, task.Id, "missing")
	require.Error(t, err)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestClearCompletedTasks(t *testing.T) {
	client, backend := newTestClient(t)
	tl := backend.addList("Inbox")
	backend.addTask(tl.Id, &tasksapi.Task{Title: "open"})
	backend.addTask(tl.Id, &tasksapi.Task{Title: "done", Status: StatusCompleted})

	require.NoError(t, client.ClearCompletedTasks(t.Context(), tl.Id))

	remaining, err := client.ListTasks(t.Context(), tl.Id, true)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "open", remaining[0].Title)
}

func TestAuthorizationErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusForbidden, "insufficient scopes")
	}))
	defer srv.Close()

	client, err := NewClient(t.Context(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL))
	require.NoError(t, err)

	_, err = client.ListTaskLists(t.Context())
	require.Error(t, err)
	assert.Equal(t, apierr.KindAuthorization, apierr.KindOf(err))
}

func TestRemoteErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusServiceUnavailable, "backend down")
	}))
	defer srv.Close()

	client, err := NewClient(t.Context(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL))
	require.NoError(t, err)

	_, err = client.ListTaskLists(t.Context())
	require.Error(t, err)
	assert.Equal(t, apierr.KindRemote, apierr.KindOf(err))
}

func TestTaskPatchIsEmpty(t *testing.T) {
	assert.True(t, TaskPatch{}.IsEmpty())
	s := "x"
	assert.False(t, TaskPatch{Notes: &s}.IsEmpty())
}
