package tasks_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tasklight/tasklight/internal/server"
	"github.com/tasklight/tasklight/internal/tasks"
	"github.com/tasklight/tasklight/internal/tools/common"
)

// getService returns the Tasks service, triggering credential acquisition on
// first use.
func getService(ctx context.Context, sc *server.ServerContext) (tasks.Service, error) {
	svc, err := sc.TasksService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to access Google Tasks: %w", err)
	}
	return svc, nil
}

// validateDue checks that a due date is an RFC 3339 timestamp. The value is
// passed to the API verbatim; conversion from local time is the caller's
// responsibility.
func validateDue(due string) error {
	if _, err := time.Parse(time.RFC3339, due); err != nil {
		return fmt.Errorf("due must be an RFC 3339 timestamp (e.g. 2026-09-01T00:00:00Z): %w", err)
	}
	return nil
}

func jsonResult(v any) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data))
}

// RegisterTasksTools registers all task management tools with the MCP server.
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerUtilityTools(s, sc)
	registerTaskListTools(s, sc)
	registerTaskTools(s, sc)
	return nil
}

// registerUtilityTools registers helper tools that need no Google credential.
func registerUtilityTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getDatetimeTool := mcp.NewTool("get_current_datetime",
		mcp.WithDescription("Get the current date and time in UTC (RFC 3339 format). Use this to resolve relative dates like 'tomorrow' before setting due dates."),
	)
	s.AddTool(getDatetimeTool, common.InstrumentedToolHandler("get_current_datetime", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetCurrentDatetime(ctx, request)
		}))
}

// registerTaskListTools registers task list management tools.
func registerTaskListTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listTaskListsTool := mcp.NewTool("list_tasklists",
		mcp.WithDescription("List all task lists for the authenticated user"),
	)
	s.AddTool(listTaskListsTool, common.InstrumentedToolHandlerWithOperation("list_tasklists", "list_tasklists", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListTaskLists(ctx, request, sc)
		}))

	addTaskListTool := mcp.NewTool("add_tasklist",
		mcp.WithDescription("Create a new task list"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title of the new task list"),
		),
	)
	s.AddTool(addTaskListTool, common.InstrumentedToolHandlerWithOperation("add_tasklist", "create_tasklist", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAddTaskList(ctx, request, sc)
		}))

	updateTaskListTool := mcp.NewTool("update_tasklist",
		mcp.WithDescription("Rename a task list"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list to rename"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The new title for the task list"),
		),
	)
	s.AddTool(updateTaskListTool, common.InstrumentedToolHandlerWithOperation("update_tasklist", "update_tasklist", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateTaskList(ctx, request, sc)
		}))

	deleteTaskListTool := mcp.NewTool("delete_tasklist",
		mcp.WithDescription("Delete a task list and all tasks in it"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list to delete"),
		),
	)
	s.AddTool(deleteTaskListTool, common.InstrumentedToolHandlerWithOperation("delete_tasklist", "delete_tasklist", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteTaskList(ctx, request, sc)
		}))
}

// registerTaskTools registers task management tools.
func registerTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listTasksTool := mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks in a task list"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithBoolean("show_completed",
			mcp.Description("Include completed tasks (default: false)"),
		),
	)
	s.AddTool(listTasksTool, common.InstrumentedToolHandlerWithOperation("list_tasks", "list_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListTasks(ctx, request, sc)
		}))

	addTaskTool := mcp.NewTool("add_task",
		mcp.WithDescription("Create a new task in a task list"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title of the new task"),
		),
		mcp.WithString("notes",
			mcp.Description("Notes or description for the task"),
		),
		mcp.WithString("due",
			mcp.Description("Due date as an RFC 3339 UTC timestamp (e.g. 2026-09-01T00:00:00Z). The API only preserves the date portion."),
		),
	)
	s.AddTool(addTaskTool, common.InstrumentedToolHandlerWithOperation("add_task", "create_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAddTask(ctx, request, sc)
		}))

	updateTaskTool := mcp.NewTool("update_task",
		mcp.WithDescription("Update fields of an existing task. Only the provided fields change; omitted fields keep their stored values."),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to update"),
		),
		mcp.WithString("title",
			mcp.Description("New title for the task"),
		),
		mcp.WithString("notes",
			mcp.Description("New notes for the task"),
		),
		mcp.WithString("due",
			mcp.Description("New due date as an RFC 3339 UTC timestamp"),
		),
		mcp.WithString("status",
			mcp.Description("New status: 'needsAction' or 'completed'"),
		),
	)
	s.AddTool(updateTaskTool, common.InstrumentedToolHandlerWithOperation("update_task", "update_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateTask(ctx, request, sc)
		}))

	deleteTaskTool := mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task from a task list"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to delete"),
		),
	)
	s.AddTool(deleteTaskTool, common.InstrumentedToolHandlerWithOperation("delete_task", "delete_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteTask(ctx, request, sc)
		}))

	completeTaskTool := mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task as completed with the current timestamp"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to complete"),
		),
	)
	s.AddTool(completeTaskTool, common.InstrumentedToolHandlerWithOperation("complete_task", "complete_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCompleteTask(ctx, request, sc)
		}))

	moveTaskTool := mcp.NewTool("move_task",
		mcp.WithDescription("Move a task to a different task list"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list currently containing the task"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The ID of the task to move"),
		),
		mcp.WithString("new_tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the destination task list"),
		),
	)
	s.AddTool(moveTaskTool, common.InstrumentedToolHandlerWithOperation("move_task", "move_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMoveTask(ctx, request, sc)
		}))

	clearCompletedTool := mcp.NewTool("clear_completed_tasks",
		mcp.WithDescription("Clear all completed tasks from a task list"),
		mcp.WithString("tasklist_id",
			mcp.Required(),
			mcp.Description("The ID of the task list to clear completed tasks from"),
		),
	)
	s.AddTool(clearCompletedTool, common.InstrumentedToolHandlerWithOperation("clear_completed_tasks", "clear_completed_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClearCompletedTasks(ctx, request, sc)
		}))
}

func handleGetCurrentDatetime(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(time.Now().UTC().Format(time.RFC3339)), nil
}

func handleListTaskLists(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lists, err := svc.ListTaskLists(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list task lists: %v", err)), nil
	}

	return jsonResult(lists), nil
}

func handleAddTaskList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	title, ok := args["title"].(string)
	if !ok || title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created, err := svc.CreateTaskList(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create task list: %v", err)), nil
	}

	return jsonResult(created), nil
}

func handleUpdateTaskList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	title, ok := args["title"].(string)
	if !ok || title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updated, err := svc.UpdateTaskList(ctx, taskListID, title)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update task list: %v", err)), nil
	}

	return jsonResult(updated), nil
}

func handleDeleteTaskList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := svc.DeleteTaskList(ctx, taskListID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete task list: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Task list %s deleted successfully", taskListID)), nil
}

func handleListTasks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	showCompleted := false
	if v, ok := args["show_completed"].(bool); ok {
		showCompleted = v
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	taskList, err := svc.ListTasks(ctx, taskListID, showCompleted)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tasks: %v", err)), nil
	}

	return jsonResult(taskList), nil
}

func handleAddTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	title, ok := args["title"].(string)
	if !ok || title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}

	notes, _ := args["notes"].(string)

	due, _ := args["due"].(string)
	if due != "" {
		if err := validateDue(due); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created, err := svc.CreateTask(ctx, taskListID, title, notes, due)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
	}

	return jsonResult(created), nil
}

func handleUpdateTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	taskID, ok := args["task_id"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("task_id is required"), nil
	}

	var patch tasks.TaskPatch
	if title, ok := args["title"].(string); ok {
		patch.Title = &title
	}
	if notes, ok := args["notes"].(string); ok {
		patch.Notes = &notes
	}
	if due, ok := args["due"].(string); ok && due != "" {
		if err := validateDue(due); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch.Due = &due
	}
	if status, ok := args["status"].(string); ok && status != "" {
		if status != tasks.StatusNeedsAction && status != tasks.StatusCompleted {
			return mcp.NewToolResultError("status must be 'needsAction' or 'completed'"), nil
		}
		patch.Status = &status
	}

	if patch.IsEmpty() {
		return mcp.NewToolResultError("at least one of title, notes, due or status is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updated, err := svc.UpdateTask(ctx, taskListID, taskID, patch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update task: %v", err)), nil
	}

	return jsonResult(updated), nil
}

func handleDeleteTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	taskID, ok := args["task_id"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("task_id is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := svc.DeleteTask(ctx, taskListID, taskID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete task: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Task %s deleted successfully", taskID)), nil
}

func handleCompleteTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	taskID, ok := args["task_id"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("task_id is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	completed, err := svc.CompleteTask(ctx, taskListID, taskID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to complete task: %v", err)), nil
	}

	return jsonResult(completed), nil
}

func handleMoveTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	taskID, ok := args["task_id"].(string)
	if !ok || taskID == "" {
		return mcp.NewToolResultError("task_id is required"), nil
	}

	newTaskListID, ok := args["new_tasklist_id"].(string)
	if !ok || newTaskListID == "" {
		return mcp.NewToolResultError("new_tasklist_id is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	moved, err := svc.MoveTask(ctx, taskListID, taskID, newTaskListID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to move task: %v", err)), nil
	}

	return jsonResult(moved), nil
}

func handleClearCompletedTasks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	taskListID, ok := args["tasklist_id"].(string)
	if !ok || taskListID == "" {
		return mcp.NewToolResultError("tasklist_id is required"), nil
	}

	svc, err := getService(ctx, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := svc.ClearCompletedTasks(ctx, taskListID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to clear completed tasks: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Completed tasks cleared from list %s", taskListID)), nil
}
