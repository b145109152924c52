// Package tasks_tools provides MCP tools for managing Google Tasks.
//
// The package exposes task list management (list_tasklists, add_tasklist,
// update_tasklist, delete_tasklist), task management (list_tasks, add_task,
// update_task, delete_task, complete_task, move_task,
// clear_completed_tasks), and a get_current_datetime helper for resolving
// relative dates.
//
// Tool handlers validate arguments, delegate to the Tasks service, and
// return results as JSON. Domain failures (bad arguments, missing
// resources, authorization problems) are returned as tool error results so
// the calling model can react to them; Go errors are reserved for protocol
// failures.
package tasks_tools
