// Package tasks provides a client for managing Google Tasks.
//
// This package wraps the Google Tasks API (tasks/v1) and provides
// functionality for:
//   - Managing task lists (list, create, rename, delete)
//   - Managing tasks (list, create, update, delete, complete, move)
//   - Clearing completed tasks from a list
//
// Updates are read-modify-write: the stored resource is fetched, patched in
// memory, and submitted back in full. Concurrent writers therefore race on a
// last-write-wins basis. Fields omitted from a patch keep their stored
// values; a patch can replace a field but never clear it.
//
// All methods take a context and return errors classified by the apierr
// package: HTTP 404 surfaces as a not-found error, 401 and 403 as
// authorization errors, everything else as a remote service error.
package tasks
