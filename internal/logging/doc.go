// Package logging provides slog helpers for consistent structured logging.
//
// It defines the attribute keys used across the codebase and small
// convenience constructors so call sites read uniformly:
//
//	logger.Info("task created", logging.Tool("add_task"), logging.Status(logging.StatusSuccess))
package logging
