// Package server holds the shared runtime state for the MCP server.
//
// ServerContext owns the configuration, the OAuth authenticator, and the
// lazily constructed Tasks service. The service is built on the first tool
// call that needs it, since construction may require the interactive
// authorization flow; concurrent first calls share one construction.
//
// MetricsServer exposes Prometheus metrics on a dedicated port, separate
// from the MCP transport.
package server
