// Package apierr defines the error taxonomy surfaced at the tool boundary.
//
// Every failure leaving the server is classified into one of four kinds:
//   - Configuration: missing or invalid client configuration; fatal for the
//     affected capability, never retried.
//   - Authorization: the interactive consent flow or a token refresh failed.
//   - NotFound: the remote resource does not exist for the supplied id.
//   - Remote: any other failure from the Google Tasks API (rate limits,
//     server errors, network failures). No automatic retry is performed;
//     callers needing resilience implement it outside this server.
package apierr
