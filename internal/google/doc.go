// Package google manages the delegated OAuth2 credential for the Google
// Tasks API.
//
// An Authenticator owns the whole credential lifecycle: loading the persisted
// token, checking validity (expiry and scope coverage), refreshing expired
// tokens, running the interactive loopback consent flow when no usable
// credential exists, and persisting every successfully acquired token back to
// disk. The token file is a secret and is written with mode 0600.
//
// First use is serialized: concurrent callers of HTTPClient share a single
// acquisition, so the interactive flow never runs twice and the token file is
// written once. Failed acquisitions are not cached; the next call starts the
// sequence from scratch.
package google
