// Package zoom implements the Zoom REST API surface the tool needs:
// authentication via server-to-server or user OAuth credentials, scope
// resolution between account-wide and per-user listing, date-chunked
// paginated recording queries, and selection helpers for picking the right
// artifact from a recording instance.
package zoom
