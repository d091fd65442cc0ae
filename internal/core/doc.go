// Package core provides the business logic behind the data preparation
// server, independent of any transport. It can be used by web handlers, CLI
// tools, or tests without modification.
//
// # Sessions
//
// A [Service] hosts many in-memory dataset sessions keyed by UUID. Each
// session owns an original snapshot and a current snapshot; see package
// session for the transformation semantics. The store enforces a maximum
// session count, and [Service.StartJanitor] drops sessions idle longer than
// the configured TTL.
//
// # Ingestion
//
// [Service.CreateSession] and [Service.Reload] decode and parse an upload
// through package ingest. Concurrent ingestions are bounded by an
// [UploadLimiter]; callers that cannot get a slot within the wait time
// receive [ErrTooManyUploads].
//
// # Operations
//
// [Service.Apply] forwards an ops.Request to the session, logs the outcome
// and records it in the Prometheus collectors exposed by [Service.Metrics].
//
// # Error Handling
//
// Errors are mapped to user-facing messages with support codes by
// [MapError]. See error_messages.go for the code reference.
package core
