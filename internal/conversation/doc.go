// Package conversation is the orchestration core of the client: it owns
// the session directory, the transcript buffer for the active session,
// the query dispatch state machine and the progress timer that shadows
// each in-flight query.
//
// All state lives in a Controller and is mutated only through its
// operations; the rendering layer reads snapshots and subscribes to the
// Events channel for lifecycle notifications. Server payload drift is
// absorbed at ingestion: entries that cannot be used are dropped and
// counted by reason rather than failing the whole fetch.
//
// Local mutations are optimistic. Deleting a session or clearing memory
// updates the in-memory state first and treats the follow-up server call
// as best-effort; LoadSessions doubles as the reconciliation hook when
// that drift needs squaring up.
package conversation
