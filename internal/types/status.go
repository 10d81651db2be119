package types

// Status tracks the lifecycle of a stored resource and decides whether it
// shows up in queries. Deleted rows are retained for audit.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
