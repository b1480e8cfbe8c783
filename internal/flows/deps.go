package flows

// Deps groups flow dependency sets. The root Builder assembles this once per
// Client; the refresh set is shared by both requesters.
type Deps struct {
	Refresh RefreshDeps
	Persist PersistDeps
}
