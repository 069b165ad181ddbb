package badger

// NewMemoryStore creates an in-memory annotation store for testing.
// Caller must close the store when done.
func NewMemoryStore() (*Store, error) {
	return Open("", true)
}
