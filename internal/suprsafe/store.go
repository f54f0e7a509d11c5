package suprsafe

// Store persists per-directory lockout state and the operation history.
// Lockout state must survive process restarts so failed attempts cannot
// be reset by simply re-running the program.
type Store interface {
	// RegisterDirectory finds or creates the record for a protected
	// directory, keyed by its absolute path.
	RegisterDirectory(path string) (*Directory, error)

	// FindDirectoryByPath returns the record for a path, or nil if the
	// directory has never been registered.
	FindDirectoryByPath(path string) (*Directory, error)

	// Attempts returns the consecutive failed-attempt count for a directory.
	Attempts(directoryID string) (int, error)

	// IncrementAttempts adds one failed attempt and returns the new count.
	IncrementAttempts(directoryID string) (int, error)

	// ResetAttempts zeroes the counter after a successful authentication.
	ResetAttempts(directoryID string) error

	// MarkLocked records that the directory's ciphertext has been wiped.
	// Locked is terminal: it is never cleared.
	MarkLocked(directoryID string) error

	// IsLocked reports whether the directory has been wiped.
	IsLocked(directoryID string) (bool, error)

	// CreateOperation records the start of an encrypt/decrypt/wipe run.
	CreateOperation(directoryID, operation string) (*Operation, error)

	// FinishOperation records the outcome of a run.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// Close releases the underlying resources.
	Close() error
}
