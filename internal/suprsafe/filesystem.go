package suprsafe

import "io/fs"

// FilesystemManager abstracts filesystem access so the core flows can be
// exercised against test directories without special setup.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object. It resolves
	// the path to an absolute path, stats it, and rejects special files
	// (symlinks, devices, pipes, sockets).
	Resolve(rawPath string) (*Path, error)

	// FindFiles lists the regular files directly under the given
	// directory. When recursive is true, files in subdirectories are
	// included.
	FindFiles(path *Path, recursive bool) ([]*Path, error)

	// ReadFile reads a file's full contents.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to path with the given mode, creating parent
	// directories as needed.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Exists reports whether a regular file exists at path.
	Exists(path string) bool

	// Remove deletes a file or empty directory without overwriting it
	// first. Use Eraser for anything that held secrets.
	Remove(path string) error
}

// Eraser destroys a file so its contents are not recoverable from disk.
// The overwrite must complete before the unlink; an I/O failure mid-erase
// is reported, never swallowed.
type Eraser interface {
	Erase(path string) error
}
