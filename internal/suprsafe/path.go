package suprsafe

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Path represents a validated filesystem path with cached metadata.
// Path objects are created by FilesystemManager.Resolve() which validates
// the path exists, resolves it to an absolute path, and caches stat info.
type Path struct {
	absPath string
	isDir   bool
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{
		absPath: absPath,
		isDir:   isDir,
		info:    info,
	}
}

// String returns the absolute path as a string.
func (p *Path) String() string {
	return p.absPath
}

// IsDir returns true if this path points to a directory.
func (p *Path) IsDir() bool {
	return p.isDir
}

// Info returns the cached file info from when the path was resolved.
func (p *Path) Info() fs.FileInfo {
	return p.info
}

// Base returns the final element of the path.
func (p *Path) Base() string {
	return filepath.Base(p.absPath)
}

// IsArtifact reports whether the path names one of the three encrypted
// artifact siblings. Artifact files are skipped during encryption and are
// the targets of decryption and wipes.
func (p *Path) IsArtifact() bool {
	name := p.Base()
	return strings.HasSuffix(name, CipherSuffix) ||
		strings.HasSuffix(name, TagSuffix) ||
		strings.HasSuffix(name, NonceSuffix)
}
