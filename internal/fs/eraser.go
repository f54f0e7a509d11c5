package fs

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

// DefaultErasePasses is the overwrite pass count used when the config
// does not override it: two random passes followed by a zero pass.
const DefaultErasePasses = 3

// OverwriteEraser implements suprsafe.Eraser by overwriting a file's
// bytes in place before unlinking it. Every pass is synced to disk so
// the old contents are actually replaced, not just shadowed in the page
// cache. The final pass writes zeros; earlier passes write random data.
//
// Overwriting is best-effort on journaling and copy-on-write filesystems,
// which may keep old blocks around. It still raises the bar well above a
// plain unlink.
type OverwriteEraser struct {
	passes int
}

var _ suprsafe.Eraser = (*OverwriteEraser)(nil)

// NewOverwriteEraser creates an eraser with the given pass count.
// Non-positive counts fall back to DefaultErasePasses.
func NewOverwriteEraser(passes int) *OverwriteEraser {
	if passes <= 0 {
		passes = DefaultErasePasses
	}
	return &OverwriteEraser{passes: passes}
}

// Erase overwrites the file and removes it. The overwrite must complete
// before the unlink; any I/O failure mid-erase is returned and the file
// is left in place (partially overwritten, never reported as erased).
func (e *OverwriteEraser) Erase(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("refusing to erase non-regular file: %s", path)
	}

	size := info.Size()
	if size > 0 {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("opening %s for overwrite: %w", path, err)
		}

		for pass := 0; pass < e.passes; pass++ {
			if err := e.overwrite(f, size, pass == e.passes-1); err != nil {
				f.Close()
				return fmt.Errorf("overwrite pass %d of %s: %w", pass+1, path, err)
			}
		}

		if err := f.Close(); err != nil {
			return fmt.Errorf("closing %s after overwrite: %w", path, err)
		}
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// overwrite writes one full pass over the file in 32 KiB chunks and
// syncs it to disk.
func (e *OverwriteEraser) overwrite(f *os.File, size int64, zeros bool) error {
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seeking to start: %w", err)
	}

	buf := make([]byte, 32*1024)
	remaining := size
	for remaining > 0 {
		chunk := buf
		if remaining < int64(len(buf)) {
			chunk = buf[:remaining]
		}
		if !zeros {
			if _, err := rand.Read(chunk); err != nil {
				return fmt.Errorf("generating overwrite data: %w", err)
			}
		}
		if _, err := f.Write(chunk); err != nil {
			return fmt.Errorf("writing overwrite data: %w", err)
		}
		remaining -= int64(len(chunk))
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing overwrite pass: %w", err)
	}
	return nil
}
