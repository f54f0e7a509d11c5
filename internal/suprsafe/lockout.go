package suprsafe

import (
	"fmt"
	"path/filepath"
)

// AttemptResult reports the lockout state after a recorded password
// failure.
type AttemptResult struct {
	Attempts  int  // consecutive failures, including this one
	Remaining int  // attempts left before lockout; 0 when disabled or locked
	Locked    bool // threshold exceeded, ciphertext wiped
	Wiped     int  // files destroyed by the wipe
}

// LockoutGuard tracks failed account-password attempts per protected
// directory. Once the configured threshold is reached it wipes every
// encrypted artifact and the wrapped-key blob instead of allowing further
// attempts. The counter lives in the Store so restarting the process does
// not reset it.
//
// The guard only wipes when enabled, which requires SuprSafe+ to be
// configured with a distinct admin password. When disabled it still
// counts failures, for logging, but never locks.
type LockoutGuard struct {
	store     Store
	eraser    Eraser
	fsmgr     FilesystemManager
	logger    Logger
	threshold int
	enabled   bool
}

// NewLockoutGuard creates a guard. threshold is the number of consecutive
// failures that triggers the wipe.
func NewLockoutGuard(store Store, eraser Eraser, fsmgr FilesystemManager, logger Logger, threshold int, enabled bool) *LockoutGuard {
	return &LockoutGuard{
		store:     store,
		eraser:    eraser,
		fsmgr:     fsmgr,
		logger:    logger,
		threshold: threshold,
		enabled:   enabled,
	}
}

// Enabled reports whether the guard will wipe on threshold.
func (g *LockoutGuard) Enabled() bool { return g.enabled }

// CheckActive returns ErrDirectoryLocked if the directory was wiped in a
// previous session. Locked is terminal: no further operations are
// meaningful once the ciphertext is gone.
func (g *LockoutGuard) CheckActive(directoryID string) error {
	locked, err := g.store.IsLocked(directoryID)
	if err != nil {
		return fmt.Errorf("checking lockout state: %w", err)
	}
	if locked {
		return fmt.Errorf("%w: ciphertext was wiped after repeated failed attempts", ErrDirectoryLocked)
	}
	return nil
}

// RecordFailure counts one failed password attempt. When the count
// reaches the threshold and the guard is enabled, it wipes the
// directory's ciphertext and marks the directory locked.
func (g *LockoutGuard) RecordFailure(dir *Path, directoryID string) (*AttemptResult, error) {
	count, err := g.store.IncrementAttempts(directoryID)
	if err != nil {
		return nil, fmt.Errorf("recording failed attempt: %w", err)
	}

	res := &AttemptResult{Attempts: count}
	if !g.enabled {
		g.logger.Warn("failed password attempt", "directory", dir.String(), "attempts", count)
		return res, nil
	}

	if count < g.threshold {
		res.Remaining = g.threshold - count
		g.logger.Warn("failed password attempt", "directory", dir.String(), "attempts", count, "remaining", res.Remaining)
		return res, nil
	}

	g.logger.Error("lockout threshold reached, wiping ciphertext", "directory", dir.String(), "attempts", count)
	wiped, err := g.Wipe(dir)
	res.Wiped = wiped
	res.Locked = true
	if err != nil {
		return res, fmt.Errorf("wiping after lockout: %w", err)
	}
	if err := g.store.MarkLocked(directoryID); err != nil {
		return res, fmt.Errorf("marking directory locked: %w", err)
	}
	return res, nil
}

// RecordSuccess resets the counter after a successful authentication.
func (g *LockoutGuard) RecordSuccess(directoryID string) error {
	if err := g.store.ResetAttempts(directoryID); err != nil {
		return fmt.Errorf("resetting attempt counter: %w", err)
	}
	return nil
}

// Wipe securely erases every encrypted artifact in the directory and the
// wrapped-key blob. Plaintext files that were never encrypted are left
// alone. Returns the number of files destroyed.
func (g *LockoutGuard) Wipe(dir *Path) (int, error) {
	files, err := g.fsmgr.FindFiles(dir, true)
	if err != nil {
		return 0, fmt.Errorf("listing directory: %w", err)
	}

	wiped := 0
	var firstErr error
	for _, f := range files {
		if !f.IsArtifact() {
			continue
		}
		if err := g.eraser.Erase(f.String()); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("erasing %s: %w", f.String(), err)
			}
			continue
		}
		wiped++
	}

	blobPath := filepath.Join(dir.String(), KeyBlobDir, KeyBlobName)
	if g.fsmgr.Exists(blobPath) {
		if err := g.eraser.Erase(blobPath); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("erasing key blob: %w", err)
			}
		} else {
			wiped++
			// The keys_ivs directory is empty now; removal failure is harmless.
			g.fsmgr.Remove(filepath.Join(dir.String(), KeyBlobDir))
		}
	}

	return wiped, firstErr
}
