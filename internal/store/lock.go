package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// Lock is an exclusive cross-process lock on a file in a DiskStore.
//
// The lock is held on a separate zero-byte file in $XDG_RUNTIME_DIR
// (or os.TempDir if unset), named after the locked file's absolute path.
// The lock file is never removed: an orphaned file is harmless because the
// kernel releases the lock when the holding process exits.
type Lock struct {
	fl *flock.Flock
}

// Lock acquires an exclusive lock on path, blocking until it is available
// or ctx is done.
func (d *DiskStore) Lock(ctx context.Context, path string) (*Lock, error) {
	fullPath, err := resolveRelPath(d.rootDir, path)
	if err != nil {
		return nil, err
	}
	lockPath, err := lockFilePath(fullPath, os.Getenv)
	if err != nil {
		return nil, err
	}

	fl := flock.New(lockPath)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("failed to lock %s: %w", path, ctx.Err())
	}
	return &Lock{fl: fl}, nil
}

// Release unlocks l. It is safe to call multiple times and on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	return err
}

// lockFilePath returns the lock file for the file at fullPath.
func lockFilePath(fullPath string, getenv func(string) string) (string, error) {
	abs, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("cannot determine absolute path of %s: %v", fullPath, err)
	}
	dir := getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(dir, "dirsearch-"+hex.EncodeToString(sum[:8])+".lock"), nil
}
