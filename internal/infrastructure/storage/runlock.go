package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"BacklinkOutreach/internal/domain"
)

const lockFileName = "outreach.lock"

// RunLock is an exclusive lock file at the storage root held for the length of
// one mutating run.
type RunLock struct {
	path  string
	token string
}

// AcquireRunLock creates the lock file or fails with domain.ErrRunLocked. A lock
// older than ttl is considered abandoned by a crashed run and replaced.
func AcquireRunLock(root string, ttl time.Duration, now time.Time) (*RunLock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	path := filepath.Join(root, lockFileName)
	token := uuid.NewString()

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "pid=%d started=%s token=%s\n", os.Getpid(), now.UTC().Format(time.RFC3339), token)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
			}
			return &RunLock{path: path, token: token}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		// Content is read before the mtime so a lock replaced in between is
		// judged by the newer mtime.
		holder, readErr := os.ReadFile(path)
		if readErr != nil {
			if errors.Is(readErr, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read lock file: %w", readErr)
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat lock file: %w", statErr)
		}
		if ttl <= 0 || now.Sub(info.ModTime()) < ttl {
			return nil, fmt.Errorf("%w: %s (%s)", domain.ErrRunLocked, path, trimNewline(holder))
		}

		cleared, err := clearStaleLock(path, holder)
		if err != nil {
			return nil, err
		}
		if !cleared {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunLocked, path)
		}
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrRunLocked, path)
}

// clearStaleLock moves the lock aside and removes it only if it still holds the
// content judged stale. A lock another run created in the meantime is restored.
func clearStaleLock(path string, stale []byte) (bool, error) {
	aside := path + ".stale-" + uuid.NewString()
	if err := os.Rename(path, aside); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("move stale lock: %w", err)
	}

	got, err := os.ReadFile(aside)
	if err == nil && bytes.Equal(got, stale) {
		if err := os.Remove(aside); err != nil {
			return false, fmt.Errorf("remove stale lock: %w", err)
		}
		return true, nil
	}

	if err := os.Link(aside, path); err != nil && !errors.Is(err, fs.ErrExist) {
		return false, fmt.Errorf("restore lock: %w", err)
	}
	_ = os.Remove(aside)
	return false, nil
}

// Release removes the lock file unless another run has since taken it over.
func (l *RunLock) Release() error {
	if l == nil {
		return nil
	}
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read lock file: %w", err)
	}
	if !strings.Contains(string(raw), "token="+l.token) {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func trimNewline(b []byte) string {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return string(b)
}
