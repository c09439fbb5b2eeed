package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound means no opportunity feed could be located.
	ErrInputNotFound = errors.New("opportunity feed not found")
	// ErrCorruptArtifact marks a persisted file that exists but cannot be decoded.
	ErrCorruptArtifact = errors.New("corrupt artifact")
	// ErrRunLocked means another invocation holds the storage lock.
	ErrRunLocked = errors.New("another run holds the storage lock")
)

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// ArtifactError ties a persistence failure to the file it happened on.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// Corrupt wraps a decode failure so callers can match ErrCorruptArtifact.
func Corrupt(path string, cause error) error {
	return &ArtifactError{Path: path, Err: fmt.Errorf("%w: %v", ErrCorruptArtifact, cause)}
}
