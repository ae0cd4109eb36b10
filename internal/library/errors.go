package library

import (
	"errors"
	"fmt"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ScanError provides context for a failed scan step.
type ScanError struct {
	Op   string // Operation that failed (e.g., "hash file")
	Path string // File or directory involved
	Err  error  // Underlying error
}

func (e *ScanError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s '%s': %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
