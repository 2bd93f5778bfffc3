package apply

import (
	"errors"
	"fmt"
	"strings"
)

// FileOp names the storage operation that failed.
type FileOp string

const (
	OpRead   FileOp = "read"
	OpUpsert FileOp = "upsert"
	OpDelete FileOp = "delete"
)

// FileOpError is the structured failure attached to any storage error so
// callers can classify retryable vs. permanent failures without matching
// message text. Status mirrors the HTTP-like status code the storage
// collaborator reported, when it reported one; zero means unknown.
type FileOpError struct {
	Path    string
	Status  int
	Op      FileOp
	Message string
	Err     error
}

func (e *FileOpError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("file %s failed for %s (status %d): %s", e.Op, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("file %s failed for %s: %s", e.Op, e.Path, e.Message)
}

func (e *FileOpError) Unwrap() error { return e.Err }

// StatusCoder lets a storage collaborator attach an HTTP-like status code
// to its errors.
type StatusCoder interface {
	StatusCode() int
}

// wrapFileOpError attaches a FileOpError to a storage failure. An error
// that already carries one passes through unchanged.
func wrapFileOpError(err error, path string, op FileOp) error {
	if err == nil {
		return nil
	}
	var existing *FileOpError
	if errors.As(err, &existing) {
		return err
	}

	status := 0
	var sc StatusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	return &FileOpError{
		Path:    path,
		Status:  status,
		Op:      op,
		Message: err.Error(),
		Err:     err,
	}
}

// ErrSearchNotFound marks a replacement whose search text could not be
// located in the current file content. This is the only replacement failure
// eligible for repair escalation.
var ErrSearchNotFound = errors.New("search text not found in file")

// ReplacementError labels a failed replacement application with enough
// context to request a repair: the file, the pipeline stage, and a preview
// of the leading search strings.
type ReplacementError struct {
	Path           string
	Stage          string
	SearchPreviews []string
	Err            error
}

func (e *ReplacementError) Error() string {
	msg := fmt.Sprintf("failed to apply replacements to %s", e.Path)
	if e.Stage != "" {
		msg += " during " + e.Stage
	}
	if len(e.SearchPreviews) > 0 {
		msg += ": searched for " + strings.Join(e.SearchPreviews, " | ")
	}
	return msg + ": " + e.Err.Error()
}

func (e *ReplacementError) Unwrap() error { return e.Err }

// isResolutionError reports whether err is a replacement resolution
// failure, i.e. the search text was absent rather than the operation being
// malformed.
func isResolutionError(err error) bool {
	return errors.Is(err, ErrSearchNotFound)
}

const previewLength = 60

// searchPreviews renders truncated previews of the first n search strings.
func searchPreviews(searches []string, n int) []string {
	if len(searches) < n {
		n = len(searches)
	}
	previews := make([]string, 0, n)
	for _, s := range searches[:n] {
		s = strings.ReplaceAll(s, "\n", `\n`)
		if len(s) > previewLength {
			s = s[:previewLength] + "..."
		}
		previews = append(previews, fmt.Sprintf("%q", s))
	}
	return previews
}
