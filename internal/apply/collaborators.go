package apply

import (
	"context"

	"patchwright/internal/edit"
)

// Store is the storage/version-control collaborator that owns the actual
// files. All persistence belongs to it; the engine only sequences calls.
type Store interface {
	// ReadFile returns the file content, or found=false when the path does
	// not exist. A false found is not an error at this layer.
	ReadFile(ctx context.Context, projectID, filePath string) (content string, found bool, err error)

	// UpsertFile creates or overwrites a file.
	UpsertFile(ctx context.Context, req UpsertRequest) error

	// DeletePath removes a file or, when Recursive is set, a directory tree.
	DeletePath(ctx context.Context, req DeleteRequest) error

	// StageFile notifies the backend that a file changed, independent of
	// the write itself.
	StageFile(ctx context.Context, req StageRequest) (StageResult, error)
}

// UpsertRequest carries one file write.
type UpsertRequest struct {
	ProjectID  string
	FilePath   string
	Content    string
	KnownPaths PathSet
}

// DeleteRequest carries one path removal.
type DeleteRequest struct {
	ProjectID  string
	TargetPath string
	Recursive  bool
}

// StageRequest notifies staging of a changed file.
type StageRequest struct {
	ProjectID string
	FilePath  string
	Source    string
}

// StageResult optionally carries a refreshed branch overview from the
// staging backend.
type StageResult struct {
	Overview string
}

// Repairer asks the planning service for a corrected version of a modify
// edit whose replacements could not be applied. A nil result with a nil
// error means no usable repair was produced.
type Repairer interface {
	TryRepairModify(ctx context.Context, req RepairRequest) (*edit.Operation, error)
}

// RepairRequest describes the failed edit for the repair collaborator.
type RepairRequest struct {
	ProjectID       string
	GoalPrompt      string
	Stage           string
	FilePath        string
	OriginalContent string
	FailedEdit      edit.Operation
	Err             error
}

// Rewriter asks the planning service for a full-content rewrite of the
// file, the second and last escalation step. A nil result with a nil error
// means no rewrite was produced.
type Rewriter interface {
	TryRewriteFile(ctx context.Context, req RewriteRequest) (*edit.Operation, error)
}

// RewriteRequest describes the file for the rewrite collaborator.
type RewriteRequest struct {
	GoalPrompt      string
	Stage           string
	FilePath        string
	OriginalContent string
	ErrorMessage    string
}

// EventLogger is the structured logging sink the engine reports to.
type EventLogger interface {
	Event(event string, fields map[string]any)
}

// nopLogger is used when the caller wires no sink.
type nopLogger struct{}

func (nopLogger) Event(string, map[string]any) {}
