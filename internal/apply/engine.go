// Package apply turns an accepted edit list into actual file changes
// through a storage collaborator. Edits are applied strictly sequentially;
// a modify whose search text has drifted escalates through a bounded
// repair-then-rewrite chain before the batch is allowed to fail. The engine
// holds no state between batches and performs no internal parallelism.
package apply

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/google/uuid"

	"patchwright/internal/edit"
	"patchwright/internal/extract"
)

// Outcome accumulates per-batch counters. Edits that fail raise an error
// and abort the remainder of the batch, so Applied+Skipped never exceeds
// the batch size.
type Outcome struct {
	Applied uint `json:"applied"`
	Skipped uint `json:"skipped"`
}

// FileEvent is delivered to the per-file callback before the engine moves
// to the next edit. It is the only partial-progress signal a caller gets
// when a later edit aborts the batch.
type FileEvent struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Options carries the per-batch parameters of Apply.
type Options struct {
	// Source labels staging notifications (for example "automation").
	Source string

	// KnownPaths, when non-empty, disambiguates abbreviated edit paths.
	KnownPaths PathSet

	// GoalPrompt and Stage feed repair escalation; with an empty
	// GoalPrompt, a failed modify is never escalated.
	GoalPrompt string
	Stage      string

	// OnFile is invoked after each successfully applied edit.
	OnFile func(FileEvent)

	// OnOverview is invoked when staging reports a refreshed branch
	// overview.
	OnOverview func(overview string)
}

// Engine applies edit batches. Collaborators are fixed at construction;
// repairer and rewriter may be nil, which disables escalation.
type Engine struct {
	store    Store
	repairer Repairer
	rewriter Rewriter
	log      EventLogger
}

// NewEngine wires an engine to its collaborators. store is required; the
// others may be nil.
func NewEngine(store Store, repairer Repairer, rewriter Rewriter, log EventLogger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{store: store, repairer: repairer, rewriter: rewriter, log: log}
}

// Apply runs one batch of edits against a project. The batch aborts on the
// first unrecoverable error; already-applied edits stay in place and the
// accumulated counts are lost with the error return.
func (e *Engine) Apply(ctx context.Context, projectID string, edits []edit.Operation, opts Options) (Outcome, error) {
	var outcome Outcome
	if projectID == "" || len(edits) == 0 {
		return outcome, nil
	}

	batchID := uuid.NewString()
	e.log.Event("apply.batch.start", map[string]any{
		"batch":   batchID,
		"project": projectID,
		"edits":   len(edits),
		"source":  opts.Source,
	})

	for _, op := range edits {
		resolved := resolvePath(op.Path, opts.KnownPaths)
		if resolved == "" {
			e.log.Event("apply.edit.skipped", map[string]any{
				"batch":  batchID,
				"path":   op.Path,
				"reason": "unusable path",
			})
			outcome.Skipped++
			continue
		}

		var err error
		switch op.Kind {
		case edit.KindModify:
			err = e.applyModify(ctx, projectID, resolved, op, opts, &outcome)
		case edit.KindDelete:
			err = e.applyDelete(ctx, projectID, resolved, op, opts, &outcome)
		case edit.KindUpsert:
			err = e.applyUpsert(ctx, projectID, resolved, op, opts, &outcome)
		default:
			e.log.Event("apply.edit.skipped", map[string]any{
				"batch":  batchID,
				"path":   resolved,
				"reason": "unknown edit kind",
			})
			outcome.Skipped++
			continue
		}
		if err != nil {
			e.log.Event("apply.batch.failed", map[string]any{
				"batch": batchID,
				"path":  resolved,
				"error": err.Error(),
			})
			return Outcome{}, err
		}
	}

	e.log.Event("apply.batch.done", map[string]any{
		"batch":   batchID,
		"applied": outcome.Applied,
		"skipped": outcome.Skipped,
	})
	return outcome, nil
}

func (e *Engine) applyModify(ctx context.Context, projectID, filePath string, op edit.Operation, opts Options, outcome *Outcome) error {
	original, found, err := e.store.ReadFile(ctx, projectID, filePath)
	if err != nil {
		return wrapFileOpError(err, filePath, OpRead)
	}
	if !found {
		return &FileOpError{
			Path:    filePath,
			Status:  404,
			Op:      OpRead,
			Message: "file not found",
		}
	}

	updated, repErr := applyReplacements(original, op.Replacements)
	if repErr != nil {
		searches := make([]string, len(op.Replacements))
		for i, r := range op.Replacements {
			searches[i] = r.Search
		}
		labeled := &ReplacementError{
			Path:           filePath,
			Stage:          opts.Stage,
			SearchPreviews: searchPreviews(searches, 2),
			Err:            repErr,
		}

		if !isResolutionError(repErr) || opts.GoalPrompt == "" {
			return labeled
		}
		repaired, escErr := e.escalate(ctx, projectID, filePath, original, op, labeled, opts)
		if escErr != nil {
			return escErr
		}
		updated = repaired
	}

	if updated == original {
		e.log.Event("apply.edit.noop", map[string]any{"path": filePath})
		outcome.Skipped++
		return nil
	}

	if err := e.store.UpsertFile(ctx, UpsertRequest{
		ProjectID:  projectID,
		FilePath:   filePath,
		Content:    updated,
		KnownPaths: opts.KnownPaths,
	}); err != nil {
		return wrapFileOpError(err, filePath, OpUpsert)
	}
	if err := e.stage(ctx, projectID, filePath, opts); err != nil {
		return err
	}
	if opts.OnFile != nil {
		opts.OnFile(FileEvent{Type: "modify", Path: filePath})
	}
	outcome.Applied++
	return nil
}

func (e *Engine) applyDelete(ctx context.Context, projectID, filePath string, op edit.Operation, opts Options, outcome *Outcome) error {
	if err := e.store.DeletePath(ctx, DeleteRequest{
		ProjectID:  projectID,
		TargetPath: filePath,
		Recursive:  op.Recursive,
	}); err != nil {
		return wrapFileOpError(err, filePath, OpDelete)
	}
	if err := e.stage(ctx, projectID, filePath, opts); err != nil {
		return err
	}
	outcome.Applied++
	return nil
}

func (e *Engine) applyUpsert(ctx context.Context, projectID, filePath string, op edit.Operation, opts Options, outcome *Outcome) error {
	if !op.HasContent {
		e.log.Event("apply.edit.skipped", map[string]any{
			"path":   filePath,
			"reason": "upsert without string content",
		})
		outcome.Skipped++
		return nil
	}

	content := op.Content
	if path.Base(filePath) == "package.json" {
		content = normalizeManifest(content)
	}

	if err := e.store.UpsertFile(ctx, UpsertRequest{
		ProjectID:  projectID,
		FilePath:   filePath,
		Content:    content,
		KnownPaths: opts.KnownPaths,
	}); err != nil {
		return wrapFileOpError(err, filePath, OpUpsert)
	}
	if err := e.stage(ctx, projectID, filePath, opts); err != nil {
		return err
	}
	if opts.OnFile != nil {
		opts.OnFile(FileEvent{Type: "upsert", Path: filePath})
	}
	outcome.Applied++
	return nil
}

func (e *Engine) stage(ctx context.Context, projectID, filePath string, opts Options) error {
	res, err := e.store.StageFile(ctx, StageRequest{
		ProjectID: projectID,
		FilePath:  filePath,
		Source:    opts.Source,
	})
	if err != nil {
		return err
	}
	if res.Overview != "" && opts.OnOverview != nil {
		opts.OnOverview(res.Overview)
	}
	return nil
}

// applyReplacements applies each search/replace pair to content. The first
// occurrence of the search text is replaced; an absent search text fails
// with ErrSearchNotFound.
func applyReplacements(content string, replacements []edit.Replacement) (string, error) {
	for _, r := range replacements {
		if r.Search == "" {
			return "", &emptySearchError{}
		}
		if !strings.Contains(content, r.Search) {
			return "", ErrSearchNotFound
		}
		content = strings.Replace(content, r.Search, r.Replace, 1)
	}
	return content, nil
}

type emptySearchError struct{}

func (*emptySearchError) Error() string { return "replacement has an empty search string" }

// normalizeManifest re-serializes package.json content through a map so
// duplicate keys collapse to their last occurrence, which models emit for
// dependency blocks surprisingly often. Unparseable content passes through
// unchanged.
func normalizeManifest(content string) string {
	obj, ok := extract.ParseLoose(content).(map[string]any)
	if !ok {
		return content
	}
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return content
	}
	return string(data) + "\n"
}
