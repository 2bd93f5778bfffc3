package apply

import (
	"context"

	"patchwright/internal/edit"
)

// repairedContent is one escalation strategy's result: the full new file
// content to write in place of the failed modify.
type repairedContent struct {
	content string
	ok      bool
}

// escalate runs the bounded repair chain for a modify whose search text
// could not be resolved: first a corrected edit from the repair
// collaborator, then a full-content rewrite. Strategies are tried in order
// and the first success wins. Whenever a strategy produces an edit that
// itself fails to apply, or no strategy produces anything, the ORIGINAL
// replacement error propagates so repair failures never mask the root
// cause.
func (e *Engine) escalate(ctx context.Context, projectID, filePath, original string, op edit.Operation, origErr *ReplacementError, opts Options) (string, error) {
	strategies := []func() (repairedContent, error){
		func() (repairedContent, error) {
			return e.tryRepair(ctx, projectID, filePath, original, op, origErr, opts)
		},
		func() (repairedContent, error) {
			return e.tryRewrite(ctx, filePath, original, origErr, opts)
		},
	}

	for _, strategy := range strategies {
		result, err := strategy()
		if err != nil {
			return "", err
		}
		if result.ok {
			return result.content, nil
		}
	}

	e.log.Event("apply.repair.exhausted", map[string]any{"path": filePath})
	return "", origErr
}

func (e *Engine) tryRepair(ctx context.Context, projectID, filePath, original string, op edit.Operation, origErr *ReplacementError, opts Options) (repairedContent, error) {
	if e.repairer == nil {
		return repairedContent{}, nil
	}

	repaired, err := e.repairer.TryRepairModify(ctx, RepairRequest{
		ProjectID:       projectID,
		GoalPrompt:      opts.GoalPrompt,
		Stage:           opts.Stage,
		FilePath:        filePath,
		OriginalContent: original,
		FailedEdit:      op,
		Err:             origErr,
	})
	if err != nil || repaired == nil {
		// No usable repair; fall through to the rewrite strategy.
		e.log.Event("apply.repair.miss", map[string]any{"path": filePath})
		return repairedContent{}, nil
	}
	return e.applyRepairedEdit(*repaired, original, filePath, origErr, "repair")
}

func (e *Engine) tryRewrite(ctx context.Context, filePath, original string, origErr *ReplacementError, opts Options) (repairedContent, error) {
	if e.rewriter == nil {
		return repairedContent{}, nil
	}

	rewritten, err := e.rewriter.TryRewriteFile(ctx, RewriteRequest{
		GoalPrompt:      opts.GoalPrompt,
		Stage:           opts.Stage,
		FilePath:        filePath,
		OriginalContent: original,
		ErrorMessage:    origErr.Error(),
	})
	if err != nil || rewritten == nil {
		e.log.Event("apply.rewrite.miss", map[string]any{"path": filePath})
		return repairedContent{}, nil
	}
	return e.applyRepairedEdit(*rewritten, original, filePath, origErr, "rewrite")
}

// applyRepairedEdit materializes a collaborator-returned edit against the
// original content. A returned upsert is taken as the full new content; a
// returned modify has its replacement list applied. If applying the
// returned edit fails, the original error propagates.
func (e *Engine) applyRepairedEdit(repaired edit.Operation, original, filePath string, origErr *ReplacementError, source string) (repairedContent, error) {
	switch repaired.Kind {
	case edit.KindUpsert:
		if !repaired.HasContent {
			return repairedContent{}, origErr
		}
		e.log.Event("apply.repair.applied", map[string]any{"path": filePath, "via": source, "kind": "upsert"})
		return repairedContent{content: repaired.Content, ok: true}, nil

	case edit.KindModify:
		content, err := applyReplacements(original, repaired.Replacements)
		if err != nil {
			return repairedContent{}, origErr
		}
		e.log.Event("apply.repair.applied", map[string]any{"path": filePath, "via": source, "kind": "modify"})
		return repairedContent{content: content, ok: true}, nil

	default:
		return repairedContent{}, origErr
	}
}
