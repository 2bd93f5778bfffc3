package apply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patchwright/internal/edit"
)

// fakeStore records every collaborator call so tests can assert on call
// counts and payloads.
type fakeStore struct {
	files map[string]string

	reads   []string
	writes  []UpsertRequest
	deletes []DeleteRequest
	stages  []StageRequest

	upsertErr error
	deleteErr error
	overview  string
}

func newFakeStore(files map[string]string) *fakeStore {
	if files == nil {
		files = map[string]string{}
	}
	return &fakeStore{files: files}
}

func (s *fakeStore) ReadFile(_ context.Context, _, filePath string) (string, bool, error) {
	s.reads = append(s.reads, filePath)
	content, ok := s.files[filePath]
	return content, ok, nil
}

func (s *fakeStore) UpsertFile(_ context.Context, req UpsertRequest) error {
	s.writes = append(s.writes, req)
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.files[req.FilePath] = req.Content
	return nil
}

func (s *fakeStore) DeletePath(_ context.Context, req DeleteRequest) error {
	s.deletes = append(s.deletes, req)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.files, req.TargetPath)
	return nil
}

func (s *fakeStore) StageFile(_ context.Context, req StageRequest) (StageResult, error) {
	s.stages = append(s.stages, req)
	return StageResult{Overview: s.overview}, nil
}

// fakeRepairer returns a canned repair result.
type fakeRepairer struct {
	result *edit.Operation
	err    error
	calls  int
}

func (r *fakeRepairer) TryRepairModify(_ context.Context, _ RepairRequest) (*edit.Operation, error) {
	r.calls++
	return r.result, r.err
}

// fakeRewriter returns a canned rewrite result.
type fakeRewriter struct {
	result *edit.Operation
	err    error
	calls  int
}

func (r *fakeRewriter) TryRewriteFile(_ context.Context, _ RewriteRequest) (*edit.Operation, error) {
	r.calls++
	return r.result, r.err
}

func modifyOp(path, search, replace string) edit.Operation {
	return edit.Operation{
		Kind:         edit.KindModify,
		Path:         path,
		Replacements: []edit.Replacement{{Search: search, Replace: replace}},
	}
}

func upsertOp(path, content string) edit.Operation {
	return edit.Operation{Kind: edit.KindUpsert, Path: path, Content: content, HasContent: true}
}

func TestApplyEmptyInputs(t *testing.T) {
	store := newFakeStore(nil)
	engine := NewEngine(store, nil, nil, nil)

	out, err := engine.Apply(context.Background(), "", []edit.Operation{upsertOp("a.js", "x")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)

	out, err = engine.Apply(context.Background(), "proj", nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, store.writes)
}

func TestApplyModifySuccess(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": `const x = "foo";`})
	engine := NewEngine(store, nil, nil, nil)

	out, err := engine.Apply(context.Background(), "proj", []edit.Operation{modifyOp("a.js", "foo", "bar")}, Options{Source: "automation"})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Applied: 1}, out)
	assert.Len(t, store.reads, 1)
	require.Len(t, store.writes, 1)
	assert.Equal(t, `const x = "bar";`, store.writes[0].Content)
	require.Len(t, store.stages, 1)
	assert.Equal(t, "automation", store.stages[0].Source)
}

func TestApplyModifyNoOpSkips(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": "foo"})
	engine := NewEngine(store, nil, nil, nil)

	out, err := engine.Apply(context.Background(), "proj", []edit.Operation{modifyOp("a.js", "foo", "foo")}, Options{})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Skipped: 1}, out)
	assert.Empty(t, store.writes, "a no-op modify must not issue a write")
	assert.Empty(t, store.stages)
}

func TestApplyModifyMissingFile(t *testing.T) {
	store := newFakeStore(nil)
	engine := NewEngine(store, nil, nil, nil)

	_, err := engine.Apply(context.Background(), "proj", []edit.Operation{modifyOp("gone.js", "a", "b")}, Options{})
	require.Error(t, err)

	var fileErr *FileOpError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, 404, fileErr.Status)
	assert.Equal(t, OpRead, fileErr.Op)
	assert.Equal(t, "gone.js", fileErr.Path)
}

func TestApplyModifySearchMissingNoGoal(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": "content"})
	repairer := &fakeRepairer{}
	rewriter := &fakeRewriter{}
	engine := NewEngine(store, repairer, rewriter, nil)

	_, err := engine.Apply(context.Background(), "proj", []edit.Operation{modifyOp("a.js", "absent", "x")}, Options{})
	require.Error(t, err)

	var repErr *ReplacementError
	require.ErrorAs(t, err, &repErr)
	assert.ErrorIs(t, err, ErrSearchNotFound)
	assert.Equal(t, 0, repairer.calls, "no goal prompt means no escalation")
	assert.Equal(t, 0, rewriter.calls)
	assert.Empty(t, store.writes)
}

func TestApplyModifyRepairedReplacements(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": "const v = 1;"})
	repairer := &fakeRepairer{result: &edit.Operation{
		Kind:         edit.KindModify,
		Replacements: []edit.Replacement{{Search: "v = 1", Replace: "v = 2"}},
	}}
	rewriter := &fakeRewriter{}
	engine := NewEngine(store, repairer, rewriter, nil)

	out, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{modifyOp("a.js", "stale text", "x")},
		Options{GoalPrompt: "bump the constant", Stage: "coding"})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Applied: 1}, out)
	assert.Equal(t, 1, repairer.calls)
	assert.Equal(t, 0, rewriter.calls, "successful repair must not reach the rewriter")
	require.Len(t, store.writes, 1)
	assert.Equal(t, "const v = 2;", store.writes[0].Content)
}

func TestApplyModifyRepairApplyFailurePropagatesOriginal(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": "content"})
	repairer := &fakeRepairer{result: &edit.Operation{
		Kind:         edit.KindModify,
		Replacements: []edit.Replacement{{Search: "also absent", Replace: "x"}},
	}}
	rewriter := &fakeRewriter{}
	engine := NewEngine(store, repairer, rewriter, nil)

	_, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{modifyOp("a.js", "original absent", "x")},
		Options{GoalPrompt: "goal"})
	require.Error(t, err)

	var repErr *ReplacementError
	require.ErrorAs(t, err, &repErr)
	assert.Contains(t, repErr.SearchPreviews[0], "original absent",
		"the original error, not the repair error, must propagate")
	assert.Equal(t, 0, rewriter.calls)
}

func TestApplyModifyRewriteFallback(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": "old content"})
	repairer := &fakeRepairer{} // returns nil: no usable repair
	rewritten := "entirely new content"
	rewriter := &fakeRewriter{result: &edit.Operation{Kind: edit.KindUpsert, Content: rewritten, HasContent: true}}
	engine := NewEngine(store, repairer, rewriter, nil)

	out, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{modifyOp("a.js", "absent", "x")},
		Options{GoalPrompt: "goal"})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Applied: 1}, out)
	assert.Equal(t, 1, repairer.calls)
	assert.Equal(t, 1, rewriter.calls)
	require.Len(t, store.writes, 1)
	assert.Equal(t, rewritten, store.writes[0].Content)
}

func TestApplyModifyEscalationExhausted(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": "content"})
	engine := NewEngine(store, &fakeRepairer{}, &fakeRewriter{}, nil)

	_, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{modifyOp("a.js", "absent", "x")},
		Options{GoalPrompt: "goal"})

	var repErr *ReplacementError
	require.ErrorAs(t, err, &repErr)
	assert.ErrorIs(t, err, ErrSearchNotFound)
}

func TestApplyUpsert(t *testing.T) {
	store := newFakeStore(nil)
	engine := NewEngine(store, nil, nil, nil)

	var events []FileEvent
	out, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{upsertOp("src/new.js", "hello")},
		Options{OnFile: func(ev FileEvent) { events = append(events, ev) }})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Applied: 1}, out)
	assert.Equal(t, "hello", store.files["src/new.js"])
	require.Len(t, events, 1)
	assert.Equal(t, FileEvent{Type: "upsert", Path: "src/new.js"}, events[0])
}

func TestApplyUpsertNonStringContentSkipped(t *testing.T) {
	store := newFakeStore(nil)
	engine := NewEngine(store, nil, nil, nil)

	op := edit.Operation{Kind: edit.KindUpsert, Path: "a.js"} // HasContent false
	out, err := engine.Apply(context.Background(), "proj", []edit.Operation{op}, Options{})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Skipped: 1}, out)
	assert.Empty(t, store.writes)
}

func TestApplyUpsertPackageJSONCollapsesDuplicateKeys(t *testing.T) {
	store := newFakeStore(nil)
	engine := NewEngine(store, nil, nil, nil)

	content := `{"name":"app","dependencies":{"left-pad":"1.0.0"},"dependencies":{"left-pad":"2.0.0"}}`
	out, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{upsertOp("package.json", content)}, Options{})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Applied: 1}, out)
	written := store.files["package.json"]
	assert.Equal(t, 1, strings.Count(written, `"dependencies"`))
	assert.Contains(t, written, `"left-pad": "2.0.0"`, "last occurrence wins")
}

func TestApplyUpsertPackageJSONUnparseablePassesThrough(t *testing.T) {
	store := newFakeStore(nil)
	engine := NewEngine(store, nil, nil, nil)

	content := "not json at all"
	_, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{upsertOp("package.json", content)}, Options{})
	require.NoError(t, err)
	assert.Equal(t, content, store.files["package.json"])
}

func TestApplyDelete(t *testing.T) {
	store := newFakeStore(map[string]string{"old/a.js": "x"})
	engine := NewEngine(store, nil, nil, nil)

	op := edit.Operation{Kind: edit.KindDelete, Path: "old", Recursive: true}
	out, err := engine.Apply(context.Background(), "proj", []edit.Operation{op}, Options{})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Applied: 1}, out)
	require.Len(t, store.deletes, 1)
	assert.True(t, store.deletes[0].Recursive)
	assert.Len(t, store.stages, 1)
}

func TestApplyWrapsStoreFailureWithStatus(t *testing.T) {
	store := newFakeStore(nil)
	store.upsertErr = &statusError{status: 400, msg: "rejected by backend"}
	engine := NewEngine(store, nil, nil, nil)

	_, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{upsertOp("a.js", "x")}, Options{})
	require.Error(t, err)

	var fileErr *FileOpError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, 400, fileErr.Status)
	assert.Equal(t, OpUpsert, fileErr.Op)
}

func TestApplyDoesNotDoubleWrapFileOpError(t *testing.T) {
	store := newFakeStore(nil)
	inner := &FileOpError{Path: "a.js", Status: 409, Op: OpUpsert, Message: "conflict"}
	store.upsertErr = inner
	engine := NewEngine(store, nil, nil, nil)

	_, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{upsertOp("a.js", "x")}, Options{})

	var fileErr *FileOpError
	require.ErrorAs(t, err, &fileErr)
	assert.Same(t, inner, fileErr)
}

func TestApplyAbortsBatchOnFirstError(t *testing.T) {
	store := newFakeStore(map[string]string{"a.js": "foo"})
	engine := NewEngine(store, nil, nil, nil)

	edits := []edit.Operation{
		modifyOp("a.js", "foo", "bar"),
		modifyOp("missing.js", "x", "y"),
		upsertOp("never.js", "unreached"),
	}
	out, err := engine.Apply(context.Background(), "proj", edits, Options{})
	require.Error(t, err)

	assert.Equal(t, Outcome{}, out, "counts are lost when the batch rejects")
	assert.NotContains(t, store.files, "never.js", "edits after the failure must not run")
	assert.Equal(t, "bar", store.files["a.js"], "already-applied edits stay in place")
}

func TestApplyPathResolution(t *testing.T) {
	known := NewPathSet("frontend/src/app.js", "backend/src/app.js", "frontend/src/unique.js")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"exact", "frontend/src/app.js", "frontend/src/app.js"},
		{"unique_suffix", "unique.js", "frontend/src/unique.js"},
		{"ambiguous_kept", "app.js", "app.js"},
		{"unknown_kept", "other.js", "other.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(nil)
			engine := NewEngine(store, nil, nil, nil)
			_, err := engine.Apply(context.Background(), "proj",
				[]edit.Operation{upsertOp(tt.path, "x")},
				Options{KnownPaths: known})
			require.NoError(t, err)
			require.Len(t, store.writes, 1)
			assert.Equal(t, tt.want, store.writes[0].FilePath)
		})
	}
}

func TestApplyUnusablePathSkipped(t *testing.T) {
	store := newFakeStore(nil)
	engine := NewEngine(store, nil, nil, nil)

	out, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{upsertOp("../escape.js", "x")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Skipped: 1}, out)
	assert.Empty(t, store.writes)
}

func TestApplyOverviewCallback(t *testing.T) {
	store := newFakeStore(nil)
	store.overview = "3 files changed on branch fix-nav-bar"
	engine := NewEngine(store, nil, nil, nil)

	var overviews []string
	_, err := engine.Apply(context.Background(), "proj",
		[]edit.Operation{upsertOp("a.js", "x")},
		Options{OnOverview: func(o string) { overviews = append(overviews, o) }})
	require.NoError(t, err)

	require.Len(t, overviews, 1)
	assert.Equal(t, store.overview, overviews[0])
}

// statusError mimics a transport error carrying an HTTP-like status.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.status }

func TestWrapFileOpErrorPlain(t *testing.T) {
	plain := errors.New("disk full")
	err := wrapFileOpError(plain, "a.js", OpUpsert)

	var fileErr *FileOpError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, 0, fileErr.Status)
	assert.ErrorIs(t, err, plain)
}
