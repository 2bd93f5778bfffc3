// Package workspace implements the storage collaborator over a local
// directory tree. It resolves repository-relative paths under a fixed root,
// records an audit trail of every mutation, and keeps a staging journal so
// callers can see which files an automation run touched.
package workspace

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"patchwright/internal/apply"
	"patchwright/internal/logging"
)

// AuditEvent records one workspace mutation.
type AuditEvent struct {
	Op        apply.FileOp `json:"op"`
	Timestamp time.Time    `json:"timestamp"`
	Path      string       `json:"path"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	OldHash   string       `json:"old_hash,omitempty"`
	NewHash   string       `json:"new_hash,omitempty"`
}

// Store is a local-filesystem apply.Store rooted at a project directory.
// The projectID on each call is informational; one Store serves one root.
type Store struct {
	mu sync.RWMutex

	root        string
	ignoreDirs  map[string]bool
	maxFileSize int64
	audit       func(AuditEvent)
}

// Option configures a Store.
type Option func(*Store)

// WithIgnoreDirs replaces the directory names skipped by KnownPaths.
func WithIgnoreDirs(names []string) Option {
	return func(s *Store) {
		s.ignoreDirs = make(map[string]bool, len(names))
		for _, n := range names {
			s.ignoreDirs[n] = true
		}
	}
}

// WithMaxFileSize caps the bytes read from a single file.
func WithMaxFileSize(n int64) Option {
	return func(s *Store) { s.maxFileSize = n }
}

// WithAuditCallback sets the callback for workspace audit events.
func WithAuditCallback(cb func(AuditEvent)) Option {
	return func(s *Store) { s.audit = cb }
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		root: dir,
		ignoreDirs: map[string]bool{
			".git": true, "node_modules": true, ".patchwright": true,
			"dist": true, "build": true, "vendor": true,
		},
		maxFileSize: 2 * 1024 * 1024,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Root returns the workspace root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) emitAudit(ev AuditEvent) {
	s.mu.RLock()
	cb := s.audit
	s.mu.RUnlock()
	if cb != nil {
		cb(ev)
	}
}

// securePath resolves a repository-relative path under the root and rejects
// anything that would escape it.
func (s *Store) securePath(relPath string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(relPath))
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace root", relPath)
	}
	return fullAbs, nil
}

func hashContent(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ReadFile implements apply.Store. A missing file is reported via the found
// flag, not as an error.
func (s *Store) ReadFile(_ context.Context, _, filePath string) (string, bool, error) {
	timer := logging.StartTimer(logging.CategoryWorkspace, "File read")
	defer timer.Stop()

	full, err := s.securePath(filePath)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("path %q is a directory", filePath)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return "", false, fmt.Errorf("file %q exceeds size limit (%d bytes)", filePath, info.Size())
	}

	data, err := os.ReadFile(full)
	if err != nil {
		logging.WorkspaceError("File read failed: %s - %v", filePath, err)
		return "", false, err
	}
	logging.WorkspaceDebug("File read: %s (%d bytes)", filePath, len(data))
	return string(data), true, nil
}

// UpsertFile implements apply.Store, creating parent directories as needed.
func (s *Store) UpsertFile(_ context.Context, req apply.UpsertRequest) error {
	timer := logging.StartTimer(logging.CategoryWorkspace, "File write")
	defer timer.Stop()

	full, err := s.securePath(req.FilePath)
	if err != nil {
		return err
	}

	var oldHash string
	if existing, readErr := os.ReadFile(full); readErr == nil {
		oldHash = hashContent(existing)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		s.emitAudit(AuditEvent{Op: apply.OpUpsert, Timestamp: time.Now(), Path: req.FilePath, Error: err.Error()})
		return err
	}
	if err := os.WriteFile(full, []byte(req.Content), 0644); err != nil {
		logging.WorkspaceError("File write failed: %s - %v", req.FilePath, err)
		s.emitAudit(AuditEvent{Op: apply.OpUpsert, Timestamp: time.Now(), Path: req.FilePath, Error: err.Error()})
		return err
	}

	logging.Workspace("File written: %s (%d bytes)", req.FilePath, len(req.Content))
	s.emitAudit(AuditEvent{
		Op:        apply.OpUpsert,
		Timestamp: time.Now(),
		Path:      req.FilePath,
		Success:   true,
		OldHash:   oldHash,
		NewHash:   hashContent([]byte(req.Content)),
	})
	return nil
}

// DeletePath implements apply.Store. Deleting a missing path fails with a
// not-found error carrying a 404 status so callers can classify it.
func (s *Store) DeletePath(_ context.Context, req apply.DeleteRequest) error {
	full, err := s.securePath(req.TargetPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return &notFoundError{path: req.TargetPath}
		}
		return err
	}

	if req.Recursive {
		err = os.RemoveAll(full)
	} else {
		err = os.Remove(full)
	}
	if err != nil {
		logging.WorkspaceError("Delete failed: %s - %v", req.TargetPath, err)
		s.emitAudit(AuditEvent{Op: apply.OpDelete, Timestamp: time.Now(), Path: req.TargetPath, Error: err.Error()})
		return err
	}

	logging.Workspace("Deleted: %s (recursive=%v)", req.TargetPath, req.Recursive)
	s.emitAudit(AuditEvent{Op: apply.OpDelete, Timestamp: time.Now(), Path: req.TargetPath, Success: true})
	return nil
}

// StageFile implements apply.Store by appending to the staging journal
// under .patchwright/. The journal is the only record of which files a run
// touched; no overview is produced for a local workspace.
func (s *Store) StageFile(_ context.Context, req apply.StageRequest) (apply.StageResult, error) {
	journalDir := filepath.Join(s.root, ".patchwright")
	if err := os.MkdirAll(journalDir, 0755); err != nil {
		return apply.StageResult{}, err
	}

	journal := filepath.Join(journalDir, "staged.log")
	f, err := os.OpenFile(journal, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return apply.StageResult{}, err
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%s\t%s\n", time.Now().Format(time.RFC3339), req.Source, req.FilePath)
	if _, err := f.WriteString(line); err != nil {
		return apply.StageResult{}, err
	}
	logging.WorkspaceDebug("Staged: %s (source=%s)", req.FilePath, req.Source)
	return apply.StageResult{}, nil
}

// KnownPaths walks the tree and returns the canonical repository-relative
// path set, skipping ignored directories.
func (s *Store) KnownPaths() (apply.PathSet, error) {
	timer := logging.StartTimer(logging.CategoryWorkspace, "Known path scan")
	defer timer.Stop()

	set := make(apply.PathSet)
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.root && s.ignoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		set[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WorkspaceDebug("Known path scan found %d files", len(set))
	return set, nil
}

// notFoundError carries an HTTP-like 404 for the engine's error wrapping.
type notFoundError struct {
	path string
}

func (e *notFoundError) Error() string   { return fmt.Sprintf("path not found: %s", e.path) }
func (e *notFoundError) StatusCode() int { return 404 }
