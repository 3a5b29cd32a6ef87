// Package filestorage keeps private files on the device (exports and other
// documents produced while working with patients) in a single directory
// that is wiped on logout.
package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/clinicsync/internal/filex"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
)

var ErrInvalidName = errors.New("invalid file name")

// Outcome of clearing the storage.
type Outcome int

const (
	ClearSuccess Outcome = iota
	ClearPartiallyDeleted
	ClearFailure
)

func (o Outcome) String() string {
	switch o {
	case ClearSuccess:
		return "success"
	case ClearPartiallyDeleted:
		return "partially_deleted"
	default:
		return "failure"
	}
}

// ClearResult reports what ClearAllFiles managed to delete. Err is set for
// ClearFailure and lists the remaining files for ClearPartiallyDeleted.
type ClearResult struct {
	Outcome Outcome
	Removed int
	Failed  []string
	Err     error
}

type Storage struct {
	dir    string
	logger logging.Logger
}

// New uses dir, creating it when missing.
func New(dir string, l logging.Logger) (*Storage, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}
	if l == nil {
		l = logging.Nop()
	}
	return &Storage{dir: abs, logger: l.With("module", "filestorage")}, nil
}

func (s *Storage) Dir() string { return s.dir }

func (s *Storage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Write stores data under name, replacing an older file, and returns its
// path.
func (s *Storage) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	if _, err := filex.EnsureDir(s.dir); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return p, nil
}

func (s *Storage) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// List returns the stored file names in lexical order.
func (s *Storage) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ClearAllFiles deletes everything in the storage directory. Files that
// could not be removed make the result partial; an unreadable directory is
// a failure.
func (s *Storage) ClearAllFiles(ctx context.Context) ClearResult {
	if err := ctx.Err(); err != nil {
		return ClearResult{Outcome: ClearFailure, Err: err}
	}

	removed, failed, err := filex.RemoveContents(s.dir)
	switch {
	case err == nil:
		s.logger.Info(ctx, "private files cleared", "removed", removed)
		return ClearResult{Outcome: ClearSuccess, Removed: removed}
	case len(failed) > 0:
		s.logger.Warn(ctx, "private files partially cleared", "removed", removed, "failed", len(failed), "error", err)
		return ClearResult{Outcome: ClearPartiallyDeleted, Removed: removed, Failed: failed, Err: err}
	default:
		s.logger.Error(ctx, "clearing private files failed", "error", err)
		return ClearResult{Outcome: ClearFailure, Err: err}
	}
}
