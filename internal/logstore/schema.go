package logstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/liftlog/internal/codec"
	"github.com/roach88/liftlog/internal/record"
	"github.com/roach88/liftlog/internal/vault"
)

// Schema reads and grows the column header of the log file.
// Columns are only ever appended; existing columns never move.
type Schema struct {
	vault      vault.Vault
	path       string
	writeMu    *sync.Mutex
	invalidate func()
	logger     *slog.Logger
}

// NewSchema returns a schema manager for the log file at path. writeMu is
// shared with the Repository so header growth never interleaves with a row
// write. invalidate is called after every header change.
func NewSchema(v vault.Vault, path string, writeMu *sync.Mutex, invalidate func(), logger *slog.Logger) *Schema {
	if logger == nil {
		logger = slog.Default()
	}
	if invalidate == nil {
		invalidate = func() {}
	}
	return &Schema{vault: v, path: path, writeMu: writeMu, invalidate: invalidate, logger: logger}
}

// Columns returns the header of the log file, or the standard columns when
// the file does not exist or its header is empty.
func (s *Schema) Columns(ctx context.Context) ([]string, error) {
	text, err := s.vault.Read(ctx, s.path)
	if errors.Is(err, vault.ErrNotFound) {
		return record.StandardColumns(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return codec.ReadHeader(text), nil
}

// CustomColumns returns the header columns that are not standard, in
// file order.
func (s *Schema) CustomColumns(ctx context.Context) ([]string, error) {
	cols, err := s.Columns(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(cols, record.IsStandardColumn), nil
}

// EnsureColumnExists appends name to the header, and an empty cell to every
// row, unless name is standard or already present. The file must exist.
func (s *Schema) EnsureColumnExists(ctx context.Context, name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ensureColumnLocked(ctx, name)
}

// ensureColumnLocked is EnsureColumnExists for callers already holding
// writeMu.
func (s *Schema) ensureColumnLocked(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &StoreError{
			Code:    ErrCodeInvalidColumn,
			Op:      "ensure column",
			Path:    s.path,
			Message: "column name is blank",
		}
	}
	if record.IsStandardColumn(name) {
		return nil
	}

	cols, err := s.Columns(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(cols, name) {
		return nil
	}

	added := false
	err = s.vault.Process(ctx, s.path, func(text string) (string, error) {
		doc := codec.ParseDocument(text)
		added = doc.AddColumn(name)
		if !added {
			return text, nil
		}
		return doc.String()
	})
	if err != nil {
		return fmt.Errorf("ensure column %q: %w", name, err)
	}

	if added {
		s.invalidate()
		s.logger.Debug("column added", "path", s.path, "column", name)
	}
	return nil
}
