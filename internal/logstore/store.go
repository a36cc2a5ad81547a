package logstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/liftlog/internal/notify"
	"github.com/roach88/liftlog/internal/record"
	"github.com/roach88/liftlog/internal/vault"
)

// Defaults for Options.
const (
	DefaultPath         = "theGYM/Log/workout_logs.csv"
	DefaultCacheTTL     = 10 * time.Second
	DefaultCacheMaxSize = 5000
)

// EntryValidator checks an entry before it is written.
type EntryValidator interface {
	Validate(rec record.LogRecord) error
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Path         string
	CacheTTL     time.Duration
	CacheMaxSize int
	Clock        Clock
	Logger       *slog.Logger
	Notifier     notify.Notifier

	// Validator, when set, rejects entries before AddEntry and UpdateEntry.
	Validator EntryValidator
}

// Store is the entry point to the workout log. It owns the cache and wires
// the schema manager and repository to invalidate it.
type Store struct {
	path      string
	cache     *Cache
	schema    *Schema
	repo      *Repository
	validator EntryValidator
	logger    *slog.Logger
}

// New builds a Store over the log file at opts.Path in v.
func New(v vault.Vault, opts Options) *Store {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheMaxSize <= 0 {
		opts.CacheMaxSize = DefaultCacheMaxSize
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Log{Logger: opts.Logger}
	}
	path := vault.Clean(opts.Path)
	logger := opts.Logger.With("component", "logstore")

	cache := NewCache(v, path, opts.Clock, opts.CacheTTL, opts.CacheMaxSize, logger)
	writeMu := &sync.Mutex{}
	schema := NewSchema(v, path, writeMu, cache.Clear, logger)
	repo := NewRepository(RepositoryConfig{
		Vault:      v,
		Path:       path,
		Schema:     schema,
		Clock:      opts.Clock,
		Notifier:   opts.Notifier,
		WriteMu:    writeMu,
		Invalidate: cache.Clear,
		Logger:     logger,
	})

	return &Store{
		path:      path,
		cache:     cache,
		schema:    schema,
		repo:      repo,
		validator: opts.Validator,
		logger:    logger,
	}
}

// Path returns the vault path of the log file.
func (s *Store) Path() string {
	return s.path
}

// GetLogData returns the logged records matching filter. A nil filter
// returns every record. The result may share memory with the cache and
// must not be modified.
func (s *Store) GetLogData(ctx context.Context, filter *FilterCriteria) ([]record.LogRecord, error) {
	recs, err := s.cache.Records(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyFilter(recs, filter), nil
}

// AddEntry validates and appends entry, returning it as stored.
func (s *Store) AddEntry(ctx context.Context, entry record.LogRecord) (record.LogRecord, error) {
	if err := s.validate("add", entry); err != nil {
		return record.LogRecord{}, err
	}
	return s.repo.AddEntry(ctx, entry)
}

// UpdateEntry validates updated and replaces the row matching original.
func (s *Store) UpdateEntry(ctx context.Context, original, updated record.LogRecord) error {
	if err := s.validate("update", updated); err != nil {
		return err
	}
	return s.repo.UpdateEntry(ctx, original, updated)
}

// DeleteEntry removes the row matching rec.
func (s *Store) DeleteEntry(ctx context.Context, rec record.LogRecord) error {
	return s.repo.DeleteEntry(ctx, rec)
}

// RenameExercise renames an exercise across the whole log and returns the
// number of rows changed.
func (s *Store) RenameExercise(ctx context.Context, oldName, newName string) (int, error) {
	return s.repo.RenameExercise(ctx, oldName, newName)
}

// Columns returns the current header.
func (s *Store) Columns(ctx context.Context) ([]string, error) {
	return s.schema.Columns(ctx)
}

// CustomColumns returns the non-standard columns in file order.
func (s *Store) CustomColumns(ctx context.Context) ([]string, error) {
	return s.schema.CustomColumns(ctx)
}

// EnsureColumnExists adds a custom column, creating the log file first if
// needed.
func (s *Store) EnsureColumnExists(ctx context.Context, name string) error {
	if err := s.repo.CreateIfMissing(ctx); err != nil {
		return err
	}
	return s.schema.EnsureColumnExists(ctx, name)
}

// CreateIfMissing creates an empty log file with the standard header.
func (s *Store) CreateIfMissing(ctx context.Context) error {
	return s.repo.CreateIfMissing(ctx)
}

// ClearCache forces the next read to re-parse the log file.
func (s *Store) ClearCache() {
	s.cache.Clear()
}

// CacheValid reports whether the next read is served from memory.
func (s *Store) CacheValid() bool {
	return s.cache.Valid()
}

// CacheStats returns cache counters.
func (s *Store) CacheStats() CacheStats {
	return s.cache.Stats()
}

// LastEntryForExercise returns the most recent entry, by timestamp, whose
// normalized exercise equals the normalized name. Among equal timestamps
// the later row wins.
func (s *Store) LastEntryForExercise(ctx context.Context, name string) (record.LogRecord, bool, error) {
	recs, err := s.cache.Records(ctx)
	if err != nil {
		return record.LogRecord{}, false, err
	}
	want := Normalize(name)
	if want == "" {
		return record.LogRecord{}, false, nil
	}

	var (
		last  record.LogRecord
		found bool
	)
	for _, rec := range recs {
		if Normalize(rec.Exercise) != want {
			continue
		}
		if !found || rec.Timestamp >= last.Timestamp {
			last, found = rec, true
		}
	}
	return last, found, nil
}

// Exercises returns the distinct exercise names in the log, compared by
// normalized form and sorted case-insensitively. The first spelling seen
// is kept.
func (s *Store) Exercises(ctx context.Context) ([]string, error) {
	recs, err := s.cache.Records(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, rec := range recs {
		key := Normalize(rec.Exercise)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, rec.Exercise)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names, nil
}

func (s *Store) validate(op string, rec record.LogRecord) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.Validate(rec); err != nil {
		return &StoreError{
			Code: ErrCodeInvalidEntry,
			Op:   op,
			Path: s.path,
			Err:  err,
		}
	}
	return nil
}

// String describes the store, for logs and the CLI.
func (s *Store) String() string {
	return fmt.Sprintf("logstore(%s)", s.path)
}
