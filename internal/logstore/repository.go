package logstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/liftlog/internal/codec"
	"github.com/roach88/liftlog/internal/notify"
	"github.com/roach88/liftlog/internal/record"
	"github.com/roach88/liftlog/internal/vault"
)

// MaxRetries is how many times AddEntry recreates a missing log file before
// giving up. The vault has no create-exclusive write, so a file can vanish
// between the existence check and the write.
const MaxRetries = 1

// errNoMatch aborts a Process transform when no row matches.
var errNoMatch = errors.New("no matching row")

// Repository performs every mutation of the log file. It always works on
// the current file text, never on cached records.
//
// All mutations hold writeMu, which the Schema shares, so a multi-step
// mutation (grow header, then write row) is never interleaved with another.
type Repository struct {
	vault      vault.Vault
	path       string
	schema     *Schema
	clock      Clock
	notifier   notify.Notifier
	writeMu    *sync.Mutex
	invalidate func()
	logger     *slog.Logger
}

// RepositoryConfig holds the collaborators of a Repository.
type RepositoryConfig struct {
	Vault      vault.Vault
	Path       string
	Schema     *Schema
	Clock      Clock
	Notifier   notify.Notifier
	WriteMu    *sync.Mutex
	Invalidate func()
	Logger     *slog.Logger
}

// NewRepository builds a Repository. Nil collaborators get defaults.
func NewRepository(cfg RepositoryConfig) *Repository {
	r := &Repository{
		vault:      cfg.Vault,
		path:       cfg.Path,
		schema:     cfg.Schema,
		clock:      cfg.Clock,
		notifier:   cfg.Notifier,
		writeMu:    cfg.WriteMu,
		invalidate: cfg.Invalidate,
		logger:     cfg.Logger,
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	if r.writeMu == nil {
		r.writeMu = &sync.Mutex{}
	}
	if r.invalidate == nil {
		r.invalidate = func() {}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.schema == nil {
		r.schema = NewSchema(r.vault, r.path, r.writeMu, r.invalidate, r.logger)
	}
	return r
}

// CreateIfMissing writes a file holding only the standard header, creating
// the parent folder first. An existing file is left alone.
func (r *Repository) CreateIfMissing(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.createIfMissingLocked(ctx)
}

func (r *Repository) createIfMissingLocked(ctx context.Context) error {
	exists, err := r.vault.Exists(ctx, r.path)
	if err != nil {
		return newWriteError("create", r.path, err)
	}
	if exists {
		return nil
	}

	if dir := vault.Parent(r.path); dir != "" {
		ok, err := r.vault.Exists(ctx, dir)
		if err != nil {
			return newWriteError("create", r.path, err)
		}
		if !ok {
			if err := r.vault.CreateFolder(ctx, dir); err != nil {
				return newWriteError("create", r.path, err)
			}
		}
	}

	header, err := codec.NewDocument().String()
	if err != nil {
		return newWriteError("create", r.path, err)
	}
	err = r.vault.Create(ctx, r.path, header)
	if errors.Is(err, vault.ErrExists) {
		return nil
	}
	if err != nil {
		return newWriteError("create", r.path, err)
	}

	r.invalidate()
	r.logger.Info("created log file", "path", r.path)
	return nil
}

// AddEntry appends entry to the log and returns the record as stored.
//
// A zero timestamp is set to the current time, an empty protocol becomes
// "standard" and a missing volume is derived from reps and weight. Custom
// field keys get columns before the row is written. If the file is missing
// it is created and the add retried, at most MaxRetries times.
func (r *Repository) AddEntry(ctx context.Context, entry record.LogRecord) (record.LogRecord, error) {
	if err := checkCustomKeys("add", r.path, entry); err != nil {
		return record.LogRecord{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	entry = r.prepare(entry)
	logger := r.logger.With("op", "add", "op_id", newOpID())
	if err := r.addEntry(ctx, logger, entry, 0); err != nil {
		return record.LogRecord{}, err
	}
	return entry, nil
}

func (r *Repository) addEntry(ctx context.Context, logger *slog.Logger, entry record.LogRecord, retryCount int) error {
	exists, err := r.vault.Exists(ctx, r.path)
	if err != nil {
		return newWriteError("add", r.path, err)
	}
	if !exists {
		return r.retryAdd(ctx, logger, entry, retryCount)
	}

	for _, key := range entry.CustomFields.Keys() {
		if err := r.schema.ensureColumnLocked(ctx, key); err != nil {
			if errors.Is(err, vault.ErrNotFound) {
				return r.retryAdd(ctx, logger, entry, retryCount)
			}
			return wrapWrite("add", r.path, err)
		}
	}

	err = r.vault.Process(ctx, r.path, func(text string) (string, error) {
		doc := codec.ParseDocument(text)
		if err := doc.Append(entry); err != nil {
			return "", err
		}
		return doc.String()
	})
	if errors.Is(err, vault.ErrNotFound) {
		return r.retryAdd(ctx, logger, entry, retryCount)
	}
	if err != nil {
		return newWriteError("add", r.path, err)
	}

	r.invalidate()
	logger.Debug("entry added",
		"path", r.path,
		"exercise", entry.Exercise,
		"timestamp", entry.Timestamp,
		"attempt", retryCount+1,
	)
	return nil
}

// retryAdd recreates the log file and tries the add again, or fails once
// the retry budget is spent.
func (r *Repository) retryAdd(ctx context.Context, logger *slog.Logger, entry record.LogRecord, retryCount int) error {
	if retryCount >= MaxRetries {
		err := newCreationError("add", r.path)
		logger.Error("log file missing after create", "path", r.path, "retries", retryCount)
		r.notifier.Notify(ctx, notify.Errorf("Failed to create log file at path: %s", r.path))
		return err
	}
	logger.Debug("log file missing, creating", "path", r.path, "retry", retryCount+1)
	if err := r.createIfMissingLocked(ctx); err != nil {
		return err
	}
	return r.addEntry(ctx, logger, entry, retryCount+1)
}

// UpdateEntry replaces the row matching original with updated, keeping the
// stored timestamp. Only that row is rewritten.
//
// Rows are matched on date, exercise and timestamp. When original has no
// timestamp, the first row with the same date, exercise, reps and weight is
// used instead.
func (r *Repository) UpdateEntry(ctx context.Context, original, updated record.LogRecord) error {
	if err := checkCustomKeys("update", r.path, updated); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	logger := r.logger.With("op", "update", "op_id", newOpID())
	updated = r.normalize(updated)

	for _, key := range updated.CustomFields.Keys() {
		if err := r.schema.ensureColumnLocked(ctx, key); err != nil {
			if errors.Is(err, vault.ErrNotFound) {
				return newNotFoundError("update", r.path)
			}
			return wrapWrite("update", r.path, err)
		}
	}

	err := r.vault.Process(ctx, r.path, func(text string) (string, error) {
		doc := codec.ParseDocument(text)
		i := findRow(doc, original)
		if i < 0 {
			return "", errNoMatch
		}
		current, err := doc.Decode(i)
		if err != nil {
			return "", err
		}
		updated.Timestamp = current.Timestamp
		if err := doc.Replace(i, updated); err != nil {
			return "", err
		}
		return doc.String()
	})
	if errors.Is(err, errNoMatch) || errors.Is(err, vault.ErrNotFound) {
		return newNotFoundError("update", r.path)
	}
	if err != nil {
		return newWriteError("update", r.path, err)
	}

	r.invalidate()
	logger.Debug("entry updated", "path", r.path, "exercise", updated.Exercise, "timestamp", updated.Timestamp)
	return nil
}

// DeleteEntry removes the one row matching rec, using the same matching
// as UpdateEntry.
func (r *Repository) DeleteEntry(ctx context.Context, rec record.LogRecord) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	logger := r.logger.With("op", "delete", "op_id", newOpID())
	err := r.vault.Process(ctx, r.path, func(text string) (string, error) {
		doc := codec.ParseDocument(text)
		i := findRow(doc, rec)
		if i < 0 {
			return "", errNoMatch
		}
		if err := doc.Remove(i); err != nil {
			return "", err
		}
		return doc.String()
	})
	if errors.Is(err, errNoMatch) || errors.Is(err, vault.ErrNotFound) {
		return newNotFoundError("delete", r.path)
	}
	if err != nil {
		return newWriteError("delete", r.path, err)
	}

	r.invalidate()
	logger.Debug("entry deleted", "path", r.path, "exercise", rec.Exercise, "timestamp", rec.Timestamp)
	return nil
}

// RenameExercise sets the exercise of every row whose exercise equals
// oldName, ignoring case and surrounding space, to the trimmed newName.
// It returns the number of rows changed. A missing file changes nothing.
func (r *Repository) RenameExercise(ctx context.Context, oldName, newName string) (int, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return 0, &StoreError{
			Code:    ErrCodeInvalidEntry,
			Op:      "rename",
			Path:    r.path,
			Message: "new exercise name is blank",
		}
	}
	oldName = strings.TrimSpace(oldName)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	logger := r.logger.With("op", "rename", "op_id", newOpID())
	count := 0
	err := r.vault.Process(ctx, r.path, func(text string) (string, error) {
		count = 0
		doc := codec.ParseDocument(text)
		for i := 0; i < doc.Len(); i++ {
			rec, err := doc.Decode(i)
			if err != nil || !strings.EqualFold(rec.Exercise, oldName) {
				continue
			}
			rec.Exercise = newName
			if err := doc.Replace(i, rec); err != nil {
				return "", err
			}
			count++
		}
		if count == 0 {
			return text, nil
		}
		return doc.String()
	})
	if errors.Is(err, vault.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, newWriteError("rename", r.path, err)
	}

	r.invalidate()
	logger.Debug("exercise renamed", "path", r.path, "from", oldName, "to", newName, "rows", count)
	return count, nil
}

// prepare fills the fields AddEntry derives for the caller.
func (r *Repository) prepare(entry record.LogRecord) record.LogRecord {
	entry = r.normalize(entry)
	if entry.Timestamp == 0 {
		entry.Timestamp = r.clock.Now().UnixMilli()
	}
	return entry
}

// normalize trims identity fields and custom keys, defaults the protocol
// and derives volume.
func (r *Repository) normalize(entry record.LogRecord) record.LogRecord {
	entry = entry.Clone()
	entry.Date = strings.TrimSpace(entry.Date)
	entry.Exercise = strings.TrimSpace(entry.Exercise)
	entry.Protocol = entry.Protocol.OrDefault()
	if len(entry.CustomFields) > 0 {
		trimmed := make(record.Fields, len(entry.CustomFields))
		for k, v := range entry.CustomFields {
			if v != nil {
				trimmed[strings.TrimSpace(k)] = v
			}
		}
		entry.CustomFields = trimmed
	}
	return entry.WithDerivedVolume()
}

// checkCustomKeys rejects custom fields whose key is blank or names a
// standard column. Such a value has no cell of its own and would be lost.
func checkCustomKeys(op, path string, entry record.LogRecord) error {
	var bad []string
	for k := range entry.CustomFields {
		key := strings.TrimSpace(k)
		switch {
		case key == "":
			bad = append(bad, "custom field key is blank")
		case record.IsStandardColumn(key):
			bad = append(bad, fmt.Sprintf("custom field %q is a standard column", key))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	slices.Sort(bad)
	return &StoreError{
		Code:    ErrCodeInvalidEntry,
		Op:      op,
		Path:    path,
		Message: strings.Join(bad, "; "),
	}
}

// findRow returns the index of the row matching target, or -1.
//
// A target with a timestamp matches only the row carrying that timestamp.
// Reps and weight identify the row only when the target has no timestamp,
// so a stale or repeated request never lands on a neighbouring set.
func findRow(doc *codec.Document, target record.LogRecord) int {
	date := strings.TrimSpace(target.Date)
	exercise := strings.TrimSpace(target.Exercise)

	for i := 0; i < doc.Len(); i++ {
		rec, err := doc.Decode(i)
		if err != nil || rec.Date != date || rec.Exercise != exercise {
			continue
		}
		if target.Timestamp != 0 {
			if rec.Timestamp == target.Timestamp {
				return i
			}
			continue
		}
		if equalInt(rec.Reps, target.Reps) && equalFloat(rec.Weight, target.Weight) {
			return i
		}
	}
	return -1
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// wrapWrite passes StoreErrors through and wraps anything else.
func wrapWrite(op, path string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return newWriteError(op, path, err)
}

func newOpID() string {
	return uuid.Must(uuid.NewV7()).String()
}

