// Package vault provides the document storage the log store is written
// against.
//
// A vault stores whole text documents addressed by slash-separated paths.
// The only write primitive beyond Create is Process, an atomic
// read-transform-write of one document. There is no create-exclusive
// transform: callers that need a document to exist must check, create and
// retry.
//
// Implementations:
//   - FS: a directory on disk, atomic via per-path locks and rename
//   - SQLite: one table of documents, atomic via transactions
//   - Memory: a map, for tests
package vault

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrExists is returned by Create when the document already exists.
	ErrExists = errors.New("document already exists")
)

// TransformFunc maps the current document text to its replacement.
// Returning an error aborts the write.
type TransformFunc func(content string) (string, error)

// Vault is the storage API consumed by the log store.
type Vault interface {
	// Exists reports whether a document or folder exists at p.
	Exists(ctx context.Context, p string) (bool, error)

	// Read returns the whole document text.
	Read(ctx context.Context, p string) (string, error)

	// Create writes a new document. It fails with ErrExists if p exists.
	Create(ctx context.Context, p, content string) error

	// Process atomically reads p, applies fn and writes the result.
	// It fails with ErrNotFound if p does not exist.
	Process(ctx context.Context, p string, fn TransformFunc) error

	// CreateFolder creates a folder and its parents. Existing folders are
	// not an error.
	CreateFolder(ctx context.Context, p string) error
}

// Clean normalises a document path: forward slashes, no leading slash,
// no "." or ".." segments left unresolved.
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Parent returns the folder containing p, or "" for top-level documents.
func Parent(p string) string {
	dir := path.Dir(Clean(p))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
