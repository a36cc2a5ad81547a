package vault

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Vault backed by a map. It is safe for concurrent
// use and intended for tests.
type Memory struct {
	mu      sync.Mutex
	docs    map[string]string
	folders map[string]bool
}

// NewMemory returns an empty in-memory vault.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]string), folders: make(map[string]bool)}
}

// Put stores content at p, replacing any existing document.
func (m *Memory) Put(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[Clean(p)] = content
}

// Get returns the document at p and whether it exists.
func (m *Memory) Get(p string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.docs[Clean(p)]
	return s, ok
}

// Exists implements Vault.
func (m *Memory) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Clean(p)
	_, ok := m.docs[key]
	return ok || m.folders[key], nil
}

// Read implements Vault.
func (m *Memory) Read(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.docs[Clean(p)]
	if !ok {
		return "", fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	return s, nil
}

// Create implements Vault.
func (m *Memory) Create(ctx context.Context, p, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Clean(p)
	if _, ok := m.docs[key]; ok {
		return fmt.Errorf("create %s: %w", p, ErrExists)
	}
	m.docs[key] = content
	return nil
}

// Process implements Vault.
func (m *Memory) Process(ctx context.Context, p string, fn TransformFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Clean(p)
	s, ok := m.docs[key]
	if !ok {
		return fmt.Errorf("process %s: %w", p, ErrNotFound)
	}
	out, err := fn(s)
	if err != nil {
		return err
	}
	m.docs[key] = out
	return nil
}

// CreateFolder implements Vault.
func (m *Memory) CreateFolder(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for dir := Clean(p); dir != ""; dir = Parent(dir) {
		m.folders[dir] = true
	}
	return nil
}
