package testutil

import (
	"context"
	"sync/atomic"

	"github.com/roach88/liftlog/internal/vault"
)

// CountingVault wraps a vault and counts calls per operation, so tests can
// assert how much I/O an operation performed.
type CountingVault struct {
	vault.Vault

	exists  atomic.Int64
	reads   atomic.Int64
	creates atomic.Int64
	process atomic.Int64
	folders atomic.Int64
}

// VaultCalls is a snapshot of CountingVault counters.
type VaultCalls struct {
	Exists       int64
	Reads        int64
	Creates      int64
	Processes    int64
	CreateFolder int64
}

// NewCountingVault wraps inner.
func NewCountingVault(inner vault.Vault) *CountingVault {
	return &CountingVault{Vault: inner}
}

// Calls returns the counters.
func (v *CountingVault) Calls() VaultCalls {
	return VaultCalls{
		Exists:       v.exists.Load(),
		Reads:        v.reads.Load(),
		Creates:      v.creates.Load(),
		Processes:    v.process.Load(),
		CreateFolder: v.folders.Load(),
	}
}

func (v *CountingVault) Exists(ctx context.Context, p string) (bool, error) {
	v.exists.Add(1)
	return v.Vault.Exists(ctx, p)
}

func (v *CountingVault) Read(ctx context.Context, p string) (string, error) {
	v.reads.Add(1)
	return v.Vault.Read(ctx, p)
}

func (v *CountingVault) Create(ctx context.Context, p, content string) error {
	v.creates.Add(1)
	return v.Vault.Create(ctx, p, content)
}

func (v *CountingVault) Process(ctx context.Context, p string, fn vault.TransformFunc) error {
	v.process.Add(1)
	return v.Vault.Process(ctx, p, fn)
}

func (v *CountingVault) CreateFolder(ctx context.Context, p string) error {
	v.folders.Add(1)
	return v.Vault.CreateFolder(ctx, p)
}

// VanishingVault accepts every create but never reports the document as
// existing, modelling a backing store whose writes do not become visible.
type VanishingVault struct {
	*CountingVault
}

// NewVanishingVault wraps an empty in-memory vault.
func NewVanishingVault() *VanishingVault {
	return &VanishingVault{CountingVault: NewCountingVault(vault.NewMemory())}
}

func (v *VanishingVault) Exists(ctx context.Context, p string) (bool, error) {
	v.exists.Add(1)
	return false, nil
}

func (v *VanishingVault) Process(ctx context.Context, p string, fn vault.TransformFunc) error {
	v.process.Add(1)
	return vault.ErrNotFound
}
