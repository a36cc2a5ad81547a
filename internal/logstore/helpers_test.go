package logstore

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/liftlog/internal/notify"
	"github.com/roach88/liftlog/internal/testutil"
	"github.com/roach88/liftlog/internal/vault"
)

const (
	testPath  = "Log/workouts.csv"
	stdHeader = "date,exercise,reps,weight,volume,origin,workout,timestamp,notes,protocol"
)

type fixture struct {
	mem     *vault.Memory
	vault   *testutil.CountingVault
	clock   *testutil.FakeClock
	notices *notify.Recorder
	store   *Store
	ctx     context.Context
	opts    Options
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds a Store over an in-memory vault. If lines are given the
// log file is seeded with the standard header followed by them.
func newFixture(t *testing.T, lines ...string) *fixture {
	t.Helper()
	return newFixtureWith(t, Options{}, lines...)
}

func newFixtureWith(t *testing.T, opts Options, lines ...string) *fixture {
	t.Helper()
	f := &fixture{
		mem:     vault.NewMemory(),
		clock:   testutil.NewFakeClock(),
		notices: &notify.Recorder{},
		ctx:     context.Background(),
	}
	f.vault = testutil.NewCountingVault(f.mem)
	if lines != nil {
		f.mem.Put(testPath, csvText(lines...))
	}

	opts.Path = testPath
	opts.Clock = f.clock
	opts.Logger = discardLogger()
	opts.Notifier = f.notices
	f.opts = opts
	f.store = New(f.vault, opts)
	return f
}

// file returns the current log file text.
func (f *fixture) file(t *testing.T) string {
	t.Helper()
	text, ok := f.mem.Get(testPath)
	require.True(t, ok, "log file should exist")
	return text
}

func csvText(lines ...string) string {
	return stdHeader + "\n" + strings.Join(lines, "\n") + "\n"
}
