package logstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftlog/internal/entrycheck"
	"github.com/roach88/liftlog/internal/notify"
	"github.com/roach88/liftlog/internal/record"
	"github.com/roach88/liftlog/internal/testutil"
	"github.com/roach88/liftlog/internal/vault"
)

func TestAddEntry_CreatesMissingFile(t *testing.T) {
	f := newFixture(t)

	stored, err := f.store.AddEntry(f.ctx, record.LogRecord{
		Date:     "2024-03-01",
		Exercise: "Bench Press",
		Reps:     record.Int(8),
		Weight:   record.Float(100),
	})
	require.NoError(t, err)

	assert.Equal(t, testutil.Epoch.UnixMilli(), stored.Timestamp)
	assert.Equal(t, record.ProtocolStandard, stored.Protocol)
	require.NotNil(t, stored.Volume)
	assert.Equal(t, 800.0, *stored.Volume)

	assert.Equal(t, csvText("2024-03-01,Bench Press,8,100,800,,,1709280000000,,standard"), f.file(t))
	assert.Equal(t, int64(1), f.vault.Calls().Creates)
	assert.Empty(t, f.notices.Notices())
}

func TestAddEntry_RetryThenFail(t *testing.T) {
	v := testutil.NewVanishingVault()
	notices := &notify.Recorder{}
	s := New(v, Options{
		Path:     testPath,
		Clock:    testutil.NewFakeClock(),
		Logger:   discardLogger(),
		Notifier: notices,
	})

	_, err := s.AddEntry(context.Background(), record.LogRecord{Date: "2024-03-01", Exercise: "Squat"})
	require.Error(t, err)

	assert.True(t, IsCreationError(err))
	assert.Contains(t, err.Error(), testPath)
	assert.Equal(t, int64(1), v.Calls().Creates, "exactly one create attempt")

	got := notices.Notices()
	require.Len(t, got, 1)
	assert.Equal(t, notify.LevelError, got[0].Level)
	assert.Contains(t, got[0].Message, testPath)
}

func TestAddEntry_AddsCustomColumnsInSortedOrder(t *testing.T) {
	f := newFixture(t, "2024-03-01,Bench Press,8,100,800,,,1,,standard")

	_, err := f.store.AddEntry(f.ctx, record.LogRecord{
		Date:     "2024-03-02",
		Exercise: "Running",
		CustomFields: record.Fields{
			"duration": record.Number(1800),
			"distance": record.Number(5.2),
		},
	})
	require.NoError(t, err)

	assert.Equal(t,
		stdHeader+",distance,duration\n"+
			"2024-03-01,Bench Press,8,100,800,,,1,,standard,,\n"+
			"2024-03-02,Running,,,,,,1709280000000,,standard,5.2,1800\n",
		f.file(t))

	recs, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Nil(t, recs[0].CustomFields)
	assert.Equal(t, record.Fields{"distance": record.Number(5.2), "duration": record.Number(1800)}, recs[1].CustomFields)
}

func TestAddEntry_KeepsExplicitTimestamp(t *testing.T) {
	f := newFixture(t)

	stored, err := f.store.AddEntry(f.ctx, record.LogRecord{Date: "d", Exercise: "e", Timestamp: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(42), stored.Timestamp)
}

func TestAddEntry_ConcurrentWritersDoNotLoseRows(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateIfMissing(f.ctx))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.store.AddEntry(f.ctx, record.LogRecord{
				Date:         "2024-03-01",
				Exercise:     fmt.Sprintf("Exercise %d", i),
				CustomFields: record.Fields{fmt.Sprintf("metric%d", i%4): record.Number(float64(i))},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	recs, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, recs, writers, "every row must parse against the final header")

	custom, err := f.store.CustomColumns(f.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"metric0", "metric1", "metric2", "metric3"}, custom)
}

func TestUpdateEntry_RewritesOnlyMatchingLine(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,Squat,5,100.50,502.5,,Legs,1,,standard",
		"2024-03-01,Bench Press,8,100,800,,Push,2,,standard",
	)

	original := record.LogRecord{Date: "2024-03-01", Exercise: "Bench Press", Timestamp: 2}
	updated := record.LogRecord{
		Date:      "2024-03-01",
		Exercise:  "Bench Press",
		Reps:      record.Int(10),
		Weight:    record.Float(100),
		Workout:   "Push",
		Timestamp: 999,
	}
	require.NoError(t, f.store.UpdateEntry(f.ctx, original, updated))

	assert.Equal(t, csvText(
		"2024-03-01,Squat,5,100.50,502.5,,Legs,1,,standard",
		"2024-03-01,Bench Press,10,100,1000,,Push,2,,standard",
	), f.file(t), "untouched rows keep their exact text and the timestamp is preserved")
}

func TestUpdateEntry_FallsBackToRepsAndWeight(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,Squat,5,100,500,,Legs,,,standard",
		"2024-03-01,Squat,3,120,360,,Legs,,,standard",
	)

	original := record.LogRecord{Date: "2024-03-01", Exercise: "Squat", Reps: record.Int(3), Weight: record.Float(120)}
	updated := original.Clone()
	updated.Notes = "top set"
	updated.Volume = nil

	require.NoError(t, f.store.UpdateEntry(f.ctx, original, updated))
	assert.Equal(t, csvText(
		"2024-03-01,Squat,5,100,500,,Legs,,,standard",
		"2024-03-01,Squat,3,120,360,,,,top set,standard",
	), f.file(t))
}

func TestUpdateEntry_AddsNewCustomColumn(t *testing.T) {
	f := newFixture(t, "2024-03-01,Squat,5,100,500,,Legs,7,,standard")

	original := record.LogRecord{Date: "2024-03-01", Exercise: "Squat", Timestamp: 7}
	updated := original.Clone()
	updated.CustomFields = record.Fields{"rpe": record.Number(8.5)}

	require.NoError(t, f.store.UpdateEntry(f.ctx, original, updated))
	assert.Equal(t, stdHeader+",rpe\n2024-03-01,Squat,,,,,,7,,standard,8.5\n", f.file(t))
}

func TestUpdateEntry_NotFound(t *testing.T) {
	text := "2024-03-01,Squat,5,100,500,,Legs,1,,standard"
	f := newFixture(t, text)

	err := f.store.UpdateEntry(f.ctx,
		record.LogRecord{Date: "2024-03-02", Exercise: "Squat", Timestamp: 1},
		record.LogRecord{Date: "2024-03-02", Exercise: "Squat"},
	)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.Equal(t, csvText(text), f.file(t))
}

func TestUpdateEntry_MissingFileIsNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.store.UpdateEntry(f.ctx, record.LogRecord{Date: "d", Exercise: "e"}, record.LogRecord{Date: "d", Exercise: "e"})
	assert.True(t, IsNotFoundError(err))
}

func TestDeleteEntry(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,Squat,5,100,500,,Legs,1,,standard",
		"2024-03-01,Squat,5,100,500,,Legs,2,,standard",
		"2024-03-01,Bench Press,8,100,800,,Push,3,,standard",
	)

	require.NoError(t, f.store.DeleteEntry(f.ctx, record.LogRecord{Date: "2024-03-01", Exercise: "Squat", Timestamp: 2}))
	assert.Equal(t, csvText(
		"2024-03-01,Squat,5,100,500,,Legs,1,,standard",
		"2024-03-01,Bench Press,8,100,800,,Push,3,,standard",
	), f.file(t))

	err := f.store.DeleteEntry(f.ctx, record.LogRecord{Date: "2024-03-01", Exercise: "Squat", Timestamp: 2})
	assert.True(t, IsNotFoundError(err))
}

func TestDeleteEntry_RepeatedDeleteLeavesOtherSets(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,Squat,8,100,800,,Legs,1000,,standard",
		"2024-03-01,Squat,8,100,800,,Legs,2000,,standard",
	)
	target := record.LogRecord{
		Date: "2024-03-01", Exercise: "Squat",
		Reps: record.Int(8), Weight: record.Float(100), Timestamp: 1000,
	}

	require.NoError(t, f.store.DeleteEntry(f.ctx, target))
	after := csvText("2024-03-01,Squat,8,100,800,,Legs,2000,,standard")
	assert.Equal(t, after, f.file(t))

	err := f.store.DeleteEntry(f.ctx, target)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.Equal(t, after, f.file(t), "a timestamped target never matches on reps and weight")
}

func TestUpdateEntry_StaleTimestampIsNotFound(t *testing.T) {
	text := "2024-03-01,Squat,8,100,800,,Legs,2000,,standard"
	f := newFixture(t, text)

	original := record.LogRecord{
		Date: "2024-03-01", Exercise: "Squat",
		Reps: record.Int(8), Weight: record.Float(100), Timestamp: 1000,
	}
	updated := original.Clone()
	updated.Notes = "should not land"

	err := f.store.UpdateEntry(f.ctx, original, updated)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.Equal(t, csvText(text), f.file(t))
}

func TestWrites_RejectReservedCustomKeys(t *testing.T) {
	tests := []struct {
		name   string
		fields record.Fields
		want   string
	}{
		{"notes", record.Fields{"notes": record.Text("lost?")}, `"notes" is a standard column`},
		{"weight", record.Fields{"weight": record.Number(5)}, `"weight" is a standard column`},
		{"padded", record.Fields{" date ": record.Text("x")}, `"date" is a standard column`},
		{"blank", record.Fields{"  ": record.Number(1)}, "custom field key is blank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "2024-03-01,Run,,,,,,7,,standard"
			f := newFixture(t, text)

			_, err := f.store.AddEntry(f.ctx, record.LogRecord{
				Date: "2024-03-01", Exercise: "Run", CustomFields: tt.fields,
			})
			require.Error(t, err)
			assert.True(t, IsInvalidError(err))
			assert.Contains(t, err.Error(), tt.want)

			err = f.store.UpdateEntry(f.ctx,
				record.LogRecord{Date: "2024-03-01", Exercise: "Run", Timestamp: 7},
				record.LogRecord{Date: "2024-03-01", Exercise: "Run", CustomFields: tt.fields},
			)
			require.Error(t, err)
			assert.True(t, IsInvalidError(err))

			assert.Equal(t, csvText(text), f.file(t))
			assert.Zero(t, f.vault.Calls().Processes, "rejected before any write")
		})
	}
}

func TestRenameExercise(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,Bench Press,8,100,800,,Push,1,,standard",
		"2024-03-01,Squat,5,140,700,,Legs,2,,standard",
		"2024-03-02,bench press ,6,105,630,,Push,3,,standard",
	)

	n, err := f.store.RenameExercise(f.ctx, "Bench Press", "  Chest Press ")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Chest Press", recs[0].Exercise)
	assert.Equal(t, "Squat", recs[1].Exercise)
	assert.Equal(t, "Chest Press", recs[2].Exercise)

	assert.Contains(t, f.file(t), "2024-03-01,Squat,5,140,700,,Legs,2,,standard\n")
}

func TestRenameExercise_NoMatchLeavesFile(t *testing.T) {
	text := "2024-03-01,Squat,5,140,700,,Legs,2,,standard"
	f := newFixture(t, text)

	n, err := f.store.RenameExercise(f.ctx, "Deadlift", "Conventional Deadlift")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, csvText(text), f.file(t))
}

func TestRenameExercise_Edges(t *testing.T) {
	f := newFixture(t)

	n, err := f.store.RenameExercise(f.ctx, "Squat", "Back Squat")
	require.NoError(t, err, "missing file renames nothing")
	assert.Equal(t, 0, n)

	_, err = f.store.RenameExercise(f.ctx, "Squat", "   ")
	assert.True(t, IsInvalidError(err))
}

func TestStore_ValidatorRejectsBeforeWriting(t *testing.T) {
	v, err := entrycheck.New()
	require.NoError(t, err)
	f := newFixtureWith(t, Options{Validator: v})

	_, err = f.store.AddEntry(f.ctx, record.LogRecord{Date: "2024-03-01", Exercise: "Squat", Reps: record.Int(-3)})
	require.Error(t, err)
	assert.True(t, IsInvalidError(err))
	assert.Equal(t, testutil.VaultCalls{}, f.vault.Calls())
}

func TestStore_MutationSequenceGolden(t *testing.T) {
	f := newFixture(t)

	bench, err := f.store.AddEntry(f.ctx, record.LogRecord{
		Date:     "2024-03-01",
		Exercise: "Bench Press",
		Reps:     record.Int(8),
		Weight:   record.Float(100),
		Origin:   "[[Push Day]]",
		Workout:  "Push Day",
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	run, err := f.store.AddEntry(f.ctx, record.LogRecord{
		Date:     "2024-03-01",
		Exercise: "Running",
		CustomFields: record.Fields{
			"distance": record.Number(5.2),
			"duration": record.Number(1800),
		},
	})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.store.AddEntry(f.ctx, record.LogRecord{
		Date:     "2024-03-01",
		Exercise: "squat",
		Reps:     record.Int(5),
		Weight:   record.Float(140),
		Workout:  "Legs",
		Notes:    "belt, sleeves",
	})
	require.NoError(t, err)

	heavier := bench.Clone()
	heavier.Reps = record.Int(10)
	heavier.Volume = nil
	require.NoError(t, f.store.UpdateEntry(f.ctx, bench, heavier))

	n, err := f.store.RenameExercise(f.ctx, "Squat", "Back Squat")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, f.store.DeleteEntry(f.ctx, run))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "mutation_sequence", []byte(f.file(t)))
}

func TestLastEntryForExercise(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,Bench Press,8,100,800,,Push,300,,standard",
		"2024-03-02,bench  press,6,110,660,,Push,500,,standard",
		"2024-03-03,Squat,5,140,700,,Legs,900,,standard",
		"2024-02-28,Bench Press,10,90,900,,Push,100,,standard",
	)

	last, ok, err := f.store.LastEntryForExercise(f.ctx, "[[Bench Press]]")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(500), last.Timestamp)

	_, ok, err = f.store.LastEntryForExercise(f.ctx, "Deadlift")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExercises(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,squat,5,140,700,,Legs,1,,standard",
		"2024-03-01,Bench Press,8,100,800,,Push,2,,standard",
		"2024-03-02,Squat,5,145,725,,Legs,3,,standard",
		"2024-03-02,Arnold Press,10,20,200,,Push,4,,standard",
	)

	names, err := f.store.Exercises(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Arnold Press", "Bench Press", "squat"}, names)
}

func TestStoreError_Message(t *testing.T) {
	err := newCreationError("add", "Log/a.csv")
	assert.Equal(t, "CREATION_FAILED: add: failed to create log file at path: Log/a.csv", err.Error())
	assert.Equal(t, ErrCodeCreationFailed, CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.True(t, strings.HasPrefix(newWriteError("add", "p", vault.ErrExists).Error(), "WRITE_FAILED: add: "))
}
