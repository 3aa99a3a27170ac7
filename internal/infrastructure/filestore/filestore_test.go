package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func newTestLog(t *testing.T) *Log[entry] {
	t.Helper()
	return NewLog[entry](filepath.Join(t.TempDir(), "nested", "entries.jsonl"), nil)
}

func TestLogAppendAndReadAll(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	records, err := log.ReadAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	for i := 1; i <= 5; i++ {
		require.NoError(t, log.Append(ctx, entry{ID: fmt.Sprintf("e%d", i), Value: i}))
	}

	records, err = log.ReadAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "e1", records[0].ID)
	assert.Equal(t, "e5", records[4].ID)

	last, err := log.ReadAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []entry{{ID: "e4", Value: 4}, {ID: "e5", Value: 5}}, last)
}

func TestLogSkipsBlankAndMalformedLines(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	require.NoError(t, log.Append(ctx, entry{ID: "a", Value: 1}))

	f, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n   \nnot json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(ctx, entry{ID: "b", Value: 2}))

	records, err := log.ReadAll(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []entry{{ID: "a", Value: 1}, {ID: "b", Value: 2}}, records)
}

func TestLogTruncatedTailIsSkippedAndRepaired(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	require.NoError(t, log.Append(ctx, entry{ID: "a", Value: 1}))
	require.NoError(t, log.Append(ctx, entry{ID: "b", Value: 2}))

	// Simulate a crash in the middle of writing the third record.
	f, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"c","val`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := log.ReadAll(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []entry{{ID: "a", Value: 1}, {ID: "b", Value: 2}}, records)

	require.NoError(t, log.Append(ctx, entry{ID: "d", Value: 4}))

	records, err = log.ReadAll(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []entry{{ID: "a", Value: 1}, {ID: "b", Value: 2}, {ID: "d", Value: 4}}, records)
}

func TestLogConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	const writers = 64
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- log.Append(ctx, entry{ID: fmt.Sprintf("w%d", i), Value: i})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := log.ReadAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, writers)

	seen := make(map[string]bool, writers)
	for _, rec := range records {
		assert.Equal(t, fmt.Sprintf("w%d", rec.Value), rec.ID)
		seen[rec.ID] = true
	}
	assert.Len(t, seen, writers)
}

func TestLogAppendUnlessAppendsOnce(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	const callers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	appended := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := log.AppendUnless(ctx, entry{ID: "charge-1", Value: i}, func(e entry) bool {
				return e.ID == "charge-1"
			})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				appended++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, appended)
	records, err := log.ReadAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLogScanStopsEarly(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, log.Append(ctx, entry{ID: fmt.Sprintf("e%d", i), Value: i}))
	}

	visited := 0
	err := log.Scan(ctx, func(e entry) bool {
		visited++
		return e.Value < 3
	})
	require.NoError(t, err)
	assert.Equal(t, 4, visited)
}

func TestLockHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "held.jsonl")
	held, err := openLocked(context.Background(), path, os.O_RDWR|os.O_CREATE)
	require.NoError(t, err)
	defer held.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	log := NewLog[entry](path, nil)
	err = log.Append(ctx, entry{ID: "x"})
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.log")

	lines, err := Tail(ctx, path, 3)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\nfive"), 0o644))
	lines, err = Tail(ctx, path, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"three\n", "four\n", "five"}, lines)
}

type settingsDoc struct {
	Price   int    `json:"price"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

func TestDocumentDefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument(filepath.Join(t.TempDir(), "doc.json"), func() settingsDoc {
		return settingsDoc{Price: 10, Enabled: true}
	})

	v, err := doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, settingsDoc{Price: 10, Enabled: true}, v)

	require.NoError(t, os.WriteFile(doc.Path(), []byte(`{"label":"x","unknown":1}`), 0o644))
	v, err = doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, settingsDoc{Price: 10, Label: "x", Enabled: true}, v)

	v, err = doc.Update(ctx, func(s *settingsDoc) error {
		s.Price = 42
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v.Price)

	reread, err := doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, settingsDoc{Price: 42, Label: "x", Enabled: true}, reread)
}

func TestDocumentUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument[settingsDoc](filepath.Join(t.TempDir(), "doc.json"), nil)
	require.NoError(t, doc.Write(ctx, settingsDoc{Price: 1}))

	_, err := doc.Update(ctx, func(s *settingsDoc) error {
		s.Price = 2
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	v, err := doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Price)
}

func TestDocumentConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument[settingsDoc](filepath.Join(t.TempDir(), "counter.json"), nil)

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := doc.Update(ctx, func(s *settingsDoc) error {
				s.Price++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers, v.Price)
}
