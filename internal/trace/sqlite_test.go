package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestRecordFlushList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.Record(Event{Kind: KindStore, SimTime: 0, ChunkID: "red", Slots: "{color: red}", Activation: 2.3})
	s.Record(Event{Kind: KindRecall, SimTime: 10, ChunkID: "red", Query: "[color=red]", Latency: 0.4})

	// Nothing is written before Flush.
	got, err := s.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Flush(ctx))

	got, err = s.List(ctx, ListParams{RunID: s.RunID()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Seq)
	assert.Equal(t, KindStore, got[0].Kind)
	assert.Equal(t, "{color: red}", got[0].Slots)
	assert.Empty(t, got[0].Query)
	assert.Equal(t, KindRecall, got[1].Kind)
	assert.InDelta(t, 0.4, got[1].Latency, 1e-12)
	assert.NotEmpty(t, got[1].ID)
	assert.Equal(t, s.RunID(), got[1].RunID)

	recalls, err := s.List(ctx, ListParams{Kind: KindRecall})
	require.NoError(t, err)
	assert.Len(t, recalls, 1)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	s.Record(Event{Kind: KindStore, SimTime: 0})
	s.Record(Event{Kind: KindRecall, SimTime: 1, Latency: 1})
	s.Record(Event{Kind: KindRecallFailed, SimTime: 5, Latency: 3})

	st, err := s.Stats(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalEvents)
	require.Len(t, st.Runs, 1)
	assert.Equal(t, 1, st.Runs[0].Recalls)
	assert.Equal(t, 1, st.Runs[0].Failures)
	assert.InDelta(t, 2.0, st.Runs[0].MeanLatency, 1e-12)
	assert.InDelta(t, 0.5, st.Runs[0].RecallSuccess, 1e-12)
	assert.Equal(t, 5.0, st.Runs[0].LastSimTime)
	assert.Len(t, st.Kinds, 3)
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	s.Record(Event{Kind: KindMerge, ChunkID: "c"})
	st, err := s.Stats(ctx, MemoryPath)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalEvents)
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Record(Event{Kind: KindStore})
	c.Record(Event{Kind: KindRecall})
	evs := c.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, 2, evs[1].Seq)
	var _ Recorder = &c
	var _ Recorder = Nop{}
	var _ Recorder = (*SQLiteStore)(nil)
}

func TestStats_ReportsScanErrors(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	// A kind the schema would normally reject cannot be scanned into a Kind.
	_, err := s.db.ExecContext(ctx, `
		DROP TABLE events;
		CREATE TABLE events (
			id TEXT, run_id TEXT, seq INTEGER, kind TEXT, sim_time REAL,
			chunk_id TEXT, slots TEXT, query TEXT, activation REAL, latency REAL,
			created_at TEXT
		);
		INSERT INTO events (id, run_id, seq, kind, sim_time, latency) VALUES ('e1', 'r1', 1, NULL, 0, 0);`)
	require.NoError(t, err)

	_, err = s.Stats(ctx, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan kind stats")
}

func TestStats_CanceledContext(t *testing.T) {
	s, path := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Stats(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
