package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/think/internal/buffer"
	"github.com/rcliao/think/internal/model"
	"github.com/rcliao/think/internal/query"
	"github.com/rcliao/think/internal/trace"
)

func TestRecall_BestMatch(t *testing.T) {
	m, sched := newTestMemory(t, DefaultConfig())
	m.StoreSlots(model.Slots{"name": "a", "color": "red"})
	want := m.StoreSlots(model.Slots{"name": "b", "color": "blue"})

	got, err := m.Recall(context.Background(), query.New().Eq("color", "blue"))
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.InDelta(t, 0.1, sched.Now(), eps)
	assert.Equal(t, buffer.Free, m.Buffer().State())
}

func TestRecall_TieKeepsFirstStored(t *testing.T) {
	m, _ := newTestMemory(t, DefaultConfig())
	first := m.StoreSlots(model.Slots{"name": "a", "kind": "x"})
	m.StoreSlots(model.Slots{"name": "b", "kind": "x"})

	got, err := m.Recall(context.Background(), query.New().Eq("kind", "x"))
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestRecall_MissHasThresholdLatency(t *testing.T) {
	col := &trace.Collector{}
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 0.5
	m, sched := newTestMemory(t, cfg, WithRecorder(col))
	m.StoreSlots(model.Slots{"name": "a"})

	got, err := m.Recall(context.Background(), query.New().Eq("name", "zzz"))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.InDelta(t, 0.60653066, sched.Now(), 1e-6)

	evs := col.Events()
	require.NotEmpty(t, evs)
	assert.Equal(t, trace.KindRecallFailed, evs[len(evs)-1].Kind)
}

func TestRecall_ThresholdIsStrictForBestMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = model.InitialActivation
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"name": "a", "x": 10})

	got, err := m.Recall(context.Background(), query.New().Eq("name", "a"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecall_ThresholdIsInclusiveForBlend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = model.InitialActivation
	cfg.UseBlending = true
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"kind": "n", "x": 10})
	m.StoreSlots(model.Slots{"kind": "n", "x": 21})

	got, err := m.Recall(context.Background(), query.New().Eq("kind", "n"))
	require.NoError(t, err)
	require.NotNil(t, got)
	// Both weights are zero, so the contributors count equally.
	assert.Equal(t, 16, got.Value("x"))
}

func TestRecall_BlendRoundsIntegers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseBlending = true
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"kind": "n", "x": 10})
	m.StoreSlots(model.Slots{"kind": "n", "x": 20})

	got, err := m.Recall(context.Background(), query.New().Eq("kind", "n"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 15, got.Value("x"))
	assert.Equal(t, "n", got.Value("kind"))
}

func TestRecall_BlendKeepsContinuous(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseBlending = true
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"kind": "n", "x": 10.0})
	m.StoreSlots(model.Slots{"kind": "n", "x": 21})

	got, err := m.Recall(context.Background(), query.New().Eq("kind", "n"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 15.5, got.Value("x"), eps)
}

func TestRecall_BlendWeightsByMargin(t *testing.T) {
	cfg := optimized()
	cfg.UseBlending = true
	cfg.RetrievalThreshold = -10
	m, sched := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"kind": "n", "x": 0.0, "label": "low"})
	strong := m.StoreSlots(model.Slots{"kind": "n", "x": 100.0, "label": "high"}, WithBoost(20))
	sched.RunUntil(5)

	got, err := m.Recall(context.Background(), query.New().Eq("kind", "n"))
	require.NoError(t, err)
	require.NotNil(t, got)

	x, ok := got.Value("x").(float64)
	require.True(t, ok)
	assert.Greater(t, x, 50.0)
	assert.Less(t, x, 100.0)
	assert.Equal(t, "high", got.Value("label"))
	assert.Same(t, strong, got.BlendedFrom)
	assert.Equal(t, 21, got.UseCount)
	assert.Equal(t, 22, strong.UseCount)
}

func TestRecall_BlendReinforcesBestContributor(t *testing.T) {
	cfg := optimized()
	cfg.UseBlending = true
	cfg.RetrievalThreshold = -10
	m, _ := newTestMemory(t, cfg)
	weak := m.StoreSlots(model.Slots{"kind": "n", "x": 1})
	strong := m.StoreSlots(model.Slots{"kind": "n", "x": 3}, WithBoost(4))

	_, err := m.Recall(context.Background(), query.New().Eq("kind", "n"))
	require.NoError(t, err)

	assert.Equal(t, 1, weak.UseCount)
	assert.Equal(t, 6, strong.UseCount)
	assert.Equal(t, 2, m.Len())
}

func TestRecall_BlendMiss(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseBlending = true
	m, _ := newTestMemory(t, cfg)

	got, err := m.Recall(context.Background(), query.New().Eq("kind", "n"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecall_ReinforcesOnCompletion(t *testing.T) {
	m, sched := newTestMemory(t, optimized())
	c := m.StoreSlots(model.Slots{"name": "a"})

	require.NoError(t, m.StartRecall(query.New().Eq("name", "a")))
	assert.Equal(t, 1, c.UseCount)

	sched.Run()
	assert.Equal(t, 2, c.UseCount)

	got, err := m.GetRecalled(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestRecall_PartialMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchScale = 2
	m, _ := newTestMemory(t, cfg, WithDistances(query.Distances{"hue": query.Circular(360)}))
	m.StoreSlots(model.Slots{"name": "red", "hue": 0})
	m.StoreSlots(model.Slots{"name": "green", "hue": 120})
	m.StoreSlots(model.Slots{"name": "blue", "hue": 240})

	got, err := m.Recall(context.Background(), query.New().Eq("hue", 350))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "red", got.ID)
}

func TestRecall_PartialMatchConsidersNonMatching(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchScale = 0.1
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"name": "a", "color": "red"})

	got, err := m.Recall(context.Background(), query.New().Eq("color", "blue"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)
}

func TestRecallByID(t *testing.T) {
	m, sched := newTestMemory(t, optimized())
	c := m.StoreSlots(model.Slots{"name": "a"})
	sched.RunUntil(1)

	got, err := m.RecallByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, 2, c.UseCount)
}

func TestRecallByID_BelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetrievalThreshold = 5
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"name": "a"})

	got, err := m.RecallByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecallByID_Unknown(t *testing.T) {
	m, _ := newTestMemory(t, DefaultConfig())

	_, err := m.RecallByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownChunk)
	assert.Equal(t, buffer.Free, m.Buffer().State())
}

func TestRehearse(t *testing.T) {
	cfg := advanced()
	cfg.RetrievalThreshold = -5
	m, sched := newTestMemory(t, cfg)
	c := m.StoreSlots(model.Slots{"name": "a"})
	sched.RunUntil(3)

	_, err := m.Rehearse(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, c.Uses, 2)
	assert.Greater(t, c.Uses[1], 3.0)

	_, err = m.Rehearse(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnknownChunk)
}

func TestRecall_NilQueryMatchesAll(t *testing.T) {
	m, _ := newTestMemory(t, DefaultConfig())
	c := m.StoreSlots(model.Slots{"name": "a"})

	got, err := m.Recall(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestRecall_PerCallDistancesLeaveRegistryAlone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchScale = 0.1
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"name": "small", "size": 1})
	m.StoreSlots(model.Slots{"name": "big", "size": 9})
	q := query.New().Eq("size", 8)

	// Both chunks miss on size, so the earlier one wins the tie.
	got, err := m.Recall(context.Background(), q)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "small", got.ID)

	got, err = m.Recall(context.Background(), q,
		WithRecallDistances(query.Distances{"size": query.Linear(10)}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "big", got.ID)

	got, err = m.Recall(context.Background(), q)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "small", got.ID)
}

func TestRecall_PerCallDistancesOverrideRegistered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchScale = 0.1
	m, _ := newTestMemory(t, cfg)
	m.AddDistance("size", query.Linear(10))
	m.StoreSlots(model.Slots{"name": "small", "size": 1})
	m.StoreSlots(model.Slots{"name": "big", "size": 9})

	// Reversed ordering: the farther value is treated as the closer one.
	reversed := func(candidate, q model.Value) float64 {
		return 1 - query.Linear(10)(candidate, q)
	}
	got, err := m.RecallSlots(context.Background(), model.Slots{"size": 8},
		WithRecallDistances(query.Distances{"size": reversed}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "small", got.ID)
}

func TestRecall_PerCallDistancesInBlend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchScale = 1
	cfg.UseBlending = true
	cfg.RetrievalThreshold = 1
	m, _ := newTestMemory(t, cfg)
	m.StoreSlots(model.Slots{"size": 1, "label": "small"})
	m.StoreSlots(model.Slots{"size": 9, "label": "big"})

	q := query.New().Eq("size", 8)

	// Without a size function both chunks miss outright and fall below the
	// threshold.
	got, err := m.Recall(context.Background(), q)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.Recall(context.Background(), q,
		WithRecallDistances(query.Distances{"size": query.Linear(10)}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "big", got.Value("label"))
	assert.Equal(t, 9, got.Value("size"))
}
