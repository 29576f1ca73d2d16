// Package experiment runs the color classification study against
// declarative memory and compares learning errors with human data.
//
// Each agent sees every stimulus color, recalls a category for it by
// partial match, and then stores the correct answer. Conditions differ in
// how often one color is shown.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/think/internal/clock"
	"github.com/rcliao/think/internal/logger"
	"github.com/rcliao/think/internal/memory"
	"github.com/rcliao/think/internal/model"
	"github.com/rcliao/think/internal/trace"
)

const (
	// Blocks is the number of passes over the condition's trial list.
	Blocks = 3
	// BaseFrequency is how often every color appears per block.
	BaseFrequency = 4
	// ExposedFrequency is how often the exposed color appears per block.
	ExposedFrequency = 19
	// StimulusDuration is how long the color, and then its category, stay
	// on screen.
	StimulusDuration = 5.0
	// KnowledgeStrength is the use count of prior knowledge chunks.
	KnowledgeStrength = 1
)

// Condition is one arm of the study.
type Condition struct {
	Name string
	// Exposed is the 1-based color shown extra often, or 0 for none.
	Exposed int
	// Agents is the number of simulated participants.
	Agents int
	// Human is the observed proportion of learning errors per color.
	Human []float64
}

// Conditions lists the baseline and the two exposure arms.
var Conditions = []Condition{
	{
		Name:   "B",
		Agents: 48,
		Human:  []float64{.318, .123, .513, .113, .175, .337, .13, .162, .372, .097, .143, .272},
	},
	{
		Name:    "E2",
		Exposed: 2,
		Agents:  63,
		Human:   []float64{.296, .026, .46, .067, .114, .328, .181, .116, .409, .05, .103, .223},
	},
	{
		Name:    "E7",
		Exposed: 7,
		Agents:  63,
		Human:   []float64{.308, .147, .555, .103, .16, .384, .039, .131, .345, .066, .146, .267},
	},
}

// MemoryConfig returns the memory settings fitted to the study.
func MemoryConfig() memory.Config {
	return memory.Config{
		Decay:              memory.OptimizedDecay,
		DecayRate:          0.5,
		ActivationNoise:    0.5,
		RetrievalThreshold: -1.8,
		LatencyFactor:      0.45,
		MatchScale:         5,
	}
}

// Params configures a simulation.
type Params struct {
	Memory  memory.Config
	Weights Weights
	Seed    int64
	// Agents overrides every condition's agent count when positive.
	Agents int
	// Runs repeats every condition with fresh seeds and pools the
	// responses. Values below 1 mean a single run.
	Runs     int
	Recorder trace.Recorder
	Logger   *slog.Logger
}

// Report holds one Result per condition, in Conditions order.
type Report struct {
	Results []Result
}

// Run simulates every condition concurrently. Each run of each condition
// draws from its own generator derived from the seed, so a report is
// reproducible for a given seed and run count.
func Run(ctx context.Context, p Params) (*Report, error) {
	if err := p.Memory.Validate(); err != nil {
		return nil, err
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Recorder == nil {
		p.Recorder = trace.Nop{}
	}

	runs := max(p.Runs, 1)
	results := make([]Result, len(Conditions))
	g, ctx := errgroup.WithContext(ctx)
	for i, cond := range Conditions {
		g.Go(func() error {
			pooled := NewTally(NumColors)
			for k := 0; k < runs; k++ {
				rng := rand.New(rand.NewSource(runSeed(p.Seed, k, i)))
				tally, err := runCondition(ctx, p, cond, rng)
				if err != nil {
					return fmt.Errorf("condition %s run %d: %w", cond.Name, k, err)
				}
				pooled.Merge(tally)
			}
			results[i] = Result{
				Name:   "Proportion of learning errors for " + cond.Name,
				Model:  pooled.Errors(),
				Human:  cond.Human,
				Trials: pooled.Totals(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{Results: results}, nil
}

// runSeed spaces seeds so that no two (run, condition) pairs share one.
func runSeed(seed int64, run, condition int) int64 {
	return seed + int64(run*len(Conditions)+condition)
}

func runCondition(ctx context.Context, p Params, cond Condition, rng *rand.Rand) (*Tally, error) {
	agents := cond.Agents
	if p.Agents > 0 {
		agents = p.Agents
	}
	log := p.Logger.With("condition", cond.Name)
	tally := NewTally(NumColors)
	for a := 0; a < agents; a++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := runAgent(ctx, p, cond, rng, tally); err != nil {
			return nil, fmt.Errorf("agent %d: %w", a, err)
		}
	}
	log.Info("condition done", "agents", agents)
	return tally, nil
}

// Trials returns the shuffled trial list for a condition.
func Trials(cond Condition, rng *rand.Rand) []Pair {
	trials := make([]Pair, 0, BaseFrequency*len(Pairs)+ExposedFrequency-BaseFrequency)
	for i := 0; i < BaseFrequency; i++ {
		trials = append(trials, Pairs...)
	}
	if cond.Exposed > 0 {
		for i := 0; i < ExposedFrequency-BaseFrequency; i++ {
			trials = append(trials, Pairs[cond.Exposed-1])
		}
	}
	rng.Shuffle(len(trials), func(i, j int) {
		trials[i], trials[j] = trials[j], trials[i]
	})
	return trials
}

func runAgent(ctx context.Context, p Params, cond Condition, rng *rand.Rand, tally *Tally) error {
	sched := clock.NewVirtual(0)
	mem, err := memory.New(p.Memory, sched,
		memory.WithRand(rng),
		memory.WithLogger(p.Logger),
		memory.WithRecorder(p.Recorder),
	)
	if err != nil {
		return err
	}
	for _, category := range slices.Sorted(maps.Keys(Knowledge)) {
		for _, color := range Knowledge[category] {
			c := model.ChunkOf(color.Slots())
			c.Set("category", category)
			c.UseCount = KnowledgeStrength
			mem.StoreChunk(c)
		}
	}

	similarities := memory.WithRecallDistances(Distances(p.Weights))
	trials := Trials(cond, rng)
	for block := 0; block < Blocks; block++ {
		for _, trial := range trials {
			start := sched.Now()
			color := Colors[trial.Color-1]

			chunk, err := mem.Recall(ctx, color.Query(), similarities)
			if err != nil {
				return err
			}
			response := 1 + rng.Intn(2)
			if chunk != nil {
				if f, ok := model.ToFloat(chunk.Value("category")); ok {
					response = int(f)
				}
			}
			tally.Add(trial.Color-1, response == trial.Category)

			sched.RunUntil(start + StimulusDuration)
			learned := color.Slots()
			learned["category"] = trial.Category
			mem.StoreSlots(learned)
			sched.RunUntil(start + 2*StimulusDuration)
		}
	}
	return nil
}
