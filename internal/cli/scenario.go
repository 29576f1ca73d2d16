package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/rcliao/think/internal/clock"
	"github.com/rcliao/think/internal/memory"
	"github.com/rcliao/think/internal/model"
	"github.com/rcliao/think/internal/query"
	"github.com/rcliao/think/internal/trace"
)

func init() {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Store a chunk, wait, and recall it under optimized decay",
		Run:   runScenario,
	}

	cmd.Flags().Float64("decay-rate", 0.5, "Decay rate")
	cmd.Flags().Float64("threshold", -1, "Retrieval threshold")
	cmd.Flags().Float64("latency-factor", 1, "Latency factor")
	cmd.Flags().Float64("delay", 10, "Simulated seconds between store and recall")
	cmd.Flags().String("trace", "", "Record events to this SQLite file")

	RootCmd.AddCommand(cmd)
}

type scenarioResult struct {
	Stored             *model.Chunk `json:"stored"`
	Recalled           *model.Chunk `json:"recalled"`
	RecallStartedAt    float64      `json:"recall_started_at"`
	RecalledAt         float64      `json:"recalled_at"`
	Activation         float64      `json:"activation"`
	ExpectedActivation float64      `json:"expected_activation"`
	Latency            float64      `json:"latency"`
}

func runScenario(cmd *cobra.Command, args []string) {
	rate, _ := cmd.Flags().GetFloat64("decay-rate")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	lf, _ := cmd.Flags().GetFloat64("latency-factor")
	delay, _ := cmd.Flags().GetFloat64("delay")
	tracePath, _ := cmd.Flags().GetString("trace")

	mc := memory.DefaultConfig()
	mc.Decay = memory.OptimizedDecay
	mc.DecayRate = rate
	mc.RetrievalThreshold = threshold
	mc.LatencyFactor = lf

	var rec trace.Recorder = trace.Nop{}
	if tracePath != "" {
		s, err := trace.NewSQLiteStore(tracePath)
		if err != nil {
			exitErr("open trace", err)
		}
		defer s.Close()
		rec = s
	}

	sched := clock.NewVirtual(0)
	mem, err := memory.New(mc, sched, memory.WithLogger(log), memory.WithRecorder(rec))
	if err != nil {
		exitErr("memory", err)
	}

	res, err := scenario(cmd.Context(), mem, sched, delay)
	if err != nil {
		exitErr("scenario", err)
	}

	if formatFlag == "text" {
		if res.Recalled == nil {
			fmt.Printf("recall failed at t=%.3f\n", res.RecalledAt)
			return
		}
		fmt.Printf("stored    %s at t=0\n", res.Stored)
		fmt.Printf("recalled  %s at t=%.3f\n", res.Recalled, res.RecalledAt)
		fmt.Printf("activation %.4f (expected %.4f), latency %.4f\n", res.Activation, res.ExpectedActivation, res.Latency)
		return
	}
	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}

func scenario(ctx context.Context, mem *memory.Memory, sched *clock.Virtual, delay float64) (*scenarioResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	mc := mem.Config()
	stored := mem.StoreSlots(model.Slots{"color": "red", "category": 1})
	sched.RunUntil(delay)

	res := &scenarioResult{
		Stored:             stored,
		RecallStartedAt:    sched.Now(),
		ExpectedActivation: math.Log(1/(1-mc.DecayRate)) - mc.DecayRate*math.Log(delay),
	}
	got, err := mem.Recall(ctx, query.New().Eq("color", "red"))
	if err != nil {
		return nil, err
	}
	res.Recalled = got
	res.RecalledAt = sched.Now()
	res.Latency = res.RecalledAt - res.RecallStartedAt
	if got != nil {
		res.Activation = got.TransientActivation
	}
	return res, nil
}
