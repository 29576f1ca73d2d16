package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rcliao/think/internal/experiment"
	"github.com/rcliao/think/internal/memory"
	"github.com/rcliao/think/internal/trace"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))

func init() {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the color classification experiment",
		Long: "Simulates the baseline (B) and exposure (E2, E7) conditions and compares the " +
			"proportion of learning errors per color with human data.",
		Run: runSimulate,
	}

	cmd.Flags().Int("agents", 0, "Agents per condition (default: the study's counts)")
	cmd.Flags().Int64("seed", 0, "Random seed (default: simulation.seed)")
	cmd.Flags().Int("runs", 0, "Repetitions pooled per condition (default: simulation.runs)")
	cmd.Flags().Bool("from-config", false, "Use the [memory] config section instead of the fitted parameters")
	cmd.Flags().String("trace", "", "Record events to this SQLite file (default: trace.sqlite_path)")
	cmd.Flags().Int("decimals", 3, "Decimals in text output")

	RootCmd.AddCommand(cmd)
}

func runSimulate(cmd *cobra.Command, args []string) {
	agents, _ := cmd.Flags().GetInt("agents")
	seed, _ := cmd.Flags().GetInt64("seed")
	runs, _ := cmd.Flags().GetInt("runs")
	fromConfig, _ := cmd.Flags().GetBool("from-config")
	tracePath, _ := cmd.Flags().GetString("trace")
	decimals, _ := cmd.Flags().GetInt("decimals")

	if !cmd.Flags().Changed("seed") {
		seed = cfg.Simulation.Seed
	}
	if !cmd.Flags().Changed("runs") {
		runs = cfg.Simulation.Runs
	}
	if tracePath == "" {
		tracePath = cfg.Trace.SQLitePath
	}

	mc := experiment.MemoryConfig()
	if fromConfig {
		var err error
		if mc, err = cfg.MemoryConfig(); err != nil {
			exitErr("memory config", err)
		}
	}

	p := experiment.Params{
		Memory:  mc,
		Weights: experiment.DefaultWeights,
		Seed:    seed,
		Agents:  agents,
		Runs:    runs,
		Logger:  log,
	}

	var store *trace.SQLiteStore
	if tracePath != "" {
		var err error
		store, err = trace.NewSQLiteStore(tracePath)
		if err != nil {
			exitErr("open trace", err)
		}
		defer store.Close()
		p.Recorder = store
		log.Info("tracing", "path", tracePath, "run", store.RunID())
	}

	log.Info("simulating", "decay", mc.Decay, "seed", seed, "runs", runs)
	rep, err := experiment.Run(cmd.Context(), p)
	if err != nil {
		exitErr("simulate", err)
	}

	if formatFlag == "text" {
		printReport(rep, mc, decimals)
		return
	}
	b, _ := json.MarshalIndent(reportJSON(rep), "", "  ")
	fmt.Println(string(b))
}

func printReport(rep *experiment.Report, mc memory.Config, decimals int) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("color classification (%s decay, threshold %.2f)", mc.Decay, mc.RetrievalThreshold)))
	for _, r := range rep.Results {
		fmt.Println()
		if err := r.Write(os.Stdout, decimals); err != nil {
			exitErr("write", err)
		}
	}
}

type resultJSON struct {
	Name        string    `json:"name"`
	Model       []float64 `json:"model"`
	Human       []float64 `json:"human"`
	Trials      []int     `json:"trials"`
	Correlation *float64  `json:"correlation,omitempty"`
	RMSE        float64   `json:"rmse"`
}

func reportJSON(rep *experiment.Report) []resultJSON {
	out := make([]resultJSON, 0, len(rep.Results))
	for _, r := range rep.Results {
		rj := resultJSON{Name: r.Name, Model: r.Model, Human: r.Human, Trials: r.Trials, RMSE: r.RMSE()}
		if c := r.Correlation(); !math.IsNaN(c) {
			rj.Correlation = &c
		}
		out = append(out, rj)
	}
	return out
}
