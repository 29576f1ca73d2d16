package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/think/internal/trace"
)

var traceDB string

func init() {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded simulation traces",
	}
	traceCmd.PersistentFlags().StringVarP(&traceDB, "db", "d", "", "Trace database (default: trace.sqlite_path or ~/.think/trace.db)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-run recall statistics",
		Run:   runTraceStats,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded events",
		Run:   runTraceList,
	}
	listCmd.Flags().String("run", "", "Filter by run id")
	listCmd.Flags().StringP("kind", "k", "", "Filter by kind: store, merge, recall, recall_failed")
	listCmd.Flags().IntP("limit", "l", 20, "Max results")

	traceCmd.AddCommand(statsCmd, listCmd)
	RootCmd.AddCommand(traceCmd)
}

func traceDBPath() string {
	if traceDB != "" {
		return traceDB
	}
	return defaultTracePath()
}

func openTrace() (*trace.SQLiteStore, error) {
	return trace.NewSQLiteStore(traceDBPath())
}

func runTraceStats(cmd *cobra.Command, args []string) {
	s, err := openTrace()
	if err != nil {
		exitErr("open trace", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), traceDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%s: %d events\n", stats.DBPath, stats.TotalEvents)
		for _, r := range stats.Runs {
			fmt.Printf("  %s  recalls=%d failures=%d success=%.3f mean_latency=%.3f\n",
				r.RunID, r.Recalls, r.Failures, r.RecallSuccess, r.MeanLatency)
		}
		return
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func runTraceList(cmd *cobra.Command, args []string) {
	run, _ := cmd.Flags().GetString("run")
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openTrace()
	if err != nil {
		exitErr("open trace", err)
	}
	defer s.Close()

	events, err := s.List(cmd.Context(), trace.ListParams{
		RunID: run,
		Kind:  trace.Kind(kind),
		Limit: limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "text" {
		for _, ev := range events {
			fmt.Printf("%8.3f  %-13s %-12s %s %s\n", ev.SimTime, ev.Kind, ev.ChunkID, ev.Query, ev.Slots)
		}
		return
	}
	if events == nil {
		events = []trace.Event{}
	}
	b, _ := json.MarshalIndent(events, "", "  ")
	fmt.Println(string(b))
}
