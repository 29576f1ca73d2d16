package trace

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// Stats summarizes a trace database.
type Stats struct {
	DBPath      string      `json:"db_path"`
	DBSizeBytes int64       `json:"db_size_bytes"`
	TotalEvents int         `json:"total_events"`
	Runs        []RunStats  `json:"runs"`
	Kinds       []KindStats `json:"kinds"`
}

// RunStats holds per-run recall figures.
type RunStats struct {
	RunID         string  `json:"run_id"`
	Events        int     `json:"events"`
	Recalls       int     `json:"recalls"`
	Failures      int     `json:"failures"`
	MeanLatency   float64 `json:"mean_latency"`
	LastSimTime   float64 `json:"last_sim_time"`
	RecallSuccess float64 `json:"recall_success"`
}

// KindStats holds per-kind counts.
type KindStats struct {
	Kind  Kind `json:"kind"`
	Count int  `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}

	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&st.TotalEvents); err != nil {
		return st, fmt.Errorf("count events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id,
		       COUNT(*),
		       SUM(CASE WHEN kind = 'recall' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN kind = 'recall_failed' THEN 1 ELSE 0 END),
		       AVG(CASE WHEN kind IN ('recall', 'recall_failed') THEN latency END),
		       MAX(sim_time)
		FROM events GROUP BY run_id ORDER BY run_id`)
	if err != nil {
		return st, err
	}

	for rows.Next() {
		var r RunStats
		var mean sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.Events, &r.Recalls, &r.Failures, &mean, &r.LastSimTime); err != nil {
			rows.Close()
			return st, err
		}
		r.MeanLatency = mean.Float64
		if attempts := r.Recalls + r.Failures; attempts > 0 {
			r.RecallSuccess = float64(r.Recalls) / float64(attempts)
		}
		st.Runs = append(st.Runs, r)
	}
	err = rows.Err()
	// Release the connection before the next query; in-memory traces have only one.
	rows.Close()
	if err != nil {
		return st, err
	}

	krows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind ORDER BY kind`)
	if err != nil {
		return st, err
	}
	defer krows.Close()

	for krows.Next() {
		var k KindStats
		var kind string
		if err := krows.Scan(&kind, &k.Count); err != nil {
			return st, fmt.Errorf("scan kind stats: %w", err)
		}
		k.Kind = Kind(kind)
		st.Kinds = append(st.Kinds, k)
	}

	return st, krows.Err()
}
