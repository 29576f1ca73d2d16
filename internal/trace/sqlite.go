package trace

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore buffers events and writes them to SQLite on Flush.
type SQLiteStore struct {
	db      *sql.DB
	runID   string
	entropy *rand.Rand

	mu      sync.Mutex
	seq     int
	pending []Event
}

// NewSQLiteStore opens or creates a trace database at the given path and
// starts a new run.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == MemoryPath {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.runID = s.newID()

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// RunID identifies the events recorded through this store.
func (s *SQLiteStore) RunID() string {
	return s.runID
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id          TEXT PRIMARY KEY,
		run_id      TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		sim_time    REAL NOT NULL,
		chunk_id    TEXT,
		slots       TEXT,
		query       TEXT,
		activation  REAL NOT NULL DEFAULT 0,
		latency     REAL NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_run_seq ON events(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(run_id, kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record queues an event for the next Flush.
func (s *SQLiteStore) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ev.Seq = s.seq
	ev.RunID = s.runID
	ev.ID = s.newID()
	s.pending = append(s.pending, ev)
}

// Flush writes queued events in one transaction.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, ev := range batch {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (id, run_id, seq, kind, sim_time, chunk_id, slots, query, activation, latency, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.RunID, ev.Seq, string(ev.Kind), ev.SimTime, nullString(ev.ChunkID),
			nullString(ev.Slots), nullString(ev.Query), ev.Activation, ev.Latency, now)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// ListParams filters events.
type ListParams struct {
	RunID string
	Kind  Kind
	Limit int
}

// List returns recorded events ordered by run and sequence.
func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]Event, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if p.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, p.RunID)
	}
	if p.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(p.Kind))
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT id, run_id, seq, kind, sim_time, chunk_id, slots, query, activation, latency
	          FROM events WHERE ` + strings.Join(where, " AND ") + ` ORDER BY run_id, seq LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close flushes pending events and closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.Flush(context.Background()); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (Event, error) {
	var ev Event
	var kind string
	var chunkID, slots, query sql.NullString

	err := row.Scan(&ev.ID, &ev.RunID, &ev.Seq, &kind, &ev.SimTime,
		&chunkID, &slots, &query, &ev.Activation, &ev.Latency)
	if err != nil {
		return ev, err
	}

	ev.Kind = Kind(kind)
	ev.ChunkID = chunkID.String
	ev.Slots = slots.String
	ev.Query = query.String
	return ev, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
