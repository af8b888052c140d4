// Package history keeps usage statistics in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// typing speed used to estimate how long the text would take to type
const charsPerMinute = 200

// Entry is one successful transcription.
type Entry struct {
	ID         int64
	Provider   string
	Duration   time.Duration
	Characters int
	Text       string
	CreatedAt  time.Time
}

// Stats aggregates every stored entry.
type Stats struct {
	TotalRecordings int
	TotalSeconds    float64
	TotalCharacters int
	APICalls        int
	LastUsed        time.Time
}

// TimeSaved estimates typing time saved: characters at 200 per minute
// minus the time spent speaking. It can be negative.
func (s Stats) TimeSaved() time.Duration {
	minutes := float64(s.TotalCharacters)/charsPerMinute - s.TotalSeconds/60
	return time.Duration(minutes * float64(time.Minute))
}

// Store is a SQLite-backed statistics store. A Store opened with an empty
// path keeps nothing.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open creates the database file and schema if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return &Store{clock: time.Now}, nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS transcriptions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider TEXT NOT NULL,
    duration_seconds REAL NOT NULL,
    characters INTEGER NOT NULL,
    text TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_created ON transcriptions(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether entries are persisted.
func (s *Store) Enabled() bool { return s.db != nil }

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores e. A zero CreatedAt is set to now and a zero Characters
// is derived from the text.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	if e.Characters == 0 {
		e.Characters = len([]rune(e.Text))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcriptions(provider, duration_seconds, characters, text, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		e.Provider, e.Duration.Seconds(), e.Characters, e.Text, e.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("record transcription: %w", err)
	}
	return nil
}

// Stats sums every stored entry. Each entry is one API call.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if s.db == nil {
		return Stats{}, nil
	}
	var (
		st   Stats
		last sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_seconds), 0), COALESCE(SUM(characters), 0), MAX(created_at)
		 FROM transcriptions`)
	if err := row.Scan(&st.TotalRecordings, &st.TotalSeconds, &st.TotalCharacters, &last); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	st.APICalls = st.TotalRecordings
	if last.Valid {
		st.LastUsed = time.Unix(0, last.Int64).UTC()
	}
	return st, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if s.db == nil || n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider, duration_seconds, characters, text, created_at
		 FROM transcriptions ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			seconds float64
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Provider, &seconds, &e.Characters, &e.Text, &created); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		e.Duration = time.Duration(seconds * float64(time.Second))
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcriptions`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
