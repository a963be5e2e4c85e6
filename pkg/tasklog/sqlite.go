package tasklog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteConfig contains configuration for the SQLite task log.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite task log configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/tasklog.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteLog implements Sink using an append-only SQLite table.
// Records are only ever inserted; nothing in the service updates or deletes
// them, so the log doubles as an audit trail of completed work.
type SQLiteLog struct {
	db         *sql.DB
	appendStmt *sql.Stmt
	closeOnce  sync.Once
}

// NewSQLiteLog creates a new SQLite-backed task log.
func NewSQLiteLog(cfg *SQLiteConfig) (*SQLiteLog, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("task log path cannot be empty")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, int(cfg.BusyTimeout.Milliseconds()))
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open task log: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		completed_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completions_user ON completions(user_id, completed_at_ms);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize task log schema: %w", err)
	}

	appendStmt, err := db.Prepare(`
		INSERT INTO completions (id, user_id, completed_at_ms) VALUES (?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare append statement: %w", err)
	}

	return &SQLiteLog{db: db, appendStmt: appendStmt}, nil
}

// Execute records one task completion for user.
func (l *SQLiteLog) Execute(ctx context.Context, user string) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}

	_, err := l.appendStmt.ExecContext(ctx, uuid.New().String(), user, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// CompletionCount returns the number of recorded completions for user.
// This is useful for monitoring and testing.
func (l *SQLiteLog) CompletionCount(ctx context.Context, user string) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM completions WHERE user_id = ?
	`, user).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

// Completions returns the recorded completions for user, oldest first.
func (l *SQLiteLog) Completions(ctx context.Context, user string) ([]Completion, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, completed_at_ms FROM completions
		WHERE user_id = ? ORDER BY completed_at_ms, id
	`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var completions []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(&c.ID, &c.User, &c.CompletedAtMs); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completions: %w", err)
	}

	return completions, nil
}

// Close releases the underlying database handle.
// Close is idempotent and safe to call multiple times.
func (l *SQLiteLog) Close() error {
	var closeErr error

	l.closeOnce.Do(func() {
		if l.appendStmt != nil {
			l.appendStmt.Close()
		}
		if l.db != nil {
			closeErr = l.db.Close()
		}
	})

	return closeErr
}
