package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
// This backend provides durable admission and backlog state and is suitable
// for deployments where the backlog must survive process restarts.
//
// SQLiteStore uses a write-ahead log (WAL) for better concurrent performance
// and automatic checkpointing to balance write performance with durability.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.Mutex
	closeOnce          sync.Once

	// preparedStatements contains pre-compiled SQL statements for the hot path
	countStmt   *sql.Stmt
	insertStmt  *sql.Stmt
	appendStmt  *sql.Stmt
	lengthStmt  *sql.Stmt
	pruneStmt   *sql.Stmt
	headStmt    *sql.Stmt
	popStmt     *sql.Stmt
	renewStmt   *sql.Stmt
	releaseStmt *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{
		DBPath:             dbPath,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig creates a new SQLite store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	// Apply defaults
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	st := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := st.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := st.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	// Start background checkpoint goroutine
	go st.checkpointLoop()

	return st, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admissions (
		user_id TEXT NOT NULL,
		ts_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_admissions_user_ts ON admissions(user_id, ts_ms);

	CREATE TABLE IF NOT EXISTS backlog (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		marker_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_backlog_user ON backlog(user_id, id);

	CREATE TABLE IF NOT EXISTS drain_leases (
		user_id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		expires_at_ms INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.countStmt, err = s.db.Prepare(`
		SELECT COUNT(*) FROM admissions
		WHERE user_id = ? AND ts_ms > ? AND ts_ms <= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare count statement: %w", err)
	}

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO admissions (user_id, ts_ms) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.appendStmt, err = s.db.Prepare(`
		INSERT INTO backlog (user_id, marker_ms) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare append statement: %w", err)
	}

	s.lengthStmt, err = s.db.Prepare(`
		SELECT COUNT(*) FROM backlog WHERE user_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare length statement: %w", err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM admissions WHERE ts_ms < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	s.headStmt, err = s.db.Prepare(`
		SELECT id, marker_ms FROM backlog
		WHERE user_id = ? ORDER BY id LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare head statement: %w", err)
	}

	s.popStmt, err = s.db.Prepare(`
		DELETE FROM backlog WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare pop statement: %w", err)
	}

	s.renewStmt, err = s.db.Prepare(`
		UPDATE drain_leases SET expires_at_ms = ?
		WHERE user_id = ? AND owner = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare renew statement: %w", err)
	}

	s.releaseStmt, err = s.db.Prepare(`
		DELETE FROM drain_leases WHERE user_id = ? AND owner = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare release statement: %w", err)
	}

	return nil
}

// CountInRange returns the number of admission timestamps in (fromMs, toMs].
func (s *SQLiteStore) CountInRange(ctx context.Context, user string, fromMs, toMs int64) (int64, error) {
	if user == "" {
		return 0, fmt.Errorf("user cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.countStmt.QueryRowContext(ctx, user, fromMs, toMs).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admissions: %w", err)
	}
	return count, nil
}

// InsertTimestamp records an admission timestamp for user.
func (s *SQLiteStore) InsertTimestamp(ctx context.Context, user string, tsMs int64) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.insertStmt.ExecContext(ctx, user, tsMs); err != nil {
		return fmt.Errorf("failed to insert admission: %w", err)
	}
	return nil
}

// ConditionalAdmit evaluates both windows and inserts nowMs in one transaction.
func (s *SQLiteStore) ConditionalAdmit(ctx context.Context, user string, nowMs int64, burstWindowMs, burstLimit, sustainedWindowMs, sustainedLimit int64) (bool, error) {
	if user == "" {
		return false, fmt.Errorf("user cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var burstCount, sustainedCount int64
	err = tx.StmtContext(ctx, s.countStmt).
		QueryRowContext(ctx, user, nowMs-burstWindowMs, nowMs).Scan(&burstCount)
	if err != nil {
		return false, fmt.Errorf("failed to count burst window: %w", err)
	}
	err = tx.StmtContext(ctx, s.countStmt).
		QueryRowContext(ctx, user, nowMs-sustainedWindowMs, nowMs).Scan(&sustainedCount)
	if err != nil {
		return false, fmt.Errorf("failed to count sustained window: %w", err)
	}

	// Either breach blocks admission; no state change on denial.
	if burstCount >= burstLimit || sustainedCount >= sustainedLimit {
		return false, nil
	}

	if _, err := tx.StmtContext(ctx, s.insertStmt).ExecContext(ctx, user, nowMs); err != nil {
		return false, fmt.Errorf("failed to insert admission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit admission: %w", err)
	}
	return true, nil
}

// AppendToQueue appends a deferred-task marker to the tail of the backlog.
func (s *SQLiteStore) AppendToQueue(ctx context.Context, user string, markerMs int64) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.appendStmt.ExecContext(ctx, user, markerMs); err != nil {
		return fmt.Errorf("failed to append to queue: %w", err)
	}
	return nil
}

// PopFrontOfQueue removes and returns the head of the backlog.
func (s *SQLiteStore) PopFrontOfQueue(ctx context.Context, user string) (int64, bool, error) {
	if user == "" {
		return 0, false, fmt.Errorf("user cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id, markerMs int64
	err = tx.StmtContext(ctx, s.headStmt).QueryRowContext(ctx, user).Scan(&id, &markerMs)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read queue head: %w", err)
	}

	if _, err := tx.StmtContext(ctx, s.popStmt).ExecContext(ctx, id); err != nil {
		return 0, false, fmt.Errorf("failed to remove queue head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit pop: %w", err)
	}
	return markerMs, true, nil
}

// QueueLength returns the current backlog length for user.
func (s *SQLiteStore) QueueLength(ctx context.Context, user string) (int64, error) {
	if user == "" {
		return 0, fmt.Errorf("user cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var length int64
	if err := s.lengthStmt.QueryRowContext(ctx, user).Scan(&length); err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return length, nil
}

// AcquireLease attempts to claim the drain lease for user.
func (s *SQLiteStore) AcquireLease(ctx context.Context, user, owner string, ttl time.Duration) (bool, error) {
	if user == "" {
		return false, fmt.Errorf("user cannot be empty")
	}
	if owner == "" {
		return false, fmt.Errorf("owner cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nowMs := time.Now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Reclaim an expired lease before attempting to insert.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM drain_leases WHERE user_id = ? AND expires_at_ms <= ?
	`, user, nowMs)
	if err != nil {
		return false, fmt.Errorf("failed to reclaim expired lease: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO drain_leases (user_id, owner, expires_at_ms)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, user, owner, nowMs+ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit lease: %w", err)
	}
	return rows == 1, nil
}

// RenewLease extends the lease for user if owner still holds it.
func (s *SQLiteStore) RenewLease(ctx context.Context, user, owner string, ttl time.Duration) (bool, error) {
	if user == "" {
		return false, fmt.Errorf("user cannot be empty")
	}
	if owner == "" {
		return false, fmt.Errorf("owner cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAtMs := time.Now().UnixMilli() + ttl.Milliseconds()
	res, err := s.renewStmt.ExecContext(ctx, expiresAtMs, user, owner)
	if err != nil {
		return false, fmt.Errorf("failed to renew lease: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// ReleaseLease drops the lease for user if owner holds it.
func (s *SQLiteStore) ReleaseLease(ctx context.Context, user, owner string) error {
	if user == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.releaseStmt.ExecContext(ctx, user, owner); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

// PruneAdmissions deletes admission timestamps older than olderThanMs.
func (s *SQLiteStore) PruneAdmissions(ctx context.Context, olderThanMs int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.pruneStmt.ExecContext(ctx, olderThanMs)
	if err != nil {
		return 0, fmt.Errorf("failed to prune admissions: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		// Signal checkpoint goroutine to stop
		close(s.done)

		// Close prepared statements
		for _, stmt := range []*sql.Stmt{
			s.countStmt, s.insertStmt, s.appendStmt, s.lengthStmt,
			s.pruneStmt, s.headStmt, s.popStmt, s.renewStmt, s.releaseStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
