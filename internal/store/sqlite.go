// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Buy and sell evaluations with their audit record
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		limit_price REAL,
		audit TEXT,
		executed INTEGER DEFAULT 0,
		order_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Executed fills
	CREATE TABLE IF NOT EXISTS fills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		average_cost REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol);
	CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_timestamp ON fills(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Decision Methods
// ============================================================================

// SaveDecision saves a decision, replacing any earlier row with the same id.
func (s *SQLiteStore) SaveDecision(ctx context.Context, decision *models.Decision) error {
	executed := 0
	if decision.Executed {
		executed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO decisions (id, timestamp, symbol, side, action, quantity, limit_price, audit, executed, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, decision.ID, decision.Timestamp, decision.Symbol, string(decision.Side), decision.Action, decision.Quantity,
		decision.LimitPrice, decision.Audit, executed, decision.OrderID)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w: %w", errors.ErrDatabaseError, err)
	}
	return nil
}

// GetDecisions retrieves decisions, newest first.
func (s *SQLiteStore) GetDecisions(ctx context.Context, filter DecisionFilter) ([]models.Decision, error) {
	query := "SELECT id, timestamp, symbol, side, action, quantity, COALESCE(limit_price, 0), COALESCE(audit, '{}'), executed, COALESCE(order_id, '') FROM decisions WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, string(filter.Side))
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.Executed != nil {
		executed := 0
		if *filter.Executed {
			executed = 1
		}
		query += " AND executed = ?"
		args = append(args, executed)
	}

	query += " ORDER BY timestamp DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var d models.Decision
		var side string
		var executed int

		if err := rows.Scan(&d.ID, &d.Timestamp, &d.Symbol, &side, &d.Action, &d.Quantity, &d.LimitPrice, &d.Audit, &executed, &d.OrderID); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Side = models.OrderSide(side)
		d.Executed = executed == 1
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

// ============================================================================
// Fill Methods
// ============================================================================

// LogFill appends a fill.
func (s *SQLiteStore) LogFill(ctx context.Context, fill *models.Fill) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fills (order_id, timestamp, symbol, side, quantity, price, average_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fill.OrderID, fill.Time, fill.Symbol, string(fill.Side), fill.Quantity, fill.Price, fill.AverageCost)
	if err != nil {
		return fmt.Errorf("failed to log fill: %w: %w", errors.ErrDatabaseError, err)
	}
	return nil
}

// GetFills retrieves fills in execution order.
func (s *SQLiteStore) GetFills(ctx context.Context, filter FillFilter) ([]models.Fill, error) {
	query := "SELECT order_id, timestamp, symbol, side, quantity, price, COALESCE(average_cost, 0) FROM fills WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY timestamp, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []models.Fill
	for rows.Next() {
		var f models.Fill
		var side string
		if err := rows.Scan(&f.OrderID, &f.Time, &f.Symbol, &side, &f.Quantity, &f.Price, &f.AverageCost); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		f.Side = models.OrderSide(side)
		fills = append(fills, f)
	}

	return fills, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}

var _ DataStore = (*SQLiteStore)(nil)
