// Package history keeps an audit log of processed queue items in DuckDB.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	"github.com/marcboeker/go-duckdb"

	"github.com/campusai/portal/internal/models"
)

// DefaultLimit is the page size used when List is given no limit.
const DefaultLimit = 100

// Ledger stores one row per finished queue item.
type Ledger struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

// Open opens the ledger at dsn, an on-disk DuckDB path. An empty dsn keeps the
// ledger in memory for the life of the process, as does ":memory:".
func Open(dsn string, logger *slog.Logger) (*Ledger, error) {
	if dsn == ":memory:" {
		dsn = ""
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history")

	connector, err := duckdb.NewConnector(dsn, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				logger.Warn("pragma failed", "pragma", pragma, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	schema := []string{
		`CREATE SEQUENCE IF NOT EXISTS upload_history_seq`,
		`CREATE TABLE IF NOT EXISTS upload_history (
			id          BIGINT DEFAULT nextval('upload_history_seq'),
			item_id     VARCHAR NOT NULL,
			account     VARCHAR NOT NULL,
			source_name VARCHAR NOT NULL,
			target_name VARCHAR NOT NULL,
			category    VARCHAR NOT NULL,
			status      VARCHAR NOT NULL,
			error       VARCHAR NOT NULL,
			source_size BIGINT NOT NULL,
			text_bytes  BIGINT NOT NULL,
			duration_ms BIGINT NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	where := dsn
	if where == "" {
		where = ":memory:"
	}
	logger.Info("history ledger ready", "dsn", where)

	return &Ledger{db: db, dsn: dsn, logger: logger}, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends one entry.
func (l *Ledger) Record(ctx context.Context, e models.HistoryEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO upload_history (
			item_id, account, source_name, target_name, category, status, error,
			source_size, text_bytes, duration_ms, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ItemID, e.Account, e.SourceName, e.TargetName, string(e.Category), string(e.Status), e.Error,
		e.SourceSize, int64(e.TextBytes), e.DurationMs, e.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.ItemID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. An empty account lists
// every account.
func (l *Ledger) List(ctx context.Context, account string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT item_id, account, source_name, target_name, category, status, error,
		       source_size, text_bytes, duration_ms, finished_at
		FROM upload_history
		WHERE ? = '' OR account = ?
		ORDER BY id DESC
		LIMIT ?`, account, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var (
			e         models.HistoryEntry
			category  string
			status    string
			textBytes int64
		)
		if err := rows.Scan(&e.ItemID, &e.Account, &e.SourceName, &e.TargetName, &category, &status, &e.Error,
			&e.SourceSize, &textBytes, &e.DurationMs, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Category = models.Category(category)
		e.Status = models.ItemStatus(status)
		e.TextBytes = int(textBytes)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats aggregates entries by status and category.
func (l *Ledger) Stats(ctx context.Context, account string) (models.HistoryStats, error) {
	stats := models.HistoryStats{
		ByStatus:   make(map[models.ItemStatus]int),
		ByCategory: make(map[models.Category]int),
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT status, category, COUNT(*), CAST(COALESCE(SUM(text_bytes), 0) AS BIGINT)
		FROM upload_history
		WHERE ? = '' OR account = ?
		GROUP BY status, category`, account, account)
	if err != nil {
		return stats, fmt.Errorf("failed to query history stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status, category string
			count            int64
			textBytes        int64
		)
		if err := rows.Scan(&status, &category, &count, &textBytes); err != nil {
			return stats, fmt.Errorf("failed to scan history stats: %w", err)
		}
		stats.Total += int(count)
		stats.ByStatus[models.ItemStatus(status)] += int(count)
		if category != "" {
			stats.ByCategory[models.Category(category)] += int(count)
		}
		stats.TextBytes += textBytes
	}
	return stats, rows.Err()
}
