package datasource

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // driver
	"go.uber.org/zap"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// SQLite is the sqlite datasource backend.
type SQLite struct {
	log *logger.Logger
	cfg config.DatasourceConfig
	db  *sql.DB
}

// NewSQLite creates an sqlite datasource. The database file is not opened
// until Connect.
func NewSQLite(log *logger.Logger, cfg config.DatasourceConfig) *SQLite {
	return &SQLite{
		log: log.ForDatasource(cfg.Name, cfg.Type),
		cfg: cfg,
	}
}

// Name returns the configured datasource name.
func (s *SQLite) Name() string { return s.cfg.Name }

// Type returns the backend type tag.
func (s *SQLite) Type() string { return s.cfg.Type }

// Connect opens the database file. Calling Connect on a connected
// datasource logs a warning and returns nil.
func (s *SQLite) Connect(ctx context.Context) error {
	if s.db != nil {
		s.log.Warn("Already connected, skipping re-initialization")
		return nil
	}

	db, err := sql.Open("sqlite3", s.cfg.Path)
	if err != nil {
		return fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connecting to sqlite database: %w", err)
	}

	s.db = db
	s.log.Info("Connected", zap.String("path", s.cfg.Path))
	return nil
}

// Fetch executes a request against the database and returns all rows.
func (s *SQLite) Fetch(ctx context.Context, request string) (Rows, error) {
	if s.db == nil {
		return nil, ErrNotConnected
	}

	query, err := requestText(request)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var result Rows
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result = append(result, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	s.log.Debug("Fetched rows", zap.Int("count", len(result)))
	return result, nil
}

// Disconnect closes the database. Disconnecting twice is a no-op.
func (s *SQLite) Disconnect(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("closing sqlite database: %w", err)
	}
	s.log.Info("Disconnected")
	return nil
}
