package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// Postgres is the postgres datasource backend. It holds a lazily
// initialized connection pool shared by all concurrent fetches.
type Postgres struct {
	log  *logger.Logger
	cfg  config.DatasourceConfig
	pool *pgxpool.Pool
}

// NewPostgres creates a postgres datasource. The pool is not created until
// Connect.
func NewPostgres(log *logger.Logger, cfg config.DatasourceConfig) *Postgres {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.User == "" {
		cfg.User = "postgres"
	}
	if cfg.MinPoolSize == 0 {
		cfg.MinPoolSize = 5
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 60
	}

	return &Postgres{
		log: log.ForDatasource(cfg.Name, cfg.Type),
		cfg: cfg,
	}
}

// Name returns the configured datasource name.
func (p *Postgres) Name() string { return p.cfg.Name }

// Type returns the backend type tag.
func (p *Postgres) Type() string { return p.cfg.Type }

// Connect initializes the connection pool. Calling Connect on a connected
// datasource logs a warning and returns nil.
func (p *Postgres) Connect(ctx context.Context) error {
	if p.pool != nil {
		p.log.Warn("Connection pool already initialized, skipping re-initialization")
		return nil
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		p.cfg.Host, p.cfg.Port, p.cfg.Database, p.cfg.User, p.cfg.Password)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parsing postgres config: %w", err)
	}
	poolCfg.MinConns = int32(p.cfg.MinPoolSize)
	poolCfg.MaxConns = int32(p.cfg.MaxPoolSize)
	poolCfg.ConnConfig.ConnectTimeout = time.Duration(p.cfg.TimeoutSeconds) * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("initializing connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	p.pool = pool
	p.log.Info("Connected",
		zap.String("host", p.cfg.Host),
		zap.String("database", p.cfg.Database))
	return nil
}

// Fetch executes a request against the database and returns all rows.
func (p *Postgres) Fetch(ctx context.Context, request string) (Rows, error) {
	if p.pool == nil {
		return nil, ErrNotConnected
	}

	query, err := requestText(request)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var result Rows
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		result = append(result, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	p.log.Debug("Fetched rows", zap.Int("count", len(result)))
	return result, nil
}

// Disconnect closes the connection pool. Disconnecting twice is a no-op.
func (p *Postgres) Disconnect(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	p.pool.Close()
	p.pool = nil
	p.log.Info("Disconnected")
	return nil
}
