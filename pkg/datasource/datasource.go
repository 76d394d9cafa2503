// Package datasource provides a uniform fetch interface over pluggable
// SQL-like backends. Every backend exposes the same Connect/Fetch/Disconnect
// surface so the parameter resolver can treat them identically.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"toribot/pkg/config"
	"toribot/pkg/logger"
)

// ErrNotConnected is returned by Fetch when Connect has not been called.
var ErrNotConnected = errors.New("datasource is not connected, call Connect first")

// DataSource is a fetch-only connector to an external store.
//
// Connect is idempotent: a second call logs a warning and returns nil.
// Fetch must not be called before Connect. Disconnect is idempotent.
type DataSource interface {
	// Name returns the configured datasource name.
	Name() string

	// Type returns the backend type tag (sqlite, postgres).
	Type() string

	// Connect establishes the connection or pool.
	Connect(ctx context.Context) error

	// Fetch runs a request and returns the resulting rows. The request is
	// either inline query text or a path to a query file.
	Fetch(ctx context.Context, request string) (Rows, error)

	// Disconnect closes the connection or pool.
	Disconnect(ctx context.Context) error
}

// New builds the datasource selected by the configuration entry. The config
// is validated at load time, so an unknown type here is a programming error.
func New(log *logger.Logger, cfg config.DatasourceConfig) (DataSource, error) {
	switch cfg.Type {
	case config.DatasourceSQLite:
		return NewSQLite(log, cfg), nil
	case config.DatasourcePostgres:
		return NewPostgres(log, cfg), nil
	default:
		return nil, fmt.Errorf("unknown datasource type %q", cfg.Type)
	}
}

// requestText resolves a request to query text. A request ending in .sql
// that names an existing file is read from disk; anything else is treated
// as inline query text.
func requestText(request string) (string, error) {
	if strings.HasSuffix(request, ".sql") {
		data, err := os.ReadFile(request)
		if err != nil {
			return "", fmt.Errorf("reading request file %s: %w", request, err)
		}
		return string(data), nil
	}
	return request, nil
}
