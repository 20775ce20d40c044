// internal/storage/factory.go
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/robolab-sim/engine/internal/config"
	gormstorage "github.com/robolab-sim/engine/internal/storage/gorm"
	"github.com/robolab-sim/engine/internal/storage/memory"
	sqlitestorage "github.com/robolab-sim/engine/internal/storage/sqlite"
	wsstorage "github.com/robolab-sim/engine/internal/storage/websocket"

	"gorm.io/gorm"
)

// ErrUnknownBackend is returned for an unrecognised storage.type.
var ErrUnknownBackend = errors.New("unknown storage type")

// Backend type names accepted in storage.type.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
)

// NewBackend creates a storage backend based on configuration. The
// returned *gorm.DB is the SQL connection the backend writes to, or nil
// for backends without one.
func NewBackend(cfg config.StorageConfig, logger *slog.Logger) (Backend, *gorm.DB, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return memory.New(cfg.Memory), nil, nil
	case TypeSQLite:
		b, err := sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.SQLite.Path,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return b, b.DB(), nil
	case TypePostgres:
		b := gormstorage.New(gormstorage.Dependencies{DBConfig: cfg.DB, Logger: logger})
		return b, nil, nil
	case TypeWebSocket:
		return wsstorage.New(wsstorage.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
}
