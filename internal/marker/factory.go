package marker

import (
	"context"
	"errors"
	"fmt"

	"github.com/syntrixbase/intelsync/internal/marker/config"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewStore builds the store selected by cfg.Backend. db is only used by the
// mongo backend and may be nil otherwise.
func NewStore(ctx context.Context, cfg config.Config, db *mongo.Database) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.File), nil
	case config.BackendPebble:
		return OpenPebbleStore(cfg.Path, cfg.Stream)
	case config.BackendSQLite:
		return OpenSQLiteStore(cfg.Path, cfg.Stream)
	case config.BackendMongo:
		if db == nil {
			return nil, errors.New("mongo marker backend requires a database")
		}
		s := NewMongoStore(db, cfg.Collection, cfg.Stream)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported marker backend: %q", cfg.Backend)
	}
}
