package services

import (
	"context"
	"fmt"

	"github.com/syntrixbase/intelsync/internal/config"
	markerconfig "github.com/syntrixbase/intelsync/internal/marker/config"
	storage "github.com/syntrixbase/intelsync/internal/storage/mongo"
)

// CurrentMarker reads the persisted marker without contacting the API.
func CurrentMarker(ctx context.Context, cfg *config.Config) (string, error) {
	var provider *storage.Provider
	if cfg.Marker.Backend == markerconfig.BackendMongo {
		p, err := storage.Connect(ctx, cfg.MongoDB)
		if err != nil {
			return "", err
		}
		defer func() { _ = p.Close(context.Background()) }()
		provider = p
	}

	store, err := OpenMarkerStore(ctx, cfg.Marker, provider)
	if err != nil {
		return "", err
	}
	defer store.Close()

	current, err := store.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("read marker: %w", err)
	}
	return current, nil
}
