package services

import (
	"context"
	"fmt"

	"github.com/syntrixbase/intelsync/internal/feed"
	"github.com/syntrixbase/intelsync/internal/marker"
	markerconfig "github.com/syntrixbase/intelsync/internal/marker/config"
	"github.com/syntrixbase/intelsync/internal/server"
	"github.com/syntrixbase/intelsync/internal/sink"
	storage "github.com/syntrixbase/intelsync/internal/storage/mongo"
	"github.com/syntrixbase/intelsync/internal/syncer"
)

// Init connects storage, opens the marker store, builds the sink and
// authenticates against the API. On error, resources opened so far are
// released by Shutdown.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.initStorage(ctx); err != nil {
		return err
	}
	if err := m.initMarkers(ctx); err != nil {
		return err
	}
	if err := m.initSink(ctx); err != nil {
		return err
	}
	if err := m.initFeed(ctx); err != nil {
		return err
	}

	m.syncer = syncer.New(m.client, m.sink, m.markers, syncer.Options{
		Stream: m.cfg.Marker.Stream,
		Query: feed.QueryParams{
			Limit:          m.cfg.Falcon.Query.Limit,
			IncludeDeleted: m.cfg.Falcon.Query.IncludeDeleted,
			Sort:           m.cfg.Falcon.Query.Sort,
		},
		Config: m.cfg.Sync,
		Logger: m.opts.Logger,
	})

	if m.daemon() && m.cfg.Server.Enabled {
		m.server = server.New(m.cfg.Server, m.opts.Logger)
		server.RegisterOps(m.server, m.health)
	}
	return nil
}

func (m *Manager) needsMongo() bool {
	return !m.opts.DryRun || m.cfg.Marker.Backend == markerconfig.BackendMongo
}

func (m *Manager) initStorage(ctx context.Context) error {
	if !m.needsMongo() {
		return nil
	}
	provider, err := storage.Connect(ctx, m.cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("%w: %w", sink.ErrStorageUnavailable, err)
	}
	m.provider = provider
	m.logger.Info("Connected to MongoDB", "database", m.cfg.MongoDB.Database, "collection", m.cfg.MongoDB.Collection)
	return nil
}

func (m *Manager) initMarkers(ctx context.Context) error {
	store, err := OpenMarkerStore(ctx, m.cfg.Marker, m.provider)
	if err != nil {
		return err
	}
	m.durable = store
	m.markers = store

	if m.opts.DryRun {
		current, err := store.Read(ctx)
		if err != nil {
			return err
		}
		m.markers = marker.NewMemoryStore(current)
		m.logger.Info("Dry run: marker will not be persisted", "marker", current)
	}
	return nil
}

func (m *Manager) initSink(ctx context.Context) error {
	if m.opts.DryRun {
		m.sink = sink.NewMemorySink()
		return nil
	}

	m.sink = sink.NewMongoSink(m.provider.Collection())
	if !m.cfg.NATS.Enabled {
		return nil
	}
	pub, err := sink.ConnectJetStream(ctx, m.cfg.NATS)
	if err != nil {
		return err
	}
	m.sink = sink.WithNotifier(m.sink, pub, m.opts.Logger)
	m.logger.Info("Publishing new indicators", "url", m.cfg.NATS.URL, "stream", m.cfg.NATS.Stream)
	return nil
}

func (m *Manager) initFeed(ctx context.Context) error {
	exec := feed.NewHTTPExecutor(m.cfg.Falcon, m.opts.Logger)
	m.client = feed.NewClient(exec, m.opts.Logger)
	return m.client.Authenticate(ctx)
}

// OpenMarkerStore opens the configured marker backend. provider may be nil
// unless the backend is mongo.
func OpenMarkerStore(ctx context.Context, cfg markerconfig.Config, provider *storage.Provider) (marker.Store, error) {
	if cfg.Backend == markerconfig.BackendMongo && provider != nil {
		return marker.NewStore(ctx, cfg, provider.DB())
	}
	return marker.NewStore(ctx, cfg, nil)
}
