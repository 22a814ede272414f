// Package services wires the sync components from configuration and drives
// single runs or the interval daemon.
package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/syntrixbase/intelsync/internal/config"
	"github.com/syntrixbase/intelsync/internal/feed"
	"github.com/syntrixbase/intelsync/internal/marker"
	"github.com/syntrixbase/intelsync/internal/server"
	"github.com/syntrixbase/intelsync/internal/sink"
	storage "github.com/syntrixbase/intelsync/internal/storage/mongo"
	"github.com/syntrixbase/intelsync/internal/syncer"
)

type Options struct {
	// DryRun fetches and validates pages without touching the document
	// collection or the persisted marker.
	DryRun bool

	// MaxPages and Interval override the sync section when positive.
	MaxPages int
	Interval time.Duration

	Logger *slog.Logger
}

type Manager struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	provider *storage.Provider
	durable  marker.Store
	markers  marker.Store
	sink     sink.Sink
	client   *feed.Client
	syncer   *syncer.Syncer

	server server.Service
	health *server.Health
	wg     sync.WaitGroup
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxPages > 0 {
		cfg.Sync.MaxPages = opts.MaxPages
	}
	if opts.Interval > 0 {
		cfg.Sync.Interval = opts.Interval
	}

	return &Manager{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger.With("component", "manager"),
		health: server.NewHealth(),
	}
}

// Health returns the run tracker served on /healthz.
func (m *Manager) Health() *server.Health {
	return m.health
}

func (m *Manager) daemon() bool {
	return m.cfg.Sync.Interval > 0
}
