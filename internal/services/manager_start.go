package services

import (
	"context"
	"errors"
	"time"

	"github.com/syntrixbase/intelsync/internal/server"
	"github.com/syntrixbase/intelsync/internal/syncer"
)

// RunOnce executes a single sync run and records it for /healthz.
func (m *Manager) RunOnce(ctx context.Context) (syncer.Result, error) {
	if m.cfg.Sync.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Sync.RunTimeout)
		defer cancel()
	}

	res, err := m.syncer.Run(ctx)

	status := server.RunStatus{
		RunID:      res.RunID,
		State:      res.State.String(),
		Marker:     res.Marker,
		Ingested:   res.Ingested,
		Duplicates: res.Duplicates,
		FinishedAt: res.FinishedAt,
	}
	if err != nil {
		status.Error = err.Error()
	}
	m.health.Record(status)
	return res, err
}

// Start runs once, or until ctx is canceled when an interval is configured.
// In daemon mode failed runs are logged and the next tick starts over.
func (m *Manager) Start(ctx context.Context) error {
	if !m.daemon() {
		_, err := m.RunOnce(ctx)
		return err
	}

	if m.server != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.server.Start(ctx); err != nil {
				m.logger.Error("Ops server failed", "error", err)
			}
		}()
	}

	m.logger.Info("Starting sync daemon", "interval", m.cfg.Sync.Interval)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if _, err := m.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			m.logger.Warn("Sync run failed, retrying next interval", "kind", syncer.ErrorKind(err), "error", err)
		}
		timer.Reset(m.cfg.Sync.Interval)
	}
}
