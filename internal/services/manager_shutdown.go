package services

import (
	"context"
	"errors"
)

// Shutdown releases everything Init opened. It is safe after a failed Init.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error

	if m.server != nil {
		if err := m.server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for background tasks")
	}

	if m.sink != nil {
		if err := m.sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.durable != nil {
		if err := m.durable.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.provider != nil {
		if err := m.provider.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
