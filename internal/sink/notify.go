package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/syntrixbase/intelsync/internal/feed"
	"github.com/syntrixbase/intelsync/internal/sink/config"
)

// Publisher publishes one message. msgID lets the broker drop duplicates.
type Publisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
	Close() error
}

// jetStreamPublish is the subset of jetstream.JetStream used for publishing.
type jetStreamPublish interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher implements Publisher on NATS JetStream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetStreamPublish
	prefix string
}

// ConnectJetStream connects to NATS and ensures the stream covering
// <prefix>.> exists.
func ConnectJetStream(ctx context.Context, cfg config.NotifyConfig) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("intelsync"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.SubjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
	}

	return &JetStreamPublisher{nc: nc, js: js, prefix: cfg.SubjectPrefix}, nil
}

// Publish implements Publisher.
func (p *JetStreamPublisher) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	fullSubject := subject
	if p.prefix != "" {
		fullSubject = p.prefix + "." + subject
	}
	if _, err := p.js.Publish(ctx, fullSubject, data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", fullSubject, err)
	}
	return nil
}

// Close drains the NATS connection.
func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// notifyingSink publishes each newly stored indicator after the wrapped
// sink accepts it.
type notifyingSink struct {
	Sink
	pub    Publisher
	logger *slog.Logger
}

// WithNotifier wraps s so every stored indicator is published to
// indicators.<type>. Duplicates are published again with the same message
// id, so a notification lost between insert and publish is recovered when
// the page is replayed; the broker drops the copy if it already has one.
// Publish failures never fail the append.
func WithNotifier(s Sink, pub Publisher, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &notifyingSink{
		Sink:   s,
		pub:    pub,
		logger: logger.With("component", "notifier"),
	}
}

func (n *notifyingSink) Append(ctx context.Context, ind feed.Indicator) error {
	err := n.Sink.Append(ctx, ind)
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return err
	}
	subject := "indicators." + subjectToken(ind.Type)
	if pubErr := n.pub.Publish(ctx, subject, ind.ID, ind.Raw); pubErr != nil {
		n.logger.Warn("failed to publish indicator", "id", ind.ID, "subject", subject, "error", pubErr)
	}
	return err
}

func (n *notifyingSink) Close(ctx context.Context) error {
	pubErr := n.pub.Close()
	if err := n.Sink.Close(ctx); err != nil {
		return err
	}
	return pubErr
}

// subjectToken makes an indicator type safe for use as a subject token.
func subjectToken(t string) string {
	if t == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, strings.ToLower(t))
}
