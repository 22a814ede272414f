// Package mongo manages the MongoDB client shared by the indicator sink and
// the mongo marker backend.
package mongo

import (
	"context"
	"fmt"

	"github.com/syntrixbase/intelsync/internal/storage/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Provider owns a connected client and the configured database.
type Provider struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    config.Config
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, cfg config.Config) (*Provider, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	clientOpts := options.Client().ApplyURI(cfg.ConnectionString)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Provider{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
	}, nil
}

// DB returns the configured database.
func (p *Provider) DB() *mongo.Database {
	return p.db
}

// Collection returns the configured indicator collection.
func (p *Provider) Collection() *mongo.Collection {
	return p.db.Collection(p.cfg.Collection)
}

// Close disconnects the client.
func (p *Provider) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}
