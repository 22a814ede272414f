package marker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoStore appends one document per advance to a marker collection.
type MongoStore struct {
	collection *mongo.Collection
	stream     string
}

// markerDoc is the MongoDB document structure for marker entries.
type markerDoc struct {
	Stream    string    `bson:"stream"`
	Seq       int64     `bson:"seq"`
	Marker    string    `bson:"marker"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoStore creates a MongoDB-backed marker store.
func NewMongoStore(db *mongo.Database, collection, stream string) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collection, options.Collection().SetWriteConcern(writeconcern.Majority())),
		stream:     stream,
	}
}

// EnsureIndexes creates the (stream, seq) unique index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stream", Value: 1}, {Key: "seq", Value: -1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: create marker index: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *MongoStore) latest(ctx context.Context) (*markerDoc, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	var doc markerDoc
	err := s.collection.FindOne(ctx, bson.M{"stream": s.stream}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// Read implements Store.
func (s *MongoStore) Read(ctx context.Context) (string, error) {
	doc, err := s.latest(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: load marker: %w", ErrStorageUnavailable, err)
	}
	if doc == nil {
		return "", nil
	}
	return doc.Marker, nil
}

// Advance implements Store. Writes use majority write concern.
func (s *MongoStore) Advance(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	last, err := s.latest(ctx)
	if err != nil {
		return fmt.Errorf("%w: load marker: %w", ErrStorageUnavailable, err)
	}
	var seq int64 = 1
	if last != nil {
		seq = last.Seq + 1
	}

	doc := markerDoc{
		Stream:    s.stream,
		Seq:       seq,
		Marker:    key,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: save marker: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Close implements Store. The client is owned by the storage provider.
func (s *MongoStore) Close() error { return nil }
