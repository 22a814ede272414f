package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/syntrixbase/intelsync/internal/feed"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// IngestedAtField records when the document was written.
const IngestedAtField = "_ingested_at"

// MongoSink inserts indicators into a collection with _id set to the
// indicator id, so a replayed page hits the primary key.
type MongoSink struct {
	collection *mongo.Collection
}

// NewMongoSink creates a sink over collection.
func NewMongoSink(collection *mongo.Collection) *MongoSink {
	return &MongoSink{collection: collection}
}

// Append implements Sink.
func (s *MongoSink) Append(ctx context.Context, ind feed.Indicator) error {
	var doc bson.M
	if err := bson.UnmarshalExtJSON(ind.Raw, false, &doc); err != nil {
		return fmt.Errorf("decode indicator %s: %w", ind.ID, err)
	}
	doc["_id"] = ind.ID
	doc[IngestedAtField] = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, doc)
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s", ErrDuplicate, ind.ID)
	case mongo.IsNetworkError(err) || mongo.IsTimeout(err):
		return fmt.Errorf("%w: insert indicator %s: %w", ErrStorageUnavailable, ind.ID, err)
	default:
		return fmt.Errorf("insert indicator %s: %w", ind.ID, err)
	}
}

// Close implements Sink. The client is owned by the storage provider.
func (s *MongoSink) Close(_ context.Context) error { return nil }
