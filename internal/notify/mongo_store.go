package notify

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// mongoStore is the MongoDB implementation of Store: one collection, written
// with an upserting ReplaceOne. Unlike audit.mongoStore, which only updates
// existing rows, it creates the document when none exists at the path.
type mongoStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoStore returns a Store backed by the notifications collection of
// the given database, one document per compound path, replaced on every
// publish the way a Firestore document.set() call overwrites wholesale.
func NewMongoStore(db *mongo.Database, logger *zap.Logger) Store {
	return &mongoStore{
		collection: db.Collection("notifications"),
		logger:     logger.Named("notify.mongo"),
	}
}

// Publish implements Store.
func (s *mongoStore) Publish(ctx context.Context, path string, n Notification) error {
	doc := bson.M{
		"path":         path,
		"event_id":     n.EventID,
		"type":         n.Type,
		"status":       n.Status,
		"download_url": n.DownloadURL,
		"timestamp":    n.Timestamp,
		"message":      n.Message,
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"path": path}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("notify: publish at %s: %w", path, err)
	}
	return nil
}
