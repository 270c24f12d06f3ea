package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
)

// mongoStore is the MongoDB implementation of Store, following the same
// "Updates map + RowsAffected" idiom the teacher's gormJobRepository uses
// for UpdateStatus, adapted to Mongo's UpdateResult.ModifiedCount.
type mongoStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoStore returns a Store backed by the report_audit_log collection of
// the given database.
func NewMongoStore(db *mongo.Database, logger *zap.Logger) Store {
	return &mongoStore{
		collection: db.Collection("report_audit_log"),
		logger:     logger.Named("audit"),
	}
}

// Update transitions the row identified by (eventID, clientID) to status,
// writing TotalTime/Bucket/URL when present. The core never calls Update
// with StatusPending or StatusQueued — those belong to the upstream
// producer — but this method does not enforce that server-side, matching
// the spec's explicit "no server-side transition enforcement" contract.
func (s *mongoStore) Update(ctx context.Context, eventID string, clientID int64, status Status, fields TransitionFields) (bool, error) {
	set := bson.M{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}
	if fields.TotalTime != nil {
		set["total_time"] = int64(fields.TotalTime.Seconds())
	}
	if fields.Bucket != "" {
		set["s3_bucket"] = fields.Bucket
	}
	if fields.URL != "" {
		set["download_url"] = fields.URL
	}

	filter := bson.M{"event_id": eventID, "client_id": clientID}
	result, err := s.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("audit: update %s/%d to %s: %w", eventID, clientID, status, err)
	}

	modified := result.ModifiedCount > 0
	if !modified {
		s.logger.Warn("audit update matched no row",
			zap.String("event_id", eventID),
			zap.Int64("client_id", clientID),
			zap.String("status", string(status)),
		)
	}
	return modified, nil
}

// Get retrieves the audit row for (eventID, clientID). The router does not
// call it; Route relies on Update's modified result alone.
func (s *mongoStore) Get(ctx context.Context, eventID string, clientID int64) (*Row, error) {
	var row Row
	err := s.collection.FindOne(ctx, bson.M{"event_id": eventID, "client_id": clientID}).Decode(&row)
	if err != nil {
		return nil, fmt.Errorf("audit: get %s/%d: %w", eventID, clientID, err)
	}
	return &row, nil
}
