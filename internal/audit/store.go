package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phishbowl/go-services/internal/database"
)

// Event records one secondary-credential lifecycle transition for a user.
// The trail exists for security review (who connected what, and when a
// credential was torn down for a mismatch or dead grant).
type Event struct {
	UserID    string    `bson:"userId" json:"userId"`
	Email     string    `bson:"email" json:"email"`
	Action    string    `bson:"action" json:"action"` // connected|disconnected|mismatch|invalid_grant
	Detail    string    `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Save appends an audit event using its own short-lived Mongo connection.
// If mongoURI is empty the function is a no-op; callers treat failures as
// best-effort and only log them.
func Save(ctx context.Context, mongoURI, databaseName string, ev *Event) error {
	if mongoURI == "" {
		return nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	col := client.Database(databaseName).Collection("credential_events")
	if _, err := col.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("save credential event: %w", err)
	}
	return nil
}

// LastByUser fetches the most recent event for a user. Returns nil when the
// user has no trail (or when mongoURI is empty).
func LastByUser(ctx context.Context, mongoURI, databaseName, userID string) (*Event, error) {
	if mongoURI == "" {
		return nil, nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	col := client.Database(databaseName).Collection("credential_events")
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var ev Event
	if err := col.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&ev); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}
