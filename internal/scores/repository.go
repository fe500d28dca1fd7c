package scores

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phishbowl/go-services/internal/models"
)

// Repository defines persistence operations for training-round scores.
// Scores are append-only: create, list and bulk delete by owner email.
type Repository interface {
	Create(ctx context.Context, s *models.Score) (string, error)
	ListByEmail(ctx context.Context, email string) ([]*models.Score, error)
	Top(ctx context.Context, limit int) ([]*models.Score, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

// MongoRepository implements Repository using a Mongo collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s *models.Score) (string, error) {
	if s.ID == "" {
		s.ID = newScoreID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		return "", err
	}
	return s.ID, nil
}

func (r *MongoRepository) ListByEmail(ctx context.Context, email string) ([]*models.Score, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

func (r *MongoRepository) Top(ctx context.Context, limit int) ([]*models.Score, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "value", Value: -1}, {Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

// DeleteByEmail removes every score owned by the email and returns the count.
// Deleting for an unknown email is not an error; the count is simply zero.
func (r *MongoRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*models.Score, error) {
	defer cur.Close(ctx)
	out := []*models.Score{}
	for cur.Next(ctx) {
		var s models.Score
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}

func newScoreID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "scr_" + hex.EncodeToString(b)
}
