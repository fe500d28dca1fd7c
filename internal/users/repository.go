package users

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

// Repository defines persistence operations for users. Getters return
// (nil, nil) when the user does not exist.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertByGoogleID(ctx context.Context, u *models.User) (*models.User, error)
	SetGmailCredential(ctx context.Context, id string, cred models.GmailCredential) error
	DeleteByEmail(ctx context.Context, email string) (bool, error)
}

// MongoRepository implements Repository using a Mongo collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// UpsertByGoogleID creates or updates the user document keyed by the OIDC
// subject. Primary token fields are only written when present in the update,
// so a login response without a refresh token never erases a stored one.
func (r *MongoRepository) UpsertByGoogleID(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()

	set := bson.M{
		"email":     u.Email,
		"name":      u.Name,
		"picture":   u.Picture,
		"updatedAt": now,
	}
	if u.AccessToken != nil {
		set["access_token"] = *u.AccessToken
	}
	if u.RefreshToken != nil {
		set["refresh_token"] = *u.RefreshToken
	}
	if u.ExpiryDate != nil {
		set["expiry_date"] = *u.ExpiryDate
	}

	filter := bson.M{"googleId": u.GoogleID}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       newUserID(),
			"googleId":  u.GoogleID,
			"gmail":     models.GmailCredential{},
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"googleId": googleID})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SetGmailCredential replaces the whole gmail sub-document in a single
// update, keeping each write internally consistent under concurrent refreshes.
func (r *MongoRepository) SetGmailCredential(ctx context.Context, id string, cred models.GmailCredential) error {
	update := bson.M{"$set": bson.M{"gmail": cred, "updatedAt": time.Now().UTC()}}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *MongoRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func newUserID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "usr_" + hex.EncodeToString(b)
}
