package store

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/intake-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection is the MongoDB collection holding user documents.
const UsersCollection = "users"

// MongoUserRepository stores users in MongoDB.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a user repository on db.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(UsersCollection)}
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

// FindByEmail looks up a user by exact email.
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID looks up a user by id.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// List returns every user ordered by creation time.
func (r *MongoUserRepository) List(ctx context.Context) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts a new user.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateProfile $sets the non-nil name fields and returns the updated document.
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, firstName, lastName *string) (models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if firstName != nil {
		set["firstName"] = *firstName
	}
	if lastName != nil {
		set["lastName"] = *lastName
	}
	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

// SetResetToken stores a reset token digest and its expiry.
func (r *MongoUserRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"passwordResetToken":     digest,
		"passwordResetExpiresAt": expiresAt,
		"updatedAt":              time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetPassword swaps the password hash while the reset token digest is unchanged.
func (r *MongoUserRepository) ResetPassword(ctx context.Context, id, digest, passwordHash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "passwordResetToken": digest},
		bson.M{
			"$set":   bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()},
			"$unset": bson.M{"passwordResetToken": "", "passwordResetExpiresAt": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

// Delete removes the user with the given id.
func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearExpiredResetTokens unsets reset tokens that expired before now.
func (r *MongoUserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"passwordResetExpiresAt": bson.M{"$lt": now}},
		bson.M{"$unset": bson.M{"passwordResetToken": "", "passwordResetExpiresAt": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
