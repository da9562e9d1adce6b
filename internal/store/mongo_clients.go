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

// ClientsCollection is the MongoDB collection holding client documents.
const ClientsCollection = "clients"

// MongoClientRepository stores clients in MongoDB.
type MongoClientRepository struct {
	coll *mongo.Collection
}

// NewMongoClientRepository creates a client repository on db.
func NewMongoClientRepository(db *mongo.Database) *MongoClientRepository {
	return &MongoClientRepository{coll: db.Collection(ClientsCollection)}
}

// FindByEmail looks up a client by exact email.
func (r *MongoClientRepository) FindByEmail(ctx context.Context, email string) (models.Client, error) {
	var client models.Client
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&client)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Client{}, ErrNotFound
	}
	return client, err
}

// List returns every client ordered by creation time.
func (r *MongoClientRepository) List(ctx context.Context) ([]models.Client, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	clients := []models.Client{}
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// Create inserts a new client document.
func (r *MongoClientRepository) Create(ctx context.Context, client *models.Client) error {
	normalizeClient(client)
	_, err := r.coll.InsertOne(ctx, client)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// AppendMeeting pushes the meeting with a single findAndModify so concurrent intake never loses a meeting.
func (r *MongoClientRepository) AppendMeeting(ctx context.Context, email string, meeting models.Meeting) (models.Client, error) {
	normalizeMeeting(&meeting)
	update := bson.M{
		"$push": bson.M{"meetings": meeting},
		"$inc":  bson.M{"version": 1},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var client models.Client
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&client)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Client{}, ErrNotFound
	}
	return client, err
}

// Save replaces the document only if nobody else has written it since it was read.
func (r *MongoClientRepository) Save(ctx context.Context, client *models.Client) error {
	normalizeClient(client)
	expected := client.Version
	client.Version++
	client.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": client.ID, "version": expected}, client)
	if err != nil {
		client.Version = expected
		return err
	}
	if res.MatchedCount == 0 {
		client.Version = expected
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": client.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}
