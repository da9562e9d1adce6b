package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/intake-api/internal/database"
	"github.com/isdelr/intake-api/internal/models"
	"github.com/isdelr/intake-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// newMongoDB connects to a scratch database, skipping unless MONGO_URI is set.
func newMongoDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()

	client, db, err := database.ConnectMongo(ctx, uri, "intake_test_"+uuid.New().String()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	require.NoError(t, database.EnsureIndexes(ctx, db))
	return db
}

func TestMongoClientRepository(t *testing.T) {
	db := newMongoDB(t)
	ctx := context.Background()

	clients := store.NewMongoClientRepository(db)
	c := newClient("mongo@x.com")
	require.NoError(t, clients.Create(ctx, c))
	assert.ErrorIs(t, clients.Create(ctx, newClient("mongo@x.com")), store.ErrDuplicate)

	updated, err := clients.AppendMeeting(ctx, "mongo@x.com", models.Meeting{Location: "phone"})
	require.NoError(t, err)
	require.Len(t, updated.Meetings, 2)
	assert.Equal(t, "phone", updated.Meetings[1].Location)
	assert.Equal(t, int64(1), updated.Version)

	stale := updated
	updated.Status = models.PhaseTestingQA
	require.NoError(t, clients.Save(ctx, &updated))
	assert.ErrorIs(t, clients.Save(ctx, &stale), store.ErrConflict)

	_, err = clients.AppendMeeting(ctx, "nobody@x.com", models.Meeting{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMongoUserRepository(t *testing.T) {
	db := newMongoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	users := store.NewMongoUserRepository(db)
	u := &models.User{ID: uuid.New().String(), Email: "m@x.com", PasswordHash: "old-hash", FirstName: "M", LastName: "X", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Create(ctx, u))
	require.NoError(t, users.SetResetToken(ctx, u.ID, "digest", now.Add(time.Hour)))

	require.NoError(t, users.ResetPassword(ctx, u.ID, "digest", "new-hash"))
	assert.ErrorIs(t, users.ResetPassword(ctx, u.ID, "digest", "third-hash"), store.ErrConflict)

	first := "Renamed"
	updated, err := users.UpdateProfile(ctx, u.ID, &first, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
	assert.Equal(t, "X", updated.LastName)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.Empty(t, updated.PasswordResetToken)

	_, err = users.UpdateProfile(ctx, "missing", &first, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, users.SetResetToken(ctx, "missing", "d", now), store.ErrNotFound)
}
