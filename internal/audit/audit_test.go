package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
)

func TestNewEntryStampsFields(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()

	entry := NewEntry(ActionOrderPlaced, orderID, userID, map[string]any{"total": "15.97"})

	assert.Equal(t, ActionOrderPlaced, entry.Action)
	assert.Equal(t, orderID.String(), entry.EntityID)
	assert.Equal(t, userID.String(), entry.ActorID)
	assert.Equal(t, "15.97", entry.Data["total"])
	assert.WithinDuration(t, time.Now(), entry.CreatedAt, time.Minute)
}

func TestNewEntryOmitsNilActor(t *testing.T) {
	entry := NewEntry(ActionSweetDeleted, uuid.New(), uuid.Nil, nil)
	assert.Empty(t, entry.ActorID)
}

func TestNopStore(t *testing.T) {
	var store Store = Nop{}
	require.NoError(t, store.Record(context.Background(), Entry{Action: ActionSweetCreated}))

	entries, err := store.ListByEntity(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewMongoStoreRequiresURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), config.MongoConfig{})
	require.Error(t, err)
}

// Runs against a real server when SWEETSHOP_TEST_MONGO_URI is set.
func TestMongoStoreRoundTrip(t *testing.T) {
	uri := os.Getenv("SWEETSHOP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SWEETSHOP_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	store, err := NewMongoStore(ctx, config.MongoConfig{
		URI:             uri,
		Database:        "sweetshop_test",
		AuditCollection: "audit_" + uuid.NewString(),
		ConnectTimeout:  5 * time.Second,
		WriteTimeout:    time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.collection.Drop(context.Background())
		_ = store.Close(context.Background())
	})

	orderID := uuid.New()
	first := NewEntry(ActionOrderPlaced, orderID, uuid.New(), map[string]any{"items": int32(2)})
	first.CreatedAt = time.Now().Add(-time.Minute).UTC()
	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, NewEntry(ActionOrderPlaced, orderID, uuid.Nil, nil)))
	require.NoError(t, store.Record(ctx, NewEntry(ActionOrderPlaced, uuid.New(), uuid.Nil, nil)))

	entries, err := store.ListByEntity(ctx, orderID.String(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt), "expected newest first")
}
