package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectMongo_BadURI(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://bad:uri")
	client, err := ConnectMongo()
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestMongoSlot_NilCollection(t *testing.T) {
	slot := &MongoSlot{Collection: nil, Key: FleetSlotName}

	_, err := slot.Get(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotEmpty)

	assert.Error(t, slot.Put(context.Background(), []byte("[]")))
	assert.Error(t, slot.Delete(context.Background()))
}

// Integration test (requires running MongoDB)
func TestMongoSlot_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
		return
	}
	client, err := ConnectMongoURI(uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	defer client.Disconnect(context.Background())

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "test_fleet"
	}
	slot := NewMongoSlot(client.Database(dbName).Collection("slots"), "test:"+FleetSlotName)
	ctx := context.Background()
	require.NoError(t, slot.Delete(ctx))

	_, err = slot.Get(ctx)
	assert.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, slot.Put(ctx, []byte(`[{"utts":"A"}]`)))
	require.NoError(t, slot.Put(ctx, []byte(`[{"utts":"B"}]`)))

	got, err := slot.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[{"utts":"B"}]`, string(got))

	require.NoError(t, slot.Delete(ctx))
}
