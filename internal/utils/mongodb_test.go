package utils

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupMongoDBUtilsTest connects to MONGODB_URI and returns a scratch collection
func setupMongoDBUtilsTest(t *testing.T) (*mongo.Collection, func()) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration tests: MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB not available or authentication failed: %v", err)
	}

	collection := client.Database("test_identidade_utils").Collection("test_mongodb_utils")
	_ = collection.Drop(ctx)

	return collection, func() {
		_ = collection.Drop(ctx)
		_ = client.Disconnect(ctx)
	}
}

type nicknameDoc struct {
	Nickname string `bson:"nickname"`
	Serial   string `bson:"serial"`
	Photo    []byte `bson:"photo,omitempty"`
}

func TestReplaceOneWithUpsert(t *testing.T) {
	collection, cleanup := setupMongoDBUtilsTest(t)
	defer cleanup()

	ctx := context.Background()
	filter := bson.M{"nickname": "alice"}

	result, err := ReplaceOneWithUpsert(ctx, collection, filter, nicknameDoc{Nickname: "alice", Serial: "111-111-111", Photo: []byte{1}}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.UpsertedCount)

	result, err = ReplaceOneWithUpsert(ctx, collection, filter, nicknameDoc{Nickname: "alice", Serial: "222-222-222"}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.MatchedCount)

	var got nicknameDoc
	require.NoError(t, FindOneWithTimeout(ctx, collection, filter, &got, 5*time.Second))
	assert.Equal(t, "222-222-222", got.Serial)
	assert.Nil(t, got.Photo, "replace must not keep fields from the previous document")

	count, err := collection.CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFindOneWithProjectionAndTimeout(t *testing.T) {
	collection, cleanup := setupMongoDBUtilsTest(t)
	defer cleanup()

	ctx := context.Background()
	_, err := collection.InsertOne(ctx, nicknameDoc{Nickname: "bob", Serial: "123-456-789", Photo: []byte{7}})
	require.NoError(t, err)

	var got nicknameDoc
	err = FindOneWithProjectionAndTimeout(ctx, collection, bson.M{"nickname": "bob"}, bson.M{"serial": 1}, &got, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "123-456-789", got.Serial)
	assert.Empty(t, got.Nickname)
	assert.Nil(t, got.Photo)

	err = FindOneWithTimeout(ctx, collection, bson.M{"nickname": "missing"}, &got, 5*time.Second)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestEnsureUniqueIndex(t *testing.T) {
	collection, cleanup := setupMongoDBUtilsTest(t)
	defer cleanup()

	ctx := context.Background()
	_, err := collection.InsertOne(ctx, nicknameDoc{Nickname: "seed"})
	require.NoError(t, err)

	created, err := EnsureUniqueIndex(ctx, collection, "nickname")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureUniqueIndex(ctx, collection, "nickname")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = collection.InsertOne(ctx, nicknameDoc{Nickname: "dup"})
	require.NoError(t, err)
	_, err = collection.InsertOne(ctx, nicknameDoc{Nickname: "dup"})
	assert.True(t, mongo.IsDuplicateKeyError(err))
}
