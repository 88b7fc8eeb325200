package utils

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultQueryTimeout bounds a single MongoDB call
const DefaultQueryTimeout = 10 * time.Second

// FindOneWithTimeout decodes the first document matching filter into result
func FindOneWithTimeout(ctx context.Context, collection *mongo.Collection, filter bson.M, result interface{}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return collection.FindOne(ctx, filter).Decode(result)
}

// FindOneWithProjectionAndTimeout is FindOneWithTimeout restricted to the projected fields
func FindOneWithProjectionAndTimeout(ctx context.Context, collection *mongo.Collection, filter bson.M, projection bson.M, result interface{}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.FindOne().SetProjection(projection)
	return collection.FindOne(ctx, filter, opts).Decode(result)
}

// ReplaceOneWithUpsert replaces the document matching filter, inserting it when absent
func ReplaceOneWithUpsert(ctx context.Context, collection *mongo.Collection, filter bson.M, replacement interface{}, timeout time.Duration) (*mongo.UpdateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	return collection.ReplaceOne(ctx, filter, replacement, opts)
}

// EnsureUniqueIndex creates a named unique index on field unless it already exists
func EnsureUniqueIndex(ctx context.Context, collection *mongo.Collection, field string) (created bool, err error) {
	name := field + "_1"

	// listing fails on a collection that does not exist yet; create straight away then
	if cursor, err := collection.Indexes().List(ctx); err == nil {
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			var index bson.M
			if err := cursor.Decode(&index); err != nil {
				continue
			}
			if existing, ok := index["name"].(string); ok && existing == name {
				return false, nil
			}
		}
	}

	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetName(name).SetUnique(true),
	})
	if err != nil {
		// another instance won the race
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
