package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const mongoDriver = "mongo"

// MongoStore keeps documents in two MongoDB collections
type MongoStore struct {
	db          *mongo.Database
	documents   *mongo.Collection
	guildConfig *mongo.Collection
	logger      *logging.SafeLogger
}

// NewMongoStore binds the collections and ensures their unique indexes
func NewMongoStore(ctx context.Context, db *mongo.Database, documentsCollection, guildConfigCollection string, logger *logging.SafeLogger) (*MongoStore, error) {
	s := &MongoStore{
		db:          db,
		documents:   db.Collection(documentsCollection),
		guildConfig: db.Collection(guildConfigCollection),
		logger:      logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%w: ensure indexes: %v", models.ErrStore, err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		field      string
	}{
		{s.documents, "nickname"},
		{s.guildConfig, "guild_id"},
	}

	for _, idx := range indexes {
		created, err := utils.EnsureUniqueIndex(ctx, idx.collection, idx.field)
		if err != nil {
			s.logger.Error("failed to create index",
				zap.String("collection", idx.collection.Name()),
				zap.String("field", idx.field),
				zap.Error(err))
			return err
		}
		if created {
			s.logger.Info("created collection index",
				zap.String("collection", idx.collection.Name()),
				zap.String("index", idx.field+"_1"))
		}
	}
	return nil
}

// UpsertDocument replaces the document with the same nickname
func (s *MongoStore) UpsertDocument(ctx context.Context, record *models.DocumentRecord) (err error) {
	ctx, finish := observe(ctx, mongoDriver, "upsert_document", s.documents.Name())
	defer func() { finish(err) }()

	_, err = utils.ReplaceOneWithUpsert(ctx, s.documents, bson.M{"nickname": record.Nickname}, record, utils.DefaultQueryTimeout)
	if err != nil {
		return storeError("upsert document", err)
	}
	return nil
}

// GetDocument loads a full document
func (s *MongoStore) GetDocument(ctx context.Context, nickname string) (_ *models.DocumentRecord, err error) {
	ctx, finish := observe(ctx, mongoDriver, "get_document", s.documents.Name())
	defer func() { finish(err) }()

	var record models.DocumentRecord
	err = utils.FindOneWithTimeout(ctx, s.documents, bson.M{"nickname": nickname}, &record, utils.DefaultQueryTimeout)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, nickname)
	}
	if err != nil {
		return nil, storeError("get document", err)
	}
	return &record, nil
}

// GetRenderedImage loads only the rendered image field
func (s *MongoStore) GetRenderedImage(ctx context.Context, nickname string) (_ []byte, err error) {
	ctx, finish := observe(ctx, mongoDriver, "get_rendered_image", s.documents.Name())
	defer func() { finish(err) }()

	var record models.DocumentRecord
	err = utils.FindOneWithProjectionAndTimeout(ctx, s.documents,
		bson.M{"nickname": nickname},
		bson.M{"rendered_image": 1},
		&record, utils.DefaultQueryTimeout)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, nickname)
	}
	if err != nil {
		return nil, storeError("get rendered image", err)
	}
	return record.RenderedImage, nil
}

// SetGuildRole upserts the guild configuration
func (s *MongoStore) SetGuildRole(ctx context.Context, guildID, roleID string) (err error) {
	ctx, finish := observe(ctx, mongoDriver, "set_guild_role", s.guildConfig.Name())
	defer func() { finish(err) }()

	cfg := models.GuildConfig{GuildID: guildID, AuthorizedRole: roleID}
	if _, err = utils.ReplaceOneWithUpsert(ctx, s.guildConfig, bson.M{"guild_id": guildID}, cfg, utils.DefaultQueryTimeout); err != nil {
		return storeError("set guild role", err)
	}
	return nil
}

// GetGuildRole returns the configured role of a guild
func (s *MongoStore) GetGuildRole(ctx context.Context, guildID string) (_ string, err error) {
	ctx, finish := observe(ctx, mongoDriver, "get_guild_role", s.guildConfig.Name())
	defer func() { finish(err) }()

	var cfg models.GuildConfig
	err = utils.FindOneWithTimeout(ctx, s.guildConfig, bson.M{"guild_id": guildID}, &cfg, utils.DefaultQueryTimeout)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("%w: guild %s", models.ErrNotFound, guildID)
	}
	if err != nil {
		return "", storeError("get guild role", err)
	}
	return cfg.AuthorizedRole, nil
}

// Ping checks the primary is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return storeError("ping", err)
	}
	return nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	return s.db.Client().Disconnect(context.Background())
}
