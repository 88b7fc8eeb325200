package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sqliteDriver = "sqlite"

// SQLStore keeps documents in a SQL database through gorm
type SQLStore struct {
	db     *gorm.DB
	logger *logging.SafeLogger
}

// NewSQLStore migrates the schema and returns a store over db.
// Migration only creates what is missing, so it runs on every startup.
func NewSQLStore(db *gorm.DB, logger *logging.SafeLogger) (*SQLStore, error) {
	if err := db.AutoMigrate(&models.DocumentRecord{}, &models.GuildConfig{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", models.ErrStore, err)
	}

	logger.Info("sql schema ready",
		zap.Strings("tables", []string{models.DocumentRecord{}.TableName(), models.GuildConfig{}.TableName()}),
	)

	return &SQLStore{db: db, logger: logger}, nil
}

// UpsertDocument inserts or fully replaces a document row
func (s *SQLStore) UpsertDocument(ctx context.Context, record *models.DocumentRecord) (err error) {
	ctx, finish := observe(ctx, sqliteDriver, "upsert_document", models.DocumentRecord{}.TableName())
	defer func() { finish(err) }()

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(record)
	if result.Error != nil {
		return storeError("upsert document", result.Error)
	}
	return nil
}

// GetDocument loads a full document row
func (s *SQLStore) GetDocument(ctx context.Context, nickname string) (_ *models.DocumentRecord, err error) {
	ctx, finish := observe(ctx, sqliteDriver, "get_document", models.DocumentRecord{}.TableName())
	defer func() { finish(err) }()

	var record models.DocumentRecord
	result := s.db.WithContext(ctx).Where("nickname = ?", nickname).Take(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, nickname)
	}
	if result.Error != nil {
		return nil, storeError("get document", result.Error)
	}
	return &record, nil
}

// GetRenderedImage loads only the rendered image column
func (s *SQLStore) GetRenderedImage(ctx context.Context, nickname string) (_ []byte, err error) {
	ctx, finish := observe(ctx, sqliteDriver, "get_rendered_image", models.DocumentRecord{}.TableName())
	defer func() { finish(err) }()

	var record models.DocumentRecord
	result := s.db.WithContext(ctx).
		Select("nickname", "rendered_image").
		Where("nickname = ?", nickname).
		Take(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, nickname)
	}
	if result.Error != nil {
		return nil, storeError("get rendered image", result.Error)
	}
	return record.RenderedImage, nil
}

// SetGuildRole upserts the guild configuration row
func (s *SQLStore) SetGuildRole(ctx context.Context, guildID, roleID string) (err error) {
	ctx, finish := observe(ctx, sqliteDriver, "set_guild_role", models.GuildConfig{}.TableName())
	defer func() { finish(err) }()

	cfg := models.GuildConfig{GuildID: guildID, AuthorizedRole: roleID}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"authorized_role"}),
		}).
		Create(&cfg)
	if result.Error != nil {
		return storeError("set guild role", result.Error)
	}
	return nil
}

// GetGuildRole returns the configured role of a guild
func (s *SQLStore) GetGuildRole(ctx context.Context, guildID string) (_ string, err error) {
	ctx, finish := observe(ctx, sqliteDriver, "get_guild_role", models.GuildConfig{}.TableName())
	defer func() { finish(err) }()

	var cfg models.GuildConfig
	result := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Take(&cfg)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: guild %s", models.ErrNotFound, guildID)
	}
	if result.Error != nil {
		return "", storeError("get guild role", result.Error)
	}
	return cfg.AuthorizedRole, nil
}

// Ping checks the underlying connection
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storeError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

// Close releases the connection pool
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
