// Package storage persists documents and guild configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/observability"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
)

// Store is the persistence provider used by the services
type Store interface {
	// UpsertDocument replaces the full record stored under record.Nickname
	UpsertDocument(ctx context.Context, record *models.DocumentRecord) error
	// GetDocument returns models.ErrNotFound when the nickname has no record
	GetDocument(ctx context.Context, nickname string) (*models.DocumentRecord, error)
	// GetRenderedImage returns only the rendered PNG of a record
	GetRenderedImage(ctx context.Context, nickname string) ([]byte, error)
	// SetGuildRole upserts the authorized role of a guild
	SetGuildRole(ctx context.Context, guildID, roleID string) error
	// GetGuildRole returns models.ErrNotFound when the guild has no role configured
	GetGuildRole(ctx context.Context, guildID string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

// observe opens a span for a store call and returns the function that
// records its outcome.
func observe(ctx context.Context, driver, operation, table string) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span, cleanup := utils.TraceDatabaseOperation(ctx, driver, operation, table)

	return ctx, func(err error) {
		status := "success"
		switch {
		case err == nil:
		case isNotFound(err):
			status = "not_found"
		default:
			status = "error"
			utils.RecordErrorInSpan(span, err, map[string]interface{}{
				"db.duration_ms": time.Since(start).Milliseconds(),
			})
		}
		observability.StoreOperations.WithLabelValues(driver, operation, status).Inc()
		cleanup()
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// storeError wraps a driver failure in models.ErrStore
func storeError(operation string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrStore, operation, err)
}
