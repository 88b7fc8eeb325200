package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/storage"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
	"go.uber.org/zap"
)

// DocumentService builds complete records and serves rendered cards
type DocumentService struct {
	store    storage.Store
	renderer CardRenderer
	cache    *ViewCache
	locks    *utils.KeyedLock
	location *time.Location
	now      func() time.Time
	serial   func() string
	logger   *logging.SafeLogger
}

// NewDocumentService creates a new document service. Issue dates are
// formatted in location.
func NewDocumentService(store storage.Store, renderer CardRenderer, cache *ViewCache, location *time.Location, logger *logging.SafeLogger) *DocumentService {
	return &DocumentService{
		store:    store,
		renderer: renderer,
		cache:    cache,
		locks:    utils.NewKeyedLock(),
		location: location,
		now:      time.Now,
		serial:   utils.GenerateSerial,
		logger:   logger,
	}
}

// Save writes draft as a new version of its record with a fresh serial,
// issue date and rendered image.
func (s *DocumentService) Save(ctx context.Context, draft models.DocumentDraft) (*models.DocumentRecord, error) {
	unlock := s.locks.Lock(draft.Nickname)
	defer unlock()

	previous, err := s.store.GetDocument(ctx, draft.Nickname)
	switch {
	case errors.Is(err, models.ErrNotFound):
		previous = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load document %s: %w", draft.Nickname, err)
	}
	return s.saveLocked(ctx, draft, previous)
}

// UpdateFields merges overrides into the stored record and writes it back
// with its existing photo. Returns models.ErrNotFound when nickname has no record.
func (s *DocumentService) UpdateFields(ctx context.Context, nickname string, overrides models.FieldOverrides) (*models.DocumentRecord, error) {
	unlock := s.locks.Lock(nickname)
	defer unlock()

	existing, err := s.store.GetDocument(ctx, nickname)
	if err != nil {
		return nil, err
	}

	draft := existing.Draft()
	draft.Fields = draft.Fields.Merge(overrides)
	return s.saveLocked(ctx, draft, existing)
}

// nextSerial draws a serial that differs from the one being replaced
func (s *DocumentService) nextSerial(previous *models.DocumentRecord) string {
	for {
		serial := s.serial()
		if previous == nil || serial != previous.Serial {
			return serial
		}
	}
}

// saveLocked writes a new version of draft. previous is the record being
// replaced, or nil for a first write.
func (s *DocumentService) saveLocked(ctx context.Context, draft models.DocumentDraft, previous *models.DocumentRecord) (*models.DocumentRecord, error) {
	ctx, span := utils.TraceBusinessLogic(ctx, "save_document")
	defer span.End()
	utils.AddSpanAttribute(span, "document.nickname", draft.Nickname)

	record := &models.DocumentRecord{
		Nickname:       draft.Nickname,
		DocumentFields: draft.Fields,
		Photo:          draft.Photo,
		Serial:         s.nextSerial(previous),
		IssuedOn:       utils.FormatIssueDate(s.now(), s.location),
	}

	image, err := s.renderer.Render(ctx, CardData{
		Nickname: record.Nickname,
		Fields:   record.DocumentFields,
		Photo:    record.Photo,
		Serial:   record.Serial,
		IssuedOn: record.IssuedOn,
	})
	if err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		return nil, fmt.Errorf("failed to render document %s: %w", draft.Nickname, err)
	}
	record.RenderedImage = image

	// the cached view is dropped even when the write fails
	s.cache.Delete(record.Nickname)
	if err := s.store.UpsertDocument(ctx, record); err != nil {
		utils.RecordErrorInSpan(span, err, nil)
		return nil, fmt.Errorf("failed to store document %s: %w", draft.Nickname, err)
	}
	s.cache.Set(record.Nickname, record.RenderedImage)

	s.logger.Info("document saved",
		zap.String("nickname", record.Nickname),
		zap.String("serial", record.Serial),
		zap.Int("image_bytes", len(record.RenderedImage)),
	)
	return record, nil
}

// Get returns the stored record for nickname
func (s *DocumentService) Get(ctx context.Context, nickname string) (*models.DocumentRecord, error) {
	return s.store.GetDocument(ctx, nickname)
}

// RenderedImage returns the stored card image for nickname, served from
// the view cache when possible.
func (s *DocumentService) RenderedImage(ctx context.Context, nickname string) ([]byte, error) {
	_, span, cleanup := utils.TraceCacheOperation(ctx, "get", nickname)
	image, ok := s.cache.Get(nickname)
	utils.AddSpanAttribute(span, "cache.hit", ok)
	cleanup()
	if ok {
		return image, nil
	}

	// held so a concurrent save cannot be overwritten by the older stored image
	unlock := s.locks.Lock(nickname)
	defer unlock()

	if image, ok := s.cache.Get(nickname); ok {
		return image, nil
	}

	image, err := s.store.GetRenderedImage(ctx, nickname)
	if err != nil {
		return nil, err
	}
	s.cache.Set(nickname, image)
	return image, nil
}
