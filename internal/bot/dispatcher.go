package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/observability"
	"github.com/prefeitura-rio/app-identidade/internal/services"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
	"go.uber.org/zap"
)

// RoleWriter stores the authorized role of a guild
type RoleWriter interface {
	SetGuildRole(ctx context.Context, guildID, roleID string) error
}

// PermissionChecker decides whether a member may create or edit documents
type PermissionChecker interface {
	IsAuthorized(ctx context.Context, guildID string, memberRoles []string) (bool, error)
}

// DocumentWriter builds, stores and serves documents
type DocumentWriter interface {
	Save(ctx context.Context, draft models.DocumentDraft) (*models.DocumentRecord, error)
	UpdateFields(ctx context.Context, nickname string, overrides models.FieldOverrides) (*models.DocumentRecord, error)
	Get(ctx context.Context, nickname string) (*models.DocumentRecord, error)
	RenderedImage(ctx context.Context, nickname string) ([]byte, error)
}

// AttachmentFetcher downloads the bytes of an uploaded attachment
type AttachmentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Dispatcher runs the command and upload state machine
type Dispatcher struct {
	roles       RoleWriter
	permissions PermissionChecker
	sessions    services.SessionStore
	documents   DocumentWriter
	fetcher     AttachmentFetcher
	userLocks   *utils.KeyedLock
	now         func() time.Time
	logger      *logging.SafeLogger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(roles RoleWriter, permissions PermissionChecker, sessions services.SessionStore, documents DocumentWriter, fetcher AttachmentFetcher, logger *logging.SafeLogger) *Dispatcher {
	return &Dispatcher{
		roles:       roles,
		permissions: permissions,
		sessions:    sessions,
		documents:   documents,
		fetcher:     fetcher,
		userLocks:   utils.NewKeyedLock(),
		now:         time.Now,
		logger:      logger,
	}
}

// HandleCommand runs one slash command. Internal failures are logged and
// produce no reply.
func (d *Dispatcher) HandleCommand(ctx context.Context, ev CommandEvent) *Reply {
	start := time.Now()
	ctx, span := utils.TraceBusinessLogic(ctx, "command")
	defer span.End()
	utils.AddSpanAttribute(span, "command.name", ev.Name)

	logger := d.logger.With(
		zap.String("correlation_id", ev.CorrelationID),
		zap.String("command", ev.Name),
		zap.String("guild_id", ev.GuildID),
		zap.String("user_id", ev.UserID),
	)

	// every path may touch the user's session
	unlock := d.userLocks.Lock(ev.UserID)
	defer unlock()

	var (
		reply *Reply
		err   error
	)
	switch ev.Name {
	case CommandSetRole:
		reply, err = d.setRole(ctx, ev)
	case CommandCreate:
		reply, err = d.create(ctx, ev)
	case CommandEdit:
		reply, err = d.edit(ctx, ev)
	case CommandView:
		reply, err = d.view(ctx, ev)
	default:
		logger.Warn("unknown command")
		observability.CommandsTotal.WithLabelValues("unknown", "ignored").Inc()
		return nil
	}

	result := commandResult(reply, err)
	observability.CommandsTotal.WithLabelValues(ev.Name, result).Inc()
	observability.CommandDuration.WithLabelValues(ev.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		utils.RecordErrorInSpan(span, err, map[string]interface{}{"command.name": ev.Name})
		logger.Error("command failed",
			zap.String("nickname", ev.Nickname),
			zap.Error(err))
		return nil
	}

	logger.Debug("command handled",
		zap.String("nickname", ev.Nickname),
		zap.String("result", result),
		zap.Duration("duration", time.Since(start)))
	return reply
}

func commandResult(reply *Reply, err error) string {
	switch {
	case err != nil:
		return "error"
	case reply == nil:
		return "ignored"
	case reply.Content == ReplyNotAuthorized:
		return "denied"
	case reply.Content == ReplyNotFound:
		return "not_found"
	default:
		return "ok"
	}
}

// expectedReply maps expected denials to their reply
func expectedReply(err error) (*Reply, bool) {
	if !models.IsExpected(err) {
		return nil, false
	}
	if errors.Is(err, models.ErrNotAuthorized) {
		return textReply(ReplyNotAuthorized), true
	}
	return textReply(ReplyNotFound), true
}

func (d *Dispatcher) setRole(ctx context.Context, ev CommandEvent) (*Reply, error) {
	if err := d.roles.SetGuildRole(ctx, ev.GuildID, ev.RoleID); err != nil {
		return nil, fmt.Errorf("failed to set authorized role: %w", err)
	}
	d.logger.Info("authorized role set",
		zap.String("correlation_id", ev.CorrelationID),
		zap.String("guild_id", ev.GuildID),
		zap.String("role_id", ev.RoleID))
	return textReply(ReplyRoleSet), nil
}

// authorize returns models.ErrNotAuthorized when the member lacks the role
func (d *Dispatcher) authorize(ctx context.Context, ev CommandEvent) error {
	allowed, err := d.permissions.IsAuthorized(ctx, ev.GuildID, ev.MemberRoles)
	if err != nil {
		return err
	}
	if !allowed {
		return models.ErrNotAuthorized
	}
	return nil
}

func (d *Dispatcher) create(ctx context.Context, ev CommandEvent) (*Reply, error) {
	if err := d.authorize(ctx, ev); err != nil {
		if reply, ok := expectedReply(err); ok {
			return reply, nil
		}
		return nil, err
	}

	// a photo is always awaited; the foto option is only recorded
	session := &models.PendingSession{
		Mode:          models.SessionModeCreate,
		UserID:        ev.UserID,
		GuildID:       ev.GuildID,
		OriginChannel: ev.ChannelID,
		Nickname:      ev.Nickname,
		Fields:        models.DocumentFields{}.Merge(ev.Fields),
		WantsPhoto:    ev.WantsPhoto(),
		CreatedAt:     d.now(),
	}
	if err := d.sessions.Begin(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to open create session: %w", err)
	}
	return textReply(ReplySendImage), nil
}

func (d *Dispatcher) edit(ctx context.Context, ev CommandEvent) (*Reply, error) {
	if err := d.authorize(ctx, ev); err != nil {
		if reply, ok := expectedReply(err); ok {
			return reply, nil
		}
		return nil, err
	}

	if !ev.WantsPhoto() {
		if _, err := d.documents.UpdateFields(ctx, ev.Nickname, ev.Fields); err != nil {
			if reply, ok := expectedReply(err); ok {
				return reply, nil
			}
			return nil, err
		}
		if err := d.sessions.End(ctx, ev.UserID); err != nil {
			return nil, fmt.Errorf("failed to end session after edit: %w", err)
		}
		return textReply(ReplyUpdated), nil
	}

	existing, err := d.documents.Get(ctx, ev.Nickname)
	if err != nil {
		if reply, ok := expectedReply(err); ok {
			return reply, nil
		}
		return nil, err
	}

	session := &models.PendingSession{
		Mode:          models.SessionModeEditAwaitingPhoto,
		UserID:        ev.UserID,
		GuildID:       ev.GuildID,
		OriginChannel: ev.ChannelID,
		Nickname:      ev.Nickname,
		Fields:        existing.DocumentFields.Merge(ev.Fields),
		Photo:         existing.Photo,
		WantsPhoto:    true,
		CreatedAt:     d.now(),
	}
	if err := d.sessions.Begin(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to open edit session: %w", err)
	}
	return textReply(ReplySendNewPhoto), nil
}

func (d *Dispatcher) view(ctx context.Context, ev CommandEvent) (*Reply, error) {
	image, err := d.documents.RenderedImage(ctx, ev.Nickname)
	if err != nil {
		if reply, ok := expectedReply(err); ok {
			return reply, nil
		}
		return nil, err
	}
	return imageReply("", ev.Nickname, image), nil
}

// HandleUpload completes the user's pending session with the first attached
// image. Messages that do not complete a session are ignored.
func (d *Dispatcher) HandleUpload(ctx context.Context, ev UploadEvent) *Reply {
	ctx, span := utils.TraceBusinessLogic(ctx, "upload")
	defer span.End()

	logger := d.logger.With(
		zap.String("correlation_id", ev.CorrelationID),
		zap.String("guild_id", ev.GuildID),
		zap.String("channel_id", ev.ChannelID),
		zap.String("user_id", ev.UserID),
	)

	unlock := d.userLocks.Lock(ev.UserID)
	defer unlock()

	reply, err := d.upload(ctx, ev)
	switch {
	case err != nil:
		observability.UploadsTotal.WithLabelValues("error").Inc()
		utils.RecordErrorInSpan(span, err, nil)
		logger.Error("upload failed", zap.Error(err))
		return nil
	case reply == nil:
		observability.UploadsTotal.WithLabelValues("ignored").Inc()
		return nil
	default:
		observability.UploadsTotal.WithLabelValues("saved").Inc()
		return reply
	}
}

func (d *Dispatcher) upload(ctx context.Context, ev UploadEvent) (*Reply, error) {
	session, err := d.sessions.Get(ctx, ev.UserID)
	if errors.Is(err, models.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !session.AcceptsUploadFrom(ev.ChannelID) {
		return nil, nil
	}
	if len(ev.Attachments) == 0 || !ev.Attachments[0].IsImage() {
		return nil, nil
	}

	photo, err := d.fetcher.Fetch(ctx, ev.Attachments[0].URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment for %s: %w", session.Nickname, err)
	}

	record, err := d.documents.Save(ctx, session.Draft(photo))
	if err != nil {
		return nil, err
	}

	d.logger.Info("document completed from upload",
		zap.String("correlation_id", ev.CorrelationID),
		zap.String("mode", string(session.Mode)),
		zap.String("nickname", record.Nickname),
		zap.String("serial", record.Serial))

	// The session stays open until the reply is delivered so a failed send
	// can be retried with another upload.
	reply := imageReply(ReplySaved, record.Nickname, record.RenderedImage)
	reply.AfterSend = func(ctx context.Context) {
		d.finishSession(ctx, ev, session)
	}
	return reply, nil
}

// finishSession ends the session an upload completed, unless a newer command
// replaced it in the meantime.
func (d *Dispatcher) finishSession(ctx context.Context, ev UploadEvent, completed *models.PendingSession) {
	unlock := d.userLocks.Lock(ev.UserID)
	defer unlock()

	logger := d.logger.With(
		zap.String("correlation_id", ev.CorrelationID),
		zap.String("user_id", ev.UserID),
	)

	current, err := d.sessions.Get(ctx, ev.UserID)
	if errors.Is(err, models.ErrNoSession) {
		return
	}
	if err != nil {
		logger.Error("failed to load session after delivery", zap.Error(err))
		return
	}
	if !sameSession(current, completed) {
		logger.Debug("session replaced before delivery, keeping it")
		return
	}

	if err := d.sessions.End(ctx, ev.UserID); err != nil {
		logger.Error("failed to end session after delivery", zap.Error(err))
	}
}

func sameSession(a, b *models.PendingSession) bool {
	return a.Mode == b.Mode &&
		a.Nickname == b.Nickname &&
		a.OriginChannel == b.OriginChannel &&
		a.CreatedAt.Equal(b.CreatedAt)
}
