package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
	"go.uber.org/zap"
)

// GuildRoleReader is the part of the store the permission gate reads
type GuildRoleReader interface {
	GetGuildRole(ctx context.Context, guildID string) (string, error)
}

// PermissionService decides whether a member may create or edit documents
type PermissionService struct {
	roles  GuildRoleReader
	logger *logging.SafeLogger
}

// NewPermissionService creates a new permission service
func NewPermissionService(roles GuildRoleReader, logger *logging.SafeLogger) *PermissionService {
	return &PermissionService{
		roles:  roles,
		logger: logger,
	}
}

// IsAuthorized reports whether memberRoles contains the guild's authorized
// role. A guild without a configured role authorizes nobody.
func (s *PermissionService) IsAuthorized(ctx context.Context, guildID string, memberRoles []string) (bool, error) {
	ctx, span := utils.TraceBusinessLogic(ctx, "permission_check")
	defer span.End()

	role, err := s.roles.GetGuildRole(ctx, guildID)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Debug("no authorized role configured", zap.String("guild_id", guildID))
		utils.AddSpanAttribute(span, "permission.configured", false)
		return false, nil
	}
	if err != nil {
		utils.RecordErrorInSpan(span, err, map[string]interface{}{"guild_id": guildID})
		return false, fmt.Errorf("failed to load authorized role: %w", err)
	}

	allowed := role != "" && slices.Contains(memberRoles, role)
	utils.AddSpanAttribute(span, "permission.allowed", allowed)
	return allowed, nil
}
