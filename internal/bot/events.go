// Package bot turns chat commands and image uploads into document operations.
package bot

import (
	"context"
	"strings"

	"github.com/prefeitura-rio/app-identidade/internal/models"
)

// Command names as registered with the platform
const (
	CommandSetRole = "id-role"
	CommandCreate  = "id-create"
	CommandEdit    = "id-edit"
	CommandView    = "id"
)

// Reply texts
const (
	ReplyRoleSet        = "Role autorizada definida."
	ReplyNotAuthorized  = "Você não tem permissão."
	ReplySendImage      = "Envie a **IMAGEM** neste chat."
	ReplyNotFound       = "Documento não encontrado."
	ReplySendNewPhoto   = "Envie a **nova FOTO**."
	ReplyUpdated        = "Documento atualizado."
	ReplySaved          = "Documento salvo:"
	imageContentPrefix  = "image/"
	renderedContentType = "image/png"
)

// CommandEvent is one slash command invocation
type CommandEvent struct {
	CorrelationID string
	Name          string
	GuildID       string
	ChannelID     string
	UserID        string
	MemberRoles   []string

	// Nickname is the nick option of create, edit and view
	Nickname string
	// Fields holds the options that were supplied; absent ones are nil
	Fields models.FieldOverrides
	// Photo is the foto option; nil when omitted
	Photo *bool
	// RoleID is the role option of id-role
	RoleID string
}

// WantsPhoto reports whether the foto option was sent as true
func (e CommandEvent) WantsPhoto() bool {
	return e.Photo != nil && *e.Photo
}

// Attachment describes one file attached to a message
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
	Size        int
}

// IsImage reports whether the platform tagged the attachment as an image
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, imageContentPrefix)
}

// UploadEvent is a message posted by a user in a guild channel
type UploadEvent struct {
	CorrelationID string
	GuildID       string
	ChannelID     string
	UserID        string
	Attachments   []Attachment
}

// File is an outgoing attachment
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Reply is what the platform adapter sends back. A nil *Reply means stay silent.
type Reply struct {
	Content string
	Files   []File

	// AfterSend runs once the platform has accepted the reply. It stays
	// unset for replies that need no follow-up.
	AfterSend func(ctx context.Context)
}

// Sent runs AfterSend, if any. Adapters call it only after a successful send.
func (r *Reply) Sent(ctx context.Context) {
	if r == nil || r.AfterSend == nil {
		return
	}
	r.AfterSend(ctx)
}

func textReply(content string) *Reply {
	return &Reply{Content: content}
}

func imageReply(content, nickname string, image []byte) *Reply {
	return &Reply{
		Content: content,
		Files: []File{{
			Name:        nickname + ".png",
			ContentType: renderedContentType,
			Data:        image,
		}},
	}
}
