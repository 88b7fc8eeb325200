package models

import (
	"fmt"
	"time"
)

// SessionMode tags what a pending session is waiting for.
type SessionMode string

const (
	// SessionModeCreate awaits the photo of a new document
	SessionModeCreate SessionMode = "create"
	// SessionModeEditAwaitingPhoto awaits the replacement photo of an edit
	SessionModeEditAwaitingPhoto SessionMode = "edit_awaiting_photo"
)

// Validate checks that the mode is one of the known tags
func (m SessionMode) Validate() error {
	switch m {
	case SessionModeCreate, SessionModeEditAwaitingPhoto:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSessionMode, string(m))
	}
}

// AcceptsUpload reports whether an image upload may complete this mode
func (m SessionMode) AcceptsUpload() bool {
	return m == SessionModeCreate || m == SessionModeEditAwaitingPhoto
}

// PendingSession is an in-progress create or edit owned by one user.
type PendingSession struct {
	Mode          SessionMode    `json:"mode"`
	UserID        string         `json:"user_id"`
	GuildID       string         `json:"guild_id"`
	OriginChannel string         `json:"origin_channel"`
	Nickname      string         `json:"nickname"`
	Fields        DocumentFields `json:"fields"`
	Photo         []byte         `json:"photo,omitempty"`
	// WantsPhoto records the foto option as sent; create always awaits a photo
	WantsPhoto bool      `json:"wants_photo"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the session is older than ttl. A zero ttl never expires.
func (s *PendingSession) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.CreatedAt) > ttl
}

// AcceptsUploadFrom reports whether an upload in channelID may complete the session
func (s *PendingSession) AcceptsUploadFrom(channelID string) bool {
	return s.Mode.AcceptsUpload() && s.OriginChannel == channelID
}

// Draft returns the record draft with photo replacing the session photo when set
func (s *PendingSession) Draft(photo []byte) DocumentDraft {
	if photo == nil {
		photo = s.Photo
	}
	return DocumentDraft{
		Nickname: s.Nickname,
		Fields:   s.Fields,
		Photo:    photo,
	}
}
