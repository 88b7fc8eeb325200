package discord

import (
	"bytes"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/prefeitura-rio/app-identidade/internal/bot"
)

// commandEvent converts a slash command interaction. ok is false for
// interactions that are not application commands.
func commandEvent(i *discordgo.InteractionCreate) (ev bot.CommandEvent, ok bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return bot.CommandEvent{}, false
	}
	data := i.ApplicationCommandData()

	ev = bot.CommandEvent{
		CorrelationID: correlationID(i.ID),
		Name:          data.Name,
		GuildID:       i.GuildID,
		ChannelID:     i.ChannelID,
	}
	switch {
	case i.Member != nil:
		ev.MemberRoles = i.Member.Roles
		if i.Member.User != nil {
			ev.UserID = i.Member.User.ID
		}
	case i.User != nil:
		ev.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		if opt == nil {
			continue
		}
		switch opt.Name {
		case optionNick:
			ev.Nickname = optionString(opt)
		case optionRG:
			ev.Fields.IDNumber = optionStringPtr(opt)
		case optionPorte:
			ev.Fields.CarryPermit = optionStringPtr(opt)
		case optionHabilitacao:
			ev.Fields.License = optionStringPtr(opt)
		case optionNascimento:
			ev.Fields.BirthDate = optionStringPtr(opt)
		case optionFoto:
			if v, isBool := opt.Value.(bool); isBool {
				ev.Photo = &v
			}
		case optionRole:
			ev.RoleID = optionString(opt)
		}
	}
	return ev, true
}

// optionString reads string and role options; roles arrive as their id
func optionString(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch v := opt.Value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func optionStringPtr(opt *discordgo.ApplicationCommandInteractionDataOption) *string {
	s := optionString(opt)
	return &s
}

// uploadEvent converts a guild message. ok is false for bot authors and
// direct messages.
func uploadEvent(m *discordgo.MessageCreate) (ev bot.UploadEvent, ok bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return bot.UploadEvent{}, false
	}

	ev = bot.UploadEvent{
		CorrelationID: correlationID(m.ID),
		GuildID:       m.GuildID,
		ChannelID:     m.ChannelID,
		UserID:        m.Author.ID,
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		ev.Attachments = append(ev.Attachments, bot.Attachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return ev, true
}

// correlationID prefers the platform id and falls back to a random one
func correlationID(platformID string) string {
	if platformID != "" {
		return platformID
	}
	return uuid.NewString()
}

func files(reply *bot.Reply) []*discordgo.File {
	if len(reply.Files) == 0 {
		return nil
	}
	out := make([]*discordgo.File, 0, len(reply.Files))
	for _, f := range reply.Files {
		out = append(out, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return out
}

// interactionResponse turns a reply into an immediate interaction response
func interactionResponse(reply *bot.Reply) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply.Content,
			Files:   files(reply),
		},
	}
}

// messageSend turns a reply into a message answering ref
func messageSend(reply *bot.Reply, ref *discordgo.MessageReference) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:   reply.Content,
		Files:     files(reply),
		Reference: ref,
	}
}
