// Package discord connects the dispatcher to the Discord gateway.
package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/prefeitura-rio/app-identidade/internal/bot"
)

// Option names shared by the command definitions and the event conversion
const (
	optionNick        = "nick"
	optionRG          = "rg"
	optionPorte       = "porte"
	optionHabilitacao = "habilitacao"
	optionNascimento  = "nascimento"
	optionFoto        = "foto"
	optionRole        = "role"
)

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func boolOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

// Commands returns the slash command definitions. With restrictRole the
// role command defaults to members who can manage the server.
func Commands(restrictRole bool) []*discordgo.ApplicationCommand {
	dmPermission := false

	setRole := &discordgo.ApplicationCommand{
		Name:         bot.CommandSetRole,
		Description:  "Definir role autorizada",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        optionRole,
			Description: "Role autorizada",
			Required:    true,
		}},
	}
	if restrictRole {
		manageGuild := int64(discordgo.PermissionManageGuild)
		setRole.DefaultMemberPermissions = &manageGuild
	}

	return []*discordgo.ApplicationCommand{
		setRole,
		{
			Name:         bot.CommandCreate,
			Description:  "Criar documento",
			DMPermission: &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(optionNick, "Nick", true),
				stringOption(optionRG, "RG", true),
				stringOption(optionPorte, "Porte", true),
				stringOption(optionHabilitacao, "Habilitação", true),
				stringOption(optionNascimento, "Nascimento", true),
				boolOption(optionFoto, "Enviar foto", true),
			},
		},
		{
			Name:         bot.CommandEdit,
			Description:  "Editar documento",
			DMPermission: &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(optionNick, "Nick", true),
				stringOption(optionRG, "RG", false),
				stringOption(optionPorte, "Porte", false),
				stringOption(optionHabilitacao, "Habilitação", false),
				stringOption(optionNascimento, "Nascimento", false),
				boolOption(optionFoto, "Atualizar foto", false),
			},
		},
		{
			Name:         bot.CommandView,
			Description:  "Ver documento",
			DMPermission: &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(optionNick, "Nick", true),
			},
		},
	}
}
