package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prefeitura-rio/app-identidade/internal/bot"
	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/observability"
	"go.uber.org/zap"
)

// EventHandler consumes converted platform events
type EventHandler interface {
	HandleCommand(ctx context.Context, ev bot.CommandEvent) *bot.Reply
	HandleUpload(ctx context.Context, ev bot.UploadEvent) *bot.Reply
}

// api is the subset of *discordgo.Session the bot calls
type api interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Options configures the Discord bot
type Options struct {
	// GuildID registers commands to a single guild instead of globally
	GuildID string
	// RestrictRoleCommand limits id-role to members who can manage the server
	RestrictRoleCommand bool
	// HandlerTimeout bounds the work done for a single event
	HandlerTimeout time.Duration
}

// Bot owns the gateway session and routes its events to the handler
type Bot struct {
	session *discordgo.Session
	api     api
	handler EventHandler
	opts    Options
	logger  *logging.SafeLogger
}

// New creates a bot for token. The gateway connection is opened by Open.
func New(token string, handler EventHandler, opts Options, logger *logging.SafeLogger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	b := newBot(session, handler, opts, logger)
	b.session = session

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onMessageCreate)
	return b, nil
}

func newBot(client api, handler EventHandler, opts Options, logger *logging.SafeLogger) *Bot {
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 30 * time.Second
	}
	return &Bot{
		api:     client,
		handler: handler,
		opts:    opts,
		logger:  logger.Named("discord"),
	}
}

// Open connects to the gateway
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("%w: open gateway: %v", models.ErrTransport, err)
	}
	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		b.logger.Error("ready event without user")
		return
	}
	b.logger.Info("connected to gateway",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))

	if err := b.registerCommands(r.User.ID); err != nil {
		b.logger.Error("failed to register commands", zap.Error(err))
	}
}

// registerCommands replaces the application's command set
func (b *Bot) registerCommands(appID string) error {
	commands := Commands(b.opts.RestrictRoleCommand)
	registered, err := b.api.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, commands)
	if err != nil {
		return fmt.Errorf("%w: bulk overwrite commands: %v", models.ErrTransport, err)
	}

	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name)
	}
	b.logger.Info("commands registered",
		zap.String("guild_id", b.opts.GuildID),
		zap.Strings("commands", names))
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handleInteraction(i)
}

func (b *Bot) handleInteraction(i *discordgo.InteractionCreate) {
	defer b.recoverEvent("interaction")

	ev, ok := commandEvent(i)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.HandlerTimeout)
	defer cancel()

	reply := b.handler.HandleCommand(ctx, ev)
	if reply == nil {
		return
	}

	if err := b.api.InteractionRespond(i.Interaction, interactionResponse(reply)); err != nil {
		b.logger.Error("failed to respond to interaction",
			zap.String("correlation_id", ev.CorrelationID),
			zap.String("command", ev.Name),
			zap.Error(fmt.Errorf("%w: %v", models.ErrTransport, err)))
		return
	}
	reply.Sent(ctx)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(m)
}

func (b *Bot) handleMessage(m *discordgo.MessageCreate) {
	defer b.recoverEvent("message")

	ev, ok := uploadEvent(m)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.HandlerTimeout)
	defer cancel()

	reply := b.handler.HandleUpload(ctx, ev)
	if reply == nil {
		return
	}

	if _, err := b.api.ChannelMessageSendComplex(m.ChannelID, messageSend(reply, m.Reference())); err != nil {
		b.logger.Error("failed to send reply",
			zap.String("correlation_id", ev.CorrelationID),
			zap.String("channel_id", m.ChannelID),
			zap.Error(fmt.Errorf("%w: %v", models.ErrTransport, err)))
		return
	}
	reply.Sent(ctx)
}

// recoverEvent keeps a panicking handler from taking the process down
func (b *Bot) recoverEvent(kind string) {
	if r := recover(); r != nil {
		observability.CommandsTotal.WithLabelValues(kind, "panic").Inc()
		b.logger.Error("event handler panicked",
			zap.String("event", kind),
			zap.Any("panic", r))
	}
}
