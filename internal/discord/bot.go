package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Options struct {
	Prefix           string
	MusicChannelName string
	ReplyTTL         time.Duration
}

// Bot dispatches prefixed chat messages to registered commands.
type Bot struct {
	dg       *discordgo.Session
	registry *cmd.Registry
	opts     Options
	log      *zap.Logger
	ctx      context.Context
}

func NewBot(dg *discordgo.Session, registry *cmd.Registry, opts Options, log *zap.Logger) *Bot {
	return &Bot{
		dg:       dg,
		registry: registry,
		opts:     opts,
		log:      log,
		ctx:      context.Background(),
	}
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onGuildCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info("shutdown signal received, closing gateway")
	return nil
}

// configureIntents configures the Discord intents
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentMessageContent
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("discord bot is running", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
}

// onGuildCreate is called when the bot joins or reconnects to a guild
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.log.Info("guild available", zap.String("guild_id", g.Guild.ID), zap.String("guild_name", g.Guild.Name))
}

// onMessageCreate is called when a message is created
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}

	name, args, ok := parseCommand(b.opts.Prefix, m.Content)
	if !ok {
		return
	}
	c := b.registry.Get(name)
	if c == nil {
		return
	}

	mc := &command.MessageContext{
		GuildID:   m.GuildID,
		GuildName: b.guildName(m.GuildID),
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  displayName(m.Message),
		VoiceChannel: func() (string, error) {
			return b.voiceChannelFor(m.GuildID, m.Author.ID)
		},
		Responder: newResponder(s, m.ChannelID, &discordgo.MessageReference{
			MessageID: m.ID,
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
		}, b.opts.ReplyTTL, b.log),
	}

	if err := c.Run(b.ctx, &cmd.Invocation{Args: args, Data: mc}); err != nil {
		b.log.Error("error running command", zap.String("command", c.Name()), zap.String("guild_id", m.GuildID), zap.Error(err))
	}
}

func (b *Bot) guildName(guildID string) string {
	if guildID == "" {
		return ""
	}
	g, err := b.dg.State.Guild(guildID)
	if err != nil {
		return ""
	}
	return g.Name
}

// parseCommand splits "<prefix><name> args..." into the lowercased name and the remaining words.
func parseCommand(prefix, content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
