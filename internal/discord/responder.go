package discord

import (
	"time"

	"github.com/keshon/jukebox/internal/command"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const embedColor = 0x2ecc71

// messenger is the part of *discordgo.Session replies need.
type messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Responder posts to one channel and deletes its messages after ttl.
type Responder struct {
	api       messenger
	channelID string
	reference *discordgo.MessageReference
	ttl       time.Duration
	after     func(d time.Duration, f func())
	log       *zap.Logger
}

func newResponder(api messenger, channelID string, reference *discordgo.MessageReference, ttl time.Duration, log *zap.Logger) *Responder {
	return &Responder{
		api:       api,
		channelID: channelID,
		reference: reference,
		ttl:       ttl,
		after:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		log:       log,
	}
}

func (r *Responder) Reply(text string) error {
	return r.send(&discordgo.MessageSend{
		Content:   text,
		Reference: r.reference,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			RepliedUser: false,
		},
	})
}

func (r *Responder) ReplyNowPlaying(np command.NowPlaying) error {
	return r.send(&discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{nowPlayingEmbed(np)},
	})
}

func (r *Responder) send(data *discordgo.MessageSend) error {
	msg, err := r.api.ChannelMessageSendComplex(r.channelID, data)
	if err != nil {
		return err
	}
	if r.ttl > 0 && msg != nil {
		r.after(r.ttl, func() {
			if err := r.api.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
				r.log.Debug("failed to delete reply", zap.String("message_id", msg.ID), zap.Error(err))
			}
		})
	}
	return nil
}

func nowPlayingEmbed(np command.NowPlaying) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  "Now playing",
		Color:  embedColor,
		Footer: &discordgo.MessageEmbedFooter{Text: "Playback Information"},
	}
	if !np.Timestamp.IsZero() {
		embed.Timestamp = np.Timestamp.Format(time.RFC3339)
	}
	if np.RequestedBy != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: "Requested by " + np.RequestedBy}
	}
	if np.Title != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Title", Value: np.Title, Inline: true})
	}
	if np.Artist != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Artist", Value: np.Artist, Inline: true})
	}
	if np.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: np.Image}
	}
	return embed
}
