package discord

import (
	"fmt"
	"strings"

	"github.com/keshon/jukebox/internal/command"

	"github.com/bwmarrin/discordgo"
)

// voiceChannelFor returns the caller's voice channel, or the guild's music channel.
func (b *Bot) voiceChannelFor(guildID, userID string) (string, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("error retrieving guild: %w", err)
	}
	return findVoiceChannel(guild, userID, b.opts.MusicChannelName)
}

func findVoiceChannel(guild *discordgo.Guild, userID, fallbackName string) (string, error) {
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}
	if fallbackName != "" {
		for _, ch := range guild.Channels {
			if ch.Type == discordgo.ChannelTypeGuildVoice && strings.EqualFold(ch.Name, fallbackName) {
				return ch.ID, nil
			}
		}
	}
	return "", command.ErrNoVoiceChannel
}
