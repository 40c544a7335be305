package music

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/pkg/cmd"

	"go.uber.org/zap"
)

type PlayCommand struct {
	Player Player
	Log    *zap.Logger
}

func (c *PlayCommand) Name() string { return "play" }
func (c *PlayCommand) Description() string {
	return "Play a link, playlist or search text; no input plays an ambient track"
}

func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, err := messageContext(inv)
	if err != nil {
		return err
	}

	voiceChannelID := ""
	if mc.VoiceChannel != nil {
		voiceChannelID, err = mc.VoiceChannel()
		if err != nil {
			return mc.Reply(userMessage(err))
		}
	}

	query := strings.TrimSpace(strings.Join(inv.Args, " "))
	res, err := c.Player.Play(ctx, player.PlayRequest{
		GuildID:        mc.GuildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  mc.ChannelID,
		Query:          query,
		RequestedBy:    mc.Username,
	})
	if err != nil {
		if userMessage(err) == msgWentWrong {
			c.Log.Error("play failed", zap.String("guild_id", mc.GuildID), zap.String("query", query), zap.Error(err))
		}
		return mc.Reply(userMessage(err))
	}

	switch res.Outcome {
	case player.StartedNowPlaying:
		return mc.ReplyNowPlaying(command.NewNowPlaying(res.Track, res.NowPlaying, res.RequestedBy))
	default:
		return mc.Reply(fmt.Sprintf(msgQueued, res.Label))
	}
}
