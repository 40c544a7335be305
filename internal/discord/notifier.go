package discord

import (
	"time"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"

	"go.uber.org/zap"
)

// Notifier posts automatic playback changes to the guild's last text channel.
type Notifier struct {
	api messenger
	ttl time.Duration
	log *zap.Logger
}

func NewNotifier(api messenger, ttl time.Duration, log *zap.Logger) *Notifier {
	return &Notifier{api: api, ttl: ttl, log: log}
}

func (n *Notifier) Notify(ev player.Event) {
	if ev.TextChannelID == "" {
		return
	}
	out := newResponder(n.api, ev.TextChannelID, nil, n.ttl, n.log)

	var err error
	switch ev.Status {
	case player.StatusPlaying:
		if ev.Track == nil {
			return
		}
		err = out.ReplyNowPlaying(command.NewNowPlaying(*ev.Track, ev.Info, ev.RequestedBy))
	case player.StatusError:
		n.log.Warn("queue advance failed", zap.String("guild_id", ev.GuildID), zap.Error(ev.Err))
		err = out.Reply("Sorry something went wrong :(")
	default:
		n.log.Debug("playback event", zap.String("guild_id", ev.GuildID), zap.String("status", string(ev.Status)))
		return
	}
	if err != nil {
		n.log.Warn("failed to post playback event", zap.String("guild_id", ev.GuildID), zap.Error(err))
	}
}
