package music

import (
	"context"
	"fmt"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/pkg/cmd"

	"go.uber.org/zap"
)

type StopCommand struct {
	Player Player
	Log    *zap.Logger
}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback and clear the queue" }

func (c *StopCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, err := messageContext(inv)
	if err != nil {
		return err
	}
	if err := c.Player.Stop(mc.GuildID); err != nil {
		c.Log.Error("stop failed", zap.String("guild_id", mc.GuildID), zap.Error(err))
		return mc.Reply(userMessage(err))
	}
	return mc.Reply(fmt.Sprintf(msgStopped, player.StatusStopped.StringEmoji()))
}
