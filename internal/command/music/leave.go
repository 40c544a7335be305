package music

import (
	"context"

	"github.com/keshon/jukebox/pkg/cmd"

	"go.uber.org/zap"
)

type LeaveCommand struct {
	Player Player
	Log    *zap.Logger
}

func (c *LeaveCommand) Name() string        { return "leave" }
func (c *LeaveCommand) Description() string { return "Stop playback, clear the queue and leave voice" }

func (c *LeaveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, err := messageContext(inv)
	if err != nil {
		return err
	}
	if err := c.Player.Leave(mc.GuildID); err != nil {
		c.Log.Error("leave failed", zap.String("guild_id", mc.GuildID), zap.Error(err))
		return mc.Reply(userMessage(err))
	}
	return mc.Reply(msgLeft)
}
