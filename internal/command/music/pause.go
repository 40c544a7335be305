package music

import (
	"context"
	"fmt"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/pkg/cmd"
)

type PauseCommand struct {
	Player Player
}

func (c *PauseCommand) Name() string        { return "pause" }
func (c *PauseCommand) Description() string { return "Pause the current track" }

func (c *PauseCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, err := messageContext(inv)
	if err != nil {
		return err
	}
	if err := c.Player.Pause(mc.GuildID); err != nil {
		return mc.Reply(userMessage(err))
	}
	return mc.Reply(fmt.Sprintf(msgPaused, player.StatusPaused.StringEmoji()))
}
