package music

import (
	"context"
	"fmt"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/pkg/cmd"
)

type ResumeCommand struct {
	Player Player
}

func (c *ResumeCommand) Name() string        { return "resume" }
func (c *ResumeCommand) Description() string { return "Resume a paused track" }

func (c *ResumeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, err := messageContext(inv)
	if err != nil {
		return err
	}
	if err := c.Player.Resume(mc.GuildID); err != nil {
		return mc.Reply(userMessage(err))
	}
	return mc.Reply(fmt.Sprintf(msgResumed, player.StatusResumed.StringEmoji()))
}
