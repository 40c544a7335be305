package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/storage"
	"github.com/keshon/jukebox/pkg/cmd"

	"go.uber.org/zap"
)

// CommandStore persists executed commands.
type CommandStore interface {
	AppendCommandToHistory(guildID string, record storage.CommandHistoryRecord) error
}

// WithCommandLogger wraps a command to log its execution
func WithCommandLogger(store CommandStore, log *zap.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			v, ok := inv.Data.(*command.MessageContext)
			if !ok || v.GuildID == "" {
				return err
			}

			fields := []zap.Field{
				zap.String("command", c.Name()),
				zap.String("guild_id", v.GuildID),
				zap.String("user_id", v.UserID),
				zap.Duration("took", time.Since(start)),
			}
			if err != nil {
				log.Warn("command failed", append(fields, zap.Error(err))...)
			} else {
				log.Info("command executed", fields...)
			}

			if store != nil {
				rec := storage.CommandHistoryRecord{
					ChannelID: v.ChannelID,
					GuildName: v.GuildName,
					UserID:    v.UserID,
					Username:  v.Username,
					Command:   c.Name(),
					Param:     strings.Join(inv.Args, " "),
					Datetime:  time.Now(),
				}
				if e := store.AppendCommandToHistory(v.GuildID, rec); e != nil {
					log.Warn("failed to log command", zap.String("command", c.Name()), zap.Error(e))
				}
			}
			return err
		})
	}
}
