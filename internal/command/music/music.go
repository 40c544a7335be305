package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/pkg/cmd"

	"go.uber.org/zap"
)

const (
	msgInvalidURL  = "Please input a valid youtube URL for playing audio"
	msgNotPlaying  = "Currently no audio is playing."
	msgNotPaused   = "The audio is not paused."
	msgWentWrong   = "Sorry something went wrong :("
	msgNoVoice     = "Join a voice channel first."
	msgInterrupted = "Playback was stopped before the request finished."
	msgQueued      = "%s was added to the queue"
	msgStopped     = "%s Playback stopped. Queue cleared."
	msgLeft        = "👋 Left the voice channel."
	msgPaused      = "%s Playback paused."
	msgResumed     = "%s Playback resumed."
)

// Player is the playback service the commands drive.
type Player interface {
	Play(ctx context.Context, req player.PlayRequest) (*player.PlayResult, error)
	Pause(guildID string) error
	Resume(guildID string) error
	Stop(guildID string) error
	Leave(guildID string) error
}

// Commands returns play, pause, resume, stop and leave bound to p.
func Commands(p Player, log *zap.Logger) []cmd.Command {
	return []cmd.Command{
		&PlayCommand{Player: p, Log: log},
		&PauseCommand{Player: p},
		&ResumeCommand{Player: p},
		&StopCommand{Player: p, Log: log},
		&LeaveCommand{Player: p, Log: log},
	}
}

func messageContext(inv *cmd.Invocation) (*command.MessageContext, error) {
	mc, ok := inv.Data.(*command.MessageContext)
	if !ok {
		return nil, fmt.Errorf("wrong context type %T", inv.Data)
	}
	return mc, nil
}

// userMessage turns a playback error into the text shown in chat.
func userMessage(err error) string {
	switch {
	case errors.Is(err, source_resolver.ErrNoMatch), errors.Is(err, source_resolver.ErrEmptyPlaylist):
		return msgInvalidURL
	case errors.Is(err, player.ErrNotPlaying):
		return msgNotPlaying
	case errors.Is(err, player.ErrNotPaused):
		return msgNotPaused
	case errors.Is(err, player.ErrInterrupted):
		return msgInterrupted
	case errors.Is(err, command.ErrNoVoiceChannel):
		return msgNoVoice
	default:
		return msgWentWrong
	}
}
