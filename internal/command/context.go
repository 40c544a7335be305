package command

import (
	"errors"
	"time"

	"github.com/keshon/jukebox/internal/music/track"
)

// ErrNoVoiceChannel is returned by VoiceChannel when neither the caller's
// channel nor the fallback music channel exists.
var ErrNoVoiceChannel = errors.New("no voice channel to play in")

// NowPlaying is the content of a now-playing card.
type NowPlaying struct {
	Title       string
	Artist      string
	Image       string
	RequestedBy string
	Timestamp   time.Time
}

// NewNowPlaying builds a card for a started track; info may be nil.
func NewNowPlaying(t track.Track, info *track.StreamInfo, requestedBy string) NowPlaying {
	np := NowPlaying{
		Title:       t.Label(),
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC(),
	}
	if t.Ambient != nil {
		np.Image = t.Ambient.ImagePath
	}
	if info != nil {
		if info.Title != "" {
			np.Title = info.Title
		}
		np.Artist = info.Artist
		if info.Thumbnail != "" {
			np.Image = info.Thumbnail
		}
	}
	return np
}

// Responder sends replies back to where the command came from.
type Responder interface {
	Reply(text string) error
	ReplyNowPlaying(np NowPlaying) error
}

// MessageContext is what the chat adapter passes in Invocation.Data.
type MessageContext struct {
	GuildID   string
	GuildName string
	ChannelID string
	UserID    string
	Username  string

	// VoiceChannel resolves the channel playback should join for this caller.
	VoiceChannel func() (string, error)
	Responder    Responder
}

// Reply is a nil-safe shortcut for Responder.Reply.
func (c *MessageContext) Reply(text string) error {
	if c.Responder == nil {
		return nil
	}
	return c.Responder.Reply(text)
}

func (c *MessageContext) ReplyNowPlaying(np NowPlaying) error {
	if c.Responder == nil {
		return nil
	}
	return c.Responder.ReplyNowPlaying(np)
}
