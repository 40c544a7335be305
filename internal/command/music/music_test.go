package music

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/track"
	"github.com/keshon/jukebox/pkg/cmd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlayer struct {
	requests []player.PlayRequest
	result   *player.PlayResult
	err      error
	calls    []string
}

func (f *fakePlayer) Play(ctx context.Context, req player.PlayRequest) (*player.PlayResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakePlayer) Pause(guildID string) error {
	f.calls = append(f.calls, "pause:"+guildID)
	return f.err
}

func (f *fakePlayer) Resume(guildID string) error {
	f.calls = append(f.calls, "resume:"+guildID)
	return f.err
}

func (f *fakePlayer) Stop(guildID string) error {
	f.calls = append(f.calls, "stop:"+guildID)
	return f.err
}

func (f *fakePlayer) Leave(guildID string) error {
	f.calls = append(f.calls, "leave:"+guildID)
	return f.err
}

type fakeResponder struct {
	replies []string
	cards   []command.NowPlaying
}

func (r *fakeResponder) Reply(text string) error {
	r.replies = append(r.replies, text)
	return nil
}

func (r *fakeResponder) ReplyNowPlaying(np command.NowPlaying) error {
	r.cards = append(r.cards, np)
	return nil
}

func invocation(resp *fakeResponder, voice func() (string, error), args ...string) *cmd.Invocation {
	return &cmd.Invocation{
		Args: args,
		Data: &command.MessageContext{
			GuildID:      "g1",
			ChannelID:    "text1",
			UserID:       "u1",
			Username:     "alice",
			VoiceChannel: voice,
			Responder:    resp,
		},
	}
}

func inVoice() (string, error) { return "voice1", nil }

func TestPlayQueued(t *testing.T) {
	p := &fakePlayer{result: &player.PlayResult{Outcome: player.QueuedAt, Position: 3, Added: 5, Label: `Playlist "Focus"`}}
	resp := &fakeResponder{}
	c := &PlayCommand{Player: p, Log: zap.NewNop()}

	require.NoError(t, c.Run(context.Background(), invocation(resp, inVoice, "never", "gonna", " give")))

	require.Len(t, p.requests, 1)
	assert.Equal(t, player.PlayRequest{
		GuildID:        "g1",
		VoiceChannelID: "voice1",
		TextChannelID:  "text1",
		Query:          "never gonna  give",
		RequestedBy:    "alice",
	}, p.requests[0])
	assert.Equal(t, []string{`Playlist "Focus" was added to the queue`}, resp.replies)
	assert.Empty(t, resp.cards)
}

func TestPlayStartedNowPlaying(t *testing.T) {
	tr := track.NewLookup("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "")
	p := &fakePlayer{result: &player.PlayResult{
		Outcome:     player.StartedNowPlaying,
		Position:    1,
		Added:       1,
		Track:       tr,
		RequestedBy: "alice",
		NowPlaying: &track.StreamInfo{
			Title:     "Never Gonna Give You Up",
			Artist:    "Rick Astley",
			Thumbnail: "https://img.example/thumb.jpg",
			Duration:  213 * time.Second,
		},
	}}
	resp := &fakeResponder{}
	c := &PlayCommand{Player: p, Log: zap.NewNop()}

	require.NoError(t, c.Run(context.Background(), invocation(resp, inVoice, tr.Ref)))

	require.Len(t, resp.cards, 1)
	card := resp.cards[0]
	assert.Equal(t, "Never Gonna Give You Up", card.Title)
	assert.Equal(t, "Rick Astley", card.Artist)
	assert.Equal(t, "https://img.example/thumb.jpg", card.Image)
	assert.Equal(t, "alice", card.RequestedBy)
	assert.Empty(t, resp.replies)
}

func TestPlayAmbientCardUsesFeedImage(t *testing.T) {
	tr := track.NewAmbient(track.AmbientItem{Title: "rainy cafe", StreamPath: "https://cdn.example/rain.mp3", ImagePath: "https://cdn.example/rain.png"})
	p := &fakePlayer{result: &player.PlayResult{
		Outcome:    player.StartedNowPlaying,
		Track:      tr,
		NowPlaying: &track.StreamInfo{URL: tr.Ref},
	}}
	resp := &fakeResponder{}
	c := &PlayCommand{Player: p, Log: zap.NewNop()}

	require.NoError(t, c.Run(context.Background(), invocation(resp, inVoice)))

	require.Len(t, p.requests, 1)
	assert.Empty(t, p.requests[0].Query)
	require.Len(t, resp.cards, 1)
	assert.Equal(t, "rainy cafe", resp.cards[0].Title)
	assert.Equal(t, "https://cdn.example/rain.png", resp.cards[0].Image)
}

func TestPlayWithoutVoiceChannel(t *testing.T) {
	p := &fakePlayer{}
	resp := &fakeResponder{}
	c := &PlayCommand{Player: p, Log: zap.NewNop()}

	noVoice := func() (string, error) { return "", command.ErrNoVoiceChannel }
	require.NoError(t, c.Run(context.Background(), invocation(resp, noVoice, "song")))

	assert.Empty(t, p.requests)
	assert.Equal(t, []string{msgNoVoice}, resp.replies)
}

func TestPlayErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "no match", err: source_resolver.ErrNoMatch, want: msgInvalidURL},
		{name: "empty playlist", err: fmt.Errorf("resolve: %w", source_resolver.ErrEmptyPlaylist), want: msgInvalidURL},
		{name: "transport", err: sources.Wrap(sources.SourceLofi, "fetch", errors.New("connection reset")), want: msgWentWrong},
		{name: "sink", err: &player.SinkError{Op: "connect", Err: errors.New("timeout")}, want: msgWentWrong},
		{name: "all dropped", err: &player.PlaybackError{Dropped: 2, Err: sources.ErrNotFound}, want: msgWentWrong},
		{name: "interrupted", err: player.ErrInterrupted, want: msgInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &fakeResponder{}
			c := &PlayCommand{Player: &fakePlayer{err: tt.err}, Log: zap.NewNop()}
			require.NoError(t, c.Run(context.Background(), invocation(resp, inVoice, "x")))
			assert.Equal(t, []string{tt.want}, resp.replies)
		})
	}
}

func TestControls(t *testing.T) {
	tests := []struct {
		name  string
		cmd   func(p Player) cmd.Command
		err   error
		reply string
		call  string
	}{
		{name: "pause", cmd: func(p Player) cmd.Command { return &PauseCommand{Player: p} }, reply: "⏸ Playback paused.", call: "pause:g1"},
		{name: "pause idle", cmd: func(p Player) cmd.Command { return &PauseCommand{Player: p} }, err: player.ErrNotPlaying, reply: msgNotPlaying, call: "pause:g1"},
		{name: "resume", cmd: func(p Player) cmd.Command { return &ResumeCommand{Player: p} }, reply: "▶️ Playback resumed.", call: "resume:g1"},
		{name: "resume not paused", cmd: func(p Player) cmd.Command { return &ResumeCommand{Player: p} }, err: player.ErrNotPaused, reply: msgNotPaused, call: "resume:g1"},
		{name: "stop", cmd: func(p Player) cmd.Command { return &StopCommand{Player: p, Log: zap.NewNop()} }, reply: "⏹ Playback stopped. Queue cleared.", call: "stop:g1"},
		{name: "leave", cmd: func(p Player) cmd.Command { return &LeaveCommand{Player: p, Log: zap.NewNop()} }, reply: msgLeft, call: "leave:g1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlayer{err: tt.err}
			resp := &fakeResponder{}
			require.NoError(t, tt.cmd(p).Run(context.Background(), invocation(resp, nil)))
			assert.Equal(t, []string{tt.call}, p.calls)
			assert.Equal(t, []string{tt.reply}, resp.replies)
		})
	}
}

func TestCommandsNames(t *testing.T) {
	var names []string
	for _, c := range Commands(&fakePlayer{}, zap.NewNop()) {
		names = append(names, c.Name())
		assert.NotEmpty(t, c.Description())
	}
	assert.Equal(t, []string{"play", "pause", "resume", "stop", "leave"}, names)
}

func TestWrongContext(t *testing.T) {
	c := &PauseCommand{Player: &fakePlayer{}}
	assert.Error(t, c.Run(context.Background(), &cmd.Invocation{Data: 42}))
}
