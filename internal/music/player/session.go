package player

import (
	"context"
	"sync"

	"github.com/keshon/jukebox/internal/music/stream"
	"github.com/keshon/jukebox/internal/music/track"
)

type entry struct {
	track       track.Track
	requestedBy string
}

// Session is the playback context of one guild. All fields are guarded by mu.
// The head of the queue is the playing track; it stays at index 0 until it
// completes.
//
// Calls that start or halt the sink run under sinkMu with mu released.
// sinkMu is always taken before mu.
type Session struct {
	mu      sync.Mutex
	sinkMu  sync.Mutex
	guildID string

	queue      []entry
	state      State
	sink       stream.Sink
	nowPlaying *track.StreamInfo

	// epoch invalidates completions and loads started before the last
	// stop, leave or advance.
	epoch uint64
	// gen changes only on stop and leave.
	gen        uint64
	loading    bool
	cancelLoad context.CancelFunc
	closed     bool
	// playedEpoch is the epoch of the last stream handed to the sink.
	playedEpoch uint64
	// leader is the track whose play request is about to start the queue.
	leader string

	voiceChannelID string
	textChannelID  string
}

func newSession(guildID string) *Session {
	return &Session{guildID: guildID}
}

func (s *Session) GuildID() string { return s.guildID }

// bump invalidates in-flight loads and completions. Caller holds mu.
func (s *Session) bump() uint64 {
	s.epoch++
	s.abortLoad()
	return s.epoch
}

// beginLoad marks the head as loading under a fresh epoch. Caller holds mu.
func (s *Session) beginLoad() (context.Context, uint64) {
	epoch := s.bump()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelLoad = cancel
	s.loading = true
	return ctx, epoch
}

// abortLoad ends the current load without touching the queue. Caller holds mu.
func (s *Session) abortLoad() {
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.loading = false
}

// reset empties the queue and goes Idle. Caller holds mu and must run the
// returned func after releasing it.
func (s *Session) reset() (halt func()) {
	epoch := s.bump()
	s.queue = nil
	s.state = Idle
	s.nowPlaying = nil
	s.leader = ""
	sink := s.sink
	if sink == nil {
		return func() {}
	}
	return func() { s.halt(sink, epoch) }
}

// halt stops sink unless a newer stream was handed to it after epoch.
func (s *Session) halt(sink stream.Sink, epoch uint64) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()

	s.mu.Lock()
	superseded := s.sink == sink && s.playedEpoch > epoch
	s.mu.Unlock()
	if !superseded {
		sink.Stop()
	}
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	GuildID        string            `json:"guild_id"`
	State          State             `json:"state"`
	Loading        bool              `json:"loading"`
	Connected      bool              `json:"connected"`
	VoiceChannelID string            `json:"voice_channel_id,omitempty"`
	NowPlaying     *track.StreamInfo `json:"now_playing,omitempty"`
	Queue          []string          `json:"queue"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		GuildID:        s.guildID,
		State:          s.state,
		Loading:        s.loading,
		Connected:      s.sink != nil,
		VoiceChannelID: s.voiceChannelID,
		Queue:          make([]string, 0, len(s.queue)),
	}
	if s.nowPlaying != nil {
		np := *s.nowPlaying
		snap.NowPlaying = &np
	}
	for _, e := range s.queue {
		snap.Queue = append(snap.Queue, e.track.Label())
	}
	return snap
}
