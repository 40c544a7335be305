package player

import (
	"context"

	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/stream"
	"github.com/keshon/jukebox/internal/music/track"
	"github.com/keshon/jukebox/pkg/util"

	"go.uber.org/zap"
)

const shutdownWorkers = 8

// Outcome of a play request that did not fail.
type Outcome int

const (
	StartedNowPlaying Outcome = iota + 1
	QueuedAt
)

type PlayRequest struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	Query          string
	RequestedBy    string
}

type PlayResult struct {
	Outcome Outcome
	// Position is the 1-based queue slot of the first added track, counting the playing head.
	Position int
	Added    int
	Label    string

	// Set for StartedNowPlaying.
	Track       track.Track
	NowPlaying  *track.StreamInfo
	RequestedBy string
}

// Service is what the command surface talks to.
type Service struct {
	registry *Registry
	engine   *Engine
	resolver Resolver
	log      *zap.Logger
}

func NewService(registry *Registry, resolver Resolver, connector stream.Connector, notifier Notifier, history HistoryRecorder, log *zap.Logger) *Service {
	return &Service{
		registry: registry,
		engine:   NewEngine(resolver, connector, notifier, history, log),
		resolver: resolver,
		log:      log,
	}
}

// Play resolves the query, enqueues the result and starts playback when the
// session is idle. Resolution failures are returned as errors.
func (svc *Service) Play(ctx context.Context, req PlayRequest) (*PlayResult, error) {
	s := svc.registry.GetOrCreate(req.GuildID)
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	res, err := svc.resolver.Resolve(ctx, req.Query)
	if err != nil {
		svc.log.Info("play request rejected", zap.String("guild_id", req.GuildID), zap.String("query", req.Query), zap.Error(err))
		return nil, err
	}
	if len(res.Tracks) == 0 {
		return nil, source_resolver.ErrNoMatch
	}

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		return nil, ErrInterrupted
	}
	position := len(s.queue) + 1
	for _, t := range res.Tracks {
		s.queue = append(s.queue, entry{track: t, requestedBy: req.RequestedBy})
	}
	if req.TextChannelID != "" {
		s.textChannelID = req.TextChannelID
	}
	busy := s.state != Idle || s.loading
	if !busy && req.VoiceChannelID != "" {
		s.voiceChannelID = req.VoiceChannelID
	}
	// Only the request that filled an empty queue starts it. A queue left
	// behind by an interrupted load has no leader; the next request starts it.
	first := res.Tracks[0].ID
	if !busy && position == 1 {
		s.leader = first
	}
	start := !busy && (s.leader == first || s.leader == "")
	s.mu.Unlock()

	result := &PlayResult{Outcome: QueuedAt, Position: position, Added: len(res.Tracks), Label: res.Label}
	svc.log.Debug("tracks enqueued", zap.String("guild_id", req.GuildID), zap.Int("added", result.Added), zap.Int("position", position))
	if !start {
		return result, nil
	}

	st, err := svc.engine.startIfIdle(ctx, s)
	s.mu.Lock()
	if s.leader == first {
		s.leader = ""
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if st == nil || st.entry.track.ID != first {
		return result, nil
	}
	result.Outcome = StartedNowPlaying
	result.Track = st.entry.track
	result.NowPlaying = st.info
	result.RequestedBy = st.entry.requestedBy
	return result, nil
}

// Pause is valid only while playing.
func (svc *Service) Pause(guildID string) error {
	s := svc.registry.Get(guildID)
	if s == nil {
		return ErrNotPlaying
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing || s.sink == nil || !s.sink.Pause() {
		return ErrNotPlaying
	}
	s.state = Paused
	return nil
}

// Resume is valid only while paused.
func (svc *Service) Resume(guildID string) error {
	s := svc.registry.Get(guildID)
	if s == nil {
		return ErrNotPaused
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Paused || s.sink == nil || !s.sink.Resume() {
		return ErrNotPaused
	}
	s.state = Playing
	return nil
}

// Stop halts output and clears the queue. The voice connection stays up.
func (svc *Service) Stop(guildID string) error {
	s := svc.registry.Get(guildID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.gen++
	halt := s.reset()
	s.mu.Unlock()
	halt()

	svc.log.Info("playback stopped", zap.String("guild_id", guildID))
	return nil
}

// Leave stops, clears the queue, disconnects and forgets the session.
func (svc *Service) Leave(guildID string) error {
	s := svc.registry.Remove(guildID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.gen++
	s.closed = true
	halt := s.reset()
	sink := s.sink
	s.sink = nil
	s.mu.Unlock()
	halt()

	if sink != nil {
		if err := svc.engine.disconnect(guildID, sink); err != nil {
			svc.log.Warn("voice disconnect failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	svc.log.Info("left voice", zap.String("guild_id", guildID))
	return nil
}

// Snapshot reports the guild's session, if any.
func (svc *Service) Snapshot(guildID string) (Snapshot, bool) {
	s := svc.registry.Get(guildID)
	if s == nil {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

func (svc *Service) Snapshots() []Snapshot {
	sessions := svc.registry.All()
	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Shutdown leaves every guild.
func (svc *Service) Shutdown() {
	sessions := svc.registry.All()
	err := util.Parallel(context.Background(), sessions, shutdownWorkers, func(_ context.Context, s *Session) error {
		return svc.Leave(s.GuildID())
	})
	if err != nil {
		svc.log.Warn("shutdown incomplete", zap.Error(err))
	}
	svc.log.Info("all sessions closed", zap.Int("sessions", len(sessions)))
}
