package player

import (
	"context"
	"errors"
	"sync"

	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/stream"
	"github.com/keshon/jukebox/internal/music/track"

	"go.uber.org/zap"
)

// Resolver maps queries to tracks and queued tracks to playable streams.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*source_resolver.Result, error)
	Stream(ctx context.Context, t track.Track) (*track.StreamInfo, error)
}

// Event is a playback change the chat should hear about.
type Event struct {
	GuildID       string
	TextChannelID string
	Status        PlayerStatus
	Track         *track.Track
	Info          *track.StreamInfo
	RequestedBy   string
	Err           error
}

// Notifier receives events produced by automatic advancement.
type Notifier interface {
	Notify(ev Event)
}

// HistoryRecorder persists tracks as they start.
type HistoryRecorder interface {
	RecordPlayed(guildID string, t track.Track, info *track.StreamInfo) error
}

type started struct {
	entry entry
	info  *track.StreamInfo
}

// Engine starts queue heads on the sink and advances sessions on completion.
type Engine struct {
	resolver  Resolver
	connector stream.Connector
	notifier  Notifier
	history   HistoryRecorder
	log       *zap.Logger

	voiceMu sync.Mutex
	voice   map[string]*sync.Mutex
}

func NewEngine(resolver Resolver, connector stream.Connector, notifier Notifier, history HistoryRecorder, log *zap.Logger) *Engine {
	return &Engine{
		resolver:  resolver,
		connector: connector,
		notifier:  notifier,
		history:   history,
		log:       log,
		voice:     make(map[string]*sync.Mutex),
	}
}

// voiceLock serializes joins and disconnects per guild. A guild has a single
// voice connection no matter how many sessions it has had.
func (e *Engine) voiceLock(guildID string) *sync.Mutex {
	e.voiceMu.Lock()
	defer e.voiceMu.Unlock()
	l, ok := e.voice[guildID]
	if !ok {
		l = &sync.Mutex{}
		e.voice[guildID] = l
	}
	return l
}

// disconnect drops the guild's voice connection.
func (e *Engine) disconnect(guildID string, sink stream.Sink) error {
	l := e.voiceLock(guildID)
	l.Lock()
	defer l.Unlock()
	return sink.Disconnect()
}

// startIfIdle starts the queue head unless the session is busy or empty.
// It returns nil, nil when there was nothing to do.
func (e *Engine) startIfIdle(ctx context.Context, s *Session) (*started, error) {
	s.mu.Lock()
	if s.state != Idle || s.loading || len(s.queue) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	loadCtx, epoch := s.beginLoad()
	cancel := s.cancelLoad
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return e.playHead(loadCtx, s, epoch)
}

// playHead loads the head and starts it, dropping heads that fail to load.
// mu is held only around queue and state updates, never across I/O.
//
// A cancelled ctx under an unchanged epoch means the caller went away: the
// load ends with ErrInterrupted and the queue is kept.
func (e *Engine) playHead(ctx context.Context, s *Session, epoch uint64) (*started, error) {
	dropped := 0
	var lastErr error

	for {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return nil, ErrInterrupted
		}
		if ctx.Err() != nil {
			s.abortLoad()
			s.mu.Unlock()
			return nil, ErrInterrupted
		}
		if len(s.queue) == 0 {
			halt := s.reset()
			s.mu.Unlock()
			halt()
			if dropped == 0 {
				return nil, nil
			}
			return nil, &PlaybackError{Dropped: dropped, Err: lastErr}
		}
		head := s.queue[0]
		sink := s.sink
		channelID := s.voiceChannelID
		s.mu.Unlock()

		if sink == nil || (channelID != "" && sink.ChannelID() != channelID) {
			if err := e.connect(ctx, s, epoch, channelID); err != nil {
				return nil, err
			}
		}

		info, err := e.resolver.Stream(ctx, head.track)

		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return nil, ErrInterrupted
		}
		if err != nil {
			if ctx.Err() != nil {
				s.abortLoad()
				s.mu.Unlock()
				return nil, ErrInterrupted
			}
			s.queue = s.queue[1:]
			dropped++
			lastErr = err
			s.mu.Unlock()
			e.log.Warn("dropping track that failed to load",
				zap.String("guild_id", s.guildID),
				zap.String("track", head.track.Label()),
				zap.String("kind", head.track.Kind.String()),
				zap.Error(err))
			continue
		}
		s.mu.Unlock()

		if err := e.start(s, epoch, head, info); err != nil {
			return nil, err
		}

		e.log.Info("now playing",
			zap.String("guild_id", s.guildID),
			zap.String("title", info.Title),
			zap.Int("dropped", dropped))
		if e.history != nil {
			if err := e.history.RecordPlayed(s.guildID, head.track, info); err != nil {
				e.log.Warn("failed to record history", zap.String("guild_id", s.guildID), zap.Error(err))
			}
		}
		return &started{entry: head, info: info}, nil
	}
}

// start hands the stream to the sink and commits the Playing state.
func (e *Engine) start(s *Session, epoch uint64, head entry, info *track.StreamInfo) error {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()

	s.mu.Lock()
	if s.epoch != epoch || s.sink == nil {
		s.mu.Unlock()
		return ErrInterrupted
	}
	sink := s.sink
	s.playedEpoch = epoch
	s.mu.Unlock()

	err := sink.Play(info.URL, e.completion(s, epoch))

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrInterrupted
	}
	if err != nil {
		_ = s.reset()
		s.mu.Unlock()
		sink.Stop()
		e.log.Error("sink refused stream", zap.String("guild_id", s.guildID), zap.String("track", head.track.Label()), zap.Error(err))
		return &SinkError{Op: "play", Err: err}
	}
	s.abortLoad()
	s.state = Playing
	s.nowPlaying = info
	s.mu.Unlock()
	return nil
}

func (e *Engine) connect(ctx context.Context, s *Session, epoch uint64, channelID string) error {
	if channelID == "" {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return ErrInterrupted
		}
		halt := s.reset()
		s.mu.Unlock()
		halt()
		return &SinkError{Op: "connect", Err: errors.New("no voice channel to join")}
	}

	voice := e.voiceLock(s.guildID)
	voice.Lock()
	defer voice.Unlock()

	s.mu.Lock()
	if s.closed || s.epoch != epoch {
		s.mu.Unlock()
		return ErrInterrupted
	}
	s.mu.Unlock()

	sink, err := e.connector.Connect(ctx, s.guildID, channelID)

	s.mu.Lock()
	if err != nil {
		if s.epoch != epoch {
			s.mu.Unlock()
			return ErrInterrupted
		}
		if ctx.Err() != nil {
			s.abortLoad()
			s.mu.Unlock()
			return ErrInterrupted
		}
		halt := s.reset()
		s.mu.Unlock()
		halt()
		e.log.Error("failed to connect voice", zap.String("guild_id", s.guildID), zap.String("channel_id", channelID), zap.Error(err))
		return &SinkError{Op: "connect", Err: err}
	}
	if s.closed {
		s.mu.Unlock()
		// The voice lock is still held, so no newer session shares this connection yet.
		_ = sink.Disconnect()
		return ErrInterrupted
	}
	old := s.sink
	s.sink = sink
	stale := s.epoch != epoch
	s.mu.Unlock()

	if old != nil && old != sink {
		// Same voice connection moved channels; only the old handle's output stops.
		old.Stop()
	}
	if stale {
		return ErrInterrupted
	}
	return nil
}

// completion hands the sink's end-of-track signal to advance on a fresh goroutine.
func (e *Engine) completion(s *Session, epoch uint64) func(error) {
	return func(err error) {
		go e.advance(s, epoch, err)
	}
}

// advance pops the finished head and starts the next one. Completions from a
// previous epoch are ignored.
func (e *Engine) advance(s *Session, epoch uint64, playErr error) {
	// Taking sinkMu first waits out the start that registered this completion.
	s.sinkMu.Lock()
	s.mu.Lock()
	s.sinkMu.Unlock()
	if s.epoch != epoch || s.state == Idle || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	if playErr != nil {
		e.log.Warn("track ended with error", zap.String("guild_id", s.guildID), zap.String("track", s.queue[0].track.Label()), zap.Error(playErr))
	}

	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		halt := s.reset()
		s.mu.Unlock()
		halt()
		e.log.Info("queue finished", zap.String("guild_id", s.guildID))
		e.notify(s, Event{Status: StatusStopped})
		return
	}

	s.state = Idle
	s.nowPlaying = nil
	ctx, next := s.beginLoad()
	s.mu.Unlock()

	st, err := e.playHead(ctx, s, next)
	switch {
	case errors.Is(err, ErrInterrupted):
	case err != nil:
		e.notify(s, Event{Status: StatusError, Err: err})
	case st != nil:
		t := st.entry.track
		e.notify(s, Event{Status: StatusPlaying, Track: &t, Info: st.info, RequestedBy: st.entry.requestedBy})
	}
}

func (e *Engine) notify(s *Session, ev Event) {
	if e.notifier == nil {
		return
	}
	s.mu.Lock()
	ev.GuildID = s.guildID
	ev.TextChannelID = s.textChannelID
	s.mu.Unlock()
	e.notifier.Notify(ev)
}
