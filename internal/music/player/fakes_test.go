package player

import (
	"context"
	"errors"
	"sync"

	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/stream"
	"github.com/keshon/jukebox/internal/music/track"
)

type fakeSink struct {
	mu           sync.Mutex
	channelID    string
	playing      bool
	paused       bool
	plays        []string
	done         func(error)
	stops        int
	disconnected bool
	playErr      error
}

func (f *fakeSink) Play(url string, onDone func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.plays = append(f.plays, url)
	f.playing, f.paused = true, false
	f.done = onDone
	return nil
}

func (f *fakeSink) Pause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.playing || f.paused {
		return false
	}
	f.paused = true
	return true
}

func (f *fakeSink) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.paused {
		return false
	}
	f.paused = false
	return true
}

func (f *fakeSink) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.playing, f.paused = false, false
	f.done = nil
}

func (f *fakeSink) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing && !f.paused
}

func (f *fakeSink) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing && f.paused
}

func (f *fakeSink) ChannelID() string { return f.channelID }

func (f *fakeSink) Disconnect() error {
	f.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

// finish simulates the current stream ending on its own.
func (f *fakeSink) finish(err error) {
	f.mu.Lock()
	done := f.done
	f.done = nil
	f.playing, f.paused = false, false
	f.mu.Unlock()
	if done != nil {
		done(err)
	}
}

func (f *fakeSink) callback() func(error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *fakeSink) playedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plays...)
}

func (f *fakeSink) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type fakeConnector struct {
	mu       sync.Mutex
	sinks    []*fakeSink
	err      error
	playErr  error
	channels []string
}

func (c *fakeConnector) Connect(ctx context.Context, guildID, channelID string) (stream.Sink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = append(c.channels, channelID)
	if c.err != nil {
		return nil, c.err
	}
	s := &fakeSink{channelID: channelID, playErr: c.playErr}
	c.sinks = append(c.sinks, s)
	return s, nil
}

func (c *fakeConnector) last() *fakeSink {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sinks) == 0 {
		return nil
	}
	return c.sinks[len(c.sinks)-1]
}

func (c *fakeConnector) connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

type fakeResolver struct {
	mu          sync.Mutex
	results     map[string][]string
	resolveErr  map[string]error
	streamErr   map[string]error
	streamGate  map[string]chan struct{}
	resolveGate chan struct{}
	entered     chan string
	queries     []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		results:    map[string][]string{},
		resolveErr: map[string]error{},
		streamErr:  map[string]error{},
		streamGate: map[string]chan struct{}{},
		entered:    make(chan string, 16),
	}
}

func (f *fakeResolver) Resolve(ctx context.Context, query string) (*source_resolver.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.resolveGate
	refs, ok := f.results[query]
	err := f.resolveErr[query]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- query
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, source_resolver.ErrNoMatch
	}

	res := &source_resolver.Result{Label: "label:" + query}
	for _, ref := range refs {
		if query == "" {
			res.Tracks = append(res.Tracks, track.NewAmbient(track.AmbientItem{Title: ref, StreamPath: ref}))
			continue
		}
		res.Tracks = append(res.Tracks, track.NewLookup(ref, ref))
	}
	return res, nil
}

func (f *fakeResolver) Stream(ctx context.Context, t track.Track) (*track.StreamInfo, error) {
	f.mu.Lock()
	gate := f.streamGate[t.Ref]
	err := f.streamErr[t.Ref]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- t.Ref
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &track.StreamInfo{URL: streamURL(t.Ref), Title: t.Title}, nil
}

func streamURL(ref string) string { return "https://stream.example/" + ref }

type fakeNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *fakeNotifier) Notify(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *fakeNotifier) all() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

type fakeHistory struct {
	mu     sync.Mutex
	titles []string
}

func (h *fakeHistory) RecordPlayed(guildID string, t track.Track, info *track.StreamInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.titles = append(h.titles, info.Title)
	return nil
}

var errUnavailable = errors.New("video unavailable")

// sharedVoiceConnector hands out sinks that all wrap one voice link per
// guild, the way ChannelVoiceJoin reuses a live connection. The first
// Connect blocks until gate is closed.
type sharedVoiceConnector struct {
	mu      sync.Mutex
	link    *voiceLink
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

type voiceLink struct {
	up bool
}

func newSharedVoiceConnector() *sharedVoiceConnector {
	return &sharedVoiceConnector{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
}

func (c *sharedVoiceConnector) Connect(ctx context.Context, guildID, channelID string) (stream.Sink, error) {
	c.mu.Lock()
	c.calls++
	first := c.calls == 1
	c.mu.Unlock()
	if first {
		c.entered <- struct{}{}
		<-c.gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link == nil || !c.link.up {
		c.link = &voiceLink{up: true}
	}
	return &linkedSink{fakeSink: &fakeSink{channelID: channelID}, conn: c, link: c.link}, nil
}

func (c *sharedVoiceConnector) linkUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link != nil && c.link.up
}

type linkedSink struct {
	*fakeSink
	conn *sharedVoiceConnector
	link *voiceLink
}

func (l *linkedSink) Disconnect() error {
	_ = l.fakeSink.Disconnect()
	l.conn.mu.Lock()
	defer l.conn.mu.Unlock()
	l.link.up = false
	return nil
}

// slowSink blocks in Play and Stop until the matching gate is closed.
type slowSink struct {
	*fakeSink
	playGate chan struct{}
	stopGate chan struct{}
	entered  chan string
}

func newSlowSink() *slowSink {
	return &slowSink{
		fakeSink: &fakeSink{channelID: "voice-1"},
		playGate: make(chan struct{}),
		stopGate: make(chan struct{}),
		entered:  make(chan string, 4),
	}
}

func (s *slowSink) Play(url string, onDone func(error)) error {
	s.entered <- "play"
	<-s.playGate
	return s.fakeSink.Play(url, onDone)
}

func (s *slowSink) Stop() {
	s.entered <- "stop"
	<-s.stopGate
	s.fakeSink.Stop()
}

type fixedConnector struct {
	sink stream.Sink
}

func (c fixedConnector) Connect(ctx context.Context, guildID, channelID string) (stream.Sink, error) {
	return c.sink, nil
}
