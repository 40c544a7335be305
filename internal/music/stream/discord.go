package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"layeh.com/gopus"
)

const stopTimeout = 3 * time.Second

type encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

func newOpusEncoder() (encoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}
	enc.SetBitrate(128 * 1000)
	return enc, nil
}

// DiscordVoice connects sinks through a discordgo session.
type DiscordVoice struct {
	dg  *discordgo.Session
	log *zap.Logger
}

func NewDiscordVoice(dg *discordgo.Session, log *zap.Logger) *DiscordVoice {
	return &DiscordVoice{dg: dg, log: log}
}

// Connect joins (or moves to) the voice channel, deafened.
func (d *DiscordVoice) Connect(ctx context.Context, guildID, channelID string) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := d.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	d.log.Info("joined voice channel", zap.String("guild_id", guildID), zap.String("channel_id", channelID))
	return NewDiscordSink(vc, d.log), nil
}

// DiscordSink streams ffmpeg output as opus frames into a voice connection.
type DiscordSink struct {
	mu        sync.Mutex
	cur       *playback
	channelID string

	out        chan<- []byte
	speaking   func(bool) error
	disconnect func() error
	open       opener
	newEncoder func() (encoder, error)
	log        *zap.Logger
}

func NewDiscordSink(vc *discordgo.VoiceConnection, log *zap.Logger) *DiscordSink {
	return &DiscordSink{
		channelID:  vc.ChannelID,
		out:        vc.OpusSend,
		speaking:   vc.Speaking,
		disconnect: vc.Disconnect,
		open:       openFFmpeg,
		newEncoder: newOpusEncoder,
		log:        log,
	}
}

type playback struct {
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool

	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func (pb *playback) pause() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.paused {
		return false
	}
	pb.paused = true
	pb.resume = make(chan struct{})
	return true
}

func (pb *playback) unpause() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if !pb.paused {
		return false
	}
	pb.paused = false
	close(pb.resume)
	return true
}

func (pb *playback) isPaused() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.paused
}

// waitResumed blocks while paused. False means the playback was stopped.
func (pb *playback) waitResumed() bool {
	pb.mu.Lock()
	ch := pb.resume
	paused := pb.paused
	pb.mu.Unlock()
	if !paused {
		return pb.ctx.Err() == nil
	}
	select {
	case <-ch:
		return true
	case <-pb.ctx.Done():
		return false
	}
}

func (s *DiscordSink) Play(url string, onDone func(error)) error {
	s.Stop()

	enc, err := s.newEncoder()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	src, err := newRecoveryStream(ctx, url, s.open, s.log)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create PCM stream: %w", err)
	}

	pb := &playback{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	s.cur = pb
	s.mu.Unlock()

	s.setSpeaking(true)
	go s.run(pb, src, enc, onDone)
	return nil
}

func (s *DiscordSink) run(pb *playback, src pcmStream, enc encoder, onDone func(error)) {
	err := s.pump(pb, src, enc)
	pb.cancel()
	_ = src.Wait()
	s.setSpeaking(false)

	s.mu.Lock()
	if s.cur == pb {
		s.cur = nil
	}
	s.mu.Unlock()
	close(pb.done)

	if pb.stopped.Load() {
		return
	}
	if err != nil {
		s.log.Warn("playback ended with error", zap.String("channel_id", s.channelID), zap.Error(err))
	}
	if onDone != nil {
		onDone(err)
	}
}

func (s *DiscordSink) pump(pb *playback, src io.Reader, enc encoder) error {
	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		if !pb.waitResumed() {
			return nil
		}

		if _, err := io.ReadFull(src, pcmBuf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || pb.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, err := enc.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case s.out <- opus:
		case <-pb.ctx.Done():
			return nil
		}
	}
}

func (s *DiscordSink) current() *playback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *DiscordSink) Pause() bool {
	pb := s.current()
	if pb == nil || !pb.pause() {
		return false
	}
	s.setSpeaking(false)
	return true
}

func (s *DiscordSink) Resume() bool {
	pb := s.current()
	if pb == nil || !pb.unpause() {
		return false
	}
	s.setSpeaking(true)
	return true
}

// Stop halts the current stream without invoking its completion callback.
func (s *DiscordSink) Stop() {
	s.mu.Lock()
	pb := s.cur
	s.cur = nil
	s.mu.Unlock()
	if pb == nil {
		return
	}

	pb.stopped.Store(true)
	pb.cancel()
	select {
	case <-pb.done:
	case <-time.After(stopTimeout):
		s.log.Warn("playback goroutine did not exit in time", zap.String("channel_id", s.channelID))
	}
}

func (s *DiscordSink) IsPlaying() bool {
	pb := s.current()
	return pb != nil && !pb.isPaused()
}

func (s *DiscordSink) IsPaused() bool {
	pb := s.current()
	return pb != nil && pb.isPaused()
}

func (s *DiscordSink) ChannelID() string {
	return s.channelID
}

func (s *DiscordSink) Disconnect() error {
	s.Stop()
	if s.disconnect == nil {
		return nil
	}
	return s.disconnect()
}

func (s *DiscordSink) setSpeaking(on bool) {
	if s.speaking == nil {
		return
	}
	if err := s.speaking(on); err != nil {
		s.log.Debug("failed to set speaking state", zap.Bool("speaking", on), zap.Error(err))
	}
}
