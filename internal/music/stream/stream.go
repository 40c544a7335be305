// Package stream renders audio URLs into Discord voice connections.
package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz

	bytesPerSecond = sampleRate * channels * 2
)

// Sink is one guild's audio output. It plays one stream at a time.
type Sink interface {
	// Play starts url, replacing whatever was playing. onDone runs on its own
	// goroutine when the stream ends by itself (nil) or fails (non-nil). It is
	// never called after Stop.
	Play(url string, onDone func(error)) error
	// Pause and Resume report whether they changed anything.
	Pause() bool
	Resume() bool
	Stop()
	IsPlaying() bool
	IsPaused() bool
	ChannelID() string
	Disconnect() error
}

// Connector joins voice channels.
type Connector interface {
	Connect(ctx context.Context, guildID, channelID string) (Sink, error)
}

// pcmStream is signed 16-bit little-endian stereo PCM at 48kHz.
type pcmStream interface {
	io.Reader
	// Wait reaps the producer and reports how it ended.
	Wait() error
}

type opener func(ctx context.Context, url string, seek time.Duration) (pcmStream, error)

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	once sync.Once
	err  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegStream) Wait() error {
	s.once.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			msg := bytes.TrimSpace(s.stderr.Bytes())
			if len(msg) > 512 {
				msg = msg[len(msg)-512:]
			}
			s.err = fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
	})
	return s.err
}

// openFFmpeg decodes url to PCM. Cancelling ctx kills the process.
func openFFmpeg(ctx context.Context, url string, seek time.Duration) (pcmStream, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(url, seek)...)
	s := &ffmpegStream{cmd: cmd}
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}
	s.stdout = stdout
	return s, nil
}

func ffmpegArgs(url string, seek time.Duration) []string {
	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
	}
	if seek > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seek.Seconds(), 'f', 2, 64))
	}
	return append(args,
		"-i", url,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)
}
