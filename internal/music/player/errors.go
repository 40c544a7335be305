package player

import (
	"errors"
	"fmt"
)

var (
	ErrNotPlaying = errors.New("no track is currently playing")
	ErrNotPaused  = errors.New("playback is not paused")
	// ErrInterrupted means stop or leave ran while the request was in flight.
	ErrInterrupted = errors.New("playback was stopped while the request was in flight")
)

// SinkError is a failed connect or play call on the voice sink.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string { return fmt.Sprintf("sink %s: %v", e.Op, e.Err) }
func (e *SinkError) Unwrap() error { return e.Err }

// PlaybackError means every queued track failed to load and the session went idle.
type PlaybackError struct {
	Dropped int
	Err     error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("dropped %d track(s) that failed to load: %v", e.Dropped, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
