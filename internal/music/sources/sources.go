package sources

import (
	"errors"
	"fmt"
	"time"
)

const (
	SourceYouTube = "youtube"
	SourceLofi    = "lofi"
)

var (
	ErrNotFound   = errors.New("no such item")
	ErrLiveStream = errors.New("item is a live stream")
	ErrNoneLeft   = errors.New("no search results left")
)

// Metadata describes a single video as returned by a provider.
type Metadata struct {
	ID        string
	URL       string
	Title     string
	Author    string
	Thumbnail string
	Duration  time.Duration
	Live      bool

	// Raw keeps the provider's native record so BestAudioStream does not refetch it.
	Raw any
}

// Playlist is an expanded playlist.
type Playlist struct {
	ID    string
	Title string
	Items []string
}

// ProviderError marks a transport or provider failure, as opposed to a clean "not found".
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Wrap returns err as a *ProviderError unless it is nil or already one of the
// provider sentinels, which callers match with errors.Is.
func Wrap(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrLiveStream) || errors.Is(err, ErrNoneLeft) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// IsTransport reports whether err is a provider transport failure.
func IsTransport(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
