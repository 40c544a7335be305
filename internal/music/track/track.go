package track

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind tells the engine how to turn a Track into a playable stream.
type SourceKind int

const (
	// SingleLookup tracks carry a video reference that still needs a stream lookup.
	// Playlist expansion produces tracks of this kind as well.
	SingleLookup SourceKind = iota
	// AmbientFeed tracks embed an already resolved stream path.
	AmbientFeed
)

func (k SourceKind) String() string {
	switch k {
	case SingleLookup:
		return "single"
	case AmbientFeed:
		return "ambient"
	default:
		return "unknown"
	}
}

// AmbientItem is one entry of the ambient feed.
type AmbientItem struct {
	Title      string `json:"title"`
	StreamPath string `json:"stream_path"`
	ImagePath  string `json:"image_path"`
}

// Track is a resolved, queueable unit of audio. It is never modified after creation.
type Track struct {
	ID      string
	Kind    SourceKind
	Ref     string // lookup URL or video ID for SingleLookup
	Title   string // best known title at enqueue time, may be empty
	Ambient *AmbientItem
	AddedAt time.Time
}

// NewLookup creates a SingleLookup track for the given reference.
func NewLookup(ref, title string) Track {
	return Track{
		ID:      uuid.NewString(),
		Kind:    SingleLookup,
		Ref:     ref,
		Title:   title,
		AddedAt: time.Now(),
	}
}

// NewAmbient creates an AmbientFeed track embedding the feed item.
func NewAmbient(item AmbientItem) Track {
	return Track{
		ID:      uuid.NewString(),
		Kind:    AmbientFeed,
		Ref:     item.StreamPath,
		Title:   item.Title,
		Ambient: &item,
		AddedAt: time.Now(),
	}
}

// Label returns something human readable for logs and queue replies.
func (t Track) Label() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Ref
}

// StreamInfo is what the sink needs to start output, plus display metadata.
type StreamInfo struct {
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	Thumbnail string        `json:"thumbnail"`
	Duration  time.Duration `json:"duration"`
	Bitrate   int           `json:"bitrate"`
}
