package sources

import (
	"context"

	"github.com/keshon/jukebox/internal/music/track"
)

// VideoProvider looks up, searches and expands video references.
type VideoProvider interface {
	// LookupSingle fetches metadata for a direct reference (watch link or bare ID).
	// Returns ErrNotFound when the reference names nothing, ErrLiveStream for live videos.
	LookupSingle(ctx context.Context, ref string) (*Metadata, error)

	// Search returns the candidate reference at the given zero-based rank,
	// or ErrNoneLeft when the result list is shorter than that.
	Search(ctx context.Context, text string, rank int) (string, error)

	// ExpandPlaylist lists the item references of a playlist in source order.
	ExpandPlaylist(ctx context.Context, ref string) (*Playlist, error)

	// BestAudioStream picks the highest-bitrate pure-audio stream of a video.
	BestAudioStream(ctx context.Context, md *Metadata) (*track.StreamInfo, error)
}

// AmbientFeed hands out ready-to-play ambient items.
type AmbientFeed interface {
	FetchOne(ctx context.Context) (*track.AmbientItem, error)
}
