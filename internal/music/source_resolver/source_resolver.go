// Package source_resolver turns user queries into queueable tracks and queue
// heads into playable streams.
package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keshon/jukebox/internal/music/cache"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
	"github.com/keshon/jukebox/internal/music/track"

	"go.uber.org/zap"
)

var (
	// ErrNoMatch means the query could not be resolved to anything playable.
	ErrNoMatch = errors.New("no playable track found")
	// ErrEmptyPlaylist means a playlist expanded to zero items.
	ErrEmptyPlaylist = errors.New("playlist has no items")
)

const DefaultSearchAttempts = 3

// Result is a successful resolution.
type Result struct {
	Tracks []track.Track
	// Label names what was resolved, e.g. `Playlist "Focus"` or `The song "Title"`.
	Label string
}

type Options struct {
	SearchAttempts int
	CacheTTL       time.Duration
}

type SourceResolver struct {
	video    sources.VideoProvider
	ambient  sources.AmbientFeed
	cache    cache.Store
	attempts int
	cacheTTL time.Duration
	log      *zap.Logger
}

func New(video sources.VideoProvider, ambient sources.AmbientFeed, store cache.Store, opts Options, log *zap.Logger) *SourceResolver {
	if store == nil {
		store = cache.Nop{}
	}
	if opts.SearchAttempts <= 0 {
		opts.SearchAttempts = DefaultSearchAttempts
	}
	return &SourceResolver{
		video:    video,
		ambient:  ambient,
		cache:    store,
		attempts: opts.SearchAttempts,
		cacheTTL: opts.CacheTTL,
		log:      log,
	}
}

// Resolve maps a query to one or more tracks. An empty query takes one item
// from the ambient feed. Returns ErrNoMatch when nothing playable was found,
// or a provider error when the providers could not be reached at all.
func (r *SourceResolver) Resolve(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.resolveAmbient(ctx)
	}

	if youtube.PlaylistID(query) != "" {
		res, err := r.resolvePlaylist(ctx, query)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.log.Info("playlist expansion failed, trying single lookup", zap.String("query", query), zap.Error(err))
	}

	var transportErr error
	note := func(err error) {
		if sources.IsTransport(err) {
			r.log.Warn("provider failure during resolution", zap.String("query", query), zap.Error(err))
			transportErr = err
		}
	}

	md, err := r.video.LookupSingle(ctx, query)
	if err == nil {
		return singleResult(md), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	note(err)

	md, err = r.search(ctx, query)
	if err == nil {
		return singleResult(md), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	note(err)

	if !youtube.HasSchemeOrHost(query) && !strings.ContainsAny(query, " \t") {
		md, err = r.video.LookupSingle(ctx, youtube.WatchURL(query))
		if err == nil {
			return singleResult(md), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		note(err)
	}

	if transportErr != nil {
		return nil, transportErr
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
}

func (r *SourceResolver) resolveAmbient(ctx context.Context) (*Result, error) {
	item, err := r.ambient.FetchOne(ctx)
	if err != nil {
		return nil, err
	}
	t := track.NewAmbient(*item)
	return &Result{Tracks: []track.Track{t}, Label: songLabel(t.Label())}, nil
}

func (r *SourceResolver) resolvePlaylist(ctx context.Context, query string) (*Result, error) {
	pl, err := r.video.ExpandPlaylist(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pl.Items) == 0 {
		return nil, ErrEmptyPlaylist
	}

	tracks := make([]track.Track, 0, len(pl.Items))
	for _, ref := range pl.Items {
		tracks = append(tracks, track.NewLookup(ref, ""))
	}
	title := pl.Title
	if title == "" {
		title = pl.ID
	}
	return &Result{Tracks: tracks, Label: fmt.Sprintf("Playlist %q", title)}, nil
}

// search walks the ranked results, skipping live streams, for at most r.attempts ranks.
func (r *SourceResolver) search(ctx context.Context, text string) (*sources.Metadata, error) {
	for rank := 0; rank < r.attempts; rank++ {
		ref, err := r.video.Search(ctx, text, rank)
		if err != nil {
			if errors.Is(err, sources.ErrNoneLeft) {
				break
			}
			return nil, err
		}

		md, err := r.video.LookupSingle(ctx, ref)
		switch {
		case err == nil:
			return md, nil
		case errors.Is(err, sources.ErrLiveStream):
			r.log.Debug("skipping live search result", zap.String("query", text), zap.Int("rank", rank), zap.String("ref", ref))
			continue
		case errors.Is(err, sources.ErrNotFound):
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrNoMatch
}

// Stream resolves the playable stream of a queued track.
func (r *SourceResolver) Stream(ctx context.Context, t track.Track) (*track.StreamInfo, error) {
	switch t.Kind {
	case track.AmbientFeed:
		if t.Ambient == nil || t.Ambient.StreamPath == "" {
			return nil, fmt.Errorf("%w: ambient track %s has no stream path", sources.ErrNotFound, t.ID)
		}
		return &track.StreamInfo{
			URL:       t.Ambient.StreamPath,
			Title:     t.Ambient.Title,
			Thumbnail: t.Ambient.ImagePath,
		}, nil

	case track.SingleLookup:
		if info, ok := r.cache.Get(ctx, t.Ref); ok {
			return info, nil
		}
		md, err := r.video.LookupSingle(ctx, t.Ref)
		if err != nil {
			return nil, err
		}
		info, err := r.video.BestAudioStream(ctx, md)
		if err != nil {
			return nil, err
		}
		r.cache.Set(ctx, t.Ref, info, r.cacheTTL)
		return info, nil

	default:
		return nil, fmt.Errorf("unknown source kind %d", t.Kind)
	}
}

func singleResult(md *sources.Metadata) *Result {
	t := track.NewLookup(md.URL, md.Title)
	return &Result{Tracks: []track.Track{t}, Label: songLabel(t.Label())}
}

func songLabel(title string) string {
	return fmt.Sprintf("The song %q", title)
}
