package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/track"
	"github.com/keshon/jukebox/pkg/retrylimit"

	"github.com/kkdai/youtube/v2"
	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// videoClient is the part of *youtube.Client the provider uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetPlaylistContext(ctx context.Context, url string) (*youtube.Playlist, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

type searchFunc func(ctx context.Context, text string) ([]string, error)

type expandFunc func(ctx context.Context, playlistURL string) (*sources.Playlist, error)

type Options struct {
	Proxy string
	// RPS caps requests per second across lookups, searches and expansions.
	RPS float64
	// PlaylistFallback lets yt-dlp expand lists the native client cannot (mixes, radio lists).
	PlaylistFallback bool
}

// Provider implements sources.VideoProvider on top of YouTube.
type Provider struct {
	videos   videoClient
	search   searchFunc
	fallback expandFunc
	limiter  *retrylimit.AdaptiveLimiter
	log      *zap.Logger
}

// New builds a provider backed by kkdai/youtube, ytsearch and optionally yt-dlp.
func New(opts Options, log *zap.Logger) (*Provider, error) {
	hc, err := newHTTPClient(opts.Proxy)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		videos: &youtube.Client{HTTPClient: hc},
		search: ytsearchFunc(hc),
		log:    log,
	}
	if opts.PlaylistFallback {
		p.fallback = ytdlpExpand(opts.Proxy)
	}
	if opts.RPS > 0 {
		p.limiter = retrylimit.NewAdaptiveLimiter(rate.Limit(opts.RPS), 1, rate.Limit(opts.RPS*2), 1, 0.5)
	}
	return p, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// observe feeds the outcome of an upstream call back into the limiter.
func (p *Provider) observe(err error) {
	if p.limiter == nil {
		return
	}
	if err == nil {
		p.limiter.Success()
		return
	}
	if overloaded(err) {
		p.limiter.RateLimited()
	}
}

// overloaded reports a 429 or 5xx from either the video client or a retrylimit status error.
func overloaded(err error) bool {
	code := 0
	var unexpected youtube.ErrUnexpectedStatusCode
	var httpErr retrylimit.HTTPError
	switch {
	case errors.As(err, &unexpected):
		code = int(unexpected)
	case errors.As(err, &httpErr):
		code = httpErr.StatusCode()
	}
	return code == http.StatusTooManyRequests || code >= 500 && code < 600
}

// LookupSingle resolves a watch link or bare video ID.
func (p *Provider) LookupSingle(ctx context.Context, ref string) (*sources.Metadata, error) {
	id, err := youtube.ExtractVideoID(strings.TrimSpace(ref))
	if err == nil && !videoIDPattern.MatchString(id) {
		err = youtube.ErrInvalidCharactersInVideoID
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a video reference", sources.ErrNotFound, ref)
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	video, err := p.videos.GetVideoContext(ctx, id)
	p.observe(err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, sources.Wrap(sources.SourceYouTube, "lookup", err)
	}

	md := toMetadata(video)
	if md.Live {
		return md, fmt.Errorf("video %s: %w", md.ID, sources.ErrLiveStream)
	}
	return md, nil
}

// Search returns the watch link of the candidate at the given rank.
func (p *Provider) Search(ctx context.Context, text string, rank int) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}

	ids, err := p.search(ctx, text)
	p.observe(err)
	if err != nil {
		return "", sources.Wrap(sources.SourceYouTube, "search", err)
	}
	if rank < 0 || rank >= len(ids) {
		return "", sources.ErrNoneLeft
	}
	return WatchURL(ids[rank]), nil
}

// ExpandPlaylist lists the videos of the playlist referenced by ref, in playlist order.
func (p *Provider) ExpandPlaylist(ctx context.Context, ref string) (*sources.Playlist, error) {
	listID := PlaylistID(ref)
	if listID == "" {
		return nil, fmt.Errorf("%w: %q has no playlist id", sources.ErrNotFound, ref)
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	playlistURL := PlaylistURL(listID)
	pl, err := p.videos.GetPlaylistContext(ctx, playlistURL)
	p.observe(err)
	if err == nil && len(pl.Videos) > 0 {
		out := &sources.Playlist{ID: pl.ID, Title: pl.Title, Items: make([]string, 0, len(pl.Videos))}
		for _, entry := range pl.Videos {
			out.Items = append(out.Items, WatchURL(entry.ID))
		}
		return out, nil
	}

	if p.fallback != nil {
		p.log.Debug("native playlist expansion failed, trying yt-dlp", zap.String("list", listID), zap.Error(err))
		out, ferr := p.fallback(ctx, playlistURL)
		if ferr == nil && len(out.Items) > 0 {
			return out, nil
		}
		if ferr != nil {
			err = ferr
		}
	}

	if err == nil {
		return nil, fmt.Errorf("%w: playlist %s is empty", sources.ErrNotFound, listID)
	}
	return nil, sources.Wrap(sources.SourceYouTube, "playlist", err)
}

// BestAudioStream resolves the streaming URL of the highest-bitrate pure-audio format.
func (p *Provider) BestAudioStream(ctx context.Context, md *sources.Metadata) (*track.StreamInfo, error) {
	video, ok := md.Raw.(*youtube.Video)
	if !ok || video == nil {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
		v, err := p.videos.GetVideoContext(ctx, md.ID)
		p.observe(err)
		if err != nil {
			return nil, sources.Wrap(sources.SourceYouTube, "lookup", err)
		}
		video = v
	}

	format, ok := bestAudioFormat(video.Formats.WithAudioChannels())
	if !ok {
		return nil, fmt.Errorf("%w: video %s has no pure audio stream", sources.ErrNotFound, video.ID)
	}

	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	streamURL, err := p.videos.GetStreamURLContext(ctx, video, format)
	p.observe(err)
	if err != nil {
		return nil, sources.Wrap(sources.SourceYouTube, "stream url", err)
	}

	return &track.StreamInfo{
		URL:       streamURL,
		Title:     video.Title,
		Artist:    video.Author,
		Thumbnail: largestThumbnail(video.Thumbnails),
		Duration:  video.Duration,
		Bitrate:   bitrate(format),
	}, nil
}

func toMetadata(v *youtube.Video) *sources.Metadata {
	return &sources.Metadata{
		ID:        v.ID,
		URL:       WatchURL(v.ID),
		Title:     v.Title,
		Author:    v.Author,
		Thumbnail: largestThumbnail(v.Thumbnails),
		Duration:  v.Duration,
		// Live broadcasts only expose an HLS manifest and report no duration.
		Live: v.HLSManifestURL != "" && v.Duration == 0,
		Raw:  v,
	}
}

func ytsearchFunc(hc *http.Client) searchFunc {
	client := ytsearch.NewClient(hc)
	return func(ctx context.Context, text string) ([]string, error) {
		res, err := client.Search(ctx, text)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(res.Results))
		for _, r := range res.Results {
			if r.VideoID != "" {
				ids = append(ids, r.VideoID)
			}
		}
		return ids, nil
	}
}

func ytdlpExpand(proxyStr string) expandFunc {
	return func(ctx context.Context, playlistURL string) (*sources.Playlist, error) {
		cmd := ytdlp.New().
			FlatPlaylist().
			Quiet().
			NoWarnings().
			Print("%(playlist_title)s\t%(id)s")
		if proxyStr != "" {
			cmd.Proxy(proxyStr)
		}

		res, err := cmd.Run(ctx, playlistURL)
		if err != nil {
			return nil, fmt.Errorf("yt-dlp: %w", err)
		}
		return parseFlatPlaylist(res.Stdout), nil
	}
}

// parseFlatPlaylist reads "<playlist title>\t<video id>" lines.
func parseFlatPlaylist(out string) *sources.Playlist {
	pl := &sources.Playlist{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		title, id, ok := strings.Cut(strings.TrimSpace(line), "\t")
		if !ok || id == "" {
			continue
		}
		if pl.Title == "" && title != "NA" {
			pl.Title = title
		}
		pl.Items = append(pl.Items, WatchURL(id))
	}
	return pl
}
