package youtube

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/pkg/retrylimit"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVideos struct {
	videos      map[string]*youtube.Video
	playlist    *youtube.Playlist
	playlistErr error
	errs        map[string]error
	lookups     int
}

func (f *fakeVideos) GetVideoContext(ctx context.Context, id string) (*youtube.Video, error) {
	f.lookups++
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	v, ok := f.videos[id]
	if !ok {
		return nil, errors.New("video unavailable")
	}
	return v, nil
}

func (f *fakeVideos) GetPlaylistContext(ctx context.Context, url string) (*youtube.Playlist, error) {
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	return f.playlist, nil
}

func (f *fakeVideos) GetStreamURLContext(ctx context.Context, v *youtube.Video, format *youtube.Format) (string, error) {
	return fmt.Sprintf("https://stream.example/%s?itag=%d", v.ID, format.ItagNo), nil
}

func newTestProvider(videos *fakeVideos) *Provider {
	return &Provider{videos: videos, log: zap.NewNop()}
}

func TestLookupSingle(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*youtube.Video{
		"dQw4w9WgXcQ": {ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Author: "Rick Astley", Duration: 213 * time.Second},
		"jfKfPfyJRdk": {ID: "jfKfPfyJRdk", Title: "lofi radio", HLSManifestURL: "https://manifest.example/live.m3u8"},
	}}
	p := newTestProvider(videos)

	md, err := p.LookupSingle(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", md.Title)
	assert.Equal(t, "Rick Astley", md.Author)
	assert.False(t, md.Live)

	md, err = p.LookupSingle(context.Background(), "jfKfPfyJRdk")
	assert.ErrorIs(t, err, sources.ErrLiveStream)
	require.NotNil(t, md)
	assert.True(t, md.Live)

	_, err = p.LookupSingle(context.Background(), "never gonna give you up")
	assert.ErrorIs(t, err, sources.ErrNotFound)

	_, err = p.LookupSingle(context.Background(), "aaaaaaaaaaa")
	assert.True(t, sources.IsTransport(err))
}

func TestLimiterAdapts(t *testing.T) {
	videos := &fakeVideos{
		videos: map[string]*youtube.Video{
			"dQw4w9WgXcQ": {ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Duration: 213 * time.Second},
		},
		errs: map[string]error{
			"aaaaaaaaaaa": youtube.ErrUnexpectedStatusCode(429),
			"bbbbbbbbbbb": youtube.ErrUnexpectedStatusCode(403),
		},
	}
	p := newTestProvider(videos)
	p.limiter = retrylimit.NewAdaptiveLimiter(4, 1, 8, 1, 0.5)

	_, err := p.LookupSingle(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.limiter.CurrentLimit())

	_, err = p.LookupSingle(context.Background(), "bbbbbbbbbbb")
	require.Error(t, err)
	assert.Equal(t, 5.0, p.limiter.CurrentLimit(), "client errors leave the rate alone")

	_, err = p.LookupSingle(context.Background(), "aaaaaaaaaaa")
	require.Error(t, err)
	assert.Equal(t, 2.5, p.limiter.CurrentLimit())
}

func TestOverloaded(t *testing.T) {
	assert.True(t, overloaded(youtube.ErrUnexpectedStatusCode(503)))
	assert.True(t, overloaded(fmt.Errorf("search: %w", &retrylimit.StatusError{Code: 429})))
	assert.False(t, overloaded(youtube.ErrUnexpectedStatusCode(404)))
	assert.False(t, overloaded(errors.New("video unavailable")))
}

func TestSearch(t *testing.T) {
	p := newTestProvider(&fakeVideos{})
	p.search = func(ctx context.Context, text string) ([]string, error) {
		return []string{"first000000", "second00000"}, nil
	}

	ref, err := p.Search(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Equal(t, WatchURL("second00000"), ref)

	_, err = p.Search(context.Background(), "anything", 2)
	assert.ErrorIs(t, err, sources.ErrNoneLeft)

	p.search = func(ctx context.Context, text string) ([]string, error) {
		return nil, errors.New("throttled")
	}
	_, err = p.Search(context.Background(), "anything", 0)
	assert.True(t, sources.IsTransport(err))
}

func TestExpandPlaylist(t *testing.T) {
	videos := &fakeVideos{playlist: &youtube.Playlist{
		ID:    "PL1",
		Title: "Focus",
		Videos: []*youtube.PlaylistEntry{
			{ID: "aaaaaaaaaaa"}, {ID: "bbbbbbbbbbb"}, {ID: "ccccccccccc"},
		},
	}}
	p := newTestProvider(videos)

	pl, err := p.ExpandPlaylist(context.Background(), "https://www.youtube.com/watch?v=x&list=PL1")
	require.NoError(t, err)
	assert.Equal(t, "Focus", pl.Title)
	assert.Equal(t, []string{WatchURL("aaaaaaaaaaa"), WatchURL("bbbbbbbbbbb"), WatchURL("ccccccccccc")}, pl.Items)

	_, err = p.ExpandPlaylist(context.Background(), "https://www.youtube.com/watch?v=x")
	assert.ErrorIs(t, err, sources.ErrNotFound)
}

func TestExpandPlaylist_Fallback(t *testing.T) {
	videos := &fakeVideos{playlistErr: errors.New("mix lists are not supported")}
	p := newTestProvider(videos)

	_, err := p.ExpandPlaylist(context.Background(), "https://www.youtube.com/watch?v=x&list=RDx")
	assert.True(t, sources.IsTransport(err))

	p.fallback = func(ctx context.Context, playlistURL string) (*sources.Playlist, error) {
		return parseFlatPlaylist("Mix\taaaaaaaaaaa\nMix\tbbbbbbbbbbb\n"), nil
	}
	pl, err := p.ExpandPlaylist(context.Background(), "https://www.youtube.com/watch?v=x&list=RDx")
	require.NoError(t, err)
	assert.Equal(t, "Mix", pl.Title)
	assert.Len(t, pl.Items, 2)
}

func TestBestAudioStream(t *testing.T) {
	video := &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Never Gonna Give You Up",
		Author:   "Rick Astley",
		Duration: 213 * time.Second,
		Formats: youtube.FormatList{
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2},
			{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		},
		Thumbnails: youtube.Thumbnails{{URL: "thumb", Width: 480, Height: 360}},
	}
	videos := &fakeVideos{videos: map[string]*youtube.Video{video.ID: video}}
	p := newTestProvider(videos)

	info, err := p.BestAudioStream(context.Background(), &sources.Metadata{ID: video.ID, Raw: video})
	require.NoError(t, err)
	assert.Equal(t, "https://stream.example/dQw4w9WgXcQ?itag=251", info.URL)
	assert.Equal(t, 160000, info.Bitrate)
	assert.Equal(t, "Rick Astley", info.Artist)
	assert.Equal(t, "thumb", info.Thumbnail)
	assert.Equal(t, 0, videos.lookups, "raw video is reused")

	_, err = p.BestAudioStream(context.Background(), &sources.Metadata{ID: video.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, videos.lookups)
}

func TestParseFlatPlaylist(t *testing.T) {
	pl := parseFlatPlaylist("NA\taaaaaaaaaaa\n\ngarbage\nNA\tbbbbbbbbbbb")
	assert.Equal(t, "", pl.Title)
	assert.Equal(t, []string{WatchURL("aaaaaaaaaaa"), WatchURL("bbbbbbbbbbb")}, pl.Items)
}
