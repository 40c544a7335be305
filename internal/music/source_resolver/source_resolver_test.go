package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/keshon/jukebox/internal/music/cache"
	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
	"github.com/keshon/jukebox/internal/music/track"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVideo struct {
	videos    map[string]*sources.Metadata
	live      map[string]bool
	results   []string
	playlists map[string]*sources.Playlist
	searchErr error

	lookups  []string
	searches []int
	streams  int
}

func (f *fakeVideo) LookupSingle(ctx context.Context, ref string) (*sources.Metadata, error) {
	f.lookups = append(f.lookups, ref)
	md, ok := f.videos[ref]
	if !ok {
		return nil, sources.ErrNotFound
	}
	if f.live[ref] {
		return md, sources.ErrLiveStream
	}
	return md, nil
}

func (f *fakeVideo) Search(ctx context.Context, text string, rank int) (string, error) {
	f.searches = append(f.searches, rank)
	if f.searchErr != nil {
		return "", f.searchErr
	}
	if rank >= len(f.results) {
		return "", sources.ErrNoneLeft
	}
	return f.results[rank], nil
}

func (f *fakeVideo) ExpandPlaylist(ctx context.Context, ref string) (*sources.Playlist, error) {
	pl, ok := f.playlists[youtube.PlaylistID(ref)]
	if !ok {
		return nil, sources.Wrap(sources.SourceYouTube, "playlist", errors.New("unavailable"))
	}
	return pl, nil
}

func (f *fakeVideo) BestAudioStream(ctx context.Context, md *sources.Metadata) (*track.StreamInfo, error) {
	f.streams++
	return &track.StreamInfo{URL: "https://stream.example/" + md.ID, Title: md.Title, Artist: md.Author}, nil
}

type fakeFeed struct {
	item  *track.AmbientItem
	err   error
	calls int
}

func (f *fakeFeed) FetchOne(ctx context.Context) (*track.AmbientItem, error) {
	f.calls++
	return f.item, f.err
}

func video(id, title string) *sources.Metadata {
	return &sources.Metadata{ID: id, URL: youtube.WatchURL(id), Title: title, Author: "artist"}
}

func newResolver(v *fakeVideo, feed *fakeFeed) *SourceResolver {
	if feed == nil {
		feed = &fakeFeed{}
	}
	return New(v, feed, cache.NewMemory(), Options{SearchAttempts: 3, CacheTTL: time.Minute}, zap.NewNop())
}

func TestResolve_Ambient(t *testing.T) {
	feed := &fakeFeed{item: &track.AmbientItem{Title: "rainy cafe", StreamPath: "https://cdn.example/rain.mp3"}}
	v := &fakeVideo{}
	r := newResolver(v, feed)

	res, err := r.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, track.AmbientFeed, res.Tracks[0].Kind)
	assert.Equal(t, `The song "rainy cafe"`, res.Label)
	assert.Equal(t, 1, feed.calls)
	assert.Empty(t, v.lookups)
	assert.Empty(t, v.searches)
}

func TestResolve_AmbientFailurePropagates(t *testing.T) {
	feedErr := sources.Wrap(sources.SourceLofi, "fetch", errors.New("connection refused"))
	r := newResolver(&fakeVideo{}, &fakeFeed{err: feedErr})

	_, err := r.Resolve(context.Background(), "")
	assert.True(t, sources.IsTransport(err))
}

func TestResolve_PlaylistKeepsOrder(t *testing.T) {
	items := make([]string, 5)
	for i := range items {
		items[i] = youtube.WatchURL(fmt.Sprintf("video%06d", i))
	}
	v := &fakeVideo{playlists: map[string]*sources.Playlist{"PL5": {ID: "PL5", Title: "Focus", Items: items}}}
	r := newResolver(v, nil)

	res, err := r.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PL5")
	require.NoError(t, err)
	require.Len(t, res.Tracks, 5)
	for i, tr := range res.Tracks {
		assert.Equal(t, track.SingleLookup, tr.Kind)
		assert.Equal(t, items[i], tr.Ref)
	}
	assert.Equal(t, `Playlist "Focus"`, res.Label)
}

func TestResolve_PlaylistFailureFallsThrough(t *testing.T) {
	link := "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=RDbroken"
	v := &fakeVideo{
		videos:    map[string]*sources.Metadata{link: video("dQw4w9WgXcQ", "Never Gonna Give You Up")},
		playlists: map[string]*sources.Playlist{"RDempty": {ID: "RDempty"}},
	}
	r := newResolver(v, nil)

	res, err := r.Resolve(context.Background(), link)
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, youtube.WatchURL("dQw4w9WgXcQ"), res.Tracks[0].Ref)
	assert.Equal(t, `The song "Never Gonna Give You Up"`, res.Label)

	_, err = r.resolvePlaylist(context.Background(), "https://www.youtube.com/playlist?list=RDempty")
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestResolve_SearchSkipsLiveStreams(t *testing.T) {
	v := &fakeVideo{
		videos: map[string]*sources.Metadata{
			"live-1": video("live0000001", "24/7 radio"),
			"live-2": video("live0000002", "another radio"),
			"vod":    video("vod00000001", "lofi mix"),
		},
		live:    map[string]bool{"live-1": true, "live-2": true},
		results: []string{"live-1", "live-2", "vod"},
	}
	r := newResolver(v, nil)

	res, err := r.Resolve(context.Background(), "lofi hip hop")
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "lofi mix", res.Tracks[0].Title)
	assert.Equal(t, []int{0, 1, 2}, v.searches)
}

func TestResolve_SearchAttemptsAreBounded(t *testing.T) {
	v := &fakeVideo{
		videos: map[string]*sources.Metadata{
			"live-1": video("live0000001", "a"),
			"live-2": video("live0000002", "b"),
			"live-3": video("live0000003", "c"),
			"vod":    video("vod00000001", "d"),
		},
		live:    map[string]bool{"live-1": true, "live-2": true, "live-3": true},
		results: []string{"live-1", "live-2", "live-3", "vod"},
	}
	r := newResolver(v, nil)

	_, err := r.Resolve(context.Background(), "radio")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, []int{0, 1, 2}, v.searches)
}

func TestResolve_NoResults(t *testing.T) {
	v := &fakeVideo{}
	r := newResolver(v, nil)

	_, err := r.Resolve(context.Background(), "nothing at all")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, []int{0}, v.searches)
}

func TestResolve_BareIDRetriesAsWatchLink(t *testing.T) {
	id := "dQw4w9WgXcQ"
	v := &fakeVideo{videos: map[string]*sources.Metadata{youtube.WatchURL(id): video(id, "Never Gonna Give You Up")}}
	r := newResolver(v, nil)

	res, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, youtube.WatchURL(id), res.Tracks[0].Ref)
	assert.Equal(t, []string{id, youtube.WatchURL(id)}, v.lookups)
}

func TestResolve_TransportFailure(t *testing.T) {
	v := &fakeVideo{searchErr: sources.Wrap(sources.SourceYouTube, "search", errors.New("timeout"))}
	r := newResolver(v, nil)

	_, err := r.Resolve(context.Background(), "some song")
	assert.True(t, sources.IsTransport(err))
	assert.NotErrorIs(t, err, ErrNoMatch)
}

func TestResolve_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newResolver(&fakeVideo{}, nil)

	_, err := r.Resolve(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_Lookup(t *testing.T) {
	ref := youtube.WatchURL("dQw4w9WgXcQ")
	v := &fakeVideo{videos: map[string]*sources.Metadata{ref: video("dQw4w9WgXcQ", "Never Gonna Give You Up")}}
	r := newResolver(v, nil)
	tr := track.NewLookup(ref, "")

	info, err := r.Stream(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, "https://stream.example/dQw4w9WgXcQ", info.URL)
	assert.Equal(t, "artist", info.Artist)

	_, err = r.Stream(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, 1, v.streams, "second call is served from cache")
}

func TestStream_LiveHeadFails(t *testing.T) {
	v := &fakeVideo{
		videos: map[string]*sources.Metadata{"live": video("live0000001", "radio")},
		live:   map[string]bool{"live": true},
	}
	r := newResolver(v, nil)

	_, err := r.Stream(context.Background(), track.NewLookup("live", ""))
	assert.ErrorIs(t, err, sources.ErrLiveStream)
}

func TestStream_Ambient(t *testing.T) {
	r := newResolver(&fakeVideo{}, nil)
	tr := track.NewAmbient(track.AmbientItem{Title: "rain", StreamPath: "https://cdn.example/rain.mp3", ImagePath: "img"})

	info, err := r.Stream(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/rain.mp3", info.URL)
	assert.Equal(t, "rain", info.Title)
	assert.Equal(t, "img", info.Thumbnail)

	_, err = r.Stream(context.Background(), track.Track{Kind: track.AmbientFeed})
	assert.ErrorIs(t, err, sources.ErrNotFound)
}
