// Package lofi fetches ready-to-play ambient tracks from a lofi track feed.
package lofi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/keshon/jukebox/internal/music/sources"
	"github.com/keshon/jukebox/internal/music/track"
	"github.com/keshon/jukebox/pkg/retrylimit"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultFeedURL = "https://lofi-api.herokuapp.com/v1/track"

// maxBody caps the feed response; the real feed is a few kilobytes.
const maxBody = 4 << 20

type feedResponse struct {
	Items []feedItem `json:"items"`
}

type feedItem struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Image struct {
		Path string `json:"path"`
	} `json:"image"`
}

// Feed implements sources.AmbientFeed.
type Feed struct {
	URL      string
	Client   *http.Client
	Attempts int

	limiter *retrylimit.AdaptiveLimiter
	pick    func(n int) int
	log     *zap.Logger
}

// New creates a feed reader for url. rps <= 0 disables rate limiting.
func New(url string, rps float64, log *zap.Logger) *Feed {
	if url == "" {
		url = DefaultFeedURL
	}
	f := &Feed{
		URL: url,
		Client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		Attempts: 3,
		pick:     rand.IntN,
		log:      log,
	}
	if rps > 0 {
		f.limiter = retrylimit.NewAdaptiveLimiter(rate.Limit(rps), 1, rate.Limit(rps*2), 1, 0.5)
	}
	return f
}

// FetchOne downloads the feed and returns one item chosen at random.
func (f *Feed) FetchOne(ctx context.Context) (*track.AmbientItem, error) {
	var resp feedResponse
	err := retrylimit.WithRetryConfig(ctx, func() error {
		return f.fetch(ctx, &resp)
	}, f.limiter, retrylimit.RetryConfig{
		MaxAttempts:    f.Attempts,
		InitialDelay:   300 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2,
		Jitter:         true,
		OnRetry: func(attempt int, err error) {
			f.log.Warn("ambient feed request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, sources.Wrap(sources.SourceLofi, "fetch", err)
	}

	playable := resp.Items[:0]
	for _, it := range resp.Items {
		if it.Path != "" {
			playable = append(playable, it)
		}
	}
	if len(playable) == 0 {
		return nil, sources.Wrap(sources.SourceLofi, "fetch", fmt.Errorf("feed %s returned no playable items", f.URL))
	}

	it := playable[f.pick(len(playable))]
	return &track.AmbientItem{
		Title:      it.Title,
		StreamPath: it.Path,
		ImagePath:  it.Image.Path,
	}, nil
}

func (f *Feed) fetch(ctx context.Context, out *feedResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return retrylimit.Fatal(fmt.Errorf("request creation failed: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &retrylimit.StatusError{Code: resp.StatusCode, URL: f.URL}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return retrylimit.Fatal(statusErr)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return retrylimit.Fatal(fmt.Errorf("decode feed: %w", err))
	}
	return nil
}
