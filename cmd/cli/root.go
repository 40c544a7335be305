package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/keshon/jukebox/internal/logger"
	"github.com/keshon/jukebox/internal/music/cache"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources/lofi"
	"github.com/keshon/jukebox/internal/music/sources/youtube"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flags struct {
	proxy    string
	feedURL  string
	attempts int
	rps      float64
	fallback bool
	verbose  bool
}

var rootCmd = &cobra.Command{
	Use:           "jukebox-cli",
	Short:         "Resolve tracks and streams the way the bot does, without Discord.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.proxy, "proxy", os.Getenv("YOUTUBE_PROXY"), "http, https or socks5 proxy for the video provider")
	pf.StringVar(&flags.feedURL, "feed-url", lofi.DefaultFeedURL, "ambient feed endpoint")
	pf.IntVar(&flags.attempts, "attempts", source_resolver.DefaultSearchAttempts, "search ranks to try before giving up")
	pf.Float64Var(&flags.rps, "rps", 5, "provider requests per second")
	pf.BoolVar(&flags.fallback, "playlist-fallback", false, "expand unsupported playlists with yt-dlp")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log provider activity to stdout")
}

func newResolver() (*source_resolver.SourceResolver, error) {
	log := zap.NewNop()
	if flags.verbose {
		l, err := logger.New(logger.Config{Level: "debug"})
		if err != nil {
			return nil, err
		}
		log = l
	}

	videos, err := youtube.New(youtube.Options{
		Proxy:            flags.proxy,
		RPS:              flags.rps,
		PlaylistFallback: flags.fallback,
	}, log.Named("youtube"))
	if err != nil {
		return nil, err
	}
	feed := lofi.New(flags.feedURL, flags.rps, log.Named("lofi"))

	return source_resolver.New(videos, feed, cache.NewMemory(), source_resolver.Options{
		SearchAttempts: flags.attempts,
	}, log.Named("resolver")), nil
}
