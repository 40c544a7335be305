// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keshon/jukebox/internal/command"
	"github.com/keshon/jukebox/internal/command/music"
	"github.com/keshon/jukebox/internal/config"
	"github.com/keshon/jukebox/internal/discord"
	"github.com/keshon/jukebox/internal/logger"
	"github.com/keshon/jukebox/internal/middleware"
	"github.com/keshon/jukebox/internal/music/cache"
	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/music/source_resolver"
	"github.com/keshon/jukebox/internal/music/sources/lofi"
	"github.com/keshon/jukebox/internal/music/sources/youtube"
	"github.com/keshon/jukebox/internal/music/stream"
	"github.com/keshon/jukebox/internal/statusserver"
	"github.com/keshon/jukebox/internal/storage"
	"github.com/keshon/jukebox/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const appName = "jukebox"

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync() //nolint:errcheck

	zl.Info("starting bot", zap.String("app", appName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		zl.Fatal("failed to open storage", zap.String("path", cfg.StoragePath), zap.Error(err))
	}
	defer store.Close()

	var streamCache cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, zl.Named("cache"))
		if err != nil {
			zl.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rc.Close()
		streamCache = rc
	}

	videos, err := youtube.New(youtube.Options{
		Proxy:            cfg.YouTubeProxy,
		RPS:              cfg.ProviderRPS,
		PlaylistFallback: cfg.PlaylistFallback,
	}, zl.Named("youtube"))
	if err != nil {
		zl.Fatal("failed to create video provider", zap.Error(err))
	}
	feed := lofi.New(cfg.AmbientFeedURL, cfg.ProviderRPS, zl.Named("lofi"))

	resolver := source_resolver.New(videos, feed, streamCache, source_resolver.Options{
		SearchAttempts: cfg.SearchAttempts,
		CacheTTL:       cfg.StreamCacheTTL,
	}, zl.Named("resolver"))

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		zl.Fatal("failed to create discord session", zap.Error(err))
	}

	svc := player.NewService(
		player.NewRegistry(),
		resolver,
		stream.NewDiscordVoice(dg, zl.Named("stream")),
		discord.NewNotifier(dg, cfg.ReplyTTL, zl.Named("discord")),
		store,
		zl.Named("player"),
	)

	mws := []cmd.Middleware{
		middleware.WithGuildOnly(),
		middleware.WithCommandLogger(store, zl.Named("commands")),
	}
	for _, c := range music.Commands(svc, zl.Named("commands")) {
		command.RegisterCommand(c, mws...)
	}
	command.RegisterCommand(&command.HelpCommand{Registry: cmd.DefaultRegistry, Prefix: cfg.CommandPrefix})

	if cfg.StatusAddr != "" {
		status := statusserver.New(svc, store, zl.Named("status"))
		go func() {
			if err := status.Run(ctx, cfg.StatusAddr); err != nil {
				zl.Error("status server exited", zap.Error(err))
			}
		}()
	}

	bot := discord.NewBot(dg, cmd.DefaultRegistry, discord.Options{
		Prefix:           cfg.CommandPrefix,
		MusicChannelName: cfg.MusicChannelName,
		ReplyTTL:         cfg.ReplyTTL,
	}, zl.Named("discord"))

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		zl.Info("received signal, shutting down", zap.String("signal", s.String()))
		svc.Shutdown()
		cancel()
	case err := <-errCh:
		if err != nil {
			zl.Error("discord bot error", zap.Error(err))
		}
		svc.Shutdown()
		cancel()
	}

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
	}
	zl.Info("discord bot exited cleanly")
}
