// /internal/config/config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken     string        `env:"DISCORD_TOKEN,required"`
	StoragePath      string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	CommandPrefix    string        `env:"COMMAND_PREFIX" envDefault:"/"`
	MusicChannelName string        `env:"MUSIC_CHANNEL_NAME" envDefault:"Music"`
	ReplyTTL         time.Duration `env:"REPLY_TTL" envDefault:"300s"`

	AmbientFeedURL string  `env:"AMBIENT_FEED_URL" envDefault:"https://lofi-api.herokuapp.com/v1/track"`
	SearchAttempts int     `env:"SEARCH_ATTEMPTS" envDefault:"3"`
	YouTubeProxy   string  `env:"YOUTUBE_PROXY"`
	ProviderRPS    float64 `env:"PROVIDER_RPS" envDefault:"5"`
	// PlaylistFallback enables yt-dlp for playlists the native client cannot list.
	PlaylistFallback bool `env:"PLAYLIST_FALLBACK" envDefault:"false"`

	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	StreamCacheTTL time.Duration `env:"STREAM_CACHE_TTL" envDefault:"30m"`

	StatusAddr string `env:"STATUS_ADDR"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// New loads .env (if any) and parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.SearchAttempts < 1 {
		return nil, fmt.Errorf("config: SEARCH_ATTEMPTS must be at least 1, got %d", cfg.SearchAttempts)
	}
	if cfg.CommandPrefix == "" {
		return nil, fmt.Errorf("config: COMMAND_PREFIX must not be empty")
	}
	return &cfg, nil
}
