package blogapi

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/eringen/blogapi/internal/objstore"
	"github.com/eringen/blogapi/internal/store"
)

// Config holds all configuration for a blogapi server.
type Config struct {
	Name        string // Site name used by the feed and index page (default "Blog API")
	URL         string // Canonical URL (default "http://localhost:8000")
	Description string // Feed description

	Addr        string // Listen address (default ":8000")
	DatabaseURL string // SQLite path or postgres:// URL (default "data/blog.db")

	SecretKey     string        // Required: token signing key
	Algorithm     string        // HS256, HS384 or HS512 (default HS256)
	TokenTTL      time.Duration // Access token lifetime (default 30min)
	SessionSecret string        // Cookie session key (defaults to SecretKey)
	CookieSecure  bool          // Set true for HTTPS

	AvatarDir string            // Local avatar directory (default "data/avatars")
	S3        objstore.S3Config // When S3.Bucket is set avatars go to S3 instead

	FeedCacheTTL  time.Duration // Feed cache TTL (default 5min)
	LoginAttempts int           // Failed logins allowed per window (default 5)
	LoginWindow   time.Duration // Login limiter window (default 1min)
	BodyLimit     string        // Request body limit (default "12M")
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog API"
	}
	if c.URL == "" {
		c.URL = "http://localhost:8000"
	}
	if c.Description == "" {
		c.Description = c.Name + " posts"
	}
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/blog.db"
	}
	if c.Algorithm == "" {
		c.Algorithm = "HS256"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 30 * time.Minute
	}
	if c.SessionSecret == "" {
		c.SessionSecret = c.SecretKey
	}
	if c.AvatarDir == "" {
		c.AvatarDir = "data/avatars"
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = 5 * time.Minute
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.BodyLimit == "" {
		c.BodyLimit = "12M"
	}
}

// LoadConfig reads the configuration from the environment. Unset variables
// fall back to the defaults applied by New.
func LoadConfig() Config {
	return Config{
		Name:          os.Getenv("SITE_NAME"),
		URL:           os.Getenv("SITE_URL"),
		Addr:          os.Getenv("ADDR"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		Algorithm:     os.Getenv("ALGORITHM"),
		TokenTTL:      time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CookieSecure:  envBool("COOKIE_SECURE", false),
		AvatarDir:     os.Getenv("AVATAR_DIR"),
		S3: objstore.S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    EnvOr("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		FeedCacheTTL: envDuration("FEED_CACHE_TTL", 5*time.Minute),
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithStore makes Init use an already opened store instead of opening
// Config.DatabaseURL.
func WithStore(s *store.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithAvatarStore overrides the avatar backend chosen from the config.
func WithAvatarStore(s objstore.Store) Option {
	return func(a *App) {
		a.Avatars = s
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are in place.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
