// Package config loads settings from defaults, an optional startpage.yaml and
// STARTPAGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"startpage/icon"
	"startpage/store"
)

// Keys.
const (
	KeyAddr           = "addr"
	KeyStorageBackend = "storage.backend"
	KeyStoragePath    = "storage.path"
	KeyStorageKey     = "storage.key"
	KeyCachePath      = "cache.path"
	KeyIconsTimeout   = "icons.timeout"
	KeyIconsDiscover  = "icons.discover"
	KeyIconsVector    = "icons.vector_base"
	KeyIconsFavicon   = "icons.favicon_base"
	KeyIconsSize      = "icons.favicon_size"
	KeyIconsWorkers   = "icons.workers"
	KeyWallpaperFeed  = "wallpaper.feed"
	KeyWallpaperFall  = "wallpaper.fallback"
	KeySessionTTL     = "session.ttl"
	KeySessionReap    = "session.reap_interval"
	KeyLogLevel       = "log.level"
	KeyLogPretty      = "log.pretty"
)

// Config is the resolved configuration.
type Config struct {
	Addr string

	StorageBackend string
	StoragePath    string
	StorageKey     string
	CachePath      string

	IconTimeout time.Duration
	IconSources icon.Sources
	IconWorkers int

	WallpaperFeed     string
	WallpaperFallback string

	SessionTTL          time.Duration
	SessionReapInterval time.Duration

	LogLevel  string
	LogPretty bool
}

// New returns a viper instance with every default set and the file and
// environment sources configured. configFile may be empty.
func New(configFile string) *viper.Viper {
	v := viper.New()

	dataDir := defaultDataDir()
	def := icon.DefaultSources()

	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyStorageBackend, store.KindFile)
	v.SetDefault(KeyStoragePath, filepath.Join(dataDir, "state"))
	v.SetDefault(KeyStorageKey, store.Namespace)
	v.SetDefault(KeyCachePath, filepath.Join(dataDir, "cache"))
	v.SetDefault(KeyIconsTimeout, "10s")
	v.SetDefault(KeyIconsDiscover, false)
	v.SetDefault(KeyIconsVector, def.VectorBase)
	v.SetDefault(KeyIconsFavicon, def.FaviconBase)
	v.SetDefault(KeyIconsSize, def.FaviconSize)
	v.SetDefault(KeyIconsWorkers, 4)
	v.SetDefault(KeyWallpaperFeed, "https://bing.biturl.top/?resolution=1920&format=json&index=0&mkt=zh-CN")
	v.SetDefault(KeyWallpaperFall, "https://bing.biturl.top/?resolution=1920&format=image&index=0&mkt=zh-CN")
	v.SetDefault(KeySessionTTL, "10m")
	v.SetDefault(KeySessionReap, "1m")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogPretty, false)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("startpage") // .yaml is implicit
		v.AddConfigPath(".")
		v.AddConfigPath(dataDir)
		if override := os.Getenv("STARTPAGE_CONFIG_PATH"); override != "" {
			v.AddConfigPath(override)
		}
	}

	v.SetEnvPrefix("STARTPAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and resolves v into a Config. A
// missing config file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	c := Config{
		Addr:           v.GetString(KeyAddr),
		StorageBackend: v.GetString(KeyStorageBackend),
		StoragePath:    expandHome(v.GetString(KeyStoragePath)),
		StorageKey:     v.GetString(KeyStorageKey),
		CachePath:      expandHome(v.GetString(KeyCachePath)),
		IconTimeout:    v.GetDuration(KeyIconsTimeout),
		IconSources: icon.Sources{
			VectorBase:  v.GetString(KeyIconsVector),
			FaviconBase: v.GetString(KeyIconsFavicon),
			FaviconSize: v.GetInt(KeyIconsSize),
			Discover:    v.GetBool(KeyIconsDiscover),
		},
		IconWorkers:         v.GetInt(KeyIconsWorkers),
		WallpaperFeed:       v.GetString(KeyWallpaperFeed),
		WallpaperFallback:   v.GetString(KeyWallpaperFall),
		SessionTTL:          v.GetDuration(KeySessionTTL),
		SessionReapInterval: v.GetDuration(KeySessionReap),
		LogLevel:            v.GetString(KeyLogLevel),
		LogPretty:           v.GetBool(KeyLogPretty),
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case store.KindFile, store.KindDiskv, store.KindSQLite, store.KindMemory:
	default:
		return fmt.Errorf("%s: unknown backend %q", KeyStorageBackend, c.StorageBackend)
	}
	if c.IconTimeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyIconsTimeout)
	}
	if c.IconSources.FaviconSize <= 0 {
		return fmt.Errorf("%s must be positive", KeyIconsSize)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "startpage")
	}
	return ".startpage"
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
