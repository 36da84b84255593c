// Package config reads fotovy settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds settings shared by the fotovy commands. Command-line flags take
// precedence over the values read here.
type Config struct {
	Library struct {
		Dirs  []string `env:"FOTOVY_IN" env-separator:"," env-description:"photo directories"`
		Watch bool     `env:"FOTOVY_WATCH" env-default:"false" env-description:"rescan on changes"`
	}
	Gallery struct {
		PageSize int `env:"FOTOVY_PAGE_SIZE" env-default:"60" env-description:"items fetched per page"`
	}
	Cache struct {
		Dir        string        `env:"FOTOVY_CACHE_DIR" env-description:"thumbnail cache directory (temporary if empty)"`
		MaxEntries int           `env:"FOTOVY_CACHE_ENTRIES" env-default:"2048" env-description:"thumbnails kept on disk"`
		MaxAge     time.Duration `env:"FOTOVY_CACHE_TTL" env-description:"expire thumbnails after this long instead of by count"`
		MemoryMax  uint64        `env:"FOTOVY_CACHE_MEMORY" env-default:"67108864" env-description:"bytes of thumbnails kept in memory"`
	}
	HTTP struct {
		Addr string `env:"FOTOVY_ADDR" env-default:"localhost:12800" env-description:"host:port to bind to"`
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// Usage describes the environment variables Load reads.
func Usage() string {
	help, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return err.Error()
	}
	return help
}

// Validate checks settings that have no usable zero value.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Library.Dirs) == 0 {
		errs = append(errs, errors.New("no photo directories"))
	}
	if c.Gallery.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.Gallery.PageSize))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache entries must not be negative, got %d", c.Cache.MaxEntries))
	}
	return errors.Join(errs...)
}
