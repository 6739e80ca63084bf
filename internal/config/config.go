package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime knobs, read from the environment with sane
// defaults.
type Config struct {
	Port string `env:"SOSRATES_PORT" env-default:"8000"`

	TTL            time.Duration `env:"SOSRATES_TTL" env-default:"6h"`
	Offline        bool          `env:"SOSRATES_OFFLINE" env-default:"false"`
	CachePath      string        `env:"SOSRATES_CACHE_PATH"`
	HistoryPath    string        `env:"SOSRATES_HISTORY_PATH"`
	RetentionDays  int           `env:"SOSRATES_RETENTION_DAYS" env-default:"90"`
	MaxRetries     int           `env:"SOSRATES_MAX_RETRIES" env-default:"3"`
	AttemptTimeout time.Duration `env:"SOSRATES_ATTEMPT_TIMEOUT" env-default:"10s"`

	DBDriver string `env:"SOSRATES_DB_DRIVER" env-default:"memory"`
	DBDSN    string `env:"SOSRATES_DB_DSN"`

	// CronInterval is either integer seconds or a cron expression; the
	// worker re-reads its storage override at runtime.
	CronInterval string `env:"SOSRATES_CRON_INTERVAL" env-default:"300"`
}

// Load builds a Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.CachePath == "" {
		cfg.CachePath = defaultDataPath("rates.json")
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = defaultDataPath("history.json")
	}
	return cfg, nil
}

func defaultDataPath(name string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sosrates", name)
}
