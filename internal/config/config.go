// Package config loads service configuration from environment variables
// using github.com/caarlos0/env. Mains call godotenv first so a local
// .env file works in development.
package config

import (
	"github.com/caarlos0/env/v11"
)

// Config holds everything the API and worker binaries need.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR,required"`

	// QueueName is the redis list the API pushes job IDs onto.
	QueueName string `env:"JOB_QUEUE_NAME" envDefault:"abode:render-jobs"`

	// RendererBaseURL is the external render engine's HTTP endpoint.
	RendererBaseURL string `env:"RENDERER_HTTP_BASEURL"`

	// WorkDir is the local scratch root shared with the render engine.
	WorkDir string `env:"RENDER_WORK_DIR" envDefault:"/data"`

	// PublicBaseURL prefixes published artifact object keys to form the
	// URLs returned to clients.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080/artifacts"`

	// WorkerConcurrency is how many render jobs one worker process
	// executes in parallel.
	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"2"`

	// RefundRetries / RefundBackoffMS bound the compensating refund
	// retry loop.
	RefundRetries   int `env:"REFUND_RETRIES" envDefault:"5"`
	RefundBackoffMS int `env:"REFUND_BACKOFF_MS" envDefault:"1000"`

	Storage StorageConfig
	Log     LogConfig
}

// StorageConfig selects and configures the artifact storage backend.
// The gdrive fields are only required when Provider is "gdrive".
type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"localfs"`
	LocalRoot string `env:"STORAGE_LOCAL_ROOT" envDefault:"/data/artifacts"`

	GDriveClientID     string `env:"GDRIVE_CLIENT_ID"`
	GDriveClientSecret string `env:"GDRIVE_CLIENT_SECRET"`
	GDriveRefreshToken string `env:"GDRIVE_REFRESH_TOKEN"`
	GDriveFolderID     string `env:"GDRIVE_FOLDER_ID"`
}

// LogConfig mirrors the logger package's environment knobs so they show
// up in one place.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	Source bool   `env:"LOG_SOURCE" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
