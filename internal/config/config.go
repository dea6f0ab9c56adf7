package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, the status HTTP server, the
// scan engine, local history and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all status server related configurations
	HTTP struct {
		// Addr is the address and port the status server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"10s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Scanner contains all scan engine related configurations
	Scanner struct {
		// SampleInterval is the pause between frame decode attempts
		SampleInterval time.Duration `env:"SCANNER_SAMPLE_INTERVAL" env-default:"500ms" yaml:"sampleInterval"`
		// ThrottleWindow is how long a repeated identical payload is suppressed
		ThrottleWindow time.Duration `env:"SCANNER_THROTTLE_WINDOW" env-default:"2s" yaml:"throttleWindow"`
		// DefaultBusinessID fills wallet payloads that omit businessId
		DefaultBusinessID string `env:"SCANNER_DEFAULT_BUSINESS_ID" env-default:"" yaml:"defaultBusinessId"`
		// Facing selects the camera, "environment" (rear) or "user" (front)
		Facing string `env:"SCANNER_FACING" env-default:"environment" yaml:"facing"`
		// AllowInsecureCapture permits camera access outside a secure context
		AllowInsecureCapture bool `env:"SCANNER_ALLOW_INSECURE_CAPTURE" env-default:"false" yaml:"allowInsecureCapture"`
		// ScriptPath replays payloads from a script file instead of real camera hardware when set
		ScriptPath string `env:"SCANNER_SCRIPT_PATH" env-default:"" yaml:"scriptPath"`
	} `yaml:"scanner"`

	// History contains all local scan history related configurations
	History struct {
		// Path is the location of the history database file
		Path string `env:"HISTORY_PATH" env-default:"loyscan-history.db" yaml:"path"`
		// RecentLimit caps how many records the status endpoint returns
		RecentLimit int `env:"HISTORY_RECENT_LIMIT" env-default:"20" yaml:"recentLimit"`
	} `yaml:"history"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
