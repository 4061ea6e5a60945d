package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

const defaultAllowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"

// Config holds application configuration
type Config struct {
	// クライアント設定
	BaseURL         string        `env:"BOARD_BASE_URL,default=http://localhost:8080"`
	StreamTransport string        `env:"BOARD_STREAM_TRANSPORT,default=sse"`
	ResolveTimeout  time.Duration `env:"BOARD_RESOLVE_TIMEOUT,default=5s"`
	RequestTimeout  time.Duration `env:"BOARD_REQUEST_TIMEOUT,default=10s"`
	ICEServersRaw   string        `env:"BOARD_ICE_SERVERS"`
	SkipUnresolved  bool          `env:"BOARD_SKIP_UNRESOLVED,default=false"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`

	// サーバー設定
	ServerPort string `env:"SERVER_PORT,default=8080"`
	Env        string `env:"ENV,default=development"`
	StorePath  string `env:"STORE_PATH"`

	// CORS設定
	AllowedOriginsRaw string `env:"ALLOWED_ORIGINS"`

	// 上記の *Raw をカンマ区切りで分割した値
	AllowedOrigins []string
	ICEServers     []string
}

// Load reads the optional .env files then decodes configuration from environment variables
func Load(files ...string) (Config, error) {
	// .env が無い場合は環境変数のみを使う
	_ = godotenv.Load(files...)

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}

	if cfg.AllowedOriginsRaw == "" {
		cfg.AllowedOriginsRaw = defaultAllowedOrigins
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOriginsRaw)
	cfg.ICEServers = splitList(cfg.ICEServersRaw)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be expressed with struct tags
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("BOARD_BASE_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BOARD_BASE_URL must be an http(s) URL, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("BOARD_BASE_URL has no host: %q", c.BaseURL)
	}

	switch c.StreamTransport {
	case TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("BOARD_STREAM_TRANSPORT must be %q or %q, got %q",
			TransportSSE, TransportWebSocket, c.StreamTransport)
	}

	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("BOARD_RESOLVE_TIMEOUT must be positive, got %s", c.ResolveTimeout)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("BOARD_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
