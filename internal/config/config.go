package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centralises every runtime setting so the rest of the codebase can remain deterministic
// and easy to test. All fields can be overridden using environment variables.
type Config struct {
	AppName  string        `env:"APP_NAME" envDefault:"niyantrana-core"`
	Env      string        `env:"APP_ENV" envDefault:"development"`
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTP     HTTPConfig    `envPrefix:"HTTP_"`
	Store    StoreConfig   `envPrefix:"STORE_"`
	Push     PushConfig    `envPrefix:"PUSH_"`
	Auth     AuthConfig    `envPrefix:"AUTH_"`
	Mission  MissionConfig `envPrefix:"MISSION_"`
}

// HTTPConfig controls the HTTP server behaviour.
type HTTPConfig struct {
	Address      string        `env:"ADDRESS" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// StoreConfig points at the real-time document store. An empty URL selects
// simulated mode: mutations stay in memory and responses are flagged as not
// persisted, but the engine keeps working.
type StoreConfig struct {
	RedisURL    string        `env:"REDIS_URL"`
	KeyPrefix   string        `env:"KEY_PREFIX" envDefault:"niyantrana"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"3s"`
}

// PushConfig carries the VAPID credential material for web push delivery.
// Both keys empty selects simulated delivery (trivial success, nothing sent).
type PushConfig struct {
	VAPIDPublicKey  string        `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `env:"VAPID_PRIVATE_KEY"`
	Subscriber      string        `env:"SUBSCRIBER" envDefault:"mailto:ops@niyantrana.example"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT" envDefault:"5s"`
}

// AuthConfig enables bearer-token protection of command endpoints.
// An empty secret disables authentication entirely.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"ISSUER" envDefault:"niyantrana"`
}

// MissionConfig tunes per-mission runtime behaviour.
type MissionConfig struct {
	Default        string        `env:"DEFAULT" envDefault:"alpha"`
	TravelDuration time.Duration `env:"TRAVEL_DURATION" envDefault:"5s"`
	FrameInterval  time.Duration `env:"FRAME_INTERVAL" envDefault:"50ms"`
}

// Load reads configuration from the environment, applying defaults defined above.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
