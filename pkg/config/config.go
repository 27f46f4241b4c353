package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Backend struct {
		// Name selects the backend family: "webrtc" or "relay".
		Name string `yaml:"name"`
	} `yaml:"backend"`

	WebRTC struct {
		ICEServers     []ICEServer   `yaml:"ice_servers"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
	} `yaml:"webrtc"`

	Relay struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		PongTimeout  time.Duration `yaml:"pong_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"relay"`

	Messaging struct {
		MaxEncodedSize        int           `yaml:"max_encoded_size"`
		BytesPerSecond        int           `yaml:"bytes_per_second"`
		ReassemblyIdleTimeout time.Duration `yaml:"reassembly_idle_timeout"`
	} `yaml:"messaging"`

	Retry struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		InitialDelay time.Duration `yaml:"initial_delay"`
		MaxDelay     time.Duration `yaml:"max_delay"`
		Multiplier   float64       `yaml:"multiplier"`
	} `yaml:"retry"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// ICEServer is one STUN/TURN server entry.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// DefaultConfig returns a configuration with conservative defaults. The
// 960-byte frame bound matches the smallest data-channel payload limit among
// supported backends.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Backend.Name = "webrtc"
	cfg.WebRTC.ConnectTimeout = 15 * time.Second
	cfg.Relay.PingInterval = 30 * time.Second
	cfg.Relay.PongTimeout = 60 * time.Second
	cfg.Relay.WriteTimeout = 10 * time.Second
	cfg.Messaging.MaxEncodedSize = 960
	cfg.Messaging.BytesPerSecond = 30000
	cfg.Messaging.ReassemblyIdleTimeout = 30 * time.Second
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialDelay = 500 * time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Second
	cfg.Retry.Multiplier = 2.0
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads configuration from a YAML file, applying defaults for absent
// fields.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	switch c.Backend.Name {
	case "webrtc", "relay":
	default:
		return fmt.Errorf("backend.name must be one of webrtc, relay; got %q", c.Backend.Name)
	}

	if c.Messaging.MaxEncodedSize <= 0 {
		return fmt.Errorf("messaging.max_encoded_size must be > 0")
	}
	if c.Messaging.BytesPerSecond <= 0 {
		return fmt.Errorf("messaging.bytes_per_second must be > 0")
	}
	if c.Messaging.ReassemblyIdleTimeout <= 0 {
		return fmt.Errorf("messaging.reassembly_idle_timeout must be > 0")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1")
	}
	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("retry.initial_delay must be > 0")
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.initial_delay")
	}
	if c.Retry.Multiplier < 1.0 {
		return fmt.Errorf("retry.multiplier must be >= 1.0")
	}

	if c.Backend.Name == "webrtc" && c.WebRTC.ConnectTimeout <= 0 {
		return fmt.Errorf("webrtc.connect_timeout must be > 0")
	}

	if c.Backend.Name == "relay" {
		if c.Relay.PingInterval <= 0 {
			return fmt.Errorf("relay.ping_interval must be > 0")
		}
		if c.Relay.PongTimeout <= c.Relay.PingInterval {
			return fmt.Errorf("relay.pong_timeout must be > relay.ping_interval")
		}
		if c.Relay.WriteTimeout <= 0 {
			return fmt.Errorf("relay.write_timeout must be > 0")
		}
	}

	return nil
}
