// If you are AI: This file defines the configuration structure for the
// streaming media server. It uses strict YAML decoding and explicit defaults.

package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
// All fields must have explicit defaults or be required.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Hub       HubConfig       `yaml:"hub"`
	Auth      AuthConfig      `yaml:"auth"`
	Recording RecordingConfig `yaml:"recording"`
}

// ServerConfig defines the listening ports for each protocol surface.
type ServerConfig struct {
	HealthPort int `yaml:"health_port"` // Validated but never listened on; /healthz is served on HTTPPort
	HTTPPort   int `yaml:"http_port"`   // HTTP-FLV, WebSocket-FLV, and HLS egress
	RTMPPort   int `yaml:"rtmp_port"`   // RTMP ingest and playback
	APIPort    int `yaml:"api_port"`    // Admin HTTP API
}

// HubConfig tunes the in-process stream broker.
type HubConfig struct {
	GOPCacheDepth            int  `yaml:"gop_cache_depth"`             // Max cached GOPs per stream for fast-join
	IdleTimeoutSeconds       int  `yaml:"idle_timeout_seconds"`        // Connection inactivity before it is reaped
	WindowAckSize            int  `yaml:"window_ack_size"`             // RTMP window acknowledgement size, bytes
	RejectOnMissingPublisher bool `yaml:"reject_on_missing_publisher"` // Fail Subscribe instead of allowing late-publisher streams
	MaxSubscribersPerStream  int  `yaml:"max_subscribers_per_stream"`  // Cap subscribers per stream; 0 = unlimited
}

// IdleTimeout returns the configured idle timeout as a time.Duration.
func (h HubConfig) IdleTimeout() time.Duration {
	return time.Duration(h.IdleTimeoutSeconds) * time.Second
}

// AuthConfig controls publish/subscribe authorization.
type AuthConfig struct {
	Required        bool   `yaml:"required"`          // Reject publish/subscribe without a valid token or nonce
	Token           string `yaml:"token,omitempty"`   // Shared secret accepted as the "token" query parameter
	NonceTTLSeconds int    `yaml:"nonce_ttl_seconds"` // Lifetime of a minted nonce
}

// NonceTTL returns the configured nonce lifetime as a time.Duration.
func (a AuthConfig) NonceTTL() time.Duration {
	return time.Duration(a.NonceTTLSeconds) * time.Second
}

// RecordingConfig controls optional FLV recording of published streams.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // Root directory; files land at {dir}/{app}/{stream}/flv/...
}

// Load reads configuration from a YAML file.
// Returns an error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8080
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8081
	}
	if c.Server.RTMPPort == 0 {
		c.Server.RTMPPort = 1935
	}
	if c.Server.APIPort == 0 {
		c.Server.APIPort = 8082
	}
	if c.Hub.GOPCacheDepth == 0 {
		c.Hub.GOPCacheDepth = 1
	}
	if c.Hub.IdleTimeoutSeconds == 0 {
		c.Hub.IdleTimeoutSeconds = 10
	}
	if c.Hub.WindowAckSize == 0 {
		c.Hub.WindowAckSize = 5000000
	}
	if c.Auth.NonceTTLSeconds == 0 {
		c.Auth.NonceTTLSeconds = 600
	}
	if c.Recording.Dir == "" {
		c.Recording.Dir = "."
	}
}
