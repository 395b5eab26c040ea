package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jheehg/webrtc-learning/internal/signaling"
)

// EnvPrefix namespaces the server's environment variables.
const EnvPrefix = "ROOMCALL"

// Server keys
const (
	KeyAddr           = "addr"
	KeyRemoteLimit    = "remote_limit"
	KeySendBuffer     = "send_buffer"
	KeyRateLimit      = "rate_limit"
	KeyRateBurst      = "rate_burst"
	KeyAllowedOrigins = "allowed_origins"
)

// ServerConfig holds the signaling server configuration
type ServerConfig struct {
	Addr string

	// RemoteLimit is how many peers may join a room besides the first.
	RemoteLimit int

	SendBuffer     int
	RateLimit      float64
	RateBurst      int64
	AllowedOrigins []string
}

// Capacity is the maximum number of members in a room.
func (c *ServerConfig) Capacity() int {
	return c.RemoteLimit + 1
}

// NewServerViper returns a viper instance with the server defaults and the
// ROOMCALL_ environment binding.
func NewServerViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAddr, ":4000")
	v.SetDefault(KeyRemoteLimit, signaling.DefaultRemoteLimit)
	v.SetDefault(KeySendBuffer, signaling.DefaultSendBuffer)
	v.SetDefault(KeyRateLimit, 50.0)
	v.SetDefault(KeyRateBurst, 100)
	v.SetDefault(KeyAllowedOrigins, "*")
	return v
}

// BindServerFlags registers the server flags on fs and binds them into v,
// so a set flag wins over the environment and the config file.
func BindServerFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("addr", ":4000", "listen address")
	fs.Int("remote-limit", signaling.DefaultRemoteLimit, "peers allowed in a room besides the first")
	fs.Int("send-buffer", signaling.DefaultSendBuffer, "outbound queue length per connection")
	fs.Float64("rate-limit", 50, "inbound messages per second per connection (0 disables)")
	fs.Int64("rate-burst", 100, "inbound message burst per connection")
	fs.String("allowed-origins", "*", "comma separated websocket origins")

	for _, key := range []string{KeyAddr, KeyRemoteLimit, KeySendBuffer, KeyRateLimit, KeyRateBurst, KeyAllowedOrigins} {
		if err := v.BindPFlag(key, fs.Lookup(strings.ReplaceAll(key, "_", "-"))); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// LoadServer reads the server configuration from v. A non-empty file is
// read first; values there sit below environment variables and flags.
func LoadServer(v *viper.Viper, file string) (*ServerConfig, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, file, err)
		}
	}

	cfg := &ServerConfig{
		Addr:           v.GetString(KeyAddr),
		RemoteLimit:    v.GetInt(KeyRemoteLimit),
		SendBuffer:     v.GetInt(KeySendBuffer),
		RateLimit:      v.GetFloat64(KeyRateLimit),
		RateBurst:      v.GetInt64(KeyRateBurst),
		AllowedOrigins: originList(v.Get(KeyAllowedOrigins)),
	}

	if cfg.RemoteLimit < 1 {
		return nil, fmt.Errorf("%w: %s must be at least 1", ErrInvalidConfig, KeyRemoteLimit)
	}
	if cfg.SendBuffer < 1 {
		return nil, fmt.Errorf("%w: %s must be at least 1", ErrInvalidConfig, KeySendBuffer)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyRateLimit)
	}
	return cfg, nil
}

func originList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, o := range v {
			out = append(out, fmt.Sprint(o))
		}
		return out
	case string:
		return splitList(v)
	default:
		return nil
	}
}
