package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jheehg/webrtc-learning/internal/media"
	"github.com/jheehg/webrtc-learning/internal/protocol"
	"github.com/jheehg/webrtc-learning/internal/rtc"
)

// Default configuration values
const (
	DefaultServerURL   = "ws://localhost:4000/ws"
	DefaultSTUNServers = "stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"
	DefaultVideoWidth  = 320
	DefaultVideoHeight = 240
	DefaultEnvFile     = ".env"
)

// ErrInvalidConfig wraps every value that fails to parse.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the client configuration
type Config struct {
	// ServerURL is the signaling websocket endpoint
	ServerURL string

	// ICE servers for WebRTC
	STUNServers []string
	TURNServers []string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool

	Media media.Constraints

	// Codec is the signaling wire codec name
	Codec string
}

// Options for loading config with CLI flag overrides
type Options struct {
	ServerURL   string
	STUNServers string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool
	Codec       string

	// EnvFile is read if present. Empty means DefaultEnvFile.
	EnvFile string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. The .env file
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	// godotenv.Load does not overwrite existing env vars
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, envFile, err)
	}

	cfg := &Config{
		ServerURL:   pick(opts.ServerURL, "SERVER_URL", DefaultServerURL),
		STUNServers: splitList(pick(opts.STUNServers, "STUN_SERVERS", DefaultSTUNServers)),
		TURNServers: expandTURN(pick(opts.TURNServer, "TURN_SERVER", "")),
		TURNUser:    pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:    pick(opts.TURNPass, "TURN_PASSWORD", ""),
		Codec:       pick(opts.Codec, "CODEC", protocol.CodecJSON),
		Media:       media.DefaultConstraints,
	}

	var err error
	if cfg.ForceRelay, err = boolValue(opts.ForceRelay, "FORCE_RELAY", false); err != nil {
		return nil, err
	}
	if cfg.Media.Audio, err = boolValue(false, "AUDIO", true); err != nil {
		return nil, err
	}
	if cfg.Media.Width, err = intValue("VIDEO_WIDTH", DefaultVideoWidth); err != nil {
		return nil, err
	}
	if cfg.Media.Height, err = intValue("VIDEO_HEIGHT", DefaultVideoHeight); err != nil {
		return nil, err
	}

	if _, err := protocol.CodecByName(cfg.Codec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := cfg.RoomsURL(); err != nil {
		return nil, err
	}
	if cfg.ForceRelay && len(cfg.TURNServers) == 0 {
		return nil, fmt.Errorf("%w: relay-only ICE needs a TURN server", ErrInvalidConfig)
	}

	return cfg, nil
}

// ICEConfig returns the discovery servers for the peer connection.
func (c *Config) ICEConfig() rtc.ICEConfig {
	return rtc.ICEConfig{
		STUNServers: c.STUNServers,
		TURNServers: c.TURNServers,
		TURNUser:    c.TURNUser,
		TURNPass:    c.TURNPass,
		ForceRelay:  c.ForceRelay,
	}
}

// RoomsURL returns the HTTP endpoint listing live rooms on the server.
func (c *Config) RoomsURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("%w: server URL: %v", ErrInvalidConfig, err)
	}

	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("%w: server URL scheme %q", ErrInvalidConfig, u.Scheme)
	}

	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/ws") + "/rooms"
	u.RawQuery = ""
	return u.String(), nil
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func boolValue(flag bool, env string, def bool) (bool, error) {
	if flag {
		return true, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, env, v)
	}
	return b, nil
}

func intValue(env string, def int) (int, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, env, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandTURN accepts full turn: URLs, or a bare host which is expanded to
// the usual UDP, TCP and TLS endpoints.
func expandTURN(s string) []string {
	var out []string
	for _, entry := range splitList(s) {
		if strings.HasPrefix(entry, "turn:") || strings.HasPrefix(entry, "turns:") {
			out = append(out, entry)
			continue
		}
		out = append(out,
			fmt.Sprintf("turn:%s:3478?transport=udp", entry),
			fmt.Sprintf("turn:%s:3478?transport=tcp", entry),
			fmt.Sprintf("turns:%s:5349?transport=tcp", entry),
		)
	}
	return out
}
