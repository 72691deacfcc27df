// Package config manages genvid configuration and credentials. Settings
// live in ~/.genvid/config.toml with working defaults; credentials come
// from the environment only and are loaded once at process start.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"genvid/internal/core/domain"
	"genvid/internal/signer"
)

// Config holds all genvid settings.
type Config struct {
	DataDir string        `toml:"data_dir"`
	Visual  VisualConfig  `toml:"visual"`
	Ark     ArkConfig     `toml:"ark"`
	Polling PollingConfig `toml:"polling"`
	Relay   RelayConfig   `toml:"relay"`
	Logging LoggingConfig `toml:"logging"`
}

// VisualConfig addresses the signed service family.
type VisualConfig struct {
	Endpoint     string `toml:"endpoint"`
	SubmitAction string `toml:"submit_action"`
	ResultAction string `toml:"result_action"`
	Version      string `toml:"version"`
	Region       string `toml:"region"`
	Service      string `toml:"service"`
	RoleReqKey   string `toml:"role_req_key"`
	VideoReqKey  string `toml:"video_req_key"`
}

// SubmitURL assembles the task-creation URL with its action parameters.
func (v VisualConfig) SubmitURL() string {
	return fmt.Sprintf("%s?Action=%s&Version=%s", v.Endpoint, v.SubmitAction, v.Version)
}

// ResultURL assembles the status-polling URL.
func (v VisualConfig) ResultURL() string {
	return fmt.Sprintf("%s?Action=%s&Version=%s", v.Endpoint, v.ResultAction, v.Version)
}

// ArkConfig addresses the token service family.
type ArkConfig struct {
	Endpoint string `toml:"endpoint"`
	Model    string `toml:"model"`
}

// PollingConfig bounds the status poll loop.
type PollingConfig struct {
	MaxAttempts     int `toml:"max_attempts"`
	IntervalSeconds int `toml:"interval_seconds"`
}

// RelayConfig controls how input assets become publicly fetchable.
type RelayConfig struct {
	// Endpoint of the imgbb-compatible hosting relay.
	Endpoint string `toml:"endpoint"`
	// Listen address for the self-hosted relay (`genvid serve`).
	Listen string `toml:"listen"`
	// BaseURL is the externally reachable address of the self-hosted relay.
	BaseURL string `toml:"base_url"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a working configuration for the public deployments.
func DefaultConfig() Config {
	return Config{
		DataDir: filepath.Join(genvidHome(), "data"),
		Visual: VisualConfig{
			Endpoint:     "https://visual.volcengineapi.com",
			SubmitAction: "CVSubmitTask",
			ResultAction: "CVGetResult",
			Version:      "2022-08-31",
			Region:       "cn-north-1",
			Service:      "cv",
			RoleReqKey:   "realman_avatar_picture_create_role_omni",
			VideoReqKey:  "realman_avatar_picture_omni_v2",
		},
		Ark: ArkConfig{
			Endpoint: "https://ark.cn-beijing.volces.com/api/v3",
			Model:    "doubao-seedance-1-0-pro-250528",
		},
		Polling: PollingConfig{
			MaxAttempts:     60,
			IntervalSeconds: 5,
		},
		Relay: RelayConfig{
			Endpoint: "https://api.imgbb.com/1/upload",
			Listen:   "127.0.0.1:8780",
			BaseURL:  "http://127.0.0.1:8780",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from ~/.genvid/config.toml, falling back to defaults
// when the file does not exist.
func Load() (Config, error) {
	return loadFrom(filepath.Join(genvidHome(), "config.toml"))
}

func loadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}
	return cfg, nil
}

// Credentials holds every secret the pipeline can need. Read once from the
// environment, immutable afterwards.
type Credentials struct {
	// Visual holds the access-key pair for the signed family.
	Visual signer.Credentials
	// ArkAPIKey is the bearer token for the token family.
	ArkAPIKey string
	// RelayKey authenticates uploads to the hosting relay.
	RelayKey string
}

// LoadCredentials reads credentials from the environment. Nothing is
// required here: each command validates the keys it actually needs via the
// Require* helpers, so a generate-only setup does not have to configure the
// signed family.
func LoadCredentials() Credentials {
	return Credentials{
		Visual: signer.Credentials{
			AccessKey: os.Getenv("GENVID_ACCESS_KEY"),
			SecretKey: decodeSecret(os.Getenv("GENVID_SECRET_KEY")),
		},
		ArkAPIKey: os.Getenv("GENVID_ARK_API_KEY"),
		RelayKey:  os.Getenv("GENVID_RELAY_KEY"),
	}
}

// RequireVisual validates the signed-family key pair.
func (c Credentials) RequireVisual() error {
	if c.Visual.AccessKey == "" || c.Visual.SecretKey == "" {
		return fmt.Errorf("%w: GENVID_ACCESS_KEY and GENVID_SECRET_KEY must be set", domain.ErrConfiguration)
	}
	return nil
}

// RequireArk validates the token-family bearer token.
func (c Credentials) RequireArk() error {
	if c.ArkAPIKey == "" {
		return fmt.Errorf("%w: GENVID_ARK_API_KEY must be set", domain.ErrConfiguration)
	}
	return nil
}

// decodeSecret accepts the secret key either raw or base64-encoded, the
// two formats credential exports come in. A value that round-trips through
// base64 into printable text is treated as encoded; anything else is used
// as-is.
func decodeSecret(s string) string {
	if s == "" {
		return s
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil || !utf8.Valid(decoded) {
		return s
	}
	for _, b := range decoded {
		if b < 0x20 || b == 0x7f {
			return s
		}
	}
	return string(decoded)
}

func genvidHome() string {
	if dir := os.Getenv("GENVID_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".genvid"
	}
	return filepath.Join(home, ".genvid")
}
