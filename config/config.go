package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Defaults applied by Load when the corresponding field is unset.
const (
	KeepAlive      = 300 // seconds
	ConnectTimeout = 2   // seconds
	AckTimeout     = 20  // seconds
	TimeoutRetries = 3
	AutoIdPrefix   = "auto-"
)

var validate = validator.New()

// SIConfig is the full client configuration. Letters in the config file
// are lower case, struct fields are exported.
type SIConfig struct {
	ClientVersion string `toml:"clientVersion"`
	Log           Log    `toml:"log"`
	Client        Client `toml:"client"`
}

type Log struct {
	Level string `toml:"level"`
}

type Client struct {
	BrokerUrl  string `toml:"brokerUrl" validate:"required"`
	ClientId   string `toml:"clientId"`
	DefaultKey string `toml:"defaultKey"`

	// Seconds of silence before the transport sends a keepalive ping.
	KeepAlive      int `toml:"keepAlive" validate:"gte=0,lte=65535"`
	ConnectTimeout int `toml:"connectTimeout" validate:"gte=0"`
	AckTimeout     int `toml:"ackTimeout" validate:"gte=0"`
	TimeoutRetries int `toml:"timeoutRetries" validate:"gte=0"`

	AutoIdPrefix string `toml:"auto_id_prefix"`

	// DispatchPoolSize > 0 hands inbound dispatch off to a goroutine
	// pool of that size; 0 dispatches inline on the receiver.
	DispatchPoolSize int `toml:"dispatch_pool_size" validate:"gte=0"`

	// PublishRate caps outbound publishes per second; 0 is unlimited.
	PublishRate int `toml:"publish_rate" validate:"gte=0"`
}

func (cfg *SIConfig) String() string {
	return fmt.Sprintf("Version=%s, Log=%+v, Client=%+v", cfg.ClientVersion, cfg.Log, cfg.Client)
}

// Load reads the TOML configuration from dir. The file name defaults to
// config.toml and can be overridden with the CFG_NAME environment
// variable. Missing numeric options fall back to the package defaults.
func Load(dir string) (*SIConfig, error) {
	name := "config.toml"
	if n := os.Getenv("CFG_NAME"); n != "" {
		name = n
	}

	cfg := &SIConfig{}
	if _, err := toml.DecodeFile(filepath.Join(dir, name), cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", name, err)
	}
	cfg.applyDefaults()

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func (cfg *SIConfig) applyDefaults() {
	c := &cfg.Client
	if c.KeepAlive == 0 {
		c.KeepAlive = KeepAlive
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = ConnectTimeout
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = AckTimeout
	}
	if c.TimeoutRetries == 0 {
		c.TimeoutRetries = TimeoutRetries
	}
	if c.AutoIdPrefix == "" {
		c.AutoIdPrefix = AutoIdPrefix
	}
}
