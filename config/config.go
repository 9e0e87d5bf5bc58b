package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/garvazsof/MVC/adapters/rpc"
	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the gateway configuration
type Config struct {
	ListenAddr  string           `yaml:"listen_addr"`
	ClientID    string           `yaml:"client_id"`
	Chain       core.ChainConfig `yaml:"chain"`
	Contract    ContractConfig   `yaml:"contract"`
	KeystoreDir string           `yaml:"keystore_dir"`
	RedisURL    string           `yaml:"redis_url"` // empty: in-memory store and events
	Tokens      TokenConfig      `yaml:"tokens"`
	Sessions    SessionConfig    `yaml:"sessions"`
	DebugRoutes bool             `yaml:"debug_routes"`
	Logging     LoggingConfig    `yaml:"logging"`
	Diagnostics DiagnosticConfig `yaml:"diagnostics"`
}

// ContractConfig selects the deployed Video721 contract and mint recipient
type ContractConfig struct {
	Address   string `yaml:"address"`
	Recipient string `yaml:"recipient"`
}

// TokenConfig configures session tokens
type TokenConfig struct {
	AccessTTL      time.Duration `yaml:"access_ttl"`
	RefreshTTL     time.Duration `yaml:"refresh_ttl"`
	SigningKeyFile string        `yaml:"signing_key_file"` // PEM P-256 key; empty generates one per process
}

// SessionConfig configures mounted shells
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	InitTimeout   time.Duration `yaml:"init_timeout"`
	EvictInterval time.Duration `yaml:"evict_interval"`
	MineTimeout   time.Duration `yaml:"mine_timeout"`
	MaxMounted    int           `yaml:"max_mounted"` // 0: no cap
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DiagnosticConfig holds the fixed inputs of the debug wallet operations
type DiagnosticConfig struct {
	Destination string `yaml:"destination"`
	Amount      string `yaml:"amount"` // ether
	Message     string `yaml:"message"`
}

// Default returns the Goerli configuration
func Default() *Config {
	shell := service.DefaultShellConfig()
	diag := rpc.DefaultDiagnostics()

	return &Config{
		ListenAddr: ":9000",
		Chain:      shell.Chain,
		Contract: ContractConfig{
			Address:   core.Video721Address.Hex(),
			Recipient: core.DefaultRecipient.Hex(),
		},
		Tokens: TokenConfig{
			AccessTTL:  5 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		Sessions: SessionConfig{
			IdleTTL:       30 * time.Minute,
			InitTimeout:   30 * time.Second,
			EvictInterval: time.Minute,
			MineTimeout:   service.DefaultMineTimeout,
			MaxMounted:    1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Diagnostics: DiagnosticConfig{
			Destination: diag.Destination.Hex(),
			Amount:      diag.Amount.String(),
			Message:     diag.Message,
		},
	}
}

// Load reads path (optional), applies environment overrides and validates
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		if err := DecodeStrict(f, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return cfg, nil
}

// DecodeStrict decodes YAML from a reader and rejects any unknown fields.
func DecodeStrict(r io.Reader, out interface{}) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment
func (c *Config) ApplyEnv() {
	c.ClientID = getEnvDefault("CLIENT_ID", c.ClientID)
	c.RedisURL = getEnvDefault("REDIS_URL", c.RedisURL)
	c.Chain.RPCTarget = getEnvDefault("RPC_TARGET", c.Chain.RPCTarget)
	c.ListenAddr = getEnvDefault("LISTEN_ADDR", c.ListenAddr)
	c.KeystoreDir = getEnvDefault("KEYSTORE_DIR", c.KeystoreDir)
}

// ShellConfig derives the per-session shell configuration. Call after Validate.
func (c *Config) ShellConfig() service.ShellConfig {
	shell := service.DefaultShellConfig()
	shell.Chain = c.Chain
	shell.Contract = core.Video721.WithAddress(common.HexToAddress(c.Contract.Address))
	shell.Recipient = common.HexToAddress(c.Contract.Recipient)
	shell.Diagnostics = rpc.Diagnostics{
		Destination: common.HexToAddress(c.Diagnostics.Destination),
		Amount:      decimal.RequireFromString(c.Diagnostics.Amount),
		Message:     c.Diagnostics.Message,
	}
	shell.MineTimeout = c.Sessions.MineTimeout
	return shell
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// SigningKey loads the token signing key, or generates one when no file is set.
// Generated keys do not survive a restart.
func (t TokenConfig) SigningKey() (*ecdsa.PrivateKey, error) {
	if t.SigningKeyFile == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	data, err := os.ReadFile(t.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	return key, nil
}
