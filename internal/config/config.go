package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend kinds for chain queries.
const (
	BackendElectrum = "electrum"
	BackendBitcoind = "bitcoind"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Pebble  PebbleConfig  `yaml:"pebble"`
	Mainnet BackendConfig `yaml:"mainnet"`
	Testnet BackendConfig `yaml:"testnet"`
	Verify  VerifyConfig  `yaml:"verify"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// PebbleConfig represents the Pebble database configuration
type PebbleConfig struct {
	Path string `yaml:"path"`
}

// BackendConfig represents the chain-query backend for one network
type BackendConfig struct {
	Kind       string `yaml:"kind"`     // "electrum" or "bitcoind"
	Endpoint   string `yaml:"endpoint"` // electrum host:port
	SSL        bool   `yaml:"ssl"`      // electrum over TLS
	Host       string `yaml:"host"`     // bitcoind/btcd RPC host:port
	User       string `yaml:"user"`
	Pass       string `yaml:"pass"`
	Cert       string `yaml:"cert"`
	DisableTLS bool   `yaml:"disable_tls"`
	HTTPMode   bool   `yaml:"http_mode"` // HTTP POST instead of WebSocket (for bitcoind)
}

// VerifyConfig represents verification policy knobs
type VerifyConfig struct {
	Confirmations   int64 `yaml:"confirmations"`     // required confirmation depth
	QueryTimeoutSec int   `yaml:"query_timeout_sec"` // per chain-query timeout
}

// Load loads configuration from a YAML file and environment variables
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: 8087,
			Host: "0.0.0.0",
		},
		Pebble: PebbleConfig{
			Path: "./data/pebble",
		},
		Mainnet: BackendConfig{
			Kind:     BackendElectrum,
			Endpoint: "electrum.blockstream.info:50002",
			SSL:      true,
		},
		Testnet: BackendConfig{
			Kind:     BackendElectrum,
			Endpoint: "electrum.blockstream.info:60002",
			SSL:      true,
		},
		Verify: VerifyConfig{
			Confirmations:   3,
			QueryTimeoutSec: 30,
		},
	}

	// Load from YAML file if it exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.loadEnv()

	return cfg, nil
}

func (c *Config) loadEnv() {
	// Server config
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if bind := os.Getenv("BIND_ADDRESS"); bind != "" {
		if host, port, ok := splitBindAddress(bind); ok {
			c.Server.Host = host
			c.Server.Port = port
		}
	}

	// Pebble config
	if path := os.Getenv("PEBBLE_PATH"); path != "" {
		c.Pebble.Path = path
	}

	// Chain backends
	c.loadBackendEnv(&c.Mainnet, "MAINNET")
	c.loadBackendEnv(&c.Testnet, "TESTNET")

	// Verification policy
	if confs := os.Getenv("VERIFY_CONFIRMATIONS"); confs != "" {
		if n, err := strconv.ParseInt(confs, 10, 64); err == nil {
			c.Verify.Confirmations = n
		}
	}
	if timeout := os.Getenv("VERIFY_QUERY_TIMEOUT_SEC"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil {
			c.Verify.QueryTimeoutSec = n
		}
	}
}

func (c *Config) loadBackendEnv(backend *BackendConfig, prefix string) {
	if kind := os.Getenv(prefix + "_KIND"); kind != "" {
		backend.Kind = kind
	}
	if endpoint := os.Getenv(prefix + "_ENDPOINT"); endpoint != "" {
		backend.Endpoint = endpoint
	}
	if ssl := os.Getenv(prefix + "_SSL"); ssl != "" {
		backend.SSL = ssl == "true" || ssl == "1"
	}
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		backend.Host = host
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		backend.User = user
	}
	if pass := os.Getenv(prefix + "_PASS"); pass != "" {
		backend.Pass = pass
	}
	if cert := os.Getenv(prefix + "_CERT"); cert != "" {
		backend.Cert = cert
	}
	if disableTLS := os.Getenv(prefix + "_DISABLE_TLS"); disableTLS != "" {
		backend.DisableTLS = disableTLS == "true" || disableTLS == "1"
	}
	if httpMode := os.Getenv(prefix + "_HTTP_MODE"); httpMode != "" {
		backend.HTTPMode = httpMode == "true" || httpMode == "1"
	}
}

// splitBindAddress parses a "host:port" pair
func splitBindAddress(bind string) (string, int, bool) {
	idx := strings.LastIndex(bind, ":")
	if idx < 0 {
		return "", 0, false
	}
	port, err := strconv.Atoi(bind[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return bind[:idx], port, true
}
