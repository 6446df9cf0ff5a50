package config

import (
	"flag"
	"fmt"
)

// ClientConfig holds the client's CLI settings.
type ClientConfig struct {
	LocalPort int    `yaml:"local_port"`
	ServerURL string `yaml:"server"`
	LocalHost string `yaml:"local_host"`
}

const DefaultServerURL = "ws://127.0.0.1:8765/ws"
const DefaultLocalHost = "127.0.0.1"

// LoadClient parses client flags:
//
//	online --port LOCAL_PORT [--server URL] [--local-host HOST] [--config PATH]
//
// Precedence: flags > --config file > environment variables > defaults.
func LoadClient(fs *flag.FlagSet, args []string) (ClientConfig, error) {
	cfg := ClientConfig{
		LocalPort: envInt("ONLINE_LOCAL_PORT", 0),
		ServerURL: envString("ONLINE_SERVER", DefaultServerURL),
		LocalHost: envString("ONLINE_LOCAL_HOST", DefaultLocalHost),
	}

	if path := peekFlag(args, "config"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, err
		}
	}

	fs.IntVar(&cfg.LocalPort, "port", cfg.LocalPort, "local port to expose (required)")
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "tunnel server control-channel URL")
	fs.StringVar(&cfg.LocalHost, "local-host", cfg.LocalHost, "host to forward requests to on the local port")
	fs.String("config", "", "optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.LocalPort <= 0 || cfg.LocalPort > 65535 {
		return cfg, fmt.Errorf("--port is required and must be 1-65535, got %d", cfg.LocalPort)
	}
	return cfg, nil
}
