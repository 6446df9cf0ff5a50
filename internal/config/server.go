package config

import (
	"flag"
	"fmt"
)

// ServerConfig holds the server's CLI settings.
type ServerConfig struct {
	ListenAddr            string `yaml:"listen"`
	PortMin               int    `yaml:"port_min"`
	PortMax               int    `yaml:"port_max"`
	RequestTimeoutSeconds int    `yaml:"request_timeout"`
	MaxClients            int    `yaml:"max_clients"`
}

const (
	DefaultListenAddr     = ":8765"
	DefaultPortMin        = 10000
	DefaultPortMax        = 20000
	DefaultRequestTimeout = 30
)

// LoadServer parses server flags:
//
//	online-server [--listen HOST:PORT] [--port-range MIN-MAX]
//	              [--request-timeout SECONDS] [--max-clients N]
//	              [--config PATH]
//
// Precedence: flags > --config file > environment variables > defaults.
func LoadServer(fs *flag.FlagSet, args []string) (ServerConfig, error) {
	cfg := ServerConfig{
		ListenAddr:            envString("ONLINE_LISTEN", DefaultListenAddr),
		PortMin:               envInt("ONLINE_PORT_MIN", DefaultPortMin),
		PortMax:               envInt("ONLINE_PORT_MAX", DefaultPortMax),
		RequestTimeoutSeconds: envInt("ONLINE_REQUEST_TIMEOUT", DefaultRequestTimeout),
		MaxClients:            0,
	}

	if path := peekFlag(args, "config"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, err
		}
	}

	var portRange string
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HOST:PORT for the control-channel WebSocket listener")
	fs.StringVar(&portRange, "port-range", fmt.Sprintf("%d-%d", cfg.PortMin, cfg.PortMax), "public port range MIN-MAX")
	fs.IntVar(&cfg.RequestTimeoutSeconds, "request-timeout", cfg.RequestTimeoutSeconds, "seconds to wait for a client response before returning 504")
	fs.IntVar(&cfg.MaxClients, "max-clients", cfg.MaxClients, "maximum concurrently registered clients (0 = unlimited)")
	fs.String("config", "", "optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	min, max, err := parsePortRange(portRange)
	if err != nil {
		return cfg, err
	}
	cfg.PortMin, cfg.PortMax = min, max

	if cfg.PortMax < cfg.PortMin {
		return cfg, fmt.Errorf("port-range max (%d) is below min (%d)", cfg.PortMax, cfg.PortMin)
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return cfg, fmt.Errorf("request-timeout must be positive, got %d", cfg.RequestTimeoutSeconds)
	}
	return cfg, nil
}

func parsePortRange(s string) (min, max int, err error) {
	_, err = fmt.Sscanf(s, "%d-%d", &min, &max)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid port range %q, expected MIN-MAX: %w", s, err)
	}
	return min, max, nil
}
