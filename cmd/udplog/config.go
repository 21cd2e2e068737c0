package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bitdabbler/bulkudp"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the udplog configuration file.
type Config struct {
	Host            string  `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port            int     `yaml:"port" validate:"min=1,max=65535"`
	MaxPacketSize   int     `yaml:"max_packet_size" validate:"min=0"`
	DebuggingFields bool    `yaml:"debugging_fields"`
	ExtraFields     *bool   `yaml:"extra_fields"`
	FQDN            bool    `yaml:"fqdn"`
	LocalName       string  `yaml:"localname"`
	Service         string  `yaml:"service"`
	Type            string  `yaml:"type"`
	Name            string  `yaml:"name"`
	RateLimit       float64 `yaml:"rate_limit" validate:"min=0"`
	Console         bool    `yaml:"console"`
}

// DefaultConfig returns a configuration with the library defaults. It has
// no host; one must come from the file or the environment.
func DefaultConfig() *Config {
	return &Config{
		Port:          9700,
		MaxPacketSize: 64 << 10,
		Service:       "logstash",
		Type:          "logs",
	}
}

// Validate validates the configuration using struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// loadConfig reads the YAML file at path, if any, over the defaults, then
// applies the environment overrides and validates the result.
func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromEnv applies ELK_SERVER, ELK_PORT and ELK_SERVICE.
func loadFromEnv(cfg *Config) error {
	if host := os.Getenv("ELK_SERVER"); len(host) > 0 {
		cfg.Host = host
	}

	if port := os.Getenv("ELK_PORT"); len(port) > 0 {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid ELK_PORT: %w", err)
		}
		cfg.Port = p
	}

	if service := os.Getenv("ELK_SERVICE"); len(service) > 0 {
		cfg.Service = service
	}

	return nil
}

func (c *Config) handlerOptions() *bulkudp.HandlerOptions {
	return &bulkudp.HandlerOptions{
		MaxPacketSize:   c.MaxPacketSize,
		DebuggingFields: c.DebuggingFields,
		SkipExtraFields: c.ExtraFields != nil && !*c.ExtraFields,
		FQDN:            c.FQDN,
		LocalName:       c.LocalName,
		Service:         c.Service,
		Type:            c.Type,
		Name:            c.Name,
	}
}

func (c *Config) clientOptions() *bulkudp.ClientOptions {
	return &bulkudp.ClientOptions{
		Port:      c.Port,
		RateLimit: c.RateLimit,
	}
}
