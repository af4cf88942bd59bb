// Package config loads server settings from a YAML file. A missing file is
// not an error; callers always get usable defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings. Durations are written in the file as Go
// duration strings ("10s", "2s").
type Config struct {
	ControlAddr string `yaml:"control_addr"` // chat control listener
	RelayAddr   string `yaml:"relay_addr"`   // file byte-relay listener
	HTTPAddr    string `yaml:"http_addr"`    // admin API; empty disables it

	PingInterval      Duration `yaml:"ping_interval"`      // heartbeat tick
	PongTimeout       Duration `yaml:"pong_timeout"`       // PONG deadline after a PING
	RendezvousTimeout Duration `yaml:"rendezvous_timeout"` // relay wait for the second peer
	WriteTimeout      Duration `yaml:"write_timeout"`      // per-frame socket write deadline
}

// Duration wraps time.Duration so it can be written as "10s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the stock configuration: control on 1337, relay on 1338,
// admin API on 8080, 10s/2s heartbeat.
func Default() Config {
	return Config{
		ControlAddr:       ":1337",
		RelayAddr:         ":1338",
		HTTPAddr:          ":8080",
		PingInterval:      Duration(10 * time.Second),
		PongTimeout:       Duration(2 * time.Second),
		RendezvousTimeout: Duration(60 * time.Second),
		WriteTimeout:      Duration(10 * time.Second),
	}
}

// Load reads path and overlays it onto the defaults. An empty path or a
// missing file yields the defaults; a file that exists but does not parse is
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
