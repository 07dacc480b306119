// Package config loads the compile-time tunables of the system (port,
// pool capacities, queue depth, buffer sizes) from an optional YAML file,
// falling back to the specification's defaults.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Defaults mirror spec.md §5 ("Capacities") and §6 ("Dispatcher TCP port").
const (
	DefaultPort            = 3000
	DefaultBindAddress     = "127.0.0.1"
	DefaultCarCapacity     = 10
	DefaultConnCapacity    = 30
	DefaultQueueDepth      = 20
	DefaultCarNameMax      = 128
	DefaultPayloadBufBytes = 256
	DefaultHeartbeatTicks  = 3 // 1 -> 2 -> 3 -> emergency
)

// Config holds the dispatcher's tunable capacities and network settings.
type Config struct {
	BindAddress     string        `yaml:"bind_address"`
	Port            int           `yaml:"port"`
	CarCapacity     int           `yaml:"car_capacity"`
	ConnCapacity    int           `yaml:"conn_capacity"`
	QueueDepth      int           `yaml:"queue_depth"`
	CarNameMax      int           `yaml:"car_name_max"`
	PayloadBufBytes int           `yaml:"payload_buf_bytes"`
	HeartbeatTicks  int           `yaml:"heartbeat_ticks"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// Default returns the specification's built-in defaults.
func Default() Config {
	return Config{
		BindAddress:     DefaultBindAddress,
		Port:            DefaultPort,
		CarCapacity:     DefaultCarCapacity,
		ConnCapacity:    DefaultConnCapacity,
		QueueDepth:      DefaultQueueDepth,
		CarNameMax:      DefaultCarNameMax,
		PayloadBufBytes: DefaultPayloadBufBytes,
		HeartbeatTicks:  DefaultHeartbeatTicks,
		DialTimeout:     2 * time.Second,
	}
}

// Load reads a YAML config file, applying its fields on top of Default().
// A missing path is not an error: it simply yields the defaults, matching
// this system's "no persistent configuration store" posture.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&c); err != nil {
		return c, err
	}
	return c, nil
}
