// Package config holds the settings shared by both midiwire binaries.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chase3718/midiwire/internal/serialport"
)

// Input sources on the sensing node.
const (
	InputSerial = "serial"
	InputPort   = "port"
	InputReplay = "replay"
)

// Link transports between the nodes.
const (
	LinkUDP    = "udp"
	LinkSerial = "serial"
)

// SerialConfig describes the MIDI DIN input.
type SerialConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

// PortConfig selects an OS MIDI input port.
type PortConfig struct {
	Preferred []string `json:"preferred,omitempty"`
	Excluded  []string `json:"excluded,omitempty"`
}

// LinkConfig describes how frames travel to the display node.
type LinkConfig struct {
	Transport string `json:"transport"`
	Peer      string `json:"peer,omitempty"`   // udp: display node address
	Listen    string `json:"listen,omitempty"` // udp: display node bind address
	Device    string `json:"device,omitempty"` // serial: radio modem
	Baud      int    `json:"baud,omitempty"`
}

// Config is the main configuration structure.
type Config struct {
	Input    string       `json:"input"`
	Serial   SerialConfig `json:"serial"`
	Port     PortConfig   `json:"port"`
	Replay   string       `json:"replay,omitempty"`
	Link     LinkConfig   `json:"link"`
	TickMS   int          `json:"tickMs"`
	LampTest bool         `json:"lampTest"`
	Debug    bool         `json:"debug,omitempty"`
	Pretty   bool         `json:"pretty,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input:  InputSerial,
		Serial: SerialConfig{Device: "/dev/ttyUSB0", Baud: serialport.MIDIBaud},
		Port: PortConfig{
			Excluded: []string{"Midi Through", "Through Port", "Dummy"},
		},
		Link: LinkConfig{
			Transport: LinkUDP,
			Peer:      "127.0.0.1:4210",
			Listen:    ":4210",
			Device:    "/dev/ttyUSB1",
			Baud:      115200,
		},
		TickMS:   100,
		LampTest: true,
	}
}

// Path returns the default location of config.json.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "midiwire", "config.json"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Input {
	case InputSerial:
		if c.Serial.Device == "" || c.Serial.Baud <= 0 {
			return errors.New("config: serial input needs a device and a baud rate")
		}
	case InputPort:
	case InputReplay:
		if c.Replay == "" {
			return errors.New("config: replay input needs a file")
		}
	default:
		return fmt.Errorf("config: unknown input %q", c.Input)
	}

	switch c.Link.Transport {
	case LinkUDP:
	case LinkSerial:
		if c.Link.Device == "" || c.Link.Baud <= 0 {
			return errors.New("config: serial link needs a device and a baud rate")
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Link.Transport)
	}

	if c.TickMS <= 0 {
		return fmt.Errorf("config: tick must be positive, got %d ms", c.TickMS)
	}
	return nil
}
