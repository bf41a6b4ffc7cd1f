package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"keyscope/demux"
	"keyscope/packet"
	"keyscope/velocity"
)

// CaptureConfig names the devices a capture reads from
type CaptureConfig struct {
	PortName     string `json:"portName,omitempty"`
	SerialPort   string `json:"serialPort,omitempty"`
	Baud         int    `json:"baud,omitempty"`
	RecordFormat int    `json:"recordFormat,omitempty"` // 8 or 12
	// RecordTick is the record timestamp period in seconds
	RecordTick float64 `json:"recordTick,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	// ConstantsPath overrides the built-in firmware header
	ConstantsPath string `json:"constantsPath,omitempty"`
	// Estimator is log, sg or sg-right
	Estimator      string                      `json:"estimator,omitempty"`
	DefaultProfile velocity.Profile            `json:"defaultProfile"`
	Profiles       map[string]velocity.Profile `json:"profiles,omitempty"` // keyed by note number
	Capture        CaptureConfig               `json:"capture,omitempty"`
	LogFile        string                      `json:"logFile,omitempty"`
	LogEvery       int                         `json:"logEvery,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Estimator:      "log",
		DefaultProfile: velocity.DefaultProfile(),
		Capture: CaptureConfig{
			Baud:         115200,
			RecordFormat: int(packet.Format12),
			RecordTick:   demux.DefaultRecordTick,
		},
		LogEvery: 100,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "keyscope"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return cfg, nil
}

// Validate checks every profile and the capture format
func (c *Config) Validate() error {
	if _, err := packet.ParseRecordFormat(strconv.Itoa(c.Capture.RecordFormat)); err != nil {
		return err
	}
	if c.Capture.RecordTick < 0 {
		return errors.Errorf("record tick %g must be positive", c.Capture.RecordTick)
	}
	if err := c.DefaultProfile.Validate(); err != nil {
		return errors.Wrap(err, "default profile")
	}
	for _, key := range c.profileKeys() {
		if _, err := noteKey(key); err != nil {
			return err
		}
		if err := c.Profiles[key].Validate(); err != nil {
			return errors.Wrapf(err, "profile for note %s", key)
		}
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ProfileFor returns the profile of note, or the default profile
func (c *Config) ProfileFor(note uint8) velocity.Profile {
	if p, ok := c.Profiles[strconv.Itoa(int(note))]; ok {
		return p
	}
	return c.DefaultProfile
}

// SetProfile adds or updates the profile of note
func (c *Config) SetProfile(note uint8, p velocity.Profile) {
	if c.Profiles == nil {
		c.Profiles = make(map[string]velocity.Profile)
	}
	c.Profiles[strconv.Itoa(int(note))] = p
}

// Notes returns the notes with their own profile, ascending
func (c *Config) Notes() []uint8 {
	var notes []uint8
	for _, key := range c.profileKeys() {
		if n, err := noteKey(key); err == nil {
			notes = append(notes, n)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
	return notes
}

func (c *Config) profileKeys() []string {
	keys := make([]string, 0, len(c.Profiles))
	for k := range c.Profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func noteKey(key string) (uint8, error) {
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 || n > 127 {
		return 0, errors.Errorf("profile key %q is not a note number", key)
	}
	return uint8(n), nil
}
