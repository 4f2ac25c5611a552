// ABOUTME: Player configuration loaded from flags, environment and config file
// ABOUTME: Layers viper defaults, an optional YAML file, CADENCE_* variables and pflag flags
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
	"github.com/Resonate-Protocol/cadence/pkg/playback"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CADENCE_DEVICE_BACKEND
const EnvPrefix = "CADENCE"

// Config is the resolved player configuration
type Config struct {
	Device DeviceConfig
	Engine EngineConfig
	Log    LogConfig
	UI     UIConfig
	Remote RemoteConfig

	// Files are the positional arguments, in play order
	Files []string
}

// DeviceConfig selects and shapes the output backend
type DeviceConfig struct {
	Backend    string
	ID         string
	SampleRate int
	Channels   int
	WAVPath    string
}

// EngineConfig sizes the playback pipeline
type EngineConfig struct {
	BlockSize        int
	BufferSize       int
	StopPollInterval time.Duration
	StopMaxPolls     int
}

// LogConfig controls log output
type LogConfig struct {
	Level string
	File  string
}

// UIConfig toggles the terminal UI
type UIConfig struct {
	Enabled bool
}

// RemoteConfig controls the websocket remote control
type RemoteConfig struct {
	Enabled bool
	Port    int
	MDNS    bool
	Name    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.backend", output.BackendMalgo)
	v.SetDefault("device.id", "")
	v.SetDefault("device.sample_rate", 0)
	v.SetDefault("device.channels", 0)
	v.SetDefault("device.wav_path", "cadence-out.wav")

	v.SetDefault("engine.block_size", playback.DefaultBlockSize)
	v.SetDefault("engine.buffer_size", playback.DefaultBufferSize)
	v.SetDefault("engine.stop_poll_interval", playback.DefaultStopPollInterval)
	v.SetDefault("engine.stop_max_polls", playback.DefaultStopMaxPolls)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "cadence.log")

	v.SetDefault("ui.enabled", true)

	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.port", 8928)
	v.SetDefault("remote.mdns", true)
	v.SetDefault("remote.name", "")
}

// Flags returns the command-line flag set. Flag names match the dotted
// config keys.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("cadence", pflag.ContinueOnError)

	fs.StringP("config", "c", "", "Config file (YAML)")

	fs.StringP("device.backend", "b", output.BackendMalgo, "Output backend: malgo, oto, portaudio or wav")
	fs.StringP("device.id", "d", "", "Output device id or name (default: system default)")
	fs.Int("device.sample_rate", 0, "Force the stream sample rate (0: use the file's rate)")
	fs.Int("device.channels", 0, "Force the stream channel count (0: use the file's channels)")
	fs.String("device.wav_path", "cadence-out.wav", "Output file for the wav backend")

	fs.Int("engine.block_size", playback.DefaultBlockSize, "Frames per device callback")
	fs.Int("engine.buffer_size", playback.DefaultBufferSize, "Blocks queued ahead of the device")
	fs.Duration("engine.stop_poll_interval", playback.DefaultStopPollInterval, "Stop wait poll interval")
	fs.Int("engine.stop_max_polls", playback.DefaultStopMaxPolls, "Stop wait poll count")

	fs.StringP("log.level", "l", "info", "Log level: debug, info, warn or error")
	fs.String("log.file", "cadence.log", "Log file path")

	fs.Bool("ui.enabled", true, "Show the terminal UI")
	fs.Bool("no-tui", false, "Disable the terminal UI and stream logs instead")

	fs.Bool("remote.enabled", false, "Serve the websocket remote control")
	fs.Int("remote.port", 8928, "Remote control port")
	fs.Bool("remote.mdns", true, "Advertise the remote control via mDNS")
	fs.String("remote.name", "", "Player name (default: hostname-cadence)")

	return fs
}

// Load parses args and resolves the configuration. A .env file in the
// working directory is loaded first if present.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load .env", "err", err)
	}

	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlags(fs)
}

// FromFlags resolves a configuration from an already parsed flag set
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		log.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	cfg := &Config{
		Device: DeviceConfig{
			Backend:    v.GetString("device.backend"),
			ID:         v.GetString("device.id"),
			SampleRate: v.GetInt("device.sample_rate"),
			Channels:   v.GetInt("device.channels"),
			WAVPath:    v.GetString("device.wav_path"),
		},
		Engine: EngineConfig{
			BlockSize:        v.GetInt("engine.block_size"),
			BufferSize:       v.GetInt("engine.buffer_size"),
			StopPollInterval: v.GetDuration("engine.stop_poll_interval"),
			StopMaxPolls:     v.GetInt("engine.stop_max_polls"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		UI: UIConfig{
			Enabled: v.GetBool("ui.enabled") && !v.GetBool("no-tui"),
		},
		Remote: RemoteConfig{
			Enabled: v.GetBool("remote.enabled"),
			Port:    v.GetInt("remote.port"),
			MDNS:    v.GetBool("remote.mdns"),
			Name:    v.GetString("remote.name"),
		},
		Files: fs.Args(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Device.Backend {
	case output.BackendMalgo, output.BackendOto, output.BackendPortAudio, output.BackendWAV:
	default:
		return fmt.Errorf("unknown device.backend %q", c.Device.Backend)
	}
	if c.Device.Backend == output.BackendOto && (c.Device.SampleRate <= 0 || c.Device.Channels <= 0) {
		return fmt.Errorf("oto backend needs device.sample_rate and device.channels")
	}
	if c.Engine.BlockSize <= 0 {
		return fmt.Errorf("engine.block_size must be positive, got %d", c.Engine.BlockSize)
	}
	if c.Engine.BufferSize <= 0 {
		return fmt.Errorf("engine.buffer_size must be positive, got %d", c.Engine.BufferSize)
	}
	if c.Engine.StopPollInterval <= 0 || c.Engine.StopMaxPolls <= 0 {
		return fmt.Errorf("engine stop wait must be positive")
	}
	if c.Remote.Port <= 0 || c.Remote.Port > 65535 {
		return fmt.Errorf("remote.port out of range: %d", c.Remote.Port)
	}
	return nil
}

// PlayerName returns the configured remote name or a hostname default
func (c *Config) PlayerName() string {
	if c.Remote.Name != "" {
		return c.Remote.Name
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-cadence", hostname)
}

// Playback converts the engine and device settings to a controller config
func (c *Config) Playback() playback.Config {
	return playback.Config{
		DeviceID:         c.Device.ID,
		SampleRate:       c.Device.SampleRate,
		Channels:         c.Device.Channels,
		BlockSize:        c.Engine.BlockSize,
		BufferSize:       c.Engine.BufferSize,
		StopPollInterval: c.Engine.StopPollInterval,
		StopMaxPolls:     c.Engine.StopMaxPolls,
	}
}

// OutputOptions converts the device settings to backend options
func (c *Config) OutputOptions() output.Options {
	return output.Options{
		SampleRate: c.Device.SampleRate,
		Channels:   c.Device.Channels,
		WAVPath:    c.Device.WAVPath,
	}
}
