package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"pulsefut/loop"
	"pulsefut/native"
)

const SupportedSchema = "v1"

// EnvPrefix selects the environment overrides: PULSEFUT__CLIENT__SERVER
// sets client.server.
const EnvPrefix = "PULSEFUT__"

type Config struct {
	SchemaVersion string `koanf:"schema_version" yaml:"schema_version"`

	Client    ClientConfig `koanf:"client" yaml:"client"`
	Subscribe []string     `koanf:"subscribe" yaml:"subscribe"`

	Sinks       []string    `koanf:"sinks" yaml:"sinks"`
	SinkConfigs SinkConfigs `koanf:"sink_configs" yaml:"sink_configs"`

	Transport TransportConfig `koanf:"transport" yaml:"transport"`
	Metrics   MetricsConfig   `koanf:"metrics" yaml:"metrics"`
	Log       LogConfig       `koanf:"log" yaml:"log"`
	Sim       SimConfig       `koanf:"sim" yaml:"sim"`
}

type ClientConfig struct {
	Name   string   `koanf:"name" yaml:"name"`
	Server string   `koanf:"server" yaml:"server"` // empty means the default server
	Flags  []string `koanf:"flags" yaml:"flags"`   // noautospawn|nofail
	Driver string   `koanf:"driver" yaml:"driver"` // self|host
	// Pace throttles how often busy tasks are re-polled.
	Pace       time.Duration     `koanf:"pace" yaml:"pace"`
	Properties map[string]string `koanf:"properties" yaml:"properties"`
	Connect    RetryConfig       `koanf:"connect" yaml:"connect"`
}

type RetryConfig struct {
	// Attempts bounds consecutive failed connects; 0 retries forever.
	Attempts        int           `koanf:"attempts" yaml:"attempts"`
	InitialInterval time.Duration `koanf:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval" yaml:"max_interval"`
}

type SinkConfigs struct {
	Stdout StdoutConfig `koanf:"stdout" yaml:"stdout"`
	Kafka  KafkaConfig  `koanf:"kafka" yaml:"kafka"`
}

type StdoutConfig struct {
	Pretty bool `koanf:"pretty" yaml:"pretty"`
	// KnownOnly drops events with an unrecognised facility or operation.
	KnownOnly bool `koanf:"known_only" yaml:"known_only"`
	// Lines are flushed every BatchSize records or FlushInterval, whichever
	// comes first; both zero flushes every record.
	BatchSize     int           `koanf:"batch_size" yaml:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval" yaml:"flush_interval"`
}

type KafkaConfig struct {
	Brokers  []string `koanf:"brokers" yaml:"brokers"`
	Topic    string   `koanf:"topic" yaml:"topic"`
	ClientID string   `koanf:"client_id" yaml:"client_id"`
	Version  string   `koanf:"version" yaml:"version"`
	Acks     string   `koanf:"acks" yaml:"acks"` // none|leader|all
}

type TransportConfig struct {
	GRPCPort int `koanf:"grpc_port" yaml:"grpc_port"` // 0 disables the service
}

type MetricsConfig struct {
	Port int `koanf:"port" yaml:"port"` // 0 disables /metrics
}

type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
	JSON  bool   `koanf:"json" yaml:"json"`
}

// SimConfig seeds the in-process audio server.
type SimConfig struct {
	Address string    `koanf:"address" yaml:"address"`
	Sinks   []SimSink `koanf:"sinks" yaml:"sinks"`
}

type SimSink struct {
	Name          string            `koanf:"name" yaml:"name"`
	Description   string            `koanf:"description" yaml:"description"`
	Driver        string            `koanf:"driver" yaml:"driver,omitempty"`
	Channels      int               `koanf:"channels" yaml:"channels,omitempty"`
	VolumePercent float64           `koanf:"volume_percent" yaml:"volume_percent,omitempty"`
	Mute          bool              `koanf:"mute" yaml:"mute,omitempty"`
	Ports         []SimPort         `koanf:"ports" yaml:"ports,omitempty"`
	ActivePort    string            `koanf:"active_port" yaml:"active_port,omitempty"`
	Properties    map[string]string `koanf:"properties" yaml:"properties,omitempty"`
}

type SimPort struct {
	Name        string `koanf:"name" yaml:"name"`
	Description string `koanf:"description" yaml:"description"`
	Priority    uint32 `koanf:"priority" yaml:"priority,omitempty"`
}

// Load merges the YAML file at path (a missing file is fine) with
// PULSEFUT__ environment overrides, fills defaults and validates.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want %q)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&cfg, k.Exists)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		Sinks: []string{"stdout"},
		Sim: SimConfig{Sinks: []SimSink{
			{
				Name:        "alsa_output.pci-0000_00_1f.3.analog-stereo",
				Description: "Built-in Audio Analog Stereo",
				Driver:      "module-alsa-card.c",
				Ports: []SimPort{
					{Name: "analog-output-speaker", Description: "Speakers", Priority: 10000},
					{Name: "analog-output-headphones", Description: "Headphones", Priority: 9900},
				},
				Properties: map[string]string{"device.bus": "pci"},
			},
			{
				Name:        "alsa_output.pci-0000_01_00.1.hdmi-stereo",
				Description: "HDMI Audio",
				Ports:       []SimPort{{Name: "hdmi-output-0", Description: "HDMI / DisplayPort", Priority: 5900}},
			},
		}},
	}
	applyDefaults(&cfg, func(string) bool { return false })
	return cfg
}

// applyDefaults fills unset fields. Settings where zero means something
// (unlimited attempts, no gRPC service) are only filled when set reports
// the key absent.
func applyDefaults(c *Config, set func(key string) bool) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.Client.Name == "" {
		c.Client.Name = "pulsefut"
	}
	if c.Client.Driver == "" {
		c.Client.Driver = string(loop.ModeSelf)
	}
	if c.Client.Pace == 0 {
		c.Client.Pace = 5 * time.Millisecond
	}
	if !set("client.connect.attempts") && c.Client.Connect.Attempts == 0 {
		c.Client.Connect.Attempts = 5
	}
	if c.Client.Connect.InitialInterval == 0 {
		c.Client.Connect.InitialInterval = 200 * time.Millisecond
	}
	if c.Client.Connect.MaxInterval == 0 {
		c.Client.Connect.MaxInterval = 5 * time.Second
	}
	if len(c.Subscribe) == 0 {
		c.Subscribe = []string{"sink", "server"}
	}
	if c.SinkConfigs.Kafka.Topic == "" {
		c.SinkConfigs.Kafka.Topic = "pulsefut.events"
	}
	if c.SinkConfigs.Kafka.ClientID == "" {
		c.SinkConfigs.Kafka.ClientID = "pulsefutd"
	}
	if c.SinkConfigs.Kafka.Acks == "" {
		c.SinkConfigs.Kafka.Acks = "leader"
	}
	if !set("transport.grpc_port") && c.Transport.GRPCPort == 0 {
		c.Transport.GRPCPort = 50071
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the values that later stages would otherwise reject
// halfway through startup.
func (c Config) Validate() error {
	if _, err := loop.ParseMode(c.Client.Driver); err != nil {
		return fmt.Errorf("config: client.driver: %w", err)
	}
	if _, err := c.Client.ConnectFlags(); err != nil {
		return err
	}
	if _, err := c.InterestMask(); err != nil {
		return err
	}
	if c.Client.Connect.Attempts < 0 {
		return fmt.Errorf("config: client.connect.attempts must not be negative")
	}
	if c.Transport.GRPCPort < 0 || c.Metrics.Port < 0 {
		return fmt.Errorf("config: ports must not be negative")
	}
	seen := make(map[string]bool, len(c.Sim.Sinks))
	for _, s := range c.Sim.Sinks {
		if s.Name == "" {
			return fmt.Errorf("config: sim sink without a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate sim sink %q", s.Name)
		}
		seen[s.Name] = true
		if s.Channels < 0 || s.Channels > native.ChannelsMax {
			return fmt.Errorf("config: sim sink %q: channels out of range", s.Name)
		}
	}
	return nil
}

// ConnectFlags converts client.flags.
func (c ClientConfig) ConnectFlags() (native.ConnectFlags, error) {
	flags := native.FlagNoFlags
	for _, f := range c.Flags {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "noautospawn":
			flags |= native.FlagNoAutoSpawn
		case "nofail":
			flags |= native.FlagNoFail
		default:
			return 0, fmt.Errorf("config: unknown connect flag %q", f)
		}
	}
	return flags, nil
}

// InterestMask converts the subscribe list.
func (c Config) InterestMask() (native.InterestMask, error) {
	m, err := native.ParseMask(c.Subscribe)
	if err != nil {
		return 0, fmt.Errorf("config: subscribe: %w", err)
	}
	return m, nil
}

// Write renders cfg as YAML.
func Write(w io.Writer, cfg Config) error {
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}

// WriteFile writes cfg to path, refusing to replace an existing file unless
// force is set.
func WriteFile(path string, cfg Config, force bool) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
