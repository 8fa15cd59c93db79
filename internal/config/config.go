package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Input  InputConfig  `yaml:"input"`
	Events EventsConfig `yaml:"events"`
	Record RecordConfig `yaml:"record"`
	UDP    UDPConfig    `yaml:"udp"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Redis  RedisConfig  `yaml:"redis"`
	Web    WebConfig    `yaml:"web"`
	Log    LogConfig    `yaml:"log"`
}

const (
	SourceSerial = "serial"
	SourceReplay = "replay"
	SourceTCP    = "tcp"
	SourceGPSD   = "gpsd"
)

// DefaultGPSDAddr is where gpsd listens unless told otherwise.
const DefaultGPSDAddr = "127.0.0.1:2947"

type InputConfig struct {
	// Source selects where lines come from: serial, replay, tcp or gpsd.
	Source string       `yaml:"source"`
	Serial SerialConfig `yaml:"serial"`
	Replay ReplayConfig `yaml:"replay"`
	TCP    TCPConfig    `yaml:"tcp"`
	GPSD   GPSDConfig   `yaml:"gpsd"`
}

type SerialConfig struct {
	// Device is the serial device path. Empty means auto-detect.
	Device string `yaml:"device"`
	// Make and Model pick the line settings preset, e.g. Generic/8N1@4800.
	Make   string `yaml:"make"`
	Model  string `yaml:"model"`
	Driver string `yaml:"driver"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
	// Interval spaces log lines that carry no timestamp.
	Interval time.Duration `yaml:"interval"`
}

type TCPConfig struct {
	Addr           string        `yaml:"addr"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// GPSDConfig reads the raw NMEA gpsd relays from its devices.
type GPSDConfig struct {
	Addr           string        `yaml:"addr"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type EventsConfig struct {
	Enable bool `yaml:"enable"`
}

// RecordConfig controls raw-traffic logging of every received line.
type RecordConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

type UDPConfig struct {
	// Dest enables NMEA-over-UDP forwarding when set, e.g. 192.168.10.255:10110.
	Dest string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

type RedisConfig struct {
	Enable        bool   `yaml:"enable"`
	Addr          string `yaml:"addr"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type WebConfig struct {
	// Listen is the HTTP listen address. Empty disables the status server.
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	// Path sends the process log to a rotating file instead of stderr.
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			return Config{}, unknownFieldsError(te)
		}
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var yamlLinePrefix = regexp.MustCompile(`^line \d+: `)

func unknownFieldsError(te *yaml.TypeError) error {
	msgs := make([]string, 0, len(te.Errors))
	unknown := true
	for _, e := range te.Errors {
		msgs = append(msgs, yamlLinePrefix.ReplaceAllString(e, ""))
		unknown = unknown && strings.Contains(e, "not found in type")
	}
	if !unknown {
		return fmt.Errorf("config contains invalid values: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
}

func (cfg *Config) normalize() error {
	in := &cfg.Input
	in.Source = strings.ToLower(strings.TrimSpace(in.Source))
	if in.Source == "" {
		in.Source = SourceSerial
	}

	switch in.Source {
	case SourceSerial:
		if in.Serial.Make == "" {
			in.Serial.Make = "Generic"
			if in.Serial.Model == "" {
				in.Serial.Model = "8N1@4800"
			}
		}
		if in.Serial.Model == "" {
			return fmt.Errorf("input.serial.model is required when input.serial.make is set")
		}
		if in.Serial.Driver == "" {
			in.Serial.Driver = "bugst"
		}
		if in.Serial.Driver != "bugst" && in.Serial.Driver != "termios" {
			return fmt.Errorf("input.serial.driver must be 'bugst' or 'termios'")
		}
	case SourceReplay:
		if in.Replay.Path == "" {
			return fmt.Errorf("input.replay.path is required when input.source is 'replay'")
		}
		if in.Replay.Speed == 0 {
			in.Replay.Speed = 1
		}
		if in.Replay.Speed < 0 {
			return fmt.Errorf("input.replay.speed must be > 0")
		}
		if in.Replay.Interval <= 0 {
			in.Replay.Interval = 1 * time.Second
		}
	case SourceTCP:
		if in.TCP.Addr == "" {
			return fmt.Errorf("input.tcp.addr is required when input.source is 'tcp'")
		}
		if in.TCP.ReconnectDelay <= 0 {
			in.TCP.ReconnectDelay = 2 * time.Second
		}
	case SourceGPSD:
		if in.GPSD.Addr == "" {
			in.GPSD.Addr = DefaultGPSDAddr
		}
		if in.GPSD.ReconnectDelay <= 0 {
			in.GPSD.ReconnectDelay = 2 * time.Second
		}
	default:
		return fmt.Errorf("input.source must be one of serial, replay, tcp, gpsd (got %q)", in.Source)
	}

	if cfg.Record.Enable {
		if cfg.Record.Path == "" {
			return fmt.Errorf("record.path is required when record.enable is true")
		}
		if in.Source == SourceReplay {
			return fmt.Errorf("record and input.source=replay cannot be used together")
		}
	}
	if cfg.Record.MaxSizeMB <= 0 {
		cfg.Record.MaxSizeMB = 50
	}
	if cfg.Record.MaxBackups < 0 {
		return fmt.Errorf("record.max_backups must be >= 0")
	}

	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "nmea-ng"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "nmea"
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")

	if cfg.Redis.Enable && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enable is true")
	}
	if cfg.Redis.ChannelPrefix == "" {
		cfg.Redis.ChannelPrefix = "nmea"
	}

	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}

	// Subscribers only run with events on; sinks are subscribers.
	if cfg.UDP.Dest != "" || cfg.MQTT.Enable || cfg.Redis.Enable || cfg.Web.Listen != "" {
		cfg.Events.Enable = true
	}
	return nil
}
