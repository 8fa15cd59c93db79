package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "input: {}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Source != SourceSerial {
		t.Fatalf("source=%q want serial", cfg.Input.Source)
	}
	s := cfg.Input.Serial
	if s.Make != "Generic" || s.Model != "8N1@4800" || s.Driver != "bugst" {
		t.Fatalf("serial defaults=%+v", s)
	}
	if cfg.Record.MaxSizeMB != 50 || cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 {
		t.Fatalf("rotation defaults record=%+v log=%+v", cfg.Record, cfg.Log)
	}
	if cfg.MQTT.TopicPrefix != "nmea" || cfg.Redis.ChannelPrefix != "nmea" || cfg.MQTT.ClientID != "nmea-ng" {
		t.Fatalf("sink defaults mqtt=%+v redis=%+v", cfg.MQTT, cfg.Redis)
	}
	if cfg.Events.Enable {
		t.Fatalf("events should stay off without subscribers")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Source != SourceSerial {
		t.Fatalf("source=%q", cfg.Input.Source)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_SerialMakeRequiresModel(t *testing.T) {
	path := writeTempConfig(t, "input:\n  serial:\n    make: Garmin\n")
	_, err := Load(path)
	requireErrEq(t, err, "input.serial.model is required when input.serial.make is set")
}

func TestLoad_SerialDriverValidated(t *testing.T) {
	path := writeTempConfig(t, "input:\n  serial:\n    driver: ftdi\n")
	_, err := Load(path)
	requireErrEq(t, err, "input.serial.driver must be 'bugst' or 'termios'")
}

func TestLoad_UnknownSource(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: can\n")
	_, err := Load(path)
	requireErrEq(t, err, `input.source must be one of serial, replay, tcp, gpsd (got "can")`)
}

func TestLoad_ReplayRequiresPath(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: replay\n")
	_, err := Load(path)
	requireErrEq(t, err, "input.replay.path is required when input.source is 'replay'")
}

func TestLoad_ReplayDefaults(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: Replay\n  replay:\n    path: './x.log'\n    speed: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Source != SourceReplay {
		t.Fatalf("source=%q", cfg.Input.Source)
	}
	if cfg.Input.Replay.Speed != 1 {
		t.Fatalf("speed=%v want 1", cfg.Input.Replay.Speed)
	}
	if cfg.Input.Replay.Interval != time.Second {
		t.Fatalf("interval=%s want 1s", cfg.Input.Replay.Interval)
	}
}

func TestLoad_ReplayNegativeSpeedRejected(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: replay\n  replay:\n    path: './x.log'\n    speed: -1\n")
	_, err := Load(path)
	requireErrEq(t, err, "input.replay.speed must be > 0")
}

func TestLoad_TCP(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: tcp\n")
	_, err := Load(path)
	requireErrEq(t, err, "input.tcp.addr is required when input.source is 'tcp'")

	path = writeTempConfig(t, "input:\n  source: tcp\n  tcp:\n    addr: '127.0.0.1:10110'\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.TCP.ReconnectDelay != 2*time.Second {
		t.Fatalf("reconnect=%s", cfg.Input.TCP.ReconnectDelay)
	}
}

func TestLoad_GPSDDefaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "input:\n  source: GPSD\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Source != SourceGPSD {
		t.Fatalf("source=%q", cfg.Input.Source)
	}
	if cfg.Input.GPSD.Addr != "127.0.0.1:2947" {
		t.Fatalf("addr=%q", cfg.Input.GPSD.Addr)
	}
	if cfg.Input.GPSD.ReconnectDelay != 2*time.Second {
		t.Fatalf("reconnect=%s", cfg.Input.GPSD.ReconnectDelay)
	}
}

func TestLoad_RecordRequiresPath(t *testing.T) {
	path := writeTempConfig(t, "record:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "record.path is required when record.enable is true")
}

func TestLoad_RecordAndReplayMutuallyExclusive(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: replay\n  replay:\n    path: './b.log'\nrecord:\n  enable: true\n  path: './a.log'\n")
	_, err := Load(path)
	requireErrEq(t, err, "record and input.source=replay cannot be used together")
}

func TestLoad_MQTTValidation(t *testing.T) {
	_, err := Load(writeTempConfig(t, "mqtt:\n  enable: true\n"))
	requireErrEq(t, err, "mqtt.broker is required when mqtt.enable is true")

	_, err = Load(writeTempConfig(t, "mqtt:\n  enable: true\n  broker: 'tcp://localhost:1883'\n  qos: 3\n"))
	requireErrEq(t, err, "mqtt.qos must be 0, 1 or 2")
}

func TestLoad_RedisRequiresAddr(t *testing.T) {
	_, err := Load(writeTempConfig(t, "redis:\n  enable: true\n"))
	requireErrEq(t, err, "redis.addr is required when redis.enable is true")
}

func TestLoad_SinksEnableEvents(t *testing.T) {
	cases := []string{
		"udp:\n  dest: '127.0.0.1:10110'\n",
		"mqtt:\n  enable: true\n  broker: 'tcp://localhost:1883'\n  topic_prefix: 'boat/nmea/'\n",
		"redis:\n  enable: true\n  addr: 'localhost:6379'\n",
		"web:\n  listen: ':8080'\n",
	}
	for _, body := range cases {
		cfg, err := Load(writeTempConfig(t, body))
		if err != nil {
			t.Fatalf("Load(%q) error: %v", body, err)
		}
		if !cfg.Events.Enable {
			t.Fatalf("events not enabled for %q", body)
		}
		if strings.HasSuffix(cfg.MQTT.TopicPrefix, "/") {
			t.Fatalf("topic prefix=%q", cfg.MQTT.TopicPrefix)
		}
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "mqtt:\n  enable: false\n  bogus: 1\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field bogus not found in type config.MQTTConfig")
}

func TestLoad_RejectsBadValue(t *testing.T) {
	path := writeTempConfig(t, "input:\n  replay:\n    speed: fast\n")
	_, err := Load(path)
	if err == nil || !strings.HasPrefix(err.Error(), "config contains invalid values: ") {
		t.Fatalf("err=%v", err)
	}
}
