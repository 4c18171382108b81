package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stepcontrol/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
control:
  cycle_period_us: 500
axis:
  steps_per_unit: 64.0
  min_pulse_width_us: 5
  pulse_delay_us: 20
  direction_settle_us: 10
sequence:
  policy: loop
  segments:
    - target: 100.0
      max_jerk: 500.0
      max_acceleration: 100.0
      max_velocity: 25.0
    - target: 0.0
      max_jerk: 500.0
      max_acceleration: 100.0
      max_velocity: 25.0
stepper:
  backend: serial
  serial:
    port_name: /dev/ttyUSB0
    baud_rate: 57600
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Control.CyclePeriodMicros != 500 {
		t.Errorf("cycle period = %d, want 500", cfg.Control.CyclePeriodMicros)
	}
	if cfg.Axis.StepsPerUnit != 64.0 {
		t.Errorf("steps per unit = %v, want 64", cfg.Axis.StepsPerUnit)
	}
	if cfg.Axis.DirectionSettleMicros != 10 {
		t.Errorf("direction settle = %d, want 10", cfg.Axis.DirectionSettleMicros)
	}
	if cfg.Policy() != types.PolicyLoop {
		t.Errorf("policy = %v, want loop", cfg.Policy())
	}
	if len(cfg.Sequence.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(cfg.Sequence.Segments))
	}
	if cfg.Stepper.Backend != "serial" {
		t.Errorf("backend = %q, want serial", cfg.Stepper.Backend)
	}
	if cfg.Stepper.Serial.BaudRate != 57600 {
		t.Errorf("baud rate = %d, want 57600", cfg.Stepper.Serial.BaudRate)
	}
	// Unset serial framing fields pick up defaults.
	if cfg.Stepper.Serial.DataBits != 8 || cfg.Stepper.Serial.StopBits != 1 {
		t.Errorf("serial framing = %d/%d, want 8/1",
			cfg.Stepper.Serial.DataBits, cfg.Stepper.Serial.StopBits)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load of a missing file = %v, want a not-exist error", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "control: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed YAML should fail")
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate on Default(): %v", err)
	}
	if cfg.Stepper.Backend != "sim" {
		t.Errorf("default backend = %q, want sim", cfg.Stepper.Backend)
	}
	if len(cfg.Segments()) == 0 {
		t.Error("default config has no segments")
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &Config{
		Axis: AxisConfig{StepsPerUnit: 32},
		Sequence: SequenceConfig{
			Segments: []SegmentConfig{
				{Target: 10, MaxJerk: 100, MaxAcceleration: 50, MaxVelocity: 25},
			},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Control.CyclePeriodMicros != 1000 {
		t.Errorf("cycle period default = %d, want 1000", cfg.Control.CyclePeriodMicros)
	}
	if cfg.Axis.MinPulseWidthMicros != 10 {
		t.Errorf("pulse width default = %d, want 10", cfg.Axis.MinPulseWidthMicros)
	}
	if cfg.Stepper.Backend != "sim" {
		t.Errorf("backend default = %q, want sim", cfg.Stepper.Backend)
	}
	if cfg.Policy() != types.PolicyRunOnce {
		t.Errorf("policy default = %v, want run-once", cfg.Policy())
	}
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"zero steps per unit",
			func(c *Config) { c.Axis.StepsPerUnit = 0 },
			"steps_per_unit",
		},
		{
			"pulse width too wide for cycle",
			func(c *Config) {
				c.Control.CyclePeriodMicros = 100
				c.Axis.MinPulseWidthMicros = 60
			},
			"cannot fit",
		},
		{
			"unknown policy",
			func(c *Config) { c.Sequence.Policy = "bounce" },
			"policy",
		},
		{
			"no segments",
			func(c *Config) { c.Sequence.Segments = nil },
			"at least one",
		},
		{
			"segment without jerk limit",
			func(c *Config) { c.Sequence.Segments[0].MaxJerk = 0 },
			"max jerk",
		},
		{
			"segment with negative velocity",
			func(c *Config) { c.Sequence.Segments[1].MaxVelocity = -5 },
			"max velocity",
		},
		{
			"target off the step grid",
			func(c *Config) { c.Sequence.Segments[0].Target = 100.02 },
			"step grid",
		},
		{
			"unknown backend",
			func(c *Config) { c.Stepper.Backend = "telepathy" },
			"backend",
		},
		{
			"serial without port",
			func(c *Config) { c.Stepper.Backend = "serial" },
			"port_name",
		},
		{
			"modbus without address",
			func(c *Config) { c.Stepper.Backend = "modbus" },
			"address",
		},
		{
			"modbus with unknown mode",
			func(c *Config) {
				c.Stepper.Backend = "modbus"
				c.Stepper.Modbus.Address = "drive:502"
				c.Stepper.Modbus.Mode = "carrier-pigeon"
			},
			"modbus mode",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should have failed")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateModbusRTUDefaults(t *testing.T) {
	cfg := Default()
	cfg.Stepper.Backend = "modbus"
	cfg.Stepper.Modbus.Mode = "rtu"
	cfg.Stepper.Modbus.Address = "/dev/ttyUSB1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m := cfg.Stepper.Modbus
	if m.BaudRate != 19200 || m.DataBits != 8 || m.StopBits != 1 || m.Parity != "N" {
		t.Errorf("rtu defaults = %d/%d/%d/%q, want 19200/8/1/N",
			m.BaudRate, m.DataBits, m.StopBits, m.Parity)
	}
	if m.TimeoutMS != 1000 {
		t.Errorf("timeout default = %d, want 1000", m.TimeoutMS)
	}
}

func TestSegmentsConversion(t *testing.T) {
	cfg := Default()
	segs := cfg.Segments()
	if len(segs) != len(cfg.Sequence.Segments) {
		t.Fatalf("Segments() = %d entries, want %d", len(segs), len(cfg.Sequence.Segments))
	}
	for i, seg := range segs {
		src := cfg.Sequence.Segments[i]
		if seg.TargetPosition != src.Target || seg.MaxJerk != src.MaxJerk ||
			seg.MaxAcceleration != src.MaxAcceleration || seg.MaxVelocity != src.MaxVelocity {
			t.Errorf("segment %d = %+v, does not match config %+v", i, seg, src)
		}
	}
}
