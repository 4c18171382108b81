// Package config provides YAML-based configuration for the stepper control
// system: the control-cycle timing, the axis scale and pulse parameters, the
// waypoint sequence with its kinematic limits, and the hardware backend
// selection. Loading validates the file and fills unset fields with defaults.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"stepcontrol/internal/logging"
	"stepcontrol/pkg/types"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Control  ControlConfig  `yaml:"control"`
	Axis     AxisConfig     `yaml:"axis"`
	Sequence SequenceConfig `yaml:"sequence"`
	Stepper  StepperConfig  `yaml:"stepper"`
	Logging  logging.Config `yaml:"logging"`
}

// ControlConfig sets the real-time loop timing.
type ControlConfig struct {
	CyclePeriodMicros uint32 `yaml:"cycle_period_us"` // e.g. 1000 for a 1 kHz loop
}

// AxisConfig sets the scale and pulse parameters for the single driven axis.
// StepsPerUnit incorporates any microstepping multiplier.
type AxisConfig struct {
	StepsPerUnit          float64 `yaml:"steps_per_unit"`
	MinPulseWidthMicros   uint32  `yaml:"min_pulse_width_us"`
	PulseDelayMicros      uint32  `yaml:"pulse_delay_us"`
	DirectionSettleMicros uint32  `yaml:"direction_settle_us"`
}

// SegmentConfig is one waypoint with its kinematic limits, in axis units.
type SegmentConfig struct {
	Target          float64 `yaml:"target"`
	MaxJerk         float64 `yaml:"max_jerk"`
	MaxAcceleration float64 `yaml:"max_acceleration"`
	MaxVelocity     float64 `yaml:"max_velocity"`
}

// SequenceConfig is the ordered waypoint list and the exhaustion policy.
type SequenceConfig struct {
	Policy   string          `yaml:"policy"` // "once" or "loop"
	Segments []SegmentConfig `yaml:"segments"`
}

// StepperConfig selects and parameterizes the hardware backend.
type StepperConfig struct {
	Backend string       `yaml:"backend"` // "sim", "serial", "modbus"
	Serial  SerialConfig `yaml:"serial"`
	Modbus  ModbusConfig `yaml:"modbus"`
}

// SerialConfig configures the ASCII step/dir breakout on a serial port.
type SerialConfig struct {
	PortName string `yaml:"port_name"` // e.g. "/dev/ttyUSB0"
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
}

// ModbusConfig configures a register-mapped drive over Modbus RTU or TCP.
type ModbusConfig struct {
	Mode      string `yaml:"mode"`    // "tcp" or "rtu"
	Address   string `yaml:"address"` // TCP host:port or serial device path
	BaudRate  int    `yaml:"baud_rate"`
	DataBits  int    `yaml:"data_bits"`
	StopBits  int    `yaml:"stop_bits"`
	Parity    string `yaml:"parity"`
	SlaveID   byte   `yaml:"slave_id"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Load reads, parses, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is supplied: a 1 kHz
// loop driving a simulated stepper through a short demonstration sequence.
func Default() *Config {
	cfg := &Config{
		Control: ControlConfig{CyclePeriodMicros: 1000},
		Axis: AxisConfig{
			StepsPerUnit:        32.0,
			MinPulseWidthMicros: 10,
			PulseDelayMicros:    10,
		},
		Sequence: SequenceConfig{
			Policy: "once",
			Segments: []SegmentConfig{
				{Target: 100.0, MaxJerk: 500.0, MaxAcceleration: 100.0, MaxVelocity: 25.0},
				{Target: 0.0, MaxJerk: 500.0, MaxAcceleration: 100.0, MaxVelocity: 25.0},
			},
		},
		Stepper: StepperConfig{Backend: "sim"},
		Logging: *logging.DefaultConfig(),
	}
	return cfg
}

// Validate checks the configuration and fills defaults for unset fields.
func (c *Config) Validate() error {
	if c.Control.CyclePeriodMicros == 0 {
		c.Control.CyclePeriodMicros = 1000
	}

	if c.Axis.StepsPerUnit <= 0 {
		return fmt.Errorf("axis steps_per_unit must be positive, got %v", c.Axis.StepsPerUnit)
	}
	if c.Axis.MinPulseWidthMicros == 0 {
		c.Axis.MinPulseWidthMicros = 10
	}
	if c.Axis.MinPulseWidthMicros*2 > c.Control.CyclePeriodMicros {
		return fmt.Errorf("min pulse width %dus cannot fit the %dus control cycle",
			c.Axis.MinPulseWidthMicros, c.Control.CyclePeriodMicros)
	}

	if _, err := types.ParseSequencePolicy(c.Sequence.Policy); err != nil {
		return err
	}
	if len(c.Sequence.Segments) == 0 {
		return fmt.Errorf("at least one sequence segment must be configured")
	}
	for i, seg := range c.Sequence.Segments {
		if seg.MaxJerk <= 0 {
			return fmt.Errorf("segment %d must have a positive max jerk", i)
		}
		if seg.MaxAcceleration <= 0 {
			return fmt.Errorf("segment %d must have a positive max acceleration", i)
		}
		if seg.MaxVelocity <= 0 {
			return fmt.Errorf("segment %d must have a positive max velocity", i)
		}
		// Step accounting is exact only for targets on the step grid; a
		// fractional step can never be pulsed.
		steps := seg.Target * c.Axis.StepsPerUnit
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			return fmt.Errorf("segment %d target %v is not on the step grid (%v steps per unit)",
				i, seg.Target, c.Axis.StepsPerUnit)
		}
	}

	switch c.Stepper.Backend {
	case "":
		c.Stepper.Backend = "sim"
	case "sim":
	case "serial":
		if c.Stepper.Serial.PortName == "" {
			return fmt.Errorf("serial backend requires a port_name")
		}
		if c.Stepper.Serial.BaudRate == 0 {
			c.Stepper.Serial.BaudRate = 115200
		}
		if c.Stepper.Serial.DataBits == 0 {
			c.Stepper.Serial.DataBits = 8
		}
		if c.Stepper.Serial.StopBits == 0 {
			c.Stepper.Serial.StopBits = 1
		}
	case "modbus":
		if c.Stepper.Modbus.Address == "" {
			return fmt.Errorf("modbus backend requires an address")
		}
		switch c.Stepper.Modbus.Mode {
		case "":
			c.Stepper.Modbus.Mode = "tcp"
		case "tcp":
		case "rtu":
			if c.Stepper.Modbus.BaudRate == 0 {
				c.Stepper.Modbus.BaudRate = 19200
			}
			if c.Stepper.Modbus.DataBits == 0 {
				c.Stepper.Modbus.DataBits = 8
			}
			if c.Stepper.Modbus.StopBits == 0 {
				c.Stepper.Modbus.StopBits = 1
			}
			if c.Stepper.Modbus.Parity == "" {
				c.Stepper.Modbus.Parity = "N"
			}
		default:
			return fmt.Errorf("unknown modbus mode %q", c.Stepper.Modbus.Mode)
		}
		if c.Stepper.Modbus.TimeoutMS == 0 {
			c.Stepper.Modbus.TimeoutMS = 1000
		}
	default:
		return fmt.Errorf("unknown stepper backend %q", c.Stepper.Backend)
	}

	return nil
}

// Policy returns the parsed sequence policy. Validate must have succeeded.
func (c *Config) Policy() types.SequencePolicy {
	policy, _ := types.ParseSequencePolicy(c.Sequence.Policy)
	return policy
}

// Segments converts the configured waypoints into motion segments.
func (c *Config) Segments() []types.Segment {
	segments := make([]types.Segment, len(c.Sequence.Segments))
	for i, seg := range c.Sequence.Segments {
		segments[i] = types.Segment{
			TargetPosition:  seg.Target,
			MaxJerk:         seg.MaxJerk,
			MaxAcceleration: seg.MaxAcceleration,
			MaxVelocity:     seg.MaxVelocity,
		}
	}
	return segments
}
