package hal

import (
	"errors"
	"testing"

	"stepcontrol/pkg/types"
)

// fakePin records level transitions.
type fakePin struct {
	high    bool
	history []bool
	err     error
}

func (p *fakePin) SetHigh() error {
	if p.err != nil {
		return p.err
	}
	p.high = true
	p.history = append(p.history, true)
	return nil
}

func (p *fakePin) SetLow() error {
	if p.err != nil {
		return p.err
	}
	p.high = false
	p.history = append(p.history, false)
	return nil
}

func newGPIOFixture(mode EnableMode) (*GPIOStepper, *fakePin, *fakePin, *fakePin, *SimClock) {
	enable := &fakePin{}
	step := &fakePin{}
	dir := &fakePin{}
	clock := NewSimClock()
	s := NewGPIOStepper(enable, step, dir, mode, 10, 50, clock)
	return s, enable, step, dir, clock
}

func TestGPIOStepperInitializeIO(t *testing.T) {
	s, enable, step, dir, _ := newGPIOFixture(ActiveHigh)
	if err := s.InitializeIO(); err != nil {
		t.Fatalf("InitializeIO: %v", err)
	}
	if step.high || dir.high {
		t.Error("step and direction pins should idle low")
	}
	if enable.high {
		t.Error("active-high driver should initialize disabled (enable low)")
	}
}

func TestGPIOStepperEnablePolarity(t *testing.T) {
	cases := []struct {
		name        string
		mode        EnableMode
		wantEnabled bool // pin level when enabled
	}{
		{"active high", ActiveHigh, true},
		{"active low", ActiveLow, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, enable, _, _, _ := newGPIOFixture(tc.mode)
			if err := s.Enable(); err != nil {
				t.Fatalf("Enable: %v", err)
			}
			if enable.high != tc.wantEnabled {
				t.Errorf("enable pin = %v after Enable, want %v", enable.high, tc.wantEnabled)
			}
			if err := s.Disable(); err != nil {
				t.Fatalf("Disable: %v", err)
			}
			if enable.high == tc.wantEnabled {
				t.Errorf("enable pin unchanged after Disable")
			}
		})
	}
}

func TestGPIOStepperDirectionPin(t *testing.T) {
	s, _, _, dir, _ := newGPIOFixture(ActiveHigh)
	if err := s.SetDirection(types.DirectionReversed); err != nil {
		t.Fatalf("SetDirection: %v", err)
	}
	if !dir.high {
		t.Error("reversed direction should drive the pin high")
	}
	if err := s.SetDirection(types.DirectionNormal); err != nil {
		t.Fatalf("SetDirection: %v", err)
	}
	if dir.high {
		t.Error("normal direction should drive the pin low")
	}
}

func TestGPIOStepperStepPulse(t *testing.T) {
	s, _, step, _, clock := newGPIOFixture(ActiveHigh)

	delay, err := s.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if delay != 50 {
		t.Errorf("Step returned delay %d, want the configured 50", delay)
	}
	// One rising and one falling edge, with the pulse width between them.
	want := []bool{true, false}
	if len(step.history) != len(want) {
		t.Fatalf("step pin transitions = %v, want high then low", step.history)
	}
	for i := range want {
		if step.history[i] != want[i] {
			t.Fatalf("step pin transitions = %v, want high then low", step.history)
		}
	}
	if clock.NowMicros() != 10 {
		t.Errorf("clock advanced %dus during the pulse, want the 10us width", clock.NowMicros())
	}
}

func TestGPIOStepperPinError(t *testing.T) {
	s, _, step, _, _ := newGPIOFixture(ActiveHigh)
	step.err = errors.New("pin stuck")
	if _, err := s.Step(); !errors.Is(err, step.err) {
		t.Errorf("Step = %v, want the pin error", err)
	}
}
