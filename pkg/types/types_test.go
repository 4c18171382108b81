package types

import "testing"

func TestDirectionOf(t *testing.T) {
	cases := []struct {
		delta    float64
		previous Direction
		want     Direction
	}{
		{1.5, DirectionReversed, DirectionNormal},
		{-0.001, DirectionNormal, DirectionReversed},
		{0, DirectionNormal, DirectionNormal},
		{0, DirectionReversed, DirectionReversed},
	}

	for _, tc := range cases {
		if got := DirectionOf(tc.delta, tc.previous); got != tc.want {
			t.Errorf("DirectionOf(%v, %v) = %v, want %v", tc.delta, tc.previous, got, tc.want)
		}
	}
}

func TestParseSequencePolicy(t *testing.T) {
	cases := []struct {
		input   string
		want    SequencePolicy
		wantErr bool
	}{
		{"", PolicyRunOnce, false},
		{"once", PolicyRunOnce, false},
		{"loop", PolicyLoop, false},
		{"forever", PolicyRunOnce, true},
	}

	for _, tc := range cases {
		got, err := ParseSequencePolicy(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseSequencePolicy(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseSequencePolicy(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestPolicyStrings(t *testing.T) {
	if PolicyRunOnce.String() != "once" || PolicyLoop.String() != "loop" {
		t.Errorf("policy strings = %q/%q, want once/loop", PolicyRunOnce, PolicyLoop)
	}
	if DirectionNormal.String() != "normal" || DirectionReversed.String() != "reversed" {
		t.Errorf("direction strings = %q/%q, want normal/reversed", DirectionNormal, DirectionReversed)
	}
}
