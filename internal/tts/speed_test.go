package tts

import (
	"errors"
	"math"
	"testing"
)

// TestValidateSpeed tests the allowed multiplier range.
func TestValidateSpeed(t *testing.T) {
	tests := []struct {
		speed     float64
		expectErr bool
	}{
		{0.5, false},
		{1.0, false},
		{2.0, false},
		{0.49, true},
		{2.01, true},
		{0, true},
		{math.NaN(), true},
	}

	for _, tt := range tests {
		err := ValidateSpeed(tt.speed)
		if tt.expectErr && !errors.Is(err, ErrSpeedOutOfRange) {
			t.Errorf("ValidateSpeed(%v) = %v, want ErrSpeedOutOfRange", tt.speed, err)
		}
		if !tt.expectErr && err != nil {
			t.Errorf("ValidateSpeed(%v) unexpected error: %v", tt.speed, err)
		}
	}
}

// TestClampSpeed tests clamping of persisted values.
func TestClampSpeed(t *testing.T) {
	tests := map[float64]float64{
		0:    1.0,
		0.1:  0.5,
		1.25: 1.25,
		9:    2.0,
	}
	for in, want := range tests {
		if got := ClampSpeed(in); got != want {
			t.Errorf("ClampSpeed(%v) = %v, want %v", in, got, want)
		}
	}
	if got := ClampSpeed(math.NaN()); got != DefaultSpeed {
		t.Errorf("ClampSpeed(NaN) = %v", got)
	}
}

// TestSpeedSteps tests step navigation at and between boundaries.
func TestSpeedSteps(t *testing.T) {
	if got := NextSpeed(1.0); got != 1.2 {
		t.Errorf("NextSpeed(1.0) = %v", got)
	}
	if got := NextSpeed(1.1); got != 1.2 {
		t.Errorf("NextSpeed(1.1) = %v", got)
	}
	if got := NextSpeed(2.0); got != 2.0 {
		t.Errorf("NextSpeed(2.0) = %v", got)
	}
	if got := PrevSpeed(1.0); got != 0.8 {
		t.Errorf("PrevSpeed(1.0) = %v", got)
	}
	if got := PrevSpeed(0.5); got != 0.5 {
		t.Errorf("PrevSpeed(0.5) = %v", got)
	}
}

// TestRoundSpeed tests slider rounding.
func TestRoundSpeed(t *testing.T) {
	if got := RoundSpeed(1.26); got != 1.3 {
		t.Errorf("RoundSpeed(1.26) = %v", got)
	}
	if !IsNormalSpeed(RoundSpeed(0.96)) {
		t.Error("0.96 should round to normal speed")
	}
}
