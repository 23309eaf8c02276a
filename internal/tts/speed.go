package tts

import (
	"fmt"
	"math"
)

const (
	// MinSpeed is the slowest playback multiplier
	MinSpeed = 0.5

	// MaxSpeed is the fastest playback multiplier
	MaxSpeed = 2.0

	// DefaultSpeed is normal playback
	DefaultSpeed = 1.0
)

// SpeedSteps are the predefined increments used by keyboard controls. Each is
// already rounded to the slider resolution.
var SpeedSteps = []float64{0.5, 0.8, 1.0, 1.2, 1.5, 1.8, 2.0}

// ValidateSpeed returns ErrSpeedOutOfRange if speed is outside [0.5, 2.0].
func ValidateSpeed(speed float64) error {
	if math.IsNaN(speed) || speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w, got %.2f", ErrSpeedOutOfRange, speed)
	}
	return nil
}

// ClampSpeed forces speed into the valid range. NaN and zero map to
// the default speed.
func ClampSpeed(speed float64) float64 {
	switch {
	case math.IsNaN(speed) || speed == 0:
		return DefaultSpeed
	case speed < MinSpeed:
		return MinSpeed
	case speed > MaxSpeed:
		return MaxSpeed
	default:
		return speed
	}
}

// RoundSpeed rounds to one decimal place, as the speed slider does.
func RoundSpeed(speed float64) float64 {
	return math.Round(speed*10) / 10
}

// NextSpeed returns the next higher step, or speed if already at maximum.
func NextSpeed(speed float64) float64 {
	for _, s := range SpeedSteps {
		if s > speed+1e-9 {
			return s
		}
	}
	return speed
}

// PrevSpeed returns the next lower step, or speed if already at minimum.
func PrevSpeed(speed float64) float64 {
	for i := len(SpeedSteps) - 1; i >= 0; i-- {
		if SpeedSteps[i] < speed-1e-9 {
			return SpeedSteps[i]
		}
	}
	return speed
}

// IsNormalSpeed reports whether speed needs no tempo processing.
func IsNormalSpeed(speed float64) bool {
	return math.Abs(speed-DefaultSpeed) < 1e-6
}

// SpeedDisplay returns a human-readable speed description.
func SpeedDisplay(speed float64) string {
	return fmt.Sprintf("%.2fx", speed)
}
