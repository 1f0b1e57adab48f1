// Package signal implements the Stejskal-Tanner pulsed-gradient spin-echo
// signal model used to reason about diffusion-weighting strength. It provides
// the b-value formula combining gradient amplitude, pulse duration and
// diffusion time, and the exponential signal decay it predicts for a given
// diffusivity.
package signal

import (
	"fmt"
	"math"
)

// GyromagneticRatio is the gyromagnetic ratio of the hydrogen proton in MHz/T.
// This is the default gamma used by BValue.
const GyromagneticRatio = 42.576

// BValue computes the diffusion-weighting b-value in s/mm^2 for a
// pulsed-gradient spin-echo sequence using the proton gyromagnetic ratio.
//
// Parameters:
//   - g: gradient amplitude in mT/m
//   - delta: gradient pulse duration in ms
//   - bigDelta: diffusion time (pulse separation) in ms
//
// Returns a validation error when delta is non-positive, bigDelta is smaller
// than delta, or g is negative.
func BValue(g, delta, bigDelta float64) (float64, error) {
	return BValueGamma(g, delta, bigDelta, GyromagneticRatio)
}

// BValueGamma is BValue with an explicit gyromagnetic ratio in MHz/T.
//
// The formula is b = gamma^2 * g^2 * delta^2 * (bigDelta - delta/3), evaluated
// with g converted to T/um and gamma converted to rad/ms/T, which yields
// ms/um^2; the result is scaled by 1000 to the conventional s/mm^2.
func BValueGamma(g, delta, bigDelta, gamma float64) (float64, error) {
	if delta <= 0 {
		return 0, fmt.Errorf("pulse duration delta must be positive, got %g ms", delta)
	}
	if bigDelta < delta {
		return 0, fmt.Errorf("diffusion time Delta (%g ms) must be at least delta (%g ms)", bigDelta, delta)
	}
	if g < 0 {
		return 0, fmt.Errorf("gradient amplitude must be non-negative, got %g mT/m", g)
	}
	if gamma <= 0 {
		return 0, fmt.Errorf("gyromagnetic ratio must be positive, got %g MHz/T", gamma)
	}

	// mT/m -> T/um and MHz/T -> rad/ms/T
	gTPerUm := g * 1e-9
	gammaRad := 2 * math.Pi * gamma * 1e3

	b := gammaRad * gammaRad * gTPerUm * gTPerUm * delta * delta * (bigDelta - delta/3)

	// ms/um^2 -> s/mm^2
	return 1000 * b, nil
}

// Decay evaluates the Stejskal-Tanner signal equation S = S0 * exp(-b*D).
//
// Parameters:
//   - b: diffusion weighting in s/mm^2
//   - diffusivity: apparent diffusion coefficient D in mm^2/s
//   - s0: signal without diffusion weighting
func Decay(b, diffusivity, s0 float64) float64 {
	return s0 * math.Exp(-b*diffusivity)
}

// DecaySensitivity is the derivative of the Stejskal-Tanner signal with
// respect to the diffusivity, dS/dD = -b * S. Its magnitude indicates how
// much contrast a measurement at weighting b carries for changes in D.
func DecaySensitivity(b, diffusivity, s0 float64) float64 {
	return -b * Decay(b, diffusivity, s0)
}
