package align

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// Curve is a normalized cross-correlation curve over lag for one chunk pair.
// Scores[i] is the correlation at lag Lag(i) = i - (refLen - 1) samples: a
// positive lag means the reference content appears later in the target chunk.
type Curve struct {
	Scores []float64
	refLen int
}

// Lag converts a curve index to its lag in samples.
func (c Curve) Lag(i int) int { return i - (c.refLen - 1) }

// zeroEnergyFloor is the energy below which a chunk counts as silent. The
// streams are normalized to [-1, 1], so anything under this is numerically
// indistinguishable from zero.
const zeroEnergyFloor = 1e-12

// CrossCorrelate computes the normalized cross-correlation of ref against
// target over all lags via frequency-domain convolution: both signals are
// zero-padded to the next power of two at or above len(ref)+len(target)-1 to
// avoid circular wraparound, transformed, the target spectrum is multiplied
// by the conjugate of the reference spectrum, and the product is inverse
// transformed. Scores are normalized by the geometric mean of the two chunk
// energies, so a perfect self-match scores 1.0 and values are comparable
// across chunk pairs regardless of amplitude.
//
// Returns ErrDegenerateSignal when either chunk is numerically silent. The
// function has no side effects and is safe to call concurrently.
func CrossCorrelate(ref, target []float64) (Curve, error) {
	if len(ref) == 0 || len(target) == 0 {
		return Curve{}, fmt.Errorf("%w: empty chunk", ErrDegenerateSignal)
	}

	refEnergy := floats.Dot(ref, ref)
	targetEnergy := floats.Dot(target, target)
	if refEnergy < zeroEnergyFloor || targetEnergy < zeroEnergyFloor {
		return Curve{}, fmt.Errorf("%w: silent chunk (energies %.3g, %.3g)",
			ErrDegenerateSignal, refEnergy, targetEnergy)
	}

	n := len(ref) + len(target) - 1
	m := nextPow2(n)

	refPad := make([]float64, m)
	copy(refPad, ref)
	targetPad := make([]float64, m)
	copy(targetPad, target)

	refSpec := fft.FFTReal(refPad)
	targetSpec := fft.FFTReal(targetPad)

	// corr(k) = sum_t ref[t] * target[t+k] = IFFT(T * conj(R))
	prod := make([]complex128, m)
	for i := range prod {
		prod[i] = targetSpec[i] * cmplx.Conj(refSpec[i])
	}
	inv := fft.IFFT(prod)

	// Unwrap: non-negative lags sit at the front, negative lags at the tail.
	scores := make([]float64, n)
	zero := len(ref) - 1
	for k := 0; k < len(target); k++ {
		scores[zero+k] = real(inv[k])
	}
	for k := 1; k < len(ref); k++ {
		scores[zero-k] = real(inv[m-k])
	}

	norm := 1.0 / math.Sqrt(refEnergy*targetEnergy)
	floats.Scale(norm, scores)
	clampScores(scores)

	return Curve{Scores: scores, refLen: len(ref)}, nil
}

func clampScores(scores []float64) {
	for i, s := range scores {
		if s > 1 {
			scores[i] = 1
		} else if s < -1 {
			scores[i] = -1
		}
	}
}

func nextPow2(n int) int {
	m := 1
	for m < n {
		m <<= 1
	}
	return m
}
