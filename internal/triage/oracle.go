package triage

import (
	"context"
	"errors"

	"github.com/linnemanlabs/edtriage/internal/patient"
)

// Sentinel errors for the model oracle contracts. Callers classify with
// errors.Is.
var (
	// ErrNotReady means a frozen artifact has not been loaded yet.
	ErrNotReady = errors.New("model artifact not loaded")

	// ErrOracleUnavailable means an external model oracle failed or timed
	// out. Probability-dependent decisions abort on it; pure red-flag
	// decisions complete without the predictor.
	ErrOracleUnavailable = errors.New("model oracle unavailable")
)

// Preprocessor is the frozen numeric transform fitted at training time. It
// must be deterministic and must reject use before its artifact is loaded.
type Preprocessor interface {
	Transform(rec *patient.Record) ([]float64, error)
}

// Embedder maps free text (including the empty string) to a fixed-length
// vector, deterministically per text and model version. It is a potentially
// slow external service: one call per decision, no transparent retries, and
// no fallback vector on failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Predictor turns the numeric and text feature vectors into named outcome
// probabilities. The name set is fixed by the deployed model variant.
type Predictor interface {
	Predict(ctx context.Context, numeric, text []float64) (Probabilities, error)
}
