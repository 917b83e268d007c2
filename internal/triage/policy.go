package triage

import (
	"errors"
	"fmt"
)

// Bucket groups named outcomes for threshold comparison. A bucket's value is
// the maximum probability across its members: one elevated outcome is enough.
type Bucket string

const (
	BucketCritical Bucket = "critical"
	BucketUrgent   Bucket = "urgent"
	BucketMinor    Bucket = "minor"
)

// CutoffConfig holds the four probability cutoffs that map bucket values to
// triage levels.
//
// The cutoffs are deliberately not constrained to be monotonic
// (Level1 >= Level2 etc.): the cascade is evaluated strictly in order, so an
// inverted pair simply makes the earlier, more urgent check win. Level3 and
// Level4 gate different buckets and have no meaningful ordering at all.
type CutoffConfig struct {
	Level1 float64 `json:"cutoff_l1" yaml:"cutoff_l1"` // critical bucket => level 1
	Level2 float64 `json:"cutoff_l2" yaml:"cutoff_l2"` // critical bucket => level 2
	Level3 float64 `json:"cutoff_l3" yaml:"cutoff_l3"` // urgent bucket => level 3
	Level4 float64 `json:"cutoff_l4" yaml:"cutoff_l4"` // minor bucket => level 4
}

// Validate range-checks each cutoff against its operator-adjustable range.
func (c CutoffConfig) Validate() error {
	var errs []error
	if c.Level1 < 0.10 || c.Level1 > 0.90 {
		errs = append(errs, fmt.Errorf("cutoff_l1 %.2f out of range 0.10..0.90", c.Level1))
	}
	for _, cut := range []struct {
		name  string
		value float64
	}{
		{"cutoff_l2", c.Level2},
		{"cutoff_l3", c.Level3},
		{"cutoff_l4", c.Level4},
	} {
		if cut.value < 0.05 || cut.value > 0.80 {
			errs = append(errs, fmt.Errorf("%s %.2f out of range 0.05..0.80", cut.name, cut.value))
		}
	}
	return errors.Join(errs...)
}

// RedFlagThresholds are the five independently adjustable vital-sign safety
// bounds. Any breach forces level 1 when red-flag mode is on.
type RedFlagThresholds struct {
	SBPLow   int     `json:"sbp_low" yaml:"sbp_low"`     // SBP strictly below => flag
	SpO2Low  int     `json:"spo2_low" yaml:"spo2_low"`   // SpO2 strictly below => flag
	RRHigh   int     `json:"rr_high" yaml:"rr_high"`     // RR strictly above => flag
	TempHigh float64 `json:"temp_high" yaml:"temp_high"` // temp at/above => flag
	GCSLow   int     `json:"gcs_low" yaml:"gcs_low"`     // GCS total at/below => flag
}

// Validate range-checks each threshold against its operator-adjustable range.
func (t RedFlagThresholds) Validate() error {
	var errs []error
	if t.SBPLow < 60 || t.SBPLow > 120 {
		errs = append(errs, fmt.Errorf("sbp_low %d out of range 60..120", t.SBPLow))
	}
	if t.SpO2Low < 70 || t.SpO2Low > 100 {
		errs = append(errs, fmt.Errorf("spo2_low %d out of range 70..100", t.SpO2Low))
	}
	if t.RRHigh < 16 || t.RRHigh > 60 {
		errs = append(errs, fmt.Errorf("rr_high %d out of range 16..60", t.RRHigh))
	}
	if t.TempHigh < 37.0 || t.TempHigh > 42.0 {
		errs = append(errs, fmt.Errorf("temp_high %.1f out of range 37.0..42.0", t.TempHigh))
	}
	if t.GCSLow < 3 || t.GCSLow > 15 {
		errs = append(errs, fmt.Errorf("gcs_low %d out of range 3..15", t.GCSLow))
	}
	return errors.Join(errs...)
}

// BucketMapping assigns each deployed outcome name to a severity bucket. It is
// deployment configuration, not code: the single-proxy and nine-outcome
// predictor variants differ only in this mapping.
type BucketMapping map[string]Bucket

// Validate checks the mapping is non-empty and uses only known buckets.
func (m BucketMapping) Validate() error {
	if len(m) == 0 {
		return errors.New("bucket mapping is empty: at least one outcome is required")
	}
	var errs []error
	for name, b := range m {
		switch b {
		case BucketCritical, BucketUrgent, BucketMinor:
		default:
			errs = append(errs, fmt.Errorf("outcome %q mapped to unknown bucket %q", name, b))
		}
	}
	return errors.Join(errs...)
}

// CheckCoverage verifies every predicted outcome name is assigned to a bucket,
// guarding against a predictor/policy deployment mismatch.
func (m BucketMapping) CheckCoverage(p Probabilities) error {
	var errs []error
	for name := range p {
		if _, ok := m[name]; !ok {
			errs = append(errs, fmt.Errorf("predictor returned outcome %q with no bucket assignment", name))
		}
	}
	return errors.Join(errs...)
}

// Policy is the complete, immutable configuration snapshot for one decision.
// It is constructed per request (defaults merged with any request overrides)
// and passed by value into the cascade, so a concurrent configuration change
// can never affect an in-flight decision.
type Policy struct {
	Cutoffs     CutoffConfig      `json:"cutoffs" yaml:"cutoffs"`
	RedFlags    RedFlagThresholds `json:"red_flags" yaml:"red_flags"`
	Buckets     BucketMapping     `json:"buckets" yaml:"buckets"`
	RedFlagMode bool              `json:"red_flag_mode" yaml:"red_flag_mode"`
}

// Validate checks the whole snapshot at configuration time. Decisions are
// never attempted against an invalid policy.
func (p Policy) Validate() error {
	return errors.Join(
		p.Cutoffs.Validate(),
		p.RedFlags.Validate(),
		p.Buckets.Validate(),
	)
}

// DefaultPolicy returns the shipped nine-outcome deployment defaults.
func DefaultPolicy() Policy {
	return Policy{
		Cutoffs: CutoffConfig{
			Level1: 0.50,
			Level2: 0.30,
			Level3: 0.40,
			Level4: 0.25,
		},
		RedFlags: RedFlagThresholds{
			SBPLow:   90,
			SpO2Low:  90,
			RRHigh:   30,
			TempHigh: 39.5,
			GCSLow:   8,
		},
		Buckets: BucketMapping{
			"7_day_death":   BucketCritical,
			"icu_admission": BucketCritical,
			"et":            BucketCritical,
			"or":            BucketCritical,
			"admission":     BucketUrgent,
			"inject":        BucketUrgent,
			"consult":       BucketUrgent,
			"lab":           BucketMinor,
			"xray":          BucketMinor,
		},
		RedFlagMode: true,
	}
}
