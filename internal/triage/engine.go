package triage

import "fmt"

// cascadeRule is one step of the priority-ordered decision cascade. Rules are
// evaluated strictly in slice order and the first match wins; urgency comes
// from check order, never from comparing probability magnitudes across buckets.
type cascadeRule struct {
	level  int
	bucket Bucket
	label  string
	cutoff func(CutoffConfig) float64
}

var cascade = []cascadeRule{
	{1, BucketCritical, "Critical risk", func(c CutoffConfig) float64 { return c.Level1 }},
	{2, BucketCritical, "Critical risk", func(c CutoffConfig) float64 { return c.Level2 }},
	{3, BucketUrgent, "Urgent resource risk", func(c CutoffConfig) float64 { return c.Level3 }},
	{4, BucketMinor, "Minor resource risk", func(c CutoffConfig) float64 { return c.Level4 }},
}

// Decide runs the triage cascade and returns the level (1..5) and the ordered
// rationale. It is a pure function of its arguments and is safe to call
// concurrently.
//
// When red-flag mode is on and flags is non-empty the decision is level 1 with
// the flag list as rationale, regardless of probs — including an empty or
// all-zero map, since a red-flag decision does not depend on the predictor.
func Decide(probs Probabilities, flags []string, pol Policy) (int, []string) {
	if pol.RedFlagMode && len(flags) > 0 {
		rationale := make([]string, len(flags))
		copy(rationale, flags)
		return 1, rationale
	}

	for _, rule := range cascade {
		value, ok := bucketMax(probs, pol.Buckets, rule.bucket)
		if !ok {
			continue
		}
		cut := rule.cutoff(pol.Cutoffs)
		if value >= cut {
			return rule.level, []string{
				fmt.Sprintf("%s %.1f%% ≥ L%d %.0f%%", rule.label, value*100, rule.level, cut*100),
			}
		}
	}

	return 5, []string{"all risks below cutoffs"}
}

// bucketMax aggregates a bucket by maximum. ok is false when no predicted
// outcome belongs to the bucket, in which case the bucket's checks are skipped
// rather than treated as zero risk.
func bucketMax(probs Probabilities, mapping BucketMapping, bucket Bucket) (float64, bool) {
	var max float64
	found := false
	for name, p := range probs {
		if mapping[name] != bucket {
			continue
		}
		if !found || p > max {
			max = p
		}
		found = true
	}
	return max, found
}
