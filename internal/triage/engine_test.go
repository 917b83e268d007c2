package triage

import (
	"strings"
	"testing"
)

func TestDecide_RedFlagsForceLevel1(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy()
	flags := []string{"SBP < 90", "SpO₂ < 90%"}

	// Probabilities all zero: a red-flag decision must not depend on them.
	probs := Probabilities{"7_day_death": 0, "admission": 0, "lab": 0}

	level, rationale := Decide(probs, flags, pol)
	if level != 1 {
		t.Fatalf("level = %d, want 1", level)
	}
	if len(rationale) != 2 || rationale[0] != "SBP < 90" {
		t.Fatalf("rationale = %v, want the flag list", rationale)
	}

	// Nil probabilities (predictor unavailable) behave the same.
	level, _ = Decide(nil, flags, pol)
	if level != 1 {
		t.Fatalf("level with nil probs = %d, want 1", level)
	}

	// The returned rationale must be a copy, not an alias of the flag slice.
	rationale[0] = "mutated"
	if flags[0] != "SBP < 90" {
		t.Fatal("rationale aliases the caller's flag slice")
	}
}

func TestDecide_RedFlagModeOff(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy()
	pol.RedFlagMode = false

	level, rationale := Decide(Probabilities{"7_day_death": 0.55}, []string{"SBP < 90"}, pol)
	if level != 1 {
		t.Fatalf("level = %d, want 1 from the critical cutoff", level)
	}
	// With the override off the rationale must come from the cascade, not the flags.
	if !strings.Contains(rationale[0], "Critical risk") {
		t.Fatalf("rationale = %v, want critical-cutoff rationale", rationale)
	}

	level, rationale = Decide(Probabilities{"7_day_death": 0.05}, []string{"SBP < 90"}, pol)
	if level != 5 {
		t.Fatalf("level = %d, want 5 when flags are ignored and risks are low", level)
	}
	if rationale[0] != "all risks below cutoffs" {
		t.Fatalf("rationale = %v", rationale)
	}
}

func TestDecide_Cascade(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy() // L1 0.50, L2 0.30, L3 0.40, L4 0.25

	tests := []struct {
		name          string
		probs         Probabilities
		wantLevel     int
		wantRationale string
	}{
		{
			name:          "critical at L1 cutoff",
			probs:         Probabilities{"7_day_death": 0.55},
			wantLevel:     1,
			wantRationale: "Critical risk 55.0% ≥ L1 50%",
		},
		{
			name:          "critical exactly at cutoff",
			probs:         Probabilities{"icu_admission": 0.50},
			wantLevel:     1,
			wantRationale: "Critical risk 50.0% ≥ L1 50%",
		},
		{
			name:          "critical between L2 and L1 beats higher urgent",
			probs:         Probabilities{"7_day_death": 0.35, "admission": 0.45},
			wantLevel:     2,
			wantRationale: "Critical risk 35.0% ≥ L2 30%",
		},
		{
			name:          "urgent resource risk",
			probs:         Probabilities{"7_day_death": 0.10, "consult": 0.42},
			wantLevel:     3,
			wantRationale: "Urgent resource risk 42.0% ≥ L3 40%",
		},
		{
			name:          "minor resource risk",
			probs:         Probabilities{"7_day_death": 0.10, "admission": 0.10, "xray": 0.30},
			wantLevel:     4,
			wantRationale: "Minor resource risk 30.0% ≥ L4 25%",
		},
		{
			name:          "all risks below cutoffs",
			probs:         Probabilities{"7_day_death": 0, "admission": 0, "lab": 0},
			wantLevel:     5,
			wantRationale: "all risks below cutoffs",
		},
		{
			name:          "bucket aggregates by max",
			probs:         Probabilities{"7_day_death": 0.05, "icu_admission": 0.20, "et": 0.52, "or": 0.01},
			wantLevel:     1,
			wantRationale: "Critical risk 52.0% ≥ L1 50%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			level, rationale := Decide(tt.probs, nil, pol)
			if level != tt.wantLevel {
				t.Fatalf("level = %d, want %d", level, tt.wantLevel)
			}
			if len(rationale) == 0 {
				t.Fatal("rationale is empty")
			}
			if rationale[0] != tt.wantRationale {
				t.Fatalf("rationale = %q, want %q", rationale[0], tt.wantRationale)
			}
		})
	}
}

func TestDecide_EmptyBucketSkipped(t *testing.T) {
	t.Parallel()

	// Single-proxy deployment: only one critical outcome is predicted. The
	// urgent and minor checks have no inputs and must be skipped, not treated
	// as zero risk hits.
	pol := Policy{
		Cutoffs:     DefaultPolicy().Cutoffs,
		RedFlags:    DefaultPolicy().RedFlags,
		Buckets:     BucketMapping{"icu_admission": BucketCritical},
		RedFlagMode: true,
	}

	level, rationale := Decide(Probabilities{"icu_admission": 0.10}, nil, pol)
	if level != 5 {
		t.Fatalf("level = %d, want 5", level)
	}
	if rationale[0] != "all risks below cutoffs" {
		t.Fatalf("rationale = %v", rationale)
	}
}

// Raising any probability can only keep the level equal or make it more
// urgent (numerically smaller).
func TestDecide_Monotonic(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy()
	base := Probabilities{
		"7_day_death": 0.20, "icu_admission": 0.10, "et": 0.05, "or": 0.05,
		"admission": 0.25, "inject": 0.15, "consult": 0.10,
		"lab": 0.20, "xray": 0.10,
	}
	baseLevel, _ := Decide(base, nil, pol)

	for name := range base {
		for _, bump := range []float64{0.1, 0.3, 0.6} {
			probs := Probabilities{}
			for k, v := range base {
				probs[k] = v
			}
			if probs[name]+bump > 1 {
				continue
			}
			probs[name] += bump
			level, _ := Decide(probs, nil, pol)
			if level > baseLevel {
				t.Fatalf("raising %s by %.1f moved level %d -> %d (less urgent)",
					name, bump, baseLevel, level)
			}
		}
	}
}

func TestDecide_Idempotent(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy()
	probs := Probabilities{"7_day_death": 0.35, "admission": 0.45, "lab": 0.60}
	flags := []string{"GCS ≤ 8"}

	l1, r1 := Decide(probs, flags, pol)
	for i := 0; i < 10; i++ {
		l2, r2 := Decide(probs, flags, pol)
		if l1 != l2 {
			t.Fatalf("run %d: level %d != %d", i, l2, l1)
		}
		if strings.Join(r1, "|") != strings.Join(r2, "|") {
			t.Fatalf("run %d: rationale %v != %v", i, r2, r1)
		}
	}
}

func TestLevelName(t *testing.T) {
	t.Parallel()

	want := map[int]string{
		1: "Resuscitation",
		2: "Emergent",
		3: "Urgent",
		4: "Less-urgent",
		5: "Non-urgent",
	}
	for level, name := range want {
		if got := LevelName(level); got != name {
			t.Errorf("LevelName(%d) = %q, want %q", level, got, name)
		}
	}
}
