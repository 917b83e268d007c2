package triage

import (
	"fmt"

	"github.com/linnemanlabs/edtriage/internal/patient"
)

// EvaluateRedFlags checks the vitals against the safety thresholds and returns
// the triggered flag descriptions. Pure function; the check order is fixed and
// the returned strings feed the decision rationale verbatim.
func EvaluateRedFlags(v patient.Vitals, t RedFlagThresholds) []string {
	var flags []string
	if v.SBP < t.SBPLow {
		flags = append(flags, fmt.Sprintf("SBP < %d", t.SBPLow))
	}
	if v.SpO2 < t.SpO2Low {
		flags = append(flags, fmt.Sprintf("SpO₂ < %d%%", t.SpO2Low))
	}
	if v.RespRate > t.RRHigh {
		flags = append(flags, fmt.Sprintf("RR > %d", t.RRHigh))
	}
	if v.Temp >= t.TempHigh {
		flags = append(flags, fmt.Sprintf("Temp ≥ %.1f°C", t.TempHigh))
	}
	if v.GCSTotal() <= t.GCSLow {
		flags = append(flags, fmt.Sprintf("GCS ≤ %d", t.GCSLow))
	}
	return flags
}
