// Package patient defines the immutable per-encounter patient record and its
// fail-fast validation. A record is created once per triage request and never
// mutated; every range and vocabulary here matches what the frozen model
// artifacts were fitted on.
package patient

import (
	"fmt"
	"strings"
)

// ArrivalMode is how the patient reached the ED. The tokens are the raw
// values the numeric preprocessor was fitted on.
type ArrivalMode string

const (
	ArrivalWalkIn   ArrivalMode = "Walkin"
	ArrivalEMS      ArrivalMode = "EMS"
	ArrivalReferral ArrivalMode = "Referral"
)

// CaseType distinguishes trauma from non-trauma presentations.
type CaseType string

const (
	CaseTrauma    CaseType = "T"
	CaseNonTrauma CaseType = "N"
)

// Sex uses the raw tokens from the training data.
type Sex string

const (
	SexMale   Sex = "ช"
	SexFemale Sex = "ญ"
)

// Vitals holds the vital signs measured at the front door.
type Vitals struct {
	SBP      int     `json:"sbp"`    // systolic blood pressure, mmHg
	DBP      int     `json:"dbp"`    // diastolic blood pressure, mmHg
	Temp     float64 `json:"temp"`   // body temperature, °C
	Pulse    int     `json:"pr"`     // pulse rate, /min
	RespRate int     `json:"rr"`     // respiratory rate, /min
	SpO2     int     `json:"o2sat"`  // oxygen saturation, %
	GCSEye   int     `json:"gcs_e"`  // Glasgow Coma Scale: eye, 1-4
	GCSVerb  int     `json:"gcs_v"`  // Glasgow Coma Scale: verbal, 1-5
	GCSMotor int     `json:"gcs_m"`  // Glasgow Coma Scale: motor, 1-6
}

// GCSTotal is the summed Glasgow Coma Scale (3-15).
func (v Vitals) GCSTotal() int {
	return v.GCSEye + v.GCSVerb + v.GCSMotor
}

// Record is one patient encounter as submitted for triage.
type Record struct {
	Age            int         `json:"age"`
	Sex            Sex         `json:"sex"`
	Arrival        ArrivalMode `json:"arrival"`
	CaseType       CaseType    `json:"case_type"`
	Vitals         Vitals      `json:"vitals"`
	ChiefComplaint string      `json:"chief_complaint"` // free text, may be empty
}

// ValidationError reports every out-of-range or out-of-vocabulary field in a
// submitted record. It is user-correctable: the caller fixes the input and
// resubmits.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid patient record: " + strings.Join(e.Issues, "; ")
}

type rangeCheck struct {
	name     string
	value    float64
	min, max float64
}

// Validate checks every field against the ranges and vocabularies the model
// was trained on. It returns a *ValidationError listing all problems, or nil.
// Validation must pass before any model oracle is consulted.
func (r *Record) Validate() error {
	var issues []string

	checks := []rangeCheck{
		{"age", float64(r.Age), 18, 110},
		{"sbp", float64(r.Vitals.SBP), 40, 300},
		{"dbp", float64(r.Vitals.DBP), 20, 200},
		{"temp", r.Vitals.Temp, 30.0, 43.0},
		{"pr", float64(r.Vitals.Pulse), 20, 220},
		{"rr", float64(r.Vitals.RespRate), 6, 80},
		{"o2sat", float64(r.Vitals.SpO2), 50, 100},
		{"gcs_e", float64(r.Vitals.GCSEye), 1, 4},
		{"gcs_v", float64(r.Vitals.GCSVerb), 1, 5},
		{"gcs_m", float64(r.Vitals.GCSMotor), 1, 6},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			issues = append(issues, fmt.Sprintf("%s %v out of range %v..%v", c.name, c.value, c.min, c.max))
		}
	}

	switch r.Sex {
	case SexMale, SexFemale:
	default:
		issues = append(issues, fmt.Sprintf("unknown sex token %q", r.Sex))
	}
	switch r.Arrival {
	case ArrivalWalkIn, ArrivalEMS, ArrivalReferral:
	default:
		issues = append(issues, fmt.Sprintf("unknown arrival mode %q", r.Arrival))
	}
	switch r.CaseType {
	case CaseTrauma, CaseNonTrauma:
	default:
		issues = append(issues, fmt.Sprintf("unknown case type %q", r.CaseType))
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
