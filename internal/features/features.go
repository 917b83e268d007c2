// Package features implements the frozen numeric preprocessor. The transform
// parameters (per-column standardization and categorical vocabularies) are
// fitted once at training time and exported as a JSON artifact; this package
// only applies them, it never refits.
package features

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/linnemanlabs/edtriage/internal/patient"
	"github.com/linnemanlabs/edtriage/internal/triage"
)

// numericColumn holds the frozen standardization parameters for one column.
type numericColumn struct {
	Name   string  `json:"name"`
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
}

// categoricalColumn holds the fixed vocabulary, in fit order, for one
// one-hot-encoded column.
type categoricalColumn struct {
	Name       string   `json:"name"`
	Vocabulary []string `json:"vocabulary"`
}

type artifact struct {
	Version     string              `json:"version"`
	Numeric     []numericColumn     `json:"numeric"`
	Categorical []categoricalColumn `json:"categorical"`
}

// Transformer applies the frozen numeric transform. The artifact is loaded at
// most once, guarded so concurrent first requests trigger exactly one load
// and share its result.
type Transformer struct {
	path string

	once sync.Once
	art  artifact
	err  error
}

// NewTransformer creates a transformer backed by the given artifact path.
// The artifact is not read until Warmup or the first Transform.
func NewTransformer(path string) *Transformer {
	return &Transformer{path: path}
}

// Warmup loads the artifact eagerly so cold-start cost is paid at startup
// rather than on the first patient.
func (t *Transformer) Warmup() error {
	t.once.Do(t.load)
	if t.err != nil {
		return fmt.Errorf("%w: %v", triage.ErrNotReady, t.err)
	}
	return nil
}

// Version reports the loaded artifact version, or "" before a successful load.
func (t *Transformer) Version() string {
	return t.art.Version
}

func (t *Transformer) load() {
	// #nosec G304 -- path comes from operator-configured artifact flag.
	data, err := os.ReadFile(t.path)
	if err != nil {
		t.err = fmt.Errorf("read artifact: %w", err)
		return
	}
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		t.err = fmt.Errorf("parse artifact: %w", err)
		return
	}
	if len(art.Numeric) == 0 && len(art.Categorical) == 0 {
		t.err = fmt.Errorf("artifact %s declares no columns", t.path)
		return
	}
	for _, c := range art.Numeric {
		if c.Scale == 0 {
			t.err = fmt.Errorf("artifact column %s has zero scale", c.Name)
			return
		}
	}
	for _, c := range art.Categorical {
		if len(c.Vocabulary) == 0 {
			t.err = fmt.Errorf("artifact column %s has an empty vocabulary", c.Name)
			return
		}
	}
	t.art = art
}

// Transform maps a validated patient record onto the canonical numeric
// feature vector: standardized numeric columns in artifact order, then one
// one-hot block per categorical column. Deterministic for a given artifact.
// Fails with triage.ErrNotReady if the artifact could not be loaded, and
// rejects tokens outside the fitted vocabulary.
func (t *Transformer) Transform(rec *patient.Record) ([]float64, error) {
	t.once.Do(t.load)
	if t.err != nil {
		return nil, fmt.Errorf("%w: %v", triage.ErrNotReady, t.err)
	}

	dim := len(t.art.Numeric)
	for _, c := range t.art.Categorical {
		dim += len(c.Vocabulary)
	}
	vec := make([]float64, 0, dim)

	for _, c := range t.art.Numeric {
		raw, err := numericValue(rec, c.Name)
		if err != nil {
			return nil, err
		}
		vec = append(vec, (raw-c.Center)/c.Scale)
	}

	for _, c := range t.art.Categorical {
		token, err := categoricalValue(rec, c.Name)
		if err != nil {
			return nil, err
		}
		hot := -1
		for i, v := range c.Vocabulary {
			if v == token {
				hot = i
				break
			}
		}
		if hot < 0 {
			return nil, &patient.ValidationError{Issues: []string{
				fmt.Sprintf("token %q for %s is outside the fitted vocabulary", token, c.Name),
			}}
		}
		for i := range c.Vocabulary {
			if i == hot {
				vec = append(vec, 1)
			} else {
				vec = append(vec, 0)
			}
		}
	}

	return vec, nil
}

func numericValue(rec *patient.Record, column string) (float64, error) {
	switch column {
	case "age":
		return float64(rec.Age), nil
	case "sbp":
		return float64(rec.Vitals.SBP), nil
	case "dbp":
		return float64(rec.Vitals.DBP), nil
	case "temp":
		return rec.Vitals.Temp, nil
	case "pr":
		return float64(rec.Vitals.Pulse), nil
	case "rr":
		return float64(rec.Vitals.RespRate), nil
	case "o2sat":
		return float64(rec.Vitals.SpO2), nil
	case "gcs_e":
		return float64(rec.Vitals.GCSEye), nil
	case "gcs_v":
		return float64(rec.Vitals.GCSVerb), nil
	case "gcs_m":
		return float64(rec.Vitals.GCSMotor), nil
	default:
		return 0, fmt.Errorf("artifact references unknown numeric column %q", column)
	}
}

func categoricalValue(rec *patient.Record, column string) (string, error) {
	switch column {
	case "sex":
		return string(rec.Sex), nil
	case "how_come_er":
		return string(rec.Arrival), nil
	case "t_n":
		return string(rec.CaseType), nil
	default:
		return "", fmt.Errorf("artifact references unknown categorical column %q", column)
	}
}
