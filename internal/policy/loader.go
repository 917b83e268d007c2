// Package policy loads the deployment triage policy (outcome bucket mapping,
// default cutoffs, red-flag thresholds) from a YAML file.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/edtriage/internal/triage"
)

// Load reads and validates a triage policy file. Configuration errors are
// rejected here, at load time, never deferred to decision time.
func Load(path string) (triage.Policy, error) {
	// #nosec G304 -- path comes from operator-configured policy-file flag.
	data, err := os.ReadFile(path)
	if err != nil {
		return triage.Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	var p triage.Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return triage.Policy{}, fmt.Errorf("parse policy file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return triage.Policy{}, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return p, nil
}
