package triage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/edtriage/internal/patient"
)

// Service runs one triage decision end to end: validation, red-flag
// evaluation, the model oracles, the decision cascade, and the best-effort
// sinks (store, audit log, notifier).
type Service struct {
	pre      Preprocessor
	embedder Embedder
	pred     Predictor
	store    Store
	audit    AuditSink // nil disables audit logging
	notifier Notifier  // nil disables notifications
	defaults Policy
	logger   log.Logger
	metrics  *Metrics
}

// NewService wires a triage service. audit and notifier may be nil.
func NewService(pre Preprocessor, embedder Embedder, pred Predictor, store Store, audit AuditSink, notifier Notifier, defaults Policy, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		pre:      pre,
		embedder: embedder,
		pred:     pred,
		store:    store,
		audit:    audit,
		notifier: notifier,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}
}

// DefaultPolicy returns the service's default policy snapshot.
func (s *Service) DefaultPolicy() Policy {
	return s.defaults
}

// Get retrieves a stored decision by ID.
func (s *Service) Get(ctx context.Context, id string) (*Decision, bool, error) {
	return s.store.Get(ctx, id)
}

// Decide runs one decision for the given record under the given policy
// snapshot. pol must already be validated; sessionID may be empty, in which
// case one is generated.
//
// Red flags are evaluated before the predictor is consulted. When red-flag
// mode is on and at least one vital breaches its threshold, the decision is
// level 1 even if the predictor is unavailable; its probabilities are then
// attached best-effort. In every other branch an oracle failure aborts the
// decision, so a missing model signal is never presented as low risk.
func (s *Service) Decide(ctx context.Context, rec *patient.Record, sessionID string, pol Policy) (*Decision, error) {
	start := time.Now()

	if err := rec.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.ValidationRejects.Inc()
		}
		return nil, err
	}

	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	flags := EvaluateRedFlags(rec.Vitals, pol.RedFlags)
	forced := pol.RedFlagMode && len(flags) > 0

	var warnings []string
	probs, err := s.predict(ctx, rec, pol)
	if err != nil {
		if !forced {
			return nil, err
		}
		// Red flags alone decide; record that the predictor was skipped.
		s.logger.Warn(ctx, "predictor unavailable on red-flag decision", "error", err)
		warnings = append(warnings, fmt.Sprintf("outcome probabilities unavailable: %v", err))
		probs = nil
	}

	level, rationale := Decide(probs, flags, pol)
	zone, _ := ZoneForLevel(level)

	d := &Decision{
		ID:            ulid.Make().String(),
		SessionID:     sessionID,
		Level:         level,
		LevelName:     LevelName(level),
		Zone:          zone.Name,
		ZoneArea:      zone.Area,
		Actions:       ActionsForLevel(level),
		Rationale:     rationale,
		RedFlags:      flags,
		Probabilities: probs,
		Record:        *rec,
		Warnings:      warnings,
		CreatedAt:     time.Now(),
	}
	d.Duration = time.Since(start).Seconds()

	s.persist(ctx, d)
	s.observe(d, flags, pol)

	if s.notifier != nil && level <= 2 {
		// Fire-and-forget so a slow webhook never delays the decision.
		go func(d *Decision) {
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := s.notifier.Send(nctx, d); err != nil {
				s.logger.Warn(nctx, "notification failed", "decision_id", d.ID, "error", err)
			}
		}(d)
	}

	s.logger.Info(ctx, "triage decision",
		"decision_id", d.ID,
		"session_id", d.SessionID,
		"level", d.Level,
		"zone", d.Zone,
		"red_flags", len(flags),
		"duration", d.Duration,
	)

	return d, nil
}

// predict runs the full oracle pipeline: numeric transform, text embedding,
// outcome prediction, and probability validation against the policy's bucket
// mapping.
func (s *Service) predict(ctx context.Context, rec *patient.Record, pol Policy) (Probabilities, error) {
	numeric, err := observeOracle(s, "preprocess", func() ([]float64, error) {
		return s.pre.Transform(rec)
	})
	if err != nil {
		return nil, fmt.Errorf("numeric transform: %w", err)
	}

	text, err := observeOracle(s, "embed", func() ([]float64, error) {
		return s.embedder.Embed(ctx, rec.ChiefComplaint)
	})
	if err != nil {
		return nil, fmt.Errorf("text embedding: %w", err)
	}

	probs, err := observeOracle(s, "predict", func() (Probabilities, error) {
		return s.pred.Predict(ctx, numeric, text)
	})
	if err != nil {
		return nil, fmt.Errorf("outcome prediction: %w", err)
	}

	if err := validateProbabilities(probs); err != nil {
		return nil, fmt.Errorf("predictor output: %w", err)
	}
	if err := pol.Buckets.CheckCoverage(probs); err != nil {
		return nil, fmt.Errorf("predictor output: %w", err)
	}
	return probs, nil
}

// observeOracle times an oracle call and feeds the per-oracle metrics.
func observeOracle[T any](s *Service, oracle string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.OracleCalls.WithLabelValues(oracle, status).Inc()
		s.metrics.OracleDuration.WithLabelValues(oracle).Observe(time.Since(start).Seconds())
	}
	return out, err
}

func (s *Service) persist(ctx context.Context, d *Decision) {
	if s.store != nil {
		if err := s.store.Put(ctx, d); err != nil {
			s.logger.Error(ctx, err, "failed to persist decision", "decision_id", d.ID)
			if s.metrics != nil {
				s.metrics.StoreFailures.Inc()
			}
		}
	}
	if s.audit != nil {
		if err := s.audit.Append(ctx, d); err != nil {
			s.logger.Warn(ctx, "audit log append failed", "decision_id", d.ID, "error", err)
			if s.metrics != nil {
				s.metrics.AuditFailures.Inc()
			}
		}
	}
}

func (s *Service) observe(d *Decision, flags []string, pol Policy) {
	if s.metrics == nil {
		return
	}
	s.metrics.DecisionsTotal.WithLabelValues(fmt.Sprint(d.Level)).Inc()
	s.metrics.DecisionDuration.Observe(d.Duration)
	if pol.RedFlagMode {
		for _, f := range flags {
			s.metrics.RedFlagsTotal.WithLabelValues(f).Inc()
		}
	}
}

// validateProbabilities rejects non-finite or out-of-range values so a
// malformed model response never reaches the cascade.
func validateProbabilities(p Probabilities) error {
	if len(p) == 0 {
		return errors.New("empty probability map")
	}
	var errs []error
	for name, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("outcome %q probability %v not in [0,1]", name, v))
		}
	}
	return errors.Join(errs...)
}
