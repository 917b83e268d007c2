// Package triage is the business boundary of the ED front-door triage engine.
// It defines the immutable per-request Policy (cutoffs, red-flag thresholds,
// bucket mapping), the red-flag rule evaluator, the priority-ordered decision
// cascade, the zone/action resolver, the model oracle contracts, the Service
// that orchestrates one decision end to end, and the Store interface.
package triage
