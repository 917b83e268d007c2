package triage

import "context"

// Store is the persistence interface for triage decisions. Writes are
// best-effort from the caller's point of view: a failed Put never invalidates
// the decision already computed.
type Store interface {
	Get(ctx context.Context, id string) (*Decision, bool, error)
	Put(ctx context.Context, d *Decision) error
}

// AuditSink appends one row per decision to an external append-only log.
// Failures are reported but never fatal to the decision.
type AuditSink interface {
	Append(ctx context.Context, d *Decision) error
}

// Notifier delivers high-urgency decisions to an external channel (e.g. the
// resuscitation team webhook). Best effort.
type Notifier interface {
	Send(ctx context.Context, d *Decision) error
}
