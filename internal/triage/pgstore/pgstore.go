// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/edtriage/internal/patient"
	"github.com/linnemanlabs/edtriage/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/edtriage/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage decisions in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const decisionColumns = `id, session_id, level, level_name, zone, zone_area,
	actions, rationale, red_flags, probabilities, record, warnings, created_at, duration_s`

// Get retrieves a decision by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Decision, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + decisionColumns + ` FROM triage_decisions WHERE id = $1`
	d, err := scanDecision(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if d == nil {
		return nil, false, nil
	}
	return d, true, nil
}

// Put inserts a decision. Decisions are immutable, so a replayed insert for an
// existing ID is a no-op.
func (s *Store) Put(ctx context.Context, d *triage.Decision) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	actions, err := json.Marshal(d.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	rationale, err := json.Marshal(d.Rationale)
	if err != nil {
		return fmt.Errorf("marshal rationale: %w", err)
	}
	redFlags, err := marshalNullable(d.RedFlags)
	if err != nil {
		return fmt.Errorf("marshal red flags: %w", err)
	}
	probs, err := marshalNullable(d.Probabilities)
	if err != nil {
		return fmt.Errorf("marshal probabilities: %w", err)
	}
	record, err := json.Marshal(d.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	warnings, err := marshalNullable(d.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	query := `INSERT INTO triage_decisions (` + decisionColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING`
	_, err = s.pool.Exec(ctx, query,
		d.ID, d.SessionID, d.Level, d.LevelName, d.Zone, d.ZoneArea,
		actions, rationale, redFlags, probs, record, warnings,
		d.CreatedAt, d.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// marshalNullable marshals v, mapping empty slices/maps to SQL NULL.
func marshalNullable(v any) (any, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case triage.Probabilities:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func scanDecision(row pgx.Row) (*triage.Decision, error) {
	var (
		d         triage.Decision
		actions   []byte
		rationale []byte
		redFlags  []byte
		probs     []byte
		record    []byte
		warnings  []byte
		createdAt time.Time
	)
	err := row.Scan(
		&d.ID, &d.SessionID, &d.Level, &d.LevelName, &d.Zone, &d.ZoneArea,
		&actions, &rationale, &redFlags, &probs, &record, &warnings,
		&createdAt, &d.Duration,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan decision: %w", err)
	}
	d.CreatedAt = createdAt

	if err := json.Unmarshal(actions, &d.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	if err := json.Unmarshal(rationale, &d.Rationale); err != nil {
		return nil, fmt.Errorf("unmarshal rationale: %w", err)
	}
	if err := unmarshalNullable(redFlags, &d.RedFlags); err != nil {
		return nil, fmt.Errorf("unmarshal red flags: %w", err)
	}
	if err := unmarshalNullable(probs, &d.Probabilities); err != nil {
		return nil, fmt.Errorf("unmarshal probabilities: %w", err)
	}
	var rec patient.Record
	if err := json.Unmarshal(record, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	d.Record = rec
	if err := unmarshalNullable(warnings, &d.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}

	return &d, nil
}

func unmarshalNullable(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
