package triage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/edtriage/internal/patient"
)

func validRecord() *patient.Record {
	return &patient.Record{
		Age:      45,
		Sex:      patient.SexMale,
		Arrival:  patient.ArrivalWalkIn,
		CaseType: patient.CaseNonTrauma,
		Vitals: patient.Vitals{
			SBP: 120, DBP: 80, Temp: 36.8, Pulse: 80, RespRate: 16, SpO2: 98,
			GCSEye: 4, GCSVerb: 5, GCSMotor: 6,
		},
		ChiefComplaint: "mild abdominal pain since morning",
	}
}

type fakePre struct {
	calls int
	err   error
}

func (f *fakePre) Transform(*patient.Record) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2}, nil
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return make([]float64, 512), nil
}

type fakePredictor struct {
	calls int
	probs Probabilities
	err   error
}

func (f *fakePredictor) Predict(context.Context, []float64, []float64) (Probabilities, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.probs, nil
}

type fakeStore struct {
	mu     sync.Mutex
	putErr error
	put    []*Decision
	byID   map[string]*Decision
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]*Decision)}
}

func (f *fakeStore) Get(_ context.Context, id string) (*Decision, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	return d, ok, nil
}

func (f *fakeStore) Put(_ context.Context, d *Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.put = append(f.put, d)
	f.byID[d.ID] = d
	return nil
}

type fakeAudit struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeAudit) Append(context.Context, *Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeNotifier struct {
	sent chan *Decision
}

func (f *fakeNotifier) Send(_ context.Context, d *Decision) error {
	f.sent <- d
	return nil
}

func lowRiskProbs() Probabilities {
	return Probabilities{
		"7_day_death": 0.01, "icu_admission": 0.02, "et": 0.01, "or": 0.01,
		"admission": 0.05, "inject": 0.03, "consult": 0.02,
		"lab": 0.10, "xray": 0.05,
	}
}

func TestServiceDecide_FullPipeline(t *testing.T) {
	t.Parallel()

	probs := lowRiskProbs()
	probs["7_day_death"] = 0.55

	store := newFakeStore()
	auditSink := &fakeAudit{}
	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{probs: probs}, store, auditSink, nil,
		DefaultPolicy(), nil, NewMetrics(prometheus.NewRegistry()))

	d, err := svc.Decide(context.Background(), validRecord(), "", DefaultPolicy())
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}

	if d.Level != 1 {
		t.Errorf("Level = %d, want 1", d.Level)
	}
	if d.LevelName != "Resuscitation" {
		t.Errorf("LevelName = %q", d.LevelName)
	}
	if d.Zone != "Blue zone" {
		t.Errorf("Zone = %q", d.Zone)
	}
	if len(d.Actions) == 0 {
		t.Error("Actions empty")
	}
	if len(d.Rationale) == 0 || d.Rationale[0] != "Critical risk 55.0% ≥ L1 50%" {
		t.Errorf("Rationale = %v", d.Rationale)
	}
	if d.ID == "" || d.SessionID == "" {
		t.Error("missing generated IDs")
	}
	if d.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if len(store.put) != 1 {
		t.Fatalf("store puts = %d, want 1", len(store.put))
	}
	if auditSink.calls != 1 {
		t.Fatalf("audit appends = %d, want 1", auditSink.calls)
	}

	// Get round-trips through the store.
	got, ok, err := svc.Get(context.Background(), d.ID)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, %v", got, ok, err)
	}
	if got.Level != d.Level {
		t.Errorf("Get().Level = %d, want %d", got.Level, d.Level)
	}
}

func TestServiceDecide_SessionIDPreserved(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{probs: lowRiskProbs()},
		newFakeStore(), nil, nil, DefaultPolicy(), nil, nil)

	d, err := svc.Decide(context.Background(), validRecord(), "01JSESSION", DefaultPolicy())
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if d.SessionID != "01JSESSION" {
		t.Errorf("SessionID = %q, want the caller's", d.SessionID)
	}
	if d.Level != 5 {
		t.Errorf("Level = %d, want 5 for low risks", d.Level)
	}
}

func TestServiceDecide_ValidationPrecedesOracles(t *testing.T) {
	t.Parallel()

	pre := &fakePre{}
	emb := &fakeEmbedder{}
	prd := &fakePredictor{probs: lowRiskProbs()}
	svc := NewService(pre, emb, prd, newFakeStore(), nil, nil, DefaultPolicy(), nil, nil)

	rec := validRecord()
	rec.Age = 12 // below the fitted range

	_, err := svc.Decide(context.Background(), rec, "", DefaultPolicy())
	var verr *patient.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *patient.ValidationError", err)
	}
	if pre.calls+emb.calls+prd.calls != 0 {
		t.Fatal("oracles consulted for an invalid record")
	}
}

func TestServiceDecide_OracleFailureAborts(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{err: ErrOracleUnavailable},
		newFakeStore(), nil, nil, DefaultPolicy(), nil, nil)

	_, err := svc.Decide(context.Background(), validRecord(), "", DefaultPolicy())
	if !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("error = %v, want ErrOracleUnavailable", err)
	}
}

func TestServiceDecide_RedFlagsSurviveOracleFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(&fakePre{}, &fakeEmbedder{err: ErrOracleUnavailable}, &fakePredictor{},
		store, nil, nil, DefaultPolicy(), nil, nil)

	rec := validRecord()
	rec.Vitals.SBP = 70

	d, err := svc.Decide(context.Background(), rec, "", DefaultPolicy())
	if err != nil {
		t.Fatalf("Decide() error: %v, want red-flag decision despite oracle failure", err)
	}
	if d.Level != 1 {
		t.Errorf("Level = %d, want 1", d.Level)
	}
	if len(d.RedFlags) == 0 || d.RedFlags[0] != "SBP < 90" {
		t.Errorf("RedFlags = %v", d.RedFlags)
	}
	if d.Probabilities != nil {
		t.Errorf("Probabilities = %v, want nil when the predictor was skipped", d.Probabilities)
	}
	if len(d.Warnings) == 0 || !strings.Contains(d.Warnings[0], "probabilities unavailable") {
		t.Errorf("Warnings = %v", d.Warnings)
	}
	if len(store.put) != 1 {
		t.Fatal("red-flag decision was not persisted")
	}
}

func TestServiceDecide_MalformedProbabilitiesRejected(t *testing.T) {
	t.Parallel()

	probs := lowRiskProbs()
	probs["admission"] = 1.5

	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{probs: probs},
		newFakeStore(), nil, nil, DefaultPolicy(), nil, nil)

	_, err := svc.Decide(context.Background(), validRecord(), "", DefaultPolicy())
	if err == nil || !strings.Contains(err.Error(), "not in [0,1]") {
		t.Fatalf("error = %v, want out-of-range probability rejection", err)
	}
}

func TestServiceDecide_UnmappedOutcomeRejected(t *testing.T) {
	t.Parallel()

	probs := lowRiskProbs()
	probs["mri"] = 0.2

	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{probs: probs},
		newFakeStore(), nil, nil, DefaultPolicy(), nil, nil)

	_, err := svc.Decide(context.Background(), validRecord(), "", DefaultPolicy())
	if err == nil || !strings.Contains(err.Error(), "no bucket assignment") {
		t.Fatalf("error = %v, want coverage rejection", err)
	}
}

func TestServiceDecide_SinkFailuresAreNonFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.putErr = errors.New("db down")
	auditSink := &fakeAudit{err: errors.New("disk full")}

	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{probs: lowRiskProbs()},
		store, auditSink, nil, DefaultPolicy(), nil, nil)

	d, err := svc.Decide(context.Background(), validRecord(), "", DefaultPolicy())
	if err != nil {
		t.Fatalf("Decide() error: %v, want decision despite sink failures", err)
	}
	if d.Level != 5 {
		t.Errorf("Level = %d, want 5", d.Level)
	}
}

func TestServiceDecide_NotifiesCriticalLevels(t *testing.T) {
	t.Parallel()

	probs := lowRiskProbs()
	probs["icu_admission"] = 0.60

	n := &fakeNotifier{sent: make(chan *Decision, 1)}
	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{probs: probs},
		newFakeStore(), nil, n, DefaultPolicy(), nil, nil)

	d, err := svc.Decide(context.Background(), validRecord(), "", DefaultPolicy())
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}

	select {
	case sent := <-n.sent:
		if sent.ID != d.ID {
			t.Errorf("notified decision %q, want %q", sent.ID, d.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification for a level-1 decision")
	}
}

func TestServiceDecide_NoNotificationBelowCritical(t *testing.T) {
	t.Parallel()

	n := &fakeNotifier{sent: make(chan *Decision, 1)}
	svc := NewService(&fakePre{}, &fakeEmbedder{}, &fakePredictor{probs: lowRiskProbs()},
		newFakeStore(), nil, n, DefaultPolicy(), nil, nil)

	if _, err := svc.Decide(context.Background(), validRecord(), "", DefaultPolicy()); err != nil {
		t.Fatalf("Decide() error: %v", err)
	}

	select {
	case d := <-n.sent:
		t.Fatalf("unexpected notification for level %d", d.Level)
	case <-time.After(100 * time.Millisecond):
	}
}
