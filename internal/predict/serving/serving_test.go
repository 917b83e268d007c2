package serving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/linnemanlabs/edtriage/internal/triage"
)

func TestPredict(t *testing.T) {
	t.Parallel()

	var gotReq predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(predictResponse{Probabilities: map[string]float64{
			"7_day_death": 0.12,
			"admission":   0.40,
		}})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, time.Second)
	numeric := []float64{1.0, -0.5}
	text := []float64{0.1, 0.2, 0.3}

	probs, err := c.Predict(context.Background(), numeric, text)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if !reflect.DeepEqual(gotReq.Numeric, numeric) || !reflect.DeepEqual(gotReq.Text, text) {
		t.Fatalf("server saw %+v", gotReq)
	}
	want := triage.Probabilities{"7_day_death": 0.12, "admission": 0.40}
	if !reflect.DeepEqual(probs, want) {
		t.Fatalf("Predict = %v, want %v", probs, want)
	}
}

func TestPredict_EmptyResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResponse{})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, time.Second)
	_, err := c.Predict(context.Background(), []float64{1}, []float64{2})
	if !errors.Is(err, triage.ErrOracleUnavailable) {
		t.Fatalf("Predict = %v, want ErrOracleUnavailable", err)
	}
}

func TestPredict_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, time.Second)
	_, err := c.Predict(context.Background(), []float64{1}, []float64{2})
	if !errors.Is(err, triage.ErrOracleUnavailable) {
		t.Fatalf("Predict = %v, want ErrOracleUnavailable", err)
	}
}

func TestPredict_Unreachable(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.Predict(context.Background(), []float64{1}, []float64{2})
	if !errors.Is(err, triage.ErrOracleUnavailable) {
		t.Fatalf("Predict = %v, want ErrOracleUnavailable", err)
	}
}
