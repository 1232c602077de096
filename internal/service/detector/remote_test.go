package detector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
)

func newSidecar(t *testing.T, ready bool, classify func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ready": ready, "model": "test"})
	})
	if classify != nil {
		mux.HandleFunc("POST /classify", classify)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteInitializeUnconfigured(t *testing.T) {
	backend := NewPrimary("", nil, 0)
	if err := backend.Initialize(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRemoteInitializeNotReady(t *testing.T) {
	srv := newSidecar(t, false, nil)
	backend := NewPrimary(srv.URL, srv.Client(), 0)
	if err := backend.Initialize(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRemoteSampleBeforeInitialize(t *testing.T) {
	backend := NewPrimary("http://127.0.0.1:0", nil, 0)
	_, err := backend.Sample(context.Background(), emotion.Frame{Data: []byte{1}})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestRemotePrimaryClassify(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := newSidecar(t, true, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"expressions": map[string]float64{"happy": 0.9, "sad": 0.1},
		})
	})

	backend := NewPrimary(srv.URL+"/", srv.Client(), 0)
	if err := backend.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// idempotent
	if err := backend.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}

	raw, err := backend.Sample(context.Background(), emotion.Frame{Data: []byte("jpeg")})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if raw["happy"] != 0.9 {
		t.Fatalf("expected happy 0.9, got %v", raw)
	}
	if gotType != defaultFrameMIME {
		t.Fatalf("expected content type %s, got %s", defaultFrameMIME, gotType)
	}
	if string(gotBody) != "jpeg" {
		t.Fatalf("expected frame bytes forwarded, got %q", gotBody)
	}
}

func TestRemoteSecondaryScalesPercentages(t *testing.T) {
	srv := newSidecar(t, true, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"emotion": map[string]float64{"fear": 80, "neutral": 20},
		})
	})

	backend := NewSecondary(srv.URL, srv.Client(), 0)
	if err := backend.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	raw, err := backend.Sample(context.Background(), emotion.Frame{Data: []byte{1}, MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if raw["fear"] != 0.8 {
		t.Fatalf("expected fear 0.8, got %v", raw)
	}
}

func TestRemoteSampleErrors(t *testing.T) {
	srv := newSidecar(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"expressions":{}}`))
	})

	backend := NewPrimary(srv.URL, srv.Client(), 0)
	if err := backend.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := backend.Sample(context.Background(), emotion.Frame{}); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
	if _, err := backend.Sample(context.Background(), emotion.Frame{Data: []byte{1}}); !errors.Is(err, ErrNoFace) {
		t.Fatalf("expected ErrNoFace, got %v", err)
	}
}

func TestRemoteSampleServerError(t *testing.T) {
	srv := newSidecar(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model crashed"}`))
	})

	backend := NewPrimary(srv.URL, srv.Client(), 0)
	if err := backend.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := backend.Sample(context.Background(), emotion.Frame{Data: []byte{1}}); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}
