package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusConflict, "busy")

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "busy" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSendSSEEvent(t *testing.T) {
	resp := httptest.NewRecorder()
	SetupSSEHeaders(resp)

	if err := SendSSEEvent(resp, resp, "sample", map[string]string{"label": "happy"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	want := "event: sample\ndata: {\"label\":\"happy\"}\n\n"
	if resp.Body.String() != want {
		t.Fatalf("unexpected frame %q", resp.Body.String())
	}
	if resp.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("expected event-stream content type")
	}
	if !resp.Flushed {
		t.Fatalf("expected flush")
	}
}
