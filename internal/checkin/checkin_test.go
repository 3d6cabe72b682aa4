package checkin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{
			"complete payload",
			Payload{PrinterUUID: "abc-123", ExternalIP: "1.2.3.4", Status: "idle", LastCheckin: 1700000000},
			false,
		},
		{
			"missing uuid",
			Payload{ExternalIP: "1.2.3.4", Status: "idle", LastCheckin: 1700000000},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.payload)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestBuildPayload(t *testing.T) {
	env := EnvInfo{ExternalIP: "1.2.3.4", PrinterStatus: "idle"}
	p := BuildPayload(env, "abc-123")

	if p.PrinterUUID != "abc-123" {
		t.Errorf("PrinterUUID = %q", p.PrinterUUID)
	}
	if p.ExternalIP != "1.2.3.4" {
		t.Errorf("ExternalIP = %q", p.ExternalIP)
	}
	if p.Status != "idle" {
		t.Errorf("Status = %q", p.Status)
	}
	if p.LastCheckin == 0 {
		t.Error("LastCheckin not stamped")
	}
}

func TestPost(t *testing.T) {
	var received Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(WithBackendURL(srv.URL))
	summary, err := c.Post(Payload{PrinterUUID: "abc", ExternalIP: "1.2.3.4", Status: "idle", LastCheckin: 1700000000})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if received.PrinterUUID != "abc" {
		t.Errorf("backend received %+v", received)
	}
	if !strings.Contains(summary, "200") || !strings.Contains(summary, "ok") {
		t.Errorf("summary = %q", summary)
	}
}

func TestPost_RejectsInvalidPayloadBeforeSending(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	c := NewClient(WithBackendURL(srv.URL))
	if _, err := c.Post(Payload{}); err == nil {
		t.Error("expected validation error")
	}
	if hit {
		t.Error("invalid payload must not reach the backend")
	}
}

func TestGatherer_ExternalIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip": "203.0.113.9"}`))
	}))
	defer srv.Close()

	g := NewGatherer()
	g.IPLookupURL = srv.URL
	if got := g.externalIP(); got != "203.0.113.9" {
		t.Errorf("externalIP = %q", got)
	}
}

func TestPrintTestTicket(t *testing.T) {
	var out strings.Builder
	PrintTestTicket(&out, "abc-123", EnvInfo{ExternalIP: "1.2.3.4", LastCheckin: "2026-01-01T00:00:00Z"})

	got := out.String()
	for _, want := range []string{"TEST TICKET", "abc-123", "1.2.3.4", "2026-01-01T00:00:00Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("ticket missing %q:\n%s", want, got)
		}
	}
}
