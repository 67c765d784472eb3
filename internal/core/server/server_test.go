package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stateReporter string

func (s stateReporter) Readiness() (bool, string) { return s == "idle", string(s) }

func TestRouter_Endpoints(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "dicer_run_state 0\n")
	})
	ts := httptest.NewServer(Router(Config{
		Logger:  slog.New(slog.DiscardHandler),
		Ready:   stateReporter("clipping"),
		Metrics: metrics,
	}))
	defer ts.Close()

	cases := []struct {
		path string
		code int
		body string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusServiceUnavailable, `"state":"clipping"`},
		{"/metrics", http.StatusOK, "dicer_run_state"},
		{"/query", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		resp, err := http.Get(ts.URL + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != tc.code {
			t.Fatalf("%s: status=%d want %d", tc.path, resp.StatusCode, tc.code)
		}
		if !strings.Contains(string(b), tc.body) {
			t.Fatalf("%s: body=%q want %q", tc.path, b, tc.body)
		}
	}
}

func TestRouter_NoReadinessReporter(t *testing.T) {
	h := Router(Config{Logger: slog.New(slog.DiscardHandler)})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}
