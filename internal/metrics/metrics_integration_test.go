package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/grid-dicer/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") && !strings.HasPrefix(ln, metric+" ") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_PipelineMetrics_CustomRegistry_Smoke(t *testing.T) {
	p, err := Init(Config{Build: BuildInfo{Version: "test"}})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	observability.ObserveRecord("processed", 0.003)
	observability.ObserveRecord("duplicate", 0)
	observability.AddFragments(2)
	observability.ObserveSinkOp("kafka", nil)
	observability.SetRunState(0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()

	assertHasMetricLine(t, body, "dicer_records_total", `outcome="processed"`)
	assertHasMetricLine(t, body, "dicer_records_total", `outcome="duplicate"`)
	assertHasMetricLine(t, body, "dicer_fragments_total")
	assertHasMetricLine(t, body, "dicer_sink_ops_total", `sink="kafka"`, `result="ok"`)
	assertHasMetricLine(t, body, "dicer_run_state")
	assertHasMetricLine(t, body, "dicer_record_seconds_count")
}
