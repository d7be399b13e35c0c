package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOutcome(t *testing.T) {
	if got := Outcome(true); got != "timed_out" {
		t.Errorf("Outcome(true) = %q", got)
	}
	if got := Outcome(false); got != "in_time" {
		t.Errorf("Outcome(false) = %q", got)
	}
}

func TestHandlerExposesTrainerMetrics(t *testing.T) {
	ExercisesStarted.WithLabelValues("p1").Inc()
	RateLimited.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{`fce_exercises_started_total{part="p1"}`, "fce_rate_limited_total", "fce_active_trainees"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
