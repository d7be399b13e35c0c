package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}

	body := strings.TrimSpace(recorder.Body.String())
	if body != "Teapot" {
		t.Fatalf("expected body 'Teapot', got %q", body)
	}
	if got := recorder.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", got)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Default()
	originalOutput := logger.Writer()
	logger.SetOutput(&buf)
	defer logger.SetOutput(originalOutput)

	recorder := httptest.NewRecorder()
	err := errors.New("boom")

	respondWithError(recorder, 500, ErrInternalServerError, "", err)
	respondWithError(recorder, 500, ErrInternalServerError, "Error starting cloze session", errors.New("pool gone"))

	logOutput := buf.String()
	for _, want := range []string{"Internal server error (status 500): boom", "Error starting cloze session (status 500): pool gone"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("expected log to include %q, got %q", want, logOutput)
		}
	}
	if strings.Contains(recorder.Body.String(), "boom") {
		t.Error("error detail leaked into the response body")
	}
}
