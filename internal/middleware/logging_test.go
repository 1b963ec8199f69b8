package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestLoggerRecordsStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("court-bouillon"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["bytes"] != float64(len("court-bouillon")) {
		t.Errorf("bytes = %v", entry["bytes"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for a 4xx", entry["level"])
	}
	if entry["path"] != "/api/health" {
		t.Errorf("path = %v", entry["path"])
	}
}

func TestRequestLoggerServerErrorLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR for a 5xx", entry["level"])
	}
}
