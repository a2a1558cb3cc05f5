package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	h := Logger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if line["method"] != "GET" || line["path"] != "/v1/healthz" {
		t.Fatalf("line = %v", line)
	}
	if line["status"] != float64(http.StatusTeapot) {
		t.Fatalf("status = %v", line["status"])
	}
	if line["bytes"] != float64(len("short and stout")) {
		t.Fatalf("bytes = %v", line["bytes"])
	}
	if line["ip"] != "198.51.100.7" {
		t.Fatalf("ip = %v", line["ip"])
	}
}
