package server

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/abelbrown/newslens/internal/logging"
)

func TestRequestLoggerUsesHTTPPrefix(t *testing.T) {
	var buf bytes.Buffer
	if err := logging.Init(logging.Options{Level: "info", Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	defer func() { logging.Logger = nil }()

	s := newTestServer(t, byKind)
	w := s.do("GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	line := buf.String()
	for _, want := range []string{"http", "Request", "/health", "200"} {
		if !strings.Contains(line, want) {
			t.Errorf("request log %q should contain %q", line, want)
		}
	}
}
