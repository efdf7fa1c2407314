package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/platform/config"
)

const skillYAML = `
id: go-basics
name: Go Basics
stages:
  - id: intro
    title: Intro
    duration_minutes: 10
    quiz:
      - {id: q1, prompt: "One?", options: [a, b], correct_option: 1}
      - {id: q2, prompt: "Two?", options: [a, b], correct_option: 0}
`

func TestSetup_MemoryBackends(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "go-basics.yaml"), []byte(skillYAML), 0o644)

	cfg := &config.Config{
		CatalogPath: dir,
		Progress:    config.ProgressConfig{Backend: config.BackendMemory, VideoWeight: 0.7, QuizWeight: 0.3},
		Quiz:        config.QuizConfig{PassThreshold: 2},
		Streak:      config.StreakConfig{Backend: config.BackendMemory, MilestoneInterval: 7, Timezone: "UTC"},
		Notify:      config.NotifyConfig{Backend: config.BackendLog, Language: "en"},
	}

	handler, cleanup, err := setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer cleanup()

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"healthz returns 200", "/healthz", http.StatusOK},
		{"readyz returns 200", "/readyz", http.StatusOK},
		{"overview returns 200", "/v1/learners/l1/skills/go-basics", http.StatusOK},
		{"unknown skill returns 404", "/v1/learners/l1/skills/rust", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantDebug bool
		wantJSON  bool
	}{
		{"default json info", config.LogConfig{Level: "info", Format: "json"}, false, true},
		{"text debug", config.LogConfig{Level: "DEBUG", Format: "text"}, true, false},
		{"unknown level", config.LogConfig{Level: "loud"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.cfg)

			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			logger.Info("hello")
			if got := strings.HasPrefix(buf.String(), "{"); got != tt.wantJSON {
				t.Errorf("json output = %v, want %v (%q)", got, tt.wantJSON, buf.String())
			}
		})
	}
}
