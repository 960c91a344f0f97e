package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

func TestMessageFallback(t *testing.T) {
	tests := []struct {
		locale string
		code   string
		want   string
	}{
		{locale: "id", code: codeNotFound, want: "Proses tidak ditemukan."},
		{locale: "en", code: codeNotFound, want: "Run not found."},
		{locale: "fr", code: codeRunBusy, want: "The run is still processing."},
		{locale: "en", code: "teapot", want: "teapot"},
	}
	for _, tc := range tests {
		if got := message(tc.locale, tc.code); got != tc.want {
			t.Fatalf("message(%q, %q) = %q, want %q", tc.locale, tc.code, got, tc.want)
		}
	}
}

func TestFailStatusMapping(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: domain.ValidationErrors{{Field: "files", Message: "is empty"}}, want: http.StatusUnprocessableEntity},
		{name: "unknown tool", err: fmt.Errorf("%w: %q", domain.ErrUnknownTool, "x"), want: http.StatusNotFound},
		{name: "unknown preset", err: fmt.Errorf("%w: a/b", domain.ErrUnknownPreset), want: http.StatusUnprocessableEntity},
		{name: "missing run", err: fmt.Errorf("run x: %w", domain.ErrNotFound), want: http.StatusNotFound},
		{name: "busy", err: domain.ErrRunBusy, want: http.StatusConflict},
		{name: "terminal", err: fmt.Errorf("%w: completed", domain.ErrInvalidTransition), want: http.StatusConflict},
		{name: "too large", err: &http.MaxBytesError{Limit: 10}, want: http.StatusRequestEntityTooLarge},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	app := &App{AllowedOrigins: []string{"https://app.example"}}
	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "http://example.com", want: true},
		{origin: "https://app.example", want: true},
		{origin: "https://evil.example", want: false},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/v1/runs/x/ws", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := app.checkOrigin(req); got != tc.want {
			t.Fatalf("checkOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}
