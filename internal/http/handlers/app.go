package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/middleware"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/workflow"
)

const (
	defaultMaxUploadBytes = 100 << 20
	defaultPingInterval   = 30 * time.Second
)

type App struct {
	Manager *workflow.Manager
	Logger  zerolog.Logger
	// MaxUploadBytes caps the multipart body of run requests.
	MaxUploadBytes int64
	// AllowedOrigins gates websocket upgrades; "*" allows any origin.
	AllowedOrigins []string
	PingInterval   time.Duration
}

func NewApp(manager *workflow.Manager, logger zerolog.Logger, maxUploadBytes int64, allowedOrigins []string) *App {
	return &App{
		Manager:        manager,
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
		AllowedOrigins: allowedOrigins,
	}
}

type errorResponse struct {
	Error   string                   `json:"error"`
	Message string                   `json:"message"`
	Details []domain.ValidationError `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error renders code with the localized message of the request.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code string) {
	a.json(w, status, errorResponse{
		Error:   code,
		Message: message(middleware.LocaleFromContext(r.Context()), code),
	})
}

// fail maps domain errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verrs domain.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verrs):
		a.json(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   codeValidation,
			Message: message(middleware.LocaleFromContext(r.Context()), codeValidation),
			Details: verrs,
		})
	case errors.As(err, &tooLarge):
		a.error(w, r, http.StatusRequestEntityTooLarge, codeTooLarge)
	case errors.Is(err, domain.ErrUnknownTool):
		a.error(w, r, http.StatusNotFound, codeUnknownTool)
	case errors.Is(err, domain.ErrUnknownPreset):
		a.error(w, r, http.StatusUnprocessableEntity, codeUnknownPreset)
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, codeNotFound)
	case errors.Is(err, domain.ErrRunBusy):
		a.error(w, r, http.StatusConflict, codeRunBusy)
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, r, http.StatusConflict, codeInvalidTransition)
	default:
		a.Logger.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("handler failed")
		a.error(w, r, http.StatusInternalServerError, codeInternal)
	}
}

func (a *App) maxUploadBytes() int64 {
	if a.MaxUploadBytes > 0 {
		return a.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func (a *App) pingInterval() time.Duration {
	if a.PingInterval > 0 {
		return a.PingInterval
	}
	return defaultPingInterval
}
