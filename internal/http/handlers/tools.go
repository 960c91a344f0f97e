package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/tools"
)

const maxSettingsBytes = 64 << 10

type toolView struct {
	tools.Descriptor
	Presets  []string       `json:"presets"`
	Defaults tools.Settings `json:"defaults,omitempty"`
}

type validateResponse struct {
	Valid  bool                     `json:"valid"`
	Errors []domain.ValidationError `json:"errors"`
}

func (a *App) ListTools(w http.ResponseWriter, r *http.Request) {
	registry := a.Manager.Registry()
	list := registry.List()
	out := make([]toolView, 0, len(list))
	for _, t := range list {
		out = append(out, toolView{Descriptor: t.Descriptor, Presets: registry.Presets(t.Name)})
	}
	a.json(w, http.StatusOK, map[string]any{"tools": out})
}

func (a *App) GetTool(w http.ResponseWriter, r *http.Request) {
	registry := a.Manager.Registry()
	t, err := registry.Lookup(chi.URLParam(r, "tool"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toolView{
		Descriptor: t.Descriptor,
		Presets:    registry.Presets(t.Name),
		Defaults:   t.NewSettings(),
	})
}

// ValidateSettings checks a settings document without uploading anything.
// The body is the settings JSON; ?preset= applies a preset underneath it.
func (a *App) ValidateSettings(w http.ResponseWriter, r *http.Request) {
	registry := a.Manager.Registry()
	t, err := registry.Lookup(chi.URLParam(r, "tool"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBytes))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp := validateResponse{Valid: true, Errors: []domain.ValidationError{}}
	settings, err := registry.Resolve(t, r.URL.Query().Get("preset"), raw)
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		resp.Errors = verrs
	case err != nil:
		a.fail(w, r, err)
		return
	default:
		if errs := settings.Validate(); len(errs) > 0 {
			resp.Errors = errs
		}
	}
	resp.Valid = len(resp.Errors) == 0
	a.json(w, http.StatusOK, resp)
}
