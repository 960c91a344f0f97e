package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/events"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/workflow"
)

const multipartMemory = 32 << 20

var errNotMultipart = errors.New("handlers: expected multipart/form-data body")

type eventsResponse struct {
	RunID  string         `json:"run_id"`
	Events []events.Event `json:"events"`
	Next   int64          `json:"next"`
}

// CreateRun uploads the `file` parts in order and starts a new run of the tool.
func (a *App) CreateRun(w http.ResponseWriter, r *http.Request) {
	req, err := a.readRunRequest(w, r)
	if err != nil {
		a.readFailed(w, r, err)
		return
	}
	req.Tool = chi.URLParam(r, "tool")

	snap, err := a.Manager.Create(req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/runs/"+snap.ID)
	a.json(w, http.StatusAccepted, snap)
}

func (a *App) GetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, snap)
}

// StartRun restarts an idle run with a fresh upload.
func (a *App) StartRun(w http.ResponseWriter, r *http.Request) {
	req, err := a.readRunRequest(w, r)
	if err != nil {
		a.readFailed(w, r, err)
		return
	}
	snap, err := a.Manager.Start(chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, snap)
}

func (a *App) ResetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Manager.Reset(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, snap)
}

// RunEvents returns buffered events after ?since=N so pollers can resume.
func (a *App) RunEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	since, err := parseSince(r)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, codeBadRequest)
		return
	}
	list, err := a.Manager.Events(id, since)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	next := since
	if len(list) > 0 {
		next = list[len(list)-1].Seq
	}
	if list == nil {
		list = []events.Event{}
	}
	a.json(w, http.StatusOK, eventsResponse{RunID: id, Events: list, Next: next})
}

func parseSince(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("handlers: invalid since %q", raw)
	}
	return v, nil
}

func (a *App) readFailed(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		a.fail(w, r, err)
		return
	}
	a.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("unreadable run request")
	a.error(w, r, http.StatusBadRequest, codeBadRequest)
}

// readRunRequest parses the multipart body: ordered `file` parts plus optional
// `settings` JSON and `preset` fields.
func (a *App) readRunRequest(w http.ResponseWriter, r *http.Request) (workflow.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return workflow.Request{}, errNotMultipart
		}
		return workflow.Request{}, err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := workflow.Request{
		Preset:   r.FormValue("preset"),
		Settings: []byte(r.FormValue("settings")),
	}
	for _, fh := range r.MultipartForm.File["file"] {
		file, err := readPart(fh)
		if err != nil {
			return workflow.Request{}, err
		}
		req.Files = append(req.Files, file)
	}
	return req, nil
}

func readPart(fh *multipart.FileHeader) (domain.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("handlers: open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("handlers: read %s: %w", fh.Filename, err)
	}
	return domain.UploadFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
