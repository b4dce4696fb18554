package api

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the HTML and JSON views. Rendering is thin plumbing:
// every view is a single service call plus a template execute.
type Handler struct {
	svc       *service.Service
	sessions  *Sessions
	templates *template.Template
}

func NewHandler(svc *service.Service, sessions *Sessions) (*Handler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(unixMilli int64) string {
			return time.UnixMilli(unixMilli).UTC().Format("2006-01-02")
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{svc: svc, sessions: sessions, templates: tmpl}, nil
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("render template", "template", name, "err", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
	h.render(w, "error.html", map[string]any{"Status": status, "Text": http.StatusText(status)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

// requestView is the JSON shape with enums rendered as names; the
// stored integer encodings stay an implementation detail.
type requestView struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RequesterID int64  `json:"requester_id"`
	PackagerID  int64  `json:"packager_id"`
	Created     string `json:"pub_date"`
	Note        string `json:"note,omitempty"`
}

func toRequestView(r models.Request) requestView {
	return requestView{
		ID:          r.ID,
		Type:        r.Type.String(),
		Status:      r.Status.String(),
		Name:        r.Name,
		Description: r.Description,
		RequesterID: r.RequesterID,
		PackagerID:  r.PackagerID,
		Created:     time.UnixMilli(r.Created).UTC().Format(time.RFC3339),
		Note:        r.Note,
	}
}

// index shows the open requests.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	open, err := h.svc.OpenRequests(r.Context())
	if err != nil {
		logger.Error("list open requests", "err", err)
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	h.render(w, "index.html", map[string]any{"Requests": open})
}

// requestsHTML shows every request regardless of status.
func (h *Handler) requestsHTML(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Requests(r.Context())
	if err != nil {
		logger.Error("list requests", "err", err)
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	h.render(w, "requests.html", map[string]any{"Requests": all})
}

func (h *Handler) requestsJSON(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Requests(r.Context())
	if err != nil {
		logger.Error("list requests", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	views := make([]requestView, 0, len(all))
	for _, req := range all {
		views = append(views, toRequestView(req))
	}

	h.writeJSON(w, views)
}

type detailView struct {
	requestView
	Requester models.User `json:"requester"`
	Packager  models.User `json:"packager"`
}

func (h *Handler) requestJSON(w http.ResponseWriter, r *http.Request) {
	detail, status := h.detailByVar(r)
	if detail == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}

	h.writeJSON(w, detailView{
		requestView: toRequestView(detail.Request),
		Requester:   detail.Requester,
		Packager:    detail.Packager,
	})
}

func (h *Handler) detailHTML(w http.ResponseWriter, r *http.Request) {
	detail, status := h.detailByVar(r)
	if detail == nil {
		h.renderError(w, status)
		return
	}

	h.render(w, "detail.html", map[string]any{"Detail": detail})
}

func (h *Handler) detailByVar(r *http.Request) (*service.RequestDetail, int) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return nil, http.StatusNotFound
	}

	detail, err := h.svc.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, http.StatusNotFound
		}
		logger.Error("request detail", "id", id, "err", err)
		return nil, http.StatusInternalServerError
	}

	return detail, http.StatusOK
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, http.StatusNotFound)
}
