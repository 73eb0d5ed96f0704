package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/furkanugurlu/location-dashboard/internal/dashboard"
	"github.com/furkanugurlu/location-dashboard/internal/health"
	"github.com/furkanugurlu/location-dashboard/internal/models"
	"github.com/furkanugurlu/location-dashboard/internal/pagination"
	apperrors "github.com/furkanugurlu/location-dashboard/pkg/errors"

	"github.com/go-chi/chi/v5"
)

type StatusSource interface {
	Status() health.Status
}

type Server struct {
	svc    *dashboard.Service
	status StatusSource
	ws     http.Handler
}

func NewServer(svc *dashboard.Service, status StatusSource, ws http.Handler) *Server {
	return &Server{svc: svc, status: status, ws: ws}
}

// Guards are applied to groups of routes; nil entries are skipped.
type Guards struct {
	Read   []func(http.Handler) http.Handler
	Delete []func(http.Handler) http.Handler
}

func (s *Server) RegisterRoutes(r chi.Router, g Guards) {
	r.Get("/health", s.handleHealth)
	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}

	r.Route("/api", func(r chi.Router) {
		use(r, g.Read)
		r.Get("/state", s.handleState)
		r.Put("/state/device", s.handleSelectDevice)
		r.Get("/status", s.handleStatus)

		r.Get("/records", s.handleRecordsList)
		r.Get("/records/{id}", s.handleRecordGet)
		r.Get("/devices", s.handleDevicesList)
		r.Get("/devices/{deviceID}", s.handleDeviceGet)

		r.Group(func(r chi.Router) {
			use(r, g.Delete)
			r.Delete("/records", s.handleRecordsDeleteAll)
			r.Delete("/records/{id}", s.handleRecordDelete)
		})
	})
}

func use(r chi.Router, mws []func(http.Handler) http.Handler) {
	for _, mw := range mws {
		if mw != nil {
			r.Use(mw)
		}
	}
}

type devicesResponse struct {
	Devices []models.DeviceGroup `json:"devices"`
	Total   int                  `json:"total"`
	Page    pagination.PageView  `json:"page"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Snapshot())
}

type selectDeviceRequest struct {
	Device string `json:"device"`
}

func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	var req selectDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body"))
		return
	}
	writeJSON(w, http.StatusOK, s.svc.SelectDevice(strings.TrimSpace(req.Device)))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusOK, health.Status{})
		return
	}
	writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) handleRecordsList(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := s.svc.Load(r.Context(), q)
	if err != nil {
		writeStateError(w, err, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecordGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := s.svc.Record(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDevicesList(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q.Device = ""
	st, err := s.svc.Load(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devicesResponse{Devices: st.Groups, Total: st.Total, Page: st.Page})
}

func (s *Server) handleDeviceGet(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	deviceID := strings.TrimSpace(chi.URLParam(r, "deviceID"))
	view, err := s.svc.Device(r.Context(), deviceID, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRecordDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		writeStateError(w, err, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecordsDeleteAll(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.DeleteAll(r.Context())
	if err != nil {
		writeStateError(w, err, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func parseQuery(r *http.Request) (dashboard.Query, error) {
	var q dashboard.Query
	values := r.URL.Query()
	var err error
	if q.Limit, err = intParam(values.Get("limit")); err != nil {
		return q, apperrors.BadRequest("invalid limit").WithField("limit", values.Get("limit"))
	}
	if q.Offset, err = intParam(values.Get("offset")); err != nil {
		return q, apperrors.BadRequest("invalid offset").WithField("offset", values.Get("offset"))
	}
	if q.Page, err = intParam(values.Get("page")); err != nil {
		return q, apperrors.BadRequest("invalid page").WithField("page", values.Get("page"))
	}
	q.Device = strings.TrimSpace(values.Get("device"))
	return q, nil
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid record id").WithField("id", raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.InternalServerError("internal error", err)
	}
	apperrors.WriteError(w, appErr)
}

// writeStateError attaches the state the dashboard fell back to, so the
// caller can keep rendering after a failed call.
func writeStateError(w http.ResponseWriter, err error, st dashboard.State) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.InternalServerError("internal error", err)
	}
	apperrors.WriteError(w, appErr.WithField("state", st))
}
