package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/mockapi/ingest"
	"github.com/furkanugurlu/location-dashboard/internal/mockapi/store"
	"github.com/furkanugurlu/location-dashboard/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
)

const maxBodyBytes = 1 << 20

// Server speaks the location API's JSON shapes on top of the gorm store.
type Server struct {
	repo   *store.Repo
	schema *jsonschema.Schema
	now    func() time.Time
}

func New(repo *store.Repo, schema *jsonschema.Schema) *Server {
	return &Server{repo: repo, schema: schema, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Route("/api/location", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Delete("/", s.handleDeleteAll)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{Success: true, Message: "Server is running", Timestamp: s.now().UTC().Format(time.RFC3339)}
	if err := s.repo.Ping(r.Context()); err != nil {
		resp.Success = false
		resp.Message = "database unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || offset < 0 {
		writeMessage(w, http.StatusBadRequest, "invalid limit or offset")
		return
	}

	rows, total, err := s.repo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("location list failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	data := make([]models.LocationRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			slog.Warn("skipping unreadable location row", "id", row.ID, "error", err)
			continue
		}
		data = append(data, rec)
	}
	writeJSON(w, http.StatusOK, models.ListResponse{
		Success: true,
		Data:    data,
		Pagination: models.PaginationMeta{
			Total:   int(total),
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+limit) < total,
		},
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	row, err := s.repo.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Location not found")
		return
	}
	if err != nil {
		slog.Error("location get failed", "id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to load location")
		return
	}
	rec, err := row.Record()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "stored location is unreadable")
		return
	}
	writeJSON(w, http.StatusOK, models.RecordResponse{Success: true, Data: rec})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := ingest.ValidatePayload(s.schema, body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var data models.ResultData
	if err := json.Unmarshal(body, &data); err != nil {
		writeMessage(w, http.StatusBadRequest, "result_data must be an object")
		return
	}

	row := &store.LocationRow{
		DeviceID:   strings.TrimSpace(data.DeviceID),
		ResultData: datatypes.JSON(body),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Insert(r.Context(), row); err != nil {
		slog.Error("location insert failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to store location")
		return
	}
	rec, err := row.Record()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "stored location is unreadable")
		return
	}
	writeJSON(w, http.StatusCreated, models.RecordResponse{Success: true, Data: rec})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	err := s.repo.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Location not found")
		return
	}
	if err != nil {
		slog.Error("location delete failed", "id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to delete location")
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Location deleted successfully"})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.DeleteAll(r.Context())
	if err != nil {
		slog.Error("location delete all failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to delete locations")
		return
	}
	slog.Info("all locations deleted", "count", n)
	writeJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "All locations deleted successfully"})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.MessageResponse{Success: status < 400, Message: msg})
}
