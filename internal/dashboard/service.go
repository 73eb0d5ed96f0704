package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/locationapi"
	"github.com/furkanugurlu/location-dashboard/internal/models"
	"github.com/furkanugurlu/location-dashboard/internal/pagination"
	apperrors "github.com/furkanugurlu/location-dashboard/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
)

var rollbackCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dashboard_delete_rollbacks_total",
		Help: "Tentative deletes rolled back after the location API refused them.",
	},
	[]string{"scope"},
)

func init() { prometheus.MustRegister(rollbackCounter) }

// LocationAPI is the part of the location API client the dashboard needs.
type LocationAPI interface {
	List(ctx context.Context, limit, offset int) (locationapi.ListResult, error)
	Get(ctx context.Context, id int64) (models.LocationRecord, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

// Query selects a page by offset, or by 1-indexed Page when Page is set.
type Query struct {
	Limit  int
	Offset int
	Page   int
	Device string
}

type Options struct {
	Limits pagination.Limits
	Now    func() time.Time
}

type Service struct {
	api    LocationAPI
	store  *Store
	limits pagination.Limits
	now    func() time.Time
}

func NewService(api LocationAPI, opts Options) *Service {
	limits := opts.Limits
	if limits.DefaultLimit <= 0 {
		limits = pagination.DefaultLimits
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		api:    api,
		store:  NewStore(Initial(limits.DefaultLimit)),
		limits: limits,
		now:    now,
	}
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) Snapshot() State { return s.store.Snapshot() }

// Load fetches one page from the location API and publishes it as the new
// confirmed state. An offset past the last page is clamped onto the last page.
// On failure the previous views are kept.
func (s *Service) Load(ctx context.Context, q Query) (State, error) {
	limit, offset := pagination.Normalize(q.Limit, q.Offset, s.limits)
	if q.Page > 0 {
		offset = pagination.OffsetOf(q.Page, limit)
	}

	s.store.Dispatch(FetchStarted{})
	res, err := s.api.List(ctx, limit, offset)
	if err == nil && offset > 0 && offset >= res.Total {
		clamped := offset
		if view, cerr := pagination.Compute(res.Total, limit, offset); cerr == nil {
			clamped = view.GoToPage(view.CurrentPage)
		}
		if clamped != offset {
			slog.Debug("offset past the last page", "offset", offset, "clamped", clamped, "total", res.Total)
			offset = clamped
			res, err = s.api.List(ctx, limit, offset)
		}
	}
	if err != nil {
		slog.Error("location list failed", "limit", limit, "offset", offset, "error", err)
		st := s.store.Dispatch(FetchFailed{Err: "failed to load location records"})
		return st, apperrors.OperationFailed("failed to load location records", err)
	}
	for _, rec := range res.Records {
		if verr := rec.Validate(); verr != nil {
			slog.Warn("location record is inconsistent", "id", rec.ID, "error", verr)
		}
	}
	st := s.store.Dispatch(FetchSucceeded{
		Records: res.Records,
		Total:   res.Total,
		Limit:   limit,
		Offset:  offset,
		Device:  q.Device,
		At:      s.now().UTC(),
	})
	return st, nil
}

// SelectDevice changes the device filter over the records already loaded.
func (s *Service) SelectDevice(device string) State {
	return s.store.Dispatch(DeviceSelected{Device: device})
}

// Device returns the group of one device out of the requested page.
func (s *Service) Device(ctx context.Context, deviceID string, q Query) (DeviceView, error) {
	st, err := s.Load(ctx, Query{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		return DeviceView{}, err
	}
	for _, g := range st.Groups {
		if g.DeviceID == deviceID {
			return newDeviceView(g, st, s.now()), nil
		}
	}
	return DeviceView{}, apperrors.NotFound("device not found").WithField("device_id", deviceID)
}

// Record always asks the location API, so a record removed elsewhere reports
// not found.
func (s *Service) Record(ctx context.Context, id int64) (DetailView, error) {
	rec, err := s.api.Get(ctx, id)
	if err != nil {
		if errors.Is(err, locationapi.ErrNotFound) {
			return DetailView{}, apperrors.NotFound("location record not found").WithField("id", id)
		}
		slog.Error("location fetch failed", "id", id, "error", err)
		return DetailView{}, apperrors.OperationFailed("failed to load location record", err)
	}
	if err := rec.Validate(); err != nil {
		slog.Error("location record is inconsistent", "id", id, "error", err)
		return DetailView{}, apperrors.OperationFailed("location API returned an inconsistent record", err)
	}
	return newDetailView(rec, s.now()), nil
}

// Delete removes a record in two phases: the removal is applied locally,
// then confirmed or rolled back depending on the location API's answer.
func (s *Service) Delete(ctx context.Context, id int64) (State, error) {
	s.store.Dispatch(DeleteRequested{ID: id})
	if err := s.api.Delete(ctx, id); err != nil {
		slog.Warn("location delete failed, rolling back", "id", id, "error", err)
		rollbackCounter.WithLabelValues("record").Inc()
		st := s.store.Dispatch(DeleteFailed{ID: id, Err: "failed to delete location record"})
		return st, apperrors.OperationFailed("failed to delete location record", err)
	}
	return s.store.Dispatch(DeleteConfirmed{ID: id}), nil
}

// DeleteAll clears every record and reloads the first page.
func (s *Service) DeleteAll(ctx context.Context) (State, error) {
	s.store.Dispatch(DeleteRequested{All: true})
	if err := s.api.DeleteAll(ctx); err != nil {
		slog.Warn("location delete all failed, rolling back", "error", err)
		rollbackCounter.WithLabelValues("all").Inc()
		st := s.store.Dispatch(DeleteFailed{All: true, Err: "failed to delete location records"})
		return st, apperrors.OperationFailed("failed to delete location records", err)
	}
	st := s.store.Dispatch(DeleteConfirmed{All: true})
	if reloaded, err := s.Load(ctx, Query{Limit: st.Limit, Offset: 0, Device: st.Device}); err == nil {
		st = reloaded
	}
	return st, nil
}
