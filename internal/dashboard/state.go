package dashboard

import (
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/aggregate"
	"github.com/furkanugurlu/location-dashboard/internal/models"
	"github.com/furkanugurlu/location-dashboard/internal/pagination"
)

// State is an immutable snapshot of the dashboard. Every field is rebuilt by
// Reduce; callers must treat the slices as read-only.
type State struct {
	Version    uint64    `json:"version"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
	Device     string    `json:"device,omitempty"`
	Loading    bool      `json:"loading"`
	Error      string    `json:"error,omitempty"`
	LastUpdate time.Time `json:"last_update,omitzero"`

	Records []models.LocationRecord `json:"-"`
	Total   int                     `json:"total"`
	Visible []models.LocationRecord `json:"records"`
	Groups  []models.DeviceGroup    `json:"-"`
	Devices []models.DeviceOption   `json:"devices"`
	Page    pagination.PageView     `json:"page"`

	PendingDeletes []int64 `json:"pending_deletes,omitempty"`
	PendingAll     bool    `json:"pending_delete_all,omitempty"`

	// Last state acknowledged by the location API. Tentative deletes are
	// applied on top of it, so dropping a pending id is a rollback.
	confirmedRecords []models.LocationRecord
	confirmedTotal   int
}

type Action interface{ isAction() }

type FetchStarted struct{}

type FetchSucceeded struct {
	Records []models.LocationRecord
	Total   int
	Limit   int
	Offset  int
	Device  string
	At      time.Time
}

type FetchFailed struct{ Err string }

type DeviceSelected struct{ Device string }

// DeleteRequested applies a tentative removal of one record, or of every
// record when All is set.
type DeleteRequested struct {
	ID  int64
	All bool
}

type DeleteConfirmed struct {
	ID  int64
	All bool
}

type DeleteFailed struct {
	ID  int64
	All bool
	Err string
}

func (FetchStarted) isAction()    {}
func (FetchSucceeded) isAction()  {}
func (FetchFailed) isAction()     {}
func (DeviceSelected) isAction()  {}
func (DeleteRequested) isAction() {}
func (DeleteConfirmed) isAction() {}
func (DeleteFailed) isAction()    {}

func Initial(limit int) State {
	return derive(State{Limit: limit, confirmedRecords: []models.LocationRecord{}})
}

// Reduce is the only way a State changes. It never mutates s.
func Reduce(s State, a Action) State {
	next := s
	next.Version = s.Version + 1

	switch a := a.(type) {
	case FetchStarted:
		next.Loading = true
		next.Error = ""
		return next

	case FetchSucceeded:
		next.Loading = false
		next.Error = ""
		next.Limit = a.Limit
		next.Offset = a.Offset
		next.Device = a.Device
		next.LastUpdate = a.At
		next.confirmedRecords = append([]models.LocationRecord(nil), a.Records...)
		next.confirmedTotal = a.Total

	case FetchFailed:
		// Derived views stay as they were; only the error is surfaced.
		next.Loading = false
		next.Error = a.Err
		return next

	case DeviceSelected:
		next.Device = a.Device

	case DeleteRequested:
		if a.All {
			next.PendingAll = true
		} else {
			next.PendingDeletes = appendID(s.PendingDeletes, a.ID)
		}
		next.Error = ""

	case DeleteConfirmed:
		if a.All {
			next.PendingAll = false
			next.PendingDeletes = nil
			next.Offset = 0
			next.confirmedRecords = []models.LocationRecord{}
			next.confirmedTotal = 0
		} else {
			next.PendingDeletes = removeID(s.PendingDeletes, a.ID)
			kept := aggregate.Without(s.confirmedRecords, a.ID)
			next.confirmedTotal = max(s.confirmedTotal-(len(s.confirmedRecords)-len(kept)), 0)
			next.confirmedRecords = kept
		}

	case DeleteFailed:
		if a.All {
			next.PendingAll = false
		} else {
			next.PendingDeletes = removeID(s.PendingDeletes, a.ID)
		}
		next.Error = a.Err

	default:
		return s
	}

	return derive(next)
}

// derive rebuilds every view field from the confirmed data and the pending
// deletes. Device groups are never patched in place.
func derive(s State) State {
	records := s.confirmedRecords
	total := s.confirmedTotal
	if s.PendingAll {
		records = []models.LocationRecord{}
		total = 0
	} else {
		for _, id := range s.PendingDeletes {
			kept := aggregate.Without(records, id)
			total -= len(records) - len(kept)
			records = kept
		}
		total = max(total, 0)
	}
	if records == nil {
		records = []models.LocationRecord{}
	}

	s.Records = records
	s.Total = total
	s.Devices = aggregate.DeviceOptions(records)
	if s.Device == "" {
		s.Visible = records
	} else {
		s.Visible = aggregate.FilterByDevice(records, s.Device)
	}

	groups, err := aggregate.GroupByDevice(records)
	if err != nil {
		s.Error = err.Error()
		groups = []models.DeviceGroup{}
	}
	s.Groups = groups

	page, err := pagination.Compute(total, s.Limit, s.Offset)
	if err != nil {
		s.Error = err.Error()
		page = pagination.PageView{Total: total, Limit: s.Limit, Offset: s.Offset, Pages: []pagination.Token{}}
	}
	s.Page = page
	return s
}

func appendID(ids []int64, id int64) []int64 {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	out := make([]int64, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
