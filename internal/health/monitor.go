package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/models"

	"github.com/robfig/cron/v3"
)

type Checker interface {
	Health(ctx context.Context) (models.HealthResponse, error)
}

// Status is the last observed connectivity to the location API.
type Status struct {
	Connected bool      `json:"connected"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitzero"`
}

type Options struct {
	Schedule string
	Timeout  time.Duration
	OnChange func(prev, next Status)
	Now      func() time.Time
}

type Monitor struct {
	checker  Checker
	schedule string
	timeout  time.Duration
	onChange func(prev, next Status)
	now      func() time.Time
	cron     *cron.Cron

	mu   sync.RWMutex
	last Status
}

func NewMonitor(checker Checker, opts Options) *Monitor {
	schedule := opts.Schedule
	if schedule == "" {
		schedule = "@every 30s"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		checker:  checker,
		schedule: schedule,
		timeout:  timeout,
		onChange: opts.OnChange,
		now:      now,
		cron:     cron.New(),
	}
}

// Start runs one check immediately and then on the configured schedule.
func (m *Monitor) Start(ctx context.Context) error {
	if _, err := m.cron.AddFunc(m.schedule, func() { m.Check(ctx) }); err != nil {
		return err
	}
	m.Check(ctx)
	m.cron.Start()
	return nil
}

func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func (m *Monitor) Check(ctx context.Context) Status {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	next := Status{CheckedAt: m.now().UTC()}
	resp, err := m.checker.Health(cctx)
	switch {
	case err != nil:
		next.Message = "location API unreachable"
		slog.Warn("location API health check failed", "error", err)
	case !resp.Success:
		next.Message = resp.Message
	default:
		next.Connected = true
		next.Message = resp.Message
	}

	m.mu.Lock()
	prev := m.last
	m.last = next
	m.mu.Unlock()

	if prev.Connected != next.Connected || prev.CheckedAt.IsZero() {
		slog.Info("location API connectivity", "connected", next.Connected, "message", next.Message)
		if m.onChange != nil {
			m.onChange(prev, next)
		}
	}
	return next
}
