package locationapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/middleware"
	"github.com/furkanugurlu/location-dashboard/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var ErrNotFound = errors.New("location record not found")

var requestCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "location_api_requests_total",
		Help: "Calls to the location API by operation and outcome.",
	},
	[]string{"op", "outcome"},
)

func init() { prometheus.MustRegister(requestCounter) }

// StatusError is returned for any non-2xx answer of the location API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("location API returned status %d", e.Status)
	}
	return fmt.Sprintf("location API returned status %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: hc,
		tracer:     otel.Tracer("location-dashboard/locationapi"),
	}
}

type ListResult struct {
	Records []models.LocationRecord
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

func (c *Client) List(ctx context.Context, limit, offset int) (ListResult, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var resp models.ListResponse
	if err := c.do(ctx, "list", http.MethodGet, "/api/location?"+q.Encode(), &resp); err != nil {
		return ListResult{}, fmt.Errorf("fetching locations: %w", err)
	}
	records := resp.Data
	if records == nil {
		records = []models.LocationRecord{}
	}
	return ListResult{
		Records: records,
		Total:   resp.Pagination.Total,
		Limit:   resp.Pagination.Limit,
		Offset:  resp.Pagination.Offset,
		HasMore: resp.Pagination.HasMore,
	}, nil
}

func (c *Client) Get(ctx context.Context, id int64) (models.LocationRecord, error) {
	var resp models.RecordResponse
	if err := c.do(ctx, "get", http.MethodGet, "/api/location/"+strconv.FormatInt(id, 10), &resp); err != nil {
		return models.LocationRecord{}, fmt.Errorf("fetching location %d: %w", id, err)
	}
	return resp.Data, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	var resp models.MessageResponse
	if err := c.do(ctx, "delete", http.MethodDelete, "/api/location/"+strconv.FormatInt(id, 10), &resp); err != nil {
		return fmt.Errorf("deleting location %d: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteAll(ctx context.Context) error {
	var resp models.MessageResponse
	if err := c.do(ctx, "delete_all", http.MethodDelete, "/api/location", &resp); err != nil {
		return fmt.Errorf("deleting all locations: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := c.do(ctx, "health", http.MethodGet, "/health", &resp); err != nil {
		return models.HealthResponse{}, fmt.Errorf("health check: %w", err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "locationapi."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.target", path),
	)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if errors.Is(err, ErrNotFound) {
				outcome = "not_found"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		requestCounter.WithLabelValues(op, outcome).Inc()
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.CorrelationHeader, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet && path != "/health" {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
