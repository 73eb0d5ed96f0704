package locationapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/mockapi/httpapi"
	"github.com/furkanugurlu/location-dashboard/internal/mockapi/ingest"
	"github.com/furkanugurlu/location-dashboard/internal/mockapi/store"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestClientAgainstMockAPI(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:memdb_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := store.New(db)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	schema, err := ingest.LoadSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []int64
	for i, device := range []string{"a", "b", "a"} {
		row := &store.LocationRow{
			DeviceID:   device,
			ResultData: []byte(`{"device_id":"` + device + `"}`),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Insert(ctx, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, row.ID)
	}

	ts := httptest.NewServer(httpapi.New(repo, schema).Handler())
	defer ts.Close()
	c := New(ts.URL, Options{Timeout: 5 * time.Second})

	res, err := c.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 3 || len(res.Records) != 2 || !res.HasMore || res.Records[0].ID != ids[2] {
		t.Fatalf("unexpected list %+v", res)
	}

	rec, err := c.Get(ctx, ids[1])
	if err != nil || rec.Device() != "b" {
		t.Fatalf("get: %+v %v", rec, err)
	}

	if err := c.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, ids[1]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var se *StatusError
	if err := c.Delete(ctx, ids[1]); !errors.As(err, &se) || se.Status != 404 {
		t.Fatalf("expected a 404 StatusError on repeated delete, got %v", err)
	}

	if err := c.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	res, err = c.List(ctx, 10, 0)
	if err != nil || res.Total != 0 || res.Records == nil {
		t.Fatalf("expected empty list, got %+v %v", res, err)
	}

	h, err := c.Health(ctx)
	if err != nil || !h.Success {
		t.Fatalf("health: %+v %v", h, err)
	}
}
