package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/furkanugurlu/location-dashboard/internal/mockapi/ingest"
	"github.com/furkanugurlu/location-dashboard/internal/mockapi/store"
	"github.com/furkanugurlu/location-dashboard/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := "file:memdb_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
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
	ts := httptest.NewServer(New(repo, schema).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	if out != nil {
		if err := json.Unmarshal(buf.Bytes(), out); err != nil {
			t.Fatalf("decode %q: %v", buf.String(), err)
		}
	}
	return res.StatusCode
}

func TestCreateListGetDelete(t *testing.T) {
	ts := newTestServer(t)

	var created models.RecordResponse
	code := doJSON(t, http.MethodPost, ts.URL+"/api/location", `{"device_id":"tracker-1","coords":{"latitude":41,"longitude":29}}`, &created)
	if code != http.StatusCreated || created.Data.ID == 0 || created.Data.Device() != "tracker-1" {
		t.Fatalf("create: %d %+v", code, created)
	}
	doJSON(t, http.MethodPost, ts.URL+"/api/location", `{"event":"heartbeat"}`, nil)

	var list models.ListResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/location?limit=1&offset=0", "", &list); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if list.Pagination.Total != 2 || len(list.Data) != 1 || !list.Pagination.HasMore {
		t.Fatalf("unexpected list %+v", list)
	}

	var got models.RecordResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/location/"+itoa(created.Data.ID), "", &got); code != http.StatusOK {
		t.Fatalf("get status %d", code)
	}
	if !got.Data.ResultData.Coords.HasPosition() {
		t.Fatalf("expected coordinates, got %+v", got.Data)
	}

	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/location/"+itoa(created.Data.ID), "", nil); code != http.StatusOK {
		t.Fatalf("delete status %d", code)
	}
	var msg models.MessageResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/location/"+itoa(created.Data.ID), "", &msg); code != http.StatusNotFound || msg.Success {
		t.Fatalf("expected 404 after delete, got %d %+v", code, msg)
	}
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	ts := newTestServer(t)
	var msg models.MessageResponse
	code := doJSON(t, http.MethodPost, ts.URL+"/api/location", `{"coords":{"latitude":"north"}}`, &msg)
	if code != http.StatusBadRequest || msg.Success {
		t.Fatalf("expected 400, got %d %+v", code, msg)
	}
}

func TestDeleteAllAndHealth(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/location", `{"device_id":"a"}`, nil)
	doJSON(t, http.MethodPost, ts.URL+"/api/location", `{"device_id":"b"}`, nil)

	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/location", "", nil); code != http.StatusOK {
		t.Fatalf("delete all status %d", code)
	}
	var list models.ListResponse
	doJSON(t, http.MethodGet, ts.URL+"/api/location", "", &list)
	if list.Pagination.Total != 0 || list.Data == nil {
		t.Fatalf("expected an empty, non-null page, got %+v", list)
	}

	var h models.HealthResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/health", "", &h); code != http.StatusOK || !h.Success {
		t.Fatalf("health: %d %+v", code, h)
	}
}

func TestListRejectsBadPaging(t *testing.T) {
	ts := newTestServer(t)
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/location?limit=0", "", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
