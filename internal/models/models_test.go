package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/furkanugurlu/location-dashboard/pkg/errors"
)

const sampleRecord = `{
  "id": 42,
  "result_data": {
    "uuid": "a-b-c",
    "event": "motionchange",
    "device_id": "phone-1",
    "coords": {"latitude": 41.01, "longitude": 28.97, "accuracy": 5},
    "battery": {"level": 0.8, "is_charging": false},
    "is_moving": true,
    "extras": {
      "hits": [{"id": 7, "name": "gate", "rssi": -80}, {"id": "x1", "name": "door", "rssi": -60}],
      "nearbyTeltonika": {"id": "T-1", "name": "trailer", "rssi": -72},
      "nearbyBLEDevice": null,
      "zone": "depot"
    },
    "mock": true
  },
  "created_at": "2025-03-01T10:00:00.000Z",
  "updated_at": "2025-03-01T10:00:01.000Z"
}`

func TestRecordDecodeKeepsUnknownKeys(t *testing.T) {
	var rec LocationRecord
	if err := json.Unmarshal([]byte(sampleRecord), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.Device() != "phone-1" {
		t.Fatalf("expected phone-1, got %q", rec.Device())
	}
	if !rec.ResultData.Coords.HasPosition() {
		t.Fatalf("expected coordinates")
	}
	if rec.ResultData.Extras == nil || len(rec.ResultData.Extras.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", rec.ResultData.Extras)
	}
	if rec.ResultData.Extras.Hits[0].ID != "7" {
		t.Fatalf("numeric id not preserved: %q", rec.ResultData.Extras.Hits[0].ID)
	}
	if rec.ResultData.Extras.NearbyBLEDevice != nil {
		t.Fatalf("expected null ble device to decode as nil")
	}
	if _, ok := rec.ResultData.Other["mock"]; !ok {
		t.Fatalf("expected unknown result_data key to be kept")
	}
	if _, ok := rec.ResultData.Extras.Other["zone"]; !ok {
		t.Fatalf("expected unknown extras key to be kept")
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"mock":true`, `"zone":"depot"`, `"id":7`, `"id":"x1"`} {
		if !strings.Contains(string(out), want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestDeviceDefaultsToUnknown(t *testing.T) {
	cases := []string{"", "   "}
	for _, id := range cases {
		rec := LocationRecord{ResultData: ResultData{DeviceID: id}}
		if rec.Device() != UnknownDeviceID {
			t.Fatalf("device %q: expected unknown, got %q", id, rec.Device())
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, v := range []string{
		"2025-03-01T10:00:00Z",
		"2025-03-01T10:00:00.000Z",
		"2025-03-01T13:00:00+03:00",
		"2025-03-01 10:00:00",
	} {
		got, err := ParseTimestamp(v)
		if err != nil {
			t.Fatalf("parse %q: %v", v, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: got %v want %v", v, got, want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSignalHelpers(t *testing.T) {
	if QualityOf(-60) != SignalStrong || QualityOf(-70) != SignalFair || QualityOf(-85) != SignalWeak {
		t.Fatalf("unexpected quality buckets")
	}
	if SignalPercent(-120) != 0 || SignalPercent(-40) != 60 || SignalPercent(10) != 100 {
		t.Fatalf("unexpected percent clamp")
	}

	hits := []SignalHit{{Name: "a", RSSI: -90}, {Name: "b", RSSI: -50}, {Name: "c", RSSI: -70}}
	top := TopHits(hits, 2)
	if len(top) != 2 || top[0].Name != "b" || top[1].Name != "c" {
		t.Fatalf("unexpected top hits: %+v", top)
	}
	if hits[0].Name != "a" {
		t.Fatalf("input slice was reordered")
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{2 * 24 * time.Hour, "2 days ago"},
		{14 * 24 * time.Hour, "2 weeks ago"},
		{28 * 24 * time.Hour, "1 month ago"},
		{29 * 24 * time.Hour, "1 month ago"},
		{65 * 24 * time.Hour, "2 months ago"},
	}
	for _, tc := range cases {
		if got := RelativeTime(now.Add(-tc.ago), now); got != tc.want {
			t.Fatalf("%v ago: got %q want %q", tc.ago, got, tc.want)
		}
	}
}

func TestMapsURL(t *testing.T) {
	got := MapsURL(41.01, 28.97)
	if !strings.Contains(got, "query=41.010000%2C28.970000") {
		t.Fatalf("unexpected maps url %q", got)
	}
	if CoordinateText(41.01, 28.97) != "41.01, 28.97" {
		t.Fatalf("unexpected coordinate text %q", CoordinateText(41.01, 28.97))
	}
}

func TestValidateTimestampOrder(t *testing.T) {
	cases := []struct {
		name    string
		created string
		updated string
		wantErr bool
	}{
		{"same instant", "2025-01-01T10:00:00Z", "2025-01-01T10:00:00Z", false},
		{"updated later", "2025-01-01T10:00:00Z", "2025-01-01T10:05:00.5Z", false},
		{"updated earlier", "2025-01-01T10:00:00Z", "2025-01-01T09:59:59Z", true},
		{"offsets compared in utc", "2025-01-01T12:00:00+02:00", "2025-01-01T10:30:00Z", false},
		{"missing update", "2025-01-01T10:00:00Z", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := LocationRecord{ID: 1, CreatedAt: tc.created, UpdatedAt: tc.updated}.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("got %v, want error %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
