package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/furkanugurlu/location-dashboard/pkg/errors"
)

// UnknownDeviceID is used for every record that carries no device id.
const UnknownDeviceID = "unknown"

type LocationRecord struct {
	ID         int64      `json:"id"`
	ResultData ResultData `json:"result_data"`
	CreatedAt  string     `json:"created_at"`
	UpdatedAt  string     `json:"updated_at"`
}

// Device returns the grouping key of the record. Grouping and filtering must
// go through this helper so the "unknown" default stays consistent.
func (r LocationRecord) Device() string {
	id := strings.TrimSpace(r.ResultData.DeviceID)
	if id == "" {
		return UnknownDeviceID
	}
	return id
}

func (r LocationRecord) CreatedTime() (time.Time, error) {
	return ParseTimestamp(r.CreatedAt)
}

func (r LocationRecord) UpdatedTime() (time.Time, error) {
	return ParseTimestamp(r.UpdatedAt)
}

// Validate reports a record whose updated_at precedes its created_at.
// Timestamps that do not parse are left to the callers that need them.
func (r LocationRecord) Validate() error {
	created, err := r.CreatedTime()
	if err != nil {
		return nil
	}
	updated, err := r.UpdatedTime()
	if err != nil {
		return nil
	}
	if updated.Before(created) {
		return fmt.Errorf("record %d updated at %s before creation at %s: %w",
			r.ID, r.UpdatedAt, r.CreatedAt, apperrors.ErrInvalidInput)
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp accepts the ISO forms the location API emits plus the bare
// SQL form some deployments return. Results are normalized to UTC.
func ParseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp: %w", apperrors.ErrInvalidInput)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: %w", v, apperrors.ErrInvalidInput)
}

type Coords struct {
	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	Accuracy            *float64 `json:"accuracy,omitempty"`
	Altitude            *float64 `json:"altitude,omitempty"`
	Speed               *float64 `json:"speed,omitempty"`
	Heading             *float64 `json:"heading,omitempty"`
	Floor               *float64 `json:"floor,omitempty"`
	SpeedAccuracy       *float64 `json:"speed_accuracy,omitempty"`
	HeadingAccuracy     *float64 `json:"heading_accuracy,omitempty"`
	AltitudeAccuracy    *float64 `json:"altitude_accuracy,omitempty"`
	EllipsoidalAltitude *float64 `json:"ellipsoidal_altitude,omitempty"`
}

// HasPosition reports whether both latitude and longitude are present.
func (c *Coords) HasPosition() bool {
	return c != nil && c.Latitude != nil && c.Longitude != nil
}

type Battery struct {
	Level      *float64 `json:"level,omitempty"`
	IsCharging *bool    `json:"is_charging,omitempty"`
}

type Activity struct {
	Type       string   `json:"type,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ResultData is the device payload of a record. Keys the dashboard does not
// model are kept in Other so they survive a decode/encode round trip.
type ResultData struct {
	Age       *float64  `json:"age,omitempty"`
	UUID      string    `json:"uuid,omitempty"`
	Event     string    `json:"event,omitempty"`
	Coords    *Coords   `json:"coords,omitempty"`
	Extras    *Extras   `json:"extras,omitempty"`
	Battery   *Battery  `json:"battery,omitempty"`
	Activity  *Activity `json:"activity,omitempty"`
	Odometer  *float64  `json:"odometer,omitempty"`
	IsMoving  *bool     `json:"is_moving,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`

	Other map[string]json.RawMessage `json:"-"`
}

var resultDataKeys = []string{
	"age", "uuid", "event", "coords", "extras", "battery", "activity",
	"odometer", "is_moving", "timestamp", "device_id",
}

func (d *ResultData) UnmarshalJSON(data []byte) error {
	type plain ResultData
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	other, err := unknownKeys(data, resultDataKeys)
	if err != nil {
		return err
	}
	*d = ResultData(p)
	d.Other = other
	return nil
}

func (d ResultData) MarshalJSON() ([]byte, error) {
	type plain ResultData
	return withUnknownKeys(plain(d), d.Other)
}

// Extras carries optional sensor attachments. Only the beacon fields are typed.
type Extras struct {
	Hits            []SignalHit     `json:"hits,omitempty"`
	NearbyTeltonika *SignalHit      `json:"nearbyTeltonika,omitempty"`
	NearbyBLEDevice json.RawMessage `json:"nearbyBLEDevice,omitempty"`

	Other map[string]json.RawMessage `json:"-"`
}

var extrasKeys = []string{"hits", "nearbyTeltonika", "nearbyBLEDevice"}

func (e *Extras) UnmarshalJSON(data []byte) error {
	type plain Extras
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	other, err := unknownKeys(data, extrasKeys)
	if err != nil {
		return err
	}
	*e = Extras(p)
	if string(e.NearbyBLEDevice) == "null" {
		e.NearbyBLEDevice = nil
	}
	e.Other = other
	return nil
}

func (e Extras) MarshalJSON() ([]byte, error) {
	type plain Extras
	return withUnknownKeys(plain(e), e.Other)
}

func unknownKeys(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func withUnknownKeys(v any, other map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || len(other) == 0 {
		return b, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, raw := range other {
		if _, exists := merged[k]; !exists {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}

// DeviceGroup is derived from a record list and rebuilt on every change.
type DeviceGroup struct {
	DeviceID     string           `json:"device_id"`
	RecordCount  int              `json:"record_count"`
	LatestRecord LocationRecord   `json:"latest_record"`
	Records      []LocationRecord `json:"records"`
}

// DeviceOption is one entry of the device selector.
type DeviceOption struct {
	DeviceID    string `json:"device_id"`
	RecordCount int    `json:"record_count"`
}
