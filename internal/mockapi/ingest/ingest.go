package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/mockapi/store"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
)

var ErrNotALocationTopic = errors.New("not a location topic")

const DefaultTopicPrefix = "location/"

type Ingestor struct {
	Repo         *store.Repo
	Schema       *jsonschema.Schema
	TopicPrefix  string
	AllowRetains bool
}

type MQTTMessage interface {
	Topic() string
	Payload() []byte
	Retained() bool
}

// HandleMessage stores one tracker payload. The device id comes from the
// topic and overrides any device_id inside the payload.
func (i *Ingestor) HandleMessage(ctx context.Context, msg MQTTMessage, receivedAt time.Time) {
	topic := msg.Topic()
	if msg.Retained() && !i.AllowRetains {
		slog.Debug("location ingest ignoring retained", "topic", topic)
		return
	}

	deviceID, err := ParseDeviceID(i.TopicPrefix, topic)
	if err != nil {
		if errors.Is(err, ErrNotALocationTopic) {
			return
		}
		slog.Warn("location ingest topic parse failed", "topic", topic, "error", err)
		return
	}

	payload := msg.Payload()
	if len(payload) == 0 {
		return
	}
	if err := ValidatePayload(i.Schema, payload); err != nil {
		slog.Warn("location ingest rejected payload", "topic", topic, "device_id", deviceID, "error", err)
		return
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil || doc == nil {
		slog.Warn("location ingest payload is not an object", "topic", topic, "device_id", deviceID)
		return
	}
	id, _ := json.Marshal(deviceID)
	doc["device_id"] = id
	data, err := json.Marshal(doc)
	if err != nil {
		slog.Error("location ingest encode failed", "topic", topic, "error", err)
		return
	}

	row := &store.LocationRow{
		DeviceID:   deviceID,
		ResultData: datatypes.JSON(data),
		CreatedAt:  receivedAt.UTC(),
	}
	if err := i.Repo.Insert(ctx, row); err != nil {
		slog.Error("location ingest db insert failed", "topic", topic, "device_id", deviceID, "error", err)
		return
	}
	slog.Debug("location stored", "id", row.ID, "device_id", deviceID)
}

func ParseDeviceID(prefix, topic string) (string, error) {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if !strings.HasPrefix(topic, prefix) {
		return "", ErrNotALocationTopic
	}
	id := strings.Trim(strings.TrimPrefix(topic, prefix), "/")
	if id == "" {
		return "", errors.New("empty device id")
	}
	return id, nil
}
