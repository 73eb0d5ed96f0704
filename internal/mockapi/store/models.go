package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/models"

	"gorm.io/datatypes"
)

type LocationRow struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID   string         `gorm:"index" json:"device_id"`
	ResultData datatypes.JSON `gorm:"type:jsonb" json:"result_data"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (LocationRow) TableName() string { return "locations" }

// Record converts the row to the wire shape served to the dashboard.
func (r LocationRow) Record() (models.LocationRecord, error) {
	rec := models.LocationRecord{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(r.ResultData) > 0 {
		if err := json.Unmarshal(r.ResultData, &rec.ResultData); err != nil {
			return models.LocationRecord{}, fmt.Errorf("row %d result_data: %w", r.ID, err)
		}
	}
	return rec, nil
}
