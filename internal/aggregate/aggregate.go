package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/models"
)

type partition struct {
	deviceID string
	records  []models.LocationRecord
	created  []time.Time
}

// GroupByDevice partitions records by device id. Each group lists its records
// newest first (ties keep input order) and groups are ordered by their latest
// record, ties keeping the order in which devices first appear in the input.
// Records are not deduplicated by id. The input slice is never modified.
func GroupByDevice(records []models.LocationRecord) ([]models.DeviceGroup, error) {
	byDevice := map[string]*partition{}
	order := make([]*partition, 0)

	for _, rec := range records {
		created, err := rec.CreatedTime()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		id := rec.Device()
		p, ok := byDevice[id]
		if !ok {
			p = &partition{deviceID: id}
			byDevice[id] = p
			order = append(order, p)
		}
		p.records = append(p.records, rec)
		p.created = append(p.created, created)
	}

	for _, p := range order {
		sortNewestFirst(p)
	}

	// order is first-seen, so a stable sort keeps that as the tie breaker.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].created[0].After(order[j].created[0])
	})

	groups := make([]models.DeviceGroup, 0, len(order))
	for _, p := range order {
		groups = append(groups, models.DeviceGroup{
			DeviceID:     p.deviceID,
			RecordCount:  len(p.records),
			LatestRecord: p.records[0],
			Records:      p.records,
		})
	}
	return groups, nil
}

func sortNewestFirst(p *partition) {
	idx := make([]int, len(p.records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.created[idx[a]].After(p.created[idx[b]])
	})
	recs := make([]models.LocationRecord, len(idx))
	created := make([]time.Time, len(idx))
	for i, k := range idx {
		recs[i] = p.records[k]
		created[i] = p.created[k]
	}
	p.records = recs
	p.created = created
}

// FilterByDevice returns the records that belong to deviceID, in input order.
func FilterByDevice(records []models.LocationRecord, deviceID string) []models.LocationRecord {
	out := make([]models.LocationRecord, 0)
	for _, rec := range records {
		if rec.Device() == deviceID {
			out = append(out, rec)
		}
	}
	return out
}

// DeviceOptions lists the distinct devices in first-seen order with their counts.
func DeviceOptions(records []models.LocationRecord) []models.DeviceOption {
	counts := map[string]int{}
	order := make([]string, 0)
	for _, rec := range records {
		id := rec.Device()
		if _, ok := counts[id]; !ok {
			order = append(order, id)
		}
		counts[id]++
	}
	out := make([]models.DeviceOption, 0, len(order))
	for _, id := range order {
		out = append(out, models.DeviceOption{DeviceID: id, RecordCount: counts[id]})
	}
	return out
}

// Without returns a new slice with every record carrying id removed.
func Without(records []models.LocationRecord, id int64) []models.LocationRecord {
	out := make([]models.LocationRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID != id {
			out = append(out, rec)
		}
	}
	return out
}
