package dashboard

import (
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/models"
	"github.com/furkanugurlu/location-dashboard/internal/pagination"
)

// Number of beacons summarized on a device card.
const cardHits = 2

type DeviceView struct {
	models.DeviceGroup
	LastSeen string              `json:"last_seen"`
	Page     pagination.PageView `json:"page"`

	// Strongest beacons of the latest record, out of HitCount.
	TopHits  []Beacon `json:"top_hits"`
	HitCount int      `json:"hit_count"`
}

func newDeviceView(g models.DeviceGroup, st State, now time.Time) DeviceView {
	v := DeviceView{DeviceGroup: g, Page: st.Page, TopHits: []Beacon{}}
	if t, err := g.LatestRecord.CreatedTime(); err == nil {
		v.LastSeen = models.RelativeTime(t, now)
	}
	if ex := g.LatestRecord.ResultData.Extras; ex != nil {
		v.HitCount = len(ex.Hits)
		for _, h := range models.TopHits(ex.Hits, cardHits) {
			v.TopHits = append(v.TopHits, beaconOf(h))
		}
	}
	return v
}

type Beacon struct {
	models.SignalHit
	Quality models.SignalQuality `json:"quality"`
	Percent int                  `json:"percent"`
}

// DetailView is one record decorated with everything the detail page shows.
type DetailView struct {
	Record     models.LocationRecord `json:"record"`
	DeviceID   string                `json:"device_id"`
	CreatedAgo string                `json:"created_ago,omitempty"`
	Coordinate string                `json:"coordinate,omitempty"`
	MapsURL    string                `json:"maps_url,omitempty"`
	Hits       []Beacon              `json:"hits"`
	Nearby     *Beacon               `json:"nearby_teltonika,omitempty"`
}

func newDetailView(rec models.LocationRecord, now time.Time) DetailView {
	v := DetailView{Record: rec, DeviceID: rec.Device(), Hits: []Beacon{}}
	if t, err := rec.CreatedTime(); err == nil {
		v.CreatedAgo = models.RelativeTime(t, now)
	}
	if c := rec.ResultData.Coords; c.HasPosition() {
		v.Coordinate = models.CoordinateText(*c.Latitude, *c.Longitude)
		v.MapsURL = models.MapsURL(*c.Latitude, *c.Longitude)
	}
	if ex := rec.ResultData.Extras; ex != nil {
		for _, h := range models.SortHitsByRSSI(ex.Hits) {
			v.Hits = append(v.Hits, beaconOf(h))
		}
		if ex.NearbyTeltonika != nil {
			b := beaconOf(*ex.NearbyTeltonika)
			v.Nearby = &b
		}
	}
	return v
}

func beaconOf(h models.SignalHit) Beacon {
	return Beacon{SignalHit: h, Quality: models.QualityOf(h.RSSI), Percent: models.SignalPercent(h.RSSI)}
}
