package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// FlexibleID accepts both string and numeric beacon identifiers on the wire.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*id = FlexibleID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type SignalHit struct {
	ID   FlexibleID `json:"id"`
	Name string     `json:"name"`
	RSSI int        `json:"rssi"`
}

type SignalQuality string

const (
	SignalStrong SignalQuality = "strong"
	SignalFair   SignalQuality = "fair"
	SignalWeak   SignalQuality = "weak"
)

// QualityOf buckets an RSSI reading (dBm, more negative is weaker).
func QualityOf(rssi int) SignalQuality {
	switch {
	case rssi > -70:
		return SignalStrong
	case rssi > -85:
		return SignalFair
	default:
		return SignalWeak
	}
}

// SignalPercent maps an RSSI reading onto 0..100 assuming a -100..0 dBm range.
func SignalPercent(rssi int) int {
	p := rssi + 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// SortHitsByRSSI returns a copy of hits ordered strongest first.
func SortHitsByRSSI(hits []SignalHit) []SignalHit {
	out := append([]SignalHit(nil), hits...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RSSI > out[j].RSSI })
	return out
}

func TopHits(hits []SignalHit, n int) []SignalHit {
	sorted := SortHitsByRSSI(hits)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
