package models

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

func RelativeTime(t, now time.Time) string {
	secs := int64(now.Sub(t) / time.Second)
	if secs < 60 {
		return "just now"
	}
	mins := secs / 60
	if mins < 60 {
		return plural(mins, "minute")
	}
	hours := mins / 60
	if hours < 24 {
		return plural(hours, "hour")
	}
	days := hours / 24
	if days < 7 {
		return plural(days, "day")
	}
	if weeks := days / 7; weeks < 4 {
		return plural(weeks, "week")
	}
	return plural(max(days/30, 1), "month")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func CoordinateText(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lon, 'f', -1, 64)
}

func MapsURL(lat, lon float64) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", fmt.Sprintf("%.6f,%.6f", lat, lon))
	return "https://www.google.com/maps/search/?" + q.Encode()
}
