// Package status derives a device's online/offline classification from the
// recency of its last heartbeat. Status is a pure function of
// (last_heartbeat, now, timeout) and is never persisted; every read
// recomputes it against a single "now" so one response cannot show a device
// both online and offline.
package status

import (
	"math"
	"time"
)

// DeviceStatus is the derived classification of a device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	// StatusWarning exists in the data model but has no trigger rule;
	// nothing derives it.
	StatusWarning DeviceStatus = "warning"
)

// DefaultOfflineTimeout is used when no timeout is configured.
const DefaultOfflineTimeout = 300 * time.Second

// Online reports whether a device whose last heartbeat arrived at
// lastHeartbeat is considered online at instant now. A nil lastHeartbeat
// means the device has never reported and is always offline. The comparison
// uses absolute instants, so it is immune to DST shifts in the display
// timezone.
func Online(lastHeartbeat *time.Time, now time.Time, timeout time.Duration) bool {
	if lastHeartbeat == nil {
		return false
	}
	return now.Sub(*lastHeartbeat) <= timeout
}

// Classify maps the online/offline rule onto a DeviceStatus value.
func Classify(lastHeartbeat *time.Time, now time.Time, timeout time.Duration) DeviceStatus {
	if Online(lastHeartbeat, now, timeout) {
		return StatusOnline
	}
	return StatusOffline
}

// Stats is the fleet-level aggregate over one shared "now".
type Stats struct {
	Total      int `json:"total"`
	Online     int `json:"online"`
	Offline    int `json:"offline"`
	OnlineRate int `json:"onlineRate"`
}

// Aggregate computes fleet stats from the devices' last-heartbeat times.
// All devices are evaluated against the same now.
func Aggregate(lastHeartbeats []*time.Time, now time.Time, timeout time.Duration) Stats {
	s := Stats{Total: len(lastHeartbeats)}
	for _, hb := range lastHeartbeats {
		if Online(hb, now, timeout) {
			s.Online++
		}
	}
	s.Offline = s.Total - s.Online
	if s.Total > 0 {
		s.OnlineRate = int(math.Round(float64(s.Online) / float64(s.Total) * 100))
	}
	return s
}
