package ingest

import (
	"encoding/json"
	"fmt"
	"net"
	"regexp"
)

var (
	deviceIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	macRe      = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)
)

// Numeric telemetry bounds. Values at the boundary are accepted.
const (
	MinMetric = 0
	MaxMetric = 999999

	MaxDeviceIDLen   = 50
	MaxDeviceNameLen = 100
)

// ValidationError reports which request field failed validation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s", e.Field)
}

// invalid is a shorthand constructor.
func invalid(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// HeartbeatRequest is the JSON body posted by a device. Pointer fields
// distinguish "absent" from zero values.
type HeartbeatRequest struct {
	DeviceID    string          `json:"device_id"`
	DeviceName  *string         `json:"device_name"`
	IPAddress   *string         `json:"ip_address"`
	MACAddress  *string         `json:"mac_address"`
	SystemInfo  json.RawMessage `json:"system_info"`
	CPUUsage    *float64        `json:"cpu_usage"`
	MemoryUsage *float64        `json:"memory_usage"`
	DiskUsage   *float64        `json:"disk_usage"`
	Temperature *float64        `json:"temperature"`
	Uptime      *float64        `json:"uptime"`
}

// Validate checks every field. It returns the first violation found, in a
// stable field order, so a device gets a deterministic error message.
// Nothing is mutated; callers only proceed to storage on a nil return.
func (r *HeartbeatRequest) Validate() error {
	if r.DeviceID == "" || len(r.DeviceID) > MaxDeviceIDLen || !deviceIDRe.MatchString(r.DeviceID) {
		return invalid("device_id")
	}

	if r.DeviceName != nil && len(*r.DeviceName) > MaxDeviceNameLen {
		return invalid("device_name")
	}

	numeric := []struct {
		field string
		value *float64
	}{
		{"cpu_usage", r.CPUUsage},
		{"memory_usage", r.MemoryUsage},
		{"disk_usage", r.DiskUsage},
		{"temperature", r.Temperature},
		{"uptime", r.Uptime},
	}
	for _, n := range numeric {
		if n.value != nil && (*n.value < MinMetric || *n.value > MaxMetric) {
			return invalid(n.field)
		}
	}

	if r.IPAddress != nil && *r.IPAddress != "" && net.ParseIP(*r.IPAddress) == nil {
		return invalid("ip_address")
	}

	if r.MACAddress != nil && *r.MACAddress != "" && !macRe.MatchString(*r.MACAddress) {
		return invalid("mac_address")
	}

	return nil
}
