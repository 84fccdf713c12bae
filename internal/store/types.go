package store

import (
	"errors"
	"time"
)

// Heartbeat is a validated, normalized heartbeat sample ready for storage.
// Empty string fields mean "not supplied"; telemetry fields are already
// defaulted by the ingestion layer (0, or nil for temperature).
type Heartbeat struct {
	DeviceID    string
	DeviceName  string
	IPAddress   string
	MACAddress  string
	SystemInfo  string
	CPUUsage    float64
	MemoryUsage float64
	DiskUsage   float64
	Temperature *float64
	Uptime      int64
}

// ApplyResult reports what a heartbeat write did.
type ApplyResult struct {
	// IsNew is true when the heartbeat created the device row.
	IsNew bool
	// PrevHeartbeat is the device's last_heartbeat before this write;
	// nil for new devices or devices that had never reported.
	PrevHeartbeat *time.Time
}

// DeviceEdit carries an operator's field-level edits. Nil pointers leave the
// field unchanged. GroupID set to 0 clears the group association.
type DeviceEdit struct {
	// RequestID, when non-empty, deduplicates retried edits: a second edit
	// with the same id fails with ErrDuplicateRequest.
	RequestID   string
	DeviceName  *string
	Remarks     *string
	OrderNumber *int
	GroupID     *int64
	CreatedAt   *time.Time
}

// HistoryFilter selects a page of heartbeat-log rows.
type HistoryFilter struct {
	Page     int
	PageSize int
	From     *time.Time
	To       *time.Time
}

// Sentinel errors surfaced to the API layer.
var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrDuplicateRequest = errors.New("duplicate request id")
)
