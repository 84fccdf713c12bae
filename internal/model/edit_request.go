package model

import "time"

// EditRequest records a processed request id for the field-edit endpoints.
// A second edit carrying the same request id is rejected as a duplicate.
// Heartbeat ingestion deliberately has no such guard: a repeated heartbeat
// is a legitimate new sample.
type EditRequest struct {
	RequestID string    `gorm:"primaryKey;size:64" json:"request_id"`
	Endpoint  string    `gorm:"size:100;not null" json:"endpoint"`
	DeviceID  string    `gorm:"size:50;index" json:"device_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
