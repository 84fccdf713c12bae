package model

import "time"

// HeartbeatLog is the append-only time series of heartbeat samples.
// Rows are never updated; they are only removed by retention pruning.
type HeartbeatLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID    string    `gorm:"size:50;index:idx_heartbeat_logs_device_created;not null" json:"device_id"`
	CPUUsage    float64   `gorm:"not null" json:"cpu_usage"`
	MemoryUsage float64   `gorm:"not null" json:"memory_usage"`
	DiskUsage   float64   `gorm:"not null" json:"disk_usage"`
	Temperature *float64  `json:"temperature"`
	Uptime      int64     `gorm:"not null" json:"uptime"`
	CreatedAt   time.Time `gorm:"index:idx_heartbeat_logs_device_created;not null" json:"created_at"`
}
