package model

import "time"

// Device represents a monitored Armbian box. DeviceID is supplied by the
// device itself and is the sole upsert key for heartbeats; the telemetry
// columns always hold the values of the most recent accepted heartbeat.
type Device struct {
	DeviceID    string `gorm:"primaryKey;size:50" json:"device_id"`
	DeviceName  string `gorm:"size:100;not null" json:"device_name"`
	Remarks     string `gorm:"size:200" json:"remarks"`
	OrderNumber int    `gorm:"not null" json:"order_number"`

	IPAddress  *string `gorm:"size:45" json:"ip_address"`
	MACAddress *string `gorm:"size:17" json:"mac_address"`

	CPUUsage    float64  `gorm:"not null" json:"cpu_usage"`
	MemoryUsage float64  `gorm:"not null" json:"memory_usage"`
	DiskUsage   float64  `gorm:"not null" json:"disk_usage"`
	Temperature *float64 `json:"temperature"`
	Uptime      int64    `gorm:"not null" json:"uptime"`

	// SystemInfo holds the device's os/kernel/arch blob serialized as JSON.
	// No substructure is enforced; it is stored and returned verbatim.
	SystemInfo string `gorm:"type:text" json:"-"`

	GroupID *int64 `gorm:"index" json:"group_id"`

	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
	LastHeartbeat *time.Time `gorm:"index" json:"last_heartbeat"`

	// Associations
	Group *DeviceGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
