package model

import "time"

// DeviceBackup is the tombstone written before a device row is deleted.
// One backup per device id; a repeat delete finds the existing row and
// skips the insert.
type DeviceBackup struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID    string    `gorm:"size:50;uniqueIndex;not null" json:"device_id"`
	DeviceName  string    `gorm:"size:100" json:"device_name"`
	Remarks     string    `gorm:"size:200" json:"remarks"`
	OrderNumber int       `gorm:"not null" json:"order_number"`
	DeletedAt   time.Time `gorm:"not null" json:"deleted_at"`
}
