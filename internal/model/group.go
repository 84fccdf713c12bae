package model

import "time"

// DeviceGroup is an operator-defined grouping of devices.
// At most one group may be the default at any time.
type DeviceGroup struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupName        string    `gorm:"size:100;uniqueIndex;not null" json:"group_name"`
	GroupDescription string    `gorm:"size:200" json:"group_description"`
	GroupColor       string    `gorm:"size:20" json:"group_color"`
	GroupIcon        string    `gorm:"size:50" json:"group_icon"`
	SortOrder        int       `gorm:"not null;default:0" json:"sort_order"`
	IsDefault        bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}
