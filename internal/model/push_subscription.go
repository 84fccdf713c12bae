package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Subscribers receive notifications about device lifecycle events
// (new device registered, device reconnected).
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
