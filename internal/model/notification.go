package model

import (
	"time"

	"gorm.io/datatypes"
)

type Preferences struct {
	Categories datatypes.JSONSlice[string] `json:"categories"`
	Frequency  string                      `gorm:"size:32" json:"frequency"`
}

// Subscription is one installed push client, keyed by its endpoint.
type Subscription struct {
	Endpoint    string      `gorm:"primaryKey;size:512;not null" json:"endpoint"`
	UserID      string      `gorm:"size:64;index" json:"user_id"`
	P256dh      string      `gorm:"size:255;not null" json:"p256dh"`
	Auth        string      `gorm:"size:255;not null" json:"auth"`
	Preferences Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	UserAgent   string      `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type NotificationType string

const (
	NotificationOrderStatus NotificationType = "order_status"
	NotificationPayment     NotificationType = "payment"
	NotificationPromotion   NotificationType = "promotion"
	NotificationSystem      NotificationType = "system"
)

// NotificationRecord is written regardless of push delivery; only Read/ReadAt ever change.
type NotificationRecord struct {
	ID        string           `gorm:"primaryKey;size:64;not null" json:"id"`
	UserID    string           `gorm:"size:64;index;not null" json:"user_id"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Body      string           `gorm:"type:text" json:"body"`
	URL       string           `gorm:"size:512" json:"url,omitempty"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	SentAt    time.Time        `gorm:"index" json:"sent_at"`
	Read      bool             `gorm:"column:is_read;not null;default:false" json:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
