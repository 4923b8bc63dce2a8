package models

import "time"

// Preference stores the per-identity language choice. It outlives intake
// sessions so returning users are greeted in their language.
type Preference struct {
	Identity  string `gorm:"primaryKey;size:128"`
	Language  string `gorm:"size:8;not null"`
	UpdatedAt time.Time
}
