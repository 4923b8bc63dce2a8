package models

import "time"

// Tier is the urgency classification assigned to a lead at creation.
type Tier string

const (
	TierHot  Tier = "HOT"
	TierWarm Tier = "WARM"
	TierCold Tier = "COLD"
)

// Tiers lists every tier, hottest first.
var Tiers = []Tier{TierHot, TierWarm, TierCold}

// Lead is a captured prospect record. Intake fields are written once at
// creation; afterwards only the contacted, archived and reminder columns
// change, each monotonically.
type Lead struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement"`
	IdentityID         string `gorm:"size:128;not null;index"`
	IdentityHandle     string `gorm:"size:128"`
	Name               string `gorm:"size:256;not null"`
	Phone              string `gorm:"size:64;not null"`
	Service            string `gorm:"size:128;not null"`
	Description        string `gorm:"type:text;not null"`
	Status             Tier   `gorm:"size:8;not null;index"`
	Language           string `gorm:"size:8;default:en"`
	Contacted          bool   `gorm:"default:false;index"`
	ContactedAt        *time.Time
	Archived           bool      `gorm:"default:false;index"`
	CreatedAt          time.Time `gorm:"index"`
	FirstReminderSent  bool      `gorm:"default:false"`
	SecondReminderSent bool      `gorm:"default:false"`
}
