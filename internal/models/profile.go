package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Profile is the directory record for one logical user. The matchmaker
// consults it for gender and interests; the block fields gate registration.
type Profile struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Gender      string         `json:"gender"`
	Interests   pq.StringArray `gorm:"type:text[]" json:"interests"`
	Reputation  int            `json:"reputation"`
	IsBlocked   bool           `json:"is_blocked"`
	BlockLevel  int            `json:"-"`
	BlockEndsAt int64          `json:"-"`
	LastBanAt   int64          `json:"-"`
}

// BeforeCreate fills in a fresh UUID when the caller did not supply an ID.
func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}
