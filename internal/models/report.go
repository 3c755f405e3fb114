package models

import "gorm.io/gorm"

type Report struct {
	gorm.Model

	ReporterID string `gorm:"index"`
	ReportedID string `gorm:"index"`
	MatchID    string
	Reason     string
	Status     string // "new", "confirmed", "dismissed"
}
