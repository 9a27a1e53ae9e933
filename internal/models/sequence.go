package models

// Sequence is a business identifier counter (RISK, AUD, POL).
type Sequence struct {
	Name  string `gorm:"primaryKey;size:16"`
	Value int    `gorm:"not null"`
}
