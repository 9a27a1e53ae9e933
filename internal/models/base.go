package models

import "time"

// Base holds the fields shared by every entity. Deletes are hard, so
// gorm.Model with its DeletedAt is not used.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Enum is a closed string enumeration checked by the validator.
type Enum interface {
	Valid() bool
}

func oneOf[T ~string](v T, values []T) bool {
	for _, x := range values {
		if v == x {
			return true
		}
	}
	return false
}

func (b *Base) GetID() uint        { return b.ID }
func (b *Base) SetID(id uint)      { b.ID = id }
func (b *Base) Created() time.Time { return b.CreatedAt }

// Touch sets timestamps the database has not set.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Derivable entities recompute their derived fields before every write.
type Derivable interface {
	ApplyDerived(now time.Time)
}
