package model

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Booking is an interview booking captured by the assistant.
type Booking struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;index:idx_email"`
	Date      string    `json:"date" gorm:"type:varchar(10);not null"`
	Time      string    `json:"time" gorm:"type:varchar(5);not null"`
	Metadata  string    `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Booking.
func (Booking) TableName() string {
	return "bookings"
}

// BeforeCreate assigns a ULID when the id is empty.
func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}
