package models

import "time"

// Wine adalah katalog referensi untuk WineEntry.WineID (read-only di API ini).
type Wine struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Producer   string `gorm:"type:varchar(255)" json:"producer,omitempty"`
	Vintage    int    `json:"vintage,omitempty"`
	Style      string `gorm:"type:varchar(100)" json:"style,omitempty"`
	ByTheGlass bool   `gorm:"not null;default:false" json:"by_the_glass"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
