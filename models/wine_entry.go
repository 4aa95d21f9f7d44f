package models

import "time"

// Jenis alokasi wine per meja
const (
	WineEntryKindBottle = "bottle"
	WineEntryKindBTG    = "btg" // by the glass
)

type WineEntry struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TableID  uint   `gorm:"not null;index" json:"table_id"`
	Kind     string `gorm:"type:varchar(20);not null" json:"kind"`
	WineID   *uint  `gorm:"index" json:"wine_id,omitempty"` // referensi katalog, opsional
	Label    string `gorm:"type:varchar(255)" json:"label,omitempty"`
	Quantity int    `gorm:"not null;default:0" json:"quantity"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
