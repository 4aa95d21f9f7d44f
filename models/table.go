package models

import "time"

// Status meja dalam siklus layanan
const (
	TableStatusOpen      = "open"
	TableStatusCompleted = "completed"
	TableStatusCanceled  = "canceled"
)

type Table struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TableNumber string `gorm:"type:varchar(50);not null" json:"table_number"`
	Location    string `gorm:"type:varchar(255)" json:"location,omitempty"`
	Notes       string `gorm:"type:text" json:"notes,omitempty"`
	Status      string `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	StepIndex   int    `gorm:"not null;default:0" json:"step_index"`
	GuestCount  int    `gorm:"not null;default:0" json:"guest_count"`

	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	SeatedAt    *time.Time `json:"seated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	// UpdatedAt adalah watermark sinkronisasi; diatur oleh TableService, bukan gorm,
	// supaya strictly increasing juga saat mutasi child. precision:6 -> datetime(6)
	// di MySQL; presisi default datetime(3) akan menyimpan dua bump 1µs sebagai
	// nilai yang sama dan merusak filter updated_since.
	UpdatedAt time.Time `gorm:"precision:6;not null;index;autoUpdateTime:false" json:"updated_at"`

	Guests      []Guest     `gorm:"foreignKey:TableID" json:"guests,omitempty"`
	WineEntries []WineEntry `gorm:"foreignKey:TableID" json:"wine_entries,omitempty"`
	StepEvents  []StepEvent `gorm:"foreignKey:TableID" json:"step_events,omitempty"`
}

// IsTerminal -> completed/canceled tidak boleh dimutasi lagi
func (t *Table) IsTerminal() bool {
	return t.Status == TableStatusCompleted || t.Status == TableStatusCanceled
}
