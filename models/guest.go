package models

import "time"

type Guest struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TableID       uint   `gorm:"not null;index" json:"table_id"`
	Name          string `gorm:"type:varchar(255)" json:"name,omitempty"`
	Allergy       string `gorm:"type:varchar(255)" json:"allergy,omitempty"`
	ProteinSub    string `gorm:"type:varchar(255)" json:"protein_sub,omitempty"`
	Doneness      string `gorm:"type:varchar(50)" json:"doneness,omitempty"`
	Substitutions string `gorm:"type:text" json:"substitutions,omitempty"`
	Notes         string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
