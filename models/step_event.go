package models

import "time"

// Tipe event transisi state machine. Satu transisi = tepat satu event.
const (
	EventArrival      = "arrival"
	EventSeat         = "seat"
	EventAdvance      = "advance"
	EventUndo         = "undo"
	EventCompletion   = "completion"
	EventCancellation = "cancellation"
)

// StepEvent adalah audit trail append-only: tidak pernah di-update atau dihapus.
type StepEvent struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TableID   uint   `gorm:"not null;index" json:"table_id"`
	EventType string `gorm:"type:varchar(50);not null" json:"event_type"`
	FromStep  *int   `json:"from_step,omitempty"`
	ToStep    *int   `json:"to_step,omitempty"`
	Payload   string `gorm:"type:text" json:"payload,omitempty"`
	ActorID   *uint  `gorm:"index" json:"actor_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
