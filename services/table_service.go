package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/DadDubz/wine-service-app/events"
	"github.com/DadDubz/wine-service-app/models"
	"github.com/DadDubz/wine-service-app/utils"
)

// TableService adalah state machine layanan meja. Semua mutasi aggregate
// (status, step_index, guest, wine entry) harus lewat sini supaya setiap
// perubahan tercatat sebagai StepEvent dan watermark updated_at naik.
type TableService struct {
	DB *gorm.DB

	// MaxStep membatasi jumlah langkah layanan. 0 = tanpa batas
	// (konfigurasi deployment, bukan invariant state machine).
	MaxStep int

	locks sync.Map // table id -> *sync.Mutex
}

func NewTableService(db *gorm.DB) *TableService {
	return &TableService{DB: db}
}

// TransitionResult adalah state minimal yang dikembalikan setiap transisi.
type TransitionResult struct {
	TableID   uint      `json:"table_id"`
	Status    string    `json:"status"`
	StepIndex int       `json:"step_index"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateTableInput struct {
	TableNumber string
	Location    string
	GuestCount  int
	Notes       string
}

// PatchTableInput hanya memuat field informasi. Status dan step_index
// sengaja tidak ada di sini: keduanya hanya berubah lewat transisi bernama.
type PatchTableInput struct {
	TableNumber *string
	Location    *string
	GuestCount  *int
	Notes       *string
}

type GuestInput struct {
	Name          *string
	Allergy       *string
	ProteinSub    *string
	Doneness      *string
	Substitutions *string
	Notes         *string
}

type WineEntryInput struct {
	Kind     *string
	WineID   *uint
	Label    *string
	Quantity *int
}

type ListResult struct {
	Items []models.Table `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// lockFor -> mutex per meja, menjamin tepat satu transisi ter-commit
// per meja pada satu waktu (request konkuren yang kalah gagal validasi).
func (s *TableService) lockFor(tableID uint) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(tableID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// touch menaikkan watermark. updated_at tidak boleh turun atau berulang,
// jadi saat jam belum melewati nilai sebelumnya dipaksa maju 1µs.
// Dipotong ke mikrodetik dulu: kolomnya datetime(6), dan nilai yang hanya
// beda di bawah presisi kolom akan tersimpan sama persis.
func (s *TableService) touch(t *models.Table) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Microsecond)
	}
	t.UpdatedAt = now
}

func ensureOpen(t *models.Table) error {
	if t.IsTerminal() {
		return fmt.Errorf("%w: table %d is %s", ErrTerminalTable, t.ID, t.Status)
	}
	return nil
}

// CreateTable -> meja baru selalu mulai open dengan step_index 0
func (s *TableService) CreateTable(in CreateTableInput) (*models.Table, error) {
	if in.TableNumber == "" {
		return nil, fmt.Errorf("%w: table_number is required", ErrValidation)
	}
	if in.GuestCount < 0 {
		return nil, fmt.Errorf("%w: guest_count must be >= 0", ErrValidation)
	}

	table := models.Table{
		TableNumber: in.TableNumber,
		Location:    in.Location,
		Notes:       in.Notes,
		GuestCount:  in.GuestCount,
		Status:      models.TableStatusOpen,
		StepIndex:   0,
		UpdatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.DB.Create(&table).Error; err != nil {
		return nil, err
	}

	events.BroadcastTableCreate(table)
	utils.InfoLogger.Printf("New table created: %s (id=%d)", table.TableNumber, table.ID)
	return &table, nil
}

// GetTable -> proyeksi penuh satu meja: guests, wine entries, event log
func (s *TableService) GetTable(tableID uint) (*models.Table, error) {
	var table models.Table
	err := s.DB.
		Preload("Guests").
		Preload("WineEntries").
		Preload("StepEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&table, tableID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: table %d", ErrNotFound, tableID)
		}
		return nil, err
	}
	return &table, nil
}

// ListTables -> ringkasan meja untuk roster, filter status + watermark delta.
// updatedSince == nil artinya full load (poll pertama atau ganti filter).
func (s *TableService) ListTables(status string, page, limit int, updatedSince *time.Time) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	q := s.DB.Model(&models.Table{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	order := "updated_at DESC"
	if updatedSince != nil {
		// strictly greater: item dengan updated_at == watermark sudah dimiliki client.
		// Delta diurut dari yang paling lama supaya watermark client bisa maju
		// halaman demi halaman tanpa melompati perubahan yang belum terambil.
		q = q.Where("updated_at > ?", *updatedSince)
		order = "updated_at ASC"
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.Table
	err := q.Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ListEvents -> audit trail satu meja, urut waktu
func (s *TableService) ListEvents(tableID uint) ([]models.StepEvent, error) {
	var exists int64
	if err := s.DB.Model(&models.Table{}).Where("id = ?", tableID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: table %d", ErrNotFound, tableID)
	}

	var log []models.StepEvent
	err := s.DB.Where("table_id = ?", tableID).
		Order("created_at ASC, id ASC").
		Find(&log).Error
	if err != nil {
		return nil, err
	}
	return log, nil
}

/*
========================================
 TRANSISI STATE MACHINE
========================================
*/

// Arrive -> mencatat kedatangan tamu. Pemanggilan kedua ditolak, bukan no-op.
func (s *TableService) Arrive(tableID uint, actorID *uint) (*TransitionResult, error) {
	return s.transition(tableID, actorID, func(t *models.Table) (*models.StepEvent, error) {
		if err := ensureOpen(t); err != nil {
			return nil, err
		}
		if t.ArrivedAt != nil {
			return nil, fmt.Errorf("%w: arrival already recorded for table %d", ErrInvalidTransition, t.ID)
		}
		now := time.Now().UTC()
		t.ArrivedAt = &now
		return &models.StepEvent{EventType: models.EventArrival}, nil
	})
}

// Seat -> mendudukkan tamu, hanya valid setelah arrive
func (s *TableService) Seat(tableID uint, actorID *uint) (*TransitionResult, error) {
	return s.transition(tableID, actorID, func(t *models.Table) (*models.StepEvent, error) {
		if err := ensureOpen(t); err != nil {
			return nil, err
		}
		if t.ArrivedAt == nil {
			return nil, fmt.Errorf("%w: table %d has no recorded arrival", ErrInvalidTransition, t.ID)
		}
		if t.SeatedAt != nil {
			return nil, fmt.Errorf("%w: table %d is already seated", ErrInvalidTransition, t.ID)
		}
		now := time.Now().UTC()
		if now.Before(*t.ArrivedAt) {
			now = *t.ArrivedAt
		}
		t.SeatedAt = &now
		return &models.StepEvent{EventType: models.EventSeat}, nil
	})
}

// Next -> maju tepat satu langkah layanan
func (s *TableService) Next(tableID uint, actorID *uint) (*TransitionResult, error) {
	return s.transition(tableID, actorID, func(t *models.Table) (*models.StepEvent, error) {
		if err := ensureOpen(t); err != nil {
			return nil, err
		}
		if s.MaxStep > 0 && t.StepIndex >= s.MaxStep {
			return nil, fmt.Errorf("%w: table %d is already at the last step (%d)", ErrInvalidTransition, t.ID, s.MaxStep)
		}
		from := t.StepIndex
		t.StepIndex++
		to := t.StepIndex
		return &models.StepEvent{EventType: models.EventAdvance, FromStep: &from, ToStep: &to}, nil
	})
}

// Undo -> mundur tepat satu langkah; di step 0 gagal, tidak di-clamp
func (s *TableService) Undo(tableID uint, actorID *uint) (*TransitionResult, error) {
	return s.transition(tableID, actorID, func(t *models.Table) (*models.StepEvent, error) {
		if err := ensureOpen(t); err != nil {
			return nil, err
		}
		if t.StepIndex == 0 {
			return nil, fmt.Errorf("%w: table %d is at step 0", ErrInvalidTransition, t.ID)
		}
		from := t.StepIndex
		t.StepIndex--
		to := t.StepIndex
		return &models.StepEvent{EventType: models.EventUndo, FromStep: &from, ToStep: &to}, nil
	})
}

// Complete -> akhir normal; status completed, step_index dibekukan
func (s *TableService) Complete(tableID uint, actorID *uint) (*TransitionResult, error) {
	return s.transition(tableID, actorID, func(t *models.Table) (*models.StepEvent, error) {
		if err := ensureOpen(t); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		t.Status = models.TableStatusCompleted
		t.CompletedAt = &now
		from := t.StepIndex
		return &models.StepEvent{EventType: models.EventCompletion, FromStep: &from}, nil
	})
}

// Cancel -> meja ditinggalkan; terminal seperti complete
func (s *TableService) Cancel(tableID uint, actorID *uint) (*TransitionResult, error) {
	return s.transition(tableID, actorID, func(t *models.Table) (*models.StepEvent, error) {
		if err := ensureOpen(t); err != nil {
			return nil, err
		}
		t.Status = models.TableStatusCanceled
		from := t.StepIndex
		return &models.StepEvent{EventType: models.EventCancellation, FromStep: &from}, nil
	})
}

// transition menjalankan satu operasi state machine secara atomik per meja:
// lock per id + transaksi DB, lalu tepat satu StepEvent dan satu kenaikan watermark.
func (s *TableService) transition(tableID uint, actorID *uint, apply func(*models.Table) (*models.StepEvent, error)) (*TransitionResult, error) {
	mu := s.lockFor(tableID)
	mu.Lock()
	defer mu.Unlock()

	var (
		result  *TransitionResult
		updated models.Table
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: table %d", ErrNotFound, tableID)
			}
			return err
		}

		event, err := apply(&table)
		if err != nil {
			return err
		}

		s.touch(&table)
		if err := tx.Save(&table).Error; err != nil {
			return err
		}

		event.TableID = table.ID
		event.ActorID = actorID
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		updated = table
		result = &TransitionResult{
			TableID:   table.ID,
			Status:    table.Status,
			StepIndex: table.StepIndex,
			UpdatedAt: table.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.BroadcastTableTransition(updated)
	return result, nil
}

/*
========================================
 MUTASI INFO & CHILD (hanya saat open)
========================================
*/

// withOpenTable menjalankan mutasi non-transisi: meja harus open, dan
// watermark parent ikut naik supaya polling roster melihat perubahan child.
func (s *TableService) withOpenTable(tableID uint, mutate func(tx *gorm.DB, t *models.Table) error) (*models.Table, error) {
	mu := s.lockFor(tableID)
	mu.Lock()
	defer mu.Unlock()

	var updated models.Table
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: table %d", ErrNotFound, tableID)
			}
			return err
		}
		if err := ensureOpen(&table); err != nil {
			return err
		}
		if err := mutate(tx, &table); err != nil {
			return err
		}
		s.touch(&table)
		if err := tx.Save(&table).Error; err != nil {
			return err
		}
		updated = table
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.BroadcastTableUpdate(updated)
	return &updated, nil
}

// PatchTable -> update field informasi saja; status/step_index tidak bisa lewat sini
func (s *TableService) PatchTable(tableID uint, in PatchTableInput) (*models.Table, error) {
	return s.withOpenTable(tableID, func(tx *gorm.DB, t *models.Table) error {
		if in.TableNumber != nil {
			if *in.TableNumber == "" {
				return fmt.Errorf("%w: table_number cannot be empty", ErrValidation)
			}
			t.TableNumber = *in.TableNumber
		}
		if in.Location != nil {
			t.Location = *in.Location
		}
		if in.GuestCount != nil {
			if *in.GuestCount < 0 {
				return fmt.Errorf("%w: guest_count must be >= 0", ErrValidation)
			}
			t.GuestCount = *in.GuestCount
		}
		if in.Notes != nil {
			t.Notes = *in.Notes
		}
		return nil
	})
}

func applyGuestInput(g *models.Guest, in GuestInput) {
	if in.Name != nil {
		g.Name = *in.Name
	}
	if in.Allergy != nil {
		g.Allergy = *in.Allergy
	}
	if in.ProteinSub != nil {
		g.ProteinSub = *in.ProteinSub
	}
	if in.Doneness != nil {
		g.Doneness = *in.Doneness
	}
	if in.Substitutions != nil {
		g.Substitutions = *in.Substitutions
	}
	if in.Notes != nil {
		g.Notes = *in.Notes
	}
}

func (s *TableService) AddGuest(tableID uint, in GuestInput) (*models.Guest, error) {
	var guest models.Guest
	_, err := s.withOpenTable(tableID, func(tx *gorm.DB, t *models.Table) error {
		guest = models.Guest{TableID: t.ID}
		applyGuestInput(&guest, in)
		return tx.Create(&guest).Error
	})
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (s *TableService) PatchGuest(tableID, guestID uint, in GuestInput) (*models.Guest, error) {
	var guest models.Guest
	_, err := s.withOpenTable(tableID, func(tx *gorm.DB, t *models.Table) error {
		if err := tx.Where("table_id = ?", t.ID).First(&guest, guestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: guest %d", ErrNotFound, guestID)
			}
			return err
		}
		applyGuestInput(&guest, in)
		return tx.Save(&guest).Error
	})
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (s *TableService) DeleteGuest(tableID, guestID uint) error {
	_, err := s.withOpenTable(tableID, func(tx *gorm.DB, t *models.Table) error {
		res := tx.Where("table_id = ?", t.ID).Delete(&models.Guest{}, guestID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: guest %d", ErrNotFound, guestID)
		}
		return nil
	})
	return err
}

func validWineEntryKind(kind string) bool {
	return kind == models.WineEntryKindBottle || kind == models.WineEntryKindBTG
}

func (s *TableService) AddWineEntry(tableID uint, in WineEntryInput) (*models.WineEntry, error) {
	var entry models.WineEntry
	_, err := s.withOpenTable(tableID, func(tx *gorm.DB, t *models.Table) error {
		if in.Kind == nil || !validWineEntryKind(*in.Kind) {
			return fmt.Errorf("%w: kind must be %q or %q", ErrValidation, models.WineEntryKindBottle, models.WineEntryKindBTG)
		}
		entry = models.WineEntry{TableID: t.ID, Kind: *in.Kind}
		if in.WineID != nil {
			entry.WineID = in.WineID
		}
		if in.Label != nil {
			entry.Label = *in.Label
		}
		if in.Quantity != nil {
			if *in.Quantity < 0 {
				return fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
			}
			entry.Quantity = *in.Quantity
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *TableService) PatchWineEntry(tableID, entryID uint, in WineEntryInput) (*models.WineEntry, error) {
	var entry models.WineEntry
	_, err := s.withOpenTable(tableID, func(tx *gorm.DB, t *models.Table) error {
		if err := tx.Where("table_id = ?", t.ID).First(&entry, entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: wine entry %d", ErrNotFound, entryID)
			}
			return err
		}
		if in.Kind != nil {
			if !validWineEntryKind(*in.Kind) {
				return fmt.Errorf("%w: kind must be %q or %q", ErrValidation, models.WineEntryKindBottle, models.WineEntryKindBTG)
			}
			entry.Kind = *in.Kind
		}
		if in.WineID != nil {
			entry.WineID = in.WineID
		}
		if in.Label != nil {
			entry.Label = *in.Label
		}
		if in.Quantity != nil {
			if *in.Quantity < 0 {
				return fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
			}
			entry.Quantity = *in.Quantity
		}
		return tx.Save(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *TableService) DeleteWineEntry(tableID, entryID uint) error {
	_, err := s.withOpenTable(tableID, func(tx *gorm.DB, t *models.Table) error {
		res := tx.Where("table_id = ?", t.ID).Delete(&models.WineEntry{}, entryID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: wine entry %d", ErrNotFound, entryID)
		}
		return nil
	})
	return err
}
