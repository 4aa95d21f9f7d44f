package client

import (
	"context"
	"sync"
	"time"
)

const DefaultDetailInterval = 4 * time.Second

// DetailSyncEngine memelihara proyeksi penuh satu meja lewat full-refresh
// polling. Koleksi bersarang (guests, wines, events) membuat partial merge
// ambigu, jadi respons server selalu menggantikan detail lokal secara utuh.
type DetailSyncEngine struct {
	api *API

	Interval time.Duration
	OnChange func(*TableDetail)
	OnError  func(error)

	mu         sync.Mutex
	tableID    uint
	generation uint64
	detail     *TableDetail
	inFlight   bool
	lastSync   time.Time

	stop    chan struct{}
	started bool
}

func NewDetailSyncEngine(api *API) *DetailSyncEngine {
	return &DetailSyncEngine{
		api:      api,
		Interval: DefaultDetailInterval,
	}
}

// SetTableID mengganti meja yang diamati. Detail lama dibuang sinkron,
// SEBELUM fetch pertama meja baru, supaya tidak pernah ada render id baru
// dengan data meja lama; respons in-flight id lama dibuang saat tiba.
func (e *DetailSyncEngine) SetTableID(tableID uint) {
	e.mu.Lock()
	if e.tableID == tableID {
		e.mu.Unlock()
		return
	}
	e.tableID = tableID
	e.generation++
	e.detail = nil
	e.inFlight = false
	e.mu.Unlock()

	// fetch awal di luar jadwal tick
	go e.Poll()
}

// Detail -> proyeksi yang dipegang saat ini; nil sebelum fetch pertama
func (e *DetailSyncEngine) Detail() *TableDetail {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detail
}

func (e *DetailSyncEngine) TableID() uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tableID
}

func (e *DetailSyncEngine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// ApplyTransition menempelkan hasil transisi yang SUDAH dikonfirmasi server
// ke detail lokal (status/step/updated_at saja). Bersifat transien: refresh
// penuh berikutnya menggantikannya utuh, tidak ada merge per field.
func (e *DetailSyncEngine) ApplyTransition(state *TransitionState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state == nil || e.detail == nil || state.TableID != e.tableID {
		return
	}
	e.detail.Status = state.Status
	e.detail.StepIndex = state.StepIndex
	e.detail.UpdatedAt = state.UpdatedAt
}

func (e *DetailSyncEngine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(e.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				go e.Poll()
			case <-stop:
				return
			}
		}
	}()
}

func (e *DetailSyncEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.started = false
	close(e.stop)
	e.generation++ // respons in-flight setelah Stop dibuang
}

// Poll melakukan satu full refresh untuk meja aktif.
func (e *DetailSyncEngine) Poll() {
	e.mu.Lock()
	if e.inFlight || e.tableID == 0 {
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	gen := e.generation
	tableID := e.tableID
	e.mu.Unlock()

	detail, err := e.api.GetTable(context.Background(), tableID)

	e.mu.Lock()
	if gen != e.generation {
		// meja sudah berganti atau engine berhenti; respons basi dibuang
		e.mu.Unlock()
		return
	}
	e.inFlight = false
	if err != nil {
		// state lokal tidak disentuh; retry di tick berikutnya
		e.mu.Unlock()
		if e.OnError != nil {
			e.OnError(err)
		}
		return
	}

	e.detail = detail
	e.lastSync = time.Now()
	e.mu.Unlock()

	if e.OnChange != nil {
		e.OnChange(detail)
	}
}
