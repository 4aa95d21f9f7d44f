package client

import (
	"context"
	"sort"
	"sync"
	"time"
)

const DefaultListInterval = 5 * time.Second

// ListSyncEngine memelihara roster meja untuk satu filter status lewat
// polling delta: full load saat mulai atau ganti filter, setelahnya hanya
// item dengan updated_at > watermark. Item yang tidak dikirim server
// dibiarkan — penghapusan dari view hanya terjadi lewat pergantian filter.
// Satu Poll men-drain seluruh backlog: halaman penuh berarti masih ada
// sisa, jadi fetch diulang sampai halaman pendek supaya watermark tidak
// pernah melompati perubahan yang belum terambil.
type ListSyncEngine struct {
	api *API

	Interval  time.Duration
	PageLimit int
	OnChange  func([]TableSummary)
	OnError   func(error)

	mu         sync.Mutex
	filter     string
	generation uint64
	watermark  time.Time
	items      map[uint]TableSummary
	ordered    []TableSummary
	inFlight   bool
	lastSync   time.Time

	stop    chan struct{}
	started bool
}

func NewListSyncEngine(api *API, statusFilter string) *ListSyncEngine {
	return &ListSyncEngine{
		api:       api,
		Interval:  DefaultListInterval,
		PageLimit: 100,
		filter:    statusFilter,
		items:     make(map[uint]TableSummary),
	}
}

func (e *ListSyncEngine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	go e.Poll() // full load awal

	go func() {
		ticker := time.NewTicker(e.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// respons lambat tidak menunda jadwal tick; Poll sendiri
				// yang men-coalesce lewat flag inFlight
				go e.Poll()
			case <-stop:
				return
			}
		}
	}()
}

func (e *ListSyncEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.started = false
	close(e.stop)
	e.generation++ // respons in-flight setelah Stop dibuang saat tiba
}

// SetFilter mengganti filter status. Koleksi dan watermark dibuang sinkron;
// respons in-flight untuk filter lama tidak akan pernah di-merge.
func (e *ListSyncEngine) SetFilter(statusFilter string) {
	e.mu.Lock()
	if e.filter == statusFilter {
		e.mu.Unlock()
		return
	}
	e.filter = statusFilter
	e.generation++
	e.watermark = time.Time{}
	e.items = make(map[uint]TableSummary)
	e.ordered = nil
	e.inFlight = false
	started := e.started
	e.mu.Unlock()

	if started {
		go e.Poll()
	}
}

// Snapshot -> salinan roster saat ini, urut updated_at desc
func (e *ListSyncEngine) Snapshot() []TableSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TableSummary, len(e.ordered))
	copy(out, e.ordered)
	return out
}

func (e *ListSyncEngine) Watermark() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.watermark
}

// LastSync -> waktu poll sukses terakhir; UI bisa pakai untuk indikator stale
func (e *ListSyncEngine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// Poll menjalankan satu siklus fetch+merge sampai backlog habis. Loop
// internal memanggil ini per tick; diekspos supaya caller (dan test) bisa
// memaksa sinkronisasi.
func (e *ListSyncEngine) Poll() {
	e.mu.Lock()
	if e.inFlight {
		// tick yang datang saat request masih jalan di-coalesce, bukan antre
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	gen := e.generation
	filter := e.filter
	since := e.watermark
	limit := e.PageLimit
	e.mu.Unlock()

	// Full load berjalan per nomor halaman; delta berjalan lewat watermark
	// yang maju per halaman (server mengurutkan delta ASC, jadi halaman
	// berikutnya selalu kelanjutan yang sudah di-merge).
	fullLoad := since.IsZero()
	pageNum := 1
	var highest time.Time

	for {
		page, err := e.api.ListTables(context.Background(), filter, pageNum, limit, since)

		e.mu.Lock()
		if gen != e.generation {
			// filter sudah berganti; flag inFlight milik generasi baru
			e.mu.Unlock()
			return
		}
		if err != nil {
			// fetch gagal: halaman ini tidak menyentuh state. Delta yang sudah
			// ter-merge aman karena urutannya ASC; full load yang putus diulang
			// utuh pada tick berikut karena watermark-nya masih nol.
			e.inFlight = false
			e.mu.Unlock()
			if e.OnError != nil {
				e.OnError(err)
			}
			return
		}

		pageMax := e.mergeLocked(page)
		if pageMax.After(highest) {
			highest = pageMax
		}
		if !fullLoad && pageMax.After(e.watermark) {
			e.watermark = pageMax
		}

		if len(page.Items) < limit {
			// halaman pendek = backlog habis. Watermark full load baru
			// di-commit di sini supaya kegagalan di tengah drain tidak
			// meninggalkan lubang di bawah watermark.
			if fullLoad && highest.After(e.watermark) {
				e.watermark = highest
			}
			e.inFlight = false
			e.lastSync = time.Now()
			snapshot := make([]TableSummary, len(e.ordered))
			copy(snapshot, e.ordered)
			e.mu.Unlock()

			if e.OnChange != nil {
				e.OnChange(snapshot)
			}
			return
		}

		if fullLoad {
			pageNum++
		} else {
			since = e.watermark
		}
		e.mu.Unlock()
	}
}

// mergeLocked -> replace-or-insert per id, return updated_at tertinggi
// di halaman; last-merge-wins aman karena server otoritatif per id
func (e *ListSyncEngine) mergeLocked(page *ListPage) time.Time {
	var pageMax time.Time
	for _, item := range page.Items {
		e.items[item.ID] = item
		if item.UpdatedAt.After(pageMax) {
			pageMax = item.UpdatedAt
		}
	}

	e.ordered = e.ordered[:0]
	for _, item := range e.items {
		e.ordered = append(e.ordered, item)
	}
	sort.Slice(e.ordered, func(i, j int) bool {
		return e.ordered[i].UpdatedAt.After(e.ordered[j].UpdatedAt)
	})
	return pageMax
}
