package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detailOf(id uint, number string, step int, updatedAt time.Time) TableDetail {
	return TableDetail{
		TableSummary: TableSummary{
			ID:          id,
			TableNumber: number,
			Status:      "open",
			StepIndex:   step,
			UpdatedAt:   updatedAt,
		},
		Guests:      []Guest{{ID: 1, TableID: id, Name: "Dewi"}},
		WineEntries: []WineEntry{},
		StepEvents:  []StepEvent{},
	}
}

// fakeDetail melayani GET /admin/tables/:id dari map in-memory
type fakeDetail struct {
	mu      sync.Mutex
	details map[uint]TableDetail
}

func (f *fakeDetail) handler(w http.ResponseWriter, r *http.Request) {
	var id uint
	if _, err := fmt.Sscanf(r.URL.Path, "/admin/tables/%d", &id); err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil)
		return
	}

	f.mu.Lock()
	detail, ok := f.details[id]
	f.mu.Unlock()
	if !ok {
		writeEnvelope(w, http.StatusNotFound, nil)
		return
	}
	writeEnvelope(w, http.StatusOK, detail)
}

func TestDetailPollReplacesWholesale(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	fake := &fakeDetail{details: map[uint]TableDetail{
		7: detailOf(7, "A1", 2, base),
	}}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	defer server.Close()

	engine := NewDetailSyncEngine(New(server.URL, ""))
	assert.Nil(t, engine.Detail())

	engine.SetTableID(7)
	require.Eventually(t, func() bool {
		return engine.Detail() != nil
	}, 2*time.Second, 10*time.Millisecond)

	detail := engine.Detail()
	assert.Equal(t, uint(7), detail.ID)
	assert.Equal(t, 2, detail.StepIndex)
	require.Len(t, detail.Guests, 1)

	// refresh berikutnya menggantikan detail secara utuh, termasuk child
	// yang hilang di server
	next := detailOf(7, "A1", 3, base.Add(time.Second))
	next.Guests = nil
	fake.mu.Lock()
	fake.details[7] = next
	fake.mu.Unlock()

	engine.Poll()
	detail = engine.Detail()
	assert.Equal(t, 3, detail.StepIndex)
	assert.Empty(t, detail.Guests)
}

func TestDetailApplyTransitionIsTransient(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	fake := &fakeDetail{details: map[uint]TableDetail{
		7: detailOf(7, "A1", 1, base),
	}}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	defer server.Close()

	engine := NewDetailSyncEngine(New(server.URL, ""))
	engine.SetTableID(7)
	require.Eventually(t, func() bool {
		return engine.Detail() != nil
	}, 2*time.Second, 10*time.Millisecond)

	// hasil transisi yang dikonfirmasi server ditempel langsung
	engine.ApplyTransition(&TransitionState{
		TableID:   7,
		Status:    "open",
		StepIndex: 2,
		UpdatedAt: base.Add(time.Second),
	})
	assert.Equal(t, 2, engine.Detail().StepIndex)

	// transisi meja lain diabaikan
	engine.ApplyTransition(&TransitionState{TableID: 99, StepIndex: 9})
	assert.Equal(t, 2, engine.Detail().StepIndex)

	// refresh penuh berikutnya otoritatif, patch lokal tergantikan
	engine.Poll()
	assert.Equal(t, 1, engine.Detail().StepIndex)
}

func TestDetailSwitchTableDropsStaleResponse(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	entered := make(chan struct{})
	release := make(chan struct{})

	fake := &fakeDetail{details: map[uint]TableDetail{
		1: detailOf(1, "A1", 5, base),
		2: detailOf(2, "B2", 0, base),
	}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// request meja 1 digantung sampai meja 2 selesai dirender
		if r.URL.Path == "/admin/tables/1" {
			entered <- struct{}{}
			<-release
		}
		fake.handler(w, r)
	}))
	defer server.Close()

	engine := NewDetailSyncEngine(New(server.URL, ""))
	engine.SetTableID(1)
	<-entered // fetch meja 1 sedang in-flight

	// ganti meja saat respons meja 1 belum tiba: detail lama dibuang
	// sinkron, tidak ada fase "id baru, data lama"
	engine.SetTableID(2)
	if d := engine.Detail(); d != nil {
		// fetch meja 2 boleh saja sudah selesai, tapi data meja 1 tidak
		// boleh pernah terlihat lagi
		assert.Equal(t, uint(2), d.ID)
	}
	assert.Equal(t, uint(2), engine.TableID())

	require.Eventually(t, func() bool {
		d := engine.Detail()
		return d != nil && d.ID == 2
	}, 2*time.Second, 10*time.Millisecond)

	// respons meja 1 akhirnya tiba dan harus dibuang, bukan di-render
	close(release)
	time.Sleep(100 * time.Millisecond)
	detail := engine.Detail()
	require.NotNil(t, detail)
	assert.Equal(t, uint(2), detail.ID)
	assert.Equal(t, "B2", detail.TableNumber)
}

func TestDetailFailedPollKeepsLastGood(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	fake := &fakeDetail{details: map[uint]TableDetail{
		7: detailOf(7, "A1", 1, base),
	}}

	var fail bool
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		shouldFail := fail
		mu.Unlock()
		if shouldFail {
			writeEnvelope(w, http.StatusInternalServerError, nil)
			return
		}
		fake.handler(w, r)
	}))
	defer server.Close()

	engine := NewDetailSyncEngine(New(server.URL, ""))
	var gotErr error
	engine.OnError = func(err error) { gotErr = err }

	engine.SetTableID(7)
	require.Eventually(t, func() bool {
		return engine.Detail() != nil
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	fail = true
	mu.Unlock()
	engine.Poll()

	// detail terakhir yang sukses tetap ditampilkan saat poll gagal
	require.Error(t, gotErr)
	require.NotNil(t, engine.Detail())
	assert.Equal(t, uint(7), engine.Detail().ID)
}
