package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/DadDubz/wine-service-app/auth"
	"github.com/DadDubz/wine-service-app/controllers"
	"github.com/DadDubz/wine-service-app/models"
	"github.com/DadDubz/wine-service-app/services"
	"github.com/DadDubz/wine-service-app/utils"
)

// setupTestDBForTables menggunakan SQLite in-memory, satu DB per test
func setupTestDBForTables(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Table{}, &models.Guest{}, &models.WineEntry{}, &models.StepEvent{})
	require.NoError(t, err)
	return db
}

// fakeAuth menggantikan AuthMiddleware: identitas langsung diset ke context
func fakeAuth(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func setupTableRouter(db *gorm.DB, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(fakeAuth(1, role))

	svc := services.NewTableService(db)
	policy := auth.DefaultPolicy()
	tableCtrl := controllers.NewTableController(db, svc, policy)
	guestCtrl := controllers.NewGuestController(svc, policy)
	entryCtrl := controllers.NewWineEntryController(svc, policy)

	router.GET("/admin/tables", tableCtrl.ListTables)
	router.POST("/admin/tables", tableCtrl.CreateTable)
	router.GET("/admin/tables/:table_id", tableCtrl.GetTableByID)
	router.PATCH("/admin/tables/:table_id", tableCtrl.PatchTable)
	router.GET("/admin/tables/:table_id/events", tableCtrl.GetTableEvents)
	router.POST("/admin/tables/:table_id/arrive", tableCtrl.ArriveTable)
	router.POST("/admin/tables/:table_id/seat", tableCtrl.SeatTable)
	router.POST("/admin/tables/:table_id/next", tableCtrl.NextStep)
	router.POST("/admin/tables/:table_id/undo", tableCtrl.UndoStep)
	router.POST("/admin/tables/:table_id/complete", tableCtrl.CompleteTable)
	router.POST("/admin/tables/:table_id/cancel", tableCtrl.CancelTable)
	router.POST("/admin/tables/:table_id/guests", guestCtrl.AddGuest)
	router.PATCH("/admin/tables/:table_id/guests/:guest_id", guestCtrl.PatchGuest)
	router.DELETE("/admin/tables/:table_id/guests/:guest_id", guestCtrl.DeleteGuest)
	router.POST("/admin/tables/:table_id/wine-entries", entryCtrl.AddWineEntry)
	router.PATCH("/admin/tables/:table_id/wine-entries/:entry_id", entryCtrl.PatchWineEntry)
	router.DELETE("/admin/tables/:table_id/wine-entries/:entry_id", entryCtrl.DeleteWineEntry)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	return response
}

func createTableHTTP(t *testing.T, router *gin.Engine, number string) uint {
	t.Helper()
	w := doJSON(t, router, "POST", "/admin/tables", map[string]interface{}{
		"table_number": number,
		"guest_count":  2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	return uint(data["id"].(float64))
}

func TestCreateTable(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "manager")

	w := doJSON(t, router, "POST", "/admin/tables", map[string]interface{}{
		"table_number": "A1",
		"location":     "patio",
		"guest_count":  4,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, "Table created successfully", response["message"])
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "open", data["status"])
	assert.Equal(t, float64(0), data["step_index"])
	assert.NotEmpty(t, data["updated_at"])
}

func TestCreateTableRequiresTableNumber(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "manager")

	w := doJSON(t, router, "POST", "/admin/tables", map[string]interface{}{
		"guest_count": 4,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTablesWatermarkDelta(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")

	id1 := createTableHTTP(t, router, "A1")
	createTableHTTP(t, router, "B2")

	// full load tanpa updated_since
	w := doJSON(t, router, "GET", "/admin/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 2)

	// watermark = updated_at item terbaru (urut desc)
	watermark := items[0].(map[string]interface{})["updated_at"].(string)

	// delta dengan watermark terkini: strictly greater, jadi kosong
	w = doJSON(t, router, "GET", "/admin/tables?updated_since="+watermark, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	assert.Empty(t, data["items"])

	// satu transisi, delta berikutnya hanya membawa meja itu
	w = doJSON(t, router, "POST", fmt.Sprintf("/admin/tables/%d/next", id1), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/admin/tables?updated_since="+watermark, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	items = data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, float64(id1), items[0].(map[string]interface{})["id"])
}

func TestListTablesPagingFallback(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")
	createTableHTTP(t, router, "A1")

	// page/limit tidak valid jatuh ke default, bukan error atau nol
	w := doJSON(t, router, "GET", "/admin/tables?page=abc&limit=-5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(50), data["limit"])
	assert.Len(t, data["items"], 1)
}

func TestListTablesRejectsBadTimestamp(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")

	w := doJSON(t, router, "GET", "/admin/tables?updated_since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchTableCannotTouchStatusOrStep(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "manager")
	id := createTableHTTP(t, router, "A1")

	// field di luar kontrak patch diabaikan, bukan diterapkan
	w := doJSON(t, router, "PATCH", fmt.Sprintf("/admin/tables/%d", id), map[string]interface{}{
		"notes":      "anniversary",
		"status":     "completed",
		"step_index": 9,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "anniversary", data["notes"])
	assert.Equal(t, "open", data["status"])
	assert.Equal(t, float64(0), data["step_index"])
}

func TestTransitionFlowOverHTTP(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")
	id := createTableHTTP(t, router, "A1")

	base := fmt.Sprintf("/admin/tables/%d", id)

	// seat sebelum arrive -> 409
	w := doJSON(t, router, "POST", base+"/seat", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "POST", base+"/arrive", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", base+"/seat", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for i := 1; i <= 3; i++ {
		w = doJSON(t, router, "POST", base+"/next", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]interface{})
		assert.Equal(t, float64(i), data["step_index"])
	}

	w = doJSON(t, router, "POST", base+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(3), data["step_index"])

	// terminal: next ditolak 409, step tetap beku
	w = doJSON(t, router, "POST", base+"/next", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "GET", base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["step_index"])
}

func TestTransitionUnknownTable(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")

	w := doJSON(t, router, "POST", "/admin/tables/999/arrive", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSommelierPolicy(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)

	// seed lewat role yang berwenang
	manager := setupTableRouter(db, "manager")
	id := createTableHTTP(t, manager, "A1")

	sommelier := setupTableRouter(db, "sommelier")

	// sommelier tidak boleh membuat meja atau menjalankan transisi
	w := doJSON(t, sommelier, "POST", "/admin/tables", map[string]interface{}{
		"table_number": "B2",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, sommelier, "POST", fmt.Sprintf("/admin/tables/%d/arrive", id), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// tapi boleh mencatat wine entry
	w = doJSON(t, sommelier, "POST", fmt.Sprintf("/admin/tables/%d/wine-entries", id), map[string]interface{}{
		"kind":     "btg",
		"label":    "Chablis 2022",
		"quantity": 2,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGuestSubresourceFlow(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")
	id := createTableHTTP(t, router, "A1")

	w := doJSON(t, router, "POST", fmt.Sprintf("/admin/tables/%d/guests", id), map[string]interface{}{
		"name":    "Eka",
		"allergy": "shellfish",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	guest := decodeBody(t, w)["data"].(map[string]interface{})
	guestID := uint(guest["id"].(float64))
	assert.Equal(t, "shellfish", guest["allergy"])

	w = doJSON(t, router, "PATCH", fmt.Sprintf("/admin/tables/%d/guests/%d", id, guestID), map[string]interface{}{
		"doneness": "medium rare",
	})
	require.Equal(t, http.StatusOK, w.Code)
	guest = decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "medium rare", guest["doneness"])
	assert.Equal(t, "shellfish", guest["allergy"])

	// detail memuat guest + event log
	w = doJSON(t, router, "GET", fmt.Sprintf("/admin/tables/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["guests"], 1)

	w = doJSON(t, router, "DELETE", fmt.Sprintf("/admin/tables/%d/guests/%d", id, guestID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "DELETE", fmt.Sprintf("/admin/tables/%d/guests/%d", id, guestID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWineEntryValidation(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")
	id := createTableHTTP(t, router, "A1")

	w := doJSON(t, router, "POST", fmt.Sprintf("/admin/tables/%d/wine-entries", id), map[string]interface{}{
		"kind": "magnum",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", fmt.Sprintf("/admin/tables/%d/wine-entries", id), map[string]interface{}{
		"kind":     "bottle",
		"quantity": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTerminalTableRejectsChildMutation(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")
	id := createTableHTTP(t, router, "A1")

	w := doJSON(t, router, "POST", fmt.Sprintf("/admin/tables/%d/cancel", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", fmt.Sprintf("/admin/tables/%d/guests", id), map[string]interface{}{
		"name": "Fajar",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "PATCH", fmt.Sprintf("/admin/tables/%d", id), map[string]interface{}{
		"notes": "late",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTableEventsEndpoint(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForTables(t)
	router := setupTableRouter(db, "server")
	id := createTableHTTP(t, router, "A1")

	base := fmt.Sprintf("/admin/tables/%d", id)
	for _, op := range []string{"arrive", "seat", "next", "complete"} {
		w := doJSON(t, router, "POST", base+"/"+op, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, router, "GET", base+"/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, events, 4)

	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.(map[string]interface{})["event_type"].(string))
	}
	assert.Equal(t, []string{"arrival", "seat", "advance", "completion"}, types)

	// actor dari context auth ikut tercatat
	first := events[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["actor_id"])
}
