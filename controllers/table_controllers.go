package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/DadDubz/wine-service-app/auth"
	"github.com/DadDubz/wine-service-app/services"
	"github.com/DadDubz/wine-service-app/utils"
)

type TableController struct {
	DB      *gorm.DB
	Service *services.TableService
	Policy  auth.Policy
}

func NewTableController(db *gorm.DB, svc *services.TableService, policy auth.Policy) *TableController {
	return &TableController{DB: db, Service: svc, Policy: policy}
}

// CreateTable -> menambahkan meja baru (selalu open, step 0)
func (tc *TableController) CreateTable(c *gin.Context) {
	if !allowed(c, tc.Policy, auth.ActionTableCreate) {
		return
	}

	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
		Location    string `json:"location"`
		GuestCount  int    `json:"guest_count"`
		Notes       string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Service.CreateTable(services.CreateTableInput{
		TableNumber: req.TableNumber,
		Location:    req.Location,
		GuestCount:  req.GuestCount,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// ListTables -> roster dengan filter status, paginasi, dan watermark delta.
// updated_since kosong = full load; isi = hanya meja dengan updated_at lebih baru.
func (tc *TableController) ListTables(c *gin.Context) {
	status := c.Query("status")
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 50)

	var updatedSince *time.Time
	if raw := c.Query("updated_since"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid updated_since, expected RFC3339"))
			return
		}
		updatedSince = &ts
	}

	result, err := tc.Service.ListTables(status, page, limit, updatedSince)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table roster", result)
}

// GetTableByID -> proyeksi penuh: guests, wine entries, event log
func (tc *TableController) GetTableByID(c *gin.Context) {
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	table, err := tc.Service.GetTable(tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// PatchTable -> hanya field informasi; status/step_index tidak pernah lewat sini
func (tc *TableController) PatchTable(c *gin.Context) {
	if !allowed(c, tc.Policy, auth.ActionTablePatch) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	var req struct {
		TableNumber *string `json:"table_number"`
		Location    *string `json:"location"`
		GuestCount  *int    `json:"guest_count"`
		Notes       *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Service.PatchTable(tableID, services.PatchTableInput{
		TableNumber: req.TableNumber,
		Location:    req.Location,
		GuestCount:  req.GuestCount,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// GetTableEvents -> audit trail transisi satu meja
func (tc *TableController) GetTableEvents(c *gin.Context) {
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	log, err := tc.Service.ListEvents(tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table events", log)
}

/*
========================================
 TRANSISI
========================================
*/

// ArriveTable -> tamu datang
func (tc *TableController) ArriveTable(c *gin.Context) {
	tc.runTransition(c, tc.Service.Arrive)
}

// SeatTable -> tamu duduk (setelah arrive)
func (tc *TableController) SeatTable(c *gin.Context) {
	tc.runTransition(c, tc.Service.Seat)
}

// NextStep -> maju satu langkah layanan
func (tc *TableController) NextStep(c *gin.Context) {
	tc.runTransition(c, tc.Service.Next)
}

// UndoStep -> mundur satu langkah
func (tc *TableController) UndoStep(c *gin.Context) {
	tc.runTransition(c, tc.Service.Undo)
}

// CompleteTable -> akhiri layanan secara normal
func (tc *TableController) CompleteTable(c *gin.Context) {
	tc.runTransition(c, tc.Service.Complete)
}

// CancelTable -> meja ditinggalkan
func (tc *TableController) CancelTable(c *gin.Context) {
	tc.runTransition(c, tc.Service.Cancel)
}

func (tc *TableController) runTransition(c *gin.Context, op func(uint, *uint) (*services.TransitionResult, error)) {
	if !allowed(c, tc.Policy, auth.ActionTableTransition) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	result, err := op(tableID, actorFromContext(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %d -> status=%s step=%d", result.TableID, result.Status, result.StepIndex)
	utils.RespondJSON(c, http.StatusOK, "Transition applied", result)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
