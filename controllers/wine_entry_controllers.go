package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DadDubz/wine-service-app/auth"
	"github.com/DadDubz/wine-service-app/services"
	"github.com/DadDubz/wine-service-app/utils"
)

type WineEntryController struct {
	Service *services.TableService
	Policy  auth.Policy
}

func NewWineEntryController(svc *services.TableService, policy auth.Policy) *WineEntryController {
	return &WineEntryController{Service: svc, Policy: policy}
}

type wineEntryRequest struct {
	Kind     *string `json:"kind"`
	WineID   *uint   `json:"wine_id"`
	Label    *string `json:"label"`
	Quantity *int    `json:"quantity"`
}

func (r wineEntryRequest) input() services.WineEntryInput {
	return services.WineEntryInput{
		Kind:     r.Kind,
		WineID:   r.WineID,
		Label:    r.Label,
		Quantity: r.Quantity,
	}
}

// AddWineEntry -> alokasi wine baru (bottle/btg) untuk meja open
func (wc *WineEntryController) AddWineEntry(c *gin.Context) {
	if !allowed(c, wc.Policy, auth.ActionWineEntryWrite) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	var req wineEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	entry, err := wc.Service.AddWineEntry(tableID, req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Wine entry added", entry)
}

// PatchWineEntry -> update alokasi wine
func (wc *WineEntryController) PatchWineEntry(c *gin.Context) {
	if !allowed(c, wc.Policy, auth.ActionWineEntryWrite) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	entryID, ok := parseIDParam(c, "entry_id")
	if !ok {
		return
	}

	var req wineEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	entry, err := wc.Service.PatchWineEntry(tableID, entryID, req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Wine entry updated", entry)
}

// DeleteWineEntry -> hapus alokasi wine dari meja
func (wc *WineEntryController) DeleteWineEntry(c *gin.Context) {
	if !allowed(c, wc.Policy, auth.ActionWineEntryWrite) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	entryID, ok := parseIDParam(c, "entry_id")
	if !ok {
		return
	}

	if err := wc.Service.DeleteWineEntry(tableID, entryID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Wine entry deleted", gin.H{
		"entry_id": entryID,
	})
}
