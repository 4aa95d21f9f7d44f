package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DadDubz/wine-service-app/auth"
	"github.com/DadDubz/wine-service-app/services"
	"github.com/DadDubz/wine-service-app/utils"
)

type GuestController struct {
	Service *services.TableService
	Policy  auth.Policy
}

func NewGuestController(svc *services.TableService, policy auth.Policy) *GuestController {
	return &GuestController{Service: svc, Policy: policy}
}

type guestRequest struct {
	Name          *string `json:"name"`
	Allergy       *string `json:"allergy"`
	ProteinSub    *string `json:"protein_sub"`
	Doneness      *string `json:"doneness"`
	Substitutions *string `json:"substitutions"`
	Notes         *string `json:"notes"`
}

func (r guestRequest) input() services.GuestInput {
	return services.GuestInput{
		Name:          r.Name,
		Allergy:       r.Allergy,
		ProteinSub:    r.ProteinSub,
		Doneness:      r.Doneness,
		Substitutions: r.Substitutions,
		Notes:         r.Notes,
	}
}

// AddGuest -> tamu baru di meja; hanya saat meja open
func (gc *GuestController) AddGuest(c *gin.Context) {
	if !allowed(c, gc.Policy, auth.ActionGuestWrite) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}

	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	guest, err := gc.Service.AddGuest(tableID, req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Guest added", guest)
}

// PatchGuest -> update preferensi tamu
func (gc *GuestController) PatchGuest(c *gin.Context) {
	if !allowed(c, gc.Policy, auth.ActionGuestWrite) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	guestID, ok := parseIDParam(c, "guest_id")
	if !ok {
		return
	}

	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	guest, err := gc.Service.PatchGuest(tableID, guestID, req.input())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest updated", guest)
}

// DeleteGuest -> hapus tamu dari meja
func (gc *GuestController) DeleteGuest(c *gin.Context) {
	if !allowed(c, gc.Policy, auth.ActionGuestWrite) {
		return
	}
	tableID, ok := parseIDParam(c, "table_id")
	if !ok {
		return
	}
	guestID, ok := parseIDParam(c, "guest_id")
	if !ok {
		return
	}

	if err := gc.Service.DeleteGuest(tableID, guestID); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest deleted", gin.H{
		"guest_id": guestID,
	})
}
