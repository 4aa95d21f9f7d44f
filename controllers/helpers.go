package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DadDubz/wine-service-app/auth"
	"github.com/DadDubz/wine-service-app/services"
	"github.com/DadDubz/wine-service-app/utils"
)

// parseIDParam -> path param id selalu uint positif
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid "+name))
		return 0, false
	}
	return uint(id), true
}

// actorFromContext -> user_id yang diset middleware auth; nil kalau tidak ada
func actorFromContext(c *gin.Context) *uint {
	v, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	id, ok := v.(uint)
	if !ok {
		return nil
	}
	return &id
}

// allowed -> enforce policy di server; cek di sisi client hanya UX
func allowed(c *gin.Context, p auth.Policy, action auth.Action) bool {
	roleVal, _ := c.Get("role")
	role, _ := roleVal.(string)
	if p == nil || !p.Can(role, action) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return false
	}
	return true
}

// respondServiceError memetakan error state machine ke kode HTTP.
// Konflik concurrent dan transisi tidak valid sama-sama 409: dari sisi
// caller keduanya berarti "state sudah berubah, fetch ulang".
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrValidation):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
