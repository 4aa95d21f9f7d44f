package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/DadDubz/wine-service-app/models"
	"github.com/DadDubz/wine-service-app/utils"
)

// WineController hanya read-only: katalog dikelola di luar API ini,
// WineEntry cukup bisa me-resolve label dari wine_id.
type WineController struct {
	DB *gorm.DB
}

func NewWineController(db *gorm.DB) *WineController {
	return &WineController{DB: db}
}

// GetAllWines -> daftar katalog, opsional filter ?btg=true
func (wc *WineController) GetAllWines(c *gin.Context) {
	q := wc.DB.Model(&models.Wine{})
	if c.Query("btg") == "true" {
		q = q.Where("by_the_glass = ?", true)
	}

	var wines []models.Wine
	if err := q.Order("name ASC").Find(&wines).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Wine catalog", wines)
}

// GetWineByID -> detail satu wine
func (wc *WineController) GetWineByID(c *gin.Context) {
	wineID, ok := parseIDParam(c, "wine_id")
	if !ok {
		return
	}

	var wine models.Wine
	if err := wc.DB.First(&wine, wineID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Wine detail", wine)
}
