package main

import (
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/DadDubz/wine-service-app/auth"
	"github.com/DadDubz/wine-service-app/config"
	"github.com/DadDubz/wine-service-app/models"
	"github.com/DadDubz/wine-service-app/router"
	"github.com/DadDubz/wine-service-app/services"
	"github.com/DadDubz/wine-service-app/utils"
)

func init() {
	// Load .env di awal sebelum apapun
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	// Simpan koneksi database untuk dipakai lintas package
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	svc := services.NewTableService(db)
	// Batas langkah layanan opsional; 0 = tanpa batas
	if raw := os.Getenv("SERVICE_MAX_STEP"); raw != "" {
		if maxStep, err := strconv.Atoi(raw); err == nil && maxStep > 0 {
			svc.MaxStep = maxStep
		}
	}

	policy := auth.DefaultPolicy()

	r := router.SetupRouter(db, svc, policy)
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.Guest{},
		&models.WineEntry{},
		&models.StepEvent{},
		&models.Wine{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
