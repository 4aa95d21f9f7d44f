package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/DadDubz/wine-service-app/auth"
	"github.com/DadDubz/wine-service-app/controllers"
	"github.com/DadDubz/wine-service-app/middlewares"
	"github.com/DadDubz/wine-service-app/services"
)

func SetupRouter(db *gorm.DB, svc *services.TableService, policy auth.Policy) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	// Limiter global harus terpasang sebelum route terdaftar; gin membekukan
	// handler chain per route saat registrasi
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(db, policy)
	tableCtrl := controllers.NewTableController(db, svc, policy)
	guestCtrl := controllers.NewGuestController(svc, policy)
	entryCtrl := controllers.NewWineEntryController(svc, policy)
	wineCtrl := controllers.NewWineController(db)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Rate limiter untuk login/register
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Push events (websocket); token lewat query param
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/:role", controllers.FloorEventsHandler)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	authed := r.Group("/admin")
	authed.Use(middlewares.AuthMiddleware())

	authed.GET("/profile", userCtrl.GetProfile)
	authed.GET("/users", userCtrl.GetAllUsers)
	authed.POST("/logout", userCtrl.Logout)

	// TABLES: roster (watermark delta), detail, info patch
	authed.GET("/tables", tableCtrl.ListTables)
	authed.POST("/tables", tableCtrl.CreateTable)
	authed.GET("/tables/:table_id", tableCtrl.GetTableByID)
	authed.PATCH("/tables/:table_id", tableCtrl.PatchTable)
	authed.GET("/tables/:table_id/events", tableCtrl.GetTableEvents)

	// Transisi state machine; status/step_index hanya berubah lewat sini
	authed.POST("/tables/:table_id/arrive", tableCtrl.ArriveTable)
	authed.POST("/tables/:table_id/seat", tableCtrl.SeatTable)
	authed.POST("/tables/:table_id/next", tableCtrl.NextStep)
	authed.POST("/tables/:table_id/undo", tableCtrl.UndoStep)
	authed.POST("/tables/:table_id/complete", tableCtrl.CompleteTable)
	authed.POST("/tables/:table_id/cancel", tableCtrl.CancelTable)

	// GUESTS (sub-resource meja)
	authed.POST("/tables/:table_id/guests", guestCtrl.AddGuest)
	authed.PATCH("/tables/:table_id/guests/:guest_id", guestCtrl.PatchGuest)
	authed.DELETE("/tables/:table_id/guests/:guest_id", guestCtrl.DeleteGuest)

	// WINE ENTRIES (sub-resource meja)
	authed.POST("/tables/:table_id/wine-entries", entryCtrl.AddWineEntry)
	authed.PATCH("/tables/:table_id/wine-entries/:entry_id", entryCtrl.PatchWineEntry)
	authed.DELETE("/tables/:table_id/wine-entries/:entry_id", entryCtrl.DeleteWineEntry)

	// WINE CATALOG (read-only)
	authed.GET("/wines", wineCtrl.GetAllWines)
	authed.GET("/wines/:wine_id", wineCtrl.GetWineByID)

	return r
}
