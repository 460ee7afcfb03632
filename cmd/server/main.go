package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/arnavshah/oncall-rota-go/pkg/auth"
	"github.com/arnavshah/oncall-rota-go/pkg/config"
	"github.com/arnavshah/oncall-rota-go/pkg/database"
	"github.com/arnavshah/oncall-rota-go/pkg/handlers"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)
	h, err := handlers.New(db, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load ledger")
	}

	r := gin.Default()

	// Rota builder interface - serve static files from embedded FS
	r.StaticFS("/static", h.GetStaticFS())
	r.GET("/", h.RotaInterface)

	// Stateful rota builder routes
	r.POST("/load_users", h.LoadUsersFile)
	r.POST("/load_users_direct", h.LoadUsersDirect)
	r.GET("/get_all_users", h.GetAllUsers)
	r.POST("/generate", h.GenerateSchedule)
	r.POST("/export", h.ExportCSV)
	r.POST("/import", h.ImportSchedule)
	r.GET("/ledger", h.GetLedger)
	r.GET("/schedules", h.ListSchedules)

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Scheduler Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.ScheduleJSON)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logrus.WithField("port", port).Info("Server starting")
	if err := r.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("Could not run server")
	}
}
