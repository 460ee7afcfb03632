package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/arnavshah/oncall-rota-go/pkg/auth"
	"github.com/arnavshah/oncall-rota-go/pkg/config"
	"github.com/arnavshah/oncall-rota-go/pkg/database"
	"github.com/arnavshah/oncall-rota-go/pkg/handlers"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	// Initialize DB
	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)
	h, err := handlers.New(db, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load ledger")
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	r = gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Static files served from embedded FS
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

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.ScheduleJSON)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
	}
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
