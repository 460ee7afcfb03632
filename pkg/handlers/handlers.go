package handlers

import (
	"bufio"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/oncall-rota-go/pkg/auth"
	"github.com/arnavshah/oncall-rota-go/pkg/config"
	"github.com/arnavshah/oncall-rota-go/pkg/database"
	"github.com/arnavshah/oncall-rota-go/pkg/models"
	"github.com/arnavshah/oncall-rota-go/pkg/scheduler"
)

//go:embed static/*
var staticEmbed embed.FS

// Handler contains dependencies for the route handlers. The roster and
// cumulative ledger behind the rota-builder routes are guarded by a single
// writer lock; the one-shot API routes share nothing and skip it.
type Handler struct {
	DB  *gorm.DB
	Cfg *config.Config

	mu     sync.Mutex
	roster *models.Roster
	ledger *scheduler.Ledger
}

// New creates a Handler, loading the persisted fairness ledger
func New(db *gorm.DB, cfg *config.Config) (*Handler, error) {
	entries, err := database.LoadLedger(db)
	if err != nil {
		return nil, err
	}
	return &Handler{
		DB:     db,
		Cfg:    cfg,
		roster: models.NewRoster(),
		ledger: scheduler.NewLedgerFromEntries(entries),
	}, nil
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the API key for programmatic routes using HMAC
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		userID, err := auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      userID,
			RateLimit: 10000,
		})
		now := time.Now()
		h.DB.Model(&apiKey).Update("last_used", &now)

		c.Set("apiKey", &apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// RotaInterface serves the rota builder web page from embedded files
func (h *Handler) RotaInterface(c *gin.Context) {
	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "static/index.html not found in embedded FS"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// LoadUsersDirect replaces one tier's roster from a JSON body
func (h *Handler) LoadUsersDirect(c *gin.Context) {
	var input models.LoadUsersInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.setTier(c, models.Tier(input.Tier), input.Users)
}

// LoadUsersFile replaces one tier's roster from an uploaded line-delimited file
func (h *Handler) LoadUsersFile(c *gin.Context) {
	tier := models.Tier(c.PostForm("tier"))
	upload, err := c.FormFile("users_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "users_file is required"})
		return
	}

	f, err := upload.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open users file"})
		return
	}
	defer f.Close()

	var users []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			users = append(users, name)
		}
	}
	if err := sc.Err(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read users file"})
		return
	}
	h.setTier(c, tier, users)
}

func (h *Handler) setTier(c *gin.Context, tier models.Tier, users []string) {
	known := false
	for _, t := range models.TierOrder {
		if t == tier {
			known = true
		}
	}
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tier: " + string(tier)})
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No users provided"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.roster.SetTier(tier, users)
	c.JSON(http.StatusOK, gin.H{"tier": tier, "count": len(h.roster.Names(tier))})
}

// GetAllUsers returns every roster member across the three tiers
func (h *Handler) GetAllUsers(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	users := h.roster.All()
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	c.JSON(http.StatusOK, gin.H{"users": names})
}

// GenerateSchedule runs the engine for the requested month over the loaded
// roster, persists the updated ledger and a schedule record, and returns the
// calendar view
func (h *Handler) GenerateSchedule(c *gin.Context) {
	var input models.GenerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	year, month, err := scheduler.ParseMonth(input.MonthYear)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month/year format"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.roster.Len() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No users loaded"})
		return
	}

	s := scheduler.New(h.roster, splitPTO(input.PTO), h.ledger)
	s.Tolerance = h.Cfg.Tolerance
	result, err := s.Generate(year, month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.NewString()
	snapshot := result.Ledger.Snapshot()
	if err := database.SaveLedger(h.DB, snapshot); err != nil {
		logrus.WithError(err).Error("Failed to persist ledger")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not persist ledger"})
		return
	}

	raw, err := json.Marshal(result.Assignments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not encode assignments"})
		return
	}
	record := database.ScheduleRecord{
		RunID:           runID,
		Month:           month,
		Year:            year,
		AssignmentCount: len(result.Assignments),
		WarningCount:    len(result.Report),
		Assignments:     datatypes.JSON(raw),
	}
	if err := h.DB.Create(&record).Error; err != nil {
		logrus.WithError(err).Error("Failed to persist schedule record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not persist schedule"})
		return
	}

	h.ledger = result.Ledger

	logrus.WithFields(logrus.Fields{
		"run_id":      runID,
		"month":       month,
		"year":        year,
		"assignments": len(result.Assignments),
		"warnings":    len(result.Report),
	}).Info("Generated schedule")

	view := scheduleView(result.Assignments)
	c.JSON(http.StatusOK, models.GenerateResponse{
		Month:       month,
		Year:        year,
		MonthName:   time.Month(month).String(),
		Weeks:       monthView(year, month, view),
		Schedule:    view,
		Assignments: result.Assignments,
		Warnings:    result.Report,
		Ledger:      snapshot,
		RunID:       runID,
	})
}

// scheduleView flattens assignments into the date -> tier -> shift -> user
// map the browser works with. Weekly assignments appear on each day they cover.
func scheduleView(assignments []models.Assignment) map[string]map[string]map[string]string {
	view := make(map[string]map[string]map[string]string)
	for _, a := range assignments {
		for _, day := range a.Days() {
			date := day.Format("2006-01-02")
			if view[date] == nil {
				view[date] = make(map[string]map[string]string)
			}
			tier := string(a.Tier)
			if view[date][tier] == nil {
				view[date][tier] = make(map[string]string)
			}
			view[date][tier][string(a.Type)] = a.UserID
		}
	}
	return view
}

// monthView renders the Monday-Sunday week rows for the calendar grid
func monthView(year, month int, view map[string]map[string]map[string]string) []models.WeekView {
	weeks := scheduler.MonthWeeks(year, month)
	out := make([]models.WeekView, 0, len(weeks))
	for _, week := range weeks {
		wv := models.WeekView{
			Start: week.Start.Format("Jan 02"),
			End:   week.End.Format("Jan 02"),
		}
		for _, day := range week.Days() {
			date := day.Format("2006-01-02")
			shifts := make(map[string]string)
			for tier, byType := range view[date] {
				for st, user := range byType {
					if tier == string(models.TierUpgrade) {
						shifts["upgrade"] = user
					} else {
						shifts[tier+"_"+st] = user
					}
				}
			}
			wv.Days = append(wv.Days, models.DayView{
				Date:     day.Format("Mon 02"),
				FullDate: date,
				Shifts:   shifts,
			})
		}
		out = append(out, wv)
	}
	return out
}

// GetLedger returns the cumulative fairness ledger
func (h *Handler) GetLedger(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.ledger.Snapshot()
	c.JSON(http.StatusOK, gin.H{"ledger": entries, "count": len(entries)})
}

// ListSchedules returns the most recent generated schedule records
func (h *Handler) ListSchedules(c *gin.Context) {
	var records []database.ScheduleRecord
	if err := h.DB.Order("created_at desc").Limit(20).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch schedules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": records})
}

// ScheduleJSON handles the stateless one-shot scheduling request: rosters,
// PTO and an optional seed ledger travel in the body, nothing persists
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	year, month, err := scheduler.ParseMonth(input.MonthYear)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month/year format"})
		return
	}

	roster := models.NewRosterFromLists(input.Tier2Users, input.Tier3Users, input.UpgradeUsers)
	if roster.Len() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one user is required"})
		return
	}

	var seed *scheduler.Ledger
	if len(input.Ledger) > 0 {
		seed = scheduler.NewLedgerFromEntries(input.Ledger)
	}

	s := scheduler.New(roster, splitPTO(input.PTO), seed)
	s.Tolerance = h.Cfg.Tolerance
	result, err := s.Generate(year, month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.RecordUsage(c, len(result.Assignments), roster.Len())

	c.JSON(http.StatusOK, models.ScheduleResponse{
		Assignments: result.Assignments,
		Ledger:      result.Ledger.Snapshot(),
		Warnings:    result.Report,
	})
}

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, unitCount, userCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count": gorm.Expr("request_count + ?", 1),
			"total_units":   gorm.Expr("total_units + ?", unitCount),
			"total_users":   gorm.Expr("total_users + ?", userCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:        apiKey.ID,
		Date:         today,
		RequestCount: 1,
		TotalUnits:   unitCount,
		TotalUsers:   userCount,
	})
}

// splitPTO breaks each user's comma-separated PTO field into range strings
func splitPTO(pto map[string]string) map[string][]string {
	out := make(map[string][]string, len(pto))
	for user, ranges := range pto {
		out[user] = scheduler.SplitRanges(ranges)
	}
	return out
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	// Generate key using HMAC
	key := auth.GenerateHMACKey(req.Name)

	// Create preview (e.g., sk_...****)
	preview := ""
	if len(key) > 8 {
		preview = key[:3] + "..." + key[len(key)-4:]
	} else {
		preview = "****"
	}

	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview,
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	logrus.WithField("name", req.Name).Info("API key issued")
	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.APIKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	logrus.WithField("id", id).Info("API key revoked")
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	if err := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update key limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.APIUsage
	h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
