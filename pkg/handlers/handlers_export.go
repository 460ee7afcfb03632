package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arnavshah/oncall-rota-go/pkg/database"
	"github.com/arnavshah/oncall-rota-go/pkg/models"
	"github.com/arnavshah/oncall-rota-go/pkg/scheduler"
)

var exportHeader = []string{"Date", "Day", "Schedule", "Shift", "Time", "User", "Flags"}

// ExportCSV renders an assignment set as the spreadsheet handed to the
// on-call team: one row per covered day per shift, weekly shifts repeated
// across their seven days
func (h *Handler) ExportCSV(c *gin.Context) {
	var input models.ExportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(input.Assignments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No assignments to export"})
		return
	}

	type exportRow struct {
		day time.Time
		a   models.Assignment
	}
	rows := make([]exportRow, 0, len(input.Assignments))
	for _, a := range input.Assignments {
		for _, day := range a.Days() {
			rows = append(rows, exportRow{day: day, a: a})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].day.Equal(rows[j].day) {
			return rows[i].day.Before(rows[j].day)
		}
		if rows[i].a.Tier != rows[j].a.Tier {
			return tierRank(rows[i].a.Tier) < tierRank(rows[j].a.Tier)
		}
		return shiftRank(rows[i].a.Type) < shiftRank(rows[j].a.Type)
	})

	var out strings.Builder
	writer := csv.NewWriter(&out)
	writer.Write(exportHeader)
	for _, row := range rows {
		label := ""
		if def, ok := h.Cfg.ShiftFor(row.a.Tier, row.a.Type); ok {
			label = def.TimeLabel
		}
		writer.Write([]string{
			row.day.Format("2006-01-02"),
			row.day.Weekday().String(),
			string(row.a.Tier),
			string(row.a.Type),
			label,
			row.a.UserID,
			flagLabel(row.a),
		})
	}
	writer.Flush()

	c.Header("Content-Disposition", "attachment; filename=oncall_schedule.csv")
	c.Data(http.StatusOK, "text/csv", []byte(out.String()))
}

// ImportSchedule folds a previously exported schedule into the cumulative
// ledger. Weekly rows regroup into one unit per covered week; month counts
// are untouched.
func (h *Handler) ImportSchedule(c *gin.Context) {
	upload, err := c.FormFile("schedule_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schedule_file is required"})
		return
	}

	f, err := upload.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open schedule file"})
		return
	}
	defer f.Close()

	assignments, err := parseScheduleCSV(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(assignments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No assignments found in file"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.ledger.UpdateFromSchedule(assignments)
	snapshot := h.ledger.Snapshot()
	if err := database.SaveLedger(h.DB, snapshot); err != nil {
		logrus.WithError(err).Error("Failed to persist ledger")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not persist ledger"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"file":  upload.Filename,
		"units": len(assignments),
	}).Info("Imported prior schedule")

	c.JSON(http.StatusOK, models.ImportResponse{
		Imported: len(assignments),
		Ledger:   snapshot,
	})
}

// parseScheduleCSV reads exported rows back into assignments. Per-day rows of
// one weekly shift collapse into a single assignment on the week's Monday.
func parseScheduleCSV(r io.Reader) ([]models.Assignment, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "Schedule", "Shift", "User"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var order []string
	units := make(map[string]models.Assignment)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		day, err := time.Parse("2006-01-02", strings.TrimSpace(record[cols["Date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, record[cols["Date"]])
		}
		tier := models.Tier(strings.TrimSpace(record[cols["Schedule"]]))
		st := models.ShiftType(strings.TrimSpace(record[cols["Shift"]]))
		def, ok := models.ShiftDefinitionFor(tier, st)
		if !ok {
			return nil, fmt.Errorf("line %d: unknown shift %s/%s", line, tier, st)
		}
		user := strings.TrimSpace(record[cols["User"]])
		if user == "" {
			continue
		}

		a := models.Assignment{
			Unit:    day,
			Tier:    tier,
			Type:    st,
			Cadence: def.Cadence,
			UserID:  user,
		}
		if def.Cadence == models.CadenceWeekly {
			a.Unit = scheduler.WeekStart(day)
		}
		if fi, ok := cols["Flags"]; ok && fi < len(record) {
			flags := record[fi]
			a.IsDouble = strings.Contains(flags, "double")
			a.IsEmergency = strings.Contains(flags, "emergency")
		}

		key := string(tier) + "|" + string(st) + "|" + a.Unit.Format("2006-01-02") + "|" + user
		if _, seen := units[key]; !seen {
			units[key] = a
			order = append(order, key)
		}
	}

	out := make([]models.Assignment, 0, len(order))
	for _, key := range order {
		out = append(out, units[key])
	}
	return out, nil
}

func flagLabel(a models.Assignment) string {
	var flags []string
	if a.IsDouble {
		flags = append(flags, "double")
	}
	if a.IsEmergency {
		flags = append(flags, "emergency")
	}
	return strings.Join(flags, " ")
}

func tierRank(t models.Tier) int {
	for i, tier := range models.TierOrder {
		if tier == t {
			return i
		}
	}
	return len(models.TierOrder)
}

func shiftRank(st models.ShiftType) int {
	switch st {
	case models.ShiftMorning:
		return 0
	case models.ShiftEvening:
		return 1
	default:
		return 2
	}
}
