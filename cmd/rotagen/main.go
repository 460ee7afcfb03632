package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/arnavshah/oncall-rota-go/pkg/config"
	"github.com/arnavshah/oncall-rota-go/pkg/database"
	"github.com/arnavshah/oncall-rota-go/pkg/models"
	"github.com/arnavshah/oncall-rota-go/pkg/scheduler"
)

func main() {
	_ = godotenv.Load(".env")

	tier2Path := flag.String("tier2", "", "file with tier2 user names, one per line")
	tier3Path := flag.String("tier3", "", "file with tier3 user names, one per line")
	upgradePath := flag.String("upgrade", "", "file with upgrade user names, one per line")
	ptoPath := flag.String("pto", "", "PTO file with lines like 'alice: 01/03/2024-05/03/2024, 15/03/2024-20/03/2024'")
	monthYear := flag.String("month", "", "month to schedule as MM/YYYY (default: current month)")
	dbPath := flag.String("db", "", "sqlite database carrying the fairness ledger between runs")
	csvPath := flag.String("csv", "", "write the schedule as CSV to this path")
	configPath := flag.String("config", "", "config file path (default "+config.DefaultPath+")")
	flag.Parse()

	fmt.Println("=== SRE On-Call Schedule Generator ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	roster := models.NewRoster()
	loadTier(roster, models.TierTwo, "Tier 2", *tier2Path)
	loadTier(roster, models.TierThree, "Tier 3", *tier3Path)
	loadTier(roster, models.TierUpgrade, "Upgrade", *upgradePath)
	if roster.Len() == 0 {
		fmt.Println("Error: no users loaded; pass at least one of -tier2, -tier3, -upgrade")
		os.Exit(1)
	}

	pto := map[string][]string{}
	if *ptoPath != "" {
		pto, err = readPTOFile(*ptoPath)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	}

	year, month := resolveMonth(*monthYear)

	weeks := scheduler.MonthWeeks(year, month)
	fmt.Printf("\nScheduling for %s %d\n", time.Month(month), year)
	fmt.Printf("This includes %d weeks:\n", len(weeks))
	for i, w := range weeks {
		fmt.Printf("  Week %d: %s - %s\n", i+1, w.Start.Format("January 02"), w.End.Format("January 02"))
	}

	var db *gorm.DB
	var seed *scheduler.Ledger
	if *dbPath != "" {
		db, err = database.OpenSQLite(*dbPath)
		if err != nil {
			fmt.Println("Error: open database:", err)
			os.Exit(1)
		}
		entries, err := database.LoadLedger(db)
		if err != nil {
			fmt.Println("Error: load ledger:", err)
			os.Exit(1)
		}
		seed = scheduler.NewLedgerFromEntries(entries)
	}

	s := scheduler.New(roster, pto, seed)
	s.Tolerance = cfg.Tolerance

	fmt.Println("\nGenerating schedule...")
	result, err := s.Generate(year, month)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	printSchedule(result.Assignments, year, month)
	printWarnings(result.Report)

	if db != nil {
		if err := database.SaveLedger(db, result.Ledger.Snapshot()); err != nil {
			fmt.Println("Error: save ledger:", err)
			os.Exit(1)
		}
		fmt.Printf("\nLedger saved to %s\n", *dbPath)
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, cfg, result.Assignments); err != nil {
			fmt.Println("Error: export CSV:", err)
			os.Exit(1)
		}
		fmt.Printf("\nSchedule exported to %s\n", *csvPath)
	}
}

func loadTier(roster *models.Roster, tier models.Tier, label, path string) {
	if path == "" {
		return
	}
	names, err := readLines(path)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	roster.SetTier(tier, names)
	fmt.Printf("Loaded %d %s users\n", len(roster.Tier(tier)), label)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// readPTOFile parses one "name: range[, range...]" entry per line
func readPTOFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pto := make(map[string][]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		name, ranges, found := strings.Cut(text, ":")
		if !found {
			return nil, fmt.Errorf("%s line %d: expected 'name: ranges'", path, line)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%s line %d: empty user name", path, line)
		}
		pto[name] = append(pto[name], scheduler.SplitRanges(ranges)...)
	}
	return pto, scanner.Err()
}

func resolveMonth(s string) (year, month int) {
	if s != "" {
		y, m, err := scheduler.ParseMonth(s)
		if err == nil {
			return y, m
		}
		fmt.Println("Invalid format. Using current month.")
	}
	now := time.Now()
	return now.Year(), int(now.Month())
}

func printSchedule(assignments []models.Assignment, year, month int) {
	byDay := make(map[string]map[models.Tier]map[models.ShiftType]string)
	for _, a := range assignments {
		for _, day := range a.Days() {
			k := day.Format("2006-01-02")
			if byDay[k] == nil {
				byDay[k] = make(map[models.Tier]map[models.ShiftType]string)
			}
			if byDay[k][a.Tier] == nil {
				byDay[k][a.Tier] = make(map[models.ShiftType]string)
			}
			byDay[k][a.Tier][a.Type] = a.UserID
		}
	}

	fmt.Printf("\n=== ON-CALL SCHEDULE FOR %s %d ===\n", strings.ToUpper(time.Month(month).String()), year)

	for i, week := range scheduler.MonthWeeks(year, month) {
		fmt.Printf("\n--- Week %d: %s - %s ---\n", i+1,
			week.Start.Format("January 02"), week.End.Format("January 02, 2006"))

		for _, day := range week.Days() {
			shifts := byDay[day.Format("2006-01-02")]
			if shifts == nil {
				continue
			}
			fmt.Printf("\n%s:\n", day.Format("Monday, January 02"))

			if t2 := shifts[models.TierTwo]; t2 != nil {
				fmt.Println("  Tier 2:")
				if user, ok := t2[models.ShiftMorning]; ok {
					fmt.Printf("    11am-5pm EST: %s\n", user)
				}
				if user, ok := t2[models.ShiftEvening]; ok {
					fmt.Printf("    5pm-11pm EST: %s\n", user)
				}
			}
			if t3 := shifts[models.TierThree]; t3 != nil {
				fmt.Println("  Tier 3:")
				if user, ok := t3[models.ShiftMorning]; ok {
					fmt.Printf("    11am-5pm EST: %s\n", user)
				}
				if user, ok := t3[models.ShiftEvening]; ok {
					fmt.Printf("    5pm-11pm EST: %s\n", user)
				}
			}
			if up := shifts[models.TierUpgrade]; up != nil {
				if user, ok := up[models.ShiftFull]; ok {
					fmt.Printf("  Upgrade: 12pm-8:30pm EST: %s\n", user)
				}
			}
		}
	}
}

func printWarnings(report []models.Warning) {
	if len(report) == 0 {
		return
	}
	fmt.Printf("\n=== WARNINGS (%d) ===\n", len(report))
	for _, w := range report {
		fmt.Printf("  [%s] %s\n", w.Kind, w.Message)
	}
}

func writeCSV(path string, cfg *config.Config, assignments []models.Assignment) error {
	type exportRow struct {
		day time.Time
		a   models.Assignment
	}
	rows := make([]exportRow, 0, len(assignments))
	for _, a := range assignments {
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

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	writer.Write([]string{"Date", "Day", "Schedule", "Shift", "Time", "User", "Flags"})
	for _, row := range rows {
		label := ""
		if def, ok := cfg.ShiftFor(row.a.Tier, row.a.Type); ok {
			label = def.TimeLabel
		}
		var flags []string
		if row.a.IsDouble {
			flags = append(flags, "double")
		}
		if row.a.IsEmergency {
			flags = append(flags, "emergency")
		}
		writer.Write([]string{
			row.day.Format("2006-01-02"),
			row.day.Weekday().String(),
			string(row.a.Tier),
			string(row.a.Type),
			label,
			row.a.UserID,
			strings.Join(flags, " "),
		})
	}
	writer.Flush()
	return writer.Error()
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
