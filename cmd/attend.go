package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var attendCmd = &cobra.Command{
	Use:   "attend <group-photo>",
	Short: "Mark attendance from a group photo",
	Long: `Detect every face in a group photo and mark each student of the selected
cohort Present or Absent. The report is written as CSV to OUTPUT_DIR.

Without --branch and --session every trained student is considered.

Examples:
  # Mark attendance for a cohort
  face-attendance attend class.jpg --branch ECE --session 2023-2027

  # Stricter matching and JSON output
  face-attendance attend class.jpg --branch ECE --session 2023-2027 --tolerance 0.45 --json

  # Also store the run in PostgreSQL
  face-attendance attend class.jpg --branch ECE --session 2023-2027 --save`,
	Args: cobra.ExactArgs(1),
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().String("branch", "", "Branch of the cohort")
	attendCmd.Flags().String("session", "", "Session of the cohort, e.g. 2023-2027")
	attendCmd.Flags().Float64("tolerance", 0, "Maximum descriptor distance for a match (overrides ATTENDANCE_TOLERANCE)")
	attendCmd.Flags().Bool("json", false, "Print the full report as JSON")
	attendCmd.Flags().Bool("save", false, "Store the run in PostgreSQL (requires DATABASE_URL)")
	attendCmd.Flags().Bool("no-export", false, "Do not write the CSV report")
}

// resolveCohort validates --branch and --session against the configured options.
func resolveCohort(cmd *cobra.Command, cfg *config.Config) (roster.Cohort, error) {
	c := roster.Cohort{
		Branch:  strings.TrimSpace(mustGetString(cmd, "branch")),
		Session: strings.TrimSpace(mustGetString(cmd, "session")),
	}
	if c.IsZero() {
		return c, nil
	}
	if c.Branch == "" || c.Session == "" {
		return c, errors.New("--branch and --session must be given together")
	}
	if err := cfg.Cohorts.Validate(c.Branch, c.Session); err != nil {
		return c, err
	}
	return c, nil
}

func runAttend(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	cohort, err := resolveCohort(cmd, cfg)
	if err != nil {
		return err
	}
	tolerance := cfg.Matching.Tolerance
	if v := mustGetFloat64(cmd, "tolerance"); v > 0 {
		tolerance = v
	}

	var history database.AttendanceWriter
	if mustGetBool(cmd, "save") {
		if err := requireDatabase(cmd.Context(), cfg); err != nil {
			return err
		}
		if history, err = database.GetAttendanceWriter(ctx); err != nil {
			return err
		}
	}

	g, err := loadGallery(ctx, cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", extractor.ErrUnreadableImage, err)
	}

	report, err := attendance.Run(ctx, newExtractor(cfg), g, attendance.NewMatcher(tolerance), cohort, data)
	if err != nil {
		return err
	}

	var csvPath string
	if !report.NoEligibleStudents && !mustGetBool(cmd, "no-export") {
		if csvPath, err = report.Export(cfg.Paths.OutputDir); err != nil {
			return err
		}
	}

	if history != nil {
		run := database.NewAttendanceRun(uuid.New().String(), args[0], report)
		if err := history.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("failed to store attendance run: %w", err)
		}
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report, csvPath)
	return nil
}

func printReport(r *attendance.Report, csvPath string) {
	if r.NoEligibleStudents {
		fmt.Printf("No eligible students for %s\n", r.Cohort)
		return
	}

	fmt.Printf("Attendance for %s (tolerance %.2f)\n\n", r.Cohort, r.Tolerance)
	for _, row := range r.Rows {
		fmt.Printf("  %-12s %-30s %s\n", row.RegNo, row.Name, row.Status)
	}
	present := r.PresentCount()
	fmt.Printf("\nPresent: %d / %d\n", present, len(r.Rows))
	fmt.Printf("Faces detected: %d, matched: %d, unrecognized: %d\n", r.FacesDetected, r.FacesMatched, r.UnrecognizedFaces)
	if csvPath != "" {
		fmt.Printf("Report saved to %s\n", csvPath)
	}
}
