package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Mark class attendance from group photos",
	Long: `Face Attendance builds a gallery of face descriptors from per-student
reference photos and marks every student of a cohort Present or Absent by
matching the faces found in a group photo against that gallery.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		return logging.Setup(logging.Options{Level: level, File: cfg.Log.File})
	},
}

func Execute() {
	err := rootCmd.Execute()
	if cerr := postgres.CloseGlobalPool(); cerr != nil {
		logging.Warn(logging.Fields{"error": cerr}, "failed to close database pool")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
