package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

//go:embed cohorts.yaml
var cohortsYAML []byte

type Config struct {
	Paths     PathsConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Database  DatabaseConfig
	Log       LogConfig
	Web       WebConfig
	Cohorts   CohortsConfig
}

type PathsConfig struct {
	FacesDir       string // one sub-directory per student, named <reg_no>_<name>[_<branch>_<session>]
	GroupPhotosDir string // uploaded group photos
	OutputDir      string // attendance CSV files
	GalleryPath    string // persisted gallery (defaults to <OutputDir>/gallery.gob)
}

type EmbeddingConfig struct {
	URL     string        // defaults to http://localhost:8000
	Timeout time.Duration // per-image extractor timeout
}

type MatchingConfig struct {
	Tolerance        float64 // maximum descriptor distance accepted as a match
	TrainConcurrency int     // parallel extractor calls during training
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional mirror of gallery and attendance history)
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type LogConfig struct {
	Level string // logrus level name, defaults to info
	File  string // optional rotating log file
}

type WebConfig struct {
	AllowedOrigins []string // CORS origins besides localhost (WEB_ALLOWED_ORIGINS, comma-separated)
}

// CohortsConfig lists the branch and session values an institution offers.
type CohortsConfig struct {
	Branches []string `yaml:"branches"`
	Sessions []string `yaml:"sessions"`
}

// Validate checks that branch and session are among the configured options.
// Empty option lists accept anything.
func (c *CohortsConfig) Validate(branch, session string) error {
	if len(c.Branches) > 0 && !slices.Contains(c.Branches, branch) {
		return fmt.Errorf("unknown branch %q (allowed: %v)", branch, c.Branches)
	}
	if len(c.Sessions) > 0 && !slices.Contains(c.Sessions, session) {
		return fmt.Errorf("unknown session %q (allowed: %v)", session, c.Sessions)
	}
	return nil
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration ("30s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var cohorts CohortsConfig
	if err := yaml.Unmarshal(cohortsYAML, &cohorts); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded cohorts.yaml: " + err.Error())
	}

	outputDir := envString("OUTPUT_DIR", "output")

	return &Config{
		Paths: PathsConfig{
			FacesDir:       envString("FACES_DIR", "data/faces"),
			GroupPhotosDir: envString("GROUP_PHOTOS_DIR", "data/group_photos"),
			OutputDir:      outputDir,
			GalleryPath:    envString("GALLERY_PATH", outputDir+"/gallery.gob"),
		},
		Embedding: EmbeddingConfig{
			URL:     os.Getenv("EMBEDDING_URL"),
			Timeout: envDuration("EMBEDDING_TIMEOUT", 60*time.Second),
		},
		Matching: MatchingConfig{
			Tolerance:        envFloat("ATTENDANCE_TOLERANCE", constants.DefaultTolerance),
			TrainConcurrency: envInt("TRAIN_CONCURRENCY", constants.DefaultTrainConcurrency),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Log: LogConfig{
			Level: envString("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Cohorts: cohorts,
	}
}
