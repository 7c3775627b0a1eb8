package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/index"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect the trained gallery",
}

var galleryInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show gallery statistics",
	Args:  cobra.NoArgs,
	RunE:  runGalleryInfo,
}

var galleryNearestCmd = &cobra.Command{
	Use:   "nearest <photo>",
	Short: "Show the students closest to each face in a photo",
	Long: `Detect faces in a photo and list the k closest students for each one,
with their descriptor distance. Useful to choose a tolerance or to find out
why a student was not recognized.

Examples:
  face-attendance gallery nearest class.jpg
  face-attendance gallery nearest class.jpg --k 3 --db`,
	Args: cobra.ExactArgs(1),
	RunE: runGalleryNearest,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryInfoCmd)
	galleryCmd.AddCommand(galleryNearestCmd)

	galleryNearestCmd.Flags().Int("k", constants.DefaultNearestLimit, "Number of students per face")
	galleryNearestCmd.Flags().Bool("db", false, "Search the PostgreSQL mirror instead of the local gallery")
	galleryNearestCmd.Flags().Bool("json", false, "Print results as JSON")
}

func runGalleryInfo(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	g, err := loadGallery(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Gallery:     %s\n", cfg.Paths.GalleryPath)
	if !g.BuiltAt.IsZero() {
		fmt.Printf("Built:       %s\n", g.BuiltAt.Format(constants.TimestampLayout))
	}
	if g.Model != "" {
		fmt.Printf("Model:       %s\n", g.Model)
	}
	fmt.Printf("Dimension:   %d\n", g.Dim)
	fmt.Printf("Students:    %d\n", g.Len())
	fmt.Printf("Descriptors: %d\n", g.DescriptorCount())

	cohorts := g.Cohorts()
	if len(cohorts) > 0 {
		fmt.Println("\nCohorts:")
	}
	for _, c := range cohorts {
		fmt.Printf("  %-20s %d students\n", c, len(g.Select(c.Filter())))
	}

	if ok, _ := connectDatabase(cmd.Context(), cfg); ok {
		if reader, err := database.GetGalleryReader(cmd.Context()); err == nil {
			if n, err := reader.CountStudents(cmd.Context()); err == nil {
				fmt.Printf("\nPostgreSQL mirror: %d students\n", n)
			}
		}
		if postgres.IsAvailable() {
			if versions, err := postgres.GetGlobalPool().MigrationsApplied(cmd.Context()); err == nil {
				fmt.Printf("Migrations:  %s\n", strings.Join(versions, ", "))
			}
		}
	}
	return nil
}

type nearestResult struct {
	Face       int              `json:"face"`
	BBox       []float64        `json:"bbox,omitempty"`
	Candidates []index.Neighbor `json:"candidates"`
}

func runGalleryNearest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()
	k := mustGetInt(cmd, "k")
	if k <= 0 {
		return fmt.Errorf("--k must be positive, got %d", k)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", extractor.ErrUnreadableImage, err)
	}

	var search func(f attendance.QueryFace) ([]index.Neighbor, error)
	if mustGetBool(cmd, "db") {
		if err := requireDatabase(cmd.Context(), cfg); err != nil {
			return err
		}
		reader, err := database.GetGalleryReader(ctx)
		if err != nil {
			return err
		}
		search = func(f attendance.QueryFace) ([]index.Neighbor, error) {
			found, err := reader.FindNearest(ctx, f.Descriptor, k)
			if err != nil {
				return nil, err
			}
			out := make([]index.Neighbor, len(found))
			for i, n := range found {
				out[i] = index.Neighbor{Identity: n.Identity, Distance: n.Distance}
			}
			return out, nil
		}
	} else {
		g, err := loadGallery(ctx, cfg)
		if err != nil {
			return err
		}
		idx := index.Build(g)
		search = func(f attendance.QueryFace) ([]index.Neighbor, error) {
			return idx.Nearest(f.Descriptor, k)
		}
	}

	faces, err := attendance.DetectFaces(ctx, newExtractor(cfg), data)
	if err != nil {
		return err
	}

	results := make([]nearestResult, 0, len(faces))
	for i, f := range faces {
		neighbors, err := search(f)
		if err != nil {
			return err
		}
		results = append(results, nearestResult{Face: i, BBox: f.BBox, Candidates: neighbors})
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Printf("Faces detected: %d (tolerance %.2f)\n", len(faces), cfg.Matching.Tolerance)
	for _, r := range results {
		fmt.Printf("\nFace %d %v\n", r.Face, r.BBox)
		for _, n := range r.Candidates {
			mark := ""
			if n.Distance <= cfg.Matching.Tolerance {
				mark = " *"
			}
			fmt.Printf("  %.4f  %s (%s)%s\n", n.Distance, n.Identity, n.Identity.Cohort(), mark)
		}
	}
	return nil
}
