package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build the face gallery from reference photos",
	Long: `Scan the faces directory, extract one descriptor per reference photo and
save the resulting gallery. Each student has a sub-directory named
<reg_no>_<name>[_<branch>_<session>] with one or more photos.

The previous gallery is replaced only when training succeeds.

Examples:
  # Train from FACES_DIR with 4 concurrent extractor calls
  face-attendance train

  # Use a different directory and concurrency
  face-attendance train --faces-dir ./enrolment --concurrency 8

  # Also mirror the gallery to PostgreSQL
  face-attendance train --push`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("faces-dir", "", "Reference photo directory (overrides FACES_DIR)")
	trainCmd.Flags().Int("concurrency", 0, "Number of parallel extractor calls (overrides TRAIN_CONCURRENCY)")
	trainCmd.Flags().Bool("push", false, "Mirror the gallery to PostgreSQL (requires DATABASE_URL)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	facesDir := cfg.Paths.FacesDir
	if v := mustGetString(cmd, "faces-dir"); v != "" {
		facesDir = v
	}
	concurrency := cfg.Matching.TrainConcurrency
	if v := mustGetInt(cmd, "concurrency"); v > 0 {
		concurrency = v
	}
	push := mustGetBool(cmd, "push")

	var mirror database.GalleryWriter
	if push {
		fmt.Println("Connecting to PostgreSQL...")
		if err := requireDatabase(cmd.Context(), cfg); err != nil {
			return err
		}
		w, err := database.GetGalleryWriter(cmd.Context())
		if err != nil {
			return err
		}
		mirror = w
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Training from %s\n\n", facesDir)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Encoding faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	b := &gallery.Builder{
		Extractor:   newExtractor(cfg),
		Concurrency: concurrency,
		Progress: func(done, total int) {
			if bar.GetMax() != total {
				bar.ChangeMax(total)
			}
			_ = bar.Set(done)
		},
	}
	store := gallery.NewFileStore(cfg.Paths.GalleryPath)

	g, stats, err := gallery.Train(ctx, facesDir, b, store)
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("Found %d reference photos for %d students\n", stats.Samples, stats.Students)
	fmt.Printf("Encoded %d of %d photos in %s\n", stats.Encoded, stats.Samples, stats.Duration.Round(time.Millisecond))
	if stats.NoFace+stats.Unreadable+stats.Failed+stats.Rejected > 0 {
		fmt.Printf("Skipped: %d no face, %d unreadable, %d extractor errors, %d dimension mismatches\n",
			stats.NoFace, stats.Unreadable, stats.Failed, stats.Rejected)
	}
	if stats.MultiFace > 0 {
		fmt.Printf("Photos with several faces (first face used): %d\n", stats.MultiFace)
	}
	for _, id := range stats.Unusable {
		fmt.Printf("Warning: no usable reference photo for %s (%s)\n", id, id.Cohort())
	}
	for _, regNo := range stats.DuplicateRegNos {
		fmt.Printf("Warning: registration number %s is used by several students\n", regNo)
	}
	fmt.Printf("Gallery saved to %s: %d students, %d descriptors\n", store.Path(), g.Len(), g.DescriptorCount())

	if mirror != nil {
		if err := mirror.SaveGallery(ctx, g); err != nil {
			return fmt.Errorf("gallery saved locally but push failed: %w", err)
		}
		fmt.Println("Gallery pushed to PostgreSQL")
	}
	return nil
}
