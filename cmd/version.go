package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and gallery format",
	Run: func(cmd *cobra.Command, args []string) {
		writeVersion(os.Stdout, config.Load().Paths.GalleryPath)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// writeVersion prints build metadata, the gallery format this binary writes
// and, when a trained gallery exists at galleryPath, which model built it.
func writeVersion(w io.Writer, galleryPath string) {
	fmt.Fprintf(w, "face-attendance %s\n", Version)
	fmt.Fprintf(w, "  Commit:         %s\n", CommitSHA)
	fmt.Fprintf(w, "  Built:          %s\n", BuildDate)
	fmt.Fprintf(w, "  Gallery format: v%d\n", gallery.FileVersion)

	g, err := gallery.NewFileStore(galleryPath).Load()
	switch {
	case errors.Is(err, gallery.ErrGalleryNotFound):
		fmt.Fprintf(w, "  Gallery:        not trained (%s)\n", galleryPath)
	case err != nil:
		fmt.Fprintf(w, "  Gallery:        unreadable, retrain (%s)\n", galleryPath)
	default:
		model := g.Model
		if model == "" {
			model = "unknown model"
		}
		fmt.Fprintf(w, "  Gallery:        %s, %d students, trained %s\n",
			model, g.Len(), g.BuiltAt.Format(constants.TimestampLayout))
	}
}
