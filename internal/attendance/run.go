package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// ErrQueryImage is returned when faces cannot be extracted from the group photo.
var ErrQueryImage = errors.New("failed to process group photo")

// DetectFaces prepares the group photo and extracts every face in it.
func DetectFaces(ctx context.Context, ext extractor.Extractor, imageData []byte) ([]QueryFace, error) {
	data, err := extractor.PrepareImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryImage, err)
	}
	res, err := ext.DetectAndEncode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryImage, err)
	}

	faces := make([]QueryFace, len(res.Faces))
	for i, f := range res.Faces {
		faces[i] = QueryFace{Descriptor: f.Descriptor, BBox: f.BBox}
	}
	return faces, nil
}

// Run detects faces in the group photo and marks attendance for the cohort.
func Run(ctx context.Context, ext extractor.Extractor, g *gallery.Gallery, m *Matcher, cohort roster.Cohort, imageData []byte) (*Report, error) {
	faces, err := DetectFaces(ctx, ext, imageData)
	if err != nil {
		return nil, err
	}
	for _, f := range faces {
		if g.Dim > 0 && len(f.Descriptor) != g.Dim {
			return nil, fmt.Errorf("%w: descriptor has %d values, gallery uses %d", ErrQueryImage, len(f.Descriptor), g.Dim)
		}
	}

	report := m.MatchCohort(g, cohort, faces)
	logging.Info(logging.Fields{
		"cohort":       cohort.String(),
		"faces":        report.FacesDetected,
		"present":      report.PresentCount(),
		"students":     len(report.Rows),
		"unrecognized": report.UnrecognizedFaces,
	}, "attendance marked")
	return report, nil
}
