package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Builder turns reference samples into a Gallery.
type Builder struct {
	Extractor   extractor.Extractor
	Concurrency int
	// LoadImage reads and validates a sample image. Defaults to extractor.LoadImage.
	LoadImage func(path string) ([]byte, error)
	// Progress is called after each sample with the number processed so far.
	Progress func(done, total int)
	Now      func() time.Time
}

// BuildStats summarizes a training run.
type BuildStats struct {
	Samples int
	// Students counts the identities found among the samples, usable or not.
	Students   int
	Encoded    int
	NoFace     int
	MultiFace  int
	Unreadable int
	Failed     int
	Rejected   int // descriptor dimension did not match the gallery
	// Unusable lists identities that had samples but no usable reference.
	Unusable []roster.Identity
	// DuplicateRegNos lists registration numbers used by more than one
	// identity within a cohort.
	DuplicateRegNos []string
	Duration        time.Duration
}

type sampleResult struct {
	descriptor facematch.Descriptor
	model      string
	faces      int
	err        error
}

// Build extracts one descriptor per sample image and groups them by identity.
// Only the first detected face of an image is used. Samples are processed
// concurrently but the gallery is assembled in input order. Build fails only
// when ctx is cancelled; per-image problems are logged and counted.
func (b *Builder) Build(ctx context.Context, samples []Sample) (*Gallery, *BuildStats, error) {
	if b.Extractor == nil {
		return nil, nil, errors.New("gallery builder has no extractor")
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	start := now()

	results := b.extractAll(ctx, samples)
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("training interrupted: %w", err)
	}

	g := New()
	ids := Roster(samples)
	stats := &BuildStats{Samples: len(samples), Students: len(ids)}
	for i, s := range samples {
		r := results[i]
		fields := logging.Fields{"student": s.Identity.Key(), "path": s.Path}
		if r.err != nil {
			fields["error"] = r.err
		}
		switch {
		case errors.Is(r.err, extractor.ErrUnreadableImage):
			stats.Unreadable++
			logging.Warn(fields, "skipping unreadable image")
			continue
		case r.err != nil:
			stats.Failed++
			logging.Warn(fields, "face extraction failed")
			continue
		case r.faces == 0:
			stats.NoFace++
			logging.Warn(fields, "no face detected")
			continue
		case r.faces > 1:
			stats.MultiFace++
			logging.Warn(logging.Fields{"student": s.Identity.Key(), "path": s.Path, "faces": r.faces},
				"multiple faces detected, using the first")
		}

		if err := g.Add(s.Identity, r.descriptor); err != nil {
			stats.Rejected++
			fields["error"] = err
			logging.Warn(fields, "rejecting descriptor")
			continue
		}
		if g.Model == "" {
			g.Model = r.model
		}
		stats.Encoded++
	}

	for _, id := range ids {
		if _, ok := g.lookup(id); !ok {
			stats.Unusable = append(stats.Unusable, id)
			logging.Warn(logging.Fields{"student": id.Key()}, "no usable references, student excluded from gallery")
		}
	}
	stats.DuplicateRegNos = duplicateRegNos(g.Identities())
	for _, regNo := range stats.DuplicateRegNos {
		logging.Warn(logging.Fields{"reg_no": regNo}, "registration number used by more than one student in a cohort")
	}

	g.BuiltAt = now()
	stats.Duration = g.BuiltAt.Sub(start)
	logging.Info(logging.Fields{
		"students":    g.Len(),
		"descriptors": g.DescriptorCount(),
		"samples":     stats.Samples,
		"duration":    stats.Duration.String(),
	}, "gallery built")
	return g, stats, nil
}

// extractAll runs the extractor over every sample with bounded concurrency.
// results[i] always belongs to samples[i].
func (b *Builder) extractAll(ctx context.Context, samples []Sample) []sampleResult {
	concurrency := b.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultTrainConcurrency
	}
	load := b.LoadImage
	if load == nil {
		load = extractor.LoadImage
	}

	results := make([]sampleResult, len(samples))
	var done int
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, s := range samples {
		wg.Add(1)
		go func(i int, s Sample) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = b.extractOne(ctx, load, s)

			if b.Progress != nil {
				mu.Lock()
				done++
				b.Progress(done, len(samples))
				mu.Unlock()
			}
		}(i, s)
	}

	wg.Wait()
	return results
}

func (b *Builder) extractOne(ctx context.Context, load func(string) ([]byte, error), s Sample) sampleResult {
	if err := ctx.Err(); err != nil {
		return sampleResult{err: err}
	}
	data, err := load(s.Path)
	if err != nil {
		if !errors.Is(err, extractor.ErrUnreadableImage) {
			err = fmt.Errorf("%w: %w", extractor.ErrUnreadableImage, err)
		}
		return sampleResult{err: err}
	}
	res, err := b.Extractor.DetectAndEncode(ctx, data)
	if err != nil {
		return sampleResult{err: err}
	}
	if len(res.Faces) == 0 {
		return sampleResult{model: res.Model}
	}
	return sampleResult{
		descriptor: res.Faces[0].Descriptor,
		model:      res.Model,
		faces:      len(res.Faces),
	}
}

// duplicateRegNos finds registration numbers shared by different identities
// of the same cohort.
func duplicateRegNos(ids []roster.Identity) []string {
	type cohortReg struct {
		cohort roster.Cohort
		regNo  string
	}
	seen := make(map[cohortReg]int)
	var dups []string
	for _, id := range ids {
		k := cohortReg{id.Cohort(), id.RegNo}
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, id.RegNo)
		}
	}
	return dups
}
