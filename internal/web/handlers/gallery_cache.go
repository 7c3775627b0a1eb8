package handlers

import (
	"sync"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/index"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// GalleryCache holds the gallery served by the API together with its
// nearest-identity index. The gallery is loaded from the store on first use
// and replaced after each successful training job.
type GalleryCache struct {
	store   *gallery.FileStore
	metrics *metrics.Metrics

	mu      sync.RWMutex
	gallery *gallery.Gallery
	index   *index.Index
}

// NewGalleryCache creates a cache backed by store.
func NewGalleryCache(store *gallery.FileStore, m *metrics.Metrics) *GalleryCache {
	return &GalleryCache{store: store, metrics: m}
}

// Get returns the current gallery and index, loading them from the store if
// needed. It returns gallery.ErrGalleryNotFound before the first training.
func (c *GalleryCache) Get() (*gallery.Gallery, *index.Index, error) {
	c.mu.RLock()
	g, idx := c.gallery, c.index
	c.mu.RUnlock()
	if g != nil {
		return g, idx, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gallery != nil {
		return c.gallery, c.index, nil
	}
	g, err := c.store.Load()
	if err != nil {
		return nil, nil, err
	}
	c.setLocked(g)
	return c.gallery, c.index, nil
}

// Set replaces the served gallery.
func (c *GalleryCache) Set(g *gallery.Gallery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(g)
}

func (c *GalleryCache) setLocked(g *gallery.Gallery) {
	c.gallery = g
	c.index = index.Build(g)
	c.metrics.SetGallerySize(g.Len(), g.DescriptorCount())
}
