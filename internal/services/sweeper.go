package services

import (
	"context"
	"fmt"
	"time"

	"atelier/pkg/media"

	"go.uber.org/zap"
)

// ReferenceSource reports the media URLs an entity collection still uses.
type ReferenceSource interface {
	References(ctx context.Context) ([]string, error)
}

// MediaSweeper deletes stored objects no record references. Objects younger
// than Grace are kept so uploads of in-flight requests survive.
type MediaSweeper struct {
	store   media.Store
	sources []ReferenceSource
	grace   time.Duration
	now     func() time.Time
}

// NewMediaSweeper creates a MediaSweeper over the given reference sources.
func NewMediaSweeper(store media.Store, grace time.Duration, sources ...ReferenceSource) *MediaSweeper {
	return &MediaSweeper{store: store, sources: sources, grace: grace, now: time.Now}
}

// Sweep removes orphaned objects and returns how many were deleted. If any
// source cannot be read nothing is deleted.
func (s *MediaSweeper) Sweep(ctx context.Context) (int, error) {
	referenced := make(map[string]struct{})
	for _, src := range s.sources {
		urls, err := src.References(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to collect media references: %w", err)
		}
		for _, u := range urls {
			referenced[u] = struct{}{}
		}
	}

	objects, err := s.store.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list media: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	deleted := 0
	for _, obj := range objects {
		if _, ok := referenced[obj.URL]; ok || obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.URL); err != nil {
			zap.L().Warn("sweep delete failed", zap.String("url", obj.URL), zap.Error(err))
			continue
		}
		deleted++
	}
	zap.L().Info("media sweep finished",
		zap.Int("objects", len(objects)), zap.Int("referenced", len(referenced)), zap.Int("deleted", deleted))
	return deleted, nil
}

// Run adapts Sweep to a cron job.
func (s *MediaSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		zap.L().Error("media sweep failed", zap.Error(err))
	}
}
