package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"atelier/pkg/media"

	"go.uber.org/zap"
)

// MediaCleanupQueue carries blobs that are no longer referenced.
const MediaCleanupQueue = "media_cleanup"

// MediaCleaner discards blobs best-effort. Failures are logged, never returned.
type MediaCleaner interface {
	Discard(ctx context.Context, urls ...string)
}

// Publisher sends a message body to a named queue.
type Publisher interface {
	Publish(queue string, body []byte) error
}

// InlineCleaner deletes blobs from the store synchronously.
type InlineCleaner struct {
	Store media.Store
}

func (c InlineCleaner) Discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		err := c.Store.Delete(ctx, url)
		switch {
		case err == nil:
			zap.L().Debug("media discarded", zap.String("url", url))
		case errors.Is(err, media.ErrForeignURL):
			// Not ours to delete, e.g. a URL seeded by hand.
		default:
			zap.L().Warn("media cleanup failed", zap.String("url", url), zap.Error(err))
		}
	}
}

type noopCleaner struct{}

func (noopCleaner) Discard(context.Context, ...string) {}

type cleanupJob struct {
	URLs []string `json:"urls"`
}

// QueuedCleaner hands discards to a queue consumer, falling back to inline
// deletion when publishing fails.
type QueuedCleaner struct {
	Publisher Publisher
	Fallback  MediaCleaner
}

func (c QueuedCleaner) Discard(ctx context.Context, urls ...string) {
	urls = nonEmpty(urls)
	if len(urls) == 0 {
		return
	}
	body, err := json.Marshal(cleanupJob{URLs: urls})
	if err == nil {
		err = c.Publisher.Publish(MediaCleanupQueue, body)
	}
	if err != nil {
		zap.L().Warn("queueing media cleanup failed, deleting inline", zap.Error(err))
		c.Fallback.Discard(ctx, urls...)
	}
}

// HandleCleanupMessage decodes a queued cleanup job and runs it through cleaner.
func HandleCleanupMessage(ctx context.Context, cleaner MediaCleaner, body []byte) error {
	var job cleanupJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("invalid cleanup message: %w", err)
	}
	cleaner.Discard(ctx, job.URLs...)
	return nil
}

func nonEmpty(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
