package queue

import (
	"context"

	"github.com/go-redis/redis/v8"

	"hls-downloader/internal/domain/entities"
)

// ProgressPublisher mirrors every progress event to {prefix}:{taskID}.
type ProgressPublisher struct {
	rdb    *redis.Client
	prefix string
}

func NewProgressPublisher(rdb *redis.Client, prefix string) *ProgressPublisher {
	return &ProgressPublisher{rdb: rdb, prefix: prefix}
}

func Channel(prefix, taskID string) string {
	return prefix + ":" + taskID
}

func (p *ProgressPublisher) Publish(ctx context.Context, ev entities.ProgressEvent) error {
	payload, err := serializeEvent(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel(p.prefix, ev.TaskID), payload).Err()
}
