package queue

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SubmitFunc hands a decoded job to the download manager.
type SubmitFunc func(ctx context.Context, job *SubmissionJob) error

// SubmissionListener pops jobs from a redis list (BRPOP) and submits them.
type SubmissionListener struct {
	rdb     *redis.Client
	key     string
	submit  SubmitFunc
	log     *zap.Logger
	timeout time.Duration
	backoff time.Duration
}

func NewSubmissionListener(rdb *redis.Client, key string, submit SubmitFunc, log *zap.Logger) *SubmissionListener {
	return &SubmissionListener{
		rdb:     rdb,
		key:     key,
		submit:  submit,
		log:     log,
		timeout: time.Second,
		backoff: time.Second,
	}
}

// Enqueue pushes a job for a listener to pick up.
func Enqueue(ctx context.Context, rdb *redis.Client, key string, job SubmissionJob) error {
	payload, err := SerializeJob(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, key, payload).Err()
}

// Run blocks until ctx is done.
func (l *SubmissionListener) Run(ctx context.Context) {
	l.log.Info("submission listener started", zap.String("queue", l.key))
	for {
		if ctx.Err() != nil {
			l.log.Info("submission listener stopped", zap.String("queue", l.key))
			return
		}

		val, err := l.rdb.BRPop(ctx, l.timeout, l.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.log.Warn("BRPop failed", zap.Error(err))
			select {
			case <-time.After(l.backoff):
			case <-ctx.Done():
			}
			continue
		}

		job, err := DeserializeJob(val[1])
		if err != nil {
			l.log.Warn("DeserializeJob failed", zap.Error(err))
			continue
		}
		if err := l.submit(ctx, job); err != nil {
			l.log.Error("submission rejected", zap.String("url", job.URL), zap.Error(err))
			continue
		}
		l.log.Info("submission accepted", zap.String("url", job.URL), zap.String("title", job.Title))
	}
}
