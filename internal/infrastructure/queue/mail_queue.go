// Package queue implements the durable mail job queue on Redis Streams.
//
// Enqueue is an XADD — the job survives process restarts once the call
// returns. Workers consume through a consumer group with explicit XACK, so an
// unacked job is redelivered: at-least-once semantics, consumers must be
// idempotent per job id.
package queue

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storehub/admin-identity/internal/core/ports"
)

const (
	// ConsumerGroup is the worker consumer group name.
	ConsumerGroup = "mailers"

	maxStreamLen = 10000
)

// RedisMailQueue implements ports.MailQueue.
type RedisMailQueue struct {
	client *redis.Client
	stream string
}

var _ ports.MailQueue = (*RedisMailQueue)(nil)

func NewRedisMailQueue(client *redis.Client, stream string) *RedisMailQueue {
	return &RedisMailQueue{client: client, stream: stream}
}

// Publish durably appends the job to the stream and returns its id.
func (q *RedisMailQueue) Publish(ctx context.Context, job ports.MailJob) (string, error) {
	args := &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":        job.Kind,
			"account_id":  job.AccountID,
			"name":        job.Name,
			"email":       job.Email,
			"otp":         strconv.Itoa(job.OTP),
			"enqueued_at": job.EnqueuedAt.Format(time.RFC3339Nano),
		},
	}
	return q.client.XAdd(ctx, args).Result()
}

// CreateConsumerGroup creates the worker group, tolerating prior creation.
func (q *RedisMailQueue) CreateConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Consume reads up to count new jobs for the named consumer, blocking up to
// block. A nil slice with nil error means the block timed out empty.
func (q *RedisMailQueue) Consume(ctx context.Context, consumer string, count int64, block time.Duration) ([]ports.MailJob, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var jobs []ports.MailJob
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			jobs = append(jobs, decodeJob(msg))
		}
	}
	return jobs, nil
}

// Ack marks a job as done; it will not be redelivered.
func (q *RedisMailQueue) Ack(ctx context.Context, jobID string) error {
	return q.client.XAck(ctx, q.stream, ConsumerGroup, jobID).Err()
}

// Length returns the number of jobs currently held by the stream.
func (q *RedisMailQueue) Length(ctx context.Context) (int64, error) {
	return q.client.XLen(ctx, q.stream).Result()
}

func decodeJob(msg redis.XMessage) ports.MailJob {
	job := ports.MailJob{ID: msg.ID}
	if v, ok := msg.Values["kind"].(string); ok {
		job.Kind = v
	}
	if v, ok := msg.Values["account_id"].(string); ok {
		job.AccountID = v
	}
	if v, ok := msg.Values["name"].(string); ok {
		job.Name = v
	}
	if v, ok := msg.Values["email"].(string); ok {
		job.Email = v
	}
	if v, ok := msg.Values["otp"].(string); ok {
		if n, err := strconv.Atoi(v); err == nil {
			job.OTP = n
		}
	}
	if v, ok := msg.Values["enqueued_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			job.EnqueuedAt = t
		}
	}
	return job
}
