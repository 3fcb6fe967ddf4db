// Package queue provides durable at-least-once delivery of evaluation jobs
// over Redis Streams.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/aml-compliance/configs"
)

// Job is the durable unit of work a worker pulls off the stream: evaluate
// one transaction end to end.
type Job struct {
	TransactionID uuid.UUID `json:"transaction_id"`
}

// Message pairs a decoded Job with the stream message ID needed to
// acknowledge or dead-letter it.
type Message struct {
	ID  string
	Job Job
}

// Queue is the teacher's RedisStreamClient (internal/queue/redis_stream.go)
// retargeted from TransactionEvent payloads to Job payloads.
type Queue struct {
	client            *redis.Client
	streamName        string
	consumerGroup     string
	deadLetterStream  string
	maxRetries        int
	visibilityTimeout time.Duration
}

func New(cfg configs.RedisConfig) (*Queue, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	q := &Queue{
		client:            client,
		streamName:        cfg.StreamName,
		consumerGroup:     cfg.ConsumerGroup,
		deadLetterStream:  cfg.DeadLetterStream,
		maxRetries:        cfg.MaxRetries,
		visibilityTimeout: cfg.VisibilityTimeout,
	}

	if err := q.createConsumerGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("consumer group may already exist")
	}

	log.Info().Msg("job queue initialized")
	return q, nil
}

func (q *Queue) createConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.streamName, q.consumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

// Enqueue publishes a job for a transaction already persisted as PENDING.
func (q *Queue) Enqueue(ctx context.Context, job Job) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	msgID, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamName,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Debug().Str("message_id", msgID).Str("transaction_id", job.TransactionID.String()).Msg("job enqueued")
	return msgID, nil
}

// Consume claims abandoned pending messages first, falling back to new
// messages, matching the teacher's claim-before-read ordering.
func (q *Queue) Consume(ctx context.Context, consumerName string, count int64, blockDuration time.Duration) ([]Message, error) {
	claimed, err := q.claimPending(ctx, consumerName, count)
	if err != nil {
		log.Warn().Err(err).Msg("failed to claim pending messages")
	}
	if len(claimed) > 0 {
		return claimed, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.consumerGroup,
		Consumer: consumerName,
		Streams:  []string{q.streamName, ">"},
		Count:    count,
		Block:    blockDuration,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var out []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			job, err := parseJob(msg)
			if err != nil {
				log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to parse job")
				continue
			}
			out = append(out, Message{ID: msg.ID, Job: job})
		}
	}
	return out, nil
}

func (q *Queue) claimPending(ctx context.Context, consumerName string, count int64) ([]Message, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.streamName,
		Group:  q.consumerGroup,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	var messageIDs []string
	for _, p := range pending {
		if p.Idle >= q.visibilityTimeout {
			if p.RetryCount > int64(q.maxRetries) {
				continue
			}
			messageIDs = append(messageIDs, p.ID)
		}
	}
	if len(messageIDs) == 0 {
		return nil, nil
	}

	claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.streamName,
		Group:    q.consumerGroup,
		Consumer: consumerName,
		MinIdle:  q.visibilityTimeout,
		Messages: messageIDs,
	}).Result()
	if err != nil {
		return nil, err
	}

	var out []Message
	for _, msg := range claimed {
		job, err := parseJob(msg)
		if err != nil {
			log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to parse claimed job")
			continue
		}
		out = append(out, Message{ID: msg.ID, Job: job})
	}
	return out, nil
}

func parseJob(msg redis.XMessage) (Job, error) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return Job{}, fmt.Errorf("invalid message format")
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return job, nil
}

// Ack acknowledges a successfully processed job.
func (q *Queue) Ack(ctx context.Context, messageID string) error {
	if err := q.client.XAck(ctx, q.streamName, q.consumerGroup, messageID).Err(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// DeadLetter copies a job to the dead-letter stream, tagged with the error
// that failed it. The worker calls it for every failed evaluation and acks
// the original message separately.
func (q *Queue) DeadLetter(ctx context.Context, job Job, cause error) error {
	data, _ := json.Marshal(job)
	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.deadLetterStream,
		Values: map[string]interface{}{"data": string(data), "error": cause.Error()},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to dead-letter job: %w", err)
	}
	log.Warn().Str("transaction_id", job.TransactionID.String()).Err(cause).Msg("job sent to dead letter stream")
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
