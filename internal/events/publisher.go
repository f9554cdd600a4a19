// Package events publishes query evaluation results to a Redis stream so
// downstream consumers (dashboards, merchandising jobs) can react without
// polling report files.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/searchforge/catalog-ranker/internal/config"
	"github.com/searchforge/catalog-ranker/internal/models"
)

const EventQueryEvaluated = "QUERY_EVALUATED"

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher writes evaluation events to a single stream.
type Publisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(cfg config.RedisConfig, logger *slog.Logger) *Publisher {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	return &Publisher{
		client: client,
		stream: cfg.Stream,
		logger: logger.With("component", "events"),
	}
}

// NewPublisherWithClient wires an existing client, used by tests.
func NewPublisherWithClient(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "events"),
	}
}

type queryEvaluatedPayload struct {
	RunID     string                  `json:"run_id,omitempty"`
	SiteKey   string                  `json:"site_key"`
	Query     string                  `json:"query"`
	Outcome   string                  `json:"outcome"`
	Entries   []models.ProductEntry   `json:"scraped_results"`
	Evaluated *models.QueryEvaluation `json:"evaluation,omitempty"`
}

// PublishQueryEvaluated emits one QUERY_EVALUATED event for a finished
// query. Failures are the caller's to log and ignore; publishing never
// blocks the batch.
func (p *Publisher) PublishQueryEvaluated(ctx context.Context, runID, siteKey string, result models.QueryResult) error {
	payload, err := json.Marshal(queryEvaluatedPayload{
		RunID:     runID,
		SiteKey:   siteKey,
		Query:     result.Query,
		Outcome:   string(result.Outcome),
		Entries:   result.Entries,
		Evaluated: result.Evaluated,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	eventID := uuid.New().String()
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"id":        eventID,
			"type":      EventQueryEvaluated,
			"timestamp": fmt.Sprintf("%d", time.Now().UnixNano()),
			"payload":   string(payload),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"event_id", eventID,
		"type", EventQueryEvaluated,
		"stream", p.stream,
		"query", result.Query)

	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
