// Package publisher persists collected documents to PostgreSQL and publishes
// extraction events to Kafka. Writes are idempotent on the source's external
// ID, so re-fetching an already-collected page is a no-op.
package publisher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/evidencelab/symptom-signal-platform/internal/collector"
	"github.com/evidencelab/symptom-signal-platform/pkg/kafka"
	"github.com/evidencelab/symptom-signal-platform/pkg/postgres"
	"github.com/google/uuid"
)

// Publisher coordinates document persistence and Kafka event production.
//
// It requires a `documents` table:
//
//	CREATE TABLE documents (
//	    id           UUID PRIMARY KEY,
//	    source       TEXT NOT NULL,
//	    external_id  TEXT NOT NULL,
//	    subreddit    TEXT,
//	    title        TEXT NOT NULL,
//	    body_size    INT NOT NULL,
//	    collected_at TIMESTAMPTZ NOT NULL,
//	    UNIQUE (source, external_id)
//	);
type Publisher struct {
	db       *postgres.Client
	producer *kafka.Producer
	logger   *slog.Logger
}

// New creates a Publisher with the given database and Kafka producer.
func New(db *postgres.Client, producer *kafka.Producer) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		logger:   slog.Default().With("component", "collector-publisher"),
	}
}

// PublishPost persists a Reddit post and emits a PostEvent. It returns
// (false, nil) when the post was already collected.
func (p *Publisher) PublishPost(ctx context.Context, post collector.Post) (bool, error) {
	event := collector.PostEvent{
		PostID:      uuid.NewString(),
		Source:      collector.SourceReddit,
		ExternalID:  post.ExternalID,
		Subreddit:   post.Subreddit,
		Title:       post.Title,
		Body:        post.Body,
		CollectedAt: time.Now().UTC(),
	}
	return p.publish(ctx, event)
}

// PublishPaper persists a PubMed paper and emits a PostEvent carrying the
// abstract as the body.
func (p *Publisher) PublishPaper(ctx context.Context, paper collector.Paper) (bool, error) {
	event := collector.PostEvent{
		PostID:      uuid.NewString(),
		Source:      collector.SourcePubMed,
		ExternalID:  paper.PMID,
		Title:       paper.Title,
		Body:        paper.Abstract,
		CollectedAt: time.Now().UTC(),
	}
	return p.publish(ctx, event)
}

func (p *Publisher) publish(ctx context.Context, event collector.PostEvent) (bool, error) {
	inserted := false
	err := p.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, source, external_id, subreddit, title, body_size, collected_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (source, external_id) DO NOTHING`,
			event.PostID, event.Source, event.ExternalID,
			nullableString(event.Subreddit), event.Title, len(event.Body), event.CollectedAt,
		)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = rows > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("persisting document %s/%s: %w", event.Source, event.ExternalID, err)
	}
	if !inserted {
		p.logger.Debug("duplicate document skipped",
			"source", event.Source,
			"external_id", event.ExternalID,
		)
		return false, nil
	}

	if err := p.producer.Publish(ctx, kafka.Event{Key: event.PostID, Value: event}); err != nil {
		// The row is persisted; a later backfill can re-emit it.
		p.logger.Error("failed to publish post event, document stored but not queued",
			"post_id", event.PostID,
			"source", event.Source,
			"error", err,
		)
	}
	return true, nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
