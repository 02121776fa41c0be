package repository

import (
	"context"
	"fmt"
)

// InsertOutboxEvent queues a notification in the same transaction as the
// change it announces, so an event exists iff the change committed.
func (q *queries) InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error {
	query := `INSERT INTO outbox_events (event_id, aggregate_id, event_type, payload, processed, created_at)
	          VALUES ($1, $2, $3, $4, FALSE, NOW())
	          RETURNING id, created_at`

	err := q.db.QueryRowContext(ctx, query,
		event.EventID,
		event.AggregateID,
		event.EventType,
		event.Payload,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (q *queries) UnprocessedOutboxEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, event_id, aggregate_id, event_type, payload, created_at, processed
	          FROM outbox_events
	          WHERE processed = FALSE
	          ORDER BY id
	          LIMIT $1`

	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.EventID,
			&ev.AggregateID,
			&ev.EventType,
			&ev.Payload,
			&ev.CreatedAt,
			&ev.Processed,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (q *queries) MarkOutboxEventProcessed(ctx context.Context, id int64) error {
	query := `UPDATE outbox_events SET processed = TRUE WHERE id = $1`
	if _, err := q.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
