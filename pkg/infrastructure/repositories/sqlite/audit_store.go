package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vsinha/medorder/pkg/infrastructure/events"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	stream TEXT NOT NULL,
	version INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	data TEXT NOT NULL,
	UNIQUE (stream, version)
);`

// AuditStore keeps the audit trail next to the overrides it describes
type AuditStore struct {
	db *sql.DB
}

// Verify interface compliance
var _ events.Store = (*AuditStore)(nil)

// AuditStore returns the audit trail sharing this repository's database
func (r *OverrideRepository) AuditStore() *AuditStore {
	return &AuditStore{db: r.db}
}

// AppendEvent stores event with the next version of its stream
func (s *AuditStore) AppendEvent(ctx context.Context, event events.Event) (events.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return events.Event{}, fmt.Errorf("failed to begin audit append: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM audit_events WHERE stream = ?`,
		event.Stream).Scan(&event.Version)
	if err != nil {
		return events.Event{}, fmt.Errorf("failed to version %s: %w", event.Stream, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO audit_events (event_type, stream, version, run_id, recorded_at, data)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.Type, event.Stream, event.Version, event.RunID,
		event.Recorded.UTC().Format(time.RFC3339Nano), string(event.Data))
	if err != nil {
		return events.Event{}, fmt.Errorf("failed to append %s event: %w", event.Type, err)
	}
	if event.Seq, err = res.LastInsertId(); err != nil {
		return events.Event{}, fmt.Errorf("failed to append %s event: %w", event.Type, err)
	}

	if err := tx.Commit(); err != nil {
		return events.Event{}, fmt.Errorf("failed to commit audit append: %w", err)
	}
	return event, nil
}

// ReadEvents returns the events of one stream from fromVersion on
func (s *AuditStore) ReadEvents(ctx context.Context, stream string, fromVersion int) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, event_type, stream, version, run_id, recorded_at, data
		FROM audit_events WHERE stream = ? AND version >= ? ORDER BY version`,
		stream, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit stream %s: %w", stream, err)
	}
	return scanEvents(rows)
}

// ReadAllEvents returns every event after afterSeq, oldest first
func (s *AuditStore) ReadAllEvents(ctx context.Context, afterSeq int64) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, event_type, stream, version, run_id, recorded_at, data
		FROM audit_events WHERE seq > ? ORDER BY seq`,
		afterSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]events.Event, error) {
	defer rows.Close()

	result := make([]events.Event, 0)
	for rows.Next() {
		var (
			event    events.Event
			recorded string
			data     string
		)
		if err := rows.Scan(&event.Seq, &event.Type, &event.Stream, &event.Version, &event.RunID, &recorded, &data); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, recorded)
		if err != nil {
			return nil, fmt.Errorf("corrupt audit event %d: %w", event.Seq, err)
		}
		event.Recorded = t
		event.Data = []byte(data)
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}
	return result, nil
}
