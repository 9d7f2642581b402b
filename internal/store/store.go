// Package store persists meeting transcripts to PostgreSQL.
//
// Persistence is optional: a [TranscriptLog] created without a DSN is a
// no-op, so callers never need to branch on whether storage is configured.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Role identifies who produced a transcript entry.
type Role string

const (
	// RoleParticipant marks an utterance transcribed from a human participant.
	RoleParticipant Role = "participant"

	// RoleAgent marks a reply spoken by the meeting agent.
	RoleAgent Role = "agent"
)

// Entry is one row of the transcript log.
type Entry struct {
	MeetingID     string
	ParticipantID string
	Role          Role
	Text          string
	CreatedAt     time.Time
}

// schema is applied on connect. The table is append-only.
const schema = `
CREATE TABLE IF NOT EXISTS transcript_entries (
	id             BIGSERIAL PRIMARY KEY,
	meeting_id     TEXT        NOT NULL,
	participant_id TEXT        NOT NULL DEFAULT '',
	role           TEXT        NOT NULL,
	text           TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transcript_entries_meeting_idx
	ON transcript_entries (meeting_id, created_at DESC);
`

// TranscriptLog is an append-only log of utterances and replies, backed by a
// pgx connection pool. The zero value and a nil pointer are valid disabled
// logs. Safe for concurrent use.
type TranscriptLog struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and ensures the transcript schema exists. An
// empty dsn returns a disabled (no-op) log and no error.
func Open(ctx context.Context, dsn string) (*TranscriptLog, error) {
	if dsn == "" {
		return &TranscriptLog{}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &TranscriptLog{pool: pool}, nil
}

// Enabled reports whether entries are actually persisted.
func (l *TranscriptLog) Enabled() bool {
	return l != nil && l.pool != nil
}

// Append writes one entry. On a disabled log it returns nil immediately.
func (l *TranscriptLog) Append(ctx context.Context, e Entry) error {
	if !l.Enabled() {
		return nil
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO transcript_entries (meeting_id, participant_id, role, text)
		 VALUES ($1, $2, $3, $4)`,
		e.MeetingID, e.ParticipantID, string(e.Role), e.Text,
	)
	if err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest entries for a meeting, oldest first.
// On a disabled log it returns an empty slice.
func (l *TranscriptLog) Recent(ctx context.Context, meetingID string, n int) ([]Entry, error) {
	if !l.Enabled() || n <= 0 {
		return nil, nil
	}
	rows, err := l.pool.Query(ctx,
		`SELECT meeting_id, participant_id, role, text, created_at
		 FROM transcript_entries
		 WHERE meeting_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		meetingID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			role string
		)
		if err := rows.Scan(&e.MeetingID, &e.ParticipantID, &role, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		e.Role = Role(role)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Ping verifies database connectivity. Used as a readiness checker. On a
// disabled log it returns nil.
func (l *TranscriptLog) Ping(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}
	return l.pool.Ping(ctx)
}

// Close releases the connection pool.
func (l *TranscriptLog) Close() {
	if l.Enabled() {
		l.pool.Close()
	}
}
