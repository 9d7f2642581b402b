package store

import (
	"context"
	"testing"
)

func TestDisabledLogIsNoop(t *testing.T) {
	t.Parallel()

	log, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	if log.Enabled() {
		t.Error("Enabled() = true for empty DSN, want false")
	}

	if err := log.Append(context.Background(), Entry{MeetingID: "m1", Text: "hi"}); err != nil {
		t.Errorf("Append() on disabled log error = %v", err)
	}
	entries, err := log.Recent(context.Background(), "m1", 10)
	if err != nil {
		t.Errorf("Recent() on disabled log error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Recent() on disabled log = %d entries, want 0", len(entries))
	}
	if err := log.Ping(context.Background()); err != nil {
		t.Errorf("Ping() on disabled log error = %v", err)
	}
	log.Close()
}

func TestNilLogIsSafe(t *testing.T) {
	t.Parallel()

	var log *TranscriptLog
	if log.Enabled() {
		t.Error("Enabled() on nil log = true, want false")
	}
	if err := log.Append(context.Background(), Entry{}); err != nil {
		t.Errorf("Append() on nil log error = %v", err)
	}
}
