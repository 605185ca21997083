package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sachifps/sell-smart-start-sub000/engine"
)

func event(recordID string, action engine.AuditAction, actor string, at time.Time) engine.AuditEvent {
	return engine.AuditEvent{
		Table:    "sales",
		RecordID: engine.RecordID(recordID),
		Action:   action,
		Actor:    actor,
		At:       at,
	}
}

func at(hour int) time.Time {
	return time.Date(2024, time.June, 1, hour, 0, 0, 0, time.UTC)
}

func TestAttributionFor_FoldsLifecycle(t *testing.T) {
	// GIVEN: created, two updates, then deleted for one record
	// WHEN: Folding the ordered log
	// THEN: created keeps the first actor, updated/deleted keep the latest

	events := []engine.AuditEvent{
		event("T00001", engine.ActionCreated, "alice", at(1)),
		event("T00001", engine.ActionUpdated, "bob", at(2)),
		event("T00001", engine.ActionUpdated, "carol", at(3)),
		event("T00001", engine.ActionDeleted, "dave", at(4)),
	}

	records, err := engine.AttributionFor(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, ok := records["T00001"]
	if !ok {
		t.Fatal("expected attribution for T00001")
	}
	if rec.Created == nil || rec.Created.By != "alice" {
		t.Errorf("created: expected alice, got %+v", rec.Created)
	}
	if rec.Updated == nil || rec.Updated.By != "carol" || !rec.Updated.At.Equal(at(3)) {
		t.Errorf("updated: expected carol@t3, got %+v", rec.Updated)
	}
	if rec.Deleted == nil || rec.Deleted.By != "dave" {
		t.Errorf("deleted: expected dave, got %+v", rec.Deleted)
	}
}

func TestAttributionFor_DuplicateCreated_EarliestWins(t *testing.T) {
	events := []engine.AuditEvent{
		event("T00001", engine.ActionCreated, "alice", at(1)),
		event("T00001", engine.ActionCreated, "mallory", at(2)),
	}

	records, err := engine.AttributionFor(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec := records["T00001"]; rec.Created.By != "alice" {
		t.Errorf("duplicate created must not overwrite, got %s", rec.Created.By)
	}
}

func TestAttributionFor_DuplicateDeleted_LatestWins(t *testing.T) {
	events := []engine.AuditEvent{
		event("T00001", engine.ActionDeleted, "alice", at(1)),
		event("T00001", engine.ActionDeleted, "bob", at(2)),
	}

	records, err := engine.AttributionFor(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec := records["T00001"]; rec.Deleted.By != "bob" {
		t.Errorf("latest deleted must win, got %s", rec.Deleted.By)
	}
}

func TestAttributionFor_DemultiplexesByRecord(t *testing.T) {
	events := []engine.AuditEvent{
		event("T00001", engine.ActionCreated, "alice", at(1)),
		event("T00002", engine.ActionCreated, "bob", at(2)),
		event("T00001", engine.ActionUpdated, "bob", at(3)),
	}

	records, err := engine.AttributionFor(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records["T00002"].Updated != nil {
		t.Error("T00002 was never updated")
	}
	if records["T00001"].Updated == nil || records["T00001"].Updated.By != "bob" {
		t.Error("T00001 update attribution lost in demux")
	}
}

func TestAttributionFor_PartialLifecycle_NilFields(t *testing.T) {
	// A record that was only created carries nil updated/deleted, not
	// zero-valued placeholders.
	records, err := engine.AttributionFor([]engine.AuditEvent{
		event("T00001", engine.ActionCreated, "alice", at(1)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := records["T00001"]
	if rec.Updated != nil || rec.Deleted != nil {
		t.Errorf("expected nil updated/deleted, got %+v / %+v", rec.Updated, rec.Deleted)
	}
}

func TestAttributionFor_UnorderedLogRejected(t *testing.T) {
	// GIVEN: An event log with a timestamp regression
	// WHEN: Folding
	// THEN: Rejected - a silent wrong answer is worse than an error

	events := []engine.AuditEvent{
		event("T00001", engine.ActionCreated, "alice", at(3)),
		event("T00001", engine.ActionUpdated, "bob", at(1)),
	}

	_, err := engine.AttributionFor(events)
	if !errors.Is(err, engine.ErrUnorderedEvents) {
		t.Fatalf("expected ErrUnorderedEvents, got %v", err)
	}

	var detail *engine.UnorderedEventsError
	if !errors.As(err, &detail) {
		t.Fatal("expected structured UnorderedEventsError")
	}
	if detail.Index != 1 {
		t.Errorf("error should name the offending index, got %d", detail.Index)
	}
}

func TestAttributionFor_EqualTimestampsAllowed(t *testing.T) {
	events := []engine.AuditEvent{
		event("T00001", engine.ActionCreated, "alice", at(1)),
		event("T00001", engine.ActionUpdated, "bob", at(1)),
	}
	if _, err := engine.AttributionFor(events); err != nil {
		t.Fatalf("equal timestamps must be tolerated, got %v", err)
	}
}

func TestAttributionFor_EmptyLog(t *testing.T) {
	records, err := engine.AttributionFor(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty map, got %d entries", len(records))
	}
}
