/*
audit.go - Attribution from the append-only audit log

PURPOSE:
  Folds an ordered, append-only event log into per-record attribution
  triples: who created, last updated, and deleted each logical record. The
  log itself is never mutated; attribution is a derived view.

FOLD SEMANTICS (per record, events in timestamp order):
  created: first occurrence wins; duplicates are ignored
  updated: latest occurrence always overwrites
  deleted: latest occurrence always overwrites

ORDERING PRECONDITION:
  The fold is only meaningful over a timestamp-ordered log. Feeding events
  out of order would produce silently wrong attribution, so the input slice
  is validated and rejected with UnorderedEventsError instead of tolerated.
  Equal timestamps are allowed (insertion order breaks the tie).

SCALE:
  One call handles the full relevant event slice and demultiplexes it by
  record identifier internally - one fold per visible record, never one
  backend query per record.

SEE ALSO:
  - types.go: AuditEvent, AttributionRecord
  - store/sqlite: The append-only event source
*/
package engine

// AttributionFor folds a timestamp-ordered event slice into one
// AttributionRecord per record identifier.
func AttributionFor(events []AuditEvent) (map[RecordID]AttributionRecord, error) {
	for i := 1; i < len(events); i++ {
		if events[i].At.Before(events[i-1].At) {
			return nil, &UnorderedEventsError{Index: i, RecordID: events[i].RecordID}
		}
	}

	records := make(map[RecordID]AttributionRecord)
	for _, e := range events {
		rec := records[e.RecordID]
		rec.RecordID = e.RecordID

		switch e.Action {
		case ActionCreated:
			// Earliest created wins; later duplicates are ignored.
			if rec.Created == nil {
				rec.Created = &Attribution{By: e.Actor, At: e.At}
			}
		case ActionUpdated:
			rec.Updated = &Attribution{By: e.Actor, At: e.At}
		case ActionDeleted:
			rec.Deleted = &Attribution{By: e.Actor, At: e.At}
		}

		records[e.RecordID] = rec
	}
	return records, nil
}
