package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/busbridge/internal/bridge"
)

// Entry is one journaled bridge event.
type Entry struct {
	RunID   string
	Seq     int64
	Kind    string
	Payload map[string]string
}

// Filter selects entries. Empty fields match everything.
type Filter struct {
	RunID string
	Kind  string
}

// FromEvent converts a bridge event into a journal entry for runID.
func FromEvent(runID string, ev bridge.Event) Entry {
	e := Entry{
		RunID:   runID,
		Seq:     ev.Seq,
		Kind:    ev.Kind.String(),
		Payload: map[string]string{},
	}

	switch ev.Kind {
	case bridge.EventDevice:
		d := ev.Device
		e.Payload["state"] = d.State.String()
		if d.Interface != "" {
			e.Payload["interface"] = d.Interface
		}
		if d.Device != "" {
			e.Payload["device"] = d.Device
		}
		if d.Reason != 0 {
			e.Payload["reason"] = strconv.FormatUint(uint64(d.Reason), 10)
		}
	case bridge.EventError:
		if rec := ev.Error; rec != nil {
			e.Payload["code"] = string(rec.Code)
			e.Payload["reason"] = rec.Reason
			if rec.RequestID != "" {
				e.Payload["request_id"] = rec.RequestID
			}
			if rec.Action != "" {
				e.Payload["action"] = rec.Action
			}
		}
	}
	return e
}

// Append writes an entry. Duplicate (run, seq) pairs are ignored.
// The run must have been registered with BeginRun.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	payload, err := marshalPayload(e.Payload)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO entries (run_id, seq, kind, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, e.RunID, e.Seq, e.Kind, payload)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// Entries returns matching entries ordered by run start, then seq.
// Returns an empty slice (not nil) when nothing matches.
func (j *Journal) Entries(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "e.run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Kind != "" {
		where = append(where, "e.kind = ?")
		args = append(args, f.Kind)
	}

	query := `
		SELECT e.run_id, e.seq, e.kind, e.payload
		FROM entries e
		JOIN runs r ON r.id = e.run_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY r.started_at ASC, e.run_id COLLATE BINARY ASC, e.seq ASC"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Kind, &payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Payload, err = unmarshalPayload(payload); err != nil {
			return nil, fmt.Errorf("entry %s/%d: %w", e.RunID, e.Seq, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// marshalPayload renders the payload as JSON with sorted keys and every
// string NFC-normalized, so equal payloads store byte-identical text.
func marshalPayload(p map[string]string) (string, error) {
	m := make(map[string]string, len(p))
	for k, v := range p {
		m[norm.NFC.String(k)] = norm.NFC.String(v)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalPayload(data string) (map[string]string, error) {
	m := map[string]string{}
	if data == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return m, nil
}
