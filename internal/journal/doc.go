// Package journal provides SQLite-backed storage for bridge events.
//
// The journal is append-only:
//   - runs: one row per bridge session
//   - entries: one row per event, keyed by (run_id, seq)
//
// Ordering uses seq (the bridge's logical clock), never timestamps, and every
// query returns rows in a deterministic order. Payloads are stored as JSON
// objects with sorted keys and NFC-normalized strings.
//
// Writes happen on a Recorder goroutine fed through a bridge.Queue, keeping
// the poll loop free of I/O.
//
// # Database Configuration
//
//   - WAL mode: trace can read while run is writing
//   - synchronous=NORMAL
//   - 5-second busy timeout
//   - foreign keys enforced
package journal
