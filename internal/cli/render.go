package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/roach88/busbridge/internal/journal"
)

// EventLine is the JSON form of one bridge event, shared by run and trace.
type EventLine struct {
	Seq     int64             `json:"seq"`
	Kind    string            `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

func eventLine(e journal.Entry) EventLine {
	line := EventLine{Seq: e.Seq, Kind: e.Kind}
	if len(e.Payload) > 0 {
		line.Payload = e.Payload
	}
	return line
}

// formatEntry renders an entry as a single human-readable line.
func formatEntry(e journal.Entry) string {
	p := e.Payload
	switch e.Kind {
	case "device":
		if iface := p["interface"]; iface != "" {
			return fmt.Sprintf("#%d device %s: %s", e.Seq, iface, p["state"])
		}
		return fmt.Sprintf("#%d device %s", e.Seq, p["state"])
	case "error":
		line := fmt.Sprintf("#%d error %s: %s", e.Seq, p["code"], p["reason"])
		if p["request_id"] != "" {
			line += fmt.Sprintf(" (action=%s, request=%s)", p["action"], p["request_id"])
		}
		return line
	case "ready", "stream_closed":
		return fmt.Sprintf("#%d %s", e.Seq, e.Kind)
	}

	// Unknown kinds: dump the payload in key order.
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{fmt.Sprintf("#%d %s", e.Seq, e.Kind)}
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, " ")
}

// writeEntry writes e in the given format: a text line, or one JSON object per line.
func writeEntry(w io.Writer, format string, e journal.Entry) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(eventLine(e))
	}
	_, err := fmt.Fprintln(w, formatEntry(e))
	return err
}
