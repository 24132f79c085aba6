package testutil

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// SSEEvent is one parsed Server-Sent Event.
type SSEEvent struct {
	Event string
	Data  string
}

// JSON decodes the event data into v.
func (e SSEEvent) JSON(v any) error {
	return json.Unmarshal([]byte(e.Data), v)
}

// ParseSSE splits an event stream into events. Comment lines are skipped.
func ParseSSE(body io.Reader) ([]SSEEvent, error) {
	var events []SSEEvent
	var cur SSEEvent
	var data []string

	flush := func() {
		if cur.Event != "" || len(data) > 0 {
			cur.Data = strings.Join(data, "\n")
			events = append(events, cur)
		}
		cur = SSEEvent{}
		data = nil
	}

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event:"):
			cur.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	flush()

	return events, scanner.Err()
}

// EventsOfType filters events by name.
func EventsOfType(events []SSEEvent, name string) []SSEEvent {
	var out []SSEEvent
	for _, e := range events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}
