package graph

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Tatenda/fullstori/domain/events"
	sdkerrors "github.com/Tatenda/fullstori/pkg/sdk/errors"
	"github.com/Tatenda/fullstori/pkg/sse"
)

// ChangeEvent is a change notification from the graph stream.
type ChangeEvent = events.ChangeEvent

// Watch subscribes to change notifications for graphID and calls fn for
// each one until ctx is cancelled or the server closes the stream.
// Stream control messages are not passed to fn.
// GET /api/graphs/:graphId/stream
func (c *Client) Watch(ctx context.Context, graphID string, fn func(ChangeEvent)) error {
	req, err := c.t.NewRequest(ctx, http.MethodGet, c.t.URL("api", "graphs", graphID, "stream"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.t.Stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return sdkerrors.ParseErrorResponse(resp)
	}

	err = readStream(bufio.NewScanner(resp.Body), fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readStream dispatches one event per blank-line-terminated block.
func readStream(sc *bufio.Scanner, fn func(ChangeEvent)) error {
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var name string
	var data strings.Builder
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if err := dispatch(name, data.String(), fn); err != nil {
				return err
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return sc.Err()
}

func dispatch(name, data string, fn func(ChangeEvent)) error {
	switch name {
	case "", sse.EventConnected, sse.EventHeartbeat:
		return nil
	case sse.EventError:
		var e sse.ErrorEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return fmt.Errorf("stream error: %s", data)
		}
		return fmt.Errorf("stream error: %s: %s", e.Code, e.Message)
	}

	var change ChangeEvent
	if err := json.Unmarshal([]byte(data), &change); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", name, err)
	}
	fn(change)
	return nil
}
