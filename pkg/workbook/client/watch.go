package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// EventsURL returns the websocket address of the project's event stream.
func (c *Client) EventsURL() string {
	u := c.baseURL + "/events"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// Watch streams the project's change events to fn until ctx is done or the
// connection drops. It returns nil when ctx ends the stream.
func (c *Client) Watch(ctx context.Context, fn func(models.Event)) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.EventsURL(), http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("watch: dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("watch: dial failed: %w", err)
	}
	defer conn.Close()

	c.log.Debug("watching events", "url", c.EventsURL())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}

		var ev models.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			c.log.Warn("dropping malformed event", "error", err)
			continue
		}
		fn(ev)
	}
}
