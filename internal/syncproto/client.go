package syncproto

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a view's connection to a hub. Sent messages carry the view's id and hash; received
// messages pass through the view's filter.
type Conn struct {
	ws   *websocket.Conn
	view *View

	writeMu sync.Mutex
	closeMu sync.Once
}

// Dial connects view to the hub at url (ws:// or wss://).
func Dial(ctx context.Context, url string, view *View) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, err
	}
	ws.SetPongHandler(func(string) error {
		view.Touch()
		return nil
	})
	return &Conn{ws: ws, view: view}, nil
}

// View returns the view the connection filters for.
func (c *Conn) View() *View {
	return c.view
}

// Send stamps env with the view id, fills the hash and writes it. Content sent by this view
// is recorded as applied so an echo does not come back as new state.
func (c *Conn) Send(env Envelope) error {
	env.Sender = c.view.ID()
	if env.SentAt.IsZero() {
		env.SentAt = time.Now().UTC()
	}
	if env.Type.HasContent() && env.Hash == "" {
		h, err := Hash(env.Payload)
		if err != nil {
			return err
		}
		env.Hash = h
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.view.Applied(env)
	return nil
}

// Publish sends a content message.
func (c *Conn) Publish(t MessageType, p *Payload) error {
	env, err := NewEnvelope(t, c.view.ID(), p)
	if err != nil {
		return err
	}
	return c.Send(env)
}

// Receive returns the next message the view should apply. Own messages, duplicate content and
// malformed frames are skipped.
func (c *Conn) Receive(ctx context.Context) (Envelope, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetReadDeadline(deadline)          //nolint:errcheck
		defer c.ws.SetReadDeadline(time.Time{}) //nolint:errcheck
	}
	for {
		if err := ctx.Err(); err != nil {
			return Envelope{}, err
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Envelope{}, ErrClosed
			}
			return Envelope{}, err
		}
		env, err := Decode(data)
		if err != nil {
			continue
		}
		if !c.view.Accept(env) {
			continue
		}
		return env, nil
	}
}

// Ping asks the hub for a pong, which counts as contact when it arrives.
func (c *Conn) Ping() error {
	return c.Send(Envelope{Type: TypePing})
}

// Heartbeat sends a heartbeat every interval until ctx ends or a write fails.
func (c *Conn) Heartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Send(Envelope{Type: TypeHeartbeat}); err != nil {
				return err
			}
		}
	}
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeMu.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.ws.Close()
		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			err = errors.Join(werr, err)
		}
	})
	return err
}
