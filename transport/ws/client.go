package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	apperrors "chatorbit/errors"
	"chatorbit/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one websocket connection. The read pump handles client events
// in arrival order, each call running to completion before the next is
// decoded; the write pump serializes acks and fan-out pushes onto the wire.
type Client struct {
	log      *slog.Logger
	conn     *websocket.Conn
	connID   string
	services *services.Services
	sink     *Sink
	send     chan []byte
	validate *validator.Validate
}

func NewClient(log *slog.Logger, conn *websocket.Conn, connID string, svc *services.Services, sinkBuffer int) *Client {
	return &Client{
		log:      log.With("connection", connID),
		conn:     conn,
		connID:   connID,
		services: svc,
		sink:     NewSink(sinkBuffer),
		send:     make(chan []byte, sinkBuffer),
		validate: validator.New(),
	}
}

// ReadPump decodes and dispatches client events until the connection dies,
// then runs the disconnect hook. Must run in its own goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.services.Lifecycle.Disconnect(ctx, c.connID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected connection close", "error", err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.ack("", fmt.Errorf("%w: %w", apperrors.ErrInvalidPayload, err))
			continue
		}
		c.ack(envelope.Type, c.dispatch(ctx, envelope))
	}
}

// dispatch runs one client event synchronously against the services.
func (c *Client) dispatch(ctx context.Context, envelope Envelope) error {
	switch envelope.Type {
	case EventBindIdentity:
		var payload BindIdentityPayload
		if err := c.decode(envelope.Payload, &payload); err != nil {
			return err
		}
		if payload.ConnectionID != "" {
			c.connID = payload.ConnectionID
		}
		return c.services.Lifecycle.Bind(ctx, payload.UID, c.connID, c.sink)

	case EventSendMessage:
		var payload SendMessagePayload
		if err := c.decode(envelope.Payload, &payload); err != nil {
			return err
		}
		return c.services.Router.Send(ctx, payload.Sender, payload.Receiver, payload.Content)

	case EventOpenSession:
		var payload OpenSessionPayload
		if err := c.decode(envelope.Payload, &payload); err != nil {
			return err
		}
		return c.services.History.OpenSession(ctx, payload.Sender, payload.Receiver)

	case EventQueryOnline:
		uid, err := c.boundUID()
		if err != nil {
			return err
		}
		return c.services.Broadcaster.QueryOnline(ctx, uid)

	case EventFetchOffline:
		uid, err := c.boundUID()
		if err != nil {
			return err
		}
		return c.services.Inbox.FetchOffline(ctx, uid)

	default:
		return fmt.Errorf("%w: unknown event type %q", apperrors.ErrInvalidPayload, envelope.Type)
	}
}

func (c *Client) decode(raw json.RawMessage, payload any) error {
	if err := json.Unmarshal(raw, payload); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidPayload, err)
	}
	if err := c.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidPayload, err)
	}
	return nil
}

// boundUID resolves the identity behind this connection, failing events
// that require a prior bind.
func (c *Client) boundUID() (string, error) {
	uid, ok := c.services.Lifecycle.UIDForConnection(c.connID)
	if !ok {
		return "", apperrors.ErrInvalidState
	}
	return uid, nil
}

func (c *Client) ack(of string, err error) {
	if err != nil {
		c.log.Warn("Client event failed", "type", of, "error", err)
	}
	data, encodeErr := EncodeAck(of, err)
	if encodeErr != nil {
		c.log.Error("Encoding ack", "error", encodeErr)
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("Send buffer full, dropping ack", "type", of)
	}
}

// WritePump serializes acks, fan-out pushes, and keepalive pings onto the
// wire. Must run in its own goroutine; exits close the connection, which
// in turn unblocks the read pump.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Writing frame", "error", err)
				return
			}

		case evt := <-c.sink.Events:
			data, ok, err := EncodeEvent(evt)
			if err != nil {
				c.log.Error("Encoding event", "error", err)
				continue
			}
			if !ok {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Writing event", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
