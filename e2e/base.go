// Package e2e drives full scenarios over the wire: a real HTTP server, a
// real badger store, and websocket clients speaking the JSON envelope
// protocol.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"chatorbit/api"
	"chatorbit/domain/event"
	"chatorbit/moderation"
	"chatorbit/presence"
	"chatorbit/repositories"
	"chatorbit/runtime"
	"chatorbit/runtime/workers"
	"chatorbit/services"
	"chatorbit/transport/ws"
)

type BaseSuite struct {
	suite.Suite
	Config   Config
	server   *httptest.Server
	db       *badger.DB
	accounts *repositories.AccountRepository
	cancel   context.CancelFunc
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

// SetupTest boots the whole stack on an ephemeral port.
func (s *BaseSuite) SetupTest() {
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	s.accounts = repositories.NewAccountRepository(db)
	registry := presence.NewRegistry(log, s.accounts)

	telemetryChan := make(chan event.Event, 64)
	supervisor := workers.NewSupervisor(log, 100*time.Millisecond, telemetryChan)
	orchestrator := runtime.NewOrchestrator(log, supervisor, registry, telemetryChan, 64, time.Second, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.Require().NoError(orchestrator.Start(ctx))

	words, err := moderation.LoadWords()
	s.Require().NoError(err)
	moderator, err := moderation.NewModerator(words, '*')
	s.Require().NoError(err)

	svc := services.New(
		log, registry,
		s.accounts,
		repositories.NewMessageRepository(db, log),
		repositories.NewOfflineRepository(db, log),
		moderator, orchestrator,
	)

	wsHandler := ws.NewHandler(log, svc, 64)
	s.server = httptest.NewServer(api.NewServer(log, s.accounts).Router(wsHandler.ServeWS))
}

func (s *BaseSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
	_ = s.db.Close()
}

// Dial opens one websocket client against the running stack.
func (s *BaseSuite) Dial(name string) *WireClient {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	return &WireClient{suite: s, name: name, conn: conn}
}

// WireClient speaks the JSON envelope protocol over one connection.
type WireClient struct {
	suite *BaseSuite
	name  string
	conn  *websocket.Conn
}

func (c *WireClient) Close() {
	_ = c.conn.Close()
}

// Send writes one envelope on the wire.
func (c *WireClient) Send(eventType string, payload any) {
	raw, err := json.Marshal(payload)
	c.suite.Require().NoError(err)
	frame, err := json.Marshal(ws.Envelope{Type: eventType, Payload: raw})
	c.suite.Require().NoError(err)

	c.log("->", string(frame))
	c.suite.Require().NoError(c.conn.WriteMessage(websocket.TextMessage, frame))
}

// Expect reads frames until one of the wanted type arrives, failing on
// timeout. Frames of other types are simply passed over.
func (c *WireClient) Expect(eventType string, deadline time.Duration) ws.Envelope {
	s := c.suite
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	for {
		_, raw, err := c.conn.ReadMessage()
		s.Require().NoError(err, "%s waiting for %s", c.name, eventType)

		c.log("<-", string(raw))
		var envelope ws.Envelope
		s.Require().NoError(json.Unmarshal(raw, &envelope))
		if envelope.Type == eventType {
			return envelope
		}
	}
}

// ExpectAck reads the next ack for the given client event type.
func (c *WireClient) ExpectAck(of string, deadline time.Duration) ws.Ack {
	s := c.suite
	for {
		envelope := c.Expect(ws.EventAck, deadline)
		var ack ws.Ack
		s.Require().NoError(json.Unmarshal(envelope.Payload, &ack))
		if ack.Of == of {
			return ack
		}
	}
}

func (c *WireClient) log(direction, frame string) {
	if !c.suite.Config.DebugJSON {
		return
	}
	line := fmt.Sprintf("[%s] %s %s", c.name, direction, frame)
	if c.suite.Config.Colours {
		line = color.Gray.Render(line)
	}
	c.suite.T().Log(line)
}
