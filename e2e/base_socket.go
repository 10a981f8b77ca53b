package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// Frame mirrors the gateway envelope. The suite talks to the server as
// a black-box client, so the wire shapes are restated here instead of
// importing the gateway package.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type BaseSocketSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSocketSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping end-to-end suite")
	}
}

// Header prints a colorized step header in the logs
func (s *BaseSocketSuite) Header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Register creates an account through the HTTP endpoint and returns
// its token and user id.
func (s *BaseSocketSuite) Register(name, email, password string) (token, userID string) {
	body, err := json.Marshal(map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	s.Require().NoError(err)

	resp, err := http.Post(
		fmt.Sprintf("http://%s/auth/register", s.Config.ServerAddr),
		"application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out.Token, out.UserID
}

// Dial opens an authenticated websocket session
func (s *BaseSocketSuite) Dial(token string) *websocket.Conn {
	url := fmt.Sprintf("ws://%s/ws?token=%s", s.Config.ServerAddr, token)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to connect to gateway at "+url)
	if resp != nil {
		_ = resp.Body.Close()
	}
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// Send writes one frame on the socket
func (s *BaseSocketSuite) Send(conn *websocket.Conn, eventName string, payload any) {
	raw, err := json.Marshal(payload)
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("SEND %s: %s", eventName, raw)
	}
	s.Require().NoError(conn.WriteJSON(Frame{Event: eventName, Payload: raw}))
}

// Await reads frames until the wanted event arrives, skipping the
// interleaved broadcasts
func (s *BaseSocketSuite) Await(conn *websocket.Conn, eventName string) Frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(10 * time.Second)))
	for {
		var frame Frame
		s.Require().NoError(conn.ReadJSON(&frame), "Timed out waiting for "+eventName)
		if s.Config.DebugJSON {
			s.T().Logf("RECV %s: %s", frame.Event, frame.Payload)
		}
		if frame.Event == eventName {
			return frame
		}
	}
}
