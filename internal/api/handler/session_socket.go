package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// updateBuffer bounds how many undelivered states a slow client may
	// accumulate before it is disconnected.
	updateBuffer = 16
)

// SessionSocket pushes every state change of the caller's session over a
// websocket. The stream ends after the session is cleared.
type SessionSocket struct {
	authService ports.AuthService
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

// NewSessionSocket builds the handler. allowedOrigins restricts browser
// origins; empty allows same-origin requests only.
func NewSessionSocket(authService ports.AuthService, allowedOrigins []string, log zerolog.Logger) *SessionSocket {
	s := &SessionSocket{authService: authService, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = struct{}{}
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return s
}

// Stream upgrades the connection and streams session states.
//
// @Summary      Live session updates
// @Description  Sends the current session immediately and again after every change.
// @Tags         session
// @Security     BearerAuth
// @Param        token  query  string  false  "Session token when headers cannot be set"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /v1/session/ws [get]
func (s *SessionSocket) Stream(c echo.Context) error {
	sid, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		return nil
	}
	defer conn.Close()

	log := s.log.With().Str("session_id", sid).Logger()
	updates := make(chan domain.SessionState, updateBuffer)
	overflow := make(chan struct{})
	var overflowOnce sync.Once

	// Subscribe runs the callback synchronously for the initial state and
	// from the mutating goroutine afterwards; it must never block.
	unsubscribe, err := s.authService.Subscribe(c.Request().Context(), sid, func(st domain.SessionState) {
		select {
		case updates <- st:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("session subscribe failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session unavailable"),
			time.Now().Add(writeWait))
		return nil
	}
	defer unsubscribe()

	closed := make(chan struct{})
	go s.readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil

		case <-overflow:
			log.Warn().Msg("session stream client too slow, disconnecting")
			s.closeWith(conn, websocket.ClosePolicyViolation, "too slow")
			return nil

		case st := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(NewSessionResponse(st)); err != nil {
				log.Debug().Err(err).Msg("session stream write failed")
				return nil
			}
			if !st.IsAuthenticated {
				s.closeWith(conn, websocket.CloseNormalClosure, "session ended")
				return nil
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

// readPump discards client frames and keeps the pong deadline fresh. It
// closes done when the peer goes away.
func (s *SessionSocket) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *SessionSocket) closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
