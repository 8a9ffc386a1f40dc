package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/health-risk-server/internal/domain"
	"github.com/health-risk-server/internal/middleware"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are checked by the CORS layer and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is pushed to dashboard clients.
type streamMessage struct {
	Type        string                   `json:"type"`
	Summary     *domain.AnalyticsSummary `json:"summary,omitempty"`
	Error       string                   `json:"error,omitempty"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

// handleStream upgrades to a websocket and sends a fresh summary on connect
// and after every stored assessment. The query filter applies to every push.
func (s *Server) handleStream(c *gin.Context) {
	f, ok := s.bindFilter(c)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade stream connection")
		return
	}
	defer ws.Close()

	s.metrics.StreamOpened()
	defer s.metrics.StreamClosed()

	log := s.logger.WithField("correlation_id", c.GetString(middleware.CorrelationIDKey))
	log.Info("Analytics stream connected")

	updates, cancel := s.assessments.Subscribe()
	defer cancel()

	// The reader only handles control frames; it ends when the client goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(streamPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	push := func() error {
		msg := streamMessage{Type: "summary", GeneratedAt: time.Now().UTC()}
		summary, err := s.assessments.Summary(ctx, f)
		if err != nil {
			log.WithError(err).Error("Failed to compute stream summary")
			msg.Type = "error"
			msg.Error = "failed to compute summary"
		} else {
			msg.Summary = &summary
		}
		_ = ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return ws.WriteJSON(msg)
	}

	if err := push(); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			log.Info("Analytics stream disconnected")
			return
		case <-updates:
			if err := push(); err != nil {
				log.WithError(err).Debug("Stream write failed")
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
