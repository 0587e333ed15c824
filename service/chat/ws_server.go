package chat

import (
	"net/http"

	"SMProject/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSServer upgrades HTTP requests and hands the sockets to a Hub.
type WSServer struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWSServer builds the /ws endpoint. A nil checkOrigin accepts every origin.
func NewWSServer(h *Hub, checkOrigin func(r *http.Request) bool) *WSServer {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSServer{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (s *WSServer) Hub() *Hub { return s.hub }

// HandleWS is the gin handler for GET /ws.
func (s *WSServer) HandleWS(c *gin.Context) {
	select {
	case <-s.hub.Done():
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logger.Info("websocket upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}
	s.hub.Serve(ws)
}
