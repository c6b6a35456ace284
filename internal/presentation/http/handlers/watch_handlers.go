package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/messaging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/infrastructure/observability/logging"
	"github.com/SveltyCMS/SveltyCMS-sub004/internal/presentation/http/middleware"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
	watchPingEvery = (watchPongWait * 9) / 10
)

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WatchHandlers upgrades clients onto the structure-version stream.
type WatchHandlers struct {
	broadcaster *messaging.VersionBroadcaster
	logger      *logging.ChanneledLogger
}

// NewWatchHandlers creates watch handlers with injected dependencies
func NewWatchHandlers(broadcaster *messaging.VersionBroadcaster, logger *logging.ChanneledLogger) *WatchHandlers {
	return &WatchHandlers{broadcaster: broadcaster, logger: logger}
}

// WatchVersions upgrades the connection and streams version bumps for the
// request's tenant until the client disconnects.
func (h *WatchHandlers) WatchVersions(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	conn, err := watchUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.System().Warn("Websocket upgrade failed", "tenantId", tenantID, "error", err.Error())
		return
	}

	client := &messaging.Client{Conn: conn, TenantID: tenantID, Send: make(chan []byte, 16)}
	h.broadcaster.Register(client)

	go h.writePump(client)
	h.readPump(client)
}

func (h *WatchHandlers) writePump(client *messaging.Client) {
	ticker := time.NewTicker(watchPingEvery)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WatchHandlers) readPump(client *messaging.Client) {
	defer func() {
		h.broadcaster.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(watchPongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(watchPongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
