package api

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"scoutadmin/internal/form"
)

const wsWriteTimeout = 10 * time.Second

// wsMessage: сообщение потока конструктора.
type wsMessage struct {
	Type string         `json:"type"`
	Data *form.Snapshot `json:"data,omitempty"`
}

// GET /api/builder/:eventId/ws: снимки конструктора по websocket.
// Первым приходит текущее состояние, дальше каждое изменение.
// Поток закрывается, когда конструктор закрыт или сессия истекла.
func BuilderStreamHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := w.openBuilder(c)
		if !ok {
			return
		}
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns: []string{c.Request.Host},
		})
		if err != nil {
			w.Logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		// входящие сообщения не ждём; CloseRead отменяет ctx, когда клиент уходит
		ctx := conn.CloseRead(c.Request.Context())
		snaps, cancel := b.Subscribe(4)
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					_ = writeWS(ctx, conn, wsMessage{Type: "closed"})
					conn.Close(websocket.StatusNormalClosure, "builder closed")
					return
				}
				if err := writeWS(ctx, conn, wsMessage{Type: "snapshot", Data: &snap}); err != nil {
					if websocket.CloseStatus(err) == -1 {
						w.Logger.Debug("websocket write failed", "event_id", b.EventID(), "error", err)
					}
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
