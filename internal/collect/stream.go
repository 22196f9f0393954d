package collect

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/HerbHall/netcollect/internal/event"
)

const (
	streamBuffer       = 32
	streamWriteTimeout = 5 * time.Second
)

// handleStream pushes every persisted cycle to a websocket client as a JSON
// message. The optional resource query parameter filters by resource id.
//
//	@Summary		Stream cycles
//	@Tags			collect
//	@Param			resource query string false "Resource ID filter"
//	@Success		101
//	@Router			/collect/stream [get]
func (m *Module) handleStream(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")

	updates := make(chan cycleResponse, streamBuffer)
	unsubscribe := m.bus.Subscribe(TopicCycle, func(_ context.Context, e event.Event) {
		c, ok := e.Payload.(*Cycle)
		if !ok || (resource != "" && string(c.Resource.ID) != resource) {
			return
		}
		select {
		case updates <- newCycleResponse(c):
		default:
			m.logger.Warn("stream client too slow, dropping cycle", zap.String("cycle", c.ID))
		}
	})
	defer unsubscribe()

	// Clear the server's per-request deadlines for the long-lived connection.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	_ = rc.SetReadDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		m.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case u := <-updates:
			wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := wsjson.Write(wctx, conn, u)
			cancel()
			if err != nil {
				m.logger.Debug("stream write failed", zap.Error(err))
				return
			}
		}
	}
}
