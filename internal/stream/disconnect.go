package stream

import (
	"context"

	"github.com/gorilla/websocket"
)

// WithDisconnect derives a context that is cancelled as soon as the
// websocket peer goes away. Clients never send application frames on the
// status stream, so a blocked read doubles as disconnect detection; without
// it a vanished client would keep its polling loop alive until the next
// failed write.
func WithDisconnect(parent context.Context, conn *websocket.Conn) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return ctx, cancel
}
