package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connWrapper serialises writes; gorilla connections allow one concurrent writer.
type connWrapper struct {
	conn      *websocket.Conn
	mutex     sync.Mutex
	closeOnce sync.Once
}

func newConnWrapper(c *websocket.Conn) *connWrapper {
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteMessage(messageType int, data []byte, deadline time.Time) error {
	if w.conn == nil {
		return nil
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	_ = w.conn.SetWriteDeadline(deadline)
	return w.conn.WriteMessage(messageType, data)
}

func (w *connWrapper) WriteClose(code int, text string, deadline time.Time) error {
	if w.conn == nil {
		return nil
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (w *connWrapper) Close() error {
	if w.conn == nil {
		return nil
	}
	var err error
	w.closeOnce.Do(func() {
		err = w.conn.Close()
	})
	return err
}
