package browser

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WebSocket is the DevTools transport handed to rod's cdp client. Pings and
// read deadlines follow its KeepAlive settings instead of library defaults.
type WebSocket struct {
	conn      net.Conn
	src       io.Reader // conn, or the handshake reader when it buffered frames
	keepAlive KeepAlive

	wmu       sync.Mutex // serializes frame writes
	done      chan struct{}
	closeOnce sync.Once
}

// DialWebSocket connects to a DevTools websocket URL.
func DialWebSocket(ctx context.Context, u string, keepAlive KeepAlive) (*WebSocket, error) {
	conn, br, _, err := ws.Dial(ctx, u)
	if err != nil {
		return nil, err
	}

	w := &WebSocket{
		conn:      conn,
		src:       conn,
		keepAlive: keepAlive,
		done:      make(chan struct{}),
	}
	if br != nil {
		w.src = br
	}
	if keepAlive.Enabled() {
		go w.pingLoop()
	}
	return w, nil
}

// Send writes a text message.
func (w *WebSocket) Send(b []byte) error {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	return wsutil.WriteClientText(w.conn, b)
}

// Read returns the next text message. Control frames are answered inline.
func (w *WebSocket) Read() ([]byte, error) {
	rd := wsutil.Reader{
		Source:    w.src,
		State:     ws.StateClientSide,
		CheckUTF8: true,
		OnIntermediate: func(hdr ws.Header, r io.Reader) error {
			return w.handleControl(hdr, r)
		},
	}

	for {
		w.extendReadDeadline()

		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, err
		}

		if hdr.OpCode.IsControl() {
			if err := w.handleControl(hdr, &rd); err != nil {
				return nil, err
			}
			continue
		}

		if hdr.OpCode != ws.OpText {
			if err := rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		return io.ReadAll(&rd)
	}
}

// Close stops the ping loop and closes the connection.
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

// handleControl answers pings and close frames. The reply is buffered so it
// goes out as one write under the write lock.
func (w *WebSocket) handleControl(hdr ws.Header, r io.Reader) error {
	var reply bytes.Buffer
	err := wsutil.ControlFrameHandler(&reply, ws.StateClientSide)(hdr, r)
	if reply.Len() > 0 {
		w.wmu.Lock()
		_, werr := w.conn.Write(reply.Bytes())
		w.wmu.Unlock()
		if err == nil {
			err = werr
		}
	}
	return err
}

func (w *WebSocket) extendReadDeadline() {
	if !w.keepAlive.Enabled() || w.keepAlive.Timeout <= 0 {
		return
	}
	_ = w.conn.SetReadDeadline(time.Now().Add(w.keepAlive.Interval + w.keepAlive.Timeout))
}

func (w *WebSocket) pingLoop() {
	ticker := time.NewTicker(w.keepAlive.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if err := w.ping(); err != nil {
				return
			}
		}
	}
}

func (w *WebSocket) ping() error {
	w.wmu.Lock()
	defer w.wmu.Unlock()

	if w.keepAlive.Timeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.keepAlive.Timeout))
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteClientMessage(w.conn, ws.OpPing, nil)
}
