package dxlink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fxrisk/logger"
)

// Transport is a message oriented, full duplex connection. Send and Close
// are only called by the goroutine that owns the session; Receive is called
// by a single reader goroutine.
type Transport interface {
	Send(Message) error
	// Receive returns the next raw frame, or io.EOF after an orderly close.
	Receive() ([]byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url, token string) (Transport, error)
}

const defaultWriteTimeout = 5 * time.Second

// WebsocketDialer opens dxLink connections with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url, token string) (Transport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &wsTransport{conn: conn, writeTimeout: writeTimeout}, nil
}

type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func (t *wsTransport) Send(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	logger.RecordStreamMessage("dxlink_out", len(payload))
	return nil
}

func (t *wsTransport) Receive() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	logger.RecordStreamMessage("dxlink_in", len(data))
	return data, nil
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
