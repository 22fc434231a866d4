// ABOUTME: Transport abstraction over the persistent gateway connection.
// ABOUTME: The production implementation speaks text frames over a websocket.

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// Transport is a single persistent connection carrying opaque frames.
// Receive is called by one reader goroutine; Send may be called
// concurrently.
type Transport interface {
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// DialFunc opens a transport to the given URL. The context bounds the
// dial itself, not the lifetime of the returned transport.
type DialFunc func(ctx context.Context, url string) (Transport, error)

// DialWebsocket is the default DialFunc.
func DialWebsocket(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	// Frames are small JSON objects; the default 32 KiB read limit is too
	// tight for history payloads.
	conn.SetReadLimit(16 * 1024 * 1024)
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (t *wsTransport) Send(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	return data, err
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "client disconnect")
}
