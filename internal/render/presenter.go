// SPDX-License-Identifier: MIT
package render

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lumen/internal/log"
)

// Presenter ships a composed frame to a viewer. Implementations must be
// safe to call from the compositor goroutine and must never block the frame
// cadence; slow consumers drop frames.
type Presenter interface {
	Present(frame *image.RGBA) error
	Close() error
}

/*
Frame Packet Structure (BigEndian)

| Field           | Data Type | Size (Bytes) | Description              |
|-----------------|-----------|--------------|--------------------------|
| Sequence Number | uint32    | 4            | Monotonically increasing |
| Timestamp       | int64     | 8            | Nanoseconds since epoch  |
| Width           | uint16    | 2            | Frame width in pixels    |
| Height          | uint16    | 2            | Frame height in pixels   |
| Pixels          | []byte    | W * H * 4    | RGBA rows, top to bottom |
*/
type framePacker struct {
	sequenceNum uint32
	buf         *bytes.Buffer // Reusable packet buffer
}

func newFramePacker() *framePacker {
	return &framePacker{buf: new(bytes.Buffer)}
}

// pack builds the next packet in sequence. The returned slice is owned by
// the packer and valid until the next pack call.
func (fp *framePacker) pack(frame *image.RGBA) ([]byte, error) {
	fp.sequenceNum++
	size := frame.Bounds().Size()

	fp.buf.Reset()
	err := binary.Write(fp.buf, binary.BigEndian, fp.sequenceNum)
	if err == nil {
		err = binary.Write(fp.buf, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(fp.buf, binary.BigEndian, uint16(size.X))
	}
	if err == nil {
		err = binary.Write(fp.buf, binary.BigEndian, uint16(size.Y))
	}
	if err != nil {
		return nil, fmt.Errorf("packing frame header: %w", err)
	}

	// image.RGBA strides can exceed the row width; write rows tightly.
	rowBytes := size.X * 4
	for y := 0; y < size.Y; y++ {
		row := frame.Pix[y*frame.Stride : y*frame.Stride+rowBytes]
		fp.buf.Write(row)
	}
	return fp.buf.Bytes(), nil
}

// NullPresenter discards frames. Used when no viewer transport is enabled
// and in tests.
type NullPresenter struct{}

func (NullPresenter) Present(*image.RGBA) error { return nil }
func (NullPresenter) Close() error              { return nil }

// Fanout presents each frame to every child presenter. A failing child is
// logged and skipped; the remaining children still receive the frame.
type Fanout []Presenter

func (f Fanout) Present(frame *image.RGBA) error {
	for _, p := range f {
		if err := p.Present(frame); err != nil {
			log.Warnf("Render: presenter error: %v", err)
		}
	}
	return nil
}

func (f Fanout) Close() error {
	var firstErr error
	for _, p := range f {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WebSocketPresenter broadcasts binary frame packets to all connected
// WebSocket clients. Frames are queued on a bounded channel and dropped
// when the queue is full, so a stalled client never backs up the
// compositor.
type WebSocketPresenter struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []byte
	server    *http.Server
	packer    *framePacker
}

// NewWebSocketPresenter starts a WebSocket server on addr serving frames at
// the /frames endpoint.
func NewWebSocketPresenter(addr string) *WebSocketPresenter {
	wp := &WebSocketPresenter{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Viewers connect from arbitrary origins
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 8),
		packer:    newFramePacker(),
	}

	wp.start()
	return wp
}

func (wp *WebSocketPresenter) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", wp.handleWebSocket)

	wp.server = &http.Server{
		Addr:    wp.addr,
		Handler: mux,
	}

	go func() {
		log.Infof("Render: WebSocket presenter listening on %s", wp.addr)
		if err := wp.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Render: WebSocket server error: %v", err)
		}
	}()

	go wp.handleBroadcasts()
}

func (wp *WebSocketPresenter) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wp.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("Render: WebSocket upgrade error: %v", err)
		return
	}

	wp.clientsMu.Lock()
	wp.clients[conn] = true
	total := len(wp.clients)
	wp.clientsMu.Unlock()
	log.Infof("Render: viewer connected, total: %d", total)

	go func() {
		// Wait for close.
		_, _, err := conn.ReadMessage()
		if err != nil {
			wp.clientsMu.Lock()
			delete(wp.clients, conn)
			total := len(wp.clients)
			wp.clientsMu.Unlock()
			conn.Close()
			log.Infof("Render: viewer disconnected, total: %d", total)
		}
	}()
}

func (wp *WebSocketPresenter) handleBroadcasts() {
	for packet := range wp.broadcast {
		wp.clientsMu.Lock()
		for client := range wp.clients {
			if err := client.WriteMessage(websocket.BinaryMessage, packet); err != nil {
				log.Warnf("Render: dropping viewer: %v", err)
				client.Close()
				delete(wp.clients, client)
			}
		}
		wp.clientsMu.Unlock()
	}
}

// Present packs the frame and queues it for broadcast. When the queue is
// full the frame is dropped.
func (wp *WebSocketPresenter) Present(frame *image.RGBA) error {
	wp.clientsMu.Lock()
	idle := len(wp.clients) == 0
	wp.clientsMu.Unlock()
	if idle {
		return nil // No viewers, skip the packing work
	}

	packet, err := wp.packer.pack(frame)
	if err != nil {
		return err
	}

	// The packer reuses its buffer, the queued copy must be stable.
	queued := make([]byte, len(packet))
	copy(queued, packet)

	select {
	case wp.broadcast <- queued:
	default:
		// Queue full, drop the frame.
	}
	return nil
}

// Close shuts down the server and all viewer connections.
func (wp *WebSocketPresenter) Close() error {
	wp.clientsMu.Lock()
	for client := range wp.clients {
		client.Close()
	}
	wp.clients = make(map[*websocket.Conn]bool)
	wp.clientsMu.Unlock()

	close(wp.broadcast)

	if wp.server != nil {
		return wp.server.Close()
	}
	return nil
}

// UDP datagrams cap the packet size, so the UDP presenter ships a
// downsampled preview grid rather than the full frame.
const (
	udpPreviewWidth  = 120
	udpPreviewHeight = 68
)

// UDPPresenter sends downsampled frame packets to a fixed target address,
// fire-and-forget.
type UDPPresenter struct {
	conn    *net.UDPConn
	mu      sync.Mutex // Protects conn during Close
	closed  bool
	packer  *framePacker
	preview *image.RGBA // Reusable downsample target
}

// NewUDPPresenter dials the target address, e.g. "127.0.0.1:9090".
func NewUDPPresenter(targetAddress string) (*UDPPresenter, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP target %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing UDP target %q: %w", targetAddress, err)
	}

	log.Infof("Render: UDP presenter targeting %s", conn.RemoteAddr())

	return &UDPPresenter{
		conn:    conn,
		packer:  newFramePacker(),
		preview: image.NewRGBA(image.Rect(0, 0, udpPreviewWidth, udpPreviewHeight)),
	}, nil
}

func (up *UDPPresenter) Present(frame *image.RGBA) error {
	up.downsample(frame)

	packet, err := up.packer.pack(up.preview)
	if err != nil {
		return err
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.closed {
		return fmt.Errorf("UDP presenter is closed")
	}
	if _, err := up.conn.Write(packet); err != nil {
		return fmt.Errorf("sending frame packet: %w", err)
	}
	return nil
}

// downsample nearest-neighbors the frame into the preview buffer.
func (up *UDPPresenter) downsample(frame *image.RGBA) {
	src := frame.Bounds().Size()
	for y := 0; y < udpPreviewHeight; y++ {
		sy := y * src.Y / udpPreviewHeight
		for x := 0; x < udpPreviewWidth; x++ {
			sx := x * src.X / udpPreviewWidth
			up.preview.SetRGBA(x, y, frame.RGBAAt(sx, sy))
		}
	}
}

func (up *UDPPresenter) Close() error {
	up.mu.Lock()
	defer up.mu.Unlock()

	if up.closed {
		return nil
	}
	up.closed = true

	if up.conn != nil {
		err := up.conn.Close()
		up.conn = nil
		if err != nil {
			return fmt.Errorf("closing UDP connection: %w", err)
		}
	}
	return nil
}

var (
	_ Presenter = (*WebSocketPresenter)(nil)
	_ Presenter = (*UDPPresenter)(nil)
	_ Presenter = NullPresenter{}
	_ Presenter = (Fanout)(nil)
)
