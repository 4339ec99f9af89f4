// Package viewsvc serves the status screen over HTTP: a page mirroring the
// OLED and a websocket streaming every new frame.
package viewsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/neuroplastio/neio-stick/pkg/bus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Message is sent to websocket clients.
type Message struct {
	Type      string        `json:"type"`
	Seq       int64         `json:"seq"`
	Timestamp int64         `json:"timestamp"`
	Frame     hostsvc.Frame `json:"frame"`
}

// FrameSource is implemented by hostsvc.Service.
type FrameSource interface {
	Frames() hostsvc.FrameSubscriber
	LastFrame() (hostsvc.Frame, bool)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the view is meant for local use
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Service struct {
	log    *zap.Logger
	addr   string
	source FrameSource
	now    func() time.Time
	hub    *hub
	seq    atomic.Int64
	ready  chan struct{}
	bound  atomic.String
}

func New(log *zap.Logger, addr string, source FrameSource, now func() time.Time) *Service {
	return &Service{
		log:    log,
		addr:   addr,
		source: source,
		now:    now,
		hub:    newHub(log),
		ready:  make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address once the service is ready.
func (s *Service) Addr() string {
	return s.bound.Load()
}

func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.bound.Store(ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/frame", s.handleFrame)
	mux.HandleFunc("/", s.handleIndex)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcastFrames(s.source.Frames()(ctx))
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.hub.closeAll()
	}()

	close(s.ready)
	s.log.Info("Status view listening", zap.String("addr", s.Addr()))
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("status view failed: %w", err)
}

func (s *Service) broadcastFrames(frames <-chan bus.Message[string, hostsvc.Frame]) {
	for msg := range frames {
		data, err := s.message(msg.Message)
		if err != nil {
			s.log.Error("failed to marshal frame", zap.Error(err))
			continue
		}
		s.hub.broadcast(data)
	}
}

func (s *Service) message(frame hostsvc.Frame) ([]byte, error) {
	return json.Marshal(Message{
		Type:      "frame",
		Seq:       s.seq.Inc(),
		Timestamp: s.now().UnixMilli(),
		Frame:     frame,
	})
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 16),
	}
	if frame, ok := s.source.LastFrame(); ok {
		if data, err := s.message(frame); err == nil {
			c.send <- data
		}
	}
	s.hub.register(c)
	go c.writePump()
	go c.readPump()
}

func (s *Service) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.source.LastFrame()
	if !ok {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frame); err != nil {
		s.log.Warn("failed to write frame", zap.Error(err))
	}
}

func (s *Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>neio-stick</title>
<style>
body { background: #111; color: #9cf; font-family: monospace; }
pre { font-size: 24px; background: #000; padding: 12px; display: inline-block; }
pre.blank { color: #333; }
</style>
</head>
<body>
<pre id="screen"></pre>
<script>
const screen = document.getElementById("screen");
function connect() {
  const ws = new WebSocket("ws://" + location.host + "/ws");
  ws.onmessage = (ev) => {
    const msg = JSON.parse(ev.data);
    screen.textContent = msg.frame.lines.join("\n");
    screen.className = msg.frame.blank ? "blank" : "";
  };
  ws.onclose = () => setTimeout(connect, 1000);
}
connect();
</script>
</body>
</html>
`
