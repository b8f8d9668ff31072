package render

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Obeeron/pherowar/internal/pwlog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the query/render API: a /ws endpoint streaming compressed
// WorldSnapshot frames, and a /health liveness probe.
type Server struct {
	Hub  *Hub
	Addr string
}

// NewServer creates a render server bound to a hub the scheduler loop
// broadcasts to.
func NewServer(hub *Hub, addr string) *Server {
	return &Server{Hub: hub, Addr: addr}
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)

	pwlog.Log.WithField("addr", s.Addr).Info("render: query API listening")
	return http.ListenAndServe(s.Addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		pwlog.Log.WithError(err).Warn("render: websocket upgrade failed")
		return
	}

	id, frames := s.Hub.Register()
	pwlog.Log.WithField("spectator", id).Info("render: spectator connected")
	go s.writePump(conn, id, frames)
	go s.readPump(conn, id)
}

// readPump only drains and discards incoming control frames (pings/closes);
// the render API is read-only from the spectator's side.
func (s *Server) readPump(conn *websocket.Conn, id string) {
	defer func() {
		s.Hub.Unregister(id)
		conn.Close()
	}()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, id string, frames chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-frames:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				pwlog.Log.WithFields(logrus.Fields{"spectator": id, "err": err}).Debug("render: write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
