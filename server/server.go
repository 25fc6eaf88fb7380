// Package server exposes the sequencer to clients over websockets.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go-vibe/debug"
	"go-vibe/model"
	"go-vibe/protocol"
	"go-vibe/sequencer"
)

// Backend is what the transport needs from the sequencer
type Backend interface {
	Handle(from uint64, cmd protocol.ServerCommand)
	Status() sequencer.Status
	WithProject(fn func(p *model.Project) error) error
}

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
)

type Server struct {
	hub      *Hub
	backend  Backend
	upgrader websocket.Upgrader
	router   *mux.Router
}

func New(hub *Hub, backend Backend) *Server {
	s := &Server{
		hub:     hub,
		backend: backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are served from other origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/", s.handleWS).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/project", s.handleProject).Methods("GET")
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then drops every client
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.hub.CloseAll()
	}()
	debug.Info("server", "listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		sequencer.Status
		Clients int `json:"clients"`
	}{s.backend.Status(), s.hub.Len()}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	asYAML := r.URL.Query().Get("format") == "yaml"
	var data []byte
	err := s.backend.WithProject(func(p *model.Project) error {
		var err error
		if asYAML {
			data, err = yaml.Marshal(p)
		} else {
			data, err = json.MarshalIndent(p, "", "  ")
		}
		return err
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if asYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Warn("server", "upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	c := s.hub.Register(r.RemoteAddr)
	go s.writeLoop(conn, c)
	s.readLoop(conn, c)
}

// readLoop decodes commands and hands them to the backend in arrival order
func (s *Server) readLoop(conn *websocket.Conn, c *Client) {
	defer func() {
		s.hub.Unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				debug.Warn("server", "client %d: %v", c.ID, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		cmd, err := protocol.DecodeServer(data)
		if err != nil {
			debug.Warn("server", "client %d: bad command: %v", c.ID, err)
			s.hub.Send(c.ID, protocol.Notify{
				Severity: protocol.Error,
				Summary:  "Failed to Parse Command",
				Detail:   err.Error(),
			})
			continue
		}
		s.backend.Handle(c.ID, cmd)
	}
}

// writeLoop drains the client's queue onto the socket
func (s *Server) writeLoop(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-c.Out():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				s.hub.Unregister(c)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Unregister(c)
				return
			}
		case <-c.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
