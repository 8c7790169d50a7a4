package devserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
)

type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) send(f realtime.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.Message.Send(p.conn, string(data))
}

// hub tracks push connections by the user room they joined.
type hub struct {
	srv    *Server
	logger zerolog.Logger

	mu    sync.Mutex
	rooms map[string]map[*peer]struct{}
}

func newHub(srv *Server, logger zerolog.Logger) *hub {
	return &hub{srv: srv, logger: logger, rooms: make(map[string]map[*peer]struct{})}
}

func (h *hub) handler() http.Handler {
	return websocket.Server{
		// Any origin: the client is a terminal program.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serve,
	}
}

func (h *hub) serve(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	// A valid bearer token pins the connection to its user. Without one
	// any room may be joined.
	pinned := ""
	if token := bearerToken(conn.Request()); token != "" {
		if id, err := h.srv.verifyToken(token); err == nil {
			pinned = id
		}
	}

	p := &peer{conn: conn}
	var joined []string
	defer func() {
		for _, room := range joined {
			h.leave(room, p)
		}
	}()

	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			return
		}

		var f realtime.Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			h.logger.Debug().Err(err).Msg("push: bad frame")
			continue
		}
		if f.Type != h.srv.opts.JoinEvent {
			continue
		}

		var userID string
		if err := json.Unmarshal(f.Payload, &userID); err != nil || userID == "" {
			h.logger.Debug().Msg("push: bad join payload")
			continue
		}
		if pinned != "" && pinned != userID {
			h.logger.Warn().Str("token_user", pinned).Str("room", userID).Msg("push: join refused")
			return
		}

		h.join(userID, p)
		joined = append(joined, userID)
		h.logger.Debug().Str("room", userID).Msg("push: joined")
	}
}

func (h *hub) join(room string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*peer]struct{})
	}
	h.rooms[room][p] = struct{}{}
}

func (h *hub) leave(room string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[room], p)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// members returns the number of connections in a room.
func (h *hub) members(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

func (h *hub) push(room, event string, payload any) {
	f, err := realtime.NewFrame(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("push: encode frame")
		return
	}

	h.mu.Lock()
	peers := make([]*peer, 0, len(h.rooms[room]))
	for p := range h.rooms[room] {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		if err := p.send(f); err != nil {
			h.logger.Debug().Err(err).Str("room", room).Msg("push: send failed")
		}
	}
}

// RoomMembers reports how many push connections joined the room of userID.
func (s *Server) RoomMembers(userID string) int {
	return s.hub.members(userID)
}
