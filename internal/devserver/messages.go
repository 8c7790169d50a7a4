package devserver

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

// SendMessage appends a message to a flat's conversation and pushes a
// notification to every participant, the sender included.
func (s *Server) SendMessage(flatID, senderID, content string) (marketplace.Message, bool) {
	f, ok := s.flats.Get(flatID)
	if !ok {
		return marketplace.Message{}, false
	}

	m := messageRecord{
		ID:        uuid.NewString(),
		FlatID:    flatID,
		SenderID:  senderID,
		Content:   content,
		ReadBy:    map[string]bool{},
		CreatedAt: s.opts.Now().UTC(),
	}
	s.messages.Set(m.ID, m)

	ev := realtime.Event{FlatID: flatID, SenderID: senderID}
	for _, userID := range s.participants(f) {
		s.hub.push(userID, s.opts.MessageEvent, ev)
	}
	return s.renderMessage(m, senderID), true
}

// participants returns the flat owner and everyone who wrote on the flat.
func (s *Server) participants(f flatRecord) []string {
	seen := map[string]bool{f.OwnerID: true}
	out := []string{f.OwnerID}
	for _, m := range s.flatMessages(f.ID) {
		if !seen[m.SenderID] {
			seen[m.SenderID] = true
			out = append(out, m.SenderID)
		}
	}
	return out
}

func (s *Server) flatMessages(flatID string) []messageRecord {
	msgs := s.messages.Filter(func(m messageRecord) bool { return m.FlatID == flatID })
	sortMessages(msgs)
	return msgs
}

func sortMessages(msgs []messageRecord) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

func (s *Server) renderMessage(m messageRecord, viewer string) marketplace.Message {
	var flat marketplace.FlatRef
	if f, ok := s.flats.Get(m.FlatID); ok {
		flat.Flat = s.renderFlat(f)
	} else {
		flat.ID = m.FlatID
	}
	return marketplace.Message{
		ID:        m.ID,
		Flat:      flat,
		Content:   m.Content,
		Sender:    s.person(m.SenderID),
		IsRead:    m.SenderID == viewer || m.ReadBy[viewer],
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05.000Z"),
	}
}

func (s *Server) renderMessages(msgs []messageRecord, viewer string) []marketplace.Message {
	out := make([]marketplace.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.renderMessage(m, viewer))
	}
	return out
}

func (s *Server) isParticipant(f flatRecord, userID string) bool {
	for _, id := range s.participants(f) {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	m, ok := s.SendMessage(chi.URLParam(r, "flatID"), currentUser(r.Context()).ID, body.Content)
	if !ok {
		writeError(w, http.StatusNotFound, "flat not found")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleFlatMessages(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ownedFlat(w, r)
	if !ok {
		return
	}
	caller := currentUser(r.Context())
	writeJSON(w, http.StatusOK, s.renderMessages(s.flatMessages(f.ID), caller.ID))
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	f, ok := s.flats.Get(chi.URLParam(r, "flatID"))
	if !ok {
		writeError(w, http.StatusNotFound, "flat not found")
		return
	}
	caller := currentUser(r.Context())
	if !s.isParticipant(f, caller.ID) {
		writeJSON(w, http.StatusOK, []marketplace.Message{})
		return
	}
	writeJSON(w, http.StatusOK, s.renderMessages(s.flatMessages(f.ID), caller.ID))
}

func (s *Server) handleMyMessages(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r.Context())
	msgs := s.messages.Filter(func(m messageRecord) bool { return m.SenderID == caller.ID })
	sortMessages(msgs)
	writeJSON(w, http.StatusOK, s.renderMessages(msgs, caller.ID))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	flatID := chi.URLParam(r, "flatID")
	f, ok := s.flats.Get(flatID)
	if !ok {
		writeError(w, http.StatusNotFound, "flat not found")
		return
	}
	caller := currentUser(r.Context())
	if !s.isParticipant(f, caller.ID) {
		writeError(w, http.StatusForbidden, "not part of this conversation")
		return
	}

	marked := 0
	for _, m := range s.flatMessages(flatID) {
		if m.SenderID == caller.ID || m.ReadBy[caller.ID] {
			continue
		}
		s.messages.Update(m.ID, func(cur messageRecord, ok bool) (messageRecord, bool) {
			if !ok {
				return cur, false
			}
			read := make(map[string]bool, len(cur.ReadBy)+1)
			for k, v := range cur.ReadBy {
				read[k] = v
			}
			read[caller.ID] = true
			cur.ReadBy = read
			return cur, true
		})
		marked++
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}
