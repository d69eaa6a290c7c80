// Package lobby implements the session registry: connected users, pending
// and running tables, chat fan-out, and the hand-off of ready tables to
// game-execution nodes.
package lobby

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	accountdomain "thronehall/internal/account/domain"
	accountrepo "thronehall/internal/account/repository"
	"thronehall/internal/bus"
	catalogrepo "thronehall/internal/catalog/repository"
	gamerepo "thronehall/internal/gamerecord/repository"
	"thronehall/internal/lobby/domain"
	"thronehall/internal/nodes"
	"thronehall/internal/rules"
	"thronehall/internal/security"
	"thronehall/internal/telemetry"
)

// ConnID identifies one client connection for the lifetime of its socket.
type ConnID string

// Push event names delivered over the session transport.
const (
	EventUsers         = "users"
	EventNewUser       = "newuser"
	EventUserLeft      = "userleft"
	EventLobbyChat     = "lobbychat"
	EventLobbyMessages = "lobbymessages"
	EventNewTable      = "newtable"
	EventUpdateTable   = "updatetable"
	EventRemoveTable   = "removetable"
	EventTableState    = "tablestate"
	EventHandoff       = "handoff"
	EventGameError     = "gameerror"
	EventNoChat        = "nochat"
)

// Notifier pushes one event to one connection. Implemented by the ws hub.
// Sends are fire-and-forget; a slow or gone connection is the hub's problem.
type Notifier interface {
	Send(id ConnID, event string, payload any)
}

// UserView is the wire shape of a connected user in users/newuser pushes.
type UserView struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `json:"role"`
}

// ChatMessage is the wire shape of one lobby chat message.
type ChatMessage struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"postedAt"`
}

// Handoff redirects table members to their assigned node.
type Handoff struct {
	TableID string `json:"tableId"`
	Node    string `json:"node"`
	URL     string `json:"url"`
}

type connInfo struct {
	id       ConnID
	username string // empty for anonymous connections
}

// Deps are the collaborators a Service needs.
type Deps struct {
	Accounts  accountrepo.Repository
	Catalog   catalogrepo.Repository
	Games     gamerepo.Repository
	Validator rules.Validator
	Nodes     *nodes.Manager
	Bus       bus.Publisher
	Notifier  Notifier
	Emitter   telemetry.EventEmitter
	Hasher    *security.Hasher

	LobbyName       string
	ChatMinAge      time.Duration
	ChatMaxLen      int
	TableStaleAfter time.Duration
}

// Service is the session registry. One instance per lobby process; all state
// is in-memory and rebuilt from node re-announcement after a restart.
type Service struct {
	mu           sync.RWMutex
	users        map[string]*accountdomain.UserSummary
	connsByUser  map[string]map[ConnID]struct{}
	conns        map[ConnID]*connInfo
	tables       map[uuid.UUID]*domain.Table
	tablesByUser map[string]uuid.UUID

	accounts  accountrepo.Repository
	catalog   catalogrepo.Repository
	games     gamerepo.Repository
	validator rules.Validator
	nodes     *nodes.Manager
	bus       bus.Publisher
	notifier  Notifier
	emitter   telemetry.EventEmitter
	hasher    *security.Hasher

	lobbyName  string
	chatMinAge time.Duration
	chatMaxLen int
	staleAfter time.Duration
	nowF       func() time.Time
}

// NewService creates the session registry.
func NewService(d Deps) *Service {
	return &Service{
		users:        make(map[string]*accountdomain.UserSummary),
		connsByUser:  make(map[string]map[ConnID]struct{}),
		conns:        make(map[ConnID]*connInfo),
		tables:       make(map[uuid.UUID]*domain.Table),
		tablesByUser: make(map[string]uuid.UUID),
		accounts:     d.Accounts,
		catalog:      d.Catalog,
		games:        d.Games,
		validator:    d.Validator,
		nodes:        d.Nodes,
		bus:          d.Bus,
		notifier:     d.Notifier,
		emitter:      d.Emitter,
		hasher:       d.Hasher,
		lobbyName:    d.LobbyName,
		chatMinAge:   d.ChatMinAge,
		chatMaxLen:   d.ChatMaxLen,
		staleAfter:   d.TableStaleAfter,
		nowF:         time.Now,
	}
}

// Connect registers a connection. Authenticated connections are indexed by
// username and receive the visible user list, their chat backlog, and the
// current table list; anonymous connections observe only users and tables.
func (s *Service) Connect(ctx context.Context, id ConnID, identity *security.Identity) error {
	var user *accountdomain.UserSummary
	if identity != nil {
		u, err := s.accounts.GetUserByUsername(ctx, identity.Username)
		if err != nil {
			return fmt.Errorf("lobby: fetch user %s: %w", identity.Username, err)
		}
		if u == nil {
			return fmt.Errorf("lobby: unknown user %s", identity.Username)
		}
		user = u
	}

	var backlog []*accountdomain.PersistedMessage
	if user != nil {
		msgs, err := s.accounts.GetLobbyMessagesForUser(ctx, user.ID)
		if err != nil {
			log.Printf("lobby: chat backlog for %s: %v", user.Username, err)
		} else {
			backlog = msgs
		}
	}

	s.mu.Lock()
	info := &connInfo{id: id}
	newUser := false
	if user != nil {
		info.username = user.Username
		if _, known := s.users[user.Username]; !known {
			newUser = true
		}
		s.users[user.Username] = user
		set, ok := s.connsByUser[user.Username]
		if !ok {
			set = make(map[ConnID]struct{})
			s.connsByUser[user.Username] = set
		}
		set[id] = struct{}{}
	}
	s.conns[id] = info

	userList := s.visibleUsersLocked(user)
	tableViews := s.tableViewsLocked()
	var announce []ConnID
	if newUser {
		announce = s.audienceLocked(user, id)
	}
	s.mu.Unlock()

	s.notifier.Send(id, EventUsers, userList)
	for _, v := range tableViews {
		s.notifier.Send(id, EventNewTable, v)
	}
	if user != nil {
		s.notifier.Send(id, EventLobbyMessages, s.filterBacklog(user, backlog))
	}
	if newUser {
		view := UserView{Username: user.Username, Avatar: user.Avatar, Role: user.Role}
		for _, c := range announce {
			s.notifier.Send(c, EventNewUser, view)
		}
	}
	return nil
}

// Disconnect removes all indices for the connection. If it was the user's
// last connection the user leaves the lobby, which applies the table-leave
// transition and notifies everyone not mutually blocked with them.
func (s *Service) Disconnect(ctx context.Context, id ConnID) {
	s.mu.Lock()
	info, ok := s.conns[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.conns, id)
	if info.username == "" {
		s.mu.Unlock()
		return
	}
	set := s.connsByUser[info.username]
	delete(set, id)
	if len(set) > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.connsByUser, info.username)
	user := s.users[info.username]
	delete(s.users, info.username)
	audience := s.audienceLocked(user, id)
	s.mu.Unlock()

	if user != nil {
		s.leaveCurrentTable(ctx, user)
		for _, c := range audience {
			s.notifier.Send(c, EventUserLeft, UserView{Username: user.Username})
		}
	}
}

// userForConn resolves the authenticated user behind a connection, or nil for
// anonymous connections.
func (s *Service) userForConn(id ConnID) *accountdomain.UserSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.conns[id]
	if !ok || info.username == "" {
		return nil
	}
	return s.users[info.username]
}

// visibleUsersLocked returns the user list as seen by viewer, hiding mutually
// blocked users. Caller holds s.mu.
func (s *Service) visibleUsersLocked(viewer *accountdomain.UserSummary) []UserView {
	out := make([]UserView, 0, len(s.users))
	for _, u := range s.users {
		if viewer != nil && viewer.MutuallyBlocked(u) && u.Username != viewer.Username {
			continue
		}
		out = append(out, UserView{Username: u.Username, Avatar: u.Avatar, Role: u.Role})
	}
	return out
}

// tableViewsLocked snapshots every table. Caller holds s.mu.
func (s *Service) tableViewsLocked() []domain.TableView {
	out := make([]domain.TableView, 0, len(s.tables))
	for _, t := range s.tables {
		t.Mu.Lock()
		out = append(out, t.View())
		t.Mu.Unlock()
	}
	return out
}

// audienceLocked returns every connection that should see an event about
// relevant, excluding connections of users mutually blocked with them and the
// listed connections. relevant may be nil for events with no subject user.
// Caller holds s.mu.
func (s *Service) audienceLocked(relevant *accountdomain.UserSummary, exclude ...ConnID) []ConnID {
	skip := make(map[ConnID]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}
	var out []ConnID
	for id, info := range s.conns {
		if _, ok := skip[id]; ok {
			continue
		}
		if relevant != nil && info.username != "" && info.username != relevant.Username {
			if u := s.users[info.username]; u != nil && u.MutuallyBlocked(relevant) {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

// audience is audienceLocked with its own read lock.
func (s *Service) audience(relevant *accountdomain.UserSummary, exclude ...ConnID) []ConnID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audienceLocked(relevant, exclude...)
}

// connsOf returns the connections of one username.
func (s *Service) connsOf(username string) []ConnID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConnID, 0, len(s.connsByUser[username]))
	for id := range s.connsByUser[username] {
		out = append(out, id)
	}
	return out
}

// broadcast sends one event to the given connections.
func (s *Service) broadcast(conns []ConnID, event string, payload any) {
	for _, c := range conns {
		s.notifier.Send(c, event, payload)
	}
}

// filterBacklog hides messages from users mutually blocked with viewer and
// messages removed by moderation.
func (s *Service) filterBacklog(viewer *accountdomain.UserSummary, msgs []*accountdomain.PersistedMessage) []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Removed {
			continue
		}
		if viewer.HasBlocked(m.Username) {
			continue
		}
		// Prefer the connected sender's live block list; fall back to the
		// list captured with the message for offline senders.
		if sender := s.users[m.Username]; sender != nil {
			if sender.HasBlocked(viewer.Username) {
				continue
			}
		} else if m.SenderBlocked(viewer.Username) {
			continue
		}
		out = append(out, ChatMessage{
			ID:       m.ID,
			Username: m.Username,
			Avatar:   m.Avatar,
			Text:     m.Text,
			PostedAt: m.PostedAt,
		})
	}
	return out
}

// emit sends a telemetry event without blocking the caller.
func (s *Service) emit(ctx context.Context, event *telemetry.Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.nowF()
	}
	telemetry.EmitAsync(s.emitter, ctx, event)
}
