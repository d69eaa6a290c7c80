package lobby

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	accountdomain "thronehall/internal/account/domain"
	"thronehall/internal/bus"
	"thronehall/internal/catalog"
	gamedomain "thronehall/internal/gamerecord/domain"
	"thronehall/internal/lobby/domain"
	"thronehall/internal/nodes"
	"thronehall/internal/rules"
	"thronehall/internal/telemetry"
)

// NewTableRequest is the inbound newtable command payload.
type NewTableRequest struct {
	Name           string `json:"name"`
	Password       string `json:"password,omitempty"`
	AllowSpectator bool   `json:"allowSpectator"`
	ShowHand       bool   `json:"showHand"`
	GameType       string `json:"gameType,omitempty"`
	RestrictedList string `json:"restrictedList,omitempty"`
}

// JoinTableRequest is the inbound jointable command payload.
type JoinTableRequest struct {
	TableID   string `json:"tableId"`
	Password  string `json:"password,omitempty"`
	Spectator bool   `json:"spectator"`
}

// CreateTable creates a table owned by the caller. A caller who already has a
// table gets a silent no-op.
func (s *Service) CreateTable(ctx context.Context, id ConnID, req NewTableRequest) error {
	user := s.userForConn(id)
	if user == nil {
		return nil
	}

	// Resolve the restricted list before taking the lock; the catalog call
	// may suspend. The already-seated check is redone under the lock so two
	// rapid creates cannot both pass it.
	listName := req.RestrictedList
	if listName == "" {
		lists, err := s.catalog.GetRestrictedLists(ctx)
		if err != nil {
			log.Printf("lobby: restricted lists: %v", err)
			s.broadcast(s.connsOf(user.Username), EventGameError, "unable to create the table right now")
			return err
		}
		if len(lists) > 0 {
			listName = lists[0].Name
		}
	}

	passwordHash := ""
	if req.Password != "" {
		h, err := s.hasher.Hash([]byte(req.Password))
		if err != nil {
			return err
		}
		passwordHash = h
	}

	s.mu.Lock()
	if _, seated := s.tablesByUser[user.Username]; seated {
		s.mu.Unlock()
		return nil
	}
	t := &domain.Table{
		ID:             uuid.New(),
		Name:           req.Name,
		Owner:          user.Username,
		PasswordHash:   passwordHash,
		AllowSpectator: req.AllowSpectator,
		ShowHand:       req.ShowHand,
		GameType:       req.GameType,
		RestrictedList: listName,
		CreatedAt:      s.nowF(),
		Seats:          []*domain.Seat{{User: user, Role: domain.RolePlayer}},
	}
	s.tables[t.ID] = t
	s.tablesByUser[user.Username] = t.ID
	view := t.View()
	audience := s.audienceLocked(user)
	s.mu.Unlock()

	s.broadcast(audience, EventNewTable, view)
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeTableCreated, TableID: t.ID.String(), UserID: user.ID})
	return nil
}

// JoinTable seats the caller at a table. Precondition failures are returned
// as typed errors for the transport to report to the caller; the table is
// unchanged.
func (s *Service) JoinTable(ctx context.Context, id ConnID, req JoinTableRequest) error {
	user := s.userForConn(id)
	if user == nil {
		return nil
	}

	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return domain.ErrTableNotFound
	}

	s.mu.Lock()
	if _, seated := s.tablesByUser[user.Username]; seated {
		s.mu.Unlock()
		return domain.ErrAlreadySeated
	}
	t, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrTableNotFound
	}

	t.Mu.Lock()
	if err := s.joinChecksLocked(t, user, req); err != nil {
		t.Mu.Unlock()
		s.mu.Unlock()
		return err
	}
	role := domain.RolePlayer
	if req.Spectator {
		role = domain.RoleSpectator
	}
	seat := &domain.Seat{User: user, Role: role}
	t.Seats = append(t.Seats, seat)
	s.tablesByUser[user.Username] = t.ID
	view := t.View()
	state := domain.SeatState{Table: view}
	t.Mu.Unlock()

	audience := s.audienceLocked(user)
	s.mu.Unlock()

	s.broadcast(audience, EventUpdateTable, view)
	s.broadcast(s.connsOf(user.Username), EventTableState, state)
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeTableJoined, TableID: t.ID.String(), UserID: user.ID})
	return nil
}

// joinChecksLocked applies the table-specific join preconditions. Caller
// holds the table mutex.
func (s *Service) joinChecksLocked(t *domain.Table, user *accountdomain.UserSummary, req JoinTableRequest) error {
	if t.Seat(user.Username) != nil {
		return domain.ErrAlreadyMember
	}
	if t.Started {
		return domain.ErrTableStarted
	}
	if req.Spectator && !t.AllowSpectator {
		return domain.ErrTableFull
	}
	if !req.Spectator && t.PlayersFull() {
		return domain.ErrTableFull
	}
	if t.PasswordHash != "" {
		if err := s.hasher.Compare(t.PasswordHash, []byte(req.Password)); err != nil {
			return domain.ErrWrongPassword
		}
	}
	return nil
}

// SelectDeck validates the chosen deck against the table's restricted list
// and attaches the report to the caller's seat. A caller with no table gets a
// silent no-op.
func (s *Service) SelectDeck(ctx context.Context, id ConnID, deckID string) error {
	user := s.userForConn(id)
	if user == nil {
		return nil
	}
	t := s.tableOf(user.Username)
	if t == nil {
		return nil
	}

	deck, err := s.catalog.GetDeckByID(ctx, deckID)
	if err != nil || deck == nil {
		log.Printf("lobby: fetch deck %s: %v", deckID, err)
		s.broadcast(s.connsOf(user.Username), EventGameError, "unable to load that deck")
		return err
	}
	packs, err := s.catalog.GetAllPacks(ctx)
	if err != nil {
		log.Printf("lobby: fetch packs: %v", err)
		s.broadcast(s.connsOf(user.Username), EventGameError, "unable to load that deck")
		return err
	}
	lists, err := s.catalog.GetRestrictedLists(ctx)
	if err != nil {
		log.Printf("lobby: restricted lists: %v", err)
		s.broadcast(s.connsOf(user.Username), EventGameError, "unable to load that deck")
		return err
	}

	rulesDeck := catalog.ToRulesDeck(deck)
	rulesPacks := catalog.ToRulesPacks(packs)
	var active []rules.RestrictedList

	t.Mu.Lock()
	for _, l := range lists {
		if l.Name == t.RestrictedList {
			active = append(active, catalog.ToRulesRestrictedList(l))
		}
	}
	report := s.validator.Validate(rulesDeck, rulesPacks, active)
	seat := t.Seat(user.Username)
	if seat == nil || t.Started {
		t.Mu.Unlock()
		return nil
	}
	seat.DeckID = deck.ID
	seat.DeckName = deck.Name
	seat.Legality = report
	view := t.View()
	state := domain.SeatState{Table: view, DeckID: deck.ID, DeckName: deck.Name, Legality: report}
	members := t.Seats
	t.Mu.Unlock()

	for _, m := range members {
		if m.User.Username == user.Username {
			continue
		}
		s.broadcast(s.connsOf(m.User.Username), EventTableState, domain.SeatState{Table: view})
	}
	s.broadcast(s.connsOf(user.Username), EventTableState, state)
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeDeckSelected, TableID: t.ID.String(), UserID: user.ID})
	return nil
}

// StartTable dispatches the caller's table to a node. It is a no-op unless
// the caller owns the table and every player seat holds a legal deck; the
// only user-visible failure is node exhaustion.
func (s *Service) StartTable(ctx context.Context, id ConnID) error {
	user := s.userForConn(id)
	if user == nil {
		return nil
	}
	t := s.tableOf(user.Username)
	if t == nil {
		return nil
	}

	t.Mu.Lock()
	if t.Started || t.Owner != user.Username || !t.DecksReady() {
		t.Mu.Unlock()
		return nil
	}
	for _, p := range t.Players() {
		if p.Legality != nil && !p.Legality.Valid() {
			t.Mu.Unlock()
			s.broadcast(s.connsOf(user.Username), EventGameError, "every player must select a legal deck")
			return nil
		}
	}

	node, err := s.nodes.SelectNode()
	if errors.Is(err, nodes.ErrNoNode) {
		t.Mu.Unlock()
		s.broadcast(s.connsOf(user.Username), EventGameError, "no game nodes are available, try again later")
		return nil
	}
	if err != nil {
		t.Mu.Unlock()
		return err
	}

	t.Started = true
	t.NodeName = node.Name
	start := startPayload(t)
	record := recordFor(t, s.nowF())
	view := t.View()
	members := memberNames(t)
	t.Mu.Unlock()

	if err := s.bus.Publish(ctx, node.Name, bus.KindStartGame, start); err != nil {
		log.Printf("lobby: dispatch table %s to %s: %v", t.ID, node.Name, err)
	}
	if err := s.games.CreateGame(ctx, record); err != nil {
		log.Printf("lobby: create game record for table %s: %v", t.ID, err)
	}

	handoff := Handoff{TableID: t.ID.String(), Node: node.Name, URL: node.URL}
	for _, name := range members {
		s.broadcast(s.connsOf(name), EventHandoff, handoff)
	}
	s.broadcast(s.audience(user), EventUpdateTable, view)
	s.emit(ctx, &telemetry.Event{
		Type: telemetry.TypeGameStarted, TableID: t.ID.String(), UserID: user.ID, NodeName: node.Name,
	})
	return nil
}

// LeaveTable removes the caller from their table, or marks the seat left if
// the game already started.
func (s *Service) LeaveTable(ctx context.Context, id ConnID) error {
	user := s.userForConn(id)
	if user == nil {
		return nil
	}
	s.leaveCurrentTable(ctx, user)
	return nil
}

// leaveCurrentTable applies the table-leave transition for a user, whether
// from an explicit command or connection loss.
func (s *Service) leaveCurrentTable(ctx context.Context, user *accountdomain.UserSummary) {
	s.mu.Lock()
	tableID, seated := s.tablesByUser[user.Username]
	if !seated {
		s.mu.Unlock()
		return
	}
	delete(s.tablesByUser, user.Username)
	t, ok := s.tables[tableID]
	if !ok {
		s.mu.Unlock()
		return
	}

	t.Mu.Lock()
	removedTable := false
	var view domain.TableView
	if t.Started {
		if seat := t.Seat(user.Username); seat != nil {
			seat.HasLeft = true
		}
		if t.Empty() {
			delete(s.tables, t.ID)
			removedTable = true
			s.nodes.Release(t.NodeName)
		}
		view = t.View()
	} else {
		t.RemoveSeat(user.Username)
		if t.Owner == user.Username {
			if players := t.Players(); len(players) > 0 {
				t.Owner = players[0].User.Username
			}
		}
		if len(t.Seats) == 0 {
			delete(s.tables, t.ID)
			removedTable = true
		}
		view = t.View()
	}
	t.Mu.Unlock()

	audience := s.audienceLocked(user)
	s.mu.Unlock()

	if removedTable {
		s.broadcast(audience, EventRemoveTable, view)
	} else {
		s.broadcast(audience, EventUpdateTable, view)
	}
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeTableLeft, TableID: tableID.String(), UserID: user.ID})
}

// tableOf returns the caller's current table, or nil.
func (s *Service) tableOf(username string) *domain.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tableID, ok := s.tablesByUser[username]
	if !ok {
		return nil
	}
	return s.tables[tableID]
}

// startPayload builds the node-facing dispatch payload. Caller holds the
// table mutex.
func startPayload(t *domain.Table) bus.StartGameMessage {
	msg := bus.StartGameMessage{
		TableID:        t.ID.String(),
		Name:           t.Name,
		AllowSpectator: t.AllowSpectator,
		RestrictedList: t.RestrictedList,
	}
	for _, seat := range t.Seats {
		msg.Seats = append(msg.Seats, bus.StartSeat{
			UserID:    seat.User.ID,
			Username:  seat.User.Username,
			DeckID:    seat.DeckID,
			Spectator: seat.Role == domain.RoleSpectator,
		})
	}
	return msg
}

// recordFor builds the game record persisted at start. Caller holds the
// table mutex.
func recordFor(t *domain.Table, startedAt time.Time) *gamedomain.GameRecord {
	rec := &gamedomain.GameRecord{
		ID:        uuid.NewString(),
		TableID:   t.ID.String(),
		Name:      t.Name,
		NodeName:  t.NodeName,
		StartedAt: startedAt,
	}
	for _, seat := range t.Players() {
		rec.Players = append(rec.Players, gamedomain.PlayerRecord{
			UserID:   seat.User.ID,
			Username: seat.User.Username,
			DeckID:   seat.DeckID,
		})
	}
	return rec
}

// memberNames lists usernames seated at the table. Caller holds the table
// mutex.
func memberNames(t *domain.Table) []string {
	out := make([]string, 0, len(t.Seats))
	for _, seat := range t.Seats {
		out = append(out, seat.User.Username)
	}
	return out
}
