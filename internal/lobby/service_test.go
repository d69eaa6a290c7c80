package lobby

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	accountdomain "thronehall/internal/account/domain"
	accountrepo "thronehall/internal/account/repository"
	"thronehall/internal/bus"
	catalogdomain "thronehall/internal/catalog/domain"
	catalogrepo "thronehall/internal/catalog/repository"
	gamedomain "thronehall/internal/gamerecord/domain"
	gamerepo "thronehall/internal/gamerecord/repository"
	"thronehall/internal/lobby/domain"
	"thronehall/internal/nodes"
	"thronehall/internal/rules"
	"thronehall/internal/security"
)

var testNow = time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

// sentEvent is one push captured by the mock notifier.
type sentEvent struct {
	conn    ConnID
	event   string
	payload any
}

type mockNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

var _ Notifier = (*mockNotifier)(nil)

func (n *mockNotifier) Send(id ConnID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{conn: id, event: event, payload: payload})
}

func (n *mockNotifier) count(conn ConnID, event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.conn == conn && e.event == event {
			c++
		}
	}
	return c
}

func (n *mockNotifier) last(conn ConnID, event string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].conn == conn && n.events[i].event == event {
			return n.events[i].payload, true
		}
	}
	return nil, false
}

type mockAccounts struct {
	mu       sync.Mutex
	users    map[string]*accountdomain.UserSummary
	messages []*accountdomain.PersistedMessage
	removed  []string
}

var _ accountrepo.Repository = (*mockAccounts)(nil)

func (m *mockAccounts) GetUserByUsername(_ context.Context, username string) (*accountdomain.UserSummary, error) {
	return m.users[username], nil
}

func (m *mockAccounts) AddLobbyMessage(_ context.Context, userID, text string) (*accountdomain.PersistedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var username, avatar string
	var blocks []string
	for _, u := range m.users {
		if u.ID == userID {
			username, avatar = u.Username, u.Avatar
			blocks = u.BlockList
		}
	}
	msg := &accountdomain.PersistedMessage{
		ID:              fmt.Sprintf("m%d", len(m.messages)+1),
		UserID:          userID,
		Username:        username,
		Avatar:          avatar,
		Text:            text,
		PostedAt:        testNow,
		SenderBlockList: blocks,
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *mockAccounts) RemoveLobbyMessage(_ context.Context, messageID, removedByUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, messageID)
	for _, msg := range m.messages {
		if msg.ID == messageID {
			msg.Removed = true
		}
	}
	return nil
}

func (m *mockAccounts) GetLobbyMessagesForUser(_ context.Context, userID string) ([]*accountdomain.PersistedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*accountdomain.PersistedMessage(nil), m.messages...), nil
}

type mockCatalog struct {
	decks map[string]*catalogdomain.Deck
	packs []*catalogdomain.Pack
	lists []*catalogdomain.RestrictedList
}

var _ catalogrepo.Repository = (*mockCatalog)(nil)

func (m *mockCatalog) GetDeckByID(_ context.Context, id string) (*catalogdomain.Deck, error) {
	return m.decks[id], nil
}

func (m *mockCatalog) GetAllPacks(_ context.Context) ([]*catalogdomain.Pack, error) {
	return m.packs, nil
}

func (m *mockCatalog) GetRestrictedLists(_ context.Context) ([]*catalogdomain.RestrictedList, error) {
	return m.lists, nil
}

type mockGames struct {
	mu      sync.Mutex
	records map[string]*gamedomain.GameRecord
	updates int
}

var _ gamerepo.Repository = (*mockGames)(nil)

func (m *mockGames) CreateGame(_ context.Context, g *gamedomain.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[g.TableID] = g
	return nil
}

func (m *mockGames) UpdateGame(_ context.Context, g *gamedomain.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[g.TableID] = g
	m.updates++
	return nil
}

func (m *mockGames) GetGameByTableID(_ context.Context, tableID string) (*gamedomain.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[tableID], nil
}

type published struct {
	target  string
	kind    bus.Kind
	payload any
}

type mockPublisher struct {
	mu   sync.Mutex
	sent []published
}

var _ bus.Publisher = (*mockPublisher)(nil)

func (p *mockPublisher) Publish(_ context.Context, target string, kind bus.Kind, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{target: target, kind: kind, payload: payload})
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) byKind(kind bus.Kind) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, s := range p.sent {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// passValidator reports every deck legal.
type passValidator struct{}

func (passValidator) Validate(*rules.Deck, []rules.Pack, []rules.RestrictedList) *rules.DeckLegalityReport {
	return &rules.DeckLegalityReport{
		BasicRules: true, NoBannedCards: true, RestrictedRules: true, NoUnreleasedCards: true,
	}
}

// failValidator reports every deck illegal.
type failValidator struct{}

func (failValidator) Validate(*rules.Deck, []rules.Pack, []rules.RestrictedList) *rules.DeckLegalityReport {
	return &rules.DeckLegalityReport{
		NoBannedCards: true, RestrictedRules: true, NoUnreleasedCards: true,
		Violations: []string{"too few plot cards (6 of 7)"},
	}
}

type fixture struct {
	svc      *Service
	notifier *mockNotifier
	accounts *mockAccounts
	catalog  *mockCatalog
	games    *mockGames
	pub      *mockPublisher
	nodes    *nodes.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		notifier: &mockNotifier{},
		accounts: &mockAccounts{users: make(map[string]*accountdomain.UserSummary)},
		catalog: &mockCatalog{
			decks: make(map[string]*catalogdomain.Deck),
			lists: []*catalogdomain.RestrictedList{{ID: "rl1", Name: "Standard 2020", Version: "2.0"}},
		},
		games: &mockGames{records: make(map[string]*gamedomain.GameRecord)},
		pub:   &mockPublisher{},
		nodes: nodes.NewManagerWithClock(time.Minute, func() time.Time { return testNow }),
	}
	f.svc = NewService(Deps{
		Accounts:        f.accounts,
		Catalog:         f.catalog,
		Games:           f.games,
		Validator:       passValidator{},
		Nodes:           f.nodes,
		Bus:             f.pub,
		Notifier:        f.notifier,
		Hasher:          security.NewHasher(4),
		LobbyName:       "lobby1",
		ChatMinAge:      72 * time.Hour,
		ChatMaxLen:      512,
		TableStaleAfter: 10 * time.Minute,
	})
	f.svc.nowF = func() time.Time { return testNow }
	return f
}

// addUser registers a user with the mock account service, registered well
// before the chat age gate.
func (f *fixture) addUser(username string, blocked ...string) *accountdomain.UserSummary {
	u := &accountdomain.UserSummary{
		ID:           "id-" + username,
		Username:     username,
		Role:         accountdomain.RoleUser,
		RegisteredAt: testNow.Add(-30 * 24 * time.Hour),
		BlockList:    blocked,
	}
	f.accounts.users[username] = u
	return u
}

// connect registers a connection for username (may be "" for anonymous).
func (f *fixture) connect(t *testing.T, id ConnID, username string) {
	t.Helper()
	var ident *security.Identity
	if username != "" {
		ident = &security.Identity{UserID: "id-" + username, Username: username}
	}
	if err := f.svc.Connect(context.Background(), id, ident); err != nil {
		t.Fatalf("Connect(%s): %v", id, err)
	}
}

// tableID returns the id of the only table in the registry.
func (f *fixture) tableID(t *testing.T) string {
	t.Helper()
	f.svc.mu.RLock()
	defer f.svc.mu.RUnlock()
	if len(f.svc.tables) != 1 {
		t.Fatalf("table count = %d, want 1", len(f.svc.tables))
	}
	for id := range f.svc.tables {
		return id.String()
	}
	return ""
}

func TestConnectSendsUserListAndBacklog(t *testing.T) {
	f := newFixture(t)
	f.addUser("ned")
	f.addUser("cat")
	f.connect(t, "c1", "ned")

	f.accounts.AddLobbyMessage(context.Background(), "id-ned", "hello")
	f.connect(t, "c2", "cat")

	if n := f.notifier.count("c2", EventUsers); n != 1 {
		t.Errorf("users pushes to c2 = %d, want 1", n)
	}
	payload, ok := f.notifier.last("c2", EventLobbyMessages)
	if !ok {
		t.Fatal("no lobbymessages push to c2")
	}
	msgs := payload.([]ChatMessage)
	if len(msgs) != 1 || msgs[0].Text != "hello" {
		t.Errorf("backlog = %+v, want one hello message", msgs)
	}
	// ned hears that cat arrived.
	if n := f.notifier.count("c1", EventNewUser); n != 1 {
		t.Errorf("newuser pushes to c1 = %d, want 1", n)
	}
}

func TestConnectHidesMutuallyBlocked(t *testing.T) {
	f := newFixture(t)
	f.addUser("ned", "cersei")
	f.addUser("cersei")
	f.connect(t, "c1", "cersei")
	f.connect(t, "c2", "ned")

	payload, _ := f.notifier.last("c2", EventUsers)
	for _, u := range payload.([]UserView) {
		if u.Username == "cersei" {
			t.Error("blocked user visible in user list")
		}
	}
	// cersei must not hear about ned arriving.
	if n := f.notifier.count("c1", EventNewUser); n != 0 {
		t.Errorf("newuser pushes to blocked peer = %d, want 0", n)
	}
}

func TestBacklogHidesOfflineBlockingSender(t *testing.T) {
	f := newFixture(t)
	f.addUser("cersei", "ned")
	f.addUser("tyrion")
	f.addUser("ned")

	// cersei and tyrion chat, then go offline before ned connects.
	f.accounts.AddLobbyMessage(context.Background(), "id-cersei", "hear me roar")
	f.accounts.AddLobbyMessage(context.Background(), "id-tyrion", "i drink and i know things")

	f.connect(t, "c1", "ned")

	payload, ok := f.notifier.last("c1", EventLobbyMessages)
	if !ok {
		t.Fatal("no lobbymessages push")
	}
	msgs := payload.([]ChatMessage)
	if len(msgs) != 1 || msgs[0].Username != "tyrion" {
		t.Errorf("backlog = %+v, want only tyrion's message", msgs)
	}
}

func TestCreateTableIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addUser("ned")
	f.connect(t, "c1", "ned")

	req := NewTableRequest{Name: "winterfell"}
	if err := f.svc.CreateTable(context.Background(), "c1", req); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := f.svc.CreateTable(context.Background(), "c1", req); err != nil {
		t.Fatalf("CreateTable twice: %v", err)
	}
	if got := f.svc.TableCount(); got != 1 {
		t.Errorf("table count = %d, want 1", got)
	}
}

func TestCreateTableDefaultsRestrictedList(t *testing.T) {
	f := newFixture(t)
	f.addUser("ned")
	f.connect(t, "c1", "ned")
	if err := f.svc.CreateTable(context.Background(), "c1", NewTableRequest{Name: "winterfell"}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	payload, ok := f.notifier.last("c1", EventNewTable)
	if !ok {
		t.Fatal("no newtable push")
	}
	view := payload.(domain.TableView)
	if view.RestrictedList != "Standard 2020" {
		t.Errorf("restricted list = %q, want first catalog list", view.RestrictedList)
	}
}

func TestJoinTablePreconditions(t *testing.T) {
	f := newFixture(t)
	f.addUser("ned")
	f.addUser("cat")
	f.addUser("arya")
	f.connect(t, "c1", "ned")
	f.connect(t, "c2", "cat")
	f.connect(t, "c3", "arya")

	if err := f.svc.CreateTable(context.Background(), "c1", NewTableRequest{Name: "winterfell"}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	tableID := f.tableID(t)

	if err := f.svc.JoinTable(context.Background(), "c2", JoinTableRequest{TableID: tableID}); err != nil {
		t.Fatalf("JoinTable: %v", err)
	}
	// Full table rejects a third player, membership unchanged.
	err := f.svc.JoinTable(context.Background(), "c3", JoinTableRequest{TableID: tableID})
	if err != domain.ErrTableFull {
		t.Errorf("join full table: err = %v, want ErrTableFull", err)
	}
	table := f.svc.Table(uuid.MustParse(tableID))
	table.Mu.Lock()
	seats := len(table.Seats)
	table.Mu.Unlock()
	if seats != 2 {
		t.Errorf("seats = %d, want 2 after rejected join", seats)
	}

	// Unknown table.
	err = f.svc.JoinTable(context.Background(), "c3", JoinTableRequest{TableID: uuid.NewString()})
	if err != domain.ErrTableNotFound {
		t.Errorf("join unknown table: err = %v, want ErrTableNotFound", err)
	}
}

func TestJoinTableWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.addUser("ned")
	f.addUser("cat")
	f.connect(t, "c1", "ned")
	f.connect(t, "c2", "cat")

	if err := f.svc.CreateTable(context.Background(), "c1", NewTableRequest{Name: "secret", Password: "hodor"}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	tableID := f.tableID(t)

	err := f.svc.JoinTable(context.Background(), "c2", JoinTableRequest{TableID: tableID, Password: "wrong"})
	if err != domain.ErrWrongPassword {
		t.Errorf("err = %v, want ErrWrongPassword", err)
	}
	if err := f.svc.JoinTable(context.Background(), "c2", JoinTableRequest{TableID: tableID, Password: "hodor"}); err != nil {
		t.Errorf("join with correct password: %v", err)
	}
}
