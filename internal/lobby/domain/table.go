// Package domain holds the lobby's table model and its typed snapshots.
package domain

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	accountdomain "thronehall/internal/account/domain"
	"thronehall/internal/rules"
)

// Precondition violations reported to the originating connection. These are
// expected outcomes, never logged as errors.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrAlreadySeated = errors.New("you are already at a table")
	ErrTableStarted  = errors.New("the game has already started")
	ErrTableFull     = errors.New("the table is full")
	ErrWrongPassword = errors.New("incorrect password")
	ErrAlreadyMember = errors.New("you are already at this table")
)

// maxPlayers is the seat cap for player seats. Spectator seats are unbounded
// when the table allows spectators.
const maxPlayers = 2

// SeatRole distinguishes players from spectators.
type SeatRole string

const (
	RolePlayer    SeatRole = "player"
	RoleSpectator SeatRole = "spectator"
)

// Seat is one user's membership at a table.
type Seat struct {
	User     *accountdomain.UserSummary
	Role     SeatRole
	HasLeft  bool
	DeckID   string
	DeckName string
	Legality *rules.DeckLegalityReport
}

// Table is a pending or running game instance. The lobby service exclusively
// owns Table values; the per-table mutex serializes multi-step transitions
// such as deck selection racing table start.
type Table struct {
	Mu sync.Mutex

	ID             uuid.UUID
	Name           string
	Owner          string // username
	PasswordHash   string // empty for public tables
	AllowSpectator bool
	ShowHand       bool
	GameType       string
	RestrictedList string
	CreatedAt      time.Time

	Started  bool
	NodeName string
	Seats    []*Seat
}

// Seat returns the seat held by username, or nil.
func (t *Table) Seat(username string) *Seat {
	for _, s := range t.Seats {
		if s.User.Username == username {
			return s
		}
	}
	return nil
}

// Players returns the player seats, including ones marked left.
func (t *Table) Players() []*Seat {
	var out []*Seat
	for _, s := range t.Seats {
		if s.Role == RolePlayer {
			out = append(out, s)
		}
	}
	return out
}

// PlayersFull reports whether every player seat is taken.
func (t *Table) PlayersFull() bool {
	return len(t.Players()) >= maxPlayers
}

// Empty reports whether no seat remains (left seats count as gone).
func (t *Table) Empty() bool {
	for _, s := range t.Seats {
		if !s.HasLeft {
			return false
		}
	}
	return true
}

// DecksReady reports whether every player seat has a selected deck.
func (t *Table) DecksReady() bool {
	players := t.Players()
	if len(players) == 0 {
		return false
	}
	for _, s := range players {
		if s.DeckID == "" {
			return false
		}
	}
	return true
}

// RemoveSeat drops username's seat outright. Returns true if a seat was
// removed.
func (t *Table) RemoveSeat(username string) bool {
	for i, s := range t.Seats {
		if s.User.Username == username {
			t.Seats = append(t.Seats[:i], t.Seats[i+1:]...)
			return true
		}
	}
	return false
}
