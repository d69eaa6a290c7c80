package lobby

import (
	"context"
	"log"

	accountdomain "thronehall/internal/account/domain"
	"thronehall/internal/telemetry"
)

// BroadcastChat persists and fans out a lobby chat message. Accounts younger
// than the configured minimum age get a nochat notice instead.
func (s *Service) BroadcastChat(ctx context.Context, id ConnID, text string) error {
	user := s.userForConn(id)
	if user == nil {
		return nil
	}
	if s.nowF().Sub(user.RegisteredAt) < s.chatMinAge {
		s.notifier.Send(id, EventNoChat, "your account is too new to chat in the lobby")
		return nil
	}

	if r := []rune(text); len(r) > s.chatMaxLen {
		text = string(r[:s.chatMaxLen])
	}

	persisted, err := s.accounts.AddLobbyMessage(ctx, user.ID, text)
	if err != nil {
		log.Printf("lobby: persist chat from %s: %v", user.Username, err)
		s.notifier.Send(id, EventGameError, "unable to send your message right now")
		return err
	}

	msg := ChatMessage{
		ID:       persisted.ID,
		Username: user.Username,
		Avatar:   user.Avatar,
		Text:     persisted.Text,
		PostedAt: persisted.PostedAt,
	}
	s.broadcast(s.audience(user), EventLobbyChat, msg)
	s.emit(ctx, &telemetry.Event{Type: telemetry.TypeChatMessage, UserID: user.ID})
	return nil
}

// RemoveMessage lets a moderator remove a persisted chat message, then pushes
// each connected user their refreshed backlog. Non-moderators get a silent
// no-op.
func (s *Service) RemoveMessage(ctx context.Context, id ConnID, messageID string) error {
	user := s.userForConn(id)
	if user == nil || !user.CanModerate() {
		return nil
	}
	if err := s.accounts.RemoveLobbyMessage(ctx, messageID, user.ID); err != nil {
		log.Printf("lobby: remove message %s: %v", messageID, err)
		s.notifier.Send(id, EventGameError, "unable to remove that message")
		return err
	}

	type viewer struct {
		user  *accountdomain.UserSummary
		conns []ConnID
	}
	s.mu.RLock()
	viewers := make([]viewer, 0, len(s.connsByUser))
	for username, set := range s.connsByUser {
		u := s.users[username]
		if u == nil {
			continue
		}
		conns := make([]ConnID, 0, len(set))
		for c := range set {
			conns = append(conns, c)
		}
		viewers = append(viewers, viewer{user: u, conns: conns})
	}
	s.mu.RUnlock()

	for _, v := range viewers {
		msgs, err := s.accounts.GetLobbyMessagesForUser(ctx, v.user.ID)
		if err != nil {
			log.Printf("lobby: refresh backlog for %s: %v", v.user.Username, err)
			continue
		}
		s.broadcast(v.conns, EventLobbyMessages, s.filterBacklog(v.user, msgs))
	}
	return nil
}
