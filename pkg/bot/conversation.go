package bot

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"

	"rfkeeper/pkg/store"
)

// handleMessage routes one inbound message through commands first, then the
// conversation state machine, then the save controller.
func (s *Service) handleMessage(ctx context.Context, message *telego.Message) {
	chatID := message.Chat.ID
	s.log.Info("Incoming message", "chat_id", chatID)

	session, err := s.store.GetOrCreateSession(ctx, chatID)
	if err != nil {
		s.log.Error("Failed to load session", "chat_id", chatID, "error", err)
		return
	}

	if name, ok := commandName(message.Text); ok {
		s.handleCommand(ctx, session, message, name)
		return
	}

	switch session.State {
	case store.StateAwaitingUsername:
		s.handleUsername(ctx, session, message)
	case store.StateAwaitingPassword:
		s.handlePassword(ctx, session, message)
	default:
		s.handleContent(ctx, session, message)
	}
}

func (s *Service) handleCommand(ctx context.Context, session store.Session, message *telego.Message, name string) {
	chatID := message.Chat.ID

	switch name {
	case "/help":
		s.reply(ctx, chatID, message.MessageID, msgHelp, nil)

	case "/stop":
		// Logout works from any state: the session row goes away and the
		// cascade takes its message links with it.
		if err := s.store.DeleteSession(ctx, chatID); err != nil {
			s.log.Error("Failed to delete session", "chat_id", chatID, "error", err)
			s.reply(ctx, chatID, message.MessageID, msgRemoteError, nil)
			return
		}
		s.pending.DropChat(chatID)
		s.reply(ctx, chatID, message.MessageID, msgDone, nil)

	case "/cancel":
		if session.State == store.StateIdle {
			s.reply(ctx, chatID, message.MessageID, msgNothingToCancel, nil)
			return
		}
		s.cancelDialog(ctx, session, message)

	case "/start":
		if session.State != store.StateIdle {
			s.cancelDialog(ctx, session, message)
			return
		}
		if session.IsAuthorized {
			s.reply(ctx, chatID, message.MessageID, msgAlreadyStarted, nil)
			return
		}
		session.State = store.StateAwaitingUsername
		if err := s.store.SaveSession(ctx, session); err != nil {
			s.log.Error("Failed to save session", "chat_id", chatID, "error", err)
			s.reply(ctx, chatID, message.MessageID, msgRemoteError, nil)
			return
		}
		s.reply(ctx, chatID, message.MessageID, msgAskUsername, nil)

	default:
		// Any other command typed mid-dialog aborts the dialog first.
		if session.State != store.StateIdle {
			s.cancelDialog(ctx, session, message)
			return
		}
		s.reply(ctx, chatID, message.MessageID, msgUnsupportedCommand, nil)
	}
}

// cancelDialog reverts a chat in the middle of the login dialog to idle.
func (s *Service) cancelDialog(ctx context.Context, session store.Session, message *telego.Message) {
	session.State = store.StateIdle
	if !session.IsAuthorized {
		session.Username = ""
		session.Secret = ""
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.log.Error("Failed to save session", "chat_id", message.Chat.ID, "error", err)
	}
	s.reply(ctx, message.Chat.ID, message.MessageID, msgActionCanceled, nil)
}

func (s *Service) handleUsername(ctx context.Context, session store.Session, message *telego.Message) {
	session.Username = strings.TrimSpace(message.Text)
	session.State = store.StateAwaitingPassword
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.log.Error("Failed to save session", "chat_id", message.Chat.ID, "error", err)
		s.reply(ctx, message.Chat.ID, message.MessageID, msgRemoteError, nil)
		return
	}

	s.reply(ctx, message.Chat.ID, 0, msgAskPassword, nil)
}

func (s *Service) handlePassword(ctx context.Context, session store.Session, message *telego.Message) {
	chatID := message.Chat.ID

	// The password must not stay in the chat transcript, whatever the login
	// outcome.
	defer s.deleteMessage(ctx, chatID, message.MessageID)

	user, err := s.gateway.Login(ctx, session.Username, message.Text)
	if err != nil {
		s.log.Warn("Login failed", "chat_id", chatID, "error", err)

		session.State = store.StateAwaitingUsername
		session.IsAuthorized = false
		session.Secret = ""
		if err := s.store.SaveSession(ctx, session); err != nil {
			s.log.Error("Failed to save session", "chat_id", chatID, "error", err)
		}
		s.reply(ctx, chatID, 0, msgLoginFailed, nil)
		return
	}

	session.State = store.StateIdle
	session.IsAuthorized = true
	session.Secret = message.Text
	if err := s.store.SaveSession(ctx, session); err != nil {
		s.log.Error("Failed to save session", "chat_id", chatID, "error", err)
		s.reply(ctx, chatID, 0, msgRemoteError, nil)
		return
	}

	s.log.Info("Chat authorized", "chat_id", chatID, "username", session.Username)
	s.reply(ctx, chatID, 0, msgLoginGreeting(user.Surname, user.Name), nil)
}

// commandName extracts the leading bot command, dropping the @botname
// suffix Telegram appends in groups.
func commandName(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", false
	}

	name := strings.Fields(trimmed)[0]
	if at := strings.Index(name, "@"); at != -1 {
		name = name[:at]
	}

	return name, true
}
