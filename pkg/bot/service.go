// Package bot runs the Telegram side of the keeper: the login conversation,
// the save/move keyboards and the per-chat event dispatch.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"rfkeeper/pkg/config"
	"rfkeeper/pkg/rf"
	"rfkeeper/pkg/store"
)

// Gateway is the node-graph API surface the bot drives. *rf.Client
// implements it.
type Gateway interface {
	Login(ctx context.Context, username string, password string) (rf.User, error)
	GetNode(ctx context.Context, creds rf.Credentials, nodeID string) (rf.Node, error)
	CreateNode(ctx context.Context, creds rf.Credentials, mapID string, parentID string, htmlBody string) (rf.Node, error)
	UpdateNodeFiles(ctx context.Context, creds rf.Credentials, nodeID string, files []rf.FileInfo) error
	MoveNode(ctx context.Context, creds rf.Credentials, nodeID string, newParentID string) (rf.Node, error)
	Favorites(ctx context.Context, creds rf.Credentials) ([]rf.Node, error)
	UploadFile(ctx context.Context, creds rf.Credentials, fileName string, data []byte) (rf.FileInfo, error)
}

// telegramAPI is the slice of the Telegram bot API the service calls.
type telegramAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}

// Service dispatches Telegram updates into the conversation state machine
// and the save/move controller.
type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *store.Store
	gateway  Gateway
	api      telegramAPI
	pending  *pendingMessages
	download func(ctx context.Context, fileID string) ([]byte, error)

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService wires the bot service. The Telegram connection itself is
// established by Run.
func NewService(cfg *config.Config, sessions *store.Store, gateway Gateway, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return nil, errors.New("telegram.token is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:     cfg,
		log:     log.With("component", "bot"),
		store:   sessions,
		gateway: gateway,
		pending: newPendingMessages(),
		locks:   make(map[int64]*sync.Mutex),
	}, nil
}

// Run starts long polling and blocks until the context is canceled or the
// update stream breaks. Updates from distinct chats process concurrently;
// updates of one chat serialize on its lock.
func (s *Service) Run(ctx context.Context) error {
	tgBot, err := telego.NewBot(strings.TrimSpace(s.cfg.Telegram.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}
	s.api = tgBot
	s.download = func(ctx context.Context, fileID string) ([]byte, error) {
		file, err := tgBot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
		if err != nil {
			return nil, fmt.Errorf("resolve file: %w", err)
		}
		return tu.DownloadFile(tgBot.FileDownloadURL(file.FilePath))
	}

	updates, err := tgBot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	s.log.Info("Keeper bot started")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			chatID, ok := updateChatID(update)
			if !ok {
				continue
			}

			wg.Add(1)
			go func(update telego.Update) {
				defer wg.Done()
				s.dispatch(ctx, chatID, update)
			}(update)
		}
	}
}

// dispatch holds the chat's lock while one update is processed, so rapid
// events in a single chat cannot race the session state machine.
func (s *Service) dispatch(ctx context.Context, chatID int64, update telego.Update) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered from panic in update handler", "chat_id", chatID, "panic", r)
		}
	}()

	lock := s.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	switch {
	case update.Message != nil:
		s.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	}
}

func (s *Service) chatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[chatID] = lock
	}

	return lock
}

// updateChatID extracts the owning chat of an update; updates without one
// (inline queries, polls) are not handled.
func updateChatID(update telego.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.GetChat().ID, true
	default:
		return 0, false
	}
}

func sessionCredentials(session store.Session) rf.Credentials {
	return rf.Credentials{Username: session.Username, Password: session.Secret}
}

// reply sends an HTML message into the chat, replying to replyTo when it is
// non-zero, and returns the sent message.
func (s *Service) reply(ctx context.Context, chatID int64, replyTo int, text string, keyboard *telego.InlineKeyboardMarkup) (*telego.Message, error) {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
	if replyTo != 0 {
		params = params.WithReplyParameters(&telego.ReplyParameters{MessageID: replyTo})
	}
	if keyboard != nil {
		params = params.WithReplyMarkup(keyboard)
	}

	message, err := s.api.SendMessage(ctx, params)
	if err != nil {
		s.log.Error("Failed to send message", "chat_id", chatID, "error", err)
		return nil, err
	}

	return message, nil
}

// edit rewrites a previously sent interactive message in place.
func (s *Service) edit(ctx context.Context, chatID int64, messageID int, text string, keyboard *telego.InlineKeyboardMarkup) {
	params := &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Text:      text,
		ParseMode: telego.ModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := s.api.EditMessageText(ctx, params); err != nil {
		s.log.Error("Failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (s *Service) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	err := s.api.DeleteMessage(ctx, &telego.DeleteMessageParams{ChatID: tu.ID(chatID), MessageID: messageID})
	if err != nil {
		s.log.Error("Failed to delete message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// answer acknowledges a button press, with an optional toast text.
func (s *Service) answer(ctx context.Context, queryID string, text string) {
	err := s.api.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: queryID, Text: text})
	if err != nil {
		s.log.Error("Failed to answer callback query", "error", err)
	}
}
