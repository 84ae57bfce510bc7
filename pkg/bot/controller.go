package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/mymmrac/telego"

	"rfkeeper/pkg/content"
	"rfkeeper/pkg/rf"
	"rfkeeper/pkg/rflinks"
	"rfkeeper/pkg/store"
)

// handleContent is the save-flow entry: a supported content message from an
// authorized chat gets the action keyboard and a message link; everything
// else gets a fixed reply.
func (s *Service) handleContent(ctx context.Context, session store.Session, message *telego.Message) {
	chatID := message.Chat.ID

	if !session.IsAuthorized {
		s.reply(ctx, chatID, message.MessageID, msgNoStart, nil)
		return
	}
	if !content.IsSupported(message) {
		s.reply(ctx, chatID, message.MessageID, msgUnsupportedType, nil)
		return
	}

	offered, err := s.reply(ctx, chatID, message.MessageID, msgSelectAction, saveKeyboard())
	if err != nil {
		return
	}

	s.pending.Put(chatID, message.MessageID, message)
	if _, err := s.store.CreateLink(ctx, session.ID, message.MessageID, offered.MessageID); err != nil {
		s.log.Error("Failed to create message link", "chat_id", chatID, "error", err)
	}
}

// handleCallback routes one button press by its payload namespace.
func (s *Service) handleCallback(ctx context.Context, query *telego.CallbackQuery) {
	if query.Message == nil {
		s.answer(ctx, query.ID, "")
		return
	}

	chatID := query.Message.GetChat().ID
	replyMessageID := query.Message.GetMessageID()

	session, err := s.store.GetOrCreateSession(ctx, chatID)
	if err != nil {
		s.log.Error("Failed to load session", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, msgRemoteError)
		return
	}
	if !session.IsAuthorized {
		s.answer(ctx, query.ID, msgNoStart)
		return
	}

	link, ok, err := s.store.LinkByReply(ctx, session.ID, replyMessageID)
	if err != nil {
		s.log.Error("Failed to load message link", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, msgRemoteError)
		return
	}
	if !ok {
		s.answer(ctx, query.ID, msgMessageExpired)
		return
	}

	data := query.Data
	switch {
	case data == callbackSaveToLast:
		s.saveToLast(ctx, session, query, link)
	case data == callbackSaveRequest:
		s.renderPicker(ctx, session, query, callbackSaveToPrefix, callbackSaveGoBack)
	case data == callbackSaveGoBack:
		s.edit(ctx, chatID, link.ReplyMessageID, msgSelectAction, saveKeyboard())
		s.answer(ctx, query.ID, "")
	case strings.HasPrefix(data, callbackSaveToPrefix):
		s.saveTo(ctx, session, query, link, strings.TrimPrefix(data, callbackSaveToPrefix))
	case data == callbackMoveRequest:
		s.renderPicker(ctx, session, query, callbackMoveToPrefix, callbackMoveGoBack)
	case data == callbackMoveGoBack:
		s.moveGoBack(ctx, query, link)
	case strings.HasPrefix(data, callbackMoveToPrefix):
		s.moveTo(ctx, session, query, link, strings.TrimPrefix(data, callbackMoveToPrefix))
	default:
		s.log.Warn("Unknown callback payload", "chat_id", chatID, "data", data)
		s.answer(ctx, query.ID, "")
	}
}

// renderPicker swaps the interactive message's keyboard for the favorites
// picker, shared by the save and move levels.
func (s *Service) renderPicker(ctx context.Context, session store.Session, query *telego.CallbackQuery, payloadPrefix string, backPayload string) {
	chatID := query.Message.GetChat().ID

	favorites, err := s.gateway.Favorites(ctx, sessionCredentials(session))
	if err != nil {
		s.log.Error("Failed to fetch favorites", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, remoteFailureText(err, msgFavoritesError))
		return
	}

	s.edit(ctx, chatID, query.Message.GetMessageID(), msgSelectAction,
		pickerKeyboard(favorites, payloadPrefix, backPayload))
	s.answer(ctx, query.ID, "")
}

// saveToLast creates the node next to the previously saved one, as a
// sibling under the same parent.
func (s *Service) saveToLast(ctx context.Context, session store.Session, query *telego.CallbackQuery, link store.MessageLink) {
	chatID := query.Message.GetChat().ID

	last, ok, err := s.store.LastSavedLink(ctx, session.ID)
	if err != nil {
		s.log.Error("Failed to load last saved link", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, msgRemoteError)
		return
	}
	if !ok {
		s.answer(ctx, query.ID, msgNoLastSaved)
		return
	}

	lastNode, err := s.gateway.GetNode(ctx, sessionCredentials(session), last.CreatedNodeID)
	if errors.Is(err, rf.ErrNotFound) {
		// The remembered node is gone. Repair the history so the next
		// attempt picks an earlier node, and tell the user.
		s.edit(ctx, chatID, last.ReplyMessageID, msgLastSavedNotFound, nil)
		if err := s.store.DeleteLink(ctx, last.ID); err != nil {
			s.log.Error("Failed to delete stale link", "chat_id", chatID, "error", err)
		}
		s.answer(ctx, query.ID, msgLastSavedNotFound)
		return
	}
	if err != nil {
		s.log.Error("Failed to fetch last saved node", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, remoteFailureText(err, msgRemoteError))
		return
	}

	s.createNode(ctx, session, query, link, lastNode.MapID, lastNode.ParentID)
}

// saveTo creates the node under an explicitly picked favorite.
func (s *Service) saveTo(ctx context.Context, session store.Session, query *telego.CallbackQuery, link store.MessageLink, destinationID string) {
	chatID := query.Message.GetChat().ID

	destination, err := s.gateway.GetNode(ctx, sessionCredentials(session), destinationID)
	if errors.Is(err, rf.ErrNotFound) {
		s.answer(ctx, query.ID, msgDestinationNotFound)
		s.renderPicker(ctx, session, query, callbackSaveToPrefix, callbackSaveGoBack)
		return
	}
	if err != nil {
		s.log.Error("Failed to fetch destination node", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, remoteFailureText(err, msgRemoteError))
		return
	}

	s.createNode(ctx, session, query, link, destination.MapID, destination.ID)
}

// createNode normalizes the retained original message and creates the node
// under (mapID, parentID), then rewrites the interactive message to the
// outcome.
func (s *Service) createNode(ctx context.Context, session store.Session, query *telego.CallbackQuery, link store.MessageLink, mapID string, parentID string) {
	chatID := query.Message.GetChat().ID
	creds := sessionCredentials(session)

	original, ok := s.pending.Get(chatID, link.InboundMessageID)
	if !ok {
		// The offer outlived the process; the message content is gone.
		s.edit(ctx, chatID, link.ReplyMessageID, msgMessageExpired, nil)
		s.answer(ctx, query.ID, msgMessageExpired)
		return
	}

	normalizer := &content.Normalizer{
		Download: s.download,
		Upload: func(ctx context.Context, fileName string, data []byte) (rf.FileInfo, error) {
			return s.gateway.UploadFile(ctx, creds, fileName, data)
		},
	}

	destinationURL := rflinks.NodeURL(mapID, parentID)

	normalized, err := normalizer.Normalize(ctx, original)
	if err != nil {
		s.log.Error("Failed to normalize message", "chat_id", chatID, "error", err)
		s.edit(ctx, chatID, link.ReplyMessageID, msgDestinationError(destinationURL), saveKeyboard())
		s.answer(ctx, query.ID, "")
		return
	}

	node, err := s.gateway.CreateNode(ctx, creds, mapID, parentID, normalized.HTML)
	if err != nil {
		s.log.Error("Failed to create node", "chat_id", chatID, "error", err)
		// The save keyboard stays so the user can retry or pick elsewhere.
		s.edit(ctx, chatID, link.ReplyMessageID, msgDestinationError(destinationURL), saveKeyboard())
		s.answer(ctx, query.ID, "")
		return
	}

	if len(normalized.Files) > 0 {
		// Creation cannot carry file metadata; attach in a follow-up call.
		if err := s.gateway.UpdateNodeFiles(ctx, creds, node.ID, normalized.Files); err != nil {
			s.log.Error("Failed to attach files to node", "chat_id", chatID, "node_id", node.ID, "error", err)
		}
	}

	if err := s.store.SetLinkNode(ctx, link.ID, node.ID, node.MapID); err != nil && !errors.Is(err, store.ErrNodeAlreadySet) {
		s.log.Error("Failed to record created node", "chat_id", chatID, "error", err)
	}
	s.pending.Delete(chatID, link.InboundMessageID)

	s.log.Info("Node created", "chat_id", chatID, "node_id", node.ID, "map_id", node.MapID)
	s.edit(ctx, chatID, link.ReplyMessageID, msgNodeCreated, moveKeyboard(rflinks.NodeURL(node.MapID, node.ID)))
	s.answer(ctx, query.ID, "")
}

// moveTo re-validates both ends and reparents the created node.
func (s *Service) moveTo(ctx context.Context, session store.Session, query *telego.CallbackQuery, link store.MessageLink, destinationID string) {
	chatID := query.Message.GetChat().ID
	creds := sessionCredentials(session)

	if link.CreatedNodeID == "" {
		s.answer(ctx, query.ID, msgMessageExpired)
		return
	}

	node, err := s.gateway.GetNode(ctx, creds, link.CreatedNodeID)
	if errors.Is(err, rf.ErrNotFound) {
		s.edit(ctx, chatID, link.ReplyMessageID, msgNodeNotFound, nil)
		s.answer(ctx, query.ID, msgNodeNotFound)
		return
	}
	if err != nil {
		s.log.Error("Failed to fetch created node", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, remoteFailureText(err, msgRemoteError))
		return
	}

	destination, err := s.gateway.GetNode(ctx, creds, destinationID)
	if errors.Is(err, rf.ErrNotFound) {
		s.answer(ctx, query.ID, msgDestinationNotFound)
		s.renderPicker(ctx, session, query, callbackMoveToPrefix, callbackMoveGoBack)
		return
	}
	if err != nil {
		s.log.Error("Failed to fetch destination node", "chat_id", chatID, "error", err)
		s.answer(ctx, query.ID, remoteFailureText(err, msgRemoteError))
		return
	}

	moved, err := s.gateway.MoveNode(ctx, creds, node.ID, destination.ID)
	if err != nil {
		s.log.Error("Failed to move node", "chat_id", chatID, "node_id", node.ID, "error", err)
		s.edit(ctx, chatID, link.ReplyMessageID,
			msgDestinationError(rflinks.NodeURL(destination.MapID, destination.ID)),
			moveKeyboard(rflinks.NodeURL(node.MapID, node.ID)))
		s.answer(ctx, query.ID, "")
		return
	}

	s.log.Info("Node moved", "chat_id", chatID, "node_id", moved.ID, "parent_id", destination.ID)
	s.edit(ctx, chatID, link.ReplyMessageID, msgNodeMoved, moveKeyboard(rflinks.NodeURL(moved.MapID, moved.ID)))
	s.answer(ctx, query.ID, "")
}

// moveGoBack returns from the move picker to the created-node keyboard. The
// node is not re-fetched on this path.
func (s *Service) moveGoBack(ctx context.Context, query *telego.CallbackQuery, link store.MessageLink) {
	chatID := query.Message.GetChat().ID

	if link.CreatedNodeID == "" {
		s.answer(ctx, query.ID, msgMessageExpired)
		return
	}

	s.edit(ctx, chatID, link.ReplyMessageID, msgNodeCreated,
		moveKeyboard(rflinks.NodeURL(link.CreatedMapID, link.CreatedNodeID)))
	s.answer(ctx, query.ID, "")
}

// remoteFailureText picks the toast for a failed gateway call.
func remoteFailureText(err error, fallback string) string {
	if errors.Is(err, rf.ErrAuth) {
		return msgAuthError
	}

	return fallback
}
