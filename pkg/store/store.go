// Package store is the durable per-chat session store.
//
// Two tables back it: sessions (one row per chat, holding credentials and
// the conversation state) and message_links (correlations between an inbound
// content message, the bot's interactive reply, and the node it eventually
// created). Deleting a session cascades to its links.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// State is the per-chat conversation state.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingUsername State = "awaiting_username"
	StateAwaitingPassword State = "awaiting_password"
)

// Session is one chat's durable record.
type Session struct {
	ID           int64
	ChatID       int64
	State        State
	IsAuthorized bool
	Username     string
	Secret       string
}

// MessageLink correlates one inbound content message with the bot's reply
// and, once the user picked a destination, the created node.
type MessageLink struct {
	ID               int64
	SessionID        int64
	InboundMessageID int
	ReplyMessageID   int
	// CreatedNodeID and CreatedMapID stay empty until node creation
	// succeeds.
	CreatedNodeID string
	CreatedMapID  string
}

// ErrNodeAlreadySet reports a second attempt to record a created node on
// the same link.
var ErrNodeAlreadySet = errors.New("store: link already has a created node")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id INTEGER NOT NULL UNIQUE,
	state TEXT NOT NULL DEFAULT 'idle',
	is_authorized INTEGER NOT NULL DEFAULT 0,
	username TEXT NOT NULL DEFAULT '',
	secret TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS message_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	inbound_message_id INTEGER NOT NULL,
	reply_message_id INTEGER NOT NULL,
	created_node_id TEXT,
	created_map_id TEXT,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	UNIQUE (session_id, inbound_message_id)
);

CREATE INDEX IF NOT EXISTS idx_message_links_reply
	ON message_links (session_id, reply_message_id);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateSession returns the chat's session, lazily creating an idle
// unauthorized one on first contact.
func (s *Store) GetOrCreateSession(ctx context.Context, chatID int64) (Session, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id) VALUES (?) ON CONFLICT (chat_id) DO NOTHING`, chatID); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	var session Session
	var authorized int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, state, is_authorized, username, secret FROM sessions WHERE chat_id = ?`, chatID).
		Scan(&session.ID, &session.ChatID, &session.State, &authorized, &session.Username, &session.Secret)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	session.IsAuthorized = authorized != 0

	return session, nil
}

// SaveSession persists the session's mutable fields.
//
// An authorized session must carry credentials; that invariant is checked
// here because this is the only write path for authorization.
func (s *Store) SaveSession(ctx context.Context, session Session) error {
	if session.IsAuthorized && (session.Username == "" || session.Secret == "") {
		return errors.New("store: authorized session requires credentials")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, is_authorized = ?, username = ?, secret = ? WHERE id = ?`,
		string(session.State), boolToInt(session.IsAuthorized), session.Username, session.Secret, session.ID)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("store: session %d does not exist", session.ID)
	}

	return nil
}

// DeleteSession removes the chat's session and cascades to its links.
// Used only by explicit logout.
func (s *Store) DeleteSession(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// CreateLink records the (inbound message, bot reply) correlation. A repeat
// for the same inbound message upserts the reply id instead of duplicating.
func (s *Store) CreateLink(ctx context.Context, sessionID int64, inboundMessageID int, replyMessageID int) (MessageLink, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO message_links (session_id, inbound_message_id, reply_message_id) VALUES (?, ?, ?)
		 ON CONFLICT (session_id, inbound_message_id) DO UPDATE SET reply_message_id = excluded.reply_message_id`,
		sessionID, inboundMessageID, replyMessageID); err != nil {
		return MessageLink{}, fmt.Errorf("create link: %w", err)
	}

	link, ok, err := s.LinkByMessage(ctx, sessionID, inboundMessageID)
	if err != nil {
		return MessageLink{}, err
	}
	if !ok {
		return MessageLink{}, errors.New("store: link missing after upsert")
	}

	return link, nil
}

// LinkByMessage looks up the link for one inbound message.
func (s *Store) LinkByMessage(ctx context.Context, sessionID int64, inboundMessageID int) (MessageLink, bool, error) {
	return s.queryLink(ctx,
		`SELECT id, session_id, inbound_message_id, reply_message_id, created_node_id, created_map_id
		 FROM message_links WHERE session_id = ? AND inbound_message_id = ?`,
		sessionID, inboundMessageID)
}

// LinkByReply looks up the link owning one interactive bot reply. Button
// presses arrive with the reply's message id, not the inbound one.
func (s *Store) LinkByReply(ctx context.Context, sessionID int64, replyMessageID int) (MessageLink, bool, error) {
	return s.queryLink(ctx,
		`SELECT id, session_id, inbound_message_id, reply_message_id, created_node_id, created_map_id
		 FROM message_links WHERE session_id = ? AND reply_message_id = ?`,
		sessionID, replyMessageID)
}

// LastSavedLink returns the session's most recent link that actually
// created a node, in insertion order.
func (s *Store) LastSavedLink(ctx context.Context, sessionID int64) (MessageLink, bool, error) {
	return s.queryLink(ctx,
		`SELECT id, session_id, inbound_message_id, reply_message_id, created_node_id, created_map_id
		 FROM message_links WHERE session_id = ? AND created_node_id IS NOT NULL
		 ORDER BY id DESC LIMIT 1`,
		sessionID)
}

// SetLinkNode records the created node on a link, exactly once.
func (s *Store) SetLinkNode(ctx context.Context, linkID int64, nodeID string, mapID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE message_links SET created_node_id = ?, created_map_id = ? WHERE id = ? AND created_node_id IS NULL`,
		nodeID, mapID, linkID)
	if err != nil {
		return fmt.Errorf("set link node: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set link node: %w", err)
	}
	if affected == 0 {
		return ErrNodeAlreadySet
	}

	return nil
}

// DeleteLink drops one link, used when its remote node turned out deleted.
func (s *Store) DeleteLink(ctx context.Context, linkID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM message_links WHERE id = ?`, linkID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	return nil
}

func (s *Store) queryLink(ctx context.Context, query string, args ...any) (MessageLink, bool, error) {
	var link MessageLink
	var nodeID, mapID sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&link.ID, &link.SessionID, &link.InboundMessageID, &link.ReplyMessageID, &nodeID, &mapID)
	if errors.Is(err, sql.ErrNoRows) {
		return MessageLink{}, false, nil
	}
	if err != nil {
		return MessageLink{}, false, fmt.Errorf("query link: %w", err)
	}
	if nodeID.Valid {
		link.CreatedNodeID = nodeID.String
	}
	if mapID.Valid {
		link.CreatedMapID = mapID.String
	}

	return link, true, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
