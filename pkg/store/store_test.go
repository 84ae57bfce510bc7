package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "rfkeeper.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestGetOrCreateSessionIsLazyAndStable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateSession(ctx, 100)
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if first.State != StateIdle || first.IsAuthorized {
		t.Fatalf("new session = %+v, want idle unauthorized", first)
	}

	second, err := s.GetOrCreateSession(ctx, 100)
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("session recreated: %d != %d", second.ID, first.ID)
	}
}

func TestSaveSessionEnforcesAuthInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.GetOrCreateSession(ctx, 100)
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}

	session.IsAuthorized = true
	if err := s.SaveSession(ctx, session); err == nil {
		t.Fatal("expected error: authorized session without credentials")
	}

	session.Username = "user@example.com"
	session.Secret = "pw"
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession error: %v", err)
	}

	loaded, err := s.GetOrCreateSession(ctx, 100)
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if !loaded.IsAuthorized || loaded.Username == "" || loaded.Secret == "" {
		t.Fatalf("loaded = %+v, invariant broken", loaded)
	}
}

func TestLinkUpsertNeverDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.GetOrCreateSession(ctx, 100)

	first, err := s.CreateLink(ctx, session.ID, 11, 12)
	if err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}

	second, err := s.CreateLink(ctx, session.ID, 11, 14)
	if err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate link created: %d != %d", second.ID, first.ID)
	}
	if second.ReplyMessageID != 14 {
		t.Fatalf("reply id = %d, want upserted 14", second.ReplyMessageID)
	}
}

func TestSetLinkNodeExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.GetOrCreateSession(ctx, 100)
	link, _ := s.CreateLink(ctx, session.ID, 11, 12)

	if err := s.SetLinkNode(ctx, link.ID, "node-1", "map-1"); err != nil {
		t.Fatalf("SetLinkNode error: %v", err)
	}
	if err := s.SetLinkNode(ctx, link.ID, "node-2", "map-2"); !errors.Is(err, ErrNodeAlreadySet) {
		t.Fatalf("second SetLinkNode error = %v, want ErrNodeAlreadySet", err)
	}

	loaded, ok, err := s.LinkByMessage(ctx, session.ID, 11)
	if err != nil || !ok {
		t.Fatalf("LinkByMessage = %v, %v", ok, err)
	}
	if loaded.CreatedNodeID != "node-1" || loaded.CreatedMapID != "map-1" {
		t.Fatalf("created node = %q on %q, want node-1 on map-1", loaded.CreatedNodeID, loaded.CreatedMapID)
	}
}

func TestLastSavedLinkOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.GetOrCreateSession(ctx, 100)

	if _, ok, err := s.LastSavedLink(ctx, session.ID); err != nil || ok {
		t.Fatalf("LastSavedLink on empty = %v, %v, want no link", ok, err)
	}

	a, _ := s.CreateLink(ctx, session.ID, 1, 2)
	b, _ := s.CreateLink(ctx, session.ID, 3, 4)
	// Pending link, never completed.
	if _, err := s.CreateLink(ctx, session.ID, 5, 6); err != nil {
		t.Fatalf("CreateLink error: %v", err)
	}

	_ = s.SetLinkNode(ctx, a.ID, "node-a", "map-1")
	_ = s.SetLinkNode(ctx, b.ID, "node-b", "map-1")

	last, ok, err := s.LastSavedLink(ctx, session.ID)
	if err != nil || !ok {
		t.Fatalf("LastSavedLink = %v, %v", ok, err)
	}
	if last.CreatedNodeID != "node-b" {
		t.Fatalf("last saved = %q, want node-b", last.CreatedNodeID)
	}
}

func TestLinkByReply(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.GetOrCreateSession(ctx, 100)
	created, _ := s.CreateLink(ctx, session.ID, 21, 22)

	link, ok, err := s.LinkByReply(ctx, session.ID, 22)
	if err != nil || !ok {
		t.Fatalf("LinkByReply = %v, %v", ok, err)
	}
	if link.ID != created.ID || link.InboundMessageID != 21 {
		t.Fatalf("link = %+v", link)
	}
}

func TestDeleteSessionCascadesLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.GetOrCreateSession(ctx, 100)
	link, _ := s.CreateLink(ctx, session.ID, 11, 12)
	_ = s.SetLinkNode(ctx, link.ID, "node-1", "map-1")

	if err := s.DeleteSession(ctx, 100); err != nil {
		t.Fatalf("DeleteSession error: %v", err)
	}

	fresh, err := s.GetOrCreateSession(ctx, 100)
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if fresh.ID == session.ID {
		t.Fatalf("session not deleted, id still %d", session.ID)
	}
	if fresh.IsAuthorized || fresh.Username != "" || fresh.Secret != "" {
		t.Fatalf("fresh session = %+v, want clean", fresh)
	}

	if _, ok, err := s.LastSavedLink(ctx, fresh.ID); err != nil || ok {
		t.Fatalf("links survived cascade: %v, %v", ok, err)
	}
	if _, ok, _ := s.LinkByMessage(ctx, session.ID, 11); ok {
		t.Fatal("old link still present after cascade delete")
	}
}
