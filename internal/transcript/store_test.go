// ABOUTME: Tests for the charm-backed transcript store using an in-memory KV
// ABOUTME: Covers read-after-queue visibility, flush persistence, and deletion
package transcript

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type fakeKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	syncs  int
	closed bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(key []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[string(key)], nil
}

func (f *fakeKV) Set(key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[string(key)] = value
	return nil
}

func (f *fakeKV) Delete(key []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, string(key))
	return nil
}

func (f *fakeKV) Keys() ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys [][]byte
	for k := range f.data {
		keys = append(keys, []byte(k))
	}
	return keys, nil
}

func (f *fakeKV) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return nil
}

func (f *fakeKV) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestStore(debounce time.Duration) (*Store, *fakeKV) {
	db := newFakeKV()
	cfg := &Config{DBName: "test", Debounce: debounce, AutoSync: true}
	return newStore(cfg, db), db
}

func storedTranscript(t *testing.T, db *fakeKV, chatID string) (msgs []string) {
	t.Helper()
	db.mu.Lock()
	data := db.data[Key(chatID)]
	db.mu.Unlock()
	if data == nil {
		t.Fatalf("no stored transcript for %s", chatID)
	}
	var tr struct {
		Messages []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(data, &tr); err != nil {
		t.Fatalf("decoding stored transcript: %v", err)
	}
	for _, m := range tr.Messages {
		msgs = append(msgs, m.Role+":"+m.Text)
	}
	return msgs
}

func TestStore_AppendTwiceWithinDebounceKeepsBothMessages(t *testing.T) {
	s, db := newTestStore(time.Hour)

	first, err := s.Append("chat-1", "user", "what is in this document?")
	if err != nil {
		t.Fatalf("first Append failed: %v", err)
	}
	if _, err := s.Append(first.ChatID, "assistant", "it is a lease agreement"); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	msgs := storedTranscript(t, db, "chat-1")
	if len(msgs) != 2 {
		t.Fatalf("stored messages = %d, want 2 (user + assistant): %v", len(msgs), msgs)
	}
	if msgs[0] != "user:what is in this document?" {
		t.Errorf("first message = %q, want the user message", msgs[0])
	}
	if msgs[1] != "assistant:it is a lease agreement" {
		t.Errorf("second message = %q, want the assistant message", msgs[1])
	}
}

func TestStore_GetSeesQueuedWriteBeforeFlush(t *testing.T) {
	s, db := newTestStore(time.Hour)

	if _, err := s.Append("chat-1", "user", "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Nothing has reached storage yet.
	db.mu.Lock()
	stored := db.data[Key("chat-1")]
	db.mu.Unlock()
	if stored != nil {
		t.Fatal("write should still be queued, not stored")
	}

	got, err := s.Get("chat-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Text != "hello" {
		t.Errorf("Get = %+v, want the queued message", got.Messages)
	}
}

func TestStore_GetFallsBackToStorageAfterFlush(t *testing.T) {
	s, db := newTestStore(time.Hour)

	if _, err := s.Append("chat-1", "user", "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	got, err := s.Get("chat-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(got.Messages))
	}
	if db.syncs == 0 {
		t.Error("flush should sync to the cloud")
	}
}

func TestStore_GetUnknownChatFails(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	if _, err := s.Get("no-such-chat"); err == nil {
		t.Error("expected an error for a missing transcript")
	}
}

func TestStore_AppendGeneratesChatID(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	tr, err := s.Append("", "user", "hello")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if tr.ChatID == "" {
		t.Error("empty chatID should mint a new one")
	}
}

func TestStore_ZeroDebounceWritesThrough(t *testing.T) {
	s, db := newTestStore(0)

	if _, err := s.Append("chat-1", "user", "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := s.Append("chat-1", "assistant", "hi"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	msgs := storedTranscript(t, db, "chat-1")
	if len(msgs) != 2 {
		t.Errorf("stored messages = %d, want 2: %v", len(msgs), msgs)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	s, _ := newTestStore(0)

	if _, err := s.Append("chat-b", "user", "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append("chat-a", "user", "a"); err != nil {
		t.Fatal(err)
	}

	ids, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "chat-a" || ids[1] != "chat-b" {
		t.Errorf("List = %v, want sorted [chat-a chat-b]", ids)
	}

	if err := s.Delete("chat-a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ids, _ = s.List()
	if len(ids) != 1 || ids[0] != "chat-b" {
		t.Errorf("List after delete = %v, want [chat-b]", ids)
	}
}

func TestStore_CloseFlushesPendingWrites(t *testing.T) {
	s, db := newTestStore(time.Hour)

	if _, err := s.Append("chat-1", "user", "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	msgs := storedTranscript(t, db, "chat-1")
	if len(msgs) != 1 {
		t.Errorf("stored messages = %d, want 1", len(msgs))
	}
	if !db.closed {
		t.Error("Close should close the KV")
	}
}
