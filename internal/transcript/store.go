// ABOUTME: Transcript store backed by Charm KV for cloud-synced chat history
// ABOUTME: Writes go through a debounce coalescer so streaming never hits storage per chunk
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/charm/kv"
	"github.com/google/uuid"

	"github.com/infinitecontext/infinitectx/internal/models"
)

// Prefix namespaces transcript records inside the shared KV database.
const Prefix = "transcript:"

// Config holds charm connection settings for the store.
type Config struct {
	Host     string
	DBName   string
	Debounce time.Duration
	AutoSync bool
}

// DefaultConfig reads charm settings from the environment.
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = "charm.2389.dev"
	}
	return &Config{
		Host:     host,
		DBName:   "infinitectx",
		Debounce: time.Second,
		AutoSync: true,
	}
}

// kvBackend is the slice of charm KV the store uses.
type kvBackend interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Close() error
}

// Store persists chat transcripts in Charm KV. Saves are queued on a
// coalescer; only Flush and Close guarantee the bytes hit storage.
// Reads consult the queued state first so a chat never appears older
// than its last Append.
type Store struct {
	kv        kvBackend
	cfg       *Config
	mu        sync.Mutex
	coalescer *Coalescer
}

// NewStore opens the charm KV database and pulls remote state.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// kv.OpenWithDefaults reads CHARM_HOST from the environment.
	os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	s := newStore(cfg, db)
	if cfg.AutoSync {
		_ = db.Sync()
	}
	return s, nil
}

// newStore wires a store around any KV implementation.
func newStore(cfg *Config, db kvBackend) *Store {
	s := &Store{kv: db, cfg: cfg}
	s.coalescer = NewCoalescer(cfg.Debounce, s.write)
	return s
}

// Key returns the KV key for a chat's transcript.
func Key(chatID string) string {
	return Prefix + chatID
}

// Append adds a message to a chat's transcript and queues the write.
// An empty chatID starts a new chat. The returned transcript reflects
// in-memory state; storage catches up after the debounce interval.
func (s *Store) Append(chatID, role, text string) (models.Transcript, error) {
	if chatID == "" {
		chatID = uuid.New().String()
	}

	t, err := s.Get(chatID)
	if err != nil {
		t = models.Transcript{ChatID: chatID}
	}
	t.Messages = append(t.Messages, models.TranscriptMessage{Role: role, Text: text})
	t.UpdatedAt = time.Now().UTC()

	if err := s.coalescer.Queue(t); err != nil {
		return t, fmt.Errorf("failed to queue transcript %s: %w", chatID, err)
	}
	return t, nil
}

// Save queues a full transcript write, replacing any stored state.
func (s *Store) Save(t models.Transcript) error {
	if t.ChatID == "" {
		return fmt.Errorf("transcript has no chat id")
	}
	return s.coalescer.Queue(t)
}

// Get loads a transcript by chat ID. A queued write that has not
// reached storage yet wins over the stored bytes; without this, two
// Appends inside one debounce interval would lose the first message.
func (s *Store) Get(chatID string) (models.Transcript, error) {
	if t, ok := s.coalescer.Peek(chatID); ok {
		return t, nil
	}

	s.mu.Lock()
	data, err := s.kv.Get([]byte(Key(chatID)))
	s.mu.Unlock()
	if err != nil {
		return models.Transcript{}, fmt.Errorf("failed to get transcript %s: %w", chatID, err)
	}
	if len(data) == 0 {
		return models.Transcript{}, fmt.Errorf("transcript not found: %s", chatID)
	}

	var t models.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return models.Transcript{}, fmt.Errorf("failed to decode transcript %s: %w", chatID, err)
	}
	return t, nil
}

// List returns all stored chat IDs, newest key order not guaranteed.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	keys, err := s.kv.Keys()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	var ids []string
	for _, key := range keys {
		k := string(key)
		if strings.HasPrefix(k, Prefix) {
			ids = append(ids, strings.TrimPrefix(k, Prefix))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a transcript from storage.
func (s *Store) Delete(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete([]byte(Key(chatID))); err != nil {
		return fmt.Errorf("failed to delete transcript %s: %w", chatID, err)
	}
	if s.cfg.AutoSync {
		_ = s.kv.Sync()
	}
	return nil
}

// Flush forces pending writes to storage immediately.
func (s *Store) Flush() error {
	return s.coalescer.Flush()
}

// Close flushes pending writes and closes the KV database.
func (s *Store) Close() error {
	flushErr := s.coalescer.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kv != nil {
		if err := s.kv.Close(); err != nil {
			return err
		}
		s.kv = nil
	}
	return flushErr
}

// write persists one transcript; it is the coalescer's sink.
func (s *Store) write(t models.Transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript %s: %w", t.ChatID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv == nil {
		return fmt.Errorf("store is closed")
	}
	if err := s.kv.Set([]byte(Key(t.ChatID)), data); err != nil {
		return fmt.Errorf("failed to set transcript %s: %w", t.ChatID, err)
	}
	if s.cfg.AutoSync {
		_ = s.kv.Sync()
	}
	return nil
}
