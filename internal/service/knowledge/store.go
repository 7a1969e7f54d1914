package knowledge

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
)

// failedReloadBackoff keeps a broken sheet URL from being refetched on every request.
const failedReloadBackoff = 30 * time.Second

// StoreConfig configures a Store.
type StoreConfig struct {
	Source  string
	TTL     time.Duration
	Fetcher *Fetcher
	// Cache is optional.
	Cache Cache
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store keeps the parsed FAQ sheet in memory and reloads it once the TTL expires.
type Store struct {
	source  string
	ttl     time.Duration
	fetcher *Fetcher
	cache   Cache
	now     func() time.Time

	mu          sync.Mutex
	snapshot    model.Snapshot
	nextAttempt time.Time
}

// NewStore creates a store; nothing is loaded until the first Context call.
func NewStore(cfg StoreConfig) *Store {
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		source:  strings.TrimSpace(cfg.Source),
		ttl:     cfg.TTL,
		fetcher: fetcher,
		cache:   cfg.Cache,
		now:     now,
	}
}

// Source returns the configured sheet location.
func (s *Store) Source() string {
	return s.source
}

// TTL returns the reload interval.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Context returns the current snapshot, reloading it first when it has expired. A
// failed reload is logged and the previous snapshot keeps being served.
func (s *Store) Context(ctx context.Context) model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.expired(now) || now.Before(s.nextAttempt) {
		return s.snapshot
	}

	if err := s.reloadLocked(ctx, now); err != nil {
		log.Printf("[knowledge] reload from %s failed, serving previous snapshot: %v", s.source, err)
		s.nextAttempt = now.Add(failedReloadBackoff)
	}
	return s.snapshot
}

// Reload forces a refresh regardless of the TTL.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx, s.now())
}

// Flush drops the cached snapshot, locally and in the shared cache, so the next
// Context call reloads the sheet.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.snapshot = model.Snapshot{}
	s.nextAttempt = time.Time{}
	s.mu.Unlock()

	if s.cache == nil || s.source == "" {
		return nil
	}
	if err := s.cache.Delete(ctx, s.source); err != nil {
		return fmt.Errorf("flush shared knowledge cache: %w", err)
	}
	return nil
}

func (s *Store) expired(now time.Time) bool {
	return now.Sub(s.snapshot.LoadedAt) > s.ttl || s.snapshot.LoadedAt.IsZero()
}

func (s *Store) reloadLocked(ctx context.Context, now time.Time) error {
	if s.source == "" {
		s.snapshot = model.Snapshot{Version: uuid.NewString(), LoadedAt: now}
		return nil
	}

	text, err := s.loadText(ctx)
	if err != nil {
		return err
	}

	snapshot, err := Parse(strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("parse knowledge sheet: %w", err)
	}
	snapshot.Version = uuid.NewString()
	snapshot.LoadedAt = now

	s.snapshot = snapshot
	s.nextAttempt = time.Time{}
	log.Printf("[knowledge] loaded %s: en=%d es=%d ja=%d", s.source, len(snapshot.EN), len(snapshot.ES), len(snapshot.JA))
	return nil
}

func (s *Store) loadText(ctx context.Context) (string, error) {
	if s.cache != nil {
		text, ok, err := s.cache.Get(ctx, s.source)
		if err != nil {
			log.Printf("[knowledge] shared cache read failed: %v", err)
		} else if ok {
			return text, nil
		}
	}

	text, err := s.fetcher.Fetch(ctx, s.source)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.source, text, s.ttl); err != nil {
			log.Printf("[knowledge] shared cache write failed: %v", err)
		}
	}
	return text, nil
}
