package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relaydial/relaydial/internal/cache"
	"github.com/relaydial/relaydial/internal/model"
)

// VoiceAPI is the slice of the platform client the voice store depends on.
type VoiceAPI interface {
	ListVoices(ctx context.Context) ([]model.Voice, error)
}

// VoiceStore caches the read-only voice catalog.
type VoiceStore struct {
	api   VoiceAPI
	cache *cache.Store
	opts  options

	mu    sync.Mutex
	guard guard
	items []model.Voice
}

// NewVoiceStore creates a voice store.
func NewVoiceStore(api VoiceAPI, c *cache.Store, opts ...Option) *VoiceStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &VoiceStore{api: api, cache: c, opts: o}
}

// Fetch loads the voice catalog, same guard semantics as the other stores.
func (s *VoiceStore) Fetch(ctx context.Context, force bool) {
	s.mu.Lock()
	if s.guard.loading {
		s.mu.Unlock()
		return
	}
	if !force {
		if s.guard.fresh(s.opts.now(), s.opts.ttl) {
			s.mu.Unlock()
			return
		}
		var cached []model.Voice
		if fetchedAt, ok := s.cache.Load(voicesCacheKey, voicesCollection, &cached); ok {
			s.items = cached
			s.guard.lastFetched = fetchedAt
			s.guard.errMsg = ""
			s.mu.Unlock()
			return
		}
	}
	s.guard.loading = true
	s.mu.Unlock()

	items, err := s.api.ListVoices(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard.loading = false
	if err != nil {
		s.guard.errMsg = fmt.Sprintf("failed to load voices: %v", err)
		s.opts.logger.Error("voice fetch failed", slog.String("error", err.Error()))
		return
	}
	s.items = items
	s.guard.lastFetched = s.opts.now()
	s.guard.errMsg = ""
	s.cache.Save(voicesCacheKey, voicesCollection, items, s.guard.lastFetched)
}

// EnsureLoaded fetches only if stale and not already loading.
func (s *VoiceStore) EnsureLoaded(ctx context.Context) {
	s.Fetch(ctx, false)
}

// Voices returns a copy of the catalog.
func (s *VoiceStore) Voices() []model.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Voice, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns a voice by ID from the local catalog.
func (s *VoiceStore) Get(id string) (model.Voice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.items {
		if v.ID == id {
			return v, true
		}
	}
	return model.Voice{}, false
}

// Loading reports whether a fetch is in flight.
func (s *VoiceStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.loading
}

// Error returns the last fetch error message, or "".
func (s *VoiceStore) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.errMsg
}

// LastFetched returns the time of the last successful fetch.
func (s *VoiceStore) LastFetched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.lastFetched
}
