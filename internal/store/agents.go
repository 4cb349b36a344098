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

// AgentAPI is the slice of the platform client the agent store depends on.
type AgentAPI interface {
	ListAgents(ctx context.Context) ([]model.Agent, error)
	GetAgent(ctx context.Context, agentID string) (model.Agent, error)
	CreateAgent(ctx context.Context, in model.AgentCreate) (model.Agent, error)
	UpdateAgent(ctx context.Context, agentID string, in model.AgentUpdate) (model.Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error
}

// AgentStore caches the agent collection and routes mutations through the
// remote API. The local copy is always a cache of authoritative remote state.
type AgentStore struct {
	api   AgentAPI
	cache *cache.Store
	opts  options

	mu    sync.Mutex
	guard guard
	items []model.Agent
}

// NewAgentStore creates an agent store.
func NewAgentStore(api AgentAPI, c *cache.Store, opts ...Option) *AgentStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &AgentStore{api: api, cache: c, opts: o}
}

// Fetch loads the collection from the remote API. It is a no-op while a fetch
// is in flight, and a no-op when force is false and the collection is still
// fresh. On failure the prior collection is left untouched and the error is
// recorded as store state only; read errors are not control flow for callers.
func (s *AgentStore) Fetch(ctx context.Context, force bool) {
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
		// Cold start: a still-valid persisted envelope stands in for a fetch.
		var cached []model.Agent
		if fetchedAt, ok := s.cache.Load(agentsCacheKey, agentsCollection, &cached); ok {
			s.items = cached
			s.guard.lastFetched = fetchedAt
			s.guard.errMsg = ""
			s.mu.Unlock()
			return
		}
	}
	s.guard.loading = true
	s.mu.Unlock()

	items, err := s.api.ListAgents(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard.loading = false
	if err != nil {
		s.guard.errMsg = fmt.Sprintf("failed to load agents: %v", err)
		s.opts.logger.Error("agent fetch failed", slog.String("error", err.Error()))
		return
	}
	s.items = items
	s.guard.lastFetched = s.opts.now()
	s.guard.errMsg = ""
	s.cache.Save(agentsCacheKey, agentsCollection, items, s.guard.lastFetched)
}

// EnsureLoaded fetches only if the collection is stale and no fetch is in
// flight. This is the idempotent entry point callers should use on mount.
func (s *AgentStore) EnsureLoaded(ctx context.Context) {
	s.Fetch(ctx, false)
}

// Get returns the agent by ID, consulting the local collection first and
// falling back to a remote detail fetch (which also resolves the prompt).
func (s *AgentStore) Get(ctx context.Context, agentID string) (model.Agent, error) {
	s.mu.Lock()
	for _, a := range s.items {
		if a.ID == agentID && a.Prompt != "" {
			s.mu.Unlock()
			return a, nil
		}
	}
	s.mu.Unlock()

	agent, err := s.api.GetAgent(ctx, agentID)
	if err != nil {
		return model.Agent{}, err
	}
	s.mu.Lock()
	s.merge(agent)
	s.mu.Unlock()
	return agent, nil
}

// Create performs the remote mutation first, then reconciles the
// authoritative response and forces a re-fetch so server-computed fields
// (identity, timestamps) land locally. Mutation errors are both recorded and
// returned so callers can handle them inline.
func (s *AgentStore) Create(ctx context.Context, in model.AgentCreate) (model.Agent, error) {
	agent, err := s.api.CreateAgent(ctx, in)
	if err != nil {
		s.setError(fmt.Sprintf("failed to create agent: %v", err))
		return model.Agent{}, err
	}
	s.mu.Lock()
	s.merge(agent)
	s.guard.errMsg = ""
	s.mu.Unlock()

	s.cache.Invalidate(agentsCacheKey)
	s.Fetch(ctx, true)
	return agent, nil
}

// Update applies a partial update remotely and reconciles the result.
func (s *AgentStore) Update(ctx context.Context, agentID string, in model.AgentUpdate) (model.Agent, error) {
	agent, err := s.api.UpdateAgent(ctx, agentID, in)
	if err != nil {
		s.setError(fmt.Sprintf("failed to update agent: %v", err))
		return model.Agent{}, err
	}
	s.mu.Lock()
	s.merge(agent)
	s.guard.errMsg = ""
	s.mu.Unlock()

	s.cache.Invalidate(agentsCacheKey)
	s.Fetch(ctx, true)
	return agent, nil
}

// Delete removes the agent remotely, then locally.
func (s *AgentStore) Delete(ctx context.Context, agentID string) error {
	if err := s.api.DeleteAgent(ctx, agentID); err != nil {
		s.setError(fmt.Sprintf("failed to delete agent: %v", err))
		return err
	}
	s.mu.Lock()
	kept := s.items[:0]
	for _, a := range s.items {
		if a.ID != agentID {
			kept = append(kept, a)
		}
	}
	s.items = kept
	s.guard.errMsg = ""
	s.mu.Unlock()

	s.cache.Invalidate(agentsCacheKey)
	s.Fetch(ctx, true)
	return nil
}

// Agents returns a copy of the current collection.
func (s *AgentStore) Agents() []model.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Agent, len(s.items))
	copy(out, s.items)
	return out
}

// Loading reports whether a fetch is in flight.
func (s *AgentStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.loading
}

// Error returns the last fetch/mutation error message, or "".
func (s *AgentStore) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.errMsg
}

// LastFetched returns the time of the last successful fetch.
func (s *AgentStore) LastFetched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.lastFetched
}

// merge replaces the agent with a matching ID or appends it. Caller holds mu.
func (s *AgentStore) merge(agent model.Agent) {
	for i, a := range s.items {
		if a.ID == agent.ID {
			s.items[i] = agent
			return
		}
	}
	s.items = append(s.items, agent)
}

func (s *AgentStore) setError(msg string) {
	s.mu.Lock()
	s.guard.errMsg = msg
	s.mu.Unlock()
	s.opts.logger.Error(msg)
}
