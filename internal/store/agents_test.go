package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/relaydial/relaydial/internal/model"
)

type fakeAgentAPI struct {
	listCalls  int
	listResult []model.Agent
	listErr    error

	getResult model.Agent
	getCalls  int
	getErr    error

	createResult model.Agent
	createErr    error

	updateResult model.Agent
	updateErr    error

	deleteErr error
	deletedID string
}

func (f *fakeAgentAPI) ListAgents(ctx context.Context) ([]model.Agent, error) {
	f.listCalls++
	return f.listResult, f.listErr
}

func (f *fakeAgentAPI) GetAgent(ctx context.Context, agentID string) (model.Agent, error) {
	f.getCalls++
	return f.getResult, f.getErr
}

func (f *fakeAgentAPI) CreateAgent(ctx context.Context, in model.AgentCreate) (model.Agent, error) {
	return f.createResult, f.createErr
}

func (f *fakeAgentAPI) UpdateAgent(ctx context.Context, agentID string, in model.AgentUpdate) (model.Agent, error) {
	return f.updateResult, f.updateErr
}

func (f *fakeAgentAPI) DeleteAgent(ctx context.Context, agentID string) error {
	f.deletedID = agentID
	return f.deleteErr
}

func TestAgentStoreEnsureLoadedIsIdempotentWithinTTL(t *testing.T) {
	now := time.Now()
	api := &fakeAgentAPI{listResult: []model.Agent{{ID: "a1", Name: "Dispatch Check-in"}}}
	s := NewAgentStore(api, testCache(t, &now),
		WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	s.EnsureLoaded(context.Background())
	s.EnsureLoaded(context.Background())
	if api.listCalls != 1 {
		t.Fatalf("list called %d times, want 1", api.listCalls)
	}

	now = now.Add(90 * time.Second)
	s.EnsureLoaded(context.Background())
	if api.listCalls != 2 {
		t.Fatalf("list called %d times after expiry, want 2", api.listCalls)
	}
}

func TestAgentStoreFetchErrorKeepsCollection(t *testing.T) {
	now := time.Now()
	api := &fakeAgentAPI{listResult: []model.Agent{{ID: "a1"}}}
	s := NewAgentStore(api, testCache(t, &now), WithClock(func() time.Time { return now }))

	s.Fetch(context.Background(), true)
	api.listErr = errors.New("boom")
	s.Fetch(context.Background(), true)

	if got := s.Agents(); len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("failed fetch clobbered collection: %+v", got)
	}
	if !strings.Contains(s.Error(), "failed to load agents") {
		t.Fatalf("error = %q", s.Error())
	}
}

func TestAgentStoreGetPrefersLocalWithPrompt(t *testing.T) {
	now := time.Now()
	api := &fakeAgentAPI{
		listResult: []model.Agent{{ID: "a1", Name: "Check-in", Prompt: "You are a dispatch agent."}},
		getResult:  model.Agent{ID: "a2", Name: "Emergency", Prompt: "Escalate immediately."},
	}
	s := NewAgentStore(api, testCache(t, &now), WithClock(func() time.Time { return now }))
	s.Fetch(context.Background(), true)

	a, err := s.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Name != "Check-in" || api.getCalls != 0 {
		t.Fatalf("local lookup went remote: calls=%d agent=%+v", api.getCalls, a)
	}

	// Unknown ID falls back to a remote detail fetch and merges the result.
	a, err = s.Get(context.Background(), "a2")
	if err != nil {
		t.Fatalf("Get remote: %v", err)
	}
	if a.Name != "Emergency" || api.getCalls != 1 {
		t.Fatalf("remote fallback: calls=%d agent=%+v", api.getCalls, a)
	}
	if got := s.Agents(); len(got) != 2 {
		t.Fatalf("remote result not merged, collection: %+v", got)
	}
}

func TestAgentStoreCreateMergesAuthoritativeResponse(t *testing.T) {
	now := time.Now()
	api := &fakeAgentAPI{
		createResult: model.Agent{ID: "srv-1", Name: "New Agent", Status: model.AgentActive},
		listResult:   []model.Agent{{ID: "srv-1", Name: "New Agent", Status: model.AgentActive}},
	}
	s := NewAgentStore(api, testCache(t, &now), WithClock(func() time.Time { return now }))

	a, err := s.Create(context.Background(), model.AgentCreate{Name: "New Agent"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID != "srv-1" {
		t.Fatalf("agent ID = %q, want server-assigned srv-1", a.ID)
	}
	// Create forces a refetch so server-computed fields land locally.
	if api.listCalls != 1 {
		t.Fatalf("list called %d times, want 1", api.listCalls)
	}
	if got := s.Agents(); len(got) != 1 || got[0].ID != "srv-1" {
		t.Fatalf("collection after create: %+v", got)
	}
}

func TestAgentStoreCreateErrorIsStoredAndReturned(t *testing.T) {
	now := time.Now()
	api := &fakeAgentAPI{createErr: errors.New("422 validation")}
	s := NewAgentStore(api, testCache(t, &now), WithClock(func() time.Time { return now }))

	_, err := s.Create(context.Background(), model.AgentCreate{})
	if err == nil {
		t.Fatal("Create returned nil error")
	}
	if !strings.Contains(s.Error(), "failed to create agent") {
		t.Fatalf("error = %q", s.Error())
	}
	if len(s.Agents()) != 0 {
		t.Fatal("failed create mutated the collection")
	}
}

func TestAgentStoreDeleteRemovesLocally(t *testing.T) {
	now := time.Now()
	api := &fakeAgentAPI{listResult: []model.Agent{{ID: "a1"}, {ID: "a2"}}}
	s := NewAgentStore(api, testCache(t, &now), WithClock(func() time.Time { return now }))
	s.Fetch(context.Background(), true)

	api.listResult = []model.Agent{{ID: "a2"}}
	if err := s.Delete(context.Background(), "a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if api.deletedID != "a1" {
		t.Fatalf("deleted ID = %q", api.deletedID)
	}
	if got := s.Agents(); len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("collection after delete: %+v", got)
	}
}

func TestAgentStoreDeleteErrorLeavesCollection(t *testing.T) {
	now := time.Now()
	api := &fakeAgentAPI{listResult: []model.Agent{{ID: "a1"}}, deleteErr: errors.New("403")}
	s := NewAgentStore(api, testCache(t, &now), WithClock(func() time.Time { return now }))
	s.Fetch(context.Background(), true)

	if err := s.Delete(context.Background(), "a1"); err == nil {
		t.Fatal("Delete returned nil error")
	}
	if len(s.Agents()) != 1 {
		t.Fatal("failed delete removed the agent locally")
	}
	if !strings.Contains(s.Error(), "failed to delete agent") {
		t.Fatalf("error = %q", s.Error())
	}
}
