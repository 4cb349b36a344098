package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/prompts"
)

func TestClientRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient("secret-key", WithBaseURL(srv.URL))
	if _, err := c.ListAgents(context.Background()); err != nil {
		t.Fatalf("ListAgents: %v", err)
	}

	if auth := got.Get("Authorization"); auth != "Bearer secret-key" {
		t.Fatalf("Authorization = %q", auth)
	}
	if ct := got.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if skip := got.Get("ngrok-skip-browser-warning"); skip != "true" {
		t.Fatalf("ngrok-skip-browser-warning = %q", skip)
	}
}

func TestClientNon2xxReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "agent not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.GetAgent(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", apiErr.StatusCode)
	}
}

func TestListCallsDropsTranscripts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/list-calls" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{{
			"call_id":     "c1",
			"call_status": "ended",
			"transcript_object": []map[string]any{
				{"role": "agent", "content": "Hi"},
			},
		}})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	calls, err := c.ListCalls(context.Background())
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(calls) != 1 || calls[0].ID != "c1" {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].Transcript != nil {
		t.Fatal("list response should not carry transcripts")
	}
}

func TestCallFromWire(t *testing.T) {
	tests := []struct {
		name string
		wire wireCall
		want func(t *testing.T, c model.Call)
	}{
		{
			name: "status mapping and dynamic variables",
			wire: wireCall{
				CallID:     "c1",
				CallStatus: "ongoing",
				ToNumber:   "+15551234567",
				DynamicVariables: map[string]string{
					"driver_name": "Mike Johnson",
					"load_number": "LD-1001",
					"scenario":    "driver_checkin",
				},
			},
			want: func(t *testing.T, c model.Call) {
				if c.Status != model.CallInProgress {
					t.Fatalf("status = %q", c.Status)
				}
				if c.DriverName != "Mike Johnson" || c.LoadNumber != "LD-1001" {
					t.Fatalf("dynamic vars: %+v", c)
				}
				if c.Scenario != "driver_checkin" {
					t.Fatalf("scenario = %q", c.Scenario)
				}
			},
		},
		{
			name: "missing dynamic variables fall back to placeholders",
			wire: wireCall{CallID: "c2", CallStatus: "registered"},
			want: func(t *testing.T, c model.Call) {
				if c.DriverName != "Unknown Driver" {
					t.Fatalf("driver = %q", c.DriverName)
				}
				if c.LoadNumber != "Unknown Load" {
					t.Fatalf("load = %q", c.LoadNumber)
				}
				if c.Status != model.CallPending {
					t.Fatalf("status = %q", c.Status)
				}
			},
		},
		{
			name: "unknown status defaults to pending",
			wire: wireCall{CallID: "c3", CallStatus: "someday-maybe"},
			want: func(t *testing.T, c model.Call) {
				if c.Status != model.CallPending {
					t.Fatalf("status = %q", c.Status)
				}
			},
		},
		{
			name: "duration prefers duration_ms over timestamps",
			wire: wireCall{
				CallID:         "c4",
				CallStatus:     "ended",
				DurationMS:     95_000,
				StartTimestamp: 1_000_000,
				EndTimestamp:   1_500_000,
			},
			want: func(t *testing.T, c model.Call) {
				if c.Duration != "1:35" {
					t.Fatalf("duration = %q", c.Duration)
				}
			},
		},
		{
			name: "duration derived from timestamps when duration_ms absent",
			wire: wireCall{
				CallID:         "c5",
				CallStatus:     "ended",
				StartTimestamp: 1_000_000,
				EndTimestamp:   1_042_000,
			},
			want: func(t *testing.T, c model.Call) {
				if c.Duration != "0:42" {
					t.Fatalf("duration = %q", c.Duration)
				}
			},
		},
		{
			name: "web call without numbers gets the web sentinel",
			wire: wireCall{CallID: "c6", CallStatus: "ended", CallType: "web_call"},
			want: func(t *testing.T, c model.Call) {
				if c.PhoneNumber != model.PhoneNumberWeb {
					t.Fatalf("phone = %q", c.PhoneNumber)
				}
			},
		},
		{
			name: "unanalyzed call keeps confidence zero",
			wire: wireCall{CallID: "c7", CallStatus: "ended"},
			want: func(t *testing.T, c model.Call) {
				if c.Confidence != 0 {
					t.Fatalf("confidence = %v", c.Confidence)
				}
				if c.ExtractedData.Successful != nil {
					t.Fatal("successful flag should be unset before analysis")
				}
			},
		},
		{
			name: "successful analysis collapses to high confidence",
			wire: wireCall{
				CallID:     "c8",
				CallStatus: "ended",
				CallAnalysis: &wireCallAnalysis{
					CallSummary:    "Driver confirmed arrival.",
					CallSuccessful: true,
					CustomAnalysisData: map[string]any{
						"driver_status":  "Arrived",
						"issues":         "None",
						"user_sentiment": "Positive",
					},
				},
			},
			want: func(t *testing.T, c model.Call) {
				if c.Confidence != 0.95 {
					t.Fatalf("confidence = %v", c.Confidence)
				}
				if c.Outcome != "Driver confirmed arrival." {
					t.Fatalf("outcome = %q", c.Outcome)
				}
				if c.ExtractedData.DriverStatus != "Arrived" || c.ExtractedData.Issues != "None" {
					t.Fatalf("extracted = %+v", c.ExtractedData)
				}
				if c.ExtractedData.Extra["user_sentiment"] != "Positive" {
					t.Fatalf("extra = %v", c.ExtractedData.Extra)
				}
			},
		},
		{
			name: "unsuccessful analysis collapses to low confidence",
			wire: wireCall{
				CallID:       "c9",
				CallStatus:   "ended",
				CallAnalysis: &wireCallAnalysis{CallSuccessful: false},
			},
			want: func(t *testing.T, c model.Call) {
				if c.Confidence != 0.3 {
					t.Fatalf("confidence = %v", c.Confidence)
				}
				if c.ExtractedData.Successful == nil || *c.ExtractedData.Successful {
					t.Fatal("successful flag should be explicitly false")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, callFromWire(tt.wire))
		})
	}
}

func TestTranscriptFromWire(t *testing.T) {
	turns := []wireTranscriptTurn{
		{Role: "agent", Content: "Hi Mike, this is dispatch.", Words: []wireWord{{Word: "Hi", Start: 0.2}}},
		{Role: "user", Content: "Hey, I'm driving.", Words: []wireWord{{Word: "Hey", Start: 64.8}}},
		{Role: "user", Content: "Still here."},
	}
	got := transcriptFromWire(turns)
	if len(got) != 3 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Speaker != "Agent" || got[0].Timestamp != "0:00" {
		t.Fatalf("entry 0 = %+v", got[0])
	}
	if got[1].Speaker != "Driver" || got[1].Timestamp != "1:04" {
		t.Fatalf("entry 1 = %+v", got[1])
	}
	if got[2].Timestamp != "0:00" {
		t.Fatalf("entry without word timings = %+v", got[2])
	}
}

func TestCreatePhoneCallSendsDriverContext(t *testing.T) {
	var body wireCreatePhoneCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/create-phone-call" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"call_id": "call-1", "call_status": "registered"})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithFromNumber("+15550000000"))
	call, err := c.CreatePhoneCall(context.Background(), model.CallRequest{
		DriverName:  "Mike Johnson",
		PhoneNumber: "+15551234567",
		LoadNumber:  "LD-1001",
		AgentID:     "agent-1",
		Scenario:    "driver_checkin",
	})
	if err != nil {
		t.Fatalf("CreatePhoneCall: %v", err)
	}

	if body.FromNumber != "+15550000000" || body.ToNumber != "+15551234567" {
		t.Fatalf("numbers = %q -> %q", body.FromNumber, body.ToNumber)
	}
	if body.DynamicVariables["driver_name"] != "Mike Johnson" ||
		body.DynamicVariables["load_number"] != "LD-1001" ||
		body.DynamicVariables["scenario"] != "driver_checkin" {
		t.Fatalf("dynamic variables = %v", body.DynamicVariables)
	}
	if body.DynamicVariables["dispatch_name"] == "" || body.DynamicVariables["company_name"] == "" {
		t.Fatalf("dispatcher identity missing from dynamic variables: %v", body.DynamicVariables)
	}
	if call.ID != "call-1" || call.Status != model.CallPending {
		t.Fatalf("call = %+v", call)
	}
	if call.DriverName != "Mike Johnson" {
		t.Fatalf("request context not kept: %+v", call)
	}
}

func TestCreateWebCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/create-web-call" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"call_id":      "web-1",
			"agent_id":     "agent-1",
			"access_token": "tok-abc",
		})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	web, err := c.CreateWebCall(context.Background(), "agent-1", map[string]string{"driver_name": "Mike"})
	if err != nil {
		t.Fatalf("CreateWebCall: %v", err)
	}
	if web.CallID != "web-1" || web.AccessToken != "tok-abc" || web.AgentID != "agent-1" {
		t.Fatalf("web call = %+v", web)
	}
}

func TestGetAgentResolvesPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get-agent/agent-1":
			json.NewEncoder(w).Encode(map[string]any{
				"agent_id":        "agent-1",
				"agent_name":      "Dispatch Check-in",
				"is_published":    true,
				"response_engine": map[string]any{"type": "retell-llm", "llm_id": "llm-9"},
			})
		case "/get-retell-llm/llm-9":
			json.NewEncoder(w).Encode(map[string]any{
				"llm_id":         "llm-9",
				"general_prompt": "You are a dispatch agent.",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	agent, err := c.GetAgent(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if agent.Prompt != "You are a dispatch agent." {
		t.Fatalf("prompt = %q", agent.Prompt)
	}
	if agent.Status != model.AgentActive {
		t.Fatalf("status = %q", agent.Status)
	}
}

func TestCreateAgentProvisionsLLMFirst(t *testing.T) {
	var paths []string
	var llmBody wireLLM
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/create-retell-llm":
			if err := json.NewDecoder(r.Body).Decode(&llmBody); err != nil {
				t.Errorf("decode llm body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"llm_id": "llm-new"})
		case "/create-agent":
			var body wireAgent
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode agent body: %v", err)
			}
			if body.ResponseEngine == nil || body.ResponseEngine.LLMID != "llm-new" {
				t.Errorf("response engine = %+v", body.ResponseEngine)
			}
			if body.VoiceID != defaultVoiceID {
				t.Errorf("voice ID = %q, want default", body.VoiceID)
			}
			json.NewEncoder(w).Encode(map[string]any{"agent_id": "agent-new", "agent_name": body.AgentName})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	agent, err := c.CreateAgent(context.Background(), model.AgentCreate{
		Name:   "New Agent",
		Prompt: "Be concise.",
	})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if agent.ID != "agent-new" || agent.Prompt != "Be concise." {
		t.Fatalf("agent = %+v", agent)
	}
	if len(paths) != 2 || paths[0] != "/create-retell-llm" || paths[1] != "/create-agent" {
		t.Fatalf("request order = %v", paths)
	}
	if llmBody.GeneralPrompt != "Be concise." {
		t.Fatalf("llm prompt = %q", llmBody.GeneralPrompt)
	}
}

func TestCreateAgentDefaultsScenarioPromptAndVoice(t *testing.T) {
	var llmBody wireLLM
	var agentBody wireAgent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/create-retell-llm":
			if err := json.NewDecoder(r.Body).Decode(&llmBody); err != nil {
				t.Errorf("decode llm body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"llm_id": "llm-1"})
		case "/create-agent":
			if err := json.NewDecoder(r.Body).Decode(&agentBody); err != nil {
				t.Errorf("decode agent body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"agent_id": "agent-1"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	agent, err := c.CreateAgent(context.Background(), model.AgentCreate{
		Name:     "Emergency Agent",
		Scenario: "emergency_protocol",
	})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}

	if llmBody.GeneralPrompt != prompts.EmergencyProtocol {
		t.Fatalf("llm prompt = %q, want emergency protocol template", llmBody.GeneralPrompt)
	}
	if agent.Prompt != prompts.EmergencyProtocol {
		t.Fatalf("agent prompt not set from scenario template")
	}

	vs := prompts.OptimalVoiceSettings()
	if agentBody.EnableBackchannel == nil || !*agentBody.EnableBackchannel {
		t.Fatalf("backchannel not enabled by default: %+v", agentBody.EnableBackchannel)
	}
	if agentBody.Responsiveness == nil || *agentBody.Responsiveness != vs.Responsiveness {
		t.Fatalf("responsiveness = %v, want %v", agentBody.Responsiveness, vs.Responsiveness)
	}
	if agentBody.InterruptionSensitivity == nil || *agentBody.InterruptionSensitivity != vs.InterruptionSensitivity {
		t.Fatalf("interruption sensitivity = %v, want %v", agentBody.InterruptionSensitivity, vs.InterruptionSensitivity)
	}
	if len(agentBody.BoostedKeywords) == 0 || len(agentBody.PronunciationDictionary) == 0 {
		t.Fatalf("keyword/pronunciation defaults not applied")
	}
}

func TestCreateAgentKeepsExplicitVoiceSettings(t *testing.T) {
	var agentBody wireAgent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/create-retell-llm":
			json.NewEncoder(w).Encode(map[string]any{"llm_id": "llm-1"})
		case "/create-agent":
			if err := json.NewDecoder(r.Body).Decode(&agentBody); err != nil {
				t.Errorf("decode agent body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"agent_id": "agent-1"})
		}
	}))
	defer srv.Close()

	responsiveness := 0.4
	backchannel := false
	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.CreateAgent(context.Background(), model.AgentCreate{
		Name:              "Quiet Agent",
		Prompt:            "Be brief.",
		Responsiveness:    &responsiveness,
		EnableBackchannel: &backchannel,
	})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if agentBody.Responsiveness == nil || *agentBody.Responsiveness != 0.4 {
		t.Fatalf("responsiveness overridden: %v", agentBody.Responsiveness)
	}
	if agentBody.EnableBackchannel == nil || *agentBody.EnableBackchannel {
		t.Fatalf("backchannel overridden: %v", agentBody.EnableBackchannel)
	}
}
