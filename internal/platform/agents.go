package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/relaydial/relaydial/internal/model"
	"github.com/relaydial/relaydial/internal/prompts"
)

// ListAgents fetches every configured agent. Prompts are not resolved here;
// the list endpoint does not expand the agents' LLM configuration.
func (c *Client) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var wire []wireAgent
	if err := c.do(ctx, http.MethodGet, "/list-agents", nil, &wire); err != nil {
		return nil, err
	}
	agents := make([]model.Agent, 0, len(wire))
	for _, w := range wire {
		agents = append(agents, agentFromWire(w, ""))
	}
	return agents, nil
}

// GetAgent fetches a single agent and resolves its behavior prompt from the
// backing LLM configuration.
func (c *Client) GetAgent(ctx context.Context, agentID string) (model.Agent, error) {
	var wire wireAgent
	if err := c.do(ctx, http.MethodGet, "/get-agent/"+agentID, nil, &wire); err != nil {
		return model.Agent{}, err
	}

	prompt := ""
	if wire.ResponseEngine != nil && wire.ResponseEngine.Type == "retell-llm" && wire.ResponseEngine.LLMID != "" {
		llm, err := c.getLLM(ctx, wire.ResponseEngine.LLMID)
		if err == nil {
			prompt = llm.GeneralPrompt
		}
	}
	return agentFromWire(wire, prompt), nil
}

// CreateAgent provisions the agent's LLM from its prompt, then creates the
// agent itself. The returned agent carries the remote-assigned identity.
// An empty prompt falls back to the scenario template, and unset voice-shaping
// fields get the tuned dispatch defaults.
func (c *Client) CreateAgent(ctx context.Context, in model.AgentCreate) (model.Agent, error) {
	in = withDispatchDefaults(in)
	prompt := in.Prompt
	if prompt == "" {
		prompt = prompts.ForScenario(in.Scenario)
	}
	temperature := 0.1
	if in.Temperature != nil {
		temperature = *in.Temperature
	}
	llmID, err := c.CreateLLM(ctx, prompt, defaultLLMModel, temperature)
	if err != nil {
		return model.Agent{}, fmt.Errorf("failed to create agent LLM: %w", err)
	}

	var wire wireAgent
	if err := c.do(ctx, http.MethodPost, "/create-agent", agentCreateToWire(in, llmID), &wire); err != nil {
		return model.Agent{}, err
	}
	agent := agentFromWire(wire, prompt)
	agent.Description = in.Description
	return agent, nil
}

// withDispatchDefaults fills unset voice-shaping fields with the tuned
// dispatch settings so new agents sound like a human dispatcher out of the
// box. Explicitly supplied values are left alone.
func withDispatchDefaults(in model.AgentCreate) model.AgentCreate {
	vs := prompts.OptimalVoiceSettings()
	if in.Responsiveness == nil {
		in.Responsiveness = &vs.Responsiveness
	}
	if in.InterruptionSensitivity == nil {
		in.InterruptionSensitivity = &vs.InterruptionSensitivity
	}
	if in.EnableBackchannel == nil {
		in.EnableBackchannel = &vs.BackchannelEnabled
	}
	if in.BackchannelFrequency == nil {
		in.BackchannelFrequency = &vs.BackchannelFrequency
	}
	if len(in.BackchannelWords) == 0 {
		in.BackchannelWords = vs.BackchannelWords
	}
	if len(in.BoostedKeywords) == 0 {
		in.BoostedKeywords = vs.BoostedKeywords
	}
	if len(in.PronunciationDictionary) == 0 {
		for _, p := range prompts.Pronunciations() {
			in.PronunciationDictionary = append(in.PronunciationDictionary, model.PronunciationEntry{
				Word:     p.Word,
				Alphabet: "ipa",
				Phoneme:  p.Phoneme,
			})
		}
	}
	return in
}

// UpdateAgent applies a partial update. A prompt change provisions a fresh LLM
// and repoints the agent's response engine at it.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, in model.AgentUpdate) (model.Agent, error) {
	llmID := ""
	if in.Prompt != nil {
		temperature := 0.1
		if in.Temperature != nil {
			temperature = *in.Temperature
		}
		id, err := c.CreateLLM(ctx, *in.Prompt, defaultLLMModel, temperature)
		if err != nil {
			return model.Agent{}, fmt.Errorf("failed to update agent LLM: %w", err)
		}
		llmID = id
	}

	var wire wireAgent
	if err := c.do(ctx, http.MethodPatch, "/update-agent/"+agentID, agentUpdateToWire(in, llmID), &wire); err != nil {
		return model.Agent{}, err
	}

	prompt := ""
	if in.Prompt != nil {
		prompt = *in.Prompt
	} else if wire.ResponseEngine != nil && wire.ResponseEngine.Type == "retell-llm" && wire.ResponseEngine.LLMID != "" {
		if llm, err := c.getLLM(ctx, wire.ResponseEngine.LLMID); err == nil {
			prompt = llm.GeneralPrompt
		}
	}

	agent := agentFromWire(wire, prompt)
	if in.Description != nil {
		agent.Description = *in.Description
	}
	return agent, nil
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodDelete, "/delete-agent/"+agentID, nil, nil)
}

// AgentVersions lists the stored versions of an agent.
func (c *Client) AgentVersions(ctx context.Context, agentID string) ([]model.Agent, error) {
	var wire []wireAgent
	if err := c.do(ctx, http.MethodGet, "/get-agent-versions/"+agentID, nil, &wire); err != nil {
		return nil, err
	}
	versions := make([]model.Agent, 0, len(wire))
	for _, w := range wire {
		versions = append(versions, agentFromWire(w, ""))
	}
	return versions, nil
}

// CreateLLM creates a prompt container (platform "LLM") and returns its ID.
// Every LLM gets the end_call tool so agents can hang up on their own.
func (c *Client) CreateLLM(ctx context.Context, prompt, llmModel string, temperature float64) (string, error) {
	in := wireLLM{
		GeneralPrompt:    prompt,
		Model:            llmModel,
		ModelTemperature: temperature,
		HighPriority:     true,
		ToolCallStrict:   true,
		GeneralTools: []wireLLMTool{
			{Type: "end_call", Name: "end_call", Description: "End the call with user."},
		},
	}
	var out wireLLM
	if err := c.do(ctx, http.MethodPost, "/create-retell-llm", in, &out); err != nil {
		return "", err
	}
	return out.LLMID, nil
}

func (c *Client) getLLM(ctx context.Context, llmID string) (wireLLM, error) {
	var out wireLLM
	if err := c.do(ctx, http.MethodGet, "/get-retell-llm/"+llmID, nil, &out); err != nil {
		return wireLLM{}, err
	}
	return out, nil
}
