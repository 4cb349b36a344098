package model

import "time"

// AgentStatus tags an agent's lifecycle in the dashboard.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
	AgentDraft    AgentStatus = "draft"
)

// PronunciationEntry maps a word to an explicit pronunciation.
type PronunciationEntry struct {
	Word     string `json:"word"`
	Alphabet string `json:"alphabet"` // "ipa" or "cmu"
	Phoneme  string `json:"phoneme"`
}

// Agent is the dashboard's view of a configured voice agent. Identity is
// assigned by the remote platform; the local copy is always a cache of
// authoritative remote state.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt,omitempty"`

	VoiceID     string  `json:"voiceId"`
	Temperature float64 `json:"temperature"` // voice shaping, 0..2
	Speed       float64 `json:"speed"`       // 0.5..2
	Volume      float64 `json:"volume"`      // 0..2

	Responsiveness          float64 `json:"responsiveness"`
	InterruptionSensitivity float64 `json:"interruptionSensitivity"`

	EnableBackchannel    bool     `json:"enableBackchannel"`
	BackchannelFrequency float64  `json:"backchannelFrequency,omitempty"`
	BackchannelWords     []string `json:"backchannelWords,omitempty"`

	BoostedKeywords         []string             `json:"boostedKeywords,omitempty"`
	PronunciationDictionary []PronunciationEntry `json:"pronunciationDictionary,omitempty"`

	Language   string `json:"language,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`

	Status    AgentStatus `json:"status"`
	Version   int         `json:"version,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`

	CallsToday int `json:"callsToday"`
}

// AgentCreate carries the fields for creating a new agent. Zero-valued
// optionals are left to platform defaults.
type AgentCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	Scenario    string `json:"scenario,omitempty"` // picks the default prompt when Prompt is empty

	VoiceID     string   `json:"voiceId,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`

	Responsiveness          *float64 `json:"responsiveness,omitempty"`
	InterruptionSensitivity *float64 `json:"interruptionSensitivity,omitempty"`

	EnableBackchannel    *bool    `json:"enableBackchannel,omitempty"`
	BackchannelFrequency *float64 `json:"backchannelFrequency,omitempty"`
	BackchannelWords     []string `json:"backchannelWords,omitempty"`

	BoostedKeywords         []string             `json:"boostedKeywords,omitempty"`
	PronunciationDictionary []PronunciationEntry `json:"pronunciationDictionary,omitempty"`

	Language   string `json:"language,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`
}

// AgentUpdate is a partial update; nil fields are left untouched remotely.
type AgentUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Prompt      *string `json:"prompt,omitempty"`

	VoiceID     *string  `json:"voiceId,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`

	Responsiveness          *float64 `json:"responsiveness,omitempty"`
	InterruptionSensitivity *float64 `json:"interruptionSensitivity,omitempty"`

	EnableBackchannel    *bool    `json:"enableBackchannel,omitempty"`
	BackchannelFrequency *float64 `json:"backchannelFrequency,omitempty"`
	BackchannelWords     []string `json:"backchannelWords,omitempty"`

	BoostedKeywords         []string             `json:"boostedKeywords,omitempty"`
	PronunciationDictionary []PronunciationEntry `json:"pronunciationDictionary,omitempty"`

	Language   *string `json:"language,omitempty"`
	WebhookURL *string `json:"webhookUrl,omitempty"`
}
