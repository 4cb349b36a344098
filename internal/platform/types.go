package platform

// Wire DTOs for the voice-agent platform's REST API. The platform speaks
// snake_case; the mapping to the dashboard's internal naming lives in codec.go.

type wireResponseEngine struct {
	Type  string `json:"type"`
	LLMID string `json:"llm_id,omitempty"`
}

type wirePronunciation struct {
	Word     string `json:"word"`
	Alphabet string `json:"alphabet"`
	Phoneme  string `json:"phoneme"`
}

type wireAgent struct {
	AgentID                   string              `json:"agent_id,omitempty"`
	AgentName                 string              `json:"agent_name,omitempty"`
	Description               string              `json:"description,omitempty"`
	VoiceID                   string              `json:"voice_id,omitempty"`
	VoiceTemperature          *float64            `json:"voice_temperature,omitempty"`
	VoiceSpeed                *float64            `json:"voice_speed,omitempty"`
	Volume                    *float64            `json:"volume,omitempty"`
	Responsiveness            *float64            `json:"responsiveness,omitempty"`
	InterruptionSensitivity   *float64            `json:"interruption_sensitivity,omitempty"`
	EnableBackchannel         *bool               `json:"enable_backchannel,omitempty"`
	BackchannelFrequency      *float64            `json:"backchannel_frequency,omitempty"`
	BackchannelWords          []string            `json:"backchannel_words,omitempty"`
	BoostedKeywords           []string            `json:"boosted_keywords,omitempty"`
	PronunciationDictionary   []wirePronunciation `json:"pronunciation_dictionary,omitempty"`
	ResponseEngine            *wireResponseEngine `json:"response_engine,omitempty"`
	Language                  string              `json:"language,omitempty"`
	WebhookURL                string              `json:"webhook_url,omitempty"`
	Version                   int                 `json:"version,omitempty"`
	IsPublished               bool                `json:"is_published,omitempty"`
	LastModificationTimestamp int64               `json:"last_modification_timestamp,omitempty"`
}

type wireLLM struct {
	LLMID            string         `json:"llm_id,omitempty"`
	GeneralPrompt    string         `json:"general_prompt,omitempty"`
	Model            string         `json:"model,omitempty"`
	ModelTemperature float64        `json:"model_temperature,omitempty"`
	HighPriority     bool           `json:"model_high_priority,omitempty"`
	ToolCallStrict   bool           `json:"tool_call_strict_mode,omitempty"`
	GeneralTools     []wireLLMTool  `json:"general_tools,omitempty"`
	DynamicVariables map[string]any `json:"default_dynamic_variables,omitempty"`
}

type wireLLMTool struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type wireWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type wireTranscriptTurn struct {
	Role    string     `json:"role"` // "agent" or "user"
	Content string     `json:"content"`
	Words   []wireWord `json:"words,omitempty"`
}

type wireCallAnalysis struct {
	CallSummary        string         `json:"call_summary,omitempty"`
	UserSentiment      string         `json:"user_sentiment,omitempty"`
	CallSuccessful     bool           `json:"call_successful,omitempty"`
	CustomAnalysisData map[string]any `json:"custom_analysis_data,omitempty"`
}

type wireCall struct {
	CallID              string               `json:"call_id,omitempty"`
	AgentID             string               `json:"agent_id,omitempty"`
	CallStatus          string               `json:"call_status,omitempty"` // registered, ongoing, ended, error
	CallType            string               `json:"call_type,omitempty"`   // phone_call, web_call
	FromNumber          string               `json:"from_number,omitempty"`
	ToNumber            string               `json:"to_number,omitempty"`
	Direction           string               `json:"direction,omitempty"`
	StartTimestamp      int64                `json:"start_timestamp,omitempty"` // epoch millis
	EndTimestamp        int64                `json:"end_timestamp,omitempty"`
	DurationMS          int64                `json:"duration_ms,omitempty"`
	DisconnectionReason string               `json:"disconnection_reason,omitempty"`
	DynamicVariables    map[string]string    `json:"retell_llm_dynamic_variables,omitempty"`
	TranscriptObject    []wireTranscriptTurn `json:"transcript_object,omitempty"`
	CallAnalysis        *wireCallAnalysis    `json:"call_analysis,omitempty"`
	AccessToken         string               `json:"access_token,omitempty"` // web calls only
}

type wireCreatePhoneCall struct {
	AgentID          string            `json:"agent_id"`
	FromNumber       string            `json:"from_number"`
	ToNumber         string            `json:"to_number"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
}

type wireCreateWebCall struct {
	AgentID          string            `json:"agent_id"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
}

type wireVoice struct {
	VoiceID         string `json:"voice_id"`
	VoiceName       string `json:"voice_name"`
	Provider        string `json:"provider,omitempty"`
	Accent          string `json:"accent,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Age             string `json:"age,omitempty"`
	PreviewAudioURL string `json:"preview_audio_url,omitempty"`
}
