package platform

import (
	"time"

	"github.com/relaydial/relaydial/internal/model"
)

// Field translation between the platform's snake_case wire naming and the
// dashboard's internal naming. Each direction is explicit; nothing is mapped
// by reflection so a renamed wire field fails loudly in review, not at runtime.

func agentFromWire(w wireAgent, prompt string) model.Agent {
	status := model.AgentDraft
	if w.IsPublished {
		status = model.AgentActive
	}

	modified := time.Now()
	if w.LastModificationTimestamp > 0 {
		modified = time.UnixMilli(w.LastModificationTimestamp)
	}

	return model.Agent{
		ID:                      w.AgentID,
		Name:                    w.AgentName,
		Description:             w.Description,
		Prompt:                  prompt,
		VoiceID:                 w.VoiceID,
		Temperature:             deref(w.VoiceTemperature),
		Speed:                   deref(w.VoiceSpeed),
		Volume:                  deref(w.Volume),
		Responsiveness:          deref(w.Responsiveness),
		InterruptionSensitivity: deref(w.InterruptionSensitivity),
		EnableBackchannel:       w.EnableBackchannel != nil && *w.EnableBackchannel,
		BackchannelFrequency:    deref(w.BackchannelFrequency),
		BackchannelWords:        w.BackchannelWords,
		BoostedKeywords:         w.BoostedKeywords,
		PronunciationDictionary: pronunciationFromWire(w.PronunciationDictionary),
		Language:                w.Language,
		WebhookURL:              w.WebhookURL,
		Status:                  status,
		Version:                 w.Version,
		CreatedAt:               modified,
		UpdatedAt:               modified,
	}
}

func agentCreateToWire(in model.AgentCreate, llmID string) wireAgent {
	voiceID := in.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	return wireAgent{
		AgentName:               in.Name,
		Description:             in.Description,
		VoiceID:                 voiceID,
		VoiceTemperature:        in.Temperature,
		VoiceSpeed:              in.Speed,
		Volume:                  in.Volume,
		Responsiveness:          in.Responsiveness,
		InterruptionSensitivity: in.InterruptionSensitivity,
		EnableBackchannel:       in.EnableBackchannel,
		BackchannelFrequency:    in.BackchannelFrequency,
		BackchannelWords:        in.BackchannelWords,
		BoostedKeywords:         in.BoostedKeywords,
		PronunciationDictionary: pronunciationToWire(in.PronunciationDictionary),
		ResponseEngine:          &wireResponseEngine{Type: "retell-llm", LLMID: llmID},
		Language:                in.Language,
		WebhookURL:              in.WebhookURL,
	}
}

func agentUpdateToWire(in model.AgentUpdate, llmID string) wireAgent {
	w := wireAgent{
		VoiceTemperature:        in.Temperature,
		VoiceSpeed:              in.Speed,
		Volume:                  in.Volume,
		Responsiveness:          in.Responsiveness,
		InterruptionSensitivity: in.InterruptionSensitivity,
		EnableBackchannel:       in.EnableBackchannel,
		BackchannelFrequency:    in.BackchannelFrequency,
		BackchannelWords:        in.BackchannelWords,
		BoostedKeywords:         in.BoostedKeywords,
		PronunciationDictionary: pronunciationToWire(in.PronunciationDictionary),
	}
	if in.Name != nil {
		w.AgentName = *in.Name
	}
	if in.Description != nil {
		w.Description = *in.Description
	}
	if in.VoiceID != nil {
		w.VoiceID = *in.VoiceID
	}
	if in.Language != nil {
		w.Language = *in.Language
	}
	if in.WebhookURL != nil {
		w.WebhookURL = *in.WebhookURL
	}
	if llmID != "" {
		w.ResponseEngine = &wireResponseEngine{Type: "retell-llm", LLMID: llmID}
	}
	return w
}

func pronunciationFromWire(entries []wirePronunciation) []model.PronunciationEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]model.PronunciationEntry, len(entries))
	for i, e := range entries {
		out[i] = model.PronunciationEntry{Word: e.Word, Alphabet: e.Alphabet, Phoneme: e.Phoneme}
	}
	return out
}

func pronunciationToWire(entries []model.PronunciationEntry) []wirePronunciation {
	if len(entries) == 0 {
		return nil
	}
	out := make([]wirePronunciation, len(entries))
	for i, e := range entries {
		out[i] = wirePronunciation{Word: e.Word, Alphabet: e.Alphabet, Phoneme: e.Phoneme}
	}
	return out
}

// callStatusFromWire maps the platform's call states onto the dashboard's.
func callStatusFromWire(s string) model.CallStatus {
	switch s {
	case "registered":
		return model.CallPending
	case "ongoing":
		return model.CallInProgress
	case "ended":
		return model.CallCompleted
	case "error":
		return model.CallFailed
	default:
		return model.CallPending
	}
}

func callFromWire(w wireCall) model.Call {
	vars := w.DynamicVariables
	driverName := varOr(vars, "driver_name", "Unknown Driver")
	loadNumber := varOr(vars, "load_number", "Unknown Load")
	scenario := varOr(vars, "scenario", varOr(vars, "context", "Unknown"))

	status := callStatusFromWire(w.CallStatus)

	durationMS := w.DurationMS
	if durationMS == 0 && w.EndTimestamp > w.StartTimestamp {
		durationMS = w.EndTimestamp - w.StartTimestamp
	}

	timestamp := time.Now()
	if w.StartTimestamp > 0 {
		timestamp = time.UnixMilli(w.StartTimestamp)
	}

	phone := w.ToNumber
	if phone == "" {
		phone = w.FromNumber
	}
	if phone == "" && w.CallType == "web_call" {
		phone = model.PhoneNumberWeb
	}

	outcome := "Call " + string(status)
	confidence := 0.0
	extracted := model.ExtractedData{
		CurrentLocation:  vars["current_location"],
		EstimatedArrival: vars["estimated_arrival"],
		ScenarioType:     scenario,
	}
	if w.CallAnalysis != nil {
		if w.CallAnalysis.CallSummary != "" {
			outcome = w.CallAnalysis.CallSummary
		}
		// Pre-analysis calls stay at confidence 0; analyzed calls collapse to
		// the platform's boolean verdict.
		if w.CallAnalysis.CallSuccessful {
			confidence = 0.95
		} else {
			confidence = 0.3
		}
		successful := w.CallAnalysis.CallSuccessful
		extracted.Successful = &successful

		custom := w.CallAnalysis.CustomAnalysisData
		if v, ok := custom["driver_status"].(string); ok {
			extracted.DriverStatus = v
		}
		if v, ok := custom["issues"].(string); ok {
			extracted.Issues = v
		}
		for k, v := range custom {
			if k == "driver_status" || k == "issues" {
				continue
			}
			if extracted.Extra == nil {
				extracted.Extra = make(map[string]any)
			}
			extracted.Extra[k] = v
		}
	}

	return model.Call{
		ID:                  w.CallID,
		DriverName:          driverName,
		PhoneNumber:         phone,
		LoadNumber:          loadNumber,
		AgentID:             w.AgentID,
		Scenario:            scenario,
		Status:              status,
		Duration:            model.FormatMillis(durationMS),
		Timestamp:           timestamp,
		Outcome:             outcome,
		Confidence:          confidence,
		ExtractedData:       extracted,
		Transcript:          transcriptFromWire(w.TranscriptObject),
		PickupLocation:      vars["pickup_location"],
		DeliveryLocation:    vars["delivery_location"],
		EstimatedPickupTime: vars["estimated_pickup_time"],
		Notes:               vars["notes"],
	}
}

// transcriptFromWire converts the platform's role/content transcript turns
// into the dashboard's speaker/text entries. Timestamps come from the first
// word's start offset when word timings are present.
func transcriptFromWire(turns []wireTranscriptTurn) []model.TranscriptEntry {
	if len(turns) == 0 {
		return nil
	}
	out := make([]model.TranscriptEntry, 0, len(turns))
	for _, turn := range turns {
		speaker := "Driver"
		if turn.Role == "agent" {
			speaker = "Agent"
		}
		start := 0
		if len(turn.Words) > 0 {
			start = int(turn.Words[0].Start)
		}
		out = append(out, model.TranscriptEntry{
			Speaker:   speaker,
			Text:      turn.Content,
			Timestamp: model.FormatSeconds(start),
		})
	}
	return out
}

func voiceFromWire(w wireVoice) model.Voice {
	return model.Voice{
		ID:         w.VoiceID,
		Name:       w.VoiceName,
		Provider:   w.Provider,
		Accent:     w.Accent,
		Gender:     w.Gender,
		Age:        w.Age,
		PreviewURL: w.PreviewAudioURL,
	}
}

func varOr(vars map[string]string, key, fallback string) string {
	if v, ok := vars[key]; ok && v != "" {
		return v
	}
	return fallback
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
