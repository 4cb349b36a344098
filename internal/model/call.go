package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CallStatus is the dashboard-side call lifecycle tag. Transitions are
// monotonic in practice (pending -> in-progress -> terminal) but nothing
// enforces that; remote events are applied as they arrive.
type CallStatus string

const (
	CallPending    CallStatus = "pending"
	CallInProgress CallStatus = "in-progress"
	CallCompleted  CallStatus = "completed"
	CallFailed     CallStatus = "failed"
	CallCancelled  CallStatus = "cancelled"
)

// PhoneNumberWeb is the sentinel phone number for browser-based sessions.
const PhoneNumberWeb = "web"

// TranscriptEntry is one turn of a call transcript.
type TranscriptEntry struct {
	Speaker   string `json:"speaker"` // "Agent", "Driver", "System"
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"` // clock offset into the call, "m:ss"
}

// DriverCheckinData holds structured data extracted from a routine check call.
type DriverCheckinData struct {
	CallOutcome             string `json:"callOutcome,omitempty"` // "In-Transit Update" or "Arrival Confirmation"
	DriverStatus            string `json:"driverStatus,omitempty"`
	CurrentLocation         string `json:"currentLocation,omitempty"`
	ETA                     string `json:"eta,omitempty"`
	DelayReason             string `json:"delayReason,omitempty"`
	UnloadingStatus         string `json:"unloadingStatus,omitempty"`
	PODReminderAcknowledged bool   `json:"podReminderAcknowledged,omitempty"`
}

// EmergencyData holds structured data extracted from an escalated call.
type EmergencyData struct {
	CallOutcome       string `json:"callOutcome"`
	EmergencyType     string `json:"emergencyType,omitempty"` // Accident, Breakdown, Medical, Other
	SafetyStatus      string `json:"safetyStatus,omitempty"`
	InjuryStatus      string `json:"injuryStatus,omitempty"`
	EmergencyLocation string `json:"emergencyLocation,omitempty"`
	LoadSecure        *bool  `json:"loadSecure,omitempty"`
	EscalationStatus  string `json:"escalationStatus,omitempty"`
}

// ExtractedData is the post-call analysis bag. The typed fields cover the
// dashboard's known columns; Extra keeps whatever else the platform's custom
// analysis returned.
type ExtractedData struct {
	CurrentLocation  string             `json:"currentLocation,omitempty"`
	EstimatedArrival string             `json:"estimatedArrival,omitempty"`
	DriverStatus     string             `json:"driverStatus,omitempty"`
	Issues           string             `json:"issues,omitempty"`
	Successful       *bool              `json:"successful,omitempty"`
	ScenarioType     string             `json:"scenarioType,omitempty"` // "driver_checkin", "emergency_protocol"
	DriverCheckin    *DriverCheckinData `json:"driverCheckinData,omitempty"`
	Emergency        *EmergencyData     `json:"emergencyData,omitempty"`
	Extra            map[string]any     `json:"extra,omitempty"`
}

// Call is the dashboard's view of a voice-agent call. The remote platform owns
// the authoritative record; local copies are caches except for optimistic
// placeholders inserted while a call is being initiated.
type Call struct {
	ID                  string            `json:"id"`
	DriverName          string            `json:"driverName"`
	PhoneNumber         string            `json:"phoneNumber"`
	LoadNumber          string            `json:"loadNumber"`
	AgentID             string            `json:"agentId"`
	AgentName           string            `json:"agentName,omitempty"`
	Scenario            string            `json:"scenario"`
	Status              CallStatus        `json:"status"`
	Duration            string            `json:"duration,omitempty"` // "m:ss"
	Timestamp           time.Time         `json:"timestamp"`
	Outcome             string            `json:"outcome,omitempty"`
	Confidence          float64           `json:"confidence"`
	ExtractedData       ExtractedData     `json:"extractedData"`
	Transcript          []TranscriptEntry `json:"transcript"`
	PickupLocation      string            `json:"pickupLocation,omitempty"`
	DeliveryLocation    string            `json:"deliveryLocation,omitempty"`
	EstimatedPickupTime string            `json:"estimatedPickupTime,omitempty"`
	Notes               string            `json:"notes,omitempty"`
}

// CallRequest carries the user-supplied context for initiating a call.
type CallRequest struct {
	DriverName          string `json:"driverName"`
	PhoneNumber         string `json:"phoneNumber"`
	LoadNumber          string `json:"loadNumber"`
	AgentID             string `json:"agentId"`
	Scenario            string `json:"scenario"`
	PickupLocation      string `json:"pickupLocation,omitempty"`
	DeliveryLocation    string `json:"deliveryLocation,omitempty"`
	EstimatedPickupTime string `json:"estimatedPickupTime,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

// WebCall is the handle returned when a browser-based session is created.
type WebCall struct {
	CallID      string `json:"callId"`
	AccessToken string `json:"accessToken"`
	AgentID     string `json:"agentId"`
}

// FormatSeconds renders a duration in whole seconds as "m:ss".
func FormatSeconds(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// FormatMillis renders a duration in milliseconds as "m:ss".
func FormatMillis(ms int64) string {
	if ms <= 0 {
		return "0:00"
	}
	return FormatSeconds(int(ms / 1000))
}

// ParseClock parses a "m:ss" duration string into whole seconds.
func ParseClock(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	mins, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	secs, err := strconv.Atoi(parts[1])
	if err != nil || secs < 0 || secs > 59 {
		return 0, false
	}
	return mins*60 + secs, true
}
