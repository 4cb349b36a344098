// Package transcript extracts structured dispatch data from call transcripts
// with keyword and pattern matching. It is deliberately dumb: no model calls,
// just the phrase tables dispatchers actually hear on check-in calls.
package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaydial/relaydial/internal/model"
)

var emergencyKeywords = []string{
	"accident", "crash", "hit", "collision", "breakdown", "broke down",
	"broken", "medical", "hurt", "injured", "sick", "emergency", "urgent",
	"help", "blowout", "tire", "flat", "fire", "smoke", "stuck", "stranded",
}

var statusKeywords = []struct {
	status   string
	keywords []string
}{
	{"Driving", []string{"driving", "on the road", "en route", "traveling", "moving"}},
	{"Delayed", []string{"delayed", "behind", "late", "slow", "stuck", "traffic"}},
	{"Arrived", []string{"arrived", "here", "at the", "made it", "reached"}},
	{"Unloading", []string{"unloading", "offloading", "dumping", "door", "dock"}},
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)I-\d+`),
	regexp.MustCompile(`(?i)Highway \d+`),
	regexp.MustCompile(`(?i)Hwy \d+`),
	regexp.MustCompile(`(?i)Mile\s*(?:Marker)?\s*\d+`),
	regexp.MustCompile(`(?i)Exit \d+`),
	regexp.MustCompile(`(?i)near\s+[\w\s]+(?:,\s*[A-Z]{2})?`),
	regexp.MustCompile(`(?i)in\s+[\w\s]+(?:,\s*[A-Z]{2})?`),
}

var etaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(?:AM|PM)?`),
	regexp.MustCompile(`(?i)(?:in\s+)?\d+\s+(?:hours?|minutes?)`),
	regexp.MustCompile(`(?i)(?:around|about|by)\s+\d{1,2}(?::\d{2})?\s*(?:AM|PM)?`),
	regexp.MustCompile(`(?i)tomorrow|today|tonight`),
}

var delayReasons = []struct {
	reason   string
	keywords []string
}{
	{"Heavy Traffic", []string{"traffic", "congestion", "busy", "slow moving"}},
	{"Weather", []string{"weather", "rain", "snow", "storm", "wind", "fog"}},
	{"Mechanical", []string{"mechanical", "truck issue", "engine", "breakdown"}},
	{"Loading/Unloading", []string{"loading", "unloading", "waiting", "detention"}},
	{"Route Issues", []string{"detour", "construction", "road closed", "blocked"}},
}

var doorPattern = regexp.MustCompile(`door\s+(\d+)`)

// Process analyzes a transcript and extracts structured data. Emergency
// content wins over check-in extraction when both are present.
func Process(entries []model.TranscriptEntry) model.ExtractedData {
	var parts []string
	for _, e := range entries {
		parts = append(parts, e.Text)
	}
	fullText := strings.Join(parts, " ")

	if containsAny(strings.ToLower(fullText), emergencyKeywords) {
		return extractEmergency(fullText)
	}
	return extractCheckin(fullText)
}

func extractEmergency(fullText string) model.ExtractedData {
	lower := strings.ToLower(fullText)
	em := &model.EmergencyData{CallOutcome: "Emergency Escalation"}

	switch {
	case containsAny(lower, []string{"accident", "crash", "hit", "collision"}):
		em.EmergencyType = "Accident"
	case containsAny(lower, []string{"breakdown", "broke down", "broken", "blowout", "tire"}):
		em.EmergencyType = "Breakdown"
	case containsAny(lower, []string{"medical", "hurt", "injured", "sick"}):
		em.EmergencyType = "Medical"
	default:
		em.EmergencyType = "Other"
	}

	safetyPhrases := []string{
		"everyone is safe", "we're safe", "no one hurt", "everyone's okay",
		"we're okay", "all safe", "nobody injured",
	}
	if containsAny(lower, safetyPhrases) {
		em.SafetyStatus = "Driver confirmed everyone is safe"
	} else if strings.Contains(lower, "safe") {
		em.SafetyStatus = "Safety status mentioned"
	}

	if containsAny(lower, []string{"no injuries", "not hurt", "nobody hurt", "no one injured"}) {
		em.InjuryStatus = "No injuries reported"
	} else if containsAny(lower, []string{"injured", "hurt", "medical"}) {
		em.InjuryStatus = "Potential injuries - requires verification"
	}

	em.EmergencyLocation = extractLocation(fullText)

	if containsAny(lower, []string{"load is secure", "cargo is safe", "everything's tied down"}) {
		em.LoadSecure = boolPtr(true)
	} else if containsAny(lower, []string{"load shifted", "cargo damaged", "lost some"}) {
		em.LoadSecure = boolPtr(false)
	}

	return model.ExtractedData{
		Emergency:    em,
		ScenarioType: "emergency_protocol",
	}
}

func extractCheckin(fullText string) model.ExtractedData {
	lower := strings.ToLower(fullText)
	ci := &model.DriverCheckinData{}

	if containsAny(lower, []string{"arrived", "here", "at the", "unloading"}) {
		ci.CallOutcome = "Arrival Confirmation"
	} else {
		ci.CallOutcome = "In-Transit Update"
	}

	ci.DriverStatus = extractDriverStatus(lower)
	ci.CurrentLocation = extractLocation(fullText)
	ci.ETA = extractETA(fullText)
	ci.DelayReason = extractDelayReason(lower)
	if ci.CallOutcome == "Arrival Confirmation" {
		ci.UnloadingStatus = extractUnloadingStatus(lower)
	}
	ci.PODReminderAcknowledged = containsAny(lower, []string{"pod", "proof of delivery", "paperwork", "documents"})

	return model.ExtractedData{
		DriverCheckin:    ci,
		ScenarioType:     "driver_checkin",
		CurrentLocation:  ci.CurrentLocation,
		EstimatedArrival: ci.ETA,
		DriverStatus:     ci.DriverStatus,
	}
}

func extractDriverStatus(lower string) string {
	for _, s := range statusKeywords {
		if containsAny(lower, s.keywords) {
			return s.status
		}
	}
	return ""
}

func extractLocation(text string) string {
	for _, p := range locationPatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}

	// Fall back to the words after a location preposition.
	indicators := map[string]bool{"at": true, "near": true, "in": true, "on": true, "by": true}
	words := strings.Fields(text)
	for i, w := range words {
		if indicators[strings.ToLower(w)] && i+1 < len(words) {
			end := i + 4
			if end > len(words) {
				end = len(words)
			}
			loc := strings.Join(words[i+1:end], " ")
			if len(loc) > 3 {
				return loc
			}
		}
	}
	return ""
}

func extractETA(text string) string {
	for _, p := range etaPatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func extractDelayReason(lower string) string {
	for _, d := range delayReasons {
		if containsAny(lower, d.keywords) {
			return d.reason
		}
	}
	if containsAny(lower, []string{"delayed", "behind", "late"}) {
		return "Unspecified Delay"
	}
	return "None"
}

func extractUnloadingStatus(lower string) string {
	if m := doorPattern.FindStringSubmatch(lower); m != nil {
		return fmt.Sprintf("In Door %s", m[1])
	}
	switch {
	case strings.Contains(lower, "waiting") && (strings.Contains(lower, "lumper") || strings.Contains(lower, "unload")):
		return "Waiting for Lumper"
	case strings.Contains(lower, "detention"):
		return "Detention"
	case strings.Contains(lower, "unloading") || strings.Contains(lower, "offloading"):
		return "Currently Unloading"
	case strings.Contains(lower, "finished") || strings.Contains(lower, "done"):
		return "Unloading Complete"
	}
	return "N/A"
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func boolPtr(b bool) *bool { return &b }
