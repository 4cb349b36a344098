package store

import (
	"math"
	"strings"

	"github.com/relaydial/relaydial/internal/model"
)

// CallStats is the dashboard summary derived from the call collection.
type CallStats struct {
	TotalCalls      int     `json:"totalCalls"`
	ActiveCalls     int     `json:"activeCalls"`
	CompletedCalls  int     `json:"completedCalls"`
	FailedCalls     int     `json:"failedCalls"`
	SuccessRate     int     `json:"successRate"` // whole percent
	AverageDuration string  `json:"averageDuration"`
	AvgConfidence   float64 `json:"avgConfidence"`
}

// ComputeCallStats derives summary statistics from a call collection.
//
// A completed call counts as successful when its analysis says so, when its
// confidence clears 0.7, or when no analysis verdict exists and confidence was
// never assigned. The rate is taken over the whole collection, not just the
// completed subset, so pending and failed calls drag it down.
func ComputeCallStats(calls []model.Call) CallStats {
	st := CallStats{TotalCalls: len(calls), AverageDuration: "0:00"}

	successful := 0
	durationSum, durationN := 0, 0
	confSum, confN := 0.0, 0
	for _, c := range calls {
		switch c.Status {
		case model.CallInProgress, model.CallPending:
			st.ActiveCalls++
		case model.CallFailed:
			st.FailedCalls++
		case model.CallCompleted:
			st.CompletedCalls++
			ok := false
			switch {
			case c.ExtractedData.Successful != nil && *c.ExtractedData.Successful:
				ok = true
			case c.Confidence >= 0.7:
				ok = true
			case c.ExtractedData.Successful == nil && c.Confidence == 0:
				ok = true
			}
			if ok {
				successful++
			}
			if sec, parsed := model.ParseClock(c.Duration); parsed {
				durationSum += sec
				durationN++
			}
			if c.Confidence > 0 {
				confSum += c.Confidence
				confN++
			}
		}
	}

	if st.TotalCalls > 0 {
		st.SuccessRate = int(math.Round(float64(successful) / float64(st.TotalCalls) * 100))
	}
	if durationN > 0 {
		st.AverageDuration = model.FormatSeconds(durationSum / durationN)
	}
	if confN > 0 {
		st.AvgConfidence = confSum / float64(confN)
	}
	return st
}

// FilterCalls returns the calls matching a case-insensitive search over driver
// name and load number, narrowed by status. Status "all" (or "") matches every
// status.
func FilterCalls(calls []model.Call, search, status string) []model.Call {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Call, 0, len(calls))
	for _, c := range calls {
		if status != "" && status != "all" && string(c.Status) != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.DriverName), needle) &&
			!strings.Contains(strings.ToLower(c.LoadNumber), needle) {
			continue
		}
		out = append(out, c)
	}
	return out
}
