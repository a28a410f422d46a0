package status

import (
	"regexp"
	"strings"
)

// Status is the link state of an mwan interface
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	// StatusUnknown is only a display fallback. Parse never yields it.
	StatusUnknown Status = "unknown"
)

// IfaceState is one interface line from an mwan status report
type IfaceState struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	RawLine string `json:"line"`
}

// DisplayStatus returns the status to render, falling back to unknown
// for anything that is not online or offline.
func (s IfaceState) DisplayStatus() Status {
	switch s.Status {
	case StatusOnline, StatusOffline:
		return s.Status
	default:
		return StatusUnknown
	}
}

var (
	lineBreaks   = regexp.MustCompile(`\n+`)
	ifacePattern = regexp.MustCompile(`(?i)^interface\s+(\S+)\s+is\s+(online|offline)`)
)

// Parse extracts interface states from a raw mwan3 status report.
// Each line is matched on its own; lines that do not match are dropped.
// The result is in input order and shares no state across calls.
func Parse(raw string) []IfaceState {
	out := make([]IfaceState, 0)
	for _, ln := range lineBreaks.Split(raw, -1) {
		m := ifacePattern.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		out = append(out, IfaceState{
			Name:    m[1],
			Status:  Status(strings.ToLower(m[2])),
			RawLine: ln,
		})
	}
	return out
}
