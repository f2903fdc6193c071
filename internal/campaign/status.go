package campaign

import "strings"

// Status describes the campaign lifecycle label used by domain decisions.
type Status string

const (
	StatusUnspecified Status = ""
	StatusRaising     Status = "raising"
	StatusBonded      Status = "bonded"
)

// ParseStatus canonicalizes persisted status labels.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "raising":
		return StatusRaising, true
	case "bonded":
		return StatusBonded, true
	default:
		return StatusUnspecified, false
	}
}

// isStatusTransitionAllowed enforces the one-way campaign lifecycle. Bonded
// is terminal; there is no path back to raising and no re-entry into bonded.
func isStatusTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusRaising:
		return to == StatusBonded
	default:
		return false
	}
}

// IsStatusTransitionAllowed reports whether a status transition is permitted.
func IsStatusTransitionAllowed(from, to Status) bool {
	return isStatusTransitionAllowed(from, to)
}
