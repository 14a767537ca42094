package remote

import "github.com/nikvdp/lb/internal/types"

// PriorityToRemote maps the local {0..4} scale onto the Remote's
// {0 none, 1 urgent, 2 high, 3 medium, 4 low} scale. Priorities 1..3 map
// straight across; the endpoints are asymmetric: local 0 (most urgent)
// maps to Remote 1 (urgent), and local 4 (least urgent) maps to Remote 0
// (none) rather than continuing the pattern.
func PriorityToRemote(local int) int {
	switch local {
	case 0:
		return 1
	case 4:
		return 0
	default:
		return local
	}
}

// PriorityToLocal is the inverse of PriorityToRemote.
func PriorityToLocal(remote int) int {
	switch remote {
	case 1:
		return 0
	case 0:
		return 4
	default:
		return remote
	}
}

// StatusToStateType maps a canonical status onto the Remote's workflow
// state *type* (not a specific state) — the Remote client then picks some
// state of that type.
func StatusToStateType(s types.Status) string {
	switch s {
	case types.StatusOpen:
		return "unstarted"
	case types.StatusInProgress:
		return "started"
	case types.StatusClosed:
		return "completed"
	default:
		return "unstarted"
	}
}

// StateTypeToStatus is the inverse, collapsing the Remote's two closed
// variants ("completed" and "canceled") onto the single canonical
// "closed" status.
func StateTypeToStatus(stateType string) types.Status {
	switch stateType {
	case "started":
		return types.StatusInProgress
	case "completed", "canceled":
		return types.StatusClosed
	default:
		return types.StatusOpen
	}
}
