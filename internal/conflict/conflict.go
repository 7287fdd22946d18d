package conflict

import "strings"

const ActiveStatus = "Active"

const (
	TotalDefeat  = "TotalDefeat"
	Defeat       = "Defeat"
	CloseDefeat  = "CloseDefeat"
	Draw         = "Draw"
	CloseVictory = "CloseVictory"
	Victory      = "Victory"
	TotalVictory = "TotalVictory"
)

// Resolve labels a conflict from side A's point of view. A status other than
// blank or "Active" is an external override and is returned as-is. The feed
// sends the sentinel in lower case, so it matches case-insensitively.
func Resolve(status string, wonDaysA, wonDaysB int) string {
	if s := strings.TrimSpace(status); s != "" && !strings.EqualFold(s, ActiveStatus) {
		return status
	}

	switch delta := wonDaysA - wonDaysB; {
	case delta <= -3:
		return TotalDefeat
	case delta == -2:
		return Defeat
	case delta == -1:
		return CloseDefeat
	case delta == 0:
		return Draw
	case delta == 1:
		return CloseVictory
	case delta == 2:
		return Victory
	default:
		return TotalVictory
	}
}

func IsWar(warType string) bool {
	switch strings.ToLower(warType) {
	case "war", "civilwar":
		return true
	}
	return false
}

func IsElection(warType string) bool {
	return strings.ToLower(warType) == "election"
}
