package store

import (
	"strings"
	"time"
)

type Region struct {
	ID        int64
	Name      string
	UpdatedAt time.Time
}

type Faction struct {
	ID   int64
	Name string
}

type Presence struct {
	ID        int64
	Region    string
	Faction   string
	Influence float64
	Security  string
	States    []string
	UpdatedAt time.Time
}

// Assignment is one presence of a faction tracked by a guild. Goal is nil
// when the guild has not overridden the goal for that system.
type Assignment struct {
	GuildID  string
	Presence Presence
	Goal     *string
}

type ConflictInput struct {
	RegionID   int64
	FactionAID int64
	FactionBID int64
	WonDaysA   int
	WonDaysB   int
	Status     string
	WarType    string
	UpdatedAt  time.Time
}

type Conflict struct {
	Region    string
	FactionA  string
	FactionB  string
	WonDaysA  int
	WonDaysB  int
	Status    string
	WarType   string
	UpdatedAt time.Time
}

// Oriented returns the conflict with faction on side A. The second result is
// false when faction is not a party to the conflict.
func (c Conflict) Oriented(faction string) (Conflict, bool) {
	switch {
	case strings.EqualFold(c.FactionA, faction):
		return c, true
	case strings.EqualFold(c.FactionB, faction):
		c.FactionA, c.FactionB = c.FactionB, c.FactionA
		c.WonDaysA, c.WonDaysB = c.WonDaysB, c.WonDaysA
		return c, true
	default:
		return c, false
	}
}

type GoalOverride struct {
	GuildID string
	Region  string
	Faction string
	Goal    string
}

type StaleRegion struct {
	GuildID   string
	Faction   string
	Region    string
	UpdatedAt time.Time
}
