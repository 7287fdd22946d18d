package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidFormat  = errors.New("invalid field format")
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

type FactionFact struct {
	Name      string
	Influence float64
	States    []string
}

type ConflictSide struct {
	Name    string
	WonDays int
}

type ConflictFact struct {
	WarType string
	Status  string
	A       ConflictSide
	B       ConflictSide
}

// FactSet is the validated content of one event. Region is empty when the
// event does not describe a star system; Factions is empty when none of the
// listed factions is of interest.
type FactSet struct {
	Timestamp time.Time
	Region    string
	Security  string
	Factions  []FactionFact
	Conflicts []ConflictFact
}

// Relevant reports whether the fact set should be reconciled.
func (f *FactSet) Relevant() bool {
	return f != nil && f.Region != "" && len(f.Factions) > 0
}

func (f *FactSet) FactionNames() []string {
	names := make([]string, 0, len(f.Factions))
	for _, fact := range f.Factions {
		names = append(names, fact.Name)
	}
	return names
}

type InterestSet map[string]struct{}

func NewInterestSet(names ...string) InterestSet {
	set := make(InterestSet, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[strings.ToLower(name)] = struct{}{}
	}
	return set
}

func (s InterestSet) Contains(name string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

type header struct {
	GatewayTimestamp *string `json:"gatewayTimestamp"`
}

type message struct {
	StarSystem     *string         `json:"StarSystem"`
	SystemSecurity string          `json:"SystemSecurity"`
	Factions       []factionEntry  `json:"Factions"`
	Conflicts      []conflictEntry `json:"Conflicts"`
}

type factionEntry struct {
	Name         *string `json:"Name"`
	Influence    float64 `json:"Influence"`
	ActiveStates []struct {
		State string `json:"State"`
	} `json:"ActiveStates"`
}

type conflictEntry struct {
	WarType  string        `json:"WarType"`
	Status   string        `json:"Status"`
	Faction1 conflictParty `json:"Faction1"`
	Faction2 conflictParty `json:"Faction2"`
}

type conflictParty struct {
	Name    string `json:"Name"`
	WonDays int    `json:"WonDays"`
}

// Extract parses one raw event envelope. It has no side effects and is safe
// for concurrent use.
func Extract(raw []byte, interest InterestSet) (*FactSet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, ErrMalformedInput
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformedInput)
	}

	ts, err := parseHeader(doc)
	if err != nil {
		return nil, err
	}

	rawMessage, ok := doc["message"]
	if !ok || isNull(rawMessage) {
		return nil, fmt.Errorf("%w: message", ErrMissingField)
	}
	var msg message
	if err := json.Unmarshal(rawMessage, &msg); err != nil {
		return nil, fmt.Errorf("%w: message: %v", ErrInvalidFormat, err)
	}

	facts := &FactSet{Timestamp: ts}
	if msg.StarSystem == nil || strings.TrimSpace(*msg.StarSystem) == "" {
		return facts, nil
	}
	facts.Region = *msg.StarSystem

	matched := false
	for i, entry := range msg.Factions {
		if entry.Name == nil || strings.TrimSpace(*entry.Name) == "" {
			return nil, fmt.Errorf("%w: message.Factions[%d].Name", ErrInvalidFormat, i)
		}
		if interest.Contains(*entry.Name) {
			matched = true
		}
	}
	if !matched {
		return facts, nil
	}

	facts.Security = msg.SystemSecurity
	facts.Factions = make([]FactionFact, 0, len(msg.Factions))
	for _, entry := range msg.Factions {
		states := make([]string, 0, len(entry.ActiveStates))
		for _, state := range entry.ActiveStates {
			if state.State == "" {
				continue
			}
			states = append(states, state.State)
		}
		facts.Factions = append(facts.Factions, FactionFact{
			Name:      *entry.Name,
			Influence: entry.Influence,
			States:    states,
		})
	}

	facts.Conflicts = make([]ConflictFact, 0, len(msg.Conflicts))
	for i, entry := range msg.Conflicts {
		if entry.Faction1.Name == "" || entry.Faction2.Name == "" {
			return nil, fmt.Errorf("%w: message.Conflicts[%d] faction name", ErrInvalidFormat, i)
		}
		facts.Conflicts = append(facts.Conflicts, ConflictFact{
			WarType: entry.WarType,
			Status:  entry.Status,
			A:       ConflictSide{Name: entry.Faction1.Name, WonDays: entry.Faction1.WonDays},
			B:       ConflictSide{Name: entry.Faction2.Name, WonDays: entry.Faction2.WonDays},
		})
	}

	return facts, nil
}

func parseHeader(doc map[string]json.RawMessage) (time.Time, error) {
	rawHeader, ok := doc["header"]
	if !ok || isNull(rawHeader) {
		return time.Time{}, fmt.Errorf("%w: header", ErrMissingField)
	}

	var h header
	if err := json.Unmarshal(rawHeader, &h); err != nil {
		return time.Time{}, fmt.Errorf("%w: header: %v", ErrInvalidFormat, err)
	}
	if h.GatewayTimestamp == nil {
		return time.Time{}, fmt.Errorf("%w: header.gatewayTimestamp", ErrMissingField)
	}

	ts, err := parseTimestamp(*h.GatewayTimestamp)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: header.gatewayTimestamp is empty", ErrInvalidFormat)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: header.gatewayTimestamp %q", ErrInvalidFormat, value)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
